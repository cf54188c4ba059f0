package sketchstat

import (
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type point struct {
	ts        time.Time
	updates   int64
	evictions int64
}

// Internal aggregates and exporter loop.

type flowAgg struct {
	updates    atomic.Int64
	evictions  atomic.Int64
	lastUpdate atomic.Int64 // unix nano
}

var (
	agg sync.Map // map[uint64]*flowAgg

	updatesInternal atomic.Int64 // sampled update count (for per-flow churn/top-N)
	updatesAll      atomic.Int64 // unsampled update count (global baseline)
	evictionsAll    atomic.Int64 // global eviction count across all engines

	exporterMu   sync.Mutex
	exporterStop chan struct{}
	exporterDone chan struct{}
	currCfg      atomic.Value // stores Config

	windowPoints []point
	windowMu     sync.Mutex

	livePrinted   atomic.Bool
	liveMode      atomic.Bool
	ansiSupported atomic.Bool
	colorOn       atomic.Bool

	prevSimpleLen atomic.Int64
)

func startOrUpdateExporter(cfg Config) {
	exporterMu.Lock()
	defer exporterMu.Unlock()

	currCfg.Store(cfg)

	lm := os.Getenv("FLOWSKETCH_STAT_LIVE")
	if lm == "0" || lm == "false" {
		liveMode.Store(false)
	} else {
		liveMode.Store(true)
	}
	if os.Getenv("NO_COLOR") != "" {
		colorOn.Store(false)
	} else {
		colorOn.Store(true)
	}
	ansiSupported.Store(detectANSISupport())

	if exporterStop != nil {
		close(exporterStop)
		<-exporterDone
		exporterStop, exporterDone = nil, nil
	}
	if !cfg.Enabled || cfg.LogInterval <= 0 {
		return
	}
	exporterStop = make(chan struct{})
	exporterDone = make(chan struct{})
	go exporterLoop(exporterStop, exporterDone)
}

func exporterLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	cfgAny := currCfg.Load()
	cfg, _ := cfgAny.(Config)
	ticker := time.NewTicker(cfg.LogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			publishSnapshot()
		case <-stop:
			return
		}
	}
}

func publishSnapshot() {
	cfgAny := currCfg.Load()
	cfg, _ := cfgAny.(Config)
	type row struct {
		flowHash    uint64
		updates     int64
		evictions   int64
		churnFactor float64
	}
	rows := make([]row, 0, 1024)
	var tracked int
	idleTTL := cfg.Window * 2
	cutoff := time.Now().Add(-idleTTL).UnixNano()
	agg.Range(func(k, v any) bool {
		fa := v.(*flowAgg)
		last := fa.lastUpdate.Load()
		if last > 0 && last < cutoff {
			agg.Delete(k)
			return true
		}
		tracked++
		u := fa.updates.Load()
		e := fa.evictions.Load()
		cf := float64(e) / float64(max64(1, u))
		rows = append(rows, row{flowHash: k.(uint64), updates: u, evictions: e, churnFactor: cf})
		return true
	})
	flowsTracked.Set(float64(tracked))

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].churnFactor == rows[j].churnFactor {
			return rows[i].updates > rows[j].updates
		}
		return rows[i].churnFactor > rows[j].churnFactor
	})
	if len(rows) > cfg.TopN {
		rows = rows[:cfg.TopN]
	}

	now := time.Now()
	pt := point{ts: now, updates: updatesAll.Load(), evictions: evictionsAll.Load()}
	windowMu.Lock()
	windowPoints = append(windowPoints, pt)
	winStart := now.Add(-cfg.Window)
	idx := 0
	for idx < len(windowPoints) && windowPoints[idx].ts.Before(winStart) {
		idx++
	}
	if idx > 0 {
		windowPoints = windowPoints[idx:]
	}
	old := windowPoints[0]
	windowMu.Unlock()

	dUpdates := pt.updates - old.updates
	dEvictions := pt.evictions - old.evictions
	evWindow := float64(dEvictions) / float64(max64(1, dUpdates))
	evictionRatio.Set(evWindow)

	evTxt := fmt.Sprintf("%.4f", evWindow)
	if colorOn.Load() {
		evTxt = colorEviction(evWindow, evTxt)
	}
	summary := fmt.Sprintf("sketchstat: eviction_ratio=%s updates=%d evictions=%d sample=%.2f topN=%d",
		evTxt, dUpdates, dEvictions, cfg.SampleRate, cfg.TopN)

	var topLine string
	if len(rows) > 0 {
		first := rows[0]
		churnTxt := fmt.Sprintf("%.3f", first.churnFactor)
		if colorOn.Load() {
			churnTxt = colorEviction(first.churnFactor, churnTxt)
		}
		topLine = fmt.Sprintf("top flow=%s churn=%s updates=%d evictions=%d",
			shortHash(first.flowHash, cfg.KeyHashLen), churnTxt, first.updates, first.evictions)
	} else {
		topLine = "top flow: (none yet)"
	}

	if liveMode.Load() {
		if ansiSupported.Load() {
			renderLive(summary, topLine)
		} else {
			renderSimple(summary, topLine)
		}
		return
	}

	ts := time.Now().Format(time.RFC3339)
	fmt.Printf("[%s] %s\n", ts, summary)
	fmt.Printf("  - %s\n", topLine)
}

func shortHash(h uint64, n int) string {
	if n <= 0 {
		n = 8
	}
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(h & 0xff)
		h >>= 8
	}
	s := hex.EncodeToString(b)
	if n < len(s) {
		return s[:n]
	}
	return s
}

func sampleRate() float64 {
	thr := samplingThreshold.Load()
	return float64(thr) / float64(^uint64(0))
}

// --- recording helpers (called from prom_counters.go) ---

func exporterRecordUpdate(flowHash uint64) {
	fa := getAgg(flowHash)
	fa.updates.Add(1)
	fa.lastUpdate.Store(time.Now().UnixNano())
	updatesInternal.Add(1)
}

func getAgg(flowHash uint64) *flowAgg {
	if v, ok := agg.Load(flowHash); ok {
		return v.(*flowAgg)
	}
	fa := &flowAgg{}
	actual, _ := agg.LoadOrStore(flowHash, fa)
	return actual.(*flowAgg)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// --- Live rendering and coloring helpers ---

const (
	ansiClearLine  = "\x1b[2K"
	ansiPrevLines2 = "\x1b[2F"
	ansiReset      = "\x1b[0m"
	ansiBold       = "\x1b[1m"
	ansiRed        = "\x1b[31m"
	ansiGreen      = "\x1b[32m"
	ansiYellow     = "\x1b[33m"
	ansiCyan       = "\x1b[36m"
)

func renderLive(summary, top string) {
	if !livePrinted.Load() {
		fmt.Printf("%s\n%s\n", summary, top)
		livePrinted.Store(true)
		return
	}
	fmt.Print(ansiPrevLines2)
	fmt.Printf("%s%s\n", ansiClearLine, summary)
	fmt.Printf("%s%s\n", ansiClearLine, top)
}

func renderSimple(summary, top string) {
	line := summary
	if top != "" && top != "top flow: (none yet)" {
		line = line + " | " + top
	}
	visLen := printableLen(line)
	prev := prevSimpleLen.Load()
	if !livePrinted.Load() {
		fmt.Print(line)
		livePrinted.Store(true)
		prevSimpleLen.Store(int64(visLen))
		return
	}
	pad := int(prev) - visLen
	if pad < 0 {
		pad = 0
	}
	if pad > 0 {
		fmt.Printf("\r%s%s", line, strings.Repeat(" ", pad))
	} else {
		fmt.Printf("\r%s", line)
	}
	prevSimpleLen.Store(int64(visLen))
}

func printableLen(s string) int {
	if !strings.Contains(s, "\x1b") {
		return len(s)
	}
	b := make([]byte, 0, len(s))
	inEsc := false
	csi := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inEsc {
			if !csi {
				if c == '[' {
					csi = true
					continue
				}
				if c >= 0x40 && c <= 0x7E {
					inEsc = false
					csi = false
				}
				continue
			}
			if c >= 0x40 && c <= 0x7E {
				inEsc = false
				csi = false
			}
			continue
		}
		if c == 0x1b {
			inEsc = true
			csi = false
			continue
		}
		b = append(b, c)
	}
	return len(b)
}

// detectANSISupport best-effort heuristic for cursor movement capability.
func detectANSISupport() bool {
	if os.Getenv("FLOWSKETCH_STAT_LIVE") == "0" || strings.EqualFold(os.Getenv("FLOWSKETCH_STAT_LIVE"), "false") {
		return false
	}
	if os.Getenv("GOLAND_IDE") != "" || os.Getenv("IDEA_INITIAL_DIRECTORY") != "" {
		return false
	}
	term := strings.ToLower(os.Getenv("TERM"))
	if runtime.GOOS == "windows" {
		if os.Getenv("WT_SESSION") != "" || strings.EqualFold(os.Getenv("ConEmuANSI"), "ON") {
			return true
		}
		return strings.Contains(term, "xterm") || strings.Contains(term, "ansi")
	}
	if term == "" {
		return false
	}
	return strings.Contains(term, "xterm") || strings.Contains(term, "screen") || strings.Contains(term, "tmux") || strings.Contains(term, "ansi")
}

func colorEviction(val float64, txt string) string {
	if !colorOn.Load() {
		return txt
	}
	switch {
	case val >= 0.10:
		return ansiBold + ansiRed + txt + ansiReset
	case val >= 0.02:
		return ansiYellow + txt + ansiReset
	default:
		return ansiGreen + txt + ansiReset
	}
}
