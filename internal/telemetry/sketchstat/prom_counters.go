// Package sketchstat provides opt-in, low-overhead telemetry for sketch
// occupancy, saturation, and eviction churn. It is designed to be safe to
// call from hot paths: when disabled, all public functions are no-ops.
package sketchstat

import (
	"hash/fnv"
	"log"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the behavior of the sketchstat module.
//
// Notes:
//   - SampleRate is deterministic per flow using a fast FNV-1a 64-bit hash to avoid RNG cost.
//   - MetricsAddr, when non-empty, starts a dedicated HTTP server that serves /metrics.
//     If you already expose Prometheus elsewhere, leave it empty and register promhttp yourself.
//   - LogInterval and TopN are used by the exporter (see exporter.go). If LogInterval == 0, the
//     exporter loop is disabled.
//   - KeyHashLen controls how many hex characters to log for anonymized flow hashes (2..16 typical).
type Config struct {
	Enabled     bool
	SampleRate  float64       // 0.0..1.0, probability a given flow is included (deterministic)
	MetricsAddr string        // e.g., ":9090". Empty to disable standalone metrics endpoint
	LogInterval time.Duration // e.g., 1*time.Minute; 0 disables exporter logging
	Window      time.Duration // KPI window to compute ratios over; defaults to 1m if 0
	TopN        int           // cap on the ranked churn list; logs show only its top entry
	KeyHashLen  int           // number of hex chars to print for flow hash in logs
}

var (
	modEnabled atomic.Bool

	// samplingThreshold is a fixed cut in the 64-bit hash space representing SampleRate.
	samplingThreshold atomic.Uint64

	// Prometheus metrics — global only (no unbounded label cardinality).
	updatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flowsketch_updates_total",
		Help: "Total update events ingested across all engines",
	})
	evictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowsketch_evictions_total",
		Help: "Total capacity evictions, labeled by engine kind (sampleandhold, elastic, hashpipe)",
	}, []string{"kind"})
	decodeCandidates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowsketch_decode_candidates",
		Help:    "Distribution of recovered-flow counts per decode() call",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
	})
	// First-class KPIs (Gauges) over a rolling window.
	occupancyRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowsketch_occupancy_ratio",
		Help: "Fraction of capacity-bounded slots currently occupied",
	})
	evictionRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowsketch_eviction_ratio",
		Help: "Evictions per admitted update over the KPI window",
	})
	decodeResidueRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowsketch_decode_residue_ratio",
		Help: "Fraction of counting-table buckets left undecoded after the last decode() call",
	})
	flowsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowsketch_flows_tracked",
		Help: "Number of sampled flows currently tracked by the in-process churn aggregator",
	})
)

func init() {
	// Register metrics eagerly. If no Prometheus endpoint is exposed, the registration is harmless.
	prometheus.MustRegister(updatesTotal, evictionsTotal, decodeCandidates, occupancyRatio, evictionRatio, decodeResidueRatio, flowsTracked)
}

// Enable configures the module. Safe to call multiple times; subsequent calls replace config.
func Enable(cfg Config) {
	if cfg.SampleRate < 0 {
		cfg.SampleRate = 0
	}
	if cfg.SampleRate > 1 {
		cfg.SampleRate = 1
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 50
	}
	if cfg.KeyHashLen <= 0 {
		cfg.KeyHashLen = 8
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	// Compute deterministic sampling threshold once (inclusive bound in [0, 2^64-1]).
	var thr uint64
	switch {
	case cfg.SampleRate <= 0:
		thr = 0 // sample none
	case cfg.SampleRate >= 1:
		thr = ^uint64(0) // sample all flows
	default:
		max := ^uint64(0)
		f := cfg.SampleRate * (float64(max) + 1.0)
		if f < 1 {
			f = 1
		}
		thr = uint64(f) - 1
	}
	samplingThreshold.Store(thr)

	modEnabled.Store(cfg.Enabled)

	startOrUpdateExporter(cfg)

	if cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
}

// Enabled reports whether the sketchstat module is active.
func Enabled() bool { return modEnabled.Load() }

// ObserveUpdate records a single update event against a flow's diagnostic
// hash (not the raw flow key, to keep cardinality in logs bounded and avoid
// holding onto key material). Call on the hot path after every update.
func ObserveUpdate(flowHash string) {
	if !modEnabled.Load() {
		return
	}
	updatesTotal.Inc()
	updatesAll.Add(1)
	if flowHash != "" && sampled(flowHash) {
		exporterRecordUpdate(hashKey(flowHash))
	}
}

// ObserveEviction records a capacity eviction for the named engine kind
// (e.g. "sampleandhold", "elastic", "hashpipe").
func ObserveEviction(kind string) {
	if !modEnabled.Load() {
		return
	}
	evictionsTotal.WithLabelValues(kind).Inc()
	evictionsAll.Add(1)
}

// ObserveOccupancy records the current occupied/capacity ratio for a
// capacity-bounded engine; callers typically feed this from Stats().
func ObserveOccupancy(occupied, capacity int) {
	if !modEnabled.Load() || capacity <= 0 {
		return
	}
	occupancyRatio.Set(float64(occupied) / float64(capacity))
}

// ObserveDecode records the result of a decode() call: how many flows were
// recovered and how many buckets remained as undecodable residue.
func ObserveDecode(recovered, residueBuckets, totalBuckets int) {
	if !modEnabled.Load() {
		return
	}
	decodeCandidates.Observe(float64(recovered))
	if totalBuckets > 0 {
		decodeResidueRatio.Set(float64(residueBuckets) / float64(totalBuckets))
	}
}

// Warnf logs a one-off construction-time sizing warning (e.g. FlowRadar's
// under-provisioned counting table). Unlike the Observe* functions this is
// not gated on Enabled(): it is a correctness signal about the engine's
// configuration, not a per-update metric, so it always surfaces.
func Warnf(format string, args ...interface{}) {
	log.Printf("sketchstat: "+format, args...)
}

// startMetricsEndpoint exposes /metrics on the given addr in a background goroutine.
func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}

// sampled deterministically decides whether a flow participates given SampleRate.
func sampled(key string) bool {
	thr := samplingThreshold.Load()
	if thr == 0 {
		return false
	}
	return hashKey(key) <= thr
}

// hashKey returns a 64-bit FNV-1a hash of the key.
func hashKey(key string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64()
}

// humanRate formats a float as percentage, for logs.
func humanRate(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f*100, 'f', 2, 64) + "%"
}
