// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides the entry point for the flowtop demo application.
//
// flowtop is a runnable demonstration of the pkg/sketch library: it ingests
// a stream of (flow, increment) events — either replayed from an
// internal/replay JSONL log or generated synthetically — into one
// probabilistic sketch engine, and serves live queries and Prometheus
// metrics over HTTP while the sketch fills up in the background.
//
// 1. Parse flags selecting the engine, its memory budget, and the ingest
//    source.
// 2. Build the chosen pkg/sketch engine and start the ingest loop.
// 3. Serve /query, /top, and /metrics on an http.Server.
// 4. On SIGINT/SIGTERM, stop ingest, print a final summary, and shut the
//    HTTP server down gracefully.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flowsketch/internal/replay"
	"flowsketch/internal/telemetry/sketchstat"
	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
	"flowsketch/pkg/sketch"
)

func main() {
	// --- What this is ---
	// flowtop keeps one sketch engine warm in memory and lets you poke at it:
	//   curl "http://localhost:8080/query?flow=42"
	//   curl "http://localhost:8080/top"
	//   curl "http://localhost:8080/metrics"
	// With no -replay_file, it feeds itself a synthetic mix of a handful of
	// heavy flows plus a long tail of light ones, the same "hot keys plus
	// noise" shape the rate limiter benchmark harness generates traffic
	// with, so you can watch an engine like Elastic or HashPipe separate
	// elephants from mice without wiring up a packet source.

	kind := flag.String("engine", "countmin", "sketch engine: countmin, countsketch, sampleandhold, hashpipe, mvsketch, elastic, flowradar, univmon, sketchlearn")
	budgetBytes := flag.Int("budget_bytes", 64*1024, "memory budget for the engine's counting table, in bytes")
	rows := flag.Int("rows", 4, "row count for row-based engines (countmin, countsketch, mvsketch, sketchlearn)")
	hasherName := flag.String("hasher", "crc32", "hash family: crc32, crc64, xxhash, murmur, spooky")
	stages := flag.Int("stages", 4, "stage count for hashpipe")
	lambda := flag.Uint64("elastic_lambda", 8, "Elastic's heavy/light forwarding threshold (neg/pos vote ratio)")
	heavyFraction := flag.Float64("elastic_heavy_fraction", 0.2, "fraction of elastic's budget reserved for the heavy part")
	bloomFraction := flag.Float64("flowradar_bloom_fraction", 0.3, "fraction of flowradar's budget reserved for the bloom filter")
	flowradarKB := flag.Int("flowradar_kb", 3, "flowradar bloom filter hash count")
	flowradarKC := flag.Int("flowradar_kc", 3, "flowradar counting table hash count")
	flowradarExpectedFlows := flag.Int("flowradar_expected_flows", 0, "expected distinct flow count, for flowradar's over-provisioning warning; 0 skips the check")
	univmonLayers := flag.Int("univmon_layers", 6, "number of geometric-sampling layers for univmon")
	univmonBackend := flag.String("univmon_backend", "countsketch", "univmon per-layer backend: countsketch or sampleandhold")
	sketchlearnTheta := flag.Float64("sketchlearn_theta", 0.5, "sketchlearn's per-bit gating threshold")
	sampleHoldCapacity := flag.Int("sampleandhold_capacity", 1024, "exact-tracking capacity for sample-and-hold")

	replayFile := flag.String("replay_file", "", "path to a JSONL replay log to ingest; if empty, a synthetic generator runs instead")
	numHeavyFlows := flag.Int("synth_heavy_flows", 5, "number of synthetic heavy flows")
	numLightFlows := flag.Int("synth_light_flows", 5000, "number of synthetic light (long-tail) flows")
	heavyTrafficShare := flag.Float64("synth_heavy_share", 0.8, "fraction of synthetic traffic sent to heavy flows")
	synthRate := flag.Duration("synth_interval", time.Millisecond, "delay between synthetic updates; 0 runs flat out")
	seed := flag.Uint64("synth_seed", 1, "seed for the synthetic traffic generator")

	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address")
	topN := flag.Int("top_n", 20, "number of flows returned by /top")

	statsEnabled := flag.Bool("stats", true, "enable in-process sketchstat telemetry")
	statsSampleRate := flag.Float64("stats_sample", 1.0, "deterministic per-flow sampling rate for telemetry")
	statsMetricsAddr := flag.String("stats_metrics_addr", "", "if non-empty, expose Prometheus /metrics on this separate address instead of http_addr")
	statsLogInterval := flag.Duration("stats_log_interval", 15*time.Second, "periodic churn summary log interval; 0 disables")
	statsWindow := flag.Duration("stats_window", time.Minute, "KPI window for telemetry ratios")
	statsTopN := flag.Int("stats_top_n", 50, "cap on the telemetry churn ranking (logs show only the top flow)")
	statsKeyHashLen := flag.Int("stats_key_hash_len", 8, "hex chars of flow hash to print in telemetry logs")
	flag.Parse()

	hasher, err := hasherByName(*hasherName)
	if err != nil {
		log.Fatal(err)
	}
	backend, err := univmonBackendByName(*univmonBackend)
	if err != nil {
		log.Fatal(err)
	}

	engine, err := newEngine(engineConfig{
		kind:               *kind,
		budgetBytes:        *budgetBytes,
		rows:               *rows,
		hasher:             hasher,
		stages:             *stages,
		elasticLambda:      uint32(*lambda),
		elasticHeavyFrac:   *heavyFraction,
		flowradarBloomFrac: *bloomFraction,
		flowradarKB:        *flowradarKB,
		flowradarKC:        *flowradarKC,
		flowradarExpected:  *flowradarExpectedFlows,
		univmonLayers:      *univmonLayers,
		univmonBackend:     backend,
		sketchlearnTheta:   *sketchlearnTheta,
		sampleHoldCapacity: *sampleHoldCapacity,
	})
	if err != nil {
		log.Fatalf("could not build %s engine: %v", *kind, err)
	}

	sketchstat.Enable(sketchstat.Config{
		Enabled:     *statsEnabled,
		SampleRate:  *statsSampleRate,
		MetricsAddr: *statsMetricsAddr,
		LogInterval: *statsLogInterval,
		Window:      *statsWindow,
		TopN:        *statsTopN,
		KeyHashLen:  *statsKeyHashLen,
	})

	// Ingest loop: replay a log if given, otherwise generate synthetic
	// traffic until shutdown is requested.
	ingestDone := make(chan struct{})
	stopIngest := make(chan struct{})
	var ingestedEvents int64
	go func() {
		defer close(ingestDone)
		if *replayFile != "" {
			ingestedEvents = runReplayIngest(engine, *replayFile)
			return
		}
		ingestedEvents = runSyntheticIngest(engine, stopIngest, syntheticConfig{
			heavyFlows: *numHeavyFlows,
			lightFlows: *numLightFlows,
			heavyShare: *heavyTrafficShare,
			interval:   *synthRate,
			seed:       *seed,
		})
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/query", handleQuery(engine))
	mux.HandleFunc("/top", handleTop(engine, *topN))
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("flowtop (%s engine) listening on %s\n", *kind, *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v", *httpAddr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nShutting down...")
	close(stopIngest)
	<-ingestDone
	fmt.Printf("Ingested %d events into the %s engine.\n", ingestedEvents, *kind)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	fmt.Println("Server gracefully stopped.")
}

func hasherByName(name string) (flowhash.Hasher, error) {
	switch name {
	case "crc32", "":
		return flowhash.CRC32Hasher{}, nil
	case "crc64":
		return flowhash.CRC64Hasher{}, nil
	case "xxhash":
		return flowhash.XXHasher{}, nil
	case "murmur":
		return flowhash.MurmurHasher{}, nil
	case "spooky":
		return flowhash.SpookyHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown hasher %q", name)
	}
}

func univmonBackendByName(name string) (sketch.UnivMonBackend, error) {
	switch name {
	case "countsketch", "":
		return sketch.UnivMonCountSketch, nil
	case "sampleandhold":
		return sketch.UnivMonSampleAndHold, nil
	default:
		return 0, fmt.Errorf("unknown univmon backend %q", name)
	}
}

type engineConfig struct {
	kind               string
	budgetBytes        int
	rows               int
	hasher             flowhash.Hasher
	stages             int
	elasticLambda      uint32
	elasticHeavyFrac   float64
	flowradarBloomFrac float64
	flowradarKB        int
	flowradarKC        int
	flowradarExpected  int
	univmonLayers      int
	univmonBackend     sketch.UnivMonBackend
	sketchlearnTheta   float64
	sampleHoldCapacity int
}

// oneTupleFromBits rebuilds a flowkey.OneTuple from sketchlearn's inferred
// 4-byte image, which has the layout of OneTuple.Bytes().
func oneTupleFromBits(bits []byte) flowkey.Key {
	return flowkey.OneTuple{Field: binary.LittleEndian.Uint32(bits)}
}

// newEngine builds one sketch.Sketch (and, where the engine supports it,
// sketch.Decoder) from the CLI's chosen kind and parameters.
func newEngine(cfg engineConfig) (sketch.Sketch, error) {
	switch cfg.kind {
	case "countmin":
		return sketch.NewCountMin(cfg.rows, cfg.budgetBytes, cfg.hasher)
	case "countsketch":
		return sketch.NewCountSketch(cfg.rows, cfg.budgetBytes, cfg.hasher, flowhash.XXHasher{})
	case "sampleandhold":
		return sketch.NewSampleAndHold(cfg.sampleHoldCapacity)
	case "hashpipe":
		return sketch.NewHashPipe(cfg.budgetBytes, cfg.stages, cfg.hasher)
	case "mvsketch":
		return sketch.NewMVSketch(cfg.rows, cfg.budgetBytes, cfg.hasher)
	case "elastic":
		heavyBudget := int(float64(cfg.budgetBytes) * cfg.elasticHeavyFrac)
		if heavyBudget < 1 {
			heavyBudget = 1
		}
		return sketch.NewElastic(heavyBudget, cfg.elasticLambda, cfg.budgetBytes, cfg.rows, cfg.hasher)
	case "flowradar":
		return sketch.NewFlowRadar(cfg.budgetBytes, cfg.flowradarBloomFrac, cfg.flowradarKB, cfg.flowradarKC, cfg.flowradarExpected, cfg.hasher)
	case "univmon":
		return sketch.NewUnivMon(cfg.univmonLayers, cfg.budgetBytes, cfg.univmonBackend, cfg.hasher)
	case "sketchlearn":
		return sketch.NewSketchLearn(cfg.budgetBytes, cfg.rows, cfg.sketchlearnTheta, 32, oneTupleFromBits, cfg.hasher)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.kind)
	}
}

// runReplayIngest feeds every event of a replay log into the engine once
// and returns how many events were applied.
func runReplayIngest(engine sketch.Sketch, path string) int64 {
	events, err := replay.ReadAll(path)
	if err != nil {
		log.Printf("replay ingest: %v", err)
		return 0
	}
	var n int64
	for _, ev := range events {
		flow, err := ev.Flow()
		if err != nil {
			continue
		}
		engine.Update(flow, ev.Increment)
		sketchstat.ObserveUpdate(flow.String())
		n++
		if n%occupancySampleEvery == 0 {
			observeOccupancy(engine)
		}
	}
	observeOccupancy(engine)
	return n
}

// occupancySampleEvery bounds how often the ingest loops take an
// occupancy snapshot: Stats() walks the engine's whole table, so it is not
// cheap enough to call on every single update.
const occupancySampleEvery = 256

// observeOccupancy reports an engine's current occupied/capacity ratio to
// sketchstat, for engines that expose sketch.StatsProvider.
func observeOccupancy(engine sketch.Sketch) {
	sp, ok := engine.(sketch.StatsProvider)
	if !ok {
		return
	}
	st := sp.Stats()
	sketchstat.ObserveOccupancy(st.Occupied, st.Capacity)
}

type syntheticConfig struct {
	heavyFlows int
	lightFlows int
	heavyShare float64
	interval   time.Duration
	seed       uint64
}

// runSyntheticIngest generates a heavy/light flow mix — a handful of
// elephants plus a long tail of mice — until stop is closed, and returns
// how many updates were applied.
func runSyntheticIngest(engine sketch.Sketch, stop <-chan struct{}, cfg syntheticConfig) int64 {
	rnd := rand.New(rand.NewPCG(cfg.seed, cfg.seed+1))
	var ticker *time.Ticker
	if cfg.interval > 0 {
		ticker = time.NewTicker(cfg.interval)
		defer ticker.Stop()
	}
	var n int64
	for {
		select {
		case <-stop:
			return n
		default:
		}
		var flow flowkey.Key
		if rnd.Float64() < cfg.heavyShare {
			flow = flowkey.OneTuple{Field: uint32(rnd.IntN(cfg.heavyFlows))}
		} else {
			flow = flowkey.OneTuple{Field: uint32(cfg.heavyFlows + rnd.IntN(cfg.lightFlows))}
		}
		engine.Update(flow, 1)
		sketchstat.ObserveUpdate(flow.String())
		n++
		if n%occupancySampleEvery == 0 {
			observeOccupancy(engine)
		}
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-stop:
				return n
			}
		}
	}
}

// handleQuery serves GET /query?flow=<uint32>, returning the engine's
// current estimate for the one-tuple flow identified by that field value.
func handleQuery(engine sketch.Sketch) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("flow")
		if raw == "" {
			http.Error(w, "flow is required", http.StatusBadRequest)
			return
		}
		field, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			http.Error(w, "flow must be a uint32", http.StatusBadRequest)
			return
		}
		flow := flowkey.OneTuple{Field: uint32(field)}
		fmt.Fprintf(w, "%d\n", engine.Query(flow))
	}
}

// handleTop serves GET /top, listing the n highest-estimate flows the
// engine can currently decode. Engines without Decoder support report so.
func handleTop(engine sketch.Sketch, n int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decoder, ok := engine.(sketch.Decoder)
		if !ok {
			http.Error(w, "this engine does not support decode", http.StatusNotImplemented)
			return
		}
		decoded := decoder.Decode()
		type row struct {
			flow  flowkey.Key
			count uint64
		}
		rows := make([]row, 0, len(decoded))
		for flow, count := range decoded {
			rows = append(rows, row{flow, count})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].count > rows[j].count })
		if len(rows) > n {
			rows = rows[:n]
		}
		for _, rr := range rows {
			fmt.Fprintf(w, "%s\t%d\n", rr.flow, rr.count)
		}
	}
}
