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

// Package sketch implements the family of probabilistic, memory-bounded
// flow-telemetry sketches: Count-Min, Count Sketch, Sample-and-Hold,
// HashPipe, MVSketch, Elastic, FlowRadar, UnivMon, and SketchLearn, plus an
// exact Ideal baseline used by tests as ground truth.
//
// Every engine is a single-threaded object: Update, Query, Decode, and Clear
// are not safe to call concurrently on the same instance. Distinct instances
// are independent and no operation blocks.
package sketch

import "flowsketch/pkg/flowkey"

// Sketch is the common ingest/query surface every engine implements.
type Sketch interface {
	// Update records delta (a non-negative increment) against flow. Per-sketch
	// documentation specifies whether a negative delta is rejected (no-op) or
	// has sketch-specific one-packet-at-a-time semantics.
	Update(flow flowkey.Key, delta uint64)
	// Query returns the sketch's current frequency estimate for flow. Never
	// fails; returns 0 for flows the sketch has no information about.
	Query(flow flowkey.Key) uint64
	// HasFlow is equivalent to Query(flow) > 0 unless documented otherwise.
	HasFlow(flow flowkey.Key) bool
	// Clear resets the sketch to its post-construction zero state.
	Clear()
}

// Decoder is implemented by sketches that can recover the set of flows they
// have observed along with an estimated count for each (FlowRadar,
// SketchLearn, SampleAndHold, UnivMon, and Ideal). UnivMon recovers flows
// only from SampleAndHold layers; with a CountSketch backend its Decode
// returns an empty map.
type Decoder interface {
	Sketch
	// Decode returns a mapping from flow to estimated count, as a Go map with
	// no defined iteration order. Flows that could not be recovered (decode
	// failure) are simply absent; this is not an error per spec.md §7.
	Decode() map[flowkey.Key]uint64
}

// Stats is a lightweight diagnostic snapshot an engine may expose for the
// telemetry package (occupancy, capacity, and similar gauges); it carries no
// behavior and feeds logging/metrics only.
type Stats struct {
	Kind     string
	Rows     int
	Cols     int
	Occupied int
	Capacity int
}

// StatsProvider is implemented by every engine in this package. It is kept
// separate from Sketch because Stats() is a diagnostics/telemetry concern,
// not part of the update/query contract callers depend on.
type StatsProvider interface {
	Stats() Stats
}
