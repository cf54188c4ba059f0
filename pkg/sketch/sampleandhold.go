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

package sketch

import (
	"fmt"

	"flowsketch/internal/telemetry/sketchstat"
	"flowsketch/pkg/flowkey"
)

// SampleAndHold keeps an exact count for a fixed-size set of flows and, once
// full, evicts the smallest-count resident to make room for a new flow
// (spec.md §4.G). It never holds more than Capacity distinct flows, so
// every count it reports for a resident flow is exact; it can forget a
// flow entirely once something larger displaces it.
type SampleAndHold struct {
	capacity int
	counts   map[flowkey.Key]uint64
	evicted  int
}

func NewSampleAndHold(capacity int) (*SampleAndHold, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("sampleandhold: capacity must be > 0, got %d", capacity)
	}
	return &SampleAndHold{capacity: capacity, counts: make(map[flowkey.Key]uint64, capacity)}, nil
}

// Update admits a new flow only when there is free capacity, or when the
// incumbent minimum is strictly smaller than the new flow's first delta;
// in the latter case the minimum is evicted and replaced.
func (s *SampleAndHold) Update(flow flowkey.Key, delta uint64) {
	if delta == 0 {
		return
	}
	if _, ok := s.counts[flow]; ok {
		s.counts[flow] += delta
		return
	}
	if len(s.counts) < s.capacity {
		s.counts[flow] = delta
		return
	}
	minFlow, minCount := s.min()
	if delta <= minCount {
		return
	}
	delete(s.counts, minFlow)
	s.evicted++
	sketchstat.ObserveEviction("sampleandhold")
	s.counts[flow] = delta
}

func (s *SampleAndHold) min() (flowkey.Key, uint64) {
	var (
		minFlow  flowkey.Key
		minCount uint64
		first    = true
	)
	for k, v := range s.counts {
		if first || v < minCount {
			minFlow, minCount, first = k, v, false
		}
	}
	return minFlow, minCount
}

func (s *SampleAndHold) Query(flow flowkey.Key) uint64 {
	return s.counts[flow]
}

func (s *SampleAndHold) HasFlow(flow flowkey.Key) bool {
	_, ok := s.counts[flow]
	return ok
}

func (s *SampleAndHold) Clear() {
	s.counts = make(map[flowkey.Key]uint64, s.capacity)
	s.evicted = 0
}

func (s *SampleAndHold) Decode() map[flowkey.Key]uint64 {
	out := make(map[flowkey.Key]uint64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Evictions reports how many resident flows have been displaced since
// construction or the last Clear. Each eviction is also reported to the
// telemetry package through sketchstat.ObserveEviction.
func (s *SampleAndHold) Evictions() int { return s.evicted }

func (s *SampleAndHold) Stats() Stats {
	return Stats{Kind: "sampleandhold", Occupied: len(s.counts), Capacity: s.capacity}
}
