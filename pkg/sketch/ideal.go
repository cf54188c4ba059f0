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

import "flowsketch/pkg/flowkey"

// Ideal is the exact, unbounded oracle baseline: a plain per-flow counter
// with no memory bound. It exists purely so test harnesses can compute the
// true_count(f) every other engine's error bounds are measured against
// (spec.md §8), and so decode-style comparisons can treat all engines,
// including the oracle, through the same Decoder interface. It has no place
// on a production hot path — restoring it is a direct port of the role
// original_source/include/Ideal.h plays in the original test suite, which
// the distillation's spec.md silently assumed rather than specified.
type Ideal struct {
	counts map[flowkey.Key]uint64
}

func NewIdeal() *Ideal {
	return &Ideal{counts: make(map[flowkey.Key]uint64)}
}

func (s *Ideal) Update(flow flowkey.Key, delta uint64) {
	if delta == 0 {
		return
	}
	s.counts[flow] += delta
}

func (s *Ideal) Query(flow flowkey.Key) uint64 {
	return s.counts[flow]
}

func (s *Ideal) HasFlow(flow flowkey.Key) bool {
	return s.Query(flow) > 0
}

func (s *Ideal) Clear() {
	s.counts = make(map[flowkey.Key]uint64)
}

func (s *Ideal) Decode() map[flowkey.Key]uint64 {
	out := make(map[flowkey.Key]uint64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

func (s *Ideal) Stats() Stats {
	return Stats{Kind: "ideal", Occupied: len(s.counts)}
}
