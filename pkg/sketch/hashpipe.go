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
	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

type hpBucket struct {
	flow  flowkey.Key
	count uint32
}

func (b hpBucket) empty() bool { return b.count == 0 }

// HashPipe carries the flow it is least confident about forward to the next
// stage, so a flow that is genuinely heavy settles near the front and a
// flow that loses every carry is simply dropped (spec.md §4.H).
type HashPipe struct {
	stages int
	b      int
	hasher flowhash.Hasher
	table  [][]hpBucket
}

// NewHashPipe takes a byte budget and a stage count (default 8 per the
// spec; callers pass it explicitly for testability).
func NewHashPipe(budgetBytes, stages int, hasher flowhash.Hasher) (*HashPipe, error) {
	if stages <= 0 {
		return nil, fmt.Errorf("hashpipe: stages must be > 0, got %d", stages)
	}
	const bucketSize = 16 // flow (8B TwoTuple-sized) + count (aligned)
	b := budgetBytes / stages / bucketSize
	if b <= 0 {
		return nil, fmt.Errorf("hashpipe: budget too small for %d stages", stages)
	}
	table := make([][]hpBucket, stages)
	for i := range table {
		table[i] = make([]hpBucket, b)
	}
	return &HashPipe{stages: stages, b: b, hasher: hasher, table: table}, nil
}

func (s *HashPipe) Update(flow flowkey.Key, delta uint64) {
	for n := uint64(0); n < delta; n++ {
		s.updateOne(flow)
	}
}

func (s *HashPipe) updateOne(flow flowkey.Key) {
	j0 := int(s.hasher.Hash(flow, 0, uint64(s.b)))
	bkt := &s.table[0][j0]
	switch {
	case !bkt.empty() && bkt.flow.Equal(flow):
		bkt.count++
		return
	case bkt.empty():
		*bkt = hpBucket{flow: flow, count: 1}
		return
	}

	carryFlow, carryCount := bkt.flow, bkt.count
	*bkt = hpBucket{flow: flow, count: 1}
	sketchstat.ObserveEviction("hashpipe")

	for stage := 1; stage < s.stages; stage++ {
		j := int(s.hasher.Hash(carryFlow, uint64(stage), uint64(s.b)))
		cell := &s.table[stage][j]
		switch {
		case !cell.empty() && cell.flow.Equal(carryFlow):
			cell.count += carryCount
			return
		case cell.empty():
			*cell = hpBucket{flow: carryFlow, count: carryCount}
			return
		case cell.count < carryCount:
			cell.flow, cell.count, carryFlow, carryCount = carryFlow, carryCount, cell.flow, cell.count
		default:
			return // small flow filtered, carry stops
		}
	}
}

func (s *HashPipe) Query(flow flowkey.Key) uint64 {
	var total uint64
	for stage := 0; stage < s.stages; stage++ {
		j := int(s.hasher.Hash(flow, uint64(stage), uint64(s.b)))
		bkt := s.table[stage][j]
		if !bkt.empty() && bkt.flow.Equal(flow) {
			total += uint64(bkt.count)
		}
	}
	return total
}

func (s *HashPipe) HasFlow(flow flowkey.Key) bool { return s.Query(flow) > 0 }

func (s *HashPipe) Clear() {
	for i := range s.table {
		for j := range s.table[i] {
			s.table[i][j] = hpBucket{}
		}
	}
}

func (s *HashPipe) Stats() Stats {
	occ := 0
	for i := range s.table {
		for j := range s.table[i] {
			if !s.table[i][j].empty() {
				occ++
			}
		}
	}
	return Stats{Kind: "hashpipe", Rows: s.stages, Cols: s.b, Occupied: occ, Capacity: s.stages * s.b}
}
