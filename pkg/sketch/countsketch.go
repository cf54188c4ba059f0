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
	"sort"

	"flowsketch/pkg/counter"
	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

// CountSketch trades CountMin's one-sided error for a two-sided one: a
// second, independent hash family picks a sign (+1/-1) per row, and the
// estimate is the median across rows rather than the minimum. Unlike
// CountMin it can overestimate or underestimate, but its error has zero
// mean (spec.md §4.F).
type CountSketch struct {
	rows, cols int
	hasher     flowhash.Hasher
	signHasher flowhash.Hasher
	m          *counter.Matrix[int32]
}

// NewCountSketch takes two hashers: one to pick the column, one to pick the
// sign. They may be the same hash family, since sign draws on seed indices
// rows..2*rows-1 while the column hash uses 0..rows-1.
func NewCountSketch(rows int, budgetBytes int, hasher, signHasher flowhash.Hasher) (*CountSketch, error) {
	if rows <= 0 {
		return nil, fmt.Errorf("countsketch: rows must be > 0, got %d", rows)
	}
	if hasher == nil || signHasher == nil {
		return nil, fmt.Errorf("countsketch: both hashers must be non-nil")
	}
	cols := counter.ColsForBudget(rows, budgetBytes, 4)
	m, err := counter.NewMatrix[int32](rows, cols)
	if err != nil {
		return nil, err
	}
	return &CountSketch{rows: rows, cols: cols, hasher: hasher, signHasher: signHasher, m: m}, nil
}

// sign seeds signHasher at row+rows rather than row: callers are allowed to
// pass the same hash family for both hasher and signHasher (e.g. via
// Clone()), and sharing a seed index would make the sign deterministically
// correlated with the bucket choice instead of independent of it.
func (s *CountSketch) sign(flow flowkey.Key, row int) int32 {
	if s.signHasher.Hash(flow, uint64(row+s.rows), 2) == 0 {
		return -1
	}
	return 1
}

func (s *CountSketch) Update(flow flowkey.Key, delta uint64) {
	if delta == 0 {
		return
	}
	d := int32(clampU32(delta))
	for i := 0; i < s.rows; i++ {
		c := int(s.hasher.Hash(flow, uint64(i), uint64(s.cols)))
		s.m.Update(i, c, d*s.sign(flow, i))
	}
}

func (s *CountSketch) Query(flow flowkey.Key) uint64 {
	ests := make([]int32, s.rows)
	for i := 0; i < s.rows; i++ {
		c := int(s.hasher.Hash(flow, uint64(i), uint64(s.cols)))
		ests[i] = s.m.Read(i, c) * s.sign(flow, i)
	}
	sort.Slice(ests, func(a, b int) bool { return ests[a] < ests[b] })
	median := ests[s.rows/2]
	if s.rows%2 == 0 {
		median = (ests[s.rows/2-1] + ests[s.rows/2]) / 2
	}
	if median < 0 {
		return 0
	}
	return uint64(median)
}

func (s *CountSketch) HasFlow(flow flowkey.Key) bool { return s.Query(flow) > 0 }

func (s *CountSketch) Clear() { s.m.Clear() }

func (s *CountSketch) Stats() Stats {
	return Stats{Kind: "countsketch", Rows: s.rows, Cols: s.cols, Capacity: s.rows * s.cols}
}
