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

	"flowsketch/pkg/counter"
	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

// CountMin never underestimates a flow's true count: each row adds delta to
// exactly one column, and Query takes the minimum over rows, so any single
// row's hash collisions can only push the estimate up, never down.
type CountMin struct {
	rows, cols int
	hasher     flowhash.Hasher
	m          *counter.Matrix[uint32]
}

// NewCountMin derives cols from rows and a total byte budget (spec.md §4.E).
func NewCountMin(rows int, budgetBytes int, hasher flowhash.Hasher) (*CountMin, error) {
	if rows <= 0 {
		return nil, fmt.Errorf("countmin: rows must be > 0, got %d", rows)
	}
	cols := counter.ColsForBudget(rows, budgetBytes, 4)
	m, err := counter.NewMatrix[uint32](rows, cols)
	if err != nil {
		return nil, err
	}
	return &CountMin{rows: rows, cols: cols, hasher: hasher, m: m}, nil
}

func (s *CountMin) Update(flow flowkey.Key, delta uint64) {
	if delta == 0 {
		return
	}
	d := clampU32(delta)
	for i := 0; i < s.rows; i++ {
		c := int(s.hasher.Hash(flow, uint64(i), uint64(s.cols)))
		s.m.Update(i, c, d)
	}
}

func (s *CountMin) Query(flow flowkey.Key) uint64 {
	var min uint32
	for i := 0; i < s.rows; i++ {
		c := int(s.hasher.Hash(flow, uint64(i), uint64(s.cols)))
		v := s.m.Read(i, c)
		if i == 0 || v < min {
			min = v
		}
	}
	return uint64(min)
}

func (s *CountMin) HasFlow(flow flowkey.Key) bool { return s.Query(flow) > 0 }

func (s *CountMin) Clear() { s.m.Clear() }

func (s *CountMin) Stats() Stats {
	return Stats{Kind: "countmin", Rows: s.rows, Cols: s.cols, Capacity: s.rows * s.cols}
}

// clampU32 saturates a uint64 increment to uint32's range, since matrix
// cells are 32-bit; single-call deltas larger than that are vanishingly rare
// for per-packet telemetry but must not silently truncate.
func clampU32(v uint64) uint32 {
	if v > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(v)
}
