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

	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

type mvBucket struct {
	candidate flowkey.Key
	value     uint32
	count     int32
}

func (b mvBucket) hasCandidate() bool { return b.candidate != nil }

// MVSketch runs a majority-vote protocol per cell: the resident candidate
// survives as long as its net vote stays non-negative; once it goes
// negative the candidate flips to the challenger (spec.md §4.I). value
// tracks the cell's total traffic regardless of who the candidate is.
type MVSketch struct {
	rows, cols int
	hasher     flowhash.Hasher
	table      [][]mvBucket
}

func NewMVSketch(rows int, budgetBytes int, hasher flowhash.Hasher) (*MVSketch, error) {
	if rows <= 0 {
		return nil, fmt.Errorf("mvsketch: rows must be > 0, got %d", rows)
	}
	const bucketSize = 20
	cols := budgetBytes / rows / bucketSize
	if cols <= 0 {
		return nil, fmt.Errorf("mvsketch: budget too small for %d rows", rows)
	}
	table := make([][]mvBucket, rows)
	for i := range table {
		table[i] = make([]mvBucket, cols)
	}
	return &MVSketch{rows: rows, cols: cols, hasher: hasher, table: table}, nil
}

func (s *MVSketch) Update(flow flowkey.Key, delta uint64) {
	if delta == 0 {
		return
	}
	d := clampU32(delta)
	for i := 0; i < s.rows; i++ {
		c := int(s.hasher.Hash(flow, uint64(i), uint64(s.cols)))
		bkt := &s.table[i][c]
		bkt.value = saturateAddU32(bkt.value, d)
		switch {
		case !bkt.hasCandidate():
			bkt.candidate = flow
			bkt.count = int32(d)
		case bkt.candidate == flow:
			bkt.count = saturateAddI32(bkt.count, int32(d))
		default:
			bkt.count -= int32(d)
			if bkt.count < 0 {
				bkt.candidate = flow
				bkt.count = -bkt.count
			}
		}
	}
}

func (s *MVSketch) Query(flow flowkey.Key) uint64 {
	var min uint64
	for i := 0; i < s.rows; i++ {
		c := int(s.hasher.Hash(flow, uint64(i), uint64(s.cols)))
		bkt := s.table[i][c]
		var est int64
		if bkt.candidate == flow {
			est = (int64(bkt.value) + int64(bkt.count)) / 2
		} else {
			est = (int64(bkt.value) - int64(bkt.count)) / 2
			if est < 0 {
				est = 0
			}
		}
		u := uint64(est)
		if i == 0 || u < min {
			min = u
		}
	}
	return min
}

func (s *MVSketch) HasFlow(flow flowkey.Key) bool { return s.Query(flow) > 0 }

func (s *MVSketch) Clear() {
	for i := range s.table {
		for j := range s.table[i] {
			s.table[i][j] = mvBucket{}
		}
	}
}

func (s *MVSketch) Stats() Stats {
	return Stats{Kind: "mvsketch", Rows: s.rows, Cols: s.cols, Capacity: s.rows * s.cols}
}

func saturateAddU32(a, b uint32) uint32 {
	s := a + b
	if s < a {
		return 0xFFFFFFFF
	}
	return s
}

func saturateAddI32(a, b int32) int32 {
	s := int64(a) + int64(b)
	if s > 0x7FFFFFFF {
		return 0x7FFFFFFF
	}
	if s < -0x80000000 {
		return -0x80000000
	}
	return int32(s)
}
