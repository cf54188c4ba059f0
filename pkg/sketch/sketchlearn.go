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

// maxUncertainDecodeBits bounds the per-cell template expansion during
// decode: a cell with more uncertain bits than this is left undecoded
// rather than enumerating an unbounded candidate set.
const maxUncertainDecodeBits = 12

// FromBitsFunc reconstructs a concrete flow key from a keyBits/8-byte image
// in the layout of Key.Bytes(), where bit k (1-indexed) is bit 7-((k-1)%8)
// of byte (k-1)/8, i.e. MSB-first within each byte. The caller supplies
// this because the sketch has no way to know, from bits alone, which of
// OneTuple/TwoTuple/FiveTuple to build.
type FromBitsFunc func(bits []byte) flowkey.Key

// SketchLearn keeps one Count-Min per bit of the flow key, gated so that
// layer k only counts updates whose k-th bit is set; comparing a cell's
// per-bit layer value against its layer-0 total lets decode infer, bit by
// bit, the identity of the flow(s) dominating that cell (spec.md §4.M).
type SketchLearn struct {
	bits     int
	rows     int
	theta    float64
	fromBits FromBitsFunc
	hasher   flowhash.Hasher
	layers   []*CountMin

	decoded      map[flowkey.Key]uint64
	decodedValid bool
}

// NewSketchLearn takes the total byte budget, row count (typically 1-3),
// the inference threshold theta, the flow-key bit width (8*sizeof(K)), a
// reconstruction function for that key type, and the shared hasher.
func NewSketchLearn(budgetBytes int, rows int, theta float64, keyBits int, fromBits FromBitsFunc, hasher flowhash.Hasher) (*SketchLearn, error) {
	if rows <= 0 {
		return nil, fmt.Errorf("sketchlearn: rows must be > 0, got %d", rows)
	}
	if theta <= 0 || theta >= 1 {
		return nil, fmt.Errorf("sketchlearn: theta must be in (0,1), got %f", theta)
	}
	if keyBits <= 0 || keyBits%8 != 0 {
		return nil, fmt.Errorf("sketchlearn: keyBits must be a positive multiple of 8, got %d", keyBits)
	}
	if fromBits == nil {
		return nil, fmt.Errorf("sketchlearn: fromBits must be non-nil")
	}
	numLayers := keyBits + 1
	perLayer := budgetBytes / numLayers
	layers := make([]*CountMin, numLayers)
	for k := 0; k < numLayers; k++ {
		cm, err := NewCountMin(rows, perLayer, hasher)
		if err != nil {
			return nil, fmt.Errorf("sketchlearn: layer %d: %w", k, err)
		}
		layers[k] = cm
	}
	return &SketchLearn{
		bits:     keyBits,
		rows:     rows,
		theta:    theta,
		fromBits: fromBits,
		hasher:   hasher,
		layers:   layers,
	}, nil
}

func (s *SketchLearn) Update(flow flowkey.Key, delta uint64) {
	if delta == 0 {
		return
	}
	s.decodedValid = false
	s.layers[0].Update(flow, delta)
	raw := flow.Bytes()
	for k := 1; k <= s.bits; k++ {
		if bitAt(raw, k) {
			s.layers[k].Update(flow, delta)
		}
	}
}

// bitAt reports the k-th bit (1-indexed, MSB-first) of b.
func bitAt(b []byte, k int) bool {
	bytePos := (k - 1) / 8
	bitPos := 7 - ((k - 1) % 8)
	return (b[bytePos]>>uint(bitPos))&1 == 1
}

func setBit(b []byte, k int, v bool) {
	bytePos := (k - 1) / 8
	bitPos := uint(7 - ((k - 1) % 8))
	if v {
		b[bytePos] |= 1 << bitPos
	} else {
		b[bytePos] &^= 1 << bitPos
	}
}

func (s *SketchLearn) Decode() map[flowkey.Key]uint64 {
	if s.decodedValid {
		return s.decoded
	}
	cols := s.layers[0].cols
	byteLen := (s.bits + 7) / 8
	out := make(map[flowkey.Key]uint64)
	occupiedCells, residueCells := 0, 0

	for i := 0; i < s.rows; i++ {
		for j := 0; j < cols; j++ {
			c0 := s.layers[0].m.Read(i, j)
			if c0 == 0 {
				continue
			}
			occupiedCells++
			recovered := false
			base := make([]byte, byteLen)
			var uncertain []int
			for k := 1; k <= s.bits; k++ {
				ck := s.layers[k].m.Read(i, j)
				r := float64(ck) / float64(c0)
				switch {
				case r < s.theta:
					// bit is 0, base already zero there
				case (1 - r) < s.theta:
					setBit(base, k, true)
				default:
					uncertain = append(uncertain, k)
				}
			}
			if len(uncertain) > maxUncertainDecodeBits {
				residueCells++
				continue
			}
			combos := 1 << uint(len(uncertain))
			for combo := 0; combo < combos; combo++ {
				buf := append([]byte(nil), base...)
				for bi, k := range uncertain {
					if combo&(1<<uint(bi)) != 0 {
						setBit(buf, k, true)
					}
				}
				candidate := s.fromBits(buf)
				if int(s.hasher.Hash(candidate, uint64(i), uint64(cols))) != j {
					continue // template didn't actually land in this cell
				}
				if _, exists := out[candidate]; exists {
					continue
				}
				if !s.crossValidate(candidate, cols) {
					continue
				}
				out[candidate] = uint64(c0)
				recovered = true
			}
			if !recovered {
				residueCells++
			}
		}
	}

	for flow, count := range out {
		s.subtract(flow, count, cols)
	}

	sketchstat.ObserveDecode(len(out), residueCells, occupiedCells)
	s.decoded = out
	s.decodedValid = true
	return out
}

// crossValidate checks candidate against every other row: the witness
// value each layer reports at the candidate's row-i' cell must be at
// least theta fraction of that cell's total, or the candidate is a
// spurious template artifact rather than a real flow.
func (s *SketchLearn) crossValidate(candidate flowkey.Key, cols int) bool {
	raw := candidate.Bytes()
	for i2 := 0; i2 < s.rows; i2++ {
		j2 := int(s.hasher.Hash(candidate, uint64(i2), uint64(cols)))
		c0 := s.layers[0].m.Read(i2, j2)
		if c0 == 0 {
			return false
		}
		for k := 1; k <= s.bits; k++ {
			ck := s.layers[k].m.Read(i2, j2)
			var witness uint32
			if bitAt(raw, k) {
				witness = ck
			} else {
				if ck > c0 {
					witness = 0
				} else {
					witness = c0 - ck
				}
			}
			if float64(witness) < s.theta*float64(c0) {
				return false
			}
		}
	}
	return true
}

// subtract removes a decoded flow's contribution from every cell it maps
// into across all layers, so a subsequent decode sees only residual
// traffic (spec.md §4.M step 3).
func (s *SketchLearn) subtract(flow flowkey.Key, count uint64, cols int) {
	raw := flow.Bytes()
	c := uint32(count)
	if count > 0xFFFFFFFF {
		c = 0xFFFFFFFF
	}
	for i2 := 0; i2 < s.rows; i2++ {
		j2 := int(s.hasher.Hash(flow, uint64(i2), uint64(cols)))
		cur := s.layers[0].m.Read(i2, j2)
		s.layers[0].m.Set(i2, j2, saturatingSubU32(cur, c))
		for k := 1; k <= s.bits; k++ {
			if bitAt(raw, k) {
				curK := s.layers[k].m.Read(i2, j2)
				s.layers[k].m.Set(i2, j2, saturatingSubU32(curK, c))
			}
		}
	}
}

func saturatingSubU32(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}

func (s *SketchLearn) Query(flow flowkey.Key) uint64 {
	return s.Decode()[flow]
}

func (s *SketchLearn) HasFlow(flow flowkey.Key) bool { return s.Query(flow) > 0 }

func (s *SketchLearn) Clear() {
	for _, l := range s.layers {
		l.Clear()
	}
	s.decoded = nil
	s.decodedValid = false
}

func (s *SketchLearn) Stats() Stats {
	return Stats{Kind: "sketchlearn", Rows: s.rows, Cols: s.layers[0].cols, Capacity: s.rows * s.layers[0].cols * len(s.layers)}
}
