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
	"math/rand/v2"

	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

// univmonBackend is the shared surface a tower layer needs, regardless of
// whether it is backed by CountSketch or SampleAndHold.
type univmonBackend interface {
	Update(flow flowkey.Key, delta uint64)
	Query(flow flowkey.Key) uint64
	HasFlow(flow flowkey.Key) bool
	Clear()
}

// UnivMonBackend selects the per-layer sub-sketch kind.
type UnivMonBackend int

const (
	UnivMonCountSketch UnivMonBackend = iota
	UnivMonSampleAndHold
)

// countSketchInternalRows is the fixed internal row count a CountSketch
// layer uses regardless of tower depth (spec.md §4.L).
const countSketchInternalRows = 8

// UnivMon layers sub-sketches so that layer 0 sees every packet and an
// update reaches layer ℓ ≥ 1 only if layers 1..ℓ each accepted it, layer m
// with probability 2⁻ᵐ (so layer ℓ sees a 2^-(ℓ(ℓ+1)/2) sample). Query
// scales layer ℓ's estimate by 2^ℓ and returns the max over layers
// (spec.md §4.L).
type UnivMon struct {
	layers []univmonBackend
}

// NewUnivMon takes the layer count, total byte budget, backend kind, and
// the hasher forwarded to whichever backend each layer uses.
func NewUnivMon(layerCount int, budgetBytes int, backend UnivMonBackend, hasher flowhash.Hasher) (*UnivMon, error) {
	if layerCount <= 0 {
		return nil, fmt.Errorf("univmon: layerCount must be > 0, got %d", layerCount)
	}
	perLayer := budgetBytes / layerCount
	remainder := budgetBytes - perLayer*layerCount

	layers := make([]univmonBackend, layerCount)
	for l := 0; l < layerCount; l++ {
		budget := perLayer
		if l < remainder {
			budget++
		}
		var (
			b   univmonBackend
			err error
		)
		switch backend {
		case UnivMonCountSketch:
			b, err = NewCountSketch(countSketchInternalRows, budget, hasher, hasher.Clone())
		case UnivMonSampleAndHold:
			const saHBucketSize = 16
			cap := budget / saHBucketSize
			if cap <= 0 {
				cap = 1
			}
			b, err = NewSampleAndHold(cap)
		default:
			return nil, fmt.Errorf("univmon: unknown backend %d", backend)
		}
		if err != nil {
			return nil, fmt.Errorf("univmon: layer %d: %w", l, err)
		}
		layers[l] = b
	}
	return &UnivMon{layers: layers}, nil
}

func (s *UnivMon) Update(flow flowkey.Key, delta uint64) {
	for l := 0; l < len(s.layers); l++ {
		if l > 0 && !sampleAccept(l) {
			break // short-circuit: deeper layers are strictly rarer under independence
		}
		s.layers[l].Update(flow, delta)
	}
}

// sampleAccept reports whether an update at layer l (l >= 1) is accepted,
// with probability 2^-l.
func sampleAccept(l int) bool {
	return rand.Float64() < 1.0/float64(uint64(1)<<uint(l))
}

func (s *UnivMon) Query(flow flowkey.Key) uint64 {
	var best uint64
	for l, layer := range s.layers {
		if !layer.HasFlow(flow) {
			continue
		}
		est := layer.Query(flow)
		if est == 0 {
			continue
		}
		scaled := saturatingShiftLeft(est, uint(l))
		if scaled > best {
			best = scaled
		}
	}
	return best
}

func saturatingShiftLeft(v uint64, shift uint) uint64 {
	if shift == 0 {
		return v
	}
	if shift >= 64 {
		return ^uint64(0)
	}
	if v > (^uint64(0))>>shift {
		return ^uint64(0)
	}
	return v << shift
}

func (s *UnivMon) HasFlow(flow flowkey.Key) bool { return s.Query(flow) > 0 }

func (s *UnivMon) Clear() {
	for _, l := range s.layers {
		l.Clear()
	}
}

func (s *UnivMon) Decode() map[flowkey.Key]uint64 {
	out := make(map[flowkey.Key]uint64)
	for _, l := range s.layers {
		if d, ok := l.(*SampleAndHold); ok {
			for k := range d.Decode() {
				if v := s.Query(k); v > 0 {
					out[k] = v
				}
			}
		}
	}
	return out
}

func (s *UnivMon) Stats() Stats {
	return Stats{Kind: "univmon", Rows: len(s.layers)}
}
