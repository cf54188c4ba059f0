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

package flowhash

import (
	"testing"

	"flowsketch/pkg/flowkey"
)

func TestHashContract(t *testing.T) {
	k := flowkey.TwoTuple{Src: 0xC0A80101, Dst: 0x0A000001}
	for _, h := range All() {
		t.Run(h.Name(), func(t *testing.T) {
			const mod = 997
			v1 := h.Hash(k, 3, mod)
			v2 := h.Hash(k, 3, mod)
			if v1 != v2 {
				t.Fatalf("%s not deterministic: %d != %d", h.Name(), v1, v2)
			}
			if v1 >= mod {
				t.Fatalf("%s out of range: %d >= %d", h.Name(), v1, mod)
			}
			clone := h.Clone()
			if got := clone.Hash(k, 3, mod); got != v1 {
				t.Fatalf("%s clone diverged: %d != %d", h.Name(), got, v1)
			}
		})
	}
}

func TestHashIndependentAcrossSeeds(t *testing.T) {
	k := flowkey.FiveTuple{Src: 1, Dst: 2, SrcPort: 80, DstPort: 443, Proto: 6}
	for _, h := range All() {
		a := h.Hash(k, 0, 1<<20)
		b := h.Hash(k, 1, 1<<20)
		if a == b {
			// Not impossible, but vanishingly unlikely for a real hash family
			// over a 20-bit modulus; flags a broken seed mix if it ever fires.
			t.Errorf("%s: seed 0 and seed 1 collided at modulus 2^20 (a=%d)", h.Name(), a)
		}
	}
}

func TestHashUniformityOverModulus(t *testing.T) {
	// Loose sanity check: across many distinct keys, bucket occupancy should
	// not be wildly skewed for a well-behaved hash family.
	const mod = 64
	const n = 20000
	for _, h := range All() {
		counts := make([]int, mod)
		for i := uint32(0); i < n; i++ {
			k := flowkey.OneTuple{Field: i * 2654435761}
			counts[h.Hash(k, 7, mod)]++
		}
		expect := float64(n) / float64(mod)
		for bucket, c := range counts {
			if float64(c) < expect*0.5 || float64(c) > expect*1.5 {
				t.Errorf("%s: bucket %d occupancy %d far from expected %.1f", h.Name(), bucket, c, expect)
			}
		}
	}
}

func TestZeroKeyIsOrdinary(t *testing.T) {
	zero := flowkey.TwoTuple{}
	h := Default()
	if !zero.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	// The hash family itself applies no special-casing to the zero key.
	_ = h.Hash(zero, 0, 1000)
}
