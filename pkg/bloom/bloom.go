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

// Package bloom implements the presence filter of spec.md §4.D: k
// independent hashes over an n-bit vector, no false negatives, tunable false
// positive rate.
package bloom

import (
	"fmt"

	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

// Filter is the user-space, single-threaded bloom filter.
type Filter struct {
	bits   []uint64 // word-packed bit vector
	n      int      // bit count
	k      int      // hash count
	hasher flowhash.Hasher
}

// New constructs a filter with n bits and k hash functions. n <= 0 or k <= 0
// is a configuration error.
func New(n, k int, hasher flowhash.Hasher) (*Filter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("bloom: n must be > 0, got %d", n)
	}
	if k <= 0 {
		return nil, fmt.Errorf("bloom: k must be > 0, got %d", k)
	}
	words := (n + 63) / 64
	return &Filter{bits: make([]uint64, words), n: n, k: k, hasher: hasher}, nil
}

func (f *Filter) positions(flow flowkey.Key) []uint64 {
	pos := make([]uint64, f.k)
	for i := 0; i < f.k; i++ {
		pos[i] = f.hasher.Hash(flow, uint64(i), uint64(f.n))
	}
	return pos
}

// Update sets the k bits for flow. Returns true iff at least one bit was
// previously unset (i.e. the flow was new to the filter).
func (f *Filter) Update(flow flowkey.Key) bool {
	wasNew := false
	for _, p := range f.positions(flow) {
		word, bit := p/64, p%64
		mask := uint64(1) << bit
		if f.bits[word]&mask == 0 {
			wasNew = true
			f.bits[word] |= mask
		}
	}
	return wasNew
}

// Query reports whether every one of the k bits for flow is set. No false
// negatives: if Update(flow) was ever called, Query(flow) is always true.
func (f *Filter) Query(flow flowkey.Key) bool {
	for _, p := range f.positions(flow) {
		word, bit := p/64, p%64
		if f.bits[word]&(uint64(1)<<bit) == 0 {
			return false
		}
	}
	return true
}

// Clear zeros the bit vector.
func (f *Filter) Clear() {
	for i := range f.bits {
		f.bits[i] = 0
	}
}

// Bits reports the configured bit count.
func (f *Filter) Bits() int { return f.n }

// HashCount reports the configured number of hash functions.
func (f *Filter) HashCount() int { return f.k }
