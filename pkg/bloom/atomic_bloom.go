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

package bloom

import (
	"fmt"
	"sync/atomic"

	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

// AtomicFilter is the kernel-regime variant: bits are packed into 32-bit
// words and set with atomic OR, so concurrent updates from many CPUs never
// lose a bit (spec.md §4.D).
type AtomicFilter struct {
	words  []atomic.Uint32
	n      int
	k      int
	hasher flowhash.Hasher
}

func NewAtomic(n, k int, hasher flowhash.Hasher) (*AtomicFilter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("bloom: n must be > 0, got %d", n)
	}
	if k <= 0 {
		return nil, fmt.Errorf("bloom: k must be > 0, got %d", k)
	}
	words := (n + 31) / 32
	return &AtomicFilter{words: make([]atomic.Uint32, words), n: n, k: k, hasher: hasher}, nil
}

// Update sets the k bits for flow using atomic OR, returning true iff at
// least one bit flipped from unset to set.
func (f *AtomicFilter) Update(flow flowkey.Key) bool {
	wasNew := false
	for i := 0; i < f.k; i++ {
		p := f.hasher.Hash(flow, uint64(i), uint64(f.n))
		word, bit := p/32, p%32
		mask := uint32(1) << bit
		cell := &f.words[word]
		for {
			old := cell.Load()
			if old&mask != 0 {
				break // already set, nothing to flip
			}
			if cell.CompareAndSwap(old, old|mask) {
				wasNew = true
				break
			}
		}
	}
	return wasNew
}

func (f *AtomicFilter) Query(flow flowkey.Key) bool {
	for i := 0; i < f.k; i++ {
		p := f.hasher.Hash(flow, uint64(i), uint64(f.n))
		word, bit := p/32, p%32
		if f.words[word].Load()&(uint32(1)<<bit) == 0 {
			return false
		}
	}
	return true
}

func (f *AtomicFilter) Clear() {
	for i := range f.words {
		f.words[i].Store(0)
	}
}
