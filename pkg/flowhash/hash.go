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

// Package flowhash provides the seeded hash family H(k, s, m) -> [0, m) used
// by every sketch engine. Implementations are pure, deterministic, and
// independent across distinct seed indices for analysis purposes; they are
// dependency-injected into sketches at construction and cloned into any
// sub-components that need their own instance.
package flowhash

import (
	"encoding/binary"

	"flowsketch/internal/seedtable"
	"flowsketch/pkg/flowkey"
)

// Hasher computes H(k, s, m). Implementations must be safe for concurrent
// use by multiple goroutines provided they hold no mutable state (all
// implementations here are stateless and satisfy this trivially).
type Hasher interface {
	// Hash returns a value in [0, mod) for the given key and seed index.
	// mod must be >= 1.
	Hash(k flowkey.Key, seed uint64, mod uint64) uint64
	// Clone returns an independent instance of the same hash family,
	// for injection into a sub-component that must own its own hasher.
	Clone() Hasher
	// Name identifies the algorithm for diagnostics.
	Name() string
}

// image builds the deterministic, padding-free input buffer: the key's byte
// view, zero-padded to an 8-byte boundary, followed by the resolved seed
// prime as 8 bytes host order.
func image(k flowkey.Key, seed uint64) []byte {
	kb := k.Bytes()
	padded := (len(kb) + 7) &^ 7
	buf := make([]byte, padded+8)
	copy(buf, kb)
	prime := seedtable.Seed(seed)
	binary.LittleEndian.PutUint64(buf[padded:], prime)
	return buf
}

func reduce(h uint64, mod uint64) uint64 {
	if mod == 0 {
		mod = 1
	}
	return h % mod
}
