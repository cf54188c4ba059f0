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
	"encoding/binary"

	"flowsketch/pkg/flowkey"
)

// SpookyHasher is a 64-bit hash built from the ShortMix and ShortEnd rounds
// of the public domain SpookyHash v2 algorithm (Bob Jenkins), applied to the
// (key || seed) input (at most 24 bytes for a flow key's byte view plus one
// seed). The final partial block is zero-padded to 32 bytes with its length
// in the last byte, which is not how SpookyHash v2's short path finishes, so
// outputs differ from reference SpookyHash64 values.
type SpookyHasher struct{}

func NewSpookyHasher() SpookyHasher { return SpookyHasher{} }

const spookyConst = 0xdeadbeefdeadbeef

func spookyShortMix(h0, h1, h2, h3 uint64) (uint64, uint64, uint64, uint64) {
	h2 = murmurRotl64(h2, 50)
	h2 += h3
	h0 ^= h2
	h3 = murmurRotl64(h3, 52)
	h3 += h0
	h1 ^= h3
	h0 = murmurRotl64(h0, 54)
	h0 += h1
	h2 ^= h0
	h1 = murmurRotl64(h1, 23)
	h1 += h2
	h3 ^= h1
	h2 = murmurRotl64(h2, 33)
	h2 += h3
	h0 ^= h2
	h3 = murmurRotl64(h3, 26)
	h3 += h0
	h1 ^= h3
	h0 = murmurRotl64(h0, 58)
	h0 += h1
	h2 ^= h0
	h1 = murmurRotl64(h1, 22)
	h1 += h2
	h3 ^= h1
	return h0, h1, h2, h3
}

func spookyShortEnd(h0, h1, h2, h3 uint64) (uint64, uint64, uint64, uint64) {
	h3 ^= h2
	h2 = murmurRotl64(h2, 15)
	h3 += h2
	h0 ^= h3
	h3 = murmurRotl64(h3, 52)
	h0 += h3
	h1 ^= h0
	h0 = murmurRotl64(h0, 26)
	h1 += h0
	h2 ^= h1
	h1 = murmurRotl64(h1, 51)
	h2 += h1
	h3 ^= h2
	h2 = murmurRotl64(h2, 28)
	h3 += h2
	h0 ^= h3
	h3 = murmurRotl64(h3, 9)
	h0 += h3
	h1 ^= h0
	h0 = murmurRotl64(h0, 47)
	h1 += h0
	h2 ^= h1
	h1 = murmurRotl64(h1, 54)
	h2 += h1
	h3 ^= h2
	h2 = murmurRotl64(h2, 32)
	h3 += h2
	h0 ^= h3
	h3 = murmurRotl64(h3, 25)
	h0 += h3
	h1 ^= h0
	h0 = murmurRotl64(h0, 63)
	h1 += h0
	return h0, h1, h2, h3
}

// spookyHash64 hashes data with seed using the Spooky-style rounds described
// on SpookyHasher; whole 32-byte blocks go through spookyShortMix.
func spookyHash64(data []byte, seed uint64) uint64 {
	length := len(data)
	h0, h1 := seed, seed
	h2, h3 := uint64(spookyConst), uint64(spookyConst)

	remainder := length % 32
	end := length - remainder
	for i := 0; i < end; i += 32 {
		h2 += binary.LittleEndian.Uint64(data[i : i+8])
		h3 += binary.LittleEndian.Uint64(data[i+8 : i+16])
		h0, h1, h2, h3 = spookyShortMix(h0, h1, h2, h3)
		h0 += binary.LittleEndian.Uint64(data[i+16 : i+24])
		h1 += binary.LittleEndian.Uint64(data[i+24 : i+32])
	}

	tail := data[end:]
	var buf [32]byte
	copy(buf[:], tail)
	buf[31] = byte(remainder)

	h2 += binary.LittleEndian.Uint64(buf[0:8])
	h3 += binary.LittleEndian.Uint64(buf[8:16])
	h0 += binary.LittleEndian.Uint64(buf[16:24])
	h1 += binary.LittleEndian.Uint64(buf[24:32])

	h0, h1, _, _ = spookyShortEnd(h0, h1, h2, h3)
	return h0
}

func (SpookyHasher) Hash(k flowkey.Key, seed uint64, mod uint64) uint64 {
	buf := image(k, seed)
	return reduce(spookyHash64(buf, seed), mod)
}

func (SpookyHasher) Clone() Hasher { return SpookyHasher{} }

func (SpookyHasher) Name() string { return "spookyv2_64" }
