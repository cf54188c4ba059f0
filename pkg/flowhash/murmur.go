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

// MurmurHasher implements MurmurHash3_x64_128, folded to 64 bits by XORing
// the two 64-bit halves — the same fold the original C++ library applies to
// its 128-bit result (see original_source/src/HashFunction.cpp). This is a
// plain port of the public-domain algorithm (Austin Appleby); no pack repo
// vendors a murmur3 package, and spec.md explicitly allows the concrete hash
// implementation to be replaced so long as the H(k,s,m) contract holds.
type MurmurHasher struct{}

func NewMurmurHasher() MurmurHasher { return MurmurHasher{} }

const (
	murmurC1 = 0x87c37b91114253d5
	murmurC2 = 0x4cf5ad432745937f
)

func murmurRotl64(x uint64, r uint) uint64 {
	return (x << r) | (x >> (64 - r))
}

func murmurFmix64(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}

// murmur3x64_128 computes the two 64-bit output words for the given seed.
func murmur3x64_128(data []byte, seed uint32) (h1, h2 uint64) {
	length := len(data)
	h1, h2 = uint64(seed), uint64(seed)

	nblocks := length / 16
	for i := 0; i < nblocks; i++ {
		block := data[i*16 : i*16+16]
		k1 := binary.LittleEndian.Uint64(block[0:8])
		k2 := binary.LittleEndian.Uint64(block[8:16])

		k1 *= murmurC1
		k1 = murmurRotl64(k1, 31)
		k1 *= murmurC2
		h1 ^= k1

		h1 = murmurRotl64(h1, 27)
		h1 += h2
		h1 = h1*5 + 0x52dce729

		k2 *= murmurC2
		k2 = murmurRotl64(k2, 33)
		k2 *= murmurC1
		h2 ^= k2

		h2 = murmurRotl64(h2, 31)
		h2 += h1
		h2 = h2*5 + 0x38495ab5
	}

	tail := data[nblocks*16:]
	var k1, k2 uint64
	switch len(tail) {
	case 15:
		k2 ^= uint64(tail[14]) << 48
		fallthrough
	case 14:
		k2 ^= uint64(tail[13]) << 40
		fallthrough
	case 13:
		k2 ^= uint64(tail[12]) << 32
		fallthrough
	case 12:
		k2 ^= uint64(tail[11]) << 24
		fallthrough
	case 11:
		k2 ^= uint64(tail[10]) << 16
		fallthrough
	case 10:
		k2 ^= uint64(tail[9]) << 8
		fallthrough
	case 9:
		k2 ^= uint64(tail[8])
		k2 *= murmurC2
		k2 = murmurRotl64(k2, 33)
		k2 *= murmurC1
		h2 ^= k2
		fallthrough
	case 8:
		k1 ^= uint64(tail[7]) << 56
		fallthrough
	case 7:
		k1 ^= uint64(tail[6]) << 48
		fallthrough
	case 6:
		k1 ^= uint64(tail[5]) << 40
		fallthrough
	case 5:
		k1 ^= uint64(tail[4]) << 32
		fallthrough
	case 4:
		k1 ^= uint64(tail[3]) << 24
		fallthrough
	case 3:
		k1 ^= uint64(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint64(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint64(tail[0])
		k1 *= murmurC1
		k1 = murmurRotl64(k1, 31)
		k1 *= murmurC2
		h1 ^= k1
	}

	h1 ^= uint64(length)
	h2 ^= uint64(length)

	h1 += h2
	h2 += h1

	h1 = murmurFmix64(h1)
	h2 = murmurFmix64(h2)

	h1 += h2
	h2 += h1
	return h1, h2
}

func (MurmurHasher) Hash(k flowkey.Key, seed uint64, mod uint64) uint64 {
	buf := image(k, seed)
	h1, h2 := murmur3x64_128(buf, uint32(seed))
	return reduce(h1^h2, mod)
}

func (MurmurHasher) Clone() Hasher { return MurmurHasher{} }

func (MurmurHasher) Name() string { return "murmur3x64_128" }
