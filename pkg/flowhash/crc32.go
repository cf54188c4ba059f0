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
	"hash/crc32"

	"flowsketch/pkg/flowkey"
)

// CRC32Hasher is the default hash family: cheapest per-packet cost, using
// the Castagnoli polynomial (hardware-accelerated on amd64/arm64 via the
// stdlib's runtime dispatch).
type CRC32Hasher struct{}

var crc32Table = crc32.MakeTable(crc32.Castagnoli)

func NewCRC32Hasher() CRC32Hasher { return CRC32Hasher{} }

func (CRC32Hasher) Hash(k flowkey.Key, seed uint64, mod uint64) uint64 {
	sum := crc32.Checksum(image(k, seed), crc32Table)
	return reduce(uint64(sum), mod)
}

func (CRC32Hasher) Clone() Hasher { return CRC32Hasher{} }

func (CRC32Hasher) Name() string { return "crc32c" }
