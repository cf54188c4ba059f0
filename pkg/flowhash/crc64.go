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
	"hash/crc64"

	"flowsketch/pkg/flowkey"
)

// CRC64Hasher uses the ISO polynomial over the full 64-bit width, giving a
// larger output space than CRC32 at a modest extra cost.
type CRC64Hasher struct{}

var crc64Table = crc64.MakeTable(crc64.ISO)

func NewCRC64Hasher() CRC64Hasher { return CRC64Hasher{} }

func (CRC64Hasher) Hash(k flowkey.Key, seed uint64, mod uint64) uint64 {
	sum := crc64.Checksum(image(k, seed), crc64Table)
	return reduce(sum, mod)
}

func (CRC64Hasher) Clone() Hasher { return CRC64Hasher{} }

func (CRC64Hasher) Name() string { return "crc64iso" }
