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
	"github.com/cespare/xxhash/v2"

	"flowsketch/pkg/flowkey"
)

// XXHasher uses xxhash64, a fast non-cryptographic hash with good avalanche
// properties; a good choice when CRC's linear structure is a concern for a
// particular row/column split.
type XXHasher struct{}

func NewXXHasher() XXHasher { return XXHasher{} }

func (XXHasher) Hash(k flowkey.Key, seed uint64, mod uint64) uint64 {
	return reduce(xxhash.Sum64(image(k, seed)), mod)
}

func (XXHasher) Clone() Hasher { return XXHasher{} }

func (XXHasher) Name() string { return "xxhash64" }
