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

// Default returns the cheapest interchangeable hash family (CRC32C), per
// spec.md §4.B's guidance that CRC32 is the default for per-packet cost.
func Default() Hasher { return CRC32Hasher{} }

// All of the interchangeable implementations, for tests and benchmarking
// that need to exercise every family against the same contract.
func All() []Hasher {
	return []Hasher{
		CRC32Hasher{},
		CRC64Hasher{},
		XXHasher{},
		MurmurHasher{},
		SpookyHasher{},
	}
}
