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

// Package seedtable provides the frozen sequence of seed primes shared by
// every hash family implementation in pkg/flowhash. The table is generated
// once, deterministically, by a sieve — not drawn from any RNG — so that
// Seed(s) returns the same prime on every process and every platform.
package seedtable

import "sync"

// Size is the number of primes in the table. It comfortably exceeds the
// ~10,000 entries the hash family contract requires.
const Size = 16384

var (
	once  sync.Once
	table [Size]uint64
)

// Seed resolves seed index s to its prime, wrapping modulo Size.
func Seed(s uint64) uint64 {
	once.Do(build)
	return table[s%Size]
}

// build runs a simple sieve of Eratosthenes over an upper bound known to
// contain at least Size primes, then takes the first Size of them.
func build() {
	// The Size-th prime is bounded above by n*(ln n + ln ln n) for n >= 6;
	// 200,000 is a safe, generous ceiling for Size == 16384.
	const upper = 200_000
	sieve := make([]bool, upper+1)
	count := 0
	for i := 2; i <= upper && count < Size; i++ {
		if sieve[i] {
			continue
		}
		table[count] = uint64(i)
		count++
		for j := i * i; j <= upper; j += i {
			sieve[j] = true
		}
	}
	if count < Size {
		// Defensive: the static bound above should always hold for Size ==
		// 16384. If it does not (Size was changed without updating upper),
		// fail loudly at first use rather than silently truncate the table.
		panic("seedtable: sieve upper bound too small for requested Size")
	}
}
