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

package counter

import "sync/atomic"

// DoubleBuffer implements the snapshot protocol of spec.md §4.C/§4.N: two
// sibling matrices share a shape; a single active-index selector directs
// the writer, and Swap atomically flips it, returning the index that just
// became inactive (the reader's new view). The reader never locks — it
// relies entirely on the swap contract to avoid observing a partial write.
type DoubleBuffer[T Cell] struct {
	buffers [2]*Matrix[T]
	active  atomic.Uint32 // 0 or 1: index the writer currently targets
}

// NewDoubleBuffer allocates both sibling matrices with the given shape.
// Buffer 0 starts active (the writer's target); buffer 1 starts as the
// reader's (all-zero) view.
func NewDoubleBuffer[T Cell](rows, cols int) (*DoubleBuffer[T], error) {
	a, err := NewMatrix[T](rows, cols)
	if err != nil {
		return nil, err
	}
	b, err := NewMatrix[T](rows, cols)
	if err != nil {
		return nil, err
	}
	db := &DoubleBuffer[T]{buffers: [2]*Matrix[T]{a, b}}
	db.active.Store(0)
	return db, nil
}

// Writer returns the matrix the writer should mutate right now. Only the
// writer may call this; it must not be called concurrently with Swap in a
// way that observes a torn selector (the atomic load below is the only
// synchronization point, matching the single-writer assumption of spec.md
// §4.C).
func (db *DoubleBuffer[T]) Writer() *Matrix[T] {
	return db.buffers[db.active.Load()]
}

// Reader returns the matrix the reader should query right now: always the
// buffer the writer is NOT currently targeting.
func (db *DoubleBuffer[T]) Reader() *Matrix[T] {
	return db.buffers[1-db.active.Load()]
}

// Swap atomically flips the active selector and returns the index that just
// became inactive (the buffer the reader should now use). The caller is
// responsible for clearing that buffer before it is selected active again,
// per spec.md §4.C's invariant that a swapped-out buffer must be
// re-initialized before reuse.
func (db *DoubleBuffer[T]) Swap() uint32 {
	for {
		old := db.active.Load()
		next := 1 - old
		if db.active.CompareAndSwap(old, next) {
			return old // the buffer that was active, now inactive
		}
	}
}

// Buffer returns the matrix at the given index (0 or 1) directly, for
// callers that track the inactive index themselves (e.g. to Clear it before
// the next swap selects it active again).
func (db *DoubleBuffer[T]) Buffer(index uint32) *Matrix[T] {
	return db.buffers[index&1]
}

// ActiveIndex reports which buffer the writer currently targets.
func (db *DoubleBuffer[T]) ActiveIndex() uint32 {
	return db.active.Load()
}
