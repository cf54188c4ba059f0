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

// Package counter provides the row-major integer matrix every sketch engine
// is built on, plus the double-buffered snapshot protocol that separates a
// kernel fast-path writer from a user-space reader.
package counter

import "fmt"

// Cell is the set of counter widths a Matrix may hold. Overflow saturates to
// the representable bound rather than wrapping.
type Cell interface {
	~uint32 | ~int32
}

// Matrix is a fixed-shape, row-major 2-D array of saturating counters. It is
// a single-threaded value: concurrent updates require external
// synchronization (see AtomicMatrixU32 for the kernel-regime uint32 variant).
type Matrix[T Cell] struct {
	rows, cols int
	cells      []T
}

// NewMatrix allocates a rows x cols matrix with every cell initialized to 0.
// Construction with rows <= 0 or cols <= 0 is a configuration error.
func NewMatrix[T Cell](rows, cols int) (*Matrix[T], error) {
	if rows <= 0 {
		return nil, fmt.Errorf("counter: rows must be > 0, got %d", rows)
	}
	if cols <= 0 {
		return nil, fmt.Errorf("counter: cols must be > 0, got %d", cols)
	}
	return &Matrix[T]{rows: rows, cols: cols, cells: make([]T, rows*cols)}, nil
}

// ColsForBudget derives the column count from a total byte budget, per
// spec.md §4.C: cols = floor(budget / rows / sizeof(T)), clamped to >= 1.
func ColsForBudget(rows int, budgetBytes int, cellSize int) int {
	if rows <= 0 || cellSize <= 0 {
		return 1
	}
	cols := budgetBytes / rows / cellSize
	if cols < 1 {
		cols = 1
	}
	return cols
}

func (m *Matrix[T]) Rows() int { return m.rows }
func (m *Matrix[T]) Cols() int { return m.cols }

// Stride returns the wire-layout byte footprint per cell: a multiple of 8
// bytes, independent of sizeof(T), per spec.md §4.C/§6.
func (m *Matrix[T]) Stride() int {
	var zero T
	size := cellByteSize(zero)
	return (size + 7) &^ 7
}

func cellByteSize(v interface{}) int {
	switch v.(type) {
	case uint32, int32:
		return 4
	default:
		return 4
	}
}

func (m *Matrix[T]) index(r, c int) int {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		panic(fmt.Sprintf("counter: index (%d,%d) out of bounds for %dx%d matrix", r, c, m.rows, m.cols))
	}
	return r*m.cols + c
}

// Read returns the current value of cell (r, c).
func (m *Matrix[T]) Read(r, c int) T {
	return m.cells[m.index(r, c)]
}

// Update adds delta to cell (r, c), saturating at T's representable bound
// rather than wrapping on overflow or underflow.
func (m *Matrix[T]) Update(r, c int, delta T) {
	i := m.index(r, c)
	m.cells[i] = saturatingAdd(m.cells[i], delta)
}

// Set overwrites cell (r, c) directly (used by decode/peeling algorithms
// that need to zero or rewrite a cell rather than accumulate into it).
func (m *Matrix[T]) Set(r, c int, v T) {
	m.cells[m.index(r, c)] = v
}

// Clear resets every cell to zero.
func (m *Matrix[T]) Clear() {
	for i := range m.cells {
		m.cells[i] = 0
	}
}

// CopyFrom overwrites this matrix's cells with src's. Both matrices must
// share the same shape.
func (m *Matrix[T]) CopyFrom(src *Matrix[T]) {
	if m.rows != src.rows || m.cols != src.cols {
		panic("counter: CopyFrom shape mismatch")
	}
	copy(m.cells, src.cells)
}

// saturatingAdd clamps to the representable bound of T on overflow/underflow
// rather than wrapping, per spec.md §3's counter-matrix invariant.
func saturatingAdd[T Cell](a, delta T) T {
	switch any(a).(type) {
	case uint32:
		av, dv := uint32(a), uint32(delta)
		sum := av + dv
		if dv > 0 && sum < av {
			sum = ^uint32(0)
		}
		if dv < 0 && sum > av {
			return T(0)
		}
		return T(sum)
	case int32:
		av, dv := int32(a), int32(delta)
		sum := av + dv
		// Overflow/underflow detection via sign analysis (two's complement).
		if dv > 0 && sum < av {
			sum = 2147483647
		}
		if dv < 0 && sum > av {
			sum = -2147483648
		}
		return T(sum)
	default:
		return a + delta
	}
}
