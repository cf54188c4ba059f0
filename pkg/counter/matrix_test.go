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

import (
	"math"
	"testing"
)

func TestMatrixConfigurationErrors(t *testing.T) {
	if _, err := NewMatrix[uint32](0, 4); err == nil {
		t.Fatal("expected error for rows=0")
	}
	if _, err := NewMatrix[uint32](4, 0); err == nil {
		t.Fatal("expected error for cols=0")
	}
}

func TestMatrixZeroInitialized(t *testing.T) {
	m, err := NewMatrix[uint32](4, 8)
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < 4; r++ {
		for c := 0; c < 8; c++ {
			if m.Read(r, c) != 0 {
				t.Fatalf("cell (%d,%d) not zero-initialized", r, c)
			}
		}
	}
}

func TestMatrixUpdateAndRead(t *testing.T) {
	m, _ := NewMatrix[uint32](2, 2)
	m.Update(0, 0, 5)
	m.Update(0, 0, 3)
	if got := m.Read(0, 0); got != 8 {
		t.Fatalf("got %d, want 8", got)
	}
	if got := m.Read(1, 1); got != 0 {
		t.Fatalf("untouched cell got %d, want 0", got)
	}
}

func TestMatrixSaturatesUnsigned(t *testing.T) {
	m, _ := NewMatrix[uint32](1, 1)
	m.Set(0, 0, math.MaxUint32-2)
	m.Update(0, 0, 10)
	if got := m.Read(0, 0); got != math.MaxUint32 {
		t.Fatalf("expected saturation at MaxUint32, got %d", got)
	}
	// Further increments must not wrap.
	m.Update(0, 0, 1)
	if got := m.Read(0, 0); got != math.MaxUint32 {
		t.Fatalf("expected still saturated, got %d", got)
	}
}

func TestMatrixSaturatesSigned(t *testing.T) {
	m, _ := NewMatrix[int32](1, 1)
	m.Set(0, 0, math.MaxInt32-2)
	m.Update(0, 0, 10)
	if got := m.Read(0, 0); got != math.MaxInt32 {
		t.Fatalf("expected saturation at MaxInt32, got %d", got)
	}
	m.Set(0, 0, math.MinInt32+2)
	m.Update(0, 0, -10)
	if got := m.Read(0, 0); got != math.MinInt32 {
		t.Fatalf("expected saturation at MinInt32, got %d", got)
	}
}

func TestMatrixClear(t *testing.T) {
	m, _ := NewMatrix[uint32](3, 3)
	m.Update(1, 1, 42)
	m.Clear()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if m.Read(r, c) != 0 {
				t.Fatalf("cell (%d,%d) not cleared", r, c)
			}
		}
	}
}

func TestStrideIsMultipleOf8(t *testing.T) {
	m32, _ := NewMatrix[uint32](1, 1)
	if s := m32.Stride(); s%8 != 0 {
		t.Fatalf("stride %d not a multiple of 8", s)
	}
}

func TestColsForBudget(t *testing.T) {
	if got := ColsForBudget(4, 1024, 4); got != 64 {
		t.Fatalf("got %d, want 64", got)
	}
	if got := ColsForBudget(1000, 4, 4); got != 1 {
		t.Fatalf("expected clamp to >= 1, got %d", got)
	}
}

func TestUpdateZeroIsNoOp(t *testing.T) {
	m, _ := NewMatrix[uint32](1, 1)
	m.Update(0, 0, 5)
	before := m.Read(0, 0)
	m.Update(0, 0, 0)
	if got := m.Read(0, 0); got != before {
		t.Fatalf("update(0) changed value: %d != %d", got, before)
	}
}

func TestAtomicMatrixSaturates(t *testing.T) {
	m, err := NewAtomicMatrixU32(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	m.Update(0, 0, math.MaxUint32-1)
	m.Update(0, 0, 5)
	if got := m.Read(0, 0); got != math.MaxUint32 {
		t.Fatalf("expected saturation, got %d", got)
	}
}
