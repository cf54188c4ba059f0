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

package sketch

import (
	"testing"

	"flowsketch/pkg/flowkey"
)

func TestSampleAndHoldExactWhileUnderCapacity(t *testing.T) {
	sh, err := NewSampleAndHold(4)
	if err != nil {
		t.Fatal(err)
	}
	flows := []flowkey.Key{
		flowkey.OneTuple{Field: 1},
		flowkey.OneTuple{Field: 2},
		flowkey.OneTuple{Field: 3},
	}
	for _, fl := range flows {
		sh.Update(fl, 5)
	}
	for _, fl := range flows {
		if sh.Query(fl) != 5 {
			t.Fatalf("expected exact count 5, got %d", sh.Query(fl))
		}
	}
	if sh.Evictions() != 0 {
		t.Fatalf("expected no evictions under capacity, got %d", sh.Evictions())
	}
}

func TestSampleAndHoldEvictsSmallest(t *testing.T) {
	sh, _ := NewSampleAndHold(2)
	small := flowkey.OneTuple{Field: 1}
	big := flowkey.OneTuple{Field: 2}
	newcomer := flowkey.OneTuple{Field: 3}
	sh.Update(small, 1)
	sh.Update(big, 100)
	sh.Update(newcomer, 50)

	if sh.HasFlow(small) {
		t.Fatal("expected smallest flow to be evicted")
	}
	if !sh.HasFlow(big) || !sh.HasFlow(newcomer) {
		t.Fatal("expected both surviving flows to remain")
	}
	if sh.Evictions() != 1 {
		t.Fatalf("expected 1 eviction, got %d", sh.Evictions())
	}
}

func TestSampleAndHoldRejectsBelowMinimum(t *testing.T) {
	sh, _ := NewSampleAndHold(2)
	a := flowkey.OneTuple{Field: 1}
	b := flowkey.OneTuple{Field: 2}
	sh.Update(a, 10)
	sh.Update(b, 10)
	tiny := flowkey.OneTuple{Field: 3}
	sh.Update(tiny, 1)
	if sh.HasFlow(tiny) {
		t.Fatal("expected tiny flow to be rejected, not displacing an equal incumbent")
	}
	if sh.Evictions() != 0 {
		t.Fatalf("expected no eviction when delta does not exceed minimum, got %d", sh.Evictions())
	}
}

func TestSampleAndHoldClear(t *testing.T) {
	sh, _ := NewSampleAndHold(2)
	fl := flowkey.OneTuple{Field: 1}
	sh.Update(fl, 9)
	sh.Clear()
	if sh.HasFlow(fl) {
		t.Fatal("expected flow gone after clear")
	}
	if sh.Evictions() != 0 {
		t.Fatal("expected eviction counter reset after clear")
	}
}

func TestSampleAndHoldConfigError(t *testing.T) {
	if _, err := NewSampleAndHold(0); err == nil {
		t.Fatal("expected error for capacity=0")
	}
}
