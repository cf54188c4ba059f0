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

package bloom

import (
	"testing"

	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

func TestBloomNoFalseNegatives(t *testing.T) {
	f, err := New(4096, 4, flowhash.Default())
	if err != nil {
		t.Fatal(err)
	}
	flows := []flowkey.Key{
		flowkey.TwoTuple{Src: 1, Dst: 2},
		flowkey.TwoTuple{Src: 3, Dst: 4},
		flowkey.TwoTuple{Src: 5, Dst: 6},
	}
	for _, fl := range flows {
		f.Update(fl)
	}
	for _, fl := range flows {
		if !f.Query(fl) {
			t.Fatalf("false negative for %v", fl)
		}
	}
}

func TestBloomConfigErrors(t *testing.T) {
	if _, err := New(0, 4, flowhash.Default()); err == nil {
		t.Fatal("expected error for n=0")
	}
	if _, err := New(100, 0, flowhash.Default()); err == nil {
		t.Fatal("expected error for k=0")
	}
}

func TestBloomClear(t *testing.T) {
	f, _ := New(1024, 3, flowhash.Default())
	fl := flowkey.TwoTuple{Src: 9, Dst: 9}
	f.Update(fl)
	f.Clear()
	if f.Query(fl) {
		t.Fatal("expected query to report absent after clear")
	}
}

func TestBloomUpdateReportsNew(t *testing.T) {
	f, _ := New(4096, 4, flowhash.Default())
	fl := flowkey.TwoTuple{Src: 11, Dst: 22}
	if !f.Update(fl) {
		t.Fatal("first update should report new")
	}
	if f.Update(fl) {
		t.Fatal("second update of same flow should not report new")
	}
}

func TestAtomicBloomMatchesContract(t *testing.T) {
	f, err := NewAtomic(4096, 4, flowhash.Default())
	if err != nil {
		t.Fatal(err)
	}
	fl := flowkey.TwoTuple{Src: 1, Dst: 1}
	if !f.Update(fl) {
		t.Fatal("expected first update to report new")
	}
	if !f.Query(fl) {
		t.Fatal("expected query true after update")
	}
	f.Clear()
	if f.Query(fl) {
		t.Fatal("expected query false after clear")
	}
}
