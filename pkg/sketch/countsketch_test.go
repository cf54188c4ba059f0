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

	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

func TestCountSketchBasic(t *testing.T) {
	cs, err := NewCountSketch(5, 4096, flowhash.Default(), flowhash.XXHasher{})
	if err != nil {
		t.Fatal(err)
	}
	fl := flowkey.TwoTuple{Src: 1, Dst: 2}
	cs.Update(fl, 10)
	if got := cs.Query(fl); got == 0 {
		t.Fatalf("expected non-zero estimate after update, got %d", got)
	}
}

func TestCountSketchApproximatesTrueCount(t *testing.T) {
	cs, _ := NewCountSketch(7, 2048, flowhash.Default(), flowhash.XXHasher{})
	ideal := NewIdeal()
	flows := make([]flowkey.Key, 30)
	for i := range flows {
		flows[i] = flowkey.TwoTuple{Src: uint32(i), Dst: uint32(i * 3)}
	}
	for round := 0; round < 15; round++ {
		for i, fl := range flows {
			d := uint64(i%4 + 1)
			cs.Update(fl, d)
			ideal.Update(fl, d)
		}
	}
	var totalErr, totalTrue float64
	for _, fl := range flows {
		est := float64(cs.Query(fl))
		true_ := float64(ideal.Query(fl))
		diff := est - true_
		if diff < 0 {
			diff = -diff
		}
		totalErr += diff
		totalTrue += true_
	}
	if totalErr > totalTrue {
		t.Fatalf("aggregate error too large: err=%f true=%f", totalErr, totalTrue)
	}
}

func TestCountSketchConfigErrors(t *testing.T) {
	if _, err := NewCountSketch(0, 256, flowhash.Default(), flowhash.XXHasher{}); err == nil {
		t.Fatal("expected error for rows=0")
	}
	if _, err := NewCountSketch(3, 256, nil, flowhash.XXHasher{}); err == nil {
		t.Fatal("expected error for nil hasher")
	}
}

func TestCountSketchClear(t *testing.T) {
	cs, _ := NewCountSketch(5, 512, flowhash.Default(), flowhash.XXHasher{})
	fl := flowkey.OneTuple{Field: 1}
	cs.Update(fl, 20)
	cs.Clear()
	if cs.Query(fl) != 0 {
		t.Fatal("expected zero estimate after clear")
	}
}
