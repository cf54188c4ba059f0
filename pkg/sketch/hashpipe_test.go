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

func TestHashPipeHeavyFlowSurvives(t *testing.T) {
	hp, err := NewHashPipe(4096, 4, flowhash.Default())
	if err != nil {
		t.Fatal(err)
	}
	heavy := flowkey.TwoTuple{Src: 1, Dst: 2}
	for i := 0; i < 500; i++ {
		hp.Update(heavy, 1)
	}
	light := flowkey.TwoTuple{Src: 99, Dst: 100}
	hp.Update(light, 1)

	if got := hp.Query(heavy); got == 0 {
		t.Fatal("expected heavy flow to settle with non-zero count")
	}
}

func TestHashPipeUnknownFlowZero(t *testing.T) {
	hp, _ := NewHashPipe(4096, 4, flowhash.Default())
	unseen := flowkey.TwoTuple{Src: 123, Dst: 456}
	if hp.Query(unseen) != 0 {
		t.Fatal("expected zero for unseen flow")
	}
}

func TestHashPipeClear(t *testing.T) {
	hp, _ := NewHashPipe(4096, 4, flowhash.Default())
	fl := flowkey.OneTuple{Field: 1}
	hp.Update(fl, 10)
	hp.Clear()
	if hp.HasFlow(fl) {
		t.Fatal("expected flow gone after clear")
	}
	st := hp.Stats()
	if st.Occupied != 0 {
		t.Fatalf("expected zero occupied buckets after clear, got %d", st.Occupied)
	}
}

func TestHashPipeConfigErrors(t *testing.T) {
	if _, err := NewHashPipe(4096, 0, flowhash.Default()); err == nil {
		t.Fatal("expected error for stages=0")
	}
	if _, err := NewHashPipe(8, 100, flowhash.Default()); err == nil {
		t.Fatal("expected error for budget too small")
	}
}
