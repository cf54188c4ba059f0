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

func TestElasticHeavyFlowDominates(t *testing.T) {
	es, err := NewElastic(512, 4, 4096, 3, flowhash.Default())
	if err != nil {
		t.Fatal(err)
	}
	heavy := flowkey.TwoTuple{Src: 1, Dst: 2}
	for i := 0; i < 1000; i++ {
		es.Update(heavy, 1)
	}
	if got := es.Query(heavy); got == 0 {
		t.Fatalf("expected heavy flow to be tracked, got %d", got)
	}
}

func TestElasticUnknownFlowZero(t *testing.T) {
	es, _ := NewElastic(512, 4, 4096, 3, flowhash.Default())
	unseen := flowkey.TwoTuple{Src: 9, Dst: 9}
	if es.Query(unseen) != 0 {
		t.Fatal("expected zero for unseen flow")
	}
}

func TestElasticClear(t *testing.T) {
	es, _ := NewElastic(512, 4, 4096, 3, flowhash.Default())
	fl := flowkey.OneTuple{Field: 1}
	es.Update(fl, 10)
	es.Clear()
	if es.Query(fl) != 0 {
		t.Fatal("expected zero after clear")
	}
	st := es.Stats()
	if st.Occupied != 0 {
		t.Fatalf("expected zero occupied heavy buckets after clear, got %d", st.Occupied)
	}
}

func TestElasticConfigErrors(t *testing.T) {
	if _, err := NewElastic(0, 4, 4096, 3, flowhash.Default()); err == nil {
		t.Fatal("expected error for heavy budget too small")
	}
	if _, err := NewElastic(4096, 4, 2048, 3, flowhash.Default()); err == nil {
		t.Fatal("expected error when total budget does not exceed heavy budget")
	}
}
