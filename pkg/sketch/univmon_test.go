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

func TestUnivMonTracksHeavyFlow(t *testing.T) {
	um, err := NewUnivMon(4, 8192, UnivMonCountSketch, flowhash.Default())
	if err != nil {
		t.Fatal(err)
	}
	heavy := flowkey.TwoTuple{Src: 1, Dst: 2}
	for i := 0; i < 2000; i++ {
		um.Update(heavy, 1)
	}
	if got := um.Query(heavy); got == 0 {
		t.Fatal("expected non-zero estimate for a heavily-updated flow")
	}
}

func TestUnivMonSampleAndHoldBackend(t *testing.T) {
	um, err := NewUnivMon(3, 4096, UnivMonSampleAndHold, flowhash.Default())
	if err != nil {
		t.Fatal(err)
	}
	fl := flowkey.OneTuple{Field: 5}
	um.Update(fl, 100)
	if !um.HasFlow(fl) {
		t.Fatal("expected flow present at layer 0 at minimum")
	}
}

func TestUnivMonClear(t *testing.T) {
	um, _ := NewUnivMon(3, 4096, UnivMonCountSketch, flowhash.Default())
	fl := flowkey.OneTuple{Field: 1}
	um.Update(fl, 50)
	um.Clear()
	if um.HasFlow(fl) {
		t.Fatal("expected no flows present after clear")
	}
}

func TestUnivMonConfigErrors(t *testing.T) {
	if _, err := NewUnivMon(0, 4096, UnivMonCountSketch, flowhash.Default()); err == nil {
		t.Fatal("expected error for layerCount=0")
	}
}

func TestSaturatingShiftLeft(t *testing.T) {
	if got := saturatingShiftLeft(1, 0); got != 1 {
		t.Fatalf("expected identity for shift 0, got %d", got)
	}
	if got := saturatingShiftLeft(^uint64(0), 1); got != ^uint64(0) {
		t.Fatalf("expected saturation at max uint64, got %d", got)
	}
}
