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

func TestFlowRadarDecodesExactWhenOverProvisioned(t *testing.T) {
	fr, err := NewFlowRadar(1<<16, 0.3, 4, 3, 3, flowhash.Default())
	if err != nil {
		t.Fatal(err)
	}
	flows := []flowkey.Key{
		flowkey.TwoTuple{Src: 1, Dst: 2},
		flowkey.TwoTuple{Src: 3, Dst: 4},
		flowkey.TwoTuple{Src: 5, Dst: 6},
	}
	counts := []uint64{3, 5, 2}
	for i, fl := range flows {
		fr.Update(fl, counts[i])
	}
	decoded := fr.Decode()
	for i, fl := range flows {
		got, ok := decoded[fl]
		if !ok {
			t.Fatalf("expected flow %v to be decoded", fl)
		}
		if got != counts[i] {
			t.Fatalf("expected count %d for flow %v, got %d", counts[i], fl, got)
		}
	}
}

func TestFlowRadarQueryMatchesDecode(t *testing.T) {
	fr, _ := NewFlowRadar(1<<15, 0.3, 4, 3, 1, flowhash.Default())
	fl := flowkey.TwoTuple{Src: 10, Dst: 20}
	fr.Update(fl, 7)
	if got := fr.Query(fl); got != 7 {
		t.Fatalf("expected query to match decode, got %d", got)
	}
}

func TestFlowRadarClear(t *testing.T) {
	fr, _ := NewFlowRadar(1<<15, 0.3, 4, 3, 1, flowhash.Default())
	fl := flowkey.TwoTuple{Src: 1, Dst: 1}
	fr.Update(fl, 4)
	fr.Clear()
	if fr.HasFlow(fl) {
		t.Fatal("expected flow gone after clear")
	}
}

func TestFlowRadarConfigErrors(t *testing.T) {
	if _, err := NewFlowRadar(1<<16, 0, 4, 3, 3, flowhash.Default()); err == nil {
		t.Fatal("expected error for p=0")
	}
	if _, err := NewFlowRadar(1<<16, 0.3, 4, 0, 3, flowhash.Default()); err == nil {
		t.Fatal("expected error for kC=0")
	}
}

func TestFlowRadarUnderProvisionedStillConstructs(t *testing.T) {
	// A huge numExpectedFlows relative to the tiny budget should only log a
	// warning, not fail construction.
	fr, err := NewFlowRadar(1<<10, 0.3, 4, 3, 1_000_000, flowhash.Default())
	if err != nil {
		t.Fatalf("expected under-provisioning to warn, not error: %v", err)
	}
	if fr == nil {
		t.Fatal("expected a usable FlowRadar")
	}
}
