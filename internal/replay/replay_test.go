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

package replay

import (
	"path/filepath"
	"testing"

	"flowsketch/pkg/flowkey"
)

func TestFileSinkWriteAndReadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatal(err)
	}
	flows := []flowkey.Key{
		flowkey.OneTuple{Field: 7},
		flowkey.TwoTuple{Src: 1, Dst: 2},
		flowkey.FiveTuple{Src: 1, Dst: 2, SrcPort: 80, DstPort: 443, Proto: 6},
	}
	for i, fl := range flows {
		ev, err := EventFor(fl, uint64(i+1), uint64(i))
		if err != nil {
			t.Fatal(err)
		}
		if err := sink.Write(ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	events, err := ReadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != len(flows) {
		t.Fatalf("expected %d events, got %d", len(flows), len(events))
	}
	for i, ev := range events {
		fl, err := ev.Flow()
		if err != nil {
			t.Fatal(err)
		}
		if !fl.Equal(flows[i]) {
			t.Fatalf("event %d: decoded flow %v does not match original %v", i, fl, flows[i])
		}
		if ev.Increment != uint64(i+1) {
			t.Fatalf("event %d: increment %d, want %d", i, ev.Increment, i+1)
		}
	}
}

func TestEventForUnsupportedType(t *testing.T) {
	if _, err := EventFor(nil, 1, 0); err == nil {
		t.Fatal("expected error for nil flow key")
	}
}

func TestFlowWrongByteLength(t *testing.T) {
	ev := Event{Kind: KindOneTuple, FlowBytes: []byte{1, 2}}
	if _, err := ev.Flow(); err == nil {
		t.Fatal("expected error for wrong byte length")
	}
}

func TestFlowUnknownKind(t *testing.T) {
	ev := Event{Kind: "bogus", FlowBytes: []byte{1, 2, 3, 4}}
	if _, err := ev.Flow(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
