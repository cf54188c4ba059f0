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
	"encoding/binary"
	"fmt"

	"flowsketch/pkg/flowkey"
)

const (
	KindOneTuple  = "one"
	KindTwoTuple  = "two"
	KindFiveTuple = "five"
)

// EventFor builds an Event from a concrete flow key, increment, and
// sequence number, tagging it with the kind needed to decode it later.
func EventFor(flow flowkey.Key, increment uint64, seq uint64) (Event, error) {
	var kind string
	switch flow.(type) {
	case flowkey.OneTuple:
		kind = KindOneTuple
	case flowkey.TwoTuple:
		kind = KindTwoTuple
	case flowkey.FiveTuple:
		kind = KindFiveTuple
	default:
		return Event{}, fmt.Errorf("replay: unsupported flow key type %T", flow)
	}
	return Event{Kind: kind, FlowBytes: flow.Bytes(), Increment: increment, Seq: seq}, nil
}

// Flow decodes the event's byte view back into a concrete flowkey.Key,
// using Kind to pick the right concrete type.
func (e Event) Flow() (flowkey.Key, error) {
	switch e.Kind {
	case KindOneTuple:
		if len(e.FlowBytes) != 4 {
			return nil, fmt.Errorf("replay: one-tuple event has %d bytes, want 4", len(e.FlowBytes))
		}
		return flowkey.OneTuple{Field: binary.LittleEndian.Uint32(e.FlowBytes)}, nil
	case KindTwoTuple:
		if len(e.FlowBytes) != 8 {
			return nil, fmt.Errorf("replay: two-tuple event has %d bytes, want 8", len(e.FlowBytes))
		}
		return flowkey.TwoTuple{
			Src: binary.LittleEndian.Uint32(e.FlowBytes[0:4]),
			Dst: binary.LittleEndian.Uint32(e.FlowBytes[4:8]),
		}, nil
	case KindFiveTuple:
		if len(e.FlowBytes) != 16 {
			return nil, fmt.Errorf("replay: five-tuple event has %d bytes, want 16", len(e.FlowBytes))
		}
		return flowkey.FiveTuple{
			Src:     binary.LittleEndian.Uint32(e.FlowBytes[0:4]),
			Dst:     binary.LittleEndian.Uint32(e.FlowBytes[4:8]),
			SrcPort: binary.LittleEndian.Uint16(e.FlowBytes[8:10]),
			DstPort: binary.LittleEndian.Uint16(e.FlowBytes[10:12]),
			Proto:   e.FlowBytes[12],
		}, nil
	default:
		return nil, fmt.Errorf("replay: unknown event kind %q", e.Kind)
	}
}
