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
	"fmt"

	"flowsketch/internal/telemetry/sketchstat"
	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

// heavySeed is the 104th prime, the fixed seed convention for Elastic's
// heavy-part hash (spec.md §4.J); using a fixed rather than caller-supplied
// seed keeps the heavy and light parts independent without adding a
// constructor parameter nobody should tune.
const heavySeed = 569

type heavyBucket struct {
	flowID  flowkey.Key
	posVote uint32
	negVote uint32
	flag    bool
}

func (b heavyBucket) empty() bool { return b.flowID == nil && b.posVote == 0 }

// Elastic pairs a small heavy part, which runs a pos/neg voting protocol to
// resist eviction by genuinely large flows, with a Count-Min light part that
// absorbs everything the heavy part forwards (spec.md §4.J).
type Elastic struct {
	nh     int
	lambda uint32
	hasher flowhash.Hasher
	heavy  []heavyBucket
	light  *CountMin
}

// NewElastic takes the heavy byte budget, the vote threshold lambda, the
// total byte budget (light gets whatever remains), the light row count, and
// the hasher used for both parts (heavy hashing always uses heavySeed
// rather than a caller-chosen row index).
func NewElastic(heavyBudgetBytes int, lambda uint32, totalBudgetBytes int, lightRows int, hasher flowhash.Hasher) (*Elastic, error) {
	const heavyBucketSize = 24
	nh := heavyBudgetBytes / heavyBucketSize
	if nh <= 0 {
		return nil, fmt.Errorf("elastic: heavy budget too small")
	}
	lightBudget := totalBudgetBytes - heavyBudgetBytes
	if lightBudget <= 0 {
		return nil, fmt.Errorf("elastic: total budget must exceed heavy budget")
	}
	light, err := NewCountMin(lightRows, lightBudget, hasher)
	if err != nil {
		return nil, err
	}
	return &Elastic{
		nh:     nh,
		lambda: lambda,
		hasher: hasher,
		heavy:  make([]heavyBucket, nh),
		light:  light,
	}, nil
}

func (s *Elastic) Update(flow flowkey.Key, delta uint64) {
	for n := uint64(0); n < delta; n++ {
		s.updateOne(flow)
	}
}

func (s *Elastic) updateOne(flow flowkey.Key) {
	j := int(s.hasher.Hash(flow, heavySeed, uint64(s.nh)))
	bkt := &s.heavy[j]
	switch {
	case bkt.empty():
		bkt.flowID = flow
		bkt.posVote = 1
	case bkt.flowID == flow:
		bkt.posVote++
	default:
		bkt.negVote++
		ratio := bkt.negVote / maxU32(1, bkt.posVote)
		if ratio < s.lambda {
			s.light.Update(flow, 1)
			return
		}
		bkt.flag = true
		evictedFlow, evictedVotes := bkt.flowID, bkt.posVote
		bkt.flowID = flow
		bkt.posVote = 1
		bkt.negVote = 0
		sketchstat.ObserveEviction("elastic")
		s.light.Update(evictedFlow, uint64(evictedVotes))
	}
}

func (s *Elastic) Query(flow flowkey.Key) uint64 {
	j := int(s.hasher.Hash(flow, heavySeed, uint64(s.nh)))
	bkt := s.heavy[j]
	var heavyCount uint64
	if !bkt.empty() && bkt.flowID == flow {
		heavyCount = uint64(bkt.posVote)
	}
	if bkt.flag {
		return heavyCount + s.light.Query(flow)
	}
	return heavyCount
}

func (s *Elastic) HasFlow(flow flowkey.Key) bool { return s.Query(flow) > 0 }

func (s *Elastic) Clear() {
	for i := range s.heavy {
		s.heavy[i] = heavyBucket{}
	}
	s.light.Clear()
}

func (s *Elastic) Stats() Stats {
	occ := 0
	for _, b := range s.heavy {
		if !b.empty() {
			occ++
		}
	}
	return Stats{Kind: "elastic", Occupied: occ, Capacity: s.nh}
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
