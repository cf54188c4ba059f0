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
	"flowsketch/pkg/bloom"
	"flowsketch/pkg/flowhash"
	"flowsketch/pkg/flowkey"
)

// overprovisionFactor is the IBLT sizing constant c: the counting table
// needs roughly c times as many buckets as expected distinct flows for
// peeling to converge with high probability (original_source's
// FlowRadar.cpp default).
const overprovisionFactor = 1.3

type frBucket struct {
	flowXOR     flowkey.Key
	flowCount   uint32
	packetCount uint32
}

func (b frBucket) empty() bool {
	return (b.flowXOR == nil || b.flowXOR.IsZero()) && b.flowCount == 0 && b.packetCount == 0
}

func (b *frBucket) xorIn(flow flowkey.Key) {
	if b.flowXOR == nil {
		b.flowXOR = flow
		return
	}
	b.flowXOR = b.flowXOR.XOR(flow)
}

// FlowRadar is an IBLT-flavored counting table: each flow is XORed into
// kC buckets, and when a bucket's flowCount falls to exactly 1 during
// decode, its flowXOR and packetCount are, by construction, that single
// flow's exact identity and count. Over-provisioning the table relative to
// the number of distinct flows (a constant factor from IBLT theory,
// carried over from original_source's sizing guidance) is what makes
// peeling converge with high probability (spec.md §4.K).
type FlowRadar struct {
	bloomF    *bloom.Filter
	kC        int
	tableSize int
	hasher    flowhash.Hasher
	table     []frBucket

	decoded      map[flowkey.Key]uint64
	decodedValid bool
}

// NewFlowRadar takes the total byte budget, the fraction p of that budget
// given to the Bloom filter, the Bloom hash count kB, the counting-table
// hash count kC, the caller's estimate of the number of distinct flows the
// table will need to hold, and the hasher shared by both structures. If the
// resulting table is under-provisioned relative to numExpectedFlows (per
// the overprovisionFactor IBLT sizing constant), construction still
// succeeds — decoding just degrades gracefully — but a warning is logged.
func NewFlowRadar(budgetBytes int, p float64, kB, kC, numExpectedFlows int, hasher flowhash.Hasher) (*FlowRadar, error) {
	if p <= 0 || p >= 1 {
		return nil, fmt.Errorf("flowradar: p must be in (0,1), got %f", p)
	}
	if kC <= 0 {
		return nil, fmt.Errorf("flowradar: kC must be > 0, got %d", kC)
	}
	bloomBits := int(float64(budgetBytes) * p * 8)
	bf, err := bloom.New(bloomBits, kB, hasher)
	if err != nil {
		return nil, fmt.Errorf("flowradar: bloom config: %w", err)
	}
	const frBucketSize = 24
	remaining := float64(budgetBytes) * (1 - p)
	tableSize := int(remaining) / frBucketSize
	if tableSize <= 0 {
		return nil, fmt.Errorf("flowradar: counting table budget too small")
	}
	if numExpectedFlows > 0 && float64(tableSize) < overprovisionFactor*float64(numExpectedFlows) {
		sketchstat.Warnf("flowradar: table size %d is under-provisioned for %d expected flows (want >= %.0f); decode will leave more residue than usual",
			tableSize, numExpectedFlows, overprovisionFactor*float64(numExpectedFlows))
	}
	return &FlowRadar{
		bloomF:    bf,
		kC:        kC,
		tableSize: tableSize,
		hasher:    hasher,
		table:     make([]frBucket, tableSize),
	}, nil
}

func (s *FlowRadar) Update(flow flowkey.Key, delta uint64) {
	for n := uint64(0); n < delta; n++ {
		s.updateOne(flow)
	}
}

func (s *FlowRadar) updateOne(flow flowkey.Key) {
	s.decodedValid = false
	exists := s.bloomF.Query(flow)
	if !exists {
		s.bloomF.Update(flow)
	}
	for i := 0; i < s.kC; i++ {
		j := int(s.hasher.Hash(flow, uint64(i), uint64(s.tableSize)))
		bkt := &s.table[j]
		if !exists {
			bkt.xorIn(flow)
			bkt.flowCount++
		}
		bkt.packetCount++
	}
}

// Decode peels buckets with flowCount == 1 until no more can be resolved;
// residue with flowCount > 1 is simply left out of the result.
func (s *FlowRadar) Decode() map[flowkey.Key]uint64 {
	if s.decodedValid {
		return s.decoded
	}
	work := make([]frBucket, len(s.table))
	copy(work, s.table)

	out := make(map[flowkey.Key]uint64)
	for {
		progressed := false
		for j := range work {
			b := &work[j]
			if b.flowCount != 1 {
				continue
			}
			flow := b.flowXOR
			count := uint64(b.packetCount)
			out[flow] = count
			for i := 0; i < s.kC; i++ {
				jp := int(s.hasher.Hash(flow, uint64(i), uint64(s.tableSize)))
				peer := &work[jp]
				peer.xorIn(flow)
				peer.flowCount--
				if peer.packetCount >= uint32(count) {
					peer.packetCount -= uint32(count)
				} else {
					peer.packetCount = 0
				}
			}
			progressed = true
		}
		if !progressed {
			break
		}
	}
	residue := 0
	for _, b := range work {
		if b.flowCount != 0 {
			residue++
		}
	}
	sketchstat.ObserveDecode(len(out), residue, len(work))
	s.decoded = out
	s.decodedValid = true
	return out
}

func (s *FlowRadar) Query(flow flowkey.Key) uint64 {
	return s.Decode()[flow]
}

func (s *FlowRadar) HasFlow(flow flowkey.Key) bool {
	_, ok := s.Decode()[flow]
	return ok
}

func (s *FlowRadar) Clear() {
	s.bloomF.Clear()
	for i := range s.table {
		s.table[i] = frBucket{}
	}
	s.decoded = nil
	s.decodedValid = false
}

func (s *FlowRadar) Stats() Stats {
	occ := 0
	for _, b := range s.table {
		if !b.empty() {
			occ++
		}
	}
	return Stats{Kind: "flowradar", Occupied: occ, Capacity: s.tableSize}
}
