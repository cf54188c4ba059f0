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

package fastpath

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
)

// StripeAssigner gives a flow a stable per-CPU counter-store assignment:
// the same flow always lands on the same stripe so long as the CPU set is
// unchanged, and adding or removing a CPU only reshuffles the flows that
// were assigned to the changed node (the same low-disruption routing
// property rendezvous hashing is used for elsewhere in the pack,
// repurposed here from "pick a backend shard" to "pick a per-CPU stripe").
type StripeAssigner struct {
	r       *rendezvous.Rendezvous
	cpuByID map[string]int
}

// NewStripeAssigner builds an assigner over numCPU per-CPU stripes.
func NewStripeAssigner(numCPU int) (*StripeAssigner, error) {
	if numCPU <= 0 {
		return nil, fmt.Errorf("fastpath: numCPU must be > 0, got %d", numCPU)
	}
	nodes := make([]string, numCPU)
	cpuByID := make(map[string]int, numCPU)
	for i := 0; i < numCPU; i++ {
		id := "cpu" + strconv.Itoa(i)
		nodes[i] = id
		cpuByID[id] = i
	}
	r := rendezvous.New(nodes, xxhash.Sum64String)
	return &StripeAssigner{r: r, cpuByID: cpuByID}, nil
}

// Assign returns the stripe index a flow's diagnostic hash should use.
func (a *StripeAssigner) Assign(flowHash string) int {
	return a.cpuByID[a.r.Get(flowHash)]
}

// String renders the assigner's CPU count for diagnostic logging.
func (a *StripeAssigner) String() string {
	return "stripes(" + strconv.Itoa(len(a.cpuByID)) + ")"
}
