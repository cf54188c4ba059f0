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

import "testing"

func TestStripeAssignerStableAssignment(t *testing.T) {
	a, err := NewStripeAssigner(8)
	if err != nil {
		t.Fatal(err)
	}
	first := a.Assign("flow-123")
	for i := 0; i < 10; i++ {
		if got := a.Assign("flow-123"); got != first {
			t.Fatalf("expected stable assignment, got %d then %d", first, got)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("assignment %d out of range [0,8)", first)
	}
}

func TestStripeAssignerConfigError(t *testing.T) {
	if _, err := NewStripeAssigner(0); err == nil {
		t.Fatal("expected error for numCPU=0")
	}
}
