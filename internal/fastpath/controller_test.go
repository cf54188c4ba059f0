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

func TestControllerSwapIsolation(t *testing.T) {
	c, err := NewController[uint32](2, 4)
	if err != nil {
		t.Fatal(err)
	}
	c.Writer().Update(0, 0, 7)
	idx, err := c.Swap()
	if err != nil {
		t.Fatal(err)
	}
	reader := c.Buffer(idx)
	if got := reader.Read(0, 0); got != 7 {
		t.Fatalf("expected reader to observe the swapped-out write, got %d", got)
	}
	if c.Writer().Read(0, 0) != 0 {
		t.Fatal("expected new writer buffer to start zeroed")
	}
}

func TestControllerBucketLocksDistinct(t *testing.T) {
	c, err := NewController[uint32](2, 4)
	if err != nil {
		t.Fatal(err)
	}
	l1 := c.Lock(0, 0, 4)
	l2 := c.Lock(0, 1, 4)
	if l1 == l2 {
		t.Fatal("expected distinct bucket locks for distinct buckets")
	}
	l1.Lock()
	l1.Unlock()
}

func TestControllerAttachUnknownInterface(t *testing.T) {
	c, err := NewController[uint32](1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Attach("flowsketch-test-iface-does-not-exist-0"); err == nil {
		t.Fatal("expected error attaching to a nonexistent interface")
	}
}

func TestControllerDetachWithoutAttachIsSafe(t *testing.T) {
	c, err := NewController[uint32](1, 1)
	if err != nil {
		t.Fatal(err)
	}
	c.Detach()
	if c.Attached() {
		t.Fatal("expected controller to report not attached")
	}
}

func TestControllerConfigError(t *testing.T) {
	if _, err := NewController[uint32](0, 1); err == nil {
		t.Fatal("expected error for rows=0")
	}
}
