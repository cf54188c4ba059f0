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

// Package fastpath implements the user-space half of the kernel-regime
// snapshot controller: it owns a double-buffered counter store, can map a
// shared-memory region on Attach (held alongside the store, not used as its
// backing memory), and coordinates the active/inactive swap.
//
// The packet-parsing program itself and the XDP attach/detach control-plane
// glue are external collaborators (spec.md §1); Attach here only resolves
// the network interface and maps shared memory. It never loads or attaches
// a BPF program.
package fastpath

import (
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"flowsketch/pkg/counter"
)

// Controller coordinates a double-buffered counter matrix across a
// kernel-regime writer and a user-space reader.
type Controller[T counter.Cell] struct {
	mu      sync.Mutex
	buffers *counter.DoubleBuffer[T]

	iface    string
	attached bool

	shared   bool
	fd       int
	offset   int64
	mmapSize int
	mapped   []byte

	// bucketLocks guards composite-field updates (Elastic heavy buckets,
	// FlowRadar buckets, MV buckets) that cannot be expressed as a single
	// atomic fetch-and-add; one lock per bucket index, generalized from the
	// teacher's per-key stripe design to "give each bucket its own lock".
	bucketLocks []sync.Mutex
}

// Option configures a Controller at construction.
type Option[T counter.Cell] func(*Controller[T])

// WithSharedMemory makes Attach mmap a shared region at the given file
// descriptor and offset; size is the byte length of the mapping. The
// controller holds the mapping until Detach unmaps it. The double buffer's
// matrices are not placed in the mapping: Writer and Reader still return
// matrices in ordinary Go memory.
func WithSharedMemory[T counter.Cell](fd int, offset int64, size int) Option[T] {
	return func(c *Controller[T]) {
		c.shared = true
		c.fd = fd
		c.offset = offset
		c.mmapSize = size
	}
}

// NewController allocates a rows x cols double buffer and one lock per
// bucket (rows*cols), ready for either user-space-only or kernel-regime use.
func NewController[T counter.Cell](rows, cols int, opts ...Option[T]) (*Controller[T], error) {
	db, err := counter.NewDoubleBuffer[T](rows, cols)
	if err != nil {
		return nil, fmt.Errorf("fastpath: %w", err)
	}
	c := &Controller[T]{
		buffers:     db,
		bucketLocks: make([]sync.Mutex, rows*cols),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Attach validates iface and, if configured with shared memory, maps it.
// It does not load or attach any BPF program; that remains an external
// collaborator's responsibility (spec.md §1).
func (c *Controller[T]) Attach(iface string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := net.InterfaceByName(iface); err != nil {
		return fmt.Errorf("fastpath: resolve interface %q: %w", iface, err)
	}

	if c.shared {
		mapped, err := unix.Mmap(c.fd, c.offset, c.mmapSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return fmt.Errorf("fastpath: mmap fd=%d offset=%d size=%d: %w", c.fd, c.offset, c.mmapSize, err)
		}
		c.mapped = mapped
	}

	c.iface = iface
	c.attached = true
	return nil
}

// Detach unmaps any shared-memory region and marks the controller detached.
// Safe to call on a controller that was never attached.
func (c *Controller[T]) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mapped != nil {
		_ = unix.Munmap(c.mapped)
		c.mapped = nil
	}
	c.attached = false
	c.iface = ""
}

// Swap flips the active/inactive buffer selector and returns the index of
// the buffer now inactive (and therefore safe for the reader to query).
func (c *Controller[T]) Swap() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached && c.shared {
		return 0, fmt.Errorf("fastpath: swap on unattached shared-memory controller")
	}
	return c.buffers.Swap(), nil
}

// Buffer returns the matrix at the given index (0 or 1), e.g. the index
// Swap just returned.
func (c *Controller[T]) Buffer(index uint32) *counter.Matrix[T] { return c.buffers.Buffer(index) }

// Reader returns the buffer currently safe to query (the inactive one).
func (c *Controller[T]) Reader() *counter.Matrix[T] { return c.buffers.Reader() }

// Writer returns the buffer the kernel-regime writer currently targets.
func (c *Controller[T]) Writer() *counter.Matrix[T] { return c.buffers.Writer() }

// Lock returns the bucket lock for the given row/col, for composite-field
// updates that must run under a fine-grained critical section rather than
// a single atomic fetch-and-add.
func (c *Controller[T]) Lock(row, col, cols int) *sync.Mutex {
	return &c.bucketLocks[row*cols+col]
}

// Attached reports whether Attach has succeeded and Detach has not since run.
func (c *Controller[T]) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}
