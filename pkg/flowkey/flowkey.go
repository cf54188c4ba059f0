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

// Package flowkey provides the fixed-size, value-semantic flow identifiers
// used throughout the sketch engines: OneTuple, TwoTuple, and FiveTuple.
// Equality agrees with byte-view equality after zeroing any padding; XOR is
// associative and self-inverse; byte views are host-endian and stable across
// processes on the same architecture family.
package flowkey

import "encoding/binary"

// Key is the capability set every sketch is written against. There is no
// runtime polymorphism within a single sketch instance — a sketch is
// parameterized at construction by one concrete Key implementation and never
// mixes key types.
type Key interface {
	// Equal reports whether two keys have the same value, padding included
	// (padding is always zeroed by construction, so this agrees with a raw
	// byte-view comparison).
	Equal(other Key) bool
	// Less gives a total, lexicographic order over field declaration order.
	Less(other Key) bool
	// XOR returns the componentwise XOR of two keys of the same concrete type.
	XOR(other Key) Key
	// Bytes returns the canonical, fixed-size, host-endian byte view.
	Bytes() []byte
	// IsZero reports whether this is the additive identity (zero key).
	IsZero() bool
	// String renders a short diagnostic form, not used for hashing/equality.
	String() string
}

// OneTuple identifies a flow by a single 32-bit field (e.g. a source address).
type OneTuple struct {
	Field uint32
}

func (k OneTuple) Equal(other Key) bool {
	o, ok := other.(OneTuple)
	return ok && k.Field == o.Field
}

func (k OneTuple) Less(other Key) bool {
	o := other.(OneTuple)
	return k.Field < o.Field
}

func (k OneTuple) XOR(other Key) Key {
	o := other.(OneTuple)
	return OneTuple{Field: k.Field ^ o.Field}
}

func (k OneTuple) Bytes() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, k.Field)
	return b
}

func (k OneTuple) IsZero() bool { return k.Field == 0 }

func (k OneTuple) String() string {
	return uitoa(uint64(k.Field))
}

// TwoTuple identifies a flow by a (src, dst) pair, 8 bytes total.
type TwoTuple struct {
	Src uint32
	Dst uint32
}

func (k TwoTuple) Equal(other Key) bool {
	o, ok := other.(TwoTuple)
	return ok && k.Src == o.Src && k.Dst == o.Dst
}

func (k TwoTuple) Less(other Key) bool {
	o := other.(TwoTuple)
	if k.Src != o.Src {
		return k.Src < o.Src
	}
	return k.Dst < o.Dst
}

func (k TwoTuple) XOR(other Key) Key {
	o := other.(TwoTuple)
	return TwoTuple{Src: k.Src ^ o.Src, Dst: k.Dst ^ o.Dst}
}

func (k TwoTuple) Bytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], k.Src)
	binary.LittleEndian.PutUint32(b[4:8], k.Dst)
	return b
}

func (k TwoTuple) IsZero() bool { return k.Src == 0 && k.Dst == 0 }

func (k TwoTuple) String() string {
	return uitoa(uint64(k.Src)) + "->" + uitoa(uint64(k.Dst))
}

// FiveTuple identifies a flow by the canonical 5-tuple: src/dst address,
// src/dst port, and protocol. 16 bytes total; the trailing 3 bytes of
// padding are always zero and are included in Bytes()/Equal() per spec.
type FiveTuple struct {
	Src      uint32
	Dst      uint32
	SrcPort  uint16
	DstPort  uint16
	Proto    uint8
	_padding [3]byte
}

func (k FiveTuple) Equal(other Key) bool {
	o, ok := other.(FiveTuple)
	if !ok {
		return false
	}
	return k.Src == o.Src && k.Dst == o.Dst && k.SrcPort == o.SrcPort &&
		k.DstPort == o.DstPort && k.Proto == o.Proto
}

func (k FiveTuple) Less(other Key) bool {
	o := other.(FiveTuple)
	switch {
	case k.Src != o.Src:
		return k.Src < o.Src
	case k.Dst != o.Dst:
		return k.Dst < o.Dst
	case k.SrcPort != o.SrcPort:
		return k.SrcPort < o.SrcPort
	case k.DstPort != o.DstPort:
		return k.DstPort < o.DstPort
	default:
		return k.Proto < o.Proto
	}
}

func (k FiveTuple) XOR(other Key) Key {
	o := other.(FiveTuple)
	return FiveTuple{
		Src:     k.Src ^ o.Src,
		Dst:     k.Dst ^ o.Dst,
		SrcPort: k.SrcPort ^ o.SrcPort,
		DstPort: k.DstPort ^ o.DstPort,
		Proto:   k.Proto ^ o.Proto,
	}
}

func (k FiveTuple) Bytes() []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:4], k.Src)
	binary.LittleEndian.PutUint32(b[4:8], k.Dst)
	binary.LittleEndian.PutUint16(b[8:10], k.SrcPort)
	binary.LittleEndian.PutUint16(b[10:12], k.DstPort)
	b[12] = k.Proto
	// b[13:16] stays zero: the declared padding.
	return b
}

func (k FiveTuple) IsZero() bool {
	return k.Src == 0 && k.Dst == 0 && k.SrcPort == 0 && k.DstPort == 0 && k.Proto == 0
}

func (k FiveTuple) String() string {
	return uitoa(uint64(k.Src)) + ":" + uitoa(uint64(k.SrcPort)) +
		"->" + uitoa(uint64(k.Dst)) + ":" + uitoa(uint64(k.DstPort)) +
		"/" + uitoa(uint64(k.Proto))
}

// uitoa renders an unsigned integer without pulling in strconv at the
// package's single formatting call site.
func uitoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
