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

package fqcodel

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// SimPacket is a reference Packet implementation used by tests, benchmarks
// and the simulation/load-generation commands. Real deployments supply
// their own Packet backed by the host's mbuf/skb equivalent; SimPacket
// exists because the packet data type is deliberately out of scope for
// the scheduler itself.
type SimPacket struct {
	FlowKey  string // simulated 5-tuple identity
	Length   uint32
	Memory   uint32
	ecnCapable bool
	ecnMarked  bool
	next       Packet
	enqueueAt  int64

	hash uint64 // lazily computed, cached
}

// NewSimPacket creates a packet belonging to the given flow key.
func NewSimPacket(flowKey string, length uint32) *SimPacket {
	return &SimPacket{FlowKey: flowKey, Length: length, Memory: length + 64}
}

// NewSimPacketECN creates an ECN-capable packet belonging to the given flow key.
func NewSimPacketECN(flowKey string, length uint32) *SimPacket {
	p := NewSimPacket(flowKey, length)
	p.ecnCapable = true
	return p
}

func (p *SimPacket) ByteLength() uint32       { return p.Length }
func (p *SimPacket) MemoryFootprint() uint32  { return p.Memory }

func (p *SimPacket) FlowHash() uint32 {
	if p.hash == 0 {
		p.hash = xxhash.Sum64String(p.FlowKey)
	}
	return uint32(p.hash)
}

func (p *SimPacket) FlowHashPerturb(seed uint32) uint32 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], seed)
	h := xxhash.New()
	_, _ = h.WriteString(p.FlowKey)
	_, _ = h.Write(buf[:])
	return uint32(h.Sum64())
}

func (p *SimPacket) IsECNCapable() bool { return p.ecnCapable }
func (p *SimPacket) MarkECN()           { p.ecnMarked = true }
func (p *SimPacket) ECNMarked() bool    { return p.ecnMarked }

func (p *SimPacket) Next() Packet     { return p.next }
func (p *SimPacket) SetNext(n Packet) { p.next = n }

func (p *SimPacket) EnqueueTime() int64     { return p.enqueueAt }
func (p *SimPacket) SetEnqueueTime(t int64) { p.enqueueAt = t }

// ManualClock is a settable Clock for deterministic tests and scenario
// simulation (e.g. stamping packets as having been enqueued in the past
// to exercise CoDel's drop escalation without a wall-clock sleep).
type ManualClock struct {
	now atomic.Int64
}

// NewManualClock returns a ManualClock starting at the given nanosecond time.
func NewManualClock(startNs int64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(startNs)
	return c
}

func (c *ManualClock) Now() int64 { return c.now.Load() }

// Advance moves the clock forward by the given number of nanoseconds.
func (c *ManualClock) Advance(deltaNs int64) { c.now.Add(deltaNs) }

// Set pins the clock to an absolute nanosecond value.
func (c *ManualClock) Set(ns int64) { c.now.Store(ns) }
