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

// Package fqcodel implements a Fair Queue Controlled Delay (FQ-CoDel)
// packet scheduler with a cuckoo-hashed flow-identity table. It classifies
// packets into per-flow queues, applies CoDel active queue management per
// flow, and releases packets in deficit-round-robin order that favors
// newly active flows over established ones.
package fqcodel

// Packet is the external packet handle contract the scheduler operates
// against. The scheduler never allocates per-packet storage; it threads
// its own FIFO linkage through Next/SetNext and stamps EnqueueTime at
// admission. Implementations own the underlying bytes; the scheduler only
// reads accounting fields and rewrites linkage/ECN state.
type Packet interface {
	// ByteLength is the wire size used for deficit accounting and backlog.
	ByteLength() uint32
	// MemoryFootprint is the in-memory size charged against MemoryLimit;
	// may exceed ByteLength to account for descriptor/buffer overhead.
	MemoryFootprint() uint32

	// FlowHash is a cryptographically-stable hash used as an identity
	// proxy for the packet's flow (5-tuple or equivalent).
	FlowHash() uint32
	// FlowHashPerturb is FlowHash mixed with a per-table seed, used by the
	// cuckoo classifier to derive two independent candidate buckets.
	FlowHashPerturb(seed uint32) uint32

	// IsECNCapable reports whether the transport marked this packet
	// ECN-capable (ECT); MarkECN sets the CE codepoint.
	IsECNCapable() bool
	MarkECN()

	// Next/SetNext form the scheduler's intrusive per-flow FIFO linkage.
	Next() Packet
	SetNext(Packet)

	// EnqueueTime/SetEnqueueTime carry the monotonic-nanosecond admission
	// timestamp used for CoDel sojourn-time computation.
	EnqueueTime() int64
	SetEnqueueTime(int64)
}

// Classifier is the optional external classifier named in the scheduler's
// design: a black-box filter that maps a packet directly to a flow slot,
// bypassing the internal cuckoo hash when installed. Classify returns a
// 1-based flow slot, or 0 to signal "no flow" (a silent, non-counting
// drop distinct from overlimit drops).
type Classifier interface {
	Classify(Packet) int
}

// Clock supplies the monotonic nanosecond clock the scheduler uses for
// sojourn-time and CoDel scheduling. Real callers wrap time.Now(); tests
// use ManualClock for deterministic sojourn simulation.
type Clock interface {
	Now() int64
}
