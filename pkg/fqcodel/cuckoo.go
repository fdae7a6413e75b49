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
	crand "crypto/rand"
	"encoding/binary"
)

// cuckooTable is the two-table (2F-slot) classifier index. Each entry
// holds a 1-based flow slot (0 meaning empty); table 0 occupies indices
// [0, F) and table 1 occupies [F, 2F). seeds perturbs the packet's own
// hash per table so the two candidate buckets are independent.
type cuckooTable struct {
	entries []uint32
	seeds   [2]uint32
	f       int
}

func newCuckooTable(f int) (*cuckooTable, error) {
	var buf [8]byte // two uint32 seeds
	if _, err := crand.Read(buf[:]); err != nil {
		return nil, ErrSeedAllocation
	}
	return &cuckooTable{
		entries: make([]uint32, 2*f),
		seeds: [2]uint32{
			binary.LittleEndian.Uint32(buf[0:4]),
			binary.LittleEndian.Uint32(buf[4:8]),
		},
		f: f,
	}, nil
}

// reduce is a fair, fast reduction of a 32-bit hash into [0, n) without a
// division: (x * n) >> 32.
func reduce(x uint32, n int) uint32 {
	return uint32((uint64(x) * uint64(n)) >> 32)
}

// hash returns h_t(pkt) = F*t + reduce(FlowHashPerturb(seed_t), F), the
// absolute index into the 2F-entry table for table t in {0, 1}.
func (c *cuckooTable) hash(t int, pkt Packet) uint32 {
	perturbed := pkt.FlowHashPerturb(c.seeds[t])
	return uint32(t)*uint32(c.f) + reduce(perturbed, c.f)
}

// classify answers "which flow slot owns this packet?", reserving
// and/or evicting flow slots as needed.
// Returns a 1-based flow slot, or 0 if no free slot could be reserved
// (every flow record is currently occupied).
func (s *Scheduler) classify(pkt Packet) int {
	h0 := s.cuckoo.hash(0, pkt)
	h1 := s.cuckoo.hash(1, pkt)
	a := s.cuckoo.entries[h0]
	b := s.cuckoo.entries[h1]

	switch {
	case a == 0 && b == 0:
		slot, ok := s.free.nextEmpty()
		if !ok {
			return 0
		}
		s.cuckoo.entries[h0] = uint32(slot + 1)
		s.storeHashPair(slot, h0, h1)
		return slot + 1

	case a != 0 && b == 0:
		if s.flows[a-1].empty() || s.flows[a-1].head.FlowHash() == pkt.FlowHash() {
			s.storeHashPair(int(a-1), h0, h1)
			return int(a)
		}
		slot, ok := s.free.nextEmpty()
		if !ok {
			return 0
		}
		s.cuckoo.entries[h1] = uint32(slot + 1)
		s.storeHashPair(slot, h0, h1)
		return slot + 1

	case a == 0 && b != 0:
		if s.flows[b-1].empty() || s.flows[b-1].head.FlowHash() == pkt.FlowHash() {
			s.storeHashPair(int(b-1), h0, h1)
			return int(b)
		}
		slot, ok := s.free.nextEmpty()
		if !ok {
			return 0
		}
		s.cuckoo.entries[h0] = uint32(slot + 1)
		s.storeHashPair(slot, h0, h1)
		return slot + 1

	default: // both occupied
		if s.flows[a-1].empty() {
			s.storeHashPair(int(a-1), h0, h1)
			return int(a)
		}
		if s.flows[b-1].empty() {
			s.storeHashPair(int(b-1), h0, h1)
			return int(b)
		}
		if s.flows[a-1].head.FlowHash() == pkt.FlowHash() {
			s.storeHashPair(int(a-1), h0, h1)
			return int(a)
		}
		if s.flows[b-1].head.FlowHash() == pkt.FlowHash() {
			s.storeHashPair(int(b-1), h0, h1)
			return int(b)
		}
		slot, ok := s.free.nextEmpty()
		if !ok {
			return 0
		}
		v := uint32(slot + 1)
		s.cuckooEvict(v, h0, h1)
		// v is always placed at table 0's h0 bucket by the first step of
		// the eviction walk below, regardless of how far the displaced
		// occupant chain travels afterwards, so the reserved slot is
		// always the classifier's answer here.
		s.storeHashPair(slot, h0, h1)
		return int(v)
	}
}

// cuckooEvict performs the eviction walk: insert v at table 0's
// h0 bucket; whatever was there is displaced and, if its flow still has a
// head packet, is reinserted at its own other candidate bucket, and so
// on, alternating tables, for up to F iterations. The walk terminates
// early when a displaced occupant's flow has emptied in the meantime (it
// is silently dropped from the table rather than reinserted) or when the
// iteration cap trips, in which case the slot reached on the capping
// iteration keeps its current incumbent instead of being overwritten.
func (s *Scheduler) cuckooEvict(v uint32, h0, h1 uint32) {
	table := 0
	cur := v
	curH0, curH1 := h0, h1

	for i := 0; i < s.cfg.FlowsCnt; i++ {
		var idx uint32
		if table == 0 {
			idx = curH0
		} else {
			idx = curH1
		}
		resident := s.cuckoo.entries[idx]
		if resident == 0 {
			s.cuckoo.entries[idx] = cur
			return
		}
		rf := &s.flows[resident-1]
		if rf.empty() {
			s.cuckoo.entries[idx] = cur
			return
		}
		if i == s.cfg.FlowsCnt-1 {
			// Collision cap reached: leave the incumbent in place.
			return
		}
		s.cuckoo.entries[idx] = cur
		nh0 := s.cuckoo.hash(0, rf.head)
		nh1 := s.cuckoo.hash(1, rf.head)
		cur = resident
		curH0, curH1 = nh0, nh1
		table = 1 - table
	}
}

// storeHashPair records the bucket pair used to classify the current
// packet into flows[slot], for correct cuckoo-table cleanup on flow
// emptying (see flowRecord.hash0/hash1 doc).
func (s *Scheduler) storeHashPair(slot int, h0, h1 uint32) {
	s.flows[slot].hash0 = h0
	s.flows[slot].hash1 = h1
}

// cuckooClear removes any cuckoo table entries that currently reference
// slot+1, using the hash pair stored at classification time rather than
// recomputing from whatever packet happens to be dequeued last (which
// may no longer be the packet that established those buckets).
func (s *Scheduler) cuckooClear(slot int32) {
	f := &s.flows[slot]
	want := uint32(slot) + 1
	if s.cuckoo.entries[f.hash0] == want {
		s.cuckoo.entries[f.hash0] = 0
	}
	if s.cuckoo.entries[f.hash1] == want {
		s.cuckoo.entries[f.hash1] = 0
	}
}
