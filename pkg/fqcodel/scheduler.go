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
	"sync"
	"time"
)

// wallClock is the default Clock, backed by the host's monotonic reading.
type wallClock struct{}

func (wallClock) Now() int64 { return time.Now().UnixNano() }

// Stats is a snapshot of the scheduler's counters, copied out via
// Snapshot so callers never see a torn read.
type Stats struct {
	TotalPackets int
	TotalBytes   uint64
	MemoryUsage  uint64

	// Drops indexed by DropCause (overlimit, overmemory, codel).
	Drops [3]uint64
	// BypassDrops counts packets rejected by the classifier (0 returned),
	// a silent, non-counting-as-overlimit drop distinct from the above.
	BypassDrops uint64
	ECNMarks    uint64
}

// FlowInfo is yielded by Walk for each non-empty flow.
type FlowInfo struct {
	Slot         int
	BacklogBytes uint64
	PacketCount  int
	Deficit      int64
}

// Scheduler is one FQ-CoDel queueing discipline instance: a fixed-size
// flow table, a cuckoo classifier, per-flow CoDel state, and the
// deficit-round-robin new/old flow lists. The entire packet path
// (Enqueue, Dequeue, Peek) is synchronous, allocation-free and cannot
// suspend; a single mutex is the one exclusion primitive guarding this
// instance's shared state, used by both the data plane and the control
// surface.
type Scheduler struct {
	mu sync.Mutex

	cfg         Config
	flowsCntSet bool

	clock Clock

	flows   []flowRecord
	backlog []uint64
	free    *freeSlotIndex
	cuckoo  *cuckooTable

	newList flowList
	oldList flowList

	totalBytes   uint64
	totalPackets int
	memUsage     uint64

	stats Stats

	peeked Packet

	// Classifier is the optional external classifier (priority shortcut
	// and/or black-box filter) consulted before the cuckoo table. A nil
	// Classifier means every packet goes straight to cuckoo
	// classification.
	Classifier Classifier
}

// New creates a Scheduler with the given configuration. FlowsCnt is fixed
// from this call onward. An error here means the configuration failed
// validation (a *ConfigError) or initialization failed (hash seed
// allocation), and the returned *Scheduler is nil; there is no partial
// state to unwind since nothing was allocated before the failure.
func New(cfg Config) (*Scheduler, error) {
	if cfg.FlowsCnt == 0 {
		cfg = DefaultConfig()
	}
	cfg.clamp()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cuckoo, err := newCuckooTable(cfg.FlowsCnt)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:         cfg,
		flowsCntSet: true,
		clock:       wallClock{},
		flows:       make([]flowRecord, cfg.FlowsCnt),
		backlog:     make([]uint64, cfg.FlowsCnt),
		free:        newFreeSlotIndex(cfg.FlowsCnt),
		cuckoo:      cuckoo,
		newList:     newFlowList(),
		oldList:     newFlowList(),
	}
	return s, nil
}

// WithClock overrides the scheduler's time source; intended for tests and
// deterministic simulation.
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
	return s
}

// Enqueue classifies pkt to a flow, admits it, and runs the overload
// policy if capacity was exceeded.
func (s *Scheduler) Enqueue(pkt Packet) EnqueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.classifyPacket(pkt)
	if slot == 0 {
		s.stats.BypassDrops++
		return Dropped
	}
	idx := int32(slot - 1)
	f := &s.flows[idx]

	now := s.clock.Now()
	pkt.SetEnqueueTime(now)

	f.fifoPush(pkt)
	bl := uint64(pkt.ByteLength())
	mf := uint64(pkt.MemoryFootprint())
	s.backlog[idx] += bl
	s.totalBytes += bl
	s.totalPackets++
	s.memUsage += mf
	s.free.markOccupied(int(idx))

	if f.member == memberNone {
		s.newList.pushBack(s.flows, idx, memberNew)
		f.deficit = int64(s.cfg.Quantum)
		f.dropCount = 0
	}

	overLimit := s.totalPackets > s.cfg.Limit
	overMemory := s.memUsage > s.cfg.MemoryLimit
	if !overLimit && !overMemory {
		return OK
	}

	cause := DropOverlimit
	if overMemory && !overLimit {
		cause = DropOvermemory
	}
	fatSlot := s.overloadDrop(cause)
	if fatSlot == int(idx) {
		return Congestion
	}
	return OK
}

// classifyPacket consults the external Classifier (priority shortcut /
// black-box filter) before falling back to the cuckoo table.
func (s *Scheduler) classifyPacket(pkt Packet) int {
	if s.Classifier != nil {
		return s.Classifier.Classify(pkt)
	}
	return s.classify(pkt)
}

// accountDequeue removes a popped packet's bytes/memory from the
// scheduler's running totals. The packet has already been unlinked from
// its flow's FIFO by the caller.
func (s *Scheduler) accountDequeue(slot int32, pkt Packet) {
	bl := uint64(pkt.ByteLength())
	s.backlog[slot] -= bl
	s.totalBytes -= bl
	s.totalPackets--
	s.memUsage -= uint64(pkt.MemoryFootprint())
}

// Dequeue releases the next packet in deficit-round-robin order, or nil
// if every flow is empty.
func (s *Scheduler) Dequeue() Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peeked != nil {
		p := s.peeked
		s.peeked = nil
		return p
	}
	return s.dequeueLocked()
}

// Peek returns the next packet Dequeue would return, without removing it
// from the queue's logical position; it is cached and handed back by the
// next Dequeue call instead of being reclassified or re-scheduled.
func (s *Scheduler) Peek() Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peeked == nil {
		s.peeked = s.dequeueLocked()
	}
	return s.peeked
}

func (s *Scheduler) dequeueLocked() Packet {
	now := s.clock.Now()
	for {
		var slot int32
		var fromNew bool
		switch {
		case !s.newList.isEmpty():
			slot, fromNew = s.newList.head, true
		case !s.oldList.isEmpty():
			slot, fromNew = s.oldList.head, false
		default:
			return nil
		}

		f := &s.flows[slot]
		if f.deficit <= 0 {
			f.deficit += int64(s.cfg.Quantum)
			if fromNew {
				s.newList.remove(s.flows, slot)
			} else {
				s.oldList.remove(s.flows, slot)
			}
			s.oldList.pushBack(s.flows, slot, memberOld)
			continue
		}

		pkt := s.codelDequeue(slot, now)
		if pkt == nil {
			if fromNew {
				s.newList.remove(s.flows, slot)
				if !s.oldList.isEmpty() {
					s.oldList.pushBack(s.flows, slot, memberOld)
				}
			} else {
				s.oldList.remove(s.flows, slot)
			}
			continue
		}

		f.deficit -= int64(pkt.ByteLength())
		if f.empty() {
			s.free.markEmpty(int(slot))
			s.cuckooClear(slot)
		}
		return pkt
	}
}

// Configure applies a configuration bundle: FlowsCnt is write-once,
// Quantum/DropBatchSize/MemoryLimit are clamped rather than rejected, and
// after applying the scheduler is drained via Dequeue until the packet
// and memory totals are back within the new limits.
func (s *Scheduler) Configure(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg.clamp()
	if s.flowsCntSet && cfg.FlowsCnt != s.cfg.FlowsCnt {
		return ErrFlowsCntImmutable
	}
	if !s.flowsCntSet {
		cfg.FlowsCnt = s.cfg.FlowsCnt // already fixed at New; never unset in practice
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	s.cfg = cfg
	s.flowsCntSet = true

	for s.totalPackets > s.cfg.Limit || s.memUsage > s.cfg.MemoryLimit {
		if s.dequeueLocked() == nil {
			break
		}
	}
	return nil
}

// Reset purges all flow FIFOs, reinitializes CoDel state and lists, zeros
// the backlog vector and cuckoo table, and marks every slot empty. The
// scheduler's Config is left untouched.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.flows {
		s.flows[i] = flowRecord{prev: -1, next: -1}
		s.backlog[i] = 0
	}
	for i := range s.cuckoo.entries {
		s.cuckoo.entries[i] = 0
	}
	s.free.resetAllEmpty()
	s.newList = newFlowList()
	s.oldList = newFlowList()
	s.totalBytes = 0
	s.totalPackets = 0
	s.memUsage = 0
	s.stats = Stats{}
	s.peeked = nil
}

// Snapshot copies the current counters out.
func (s *Scheduler) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.TotalPackets = s.totalPackets
	st.TotalBytes = s.totalBytes
	st.MemoryUsage = s.memUsage
	return st
}

// Walk iterates every non-empty flow, yielding its slot id and current
// state to visitor.
func (s *Scheduler) Walk(visitor func(FlowInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.flows {
		f := &s.flows[i]
		if f.empty() {
			continue
		}
		visitor(FlowInfo{
			Slot:         i,
			BacklogBytes: s.backlog[i],
			PacketCount:  f.qlen,
			Deficit:      f.deficit,
		})
	}
}
