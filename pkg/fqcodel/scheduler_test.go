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

import "testing"

func newTestScheduler(t *testing.T, flowsCnt int) *Scheduler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.FlowsCnt = flowsCnt
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestScheduler_SingleFlowPassthrough(t *testing.T) {
	s := newTestScheduler(t, 64)
	for i := 0; i < 5; i++ {
		if status := s.Enqueue(NewSimPacket("flow-a", 100)); status != OK {
			t.Fatalf("Enqueue #%d: got %v, want OK", i, status)
		}
	}
	for i := 0; i < 5; i++ {
		pkt := s.Dequeue()
		if pkt == nil {
			t.Fatalf("Dequeue #%d: got nil, want a packet", i)
		}
	}
	if pkt := s.Dequeue(); pkt != nil {
		t.Fatalf("Dequeue on empty scheduler: got %v, want nil", pkt)
	}
	st := s.Snapshot()
	if st.TotalPackets != 0 || st.TotalBytes != 0 {
		t.Fatalf("Snapshot after full drain = %+v, want zeroed totals", st)
	}
}

func TestScheduler_PeekDoesNotConsume(t *testing.T) {
	s := newTestScheduler(t, 64)
	s.Enqueue(NewSimPacket("flow-a", 100))

	peeked := s.Peek()
	if peeked == nil {
		t.Fatal("Peek: got nil, want a packet")
	}
	again := s.Peek()
	if again != peeked {
		t.Fatal("second Peek returned a different packet than the first")
	}
	dequeued := s.Dequeue()
	if dequeued != peeked {
		t.Fatal("Dequeue after Peek returned a different packet than the peeked one")
	}
	if s.Dequeue() != nil {
		t.Fatal("queue should be empty after the peeked packet was consumed")
	}
}

// TestScheduler_NewFlowPriority exercises deficit round-robin's priority
// for newly active flows: flow A is enqueued and drained enough to be
// demoted to the old-flow list (only a Dequeue moves a flow between
// lists; three 1000-byte packets exhaust the 1514-byte quantum), then
// both A and B are enqueued; B, being newly active, must be served
// before A's remaining backlog.
func TestScheduler_NewFlowPriority(t *testing.T) {
	s := newTestScheduler(t, 64)

	for i := 0; i < 3; i++ {
		s.Enqueue(NewSimPacket("flow-a", 1000))
	}
	for i := 0; i < 3; i++ {
		if pkt := s.Dequeue(); pkt == nil {
			t.Fatalf("priming dequeue #%d: got nil", i)
		}
	}

	s.Enqueue(NewSimPacket("flow-a", 100))
	s.Enqueue(NewSimPacket("flow-b", 100))

	pkt := s.Dequeue()
	if pkt == nil {
		t.Fatal("Dequeue: got nil, want flow-b's packet")
	}
	sp, ok := pkt.(*SimPacket)
	if !ok {
		t.Fatalf("unexpected packet type %T", pkt)
	}
	if sp.FlowKey != "flow-b" {
		t.Fatalf("Dequeue order = %q, want flow-b served first as the newly active flow", sp.FlowKey)
	}
}

func TestScheduler_FairShareBetweenTwoFlows(t *testing.T) {
	s := newTestScheduler(t, 64)
	const perFlow = 20
	for i := 0; i < perFlow; i++ {
		s.Enqueue(NewSimPacket("flow-a", 200))
		s.Enqueue(NewSimPacket("flow-b", 200))
	}

	counts := map[string]int{}
	for {
		pkt := s.Dequeue()
		if pkt == nil {
			break
		}
		sp := pkt.(*SimPacket)
		counts[sp.FlowKey]++
	}
	if counts["flow-a"] != perFlow || counts["flow-b"] != perFlow {
		t.Fatalf("counts = %+v, want %d packets each for flow-a and flow-b", counts, perFlow)
	}
}

func TestScheduler_OverlimitDropsExcessPackets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlowsCnt = 64
	cfg.Limit = 4
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var sawCongestion bool
	for i := 0; i < 10; i++ {
		if s.Enqueue(NewSimPacket("flow-a", 100)) == Congestion {
			sawCongestion = true
		}
	}
	if !sawCongestion {
		t.Fatal("expected at least one Congestion result once Limit was exceeded by a single flow")
	}
	st := s.Snapshot()
	if st.TotalPackets > cfg.Limit {
		t.Fatalf("TotalPackets = %d, want <= Limit (%d)", st.TotalPackets, cfg.Limit)
	}
	if st.Drops[DropOverlimit] == 0 {
		t.Fatal("Drops[DropOverlimit] = 0, want at least one overlimit drop recorded")
	}
}

func TestScheduler_ClassifierBypassCountsAsDropped(t *testing.T) {
	s := newTestScheduler(t, 64)
	s.Classifier = rejectAllClassifier{}

	status := s.Enqueue(NewSimPacket("flow-a", 100))
	if status != Dropped {
		t.Fatalf("Enqueue with a rejecting classifier = %v, want Dropped", status)
	}
	st := s.Snapshot()
	if st.BypassDrops != 1 {
		t.Fatalf("BypassDrops = %d, want 1", st.BypassDrops)
	}
	if st.TotalPackets != 0 {
		t.Fatalf("TotalPackets = %d, want 0 for a bypassed packet", st.TotalPackets)
	}
}

type rejectAllClassifier struct{}

func (rejectAllClassifier) Classify(Packet) int { return 0 }

func TestScheduler_ConfigureRejectsFlowsCntChange(t *testing.T) {
	s := newTestScheduler(t, 64)
	cfg := DefaultConfig()
	cfg.FlowsCnt = 128
	if err := s.Configure(cfg); err != ErrFlowsCntImmutable {
		t.Fatalf("Configure with a different FlowsCnt = %v, want ErrFlowsCntImmutable", err)
	}
}

func TestScheduler_ConfigureDrainsToNewLimit(t *testing.T) {
	s := newTestScheduler(t, 64)
	for i := 0; i < 20; i++ {
		s.Enqueue(NewSimPacket("flow-a", 100))
	}

	cfg := DefaultConfig()
	cfg.FlowsCnt = 64
	cfg.Limit = 5
	if err := s.Configure(cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if st := s.Snapshot(); st.TotalPackets > cfg.Limit {
		t.Fatalf("TotalPackets after Configure = %d, want <= %d", st.TotalPackets, cfg.Limit)
	}
}

func TestScheduler_ResetClearsStateButKeepsConfig(t *testing.T) {
	s := newTestScheduler(t, 64)
	s.Enqueue(NewSimPacket("flow-a", 100))
	s.Reset()

	if st := s.Snapshot(); st.TotalPackets != 0 || st.TotalBytes != 0 {
		t.Fatalf("Snapshot after Reset = %+v, want zeroed", st)
	}
	if pkt := s.Dequeue(); pkt != nil {
		t.Fatal("Dequeue after Reset should return nil")
	}
	// the flow must be re-admittable to the new-flow list, proving the
	// cuckoo table and free-slot index were actually cleared, not just
	// the counters.
	if status := s.Enqueue(NewSimPacket("flow-a", 100)); status != OK {
		t.Fatalf("Enqueue after Reset = %v, want OK", status)
	}
}

func TestScheduler_WalkVisitsOnlyNonEmptyFlows(t *testing.T) {
	s := newTestScheduler(t, 64)
	s.Enqueue(NewSimPacket("flow-a", 100))
	s.Enqueue(NewSimPacket("flow-b", 100))

	var seen []int
	s.Walk(func(info FlowInfo) {
		seen = append(seen, info.Slot)
		if info.PacketCount != 1 {
			t.Fatalf("FlowInfo.PacketCount = %d, want 1", info.PacketCount)
		}
	})
	if len(seen) != 2 {
		t.Fatalf("Walk visited %d flows, want 2", len(seen))
	}
}
