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

// listMembership records which (if either) of the new/old flow lists a
// flow currently belongs to.
type listMembership uint8

const (
	memberNone listMembership = iota
	memberNew
	memberOld
)

// flowRecord is one per-flow queue: a FIFO threaded through the packets'
// own Next pointers, a deficit-round-robin counter, an embedded CoDel
// control block, and linkage into whichever of {new, old} flow list it
// currently belongs to (or neither).
type flowRecord struct {
	head, tail Packet
	qlen       int

	deficit   int64
	dropCount uint64

	// hash0/hash1 are the cuckoo-table bucket indices computed for the
	// most recent packet classified into this flow. They are stored here
	// (rather than recomputed from whatever packet happens to be
	// dequeued last) so that cuckoo-table cleanup on flow emptying always
	// targets the buckets that actually reference this flow, even though
	// the packet that originally caused the classification may be long
	// gone by the time the flow empties.
	hash0, hash1 uint32

	member     listMembership
	prev, next int32 // slot indices; meaningful only while member != memberNone

	codel codelState
}

// empty reports whether the flow's FIFO currently holds no packets.
func (f *flowRecord) empty() bool { return f.head == nil }

// fifoPush appends pkt to the flow's FIFO in O(1).
func (f *flowRecord) fifoPush(pkt Packet) {
	pkt.SetNext(nil)
	if f.tail == nil {
		f.head = pkt
	} else {
		f.tail.SetNext(pkt)
	}
	f.tail = pkt
	f.qlen++
}

// fifoPop removes and returns the flow's head packet in O(1), or nil if
// the FIFO is empty.
func (f *flowRecord) fifoPop() Packet {
	pkt := f.head
	if pkt == nil {
		return nil
	}
	f.head = pkt.Next()
	if f.head == nil {
		f.tail = nil
	}
	pkt.SetNext(nil)
	f.qlen--
	return pkt
}

// flowList is a doubly-linked intrusive list of flow slots (new-flows or
// old-flows). head/tail are slot indices, -1 when the list is empty.
type flowList struct {
	head, tail int32
}

func newFlowList() flowList { return flowList{head: -1, tail: -1} }

func (l *flowList) isEmpty() bool { return l.head == -1 }

// pushBack links slot onto the tail of the list, tagging it with member.
// slot must not already belong to any list.
func (l *flowList) pushBack(flows []flowRecord, slot int32, member listMembership) {
	f := &flows[slot]
	f.member = member
	f.prev = l.tail
	f.next = -1
	if l.tail != -1 {
		flows[l.tail].next = slot
	} else {
		l.head = slot
	}
	l.tail = slot
}

// remove detaches slot from the list in O(1) and clears its membership.
func (l *flowList) remove(flows []flowRecord, slot int32) {
	f := &flows[slot]
	if f.prev != -1 {
		flows[f.prev].next = f.next
	} else {
		l.head = f.next
	}
	if f.next != -1 {
		flows[f.next].prev = f.prev
	} else {
		l.tail = f.prev
	}
	f.prev, f.next = -1, -1
	f.member = memberNone
}
