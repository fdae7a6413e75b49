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

// overloadDrop implements the fat-flow overload policy: find the
// flow with the largest backlog (ties broken by first occurrence), then
// head-drop up to DropBatchSize packets from it, stopping early once the
// bytes dropped exceed half of that flow's starting backlog. It returns
// the slot drained, or -1 if there was nothing to drop. cause labels the
// per-cause drop counters (overlimit vs overmemory).
func (s *Scheduler) overloadDrop(cause DropCause) int {
	maxSlot := -1
	var maxBytes uint64
	for i := 0; i < s.cfg.FlowsCnt; i++ {
		if s.backlog[i] > maxBytes {
			maxBytes = s.backlog[i]
			maxSlot = i
		}
	}
	if maxSlot == -1 {
		return -1
	}

	f := &s.flows[maxSlot]
	if f.empty() {
		return maxSlot
	}

	halfBacklog := maxBytes / 2
	var droppedBytes uint64
	for i := 0; i < s.cfg.DropBatchSize; i++ {
		pkt := f.fifoPop()
		if pkt == nil {
			break
		}
		s.accountDequeue(int32(maxSlot), pkt)
		f.dropCount++
		s.stats.Drops[cause]++
		droppedBytes += uint64(pkt.ByteLength())
		if droppedBytes > halfBacklog {
			break
		}
	}

	if f.empty() {
		s.free.markEmpty(maxSlot)
		s.cuckooClear(int32(maxSlot))
		s.detachFromLists(int32(maxSlot))
	}
	return maxSlot
}

// detachFromLists removes slot from whichever of {new, old} flow list it
// currently belongs to, if any.
func (s *Scheduler) detachFromLists(slot int32) {
	switch s.flows[slot].member {
	case memberNew:
		s.newList.remove(s.flows, slot)
	case memberOld:
		s.oldList.remove(s.flows, slot)
	}
}
