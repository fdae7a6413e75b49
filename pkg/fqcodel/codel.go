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

import "math"

// codelCarryWindow is the "recent dropping episode" window (16 intervals)
// within which a new dropping episode carries over its packet count
// instead of resetting to 1, per the standard CoDel control law.
const codelCarryWindow = 16

// codelState is the per-flow CoDel control block. All times are
// monotonic nanoseconds on the scheduler's Clock.
type codelState struct {
	firstAboveTime int64 // 0 means "not currently above target"
	dropNext       int64
	count          uint32
	lastCount      uint32
	dropping       bool
}

// invSqrtInterval returns interval / sqrt(count), the CoDel control law's
// per-drop schedule spacing. count == 0 is treated as "no spacing yet"
// and returns interval unchanged. math.Sqrt is used directly rather than
// a fixed-point Newton table: both are equally deterministic in Go
// (IEEE-754 float64 arithmetic is fully specified), and the direct form
// needs no precomputed table to keep in sync with FlowsCnt or Interval.
func invSqrtInterval(interval int64, count uint32) int64 {
	if count == 0 {
		return interval
	}
	return int64(float64(interval) / math.Sqrt(float64(count)))
}

// codelDoDequeue pops the flow's FIFO head (if any), accounts its removal
// from the scheduler's backlog/byte/packet totals unconditionally (the
// packet is leaving the queue either way, whether it is ultimately
// returned to the caller or dropped by the caller's dropping-state
// handling), and evaluates the sojourn test. okToDrop means the packet
// has been above target for at least one full interval.
func (s *Scheduler) codelDoDequeue(slot int32, now int64) (pkt Packet, okToDrop bool) {
	f := &s.flows[slot]
	pkt = f.fifoPop()
	if pkt == nil {
		return nil, false
	}
	s.accountDequeue(slot, pkt)

	sojourn := now - pkt.EnqueueTime()
	underMTU := s.totalBytes < uint64(s.cfg.Quantum)
	if sojourn < int64(s.cfg.Target) || underMTU {
		f.codel.firstAboveTime = 0
		return pkt, false
	}
	if f.codel.firstAboveTime == 0 {
		f.codel.firstAboveTime = now + int64(s.cfg.Interval)
		return pkt, false
	}
	if now >= f.codel.firstAboveTime {
		return pkt, true
	}
	return pkt, false
}

// dropOrMark applies the CoDel drop-machine's effect to pkt: if ECN is
// enabled and the packet is ECN-capable, it is CE-marked and kept
// (returns false, "not removed"); otherwise it is dropped (already
// removed from the FIFO by the caller) and counted (returns true).
func (s *Scheduler) dropOrMark(slot int32, pkt Packet) (dropped bool) {
	if s.cfg.ECNEnable && pkt.IsECNCapable() {
		pkt.MarkECN()
		s.stats.ECNMarks++
		return false
	}
	s.flows[slot].dropCount++
	s.stats.Drops[DropCoDel]++
	return true
}

// codelDequeue implements the dequeue-side CoDel contract: pull a
// candidate, run the OK_TO_DROP state machine (drop-or-mark at an
// accelerating interval/sqrt(count) schedule while in the dropping
// state), and CE-mark the eventually-returned packet if its sojourn
// exceeds CEThreshold. Returns nil when the flow's FIFO is exhausted.
func (s *Scheduler) codelDequeue(slot int32, now int64) Packet {
	f := &s.flows[slot]
	for {
		pkt, okToDrop := s.codelDoDequeue(slot, now)
		if pkt == nil {
			f.codel.dropping = false
			return nil
		}

		if f.codel.dropping {
			if !okToDrop {
				f.codel.dropping = false
				return s.applyCEThreshold(pkt, now)
			}
			for now >= f.codel.dropNext {
				removed := s.dropOrMark(slot, pkt)
				f.codel.count++
				f.codel.dropNext += invSqrtInterval(int64(s.cfg.Interval), f.codel.count)
				if !removed {
					return s.applyCEThreshold(pkt, now)
				}
				pkt, okToDrop = s.codelDoDequeue(slot, now)
				if pkt == nil {
					f.codel.dropping = false
					return nil
				}
				if !okToDrop {
					f.codel.dropping = false
					return s.applyCEThreshold(pkt, now)
				}
			}
			return s.applyCEThreshold(pkt, now)
		}

		if okToDrop {
			removed := s.dropOrMark(slot, pkt)
			if f.codel.count > 2 && now-f.codel.dropNext < codelCarryWindow*int64(s.cfg.Interval) {
				f.codel.count -= f.codel.lastCount
			} else {
				f.codel.count = 1
			}
			f.codel.lastCount = f.codel.count
			f.codel.dropNext = now + invSqrtInterval(int64(s.cfg.Interval), f.codel.count)
			f.codel.dropping = true
			if !removed {
				return s.applyCEThreshold(pkt, now)
			}
			pkt, _ = s.codelDoDequeue(slot, now)
			if pkt == nil {
				f.codel.dropping = false
				return nil
			}
			return s.applyCEThreshold(pkt, now)
		}

		return s.applyCEThreshold(pkt, now)
	}
}

// applyCEThreshold CE-marks pkt if CEThreshold is configured and its
// sojourn exceeds it. This mark is independent of the drop-machine's
// own ECN marking in dropOrMark.
func (s *Scheduler) applyCEThreshold(pkt Packet, now int64) Packet {
	if s.cfg.CEThreshold > 0 {
		sojourn := now - pkt.EnqueueTime()
		if sojourn > int64(s.cfg.CEThreshold) {
			pkt.MarkECN()
			s.stats.ECNMarks++
		}
	}
	return pkt
}
