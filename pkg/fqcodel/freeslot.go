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

import "math/bits"

// freeSlotIndex is a two-level bitmap locating an unused flow record in
// bounded time. Level 2 holds one bit per flow slot (set = empty); level 1
// summarizes which level-2 words have at least one empty slot. For
// F <= 1024 there is exactly one level-1 word, as described in the data
// model; larger F widens level 1 to an array, scanned linearly (at most
// 64 words for the largest permitted F of 65536), which keeps slot lookup
// bounded without a third tree level.
type freeSlotIndex struct {
	f      int
	level2 []uint32
	level1 []uint32
}

func newFreeSlotIndex(f int) *freeSlotIndex {
	l2n := (f + 31) / 32
	l1n := (l2n + 31) / 32
	if l1n < 1 {
		l1n = 1
	}
	idx := &freeSlotIndex{
		f:      f,
		level2: make([]uint32, l2n),
		level1: make([]uint32, l1n),
	}
	idx.resetAllEmpty()
	return idx
}

// resetAllEmpty marks every slot in [0, f) empty. Every bit of every
// level-2 word is set to 1 (not every byte set to the literal value 1,
// which would leave only one bit in eight set per byte); the tail word is
// masked so slots >= f are never reported as empty.
func (idx *freeSlotIndex) resetAllEmpty() {
	for i := range idx.level2 {
		idx.level2[i] = ^uint32(0)
	}
	if rem := idx.f % 32; rem != 0 {
		idx.level2[len(idx.level2)-1] = (uint32(1) << uint(rem)) - 1
	}
	for i := range idx.level1 {
		idx.level1[i] = ^uint32(0)
	}
	if rem := len(idx.level2) % 32; rem != 0 {
		idx.level1[len(idx.level1)-1] = (uint32(1) << uint(rem)) - 1
	}
}

// nextEmpty returns the lowest-numbered empty slot, or ok=false if the
// index is fully occupied. Ordering is deterministic given the index
// state, as required.
func (idx *freeSlotIndex) nextEmpty() (slot int, ok bool) {
	for w, word := range idx.level1 {
		if word == 0 {
			continue
		}
		b := bits.TrailingZeros32(word)
		l2w := w*32 + b
		l2word := idx.level2[l2w]
		if l2word == 0 {
			continue // summary bit stale; shouldn't happen, but stay safe
		}
		bit := bits.TrailingZeros32(l2word)
		return l2w*32 + bit, true
	}
	return 0, false
}

// markEmpty sets both level bits for slot: it is now unused.
func (idx *freeSlotIndex) markEmpty(slot int) {
	w, b := slot/32, uint(slot%32)
	idx.level2[w] |= 1 << b
	idx.level1[w/32] |= 1 << uint(w%32)
}

// markOccupied clears the level-2 bit for slot, and the level-1 bit iff
// the whole level-2 word becomes zero.
func (idx *freeSlotIndex) markOccupied(slot int) {
	w, b := slot/32, uint(slot%32)
	idx.level2[w] &^= 1 << b
	if idx.level2[w] == 0 {
		idx.level1[w/32] &^= 1 << uint(w%32)
	}
}

// isEmpty reports whether slot's bit is currently set (flow unused).
func (idx *freeSlotIndex) isEmpty(slot int) bool {
	w, b := slot/32, uint(slot%32)
	return idx.level2[w]&(1<<b) != 0
}
