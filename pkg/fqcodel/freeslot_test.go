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

func TestFreeSlotIndex_NextEmptyIsLowestNumbered(t *testing.T) {
	idx := newFreeSlotIndex(40)
	idx.markOccupied(0)
	idx.markOccupied(1)

	slot, ok := idx.nextEmpty()
	if !ok || slot != 2 {
		t.Fatalf("nextEmpty() = (%d, %v), want (2, true)", slot, ok)
	}
}

func TestFreeSlotIndex_FullyOccupiedReturnsNotOK(t *testing.T) {
	idx := newFreeSlotIndex(3)
	for i := 0; i < 3; i++ {
		idx.markOccupied(i)
	}
	if _, ok := idx.nextEmpty(); ok {
		t.Fatal("nextEmpty() on a fully occupied index = true, want false")
	}
}

func TestFreeSlotIndex_MarkEmptyReclaimsSlot(t *testing.T) {
	idx := newFreeSlotIndex(8)
	for i := 0; i < 8; i++ {
		idx.markOccupied(i)
	}
	idx.markEmpty(5)
	slot, ok := idx.nextEmpty()
	if !ok || slot != 5 {
		t.Fatalf("nextEmpty() after markEmpty(5) = (%d, %v), want (5, true)", slot, ok)
	}
}

// TestFreeSlotIndex_SpansMultipleLevel2Words exercises F > 32, which
// requires the level-1 summary to track more than one level-2 word.
func TestFreeSlotIndex_SpansMultipleLevel2Words(t *testing.T) {
	idx := newFreeSlotIndex(100)
	for i := 0; i < 99; i++ {
		idx.markOccupied(i)
	}
	slot, ok := idx.nextEmpty()
	if !ok || slot != 99 {
		t.Fatalf("nextEmpty() = (%d, %v), want (99, true)", slot, ok)
	}
}

// TestFreeSlotIndex_SpansMultipleLevel1Words exercises F > 1024, which
// widens level 1 itself from a single word to an array.
func TestFreeSlotIndex_SpansMultipleLevel1Words(t *testing.T) {
	const f = 2000
	idx := newFreeSlotIndex(f)
	for i := 0; i < f-1; i++ {
		idx.markOccupied(i)
	}
	slot, ok := idx.nextEmpty()
	if !ok || slot != f-1 {
		t.Fatalf("nextEmpty() = (%d, %v), want (%d, true)", slot, ok, f-1)
	}
	idx.markOccupied(f - 1)
	if _, ok := idx.nextEmpty(); ok {
		t.Fatal("nextEmpty() on a fully occupied 2000-slot index = true, want false")
	}
}

func TestFreeSlotIndex_TailWordMaskedOnReset(t *testing.T) {
	// f=10 leaves 22 of the 32 bits in the single level-2 word unused;
	// those must never be reported as empty slots.
	idx := newFreeSlotIndex(10)
	for i := 0; i < 10; i++ {
		slot, ok := idx.nextEmpty()
		if !ok {
			t.Fatalf("nextEmpty() #%d: ok=false before exhausting the 10 valid slots", i)
		}
		idx.markOccupied(slot)
	}
	if _, ok := idx.nextEmpty(); ok {
		t.Fatal("nextEmpty() after occupying all 10 valid slots = true, want false (tail bits leaked)")
	}
}
