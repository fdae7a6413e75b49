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

package classify

import (
	"testing"

	"fqcodel/pkg/fqcodel"
)

func TestNewRendezvousClassifier_RejectsEmptyClasses(t *testing.T) {
	if _, err := NewRendezvousClassifier(nil, 16); err == nil {
		t.Fatal("NewRendezvousClassifier(nil classes) = nil error, want error")
	}
}

func TestNewRendezvousClassifier_RejectsFlowsCntSmallerThanClassCount(t *testing.T) {
	if _, err := NewRendezvousClassifier([]string{"a", "b", "c"}, 2); err == nil {
		t.Fatal("NewRendezvousClassifier(flowsCnt < len(classes)) = nil error, want error")
	}
}

func TestClassify_ReturnsSlotWithinClassShard(t *testing.T) {
	classes := []string{"gold", "silver", "bronze"}
	const flowsCnt = 30
	c, err := NewRendezvousClassifier(classes, flowsCnt)
	if err != nil {
		t.Fatalf("NewRendezvousClassifier: %v", err)
	}
	shardSize := flowsCnt / len(classes)

	for i := 0; i < 200; i++ {
		pkt := fqcodel.NewSimPacket(flowNameFor(i), 64)
		slot := c.Classify(pkt)
		if slot < 1 || slot > flowsCnt {
			t.Fatalf("Classify() = %d, out of table range [1, %d]", slot, flowsCnt)
		}
		classIdx := (slot - 1) / shardSize
		if classIdx < 0 || classIdx >= len(classes) {
			t.Fatalf("slot %d maps outside any class shard", slot)
		}
	}
}

func TestClassify_SameFlowIsDeterministic(t *testing.T) {
	classes := []string{"a", "b", "c", "d"}
	c, err := NewRendezvousClassifier(classes, 40)
	if err != nil {
		t.Fatalf("NewRendezvousClassifier: %v", err)
	}
	pkt := fqcodel.NewSimPacket("steady-flow", 128)
	first := c.Classify(pkt)
	for i := 0; i < 50; i++ {
		if got := c.Classify(pkt); got != first {
			t.Fatalf("Classify() = %d on call %d, want stable %d", got, i, first)
		}
	}
}

func TestReduce_StaysWithinBounds(t *testing.T) {
	for _, n := range []int{1, 5, 37, 1024} {
		for _, x := range []uint32{0, 1, 0x7fffffff, 0xffffffff} {
			got := reduce(x, n)
			if int(got) < 0 || int(got) >= n {
				t.Fatalf("reduce(%d, %d) = %d, out of [0, %d)", x, n, got, n)
			}
		}
	}
}

func TestReduce_ZeroOrNegativeNIsZero(t *testing.T) {
	if got := reduce(12345, 0); got != 0 {
		t.Fatalf("reduce(x, 0) = %d, want 0", got)
	}
	if got := reduce(12345, -3); got != 0 {
		t.Fatalf("reduce(x, -3) = %d, want 0", got)
	}
}

func flowNameFor(i int) string {
	letters := "abcdefghijklmnopqrstuvwxyz"
	return string(letters[i%len(letters)]) + string(letters[(i/len(letters))%len(letters)])
}
