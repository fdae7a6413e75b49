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

// Package classify provides an optional external classifier that can be
// installed ahead of the scheduler's internal cuckoo hash table
// (fqcodel.Scheduler.Classifier). It partitions the flow table into
// fixed-size shards, one per configured class, and uses rendezvous
// (highest-random-weight) hashing to assign each packet's flow to a
// shard. Rendezvous hashing is used instead of a plain modulo because it
// is stable under class-set growth: adding or removing a class only
// remaps the keys that actually belonged to the changed class, instead
// of reshuffling the whole table the way `hash % n` does.
package classify

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"

	"fqcodel/pkg/fqcodel"
)

// shardHasher adapts xxhash to the rendezvous.Hasher signature.
func shardHasher(s string) uint64 { return xxhash.Sum64String(s) }

// RendezvousClassifier implements fqcodel.Classifier by mapping each
// packet's flow hash to one of a fixed set of named classes via
// rendezvous hashing, then to a specific flow slot within that class's
// shard of the flow table via a fixed reduction of the packet's own hash.
//
// This classifier does not do collision handling the way the cuckoo
// table does: two flows that land on the same shard slot simply share
// it, trading perfect per-flow isolation for O(1), allocation-free
// classification and shard stability. This matches the "black-box
// filter" characterization of an external classifier in the scheduler's
// design: callers that need per-flow precision should leave Classifier
// unset and let the cuckoo table handle it.
type RendezvousClassifier struct {
	rv        *rendezvous.Rendezvous
	classes   []string
	shardSize int
	seed      uint32
}

// NewRendezvousClassifier builds a classifier over the given class names,
// partitioning a flowsCnt-slot table evenly across them. flowsCnt must
// match the Scheduler's Config.FlowsCnt it will be installed on.
func NewRendezvousClassifier(classes []string, flowsCnt int) (*RendezvousClassifier, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("classify: at least one class is required")
	}
	if flowsCnt < len(classes) {
		return nil, fmt.Errorf("classify: flowsCnt (%d) must be >= number of classes (%d)", flowsCnt, len(classes))
	}
	return &RendezvousClassifier{
		rv:        rendezvous.New(classes, shardHasher),
		classes:   classes,
		shardSize: flowsCnt / len(classes),
		seed:      0x9e3779b9, // fixed mixing constant, independent of the cuckoo table's own seeds
	}, nil
}

// Classify implements fqcodel.Classifier.
func (c *RendezvousClassifier) Classify(pkt fqcodel.Packet) int {
	key := flowKey(pkt)
	class := c.rv.Lookup(key)
	classIdx := classIndex(c.classes, class)
	if classIdx < 0 {
		return 0
	}
	offset := reduce(pkt.FlowHashPerturb(c.seed), c.shardSize)
	return classIdx*c.shardSize + int(offset) + 1
}

func classIndex(classes []string, name string) int {
	for i, c := range classes {
		if c == name {
			return i
		}
	}
	return -1
}

// flowKey renders a packet's flow hash as a stable string key for
// rendezvous hashing.
func flowKey(pkt fqcodel.Packet) string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], pkt.FlowHash())
	return string(buf[:])
}

// reduce is a fair, division-free reduction of a 32-bit hash into [0, n).
func reduce(x uint32, n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((uint64(x) * uint64(n)) >> 32)
}
