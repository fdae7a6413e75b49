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

// Package reporting provides adapters that ship derived queue statistics
// (never scheduler state used for resumption) to an external sink.
//
// Adapters implement a common shape keyed by (queue name, sequence
// number) so a retried export (crash, timeout, duplicate delivery) is a
// no-op rather than double-counting.
package reporting

import "context"

// DigestEntry is the adapter-facing shape for one queue's exported
// statistics digest.
//
//   - Name: the queue this digest belongs to (interface, tenant, shard id)
//   - Seq: monotonically increasing per-queue sequence number; re-using
//     the same (Name, Seq) pair for a retried export makes it idempotent.
//   - TotalPackets/TotalBytes/MemoryUsage: instantaneous occupancy.
//   - DropsOverlimit/DropsOvermemory/DropsCoDel/ECNMarks: cumulative
//     counters as of this sample.
type DigestEntry struct {
	Name            string
	Seq             int64
	TotalPackets    int
	TotalBytes      uint64
	MemoryUsage     uint64
	DropsOverlimit  uint64
	DropsOvermemory uint64
	DropsCoDel      uint64
	ECNMarks        uint64
}

// IdempotentReporter defines the minimal API supported by all adapters.
// Implementations must treat a duplicate (Name, Seq) pair as a no-op and
// should batch where the backend supports it.
type IdempotentReporter interface {
	ReportBatch(ctx context.Context, entries []DigestEntry) error
}
