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

// Package core manages the set of live fqcodel.Scheduler instances backing
// a netqueue deployment (one per interface, tenant, or shard) and the
// background worker that drains their statistics and evicts idle queues.
package core

import "sync/atomic"

var (
	enqueued atomic.Int64
	dequeued atomic.Int64
	dropped  atomic.Int64
)

// RecordEnqueue increments the process-level enqueue counter.
func RecordEnqueue(n int64) {
	if n > 0 {
		enqueued.Add(n)
	}
}

// RecordDequeue increments the process-level dequeue counter.
func RecordDequeue(n int64) {
	if n > 0 {
		dequeued.Add(n)
	}
}

// RecordDrop increments the process-level drop counter.
func RecordDrop(n int64) {
	if n > 0 {
		dropped.Add(n)
	}
}

// getEventTotals provides a snapshot of the current counters.
func getEventTotals() (enqueuedN, dequeuedN, droppedN int64) {
	return enqueued.Load(), dequeued.Load(), dropped.Load()
}

// resetEventTotals resets counters to zero. Intended for tests only.
func resetEventTotals() {
	enqueued.Store(0)
	dequeued.Store(0)
	dropped.Store(0)
}
