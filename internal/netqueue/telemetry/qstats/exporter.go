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

package qstats

import (
	"sync"
	"time"

	"fqcodel/internal/netqueue/core"
	"fqcodel/pkg/fqcodel"
)

// Exporter periodically samples a core.Store's scheduler instances,
// setting the package's occupancy gauges and folding cumulative drop/ECN
// counters forward as deltas against the previous sample (so repeated
// samples never re-add a queue's lifetime totals). The previous samples
// are held per Exporter; a newly created Exporter adds each queue's full
// totals on its first sample.
type Exporter struct {
	store    *core.Store
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}

	mu   sync.Mutex
	last map[string]fqcodel.Stats
}

// NewExporter creates an exporter sampling store every interval.
func NewExporter(store *core.Store, interval time.Duration) *Exporter {
	return &Exporter{
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		last:     make(map[string]fqcodel.Stats),
	}
}

// Start launches the sampling loop. No-op if interval <= 0.
func (e *Exporter) Start() {
	if e.interval <= 0 {
		close(e.done)
		return
	}
	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.sample()
			case <-e.stopChan:
				return
			}
		}
	}()
}

// Stop halts the sampling loop and waits for it to exit.
func (e *Exporter) Stop() {
	close(e.stopChan)
	<-e.done
}

func (e *Exporter) sample() {
	var active, totalPackets int
	var totalBytes uint64

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.ForEach(func(name string, sched *fqcodel.Scheduler) {
		active++
		st := sched.Snapshot()
		totalPackets += st.TotalPackets
		totalBytes += st.TotalBytes

		prev := e.last[name]
		dropsOverlimitTotal.Add(float64(deltaU64(prev.Drops[fqcodel.DropOverlimit], st.Drops[fqcodel.DropOverlimit])))
		dropsOvermemoryTotal.Add(float64(deltaU64(prev.Drops[fqcodel.DropOvermemory], st.Drops[fqcodel.DropOvermemory])))
		dropsCoDelTotal.Add(float64(deltaU64(prev.Drops[fqcodel.DropCoDel], st.Drops[fqcodel.DropCoDel])))
		ecnMarksTotal.Add(float64(deltaU64(prev.ECNMarks, st.ECNMarks)))

		e.last[name] = st
	})

	queuesActive.Set(float64(active))
	backlogBytes.Set(float64(totalBytes))
	backlogPackets.Set(float64(totalPackets))
}

// deltaU64 returns the non-negative increase from prev to cur, treating a
// decrease (queue was reset or recreated) as zero rather than underflowing.
func deltaU64(prev, cur uint64) uint64 {
	if cur <= prev {
		return 0
	}
	return cur - prev
}
