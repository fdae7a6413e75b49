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

package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fqcodel/pkg/fqcodel"
)

// QueueSnapshot pairs a queue's name and sequence number with the
// fqcodel.Stats sampled from it, the unit the reporting adapters ship
// out-of-process.
type QueueSnapshot struct {
	Name  string
	Seq   int64
	Stats fqcodel.Stats
}

// Reporter is the interface for any statistics export backend. This lets
// the worker ship snapshot digests to Redis, Kafka, or just stdout
// without depending on a concrete client.
type Reporter interface {
	ReportBatch(snapshots []QueueSnapshot) error
}

// NewLoggingReporter creates a reporter that prints snapshots to stdout.
// Used for demos and as the zero-value default.
func NewLoggingReporter() Reporter {
	return &loggingReporter{}
}

type loggingReporter struct{ mu sync.Mutex }

func (r *loggingReporter) ReportBatch(snapshots []QueueSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Printf("[%s] exporting %d queue snapshots\n", time.Now().Format(time.RFC3339), len(snapshots))
	for _, snap := range snapshots {
		fmt.Printf("  - %-16s seq=%-6d packets=%-6d bytes=%-10d drops(overlimit=%d overmemory=%d codel=%d) ecn=%d\n",
			snap.Name, snap.Seq, snap.Stats.TotalPackets, snap.Stats.TotalBytes,
			snap.Stats.Drops[fqcodel.DropOverlimit], snap.Stats.Drops[fqcodel.DropOvermemory], snap.Stats.Drops[fqcodel.DropCoDel],
			snap.Stats.ECNMarks)
	}
	return nil
}

// Worker periodically exports queue statistics and evicts idle queues
// from a Store: two ticker-driven goroutines, a close-once stop channel,
// and a WaitGroup-backed graceful shutdown.
type Worker struct {
	store            *Store
	reporter         Reporter
	exportInterval   time.Duration
	evictionAge      time.Duration
	evictionInterval time.Duration
	stopChan         chan struct{}
	wg               sync.WaitGroup
	stopped          uint32
}

// NewWorker configures a background worker for store.
//
// exportInterval: how often queue snapshots are pushed to reporter.
// evictionAge: how long a queue may sit with an empty backlog and no
// GetOrCreate touch before it is dropped from the store.
// evictionInterval: how often we scan for idle queues.
func NewWorker(store *Store, reporter Reporter, exportInterval, evictionAge, evictionInterval time.Duration) *Worker {
	return &Worker{
		store:            store,
		reporter:         reporter,
		exportInterval:   exportInterval,
		evictionAge:      evictionAge,
		evictionInterval: evictionInterval,
		stopChan:         make(chan struct{}),
	}
}

// Start launches the background goroutines.
func (w *Worker) Start() {
	fmt.Println("Starting netqueue background worker...")
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.exportLoop()
	}()
	go func() {
		defer w.wg.Done()
		w.evictionLoop()
	}()
}

// Stop gracefully stops the worker, flushing one final export.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	fmt.Println("Stopping netqueue background worker...")
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) exportLoop() {
	ticker := time.NewTicker(w.exportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.runExportCycle()
		case <-w.stopChan:
			w.runExportCycle()
			return
		}
	}
}

func (w *Worker) runExportCycle() {
	var snapshots []QueueSnapshot
	w.store.ForEach(func(name string, sched *fqcodel.Scheduler) {
		seq := w.store.nextSeq(name)
		snapshots = append(snapshots, QueueSnapshot{Name: name, Seq: seq, Stats: sched.Snapshot()})
	})
	if len(snapshots) == 0 {
		return
	}
	if err := w.reporter.ReportBatch(snapshots); err != nil {
		fmt.Printf("ERROR: failed to export queue snapshots: %v\n", err)
	}
}

func (w *Worker) evictionLoop() {
	ticker := time.NewTicker(w.evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.runEvictionCycle()
		case <-w.stopChan:
			return
		}
	}
}

func (w *Worker) runEvictionCycle() {
	var toEvict []string
	now := time.Now()
	w.store.queues.Range(func(key, value any) bool {
		name := key.(string)
		mq := value.(*managedQueue)
		last := atomic.LoadInt64(&mq.lastAccessed)
		idle := now.Sub(time.Unix(0, last)) > w.evictionAge
		empty := mq.sched.Snapshot().TotalPackets == 0
		if idle && empty {
			toEvict = append(toEvict, name)
		}
		return true
	})
	for _, name := range toEvict {
		w.store.Delete(name)
	}
}
