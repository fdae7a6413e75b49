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
	"sync"
	"sync/atomic"
	"time"

	"fqcodel/pkg/fqcodel"
)

// managedQueue wraps a *fqcodel.Scheduler with the bookkeeping the
// background worker needs: when it was last touched, and a sequence
// number used to make exported snapshot digests idempotent.
type managedQueue struct {
	sched        *fqcodel.Scheduler
	lastAccessed int64 // UnixNano, atomic
	seq          atomic.Int64
}

// Store manages a named collection of fqcodel.Scheduler instances, one per
// interface, tenant, or shard. It is safe for concurrent use.
type Store struct {
	queues sync.Map // map[string]*managedQueue
	newCfg fqcodel.Config
}

// NewStore creates a store that constructs new queues with cfg.
func NewStore(cfg fqcodel.Config) *Store {
	return &Store{newCfg: cfg}
}

// GetOrCreate returns the scheduler for name, creating it (with the
// store's configured defaults) on first use.
func (s *Store) GetOrCreate(name string) (*fqcodel.Scheduler, error) {
	if actual, ok := s.queues.Load(name); ok {
		mq := actual.(*managedQueue)
		atomic.StoreInt64(&mq.lastAccessed, time.Now().UnixNano())
		return mq.sched, nil
	}

	sched, err := fqcodel.New(s.newCfg)
	if err != nil {
		return nil, err
	}
	mq := &managedQueue{sched: sched, lastAccessed: time.Now().UnixNano()}
	if actual, loaded := s.queues.LoadOrStore(name, mq); loaded {
		existing := actual.(*managedQueue)
		atomic.StoreInt64(&existing.lastAccessed, time.Now().UnixNano())
		return existing.sched, nil
	}
	return sched, nil
}

// ForEach iterates every live queue.
func (s *Store) ForEach(f func(name string, sched *fqcodel.Scheduler)) {
	s.queues.Range(func(key, value any) bool {
		mq := value.(*managedQueue)
		f(key.(string), mq.sched)
		return true
	})
}

// Delete removes a named queue from the store.
func (s *Store) Delete(name string) {
	s.queues.Delete(name)
}

// nextSeq returns a monotonically increasing per-queue sequence number,
// used to give exported statistics snapshots an idempotency key.
func (s *Store) nextSeq(name string) int64 {
	if actual, ok := s.queues.Load(name); ok {
		return actual.(*managedQueue).seq.Add(1)
	}
	return 0
}
