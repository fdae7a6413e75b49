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

// pkt-loadgen is a tiny, dependency-free synthetic multi-flow packet
// generator for a fqcodel.Scheduler. It never touches the network: it
// creates its own Scheduler and calls Enqueue/Dequeue directly
// in-process, which makes it a standalone microbenchmark.
//
// Modes:
//   - single: one flow, N packets, fixed size
//   - mix:    a few "elephant" flows sending large packets and many
//     "mouse" flows sending small ones, the classic skew FQ-CoDel's
//     new/old flow priority is designed to keep fair under
//
// Usage examples:
//
//	pkt-loadgen -mode=single -key=flow-a -n=20000 -size=512
//	pkt-loadgen -mode=mix -elephants=4 -mice=200 -n=200000
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fqcodel/pkg/fqcodel"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeMix    modeType = "mix"
)

func main() {
	var (
		modeS = flag.String("mode", string(modeSingle), "Mode: single|mix")
		key   = flag.String("key", "flow-a", "Flow key for single mode")
		size  = flag.Int("size", 512, "Packet byte length for single mode")

		elephants = flag.Int("elephants", 4, "Number of steady high-rate flows in mix mode")
		mice      = flag.Int("mice", 200, "Number of short-lived low-rate flows in mix mode")

		n    = flag.Int("n", 100000, "Total packets to enqueue")
		c    = flag.Int("c", 4, "Number of concurrent producer goroutines")
		ecn  = flag.Bool("ecn", false, "Enable ECN marking instead of dropping where possible")
		fcnt = flag.Int("flows_cnt", 2048, "Cuckoo flow table size")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeMix {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|mix)\n", *modeS)
		os.Exit(2)
	}
	if *n <= 0 || *c <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}

	cfg := fqcodel.DefaultConfig()
	cfg.FlowsCnt = *fcnt
	cfg.ECNEnable = *ecn
	sched, err := fqcodel.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating scheduler: %v\n", err)
		os.Exit(1)
	}

	var enqueued, dropped, dequeued int64
	drain := make(chan struct{})
	go func() {
		for {
			select {
			case <-drain:
				return
			default:
			}
			if pkt := sched.Dequeue(); pkt != nil {
				atomic.AddInt64(&dequeued, 1)
			} else {
				time.Sleep(50 * time.Microsecond)
			}
		}
	}()

	start := time.Now()
	per := *n / *c
	rem := *n - per**c
	var wg sync.WaitGroup
	wg.Add(*c)
	for w := 0; w < *c; w++ {
		count := per
		if w == *c-1 {
			count += rem
		}
		go func(id, count int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(id) + 1))
			for i := 0; i < count; i++ {
				pkt := nextPacket(m, rng, i, id, *key, uint32(*size), *elephants, *mice)
				if status := sched.Enqueue(pkt); status == fqcodel.Dropped {
					atomic.AddInt64(&dropped, 1)
				}
				atomic.AddInt64(&enqueued, 1)
			}
		}(w, count)
	}
	wg.Wait()

	for atomic.LoadInt64(&dequeued) < atomic.LoadInt64(&enqueued)-atomic.LoadInt64(&dropped) {
		time.Sleep(time.Millisecond)
	}
	close(drain)

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	st := sched.Snapshot()
	ops := float64(*n) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s n=%d c=%d go=%d Duration=%s Throughput=%.0f pkt/s dropped=%d ecn=%d\n",
		m, *n, *c, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops, dropped, st.ECNMarks)
}

func nextPacket(m modeType, rng *rand.Rand, i, id int, key string, size uint32, elephants, mice int) *fqcodel.SimPacket {
	if m == modeSingle {
		return fqcodel.NewSimPacket(key, size)
	}
	if (i+id)%5 == 0 {
		return fqcodel.NewSimPacket(fmt.Sprintf("elephant-%d", rng.Intn(elephants)), 1400)
	}
	return fqcodel.NewSimPacket(fmt.Sprintf("mouse-%d", rng.Intn(mice)), uint32(64+rng.Intn(512)))
}
