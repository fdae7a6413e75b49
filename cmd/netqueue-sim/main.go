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

// Package main provides netqueue-sim, a synthetic traffic harness that
// exercises the full netqueue stack: a Store of fqcodel.Scheduler
// instances, the background export/eviction worker, Prometheus
// telemetry, and the control-plane API server, all driven by a
// generated multi-flow packet mix.
//
// A handful of "elephant" flows send large, steady packet trains while
// many "mouse" flows send a few small packets each, the classic mix
// FQ-CoDel's new/old flow priority and per-flow CoDel AQM are designed
// to keep fair under.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"fqcodel/internal/netqueue/api"
	"fqcodel/internal/netqueue/core"
	"fqcodel/internal/netqueue/reporting"
	"fqcodel/internal/netqueue/telemetry/qstats"
	"fqcodel/pkg/fqcodel"
)

func main() {
	target := flag.Duration("target", 5*time.Millisecond, "CoDel target sojourn")
	interval := flag.Duration("interval", 100*time.Millisecond, "CoDel interval")
	limit := flag.Int("limit", 10240, "Max packets queued across all flows")
	memoryLimit := flag.Uint64("memory_limit", 32<<20, "Max bytes of packet memory charged across all flows")
	flowsCnt := flag.Int("flows_cnt", 1024, "Cuckoo flow table size")
	quantum := flag.Int("quantum", 1514, "Deficit round-robin quantum, bytes")
	ecnEnable := flag.Bool("ecn", false, "Enable ECN marking instead of dropping where possible")

	elephants := flag.Int("elephants", 4, "Number of steady high-rate flows")
	mice := flag.Int("mice", 200, "Number of short-lived low-rate flows")
	duration := flag.Duration("duration", 10*time.Second, "How long to run the synthetic traffic generator")

	httpAddr := flag.String("http_addr", ":8090", "Control-plane HTTP listen address")
	metricsAddr := flag.String("metrics_addr", ":9090", "Prometheus /metrics listen address; empty disables")
	reportAdapter := flag.String("report_adapter", "log", "Statistics reporting adapter: log|redis|kafka")
	redisAddr := flag.String("redis_addr", "", "Redis address for report_adapter=redis; empty uses a logging client")
	exportInterval := flag.Duration("export_interval", 5*time.Second, "How often queue snapshots are exported")
	evictionAge := flag.Duration("eviction_age", time.Minute, "How long an idle, empty queue may sit before eviction")
	evictionInterval := flag.Duration("eviction_interval", 30*time.Second, "How often to scan for idle queues")
	flag.Parse()

	cfg := fqcodel.Config{
		Target: *target, Interval: *interval, Limit: *limit, MemoryLimit: *memoryLimit,
		FlowsCnt: *flowsCnt, Quantum: *quantum, ECNEnable: *ecnEnable, DropBatchSize: 64,
	}

	store := core.NewStore(cfg)
	sched, err := store.GetOrCreate("sim0")
	if err != nil {
		log.Fatalf("creating scheduler: %v", err)
	}

	qstats.Enable(qstats.Config{Enabled: true, MetricsAddr: *metricsAddr})
	exporter := qstats.NewExporter(store, time.Second)
	exporter.Start()
	defer exporter.Stop()

	reporter, err := reporting.BuildReporter(*reportAdapter, reporting.Options{RedisAddr: *redisAddr})
	if err != nil {
		log.Fatalf("building reporter: %v", err)
	}
	worker := core.NewWorker(store, reporter, *exportInterval, *evictionAge, *evictionInterval)
	worker.Start()
	defer worker.Stop()

	apiServer := api.NewServer(store)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := &http.Server{Addr: *httpAddr, Handler: mux}
	go func() {
		log.Printf("netqueue-sim control plane listening on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("control plane server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go runTraffic(sched, *elephants, *mice, *duration, done)

	select {
	case <-stop:
		fmt.Println("\nInterrupted, shutting down...")
	case <-done:
		fmt.Println("Traffic generator finished, shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)

	st := sched.Snapshot()
	fmt.Printf("final: packets=%d bytes=%d drops(overlimit=%d overmemory=%d codel=%d) ecn=%d\n",
		st.TotalPackets, st.TotalBytes, st.Drops[fqcodel.DropOverlimit], st.Drops[fqcodel.DropOvermemory], st.Drops[fqcodel.DropCoDel], st.ECNMarks)
}

// runTraffic drives a fixed mix of elephant and mouse flows against sched
// for duration, draining with Dequeue at a fixed service rate, and
// signals done when it finishes.
func runTraffic(sched *fqcodel.Scheduler, elephants, mice int, duration time.Duration, done chan<- struct{}) {
	defer close(done)

	var enqueued, dequeued, rejected atomic.Int64
	stop := make(chan struct{})
	time.AfterFunc(duration, func() { close(stop) })

	genDone := make(chan struct{})
	go func() {
		defer close(genDone)
		rng := rand.New(rand.NewSource(1))
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			var flowKey string
			var size uint32
			if i%5 == 0 {
				flowKey = fmt.Sprintf("elephant-%d", rng.Intn(elephants))
				size = 1400
			} else {
				flowKey = fmt.Sprintf("mouse-%d", rng.Intn(mice))
				size = uint32(64 + rng.Intn(512))
			}
			pkt := fqcodel.NewSimPacket(flowKey, size)
			status := sched.Enqueue(pkt)
			qstats.ObserveEnqueue(status)
			enqueued.Add(1)
			if status == fqcodel.Dropped {
				rejected.Add(1)
			}
			time.Sleep(50 * time.Microsecond)
		}
	}()

	for {
		select {
		case <-stop:
			// Packets dropped inside the scheduler (CoDel, overload) are
			// never dequeued, so finish once the generator has stopped
			// and the scheduler holds nothing more.
			<-genDone
			if sched.Snapshot().TotalPackets == 0 {
				return
			}
		default:
		}
		if pkt := sched.Dequeue(); pkt != nil {
			qstats.ObserveDequeue()
			dequeued.Add(1)
		} else {
			time.Sleep(100 * time.Microsecond)
		}
	}
}
