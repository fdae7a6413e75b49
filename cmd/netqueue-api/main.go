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

// Package main provides netqueue-api, a long-running control-plane
// server over a Store of fqcodel.Scheduler instances: one process
// exposing configure/reset/snapshot/walk for any number of named queues,
// plus Prometheus telemetry and periodic statistics export.
//
// This binary does not generate traffic itself; queues in its Store carry
// traffic only from an in-process caller driving Enqueue/Dequeue against
// a Scheduler obtained from the same Store (cmd/netqueue-sim wires its
// own traffic generator that way).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fqcodel/internal/netqueue/api"
	"fqcodel/internal/netqueue/core"
	"fqcodel/internal/netqueue/reporting"
	"fqcodel/internal/netqueue/telemetry/qstats"
	"fqcodel/pkg/fqcodel"
)

func main() {
	target := flag.Duration("target", 5*time.Millisecond, "Default CoDel target sojourn for new queues")
	interval := flag.Duration("interval", 100*time.Millisecond, "Default CoDel interval for new queues")
	limit := flag.Int("limit", 10240, "Default max packets queued for new queues")
	memoryLimit := flag.Uint64("memory_limit", 32<<20, "Default max bytes charged for new queues")
	flowsCnt := flag.Int("flows_cnt", 1024, "Default cuckoo flow table size for new queues")
	quantum := flag.Int("quantum", 1514, "Default deficit round-robin quantum, bytes")

	httpAddr := flag.String("http_addr", ":8090", "Control-plane HTTP listen address")
	metricsAddr := flag.String("metrics_addr", ":9090", "Prometheus /metrics listen address; empty disables")
	reportAdapter := flag.String("report_adapter", "log", "Statistics reporting adapter: log|redis|kafka")
	redisAddr := flag.String("redis_addr", "", "Redis address for report_adapter=redis; empty uses a logging client")
	kafkaTopic := flag.String("kafka_topic", "", "Kafka topic for report_adapter=kafka")
	exportInterval := flag.Duration("export_interval", 5*time.Second, "How often queue snapshots are exported")
	evictionAge := flag.Duration("eviction_age", time.Hour, "How long an idle, empty queue may sit before eviction")
	evictionInterval := flag.Duration("eviction_interval", 10*time.Minute, "How often to scan for idle queues")
	flag.Parse()

	cfg := fqcodel.Config{
		Target: *target, Interval: *interval, Limit: *limit, MemoryLimit: *memoryLimit,
		FlowsCnt: *flowsCnt, Quantum: *quantum, DropBatchSize: 64,
	}
	store := core.NewStore(cfg)

	qstats.Enable(qstats.Config{Enabled: true, MetricsAddr: *metricsAddr})
	exporter := qstats.NewExporter(store, time.Second)
	exporter.Start()

	reporter, err := reporting.BuildReporter(*reportAdapter, reporting.Options{RedisAddr: *redisAddr, KafkaTopic: *kafkaTopic})
	if err != nil {
		log.Fatalf("building reporter: %v", err)
	}
	worker := core.NewWorker(store, reporter, *exportInterval, *evictionAge, *evictionInterval)
	worker.Start()

	apiServer := api.NewServer(store)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := &http.Server{Addr: *httpAddr, Handler: mux}

	go func() {
		fmt.Printf("netqueue-api listening on %s\n", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v", *httpAddr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nShutting down netqueue-api...")
	worker.Stop()
	exporter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	fmt.Println("netqueue-api stopped.")
}
