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

// Package qstats provides opt-in, low-overhead Prometheus telemetry for a
// netqueue deployment. When disabled, Enable is simply never called and
// the counters sit at zero; nothing in the scheduler's hot path depends
// on this package.
package qstats

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fqcodel/pkg/fqcodel"
)

// Config controls the exporter.
//
//   - MetricsAddr, when non-empty, starts a dedicated HTTP server serving
//     /metrics. Leave empty if you already expose Prometheus elsewhere.
//   - ScrapeInterval is not read by Enable; the store's sampling interval
//     is the one passed to NewExporter (which does not sample when it is
//     <= 0).
type Config struct {
	Enabled        bool
	MetricsAddr    string
	ScrapeInterval time.Duration
}

var modEnabled atomic.Bool

// Prometheus metrics: global only, no unbounded per-queue label
// cardinality.
var (
	packetsEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netqueue_packets_enqueued_total",
		Help: "Total packets admitted across all queues",
	})
	packetsDequeuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netqueue_packets_dequeued_total",
		Help: "Total packets released to callers across all queues",
	})
	dropsOverlimitTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netqueue_drops_overlimit_total",
		Help: "Total packets dropped by the fat-flow overload policy due to the packet-count limit",
	})
	dropsOvermemoryTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netqueue_drops_overmemory_total",
		Help: "Total packets dropped by the fat-flow overload policy due to the memory limit",
	})
	dropsCoDelTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netqueue_drops_codel_total",
		Help: "Total packets dropped by the per-flow CoDel controller",
	})
	ecnMarksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netqueue_ecn_marks_total",
		Help: "Total packets CE-marked instead of dropped",
	})
	queuesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netqueue_queues_active",
		Help: "Number of scheduler instances currently tracked by the store",
	})
	backlogBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netqueue_backlog_bytes",
		Help: "Sum of queued bytes across all tracked queues",
	})
	backlogPackets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netqueue_backlog_packets",
		Help: "Sum of queued packets across all tracked queues",
	})
)

func init() {
	prometheus.MustRegister(
		packetsEnqueuedTotal, packetsDequeuedTotal,
		dropsOverlimitTotal, dropsOvermemoryTotal, dropsCoDelTotal, ecnMarksTotal,
		queuesActive, backlogBytes, backlogPackets,
	)
}

// Enable configures the module and, if cfg.MetricsAddr is non-empty,
// starts a dedicated /metrics HTTP server. Safe to call multiple times.
func Enable(cfg Config) {
	modEnabled.Store(cfg.Enabled)
	if cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
}

// Enabled reports whether telemetry is active.
func Enabled() bool { return modEnabled.Load() }

// ObserveEnqueue records one Enqueue call's outcome. Call from the hot
// path (e.g. the HTTP/API handler that drives a Scheduler) after the
// call returns.
func ObserveEnqueue(status fqcodel.EnqueueStatus) {
	if !modEnabled.Load() {
		return
	}
	if status != fqcodel.Dropped {
		packetsEnqueuedTotal.Inc()
	}
}

// ObserveDequeue records one successful Dequeue call.
func ObserveDequeue() {
	if !modEnabled.Load() {
		return
	}
	packetsDequeuedTotal.Inc()
}

func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
