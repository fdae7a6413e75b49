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

package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// KafkaProducer is a minimal abstraction over a Kafka client. We
// intentionally avoid importing a specific Kafka library, the same
// restraint the persistence adapters this is grounded on take: a real
// broker client belongs to the application wiring this interface to,
// not to this package.
//
// Requirements for a production implementation:
//   - Idempotent producer ON (enable.idempotence=true)
//   - Use "<name>:<seq>" as the message key so broker dedup and
//     per-queue ordering are preserved
type KafkaProducer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error
}

// KafkaReporter publishes digests as Kafka messages. Idempotency relies
// on the producer's own retry deduplication plus consumers tracking the
// last-applied (name, seq) pair per queue.
type KafkaReporter struct {
	producer       KafkaProducer
	topic          string
	defaultTimeout time.Duration
}

// NewKafkaReporter returns a reporter publishing to topic via producer.
func NewKafkaReporter(producer KafkaProducer, topic string) *KafkaReporter {
	return &KafkaReporter{producer: producer, topic: topic, defaultTimeout: 10 * time.Second}
}

// digestMessage is the serialized Kafka payload.
type digestMessage struct {
	Name            string `json:"name"`
	Seq             int64  `json:"seq"`
	TotalPackets    int    `json:"total_packets"`
	TotalBytes      uint64 `json:"total_bytes"`
	MemoryUsage     uint64 `json:"memory_usage"`
	DropsOverlimit  uint64 `json:"drops_overlimit"`
	DropsOvermemory uint64 `json:"drops_overmemory"`
	DropsCoDel      uint64 `json:"drops_codel"`
	ECNMarks        uint64 `json:"ecn_marks"`
	TsUnixMs        int64  `json:"ts_unix_ms"`
}

// ReportBatch marshals and produces one message per entry.
func (k *KafkaReporter) ReportBatch(ctx context.Context, entries []DigestEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && k.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.defaultTimeout)
		defer cancel()
	}
	nowMs := time.Now().UnixMilli()
	for _, e := range entries {
		msg := digestMessage{
			Name: e.Name, Seq: e.Seq,
			TotalPackets: e.TotalPackets, TotalBytes: e.TotalBytes, MemoryUsage: e.MemoryUsage,
			DropsOverlimit: e.DropsOverlimit, DropsOvermemory: e.DropsOvermemory, DropsCoDel: e.DropsCoDel,
			ECNMarks: e.ECNMarks, TsUnixMs: nowMs,
		}
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal kafka message: %w", err)
		}
		key := fmt.Sprintf("%s:%d", e.Name, e.Seq)
		headers := map[string]string{"content-type": "application/json"}
		if err := k.producer.Produce(ctx, k.topic, []byte(key), b, headers); err != nil {
			return fmt.Errorf("kafka produce name=%s seq=%d: %w", e.Name, e.Seq, err)
		}
	}
	return nil
}
