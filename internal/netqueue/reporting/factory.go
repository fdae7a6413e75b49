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
	"fmt"
	"time"

	"fqcodel/internal/netqueue/core"
)

// BuildReporter constructs a core.Reporter based on a string selector.
// Supported adapters:
//   - "log": in-process logger (default)
//   - "redis": idempotent Redis adapter; uses a real client when
//     opts.RedisAddr is set, otherwise a logging client
//   - "kafka": idempotent Kafka adapter using a logging producer (no
//     broker client dependency is wired; swap in a real KafkaProducer
//     for production use)
func BuildReporter(adapter string, opts Options) (core.Reporter, error) {
	switch adapter {
	case "", "log":
		return core.NewLoggingReporter(), nil
	case "redis":
		ttl := opts.RedisMarkerTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		var evaler RedisEvaler
		if opts.RedisAddr != "" {
			evaler = NewGoRedisEvaler(opts.RedisAddr)
		} else {
			evaler = LoggingRedisEvaler{}
		}
		return NewShim(NewRedisReporter(evaler, ttl)), nil
	case "kafka":
		topic := opts.KafkaTopic
		if topic == "" {
			topic = "netqueue-digests"
		}
		return NewShim(NewKafkaReporter(LoggingKafkaProducer{}, topic)), nil
	default:
		return nil, fmt.Errorf("unknown reporting adapter: %s", adapter)
	}
}
