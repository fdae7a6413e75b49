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
	"fmt"
	"time"
)

// RedisEvaler abstracts the minimal surface needed from a Redis client.
// Implementations may wrap github.com/redis/go-redis/v9 (Cmdable.Eval) or
// any equivalent.
type RedisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisReporter ships digests to Redis idempotently via a Lua script:
//  1. SETNX marker:<name>:<seq> 1
//  2. If set -> ZADD digests:<name> <unix_ms> <json-ish payload>
//  3. EXPIRE the marker for leak protection
//
// A duplicate (name, seq) pair is a no-op.
type RedisReporter struct {
	client    RedisEvaler
	markerTTL time.Duration
}

// NewRedisReporter returns a reporter with the given client and marker TTL.
func NewRedisReporter(client RedisEvaler, markerTTL time.Duration) *RedisReporter {
	if markerTTL <= 0 {
		markerTTL = 24 * time.Hour
	}
	return &RedisReporter{client: client, markerTTL: markerTTL}
}

const redisDigestScript = `
local zsetKey = KEYS[1]
local markerKey = KEYS[2]
local score = tonumber(ARGV[1])
local payload = ARGV[2]
local ttlSeconds = tonumber(ARGV[3])
local set = redis.call('SETNX', markerKey, 1)
if set == 1 then
  redis.call('ZADD', zsetKey, score, payload)
  if ttlSeconds and ttlSeconds > 0 then
    redis.call('EXPIRE', markerKey, ttlSeconds)
  end
  return 1
else
  return 0
end
`

// RedisDigestsKey and RedisMarkerKey are public for interoperability with
// other components reading the exported sorted set.
func RedisDigestsKey(name string) string          { return fmt.Sprintf("netqueue:digests:%s", name) }
func RedisMarkerKey(name string, seq int64) string { return fmt.Sprintf("netqueue:marker:%s:%d", name, seq) }

// ReportBatch applies entries with one EVAL per entry.
func (r *RedisReporter) ReportBatch(ctx context.Context, entries []DigestEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		payload := fmt.Sprintf(
			"seq=%d packets=%d bytes=%d mem=%d drop_overlimit=%d drop_overmemory=%d drop_codel=%d ecn=%d",
			e.Seq, e.TotalPackets, e.TotalBytes, e.MemoryUsage, e.DropsOverlimit, e.DropsOvermemory, e.DropsCoDel, e.ECNMarks)
		keys := []string{RedisDigestsKey(e.Name), RedisMarkerKey(e.Name, e.Seq)}
		args := []interface{}{time.Now().UnixMilli(), payload, int(r.markerTTL.Seconds())}
		if _, err := r.client.Eval(ctx, redisDigestScript, keys, args...); err != nil {
			return fmt.Errorf("redis eval name=%s seq=%d: %w", e.Name, e.Seq, err)
		}
	}
	return nil
}
