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
	"testing"
	"time"
)

type evalCall struct {
	script string
	keys   []string
	args   []interface{}
}

type fakeRedisEvaler struct {
	calls []evalCall
}

func (f *fakeRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	f.calls = append(f.calls, evalCall{script: script, keys: keys, args: args})
	return int64(1), nil
}

func TestRedisReporter_EvalsWithExpectedKeysAndArgs(t *testing.T) {
	fake := &fakeRedisEvaler{}
	r := NewRedisReporter(fake, time.Hour)

	entries := []DigestEntry{{
		Name: "eth0", Seq: 3,
		TotalPackets: 10, TotalBytes: 1000, MemoryUsage: 2000,
		DropsOverlimit: 1, DropsOvermemory: 2, DropsCoDel: 3, ECNMarks: 4,
	}}
	if err := r.ReportBatch(context.Background(), entries); err != nil {
		t.Fatalf("ReportBatch: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("got %d Eval calls, want 1", len(fake.calls))
	}
	call := fake.calls[0]
	wantKeys := []string{RedisDigestsKey("eth0"), RedisMarkerKey("eth0", 3)}
	if len(call.keys) != 2 || call.keys[0] != wantKeys[0] || call.keys[1] != wantKeys[1] {
		t.Fatalf("Eval keys = %v, want %v", call.keys, wantKeys)
	}
	if len(call.args) != 3 {
		t.Fatalf("Eval args = %v, want 3 args", call.args)
	}
	if ttlSeconds, ok := call.args[2].(int); !ok || ttlSeconds != 3600 {
		t.Fatalf("Eval ttl arg = %v, want 3600", call.args[2])
	}
}

func TestRedisReporter_DefaultsMarkerTTLWhenNonPositive(t *testing.T) {
	fake := &fakeRedisEvaler{}
	r := NewRedisReporter(fake, 0)
	if r.markerTTL != 24*time.Hour {
		t.Fatalf("markerTTL = %v, want 24h default", r.markerTTL)
	}
}

func TestRedisReporter_EmptyBatchIsNoop(t *testing.T) {
	fake := &fakeRedisEvaler{}
	r := NewRedisReporter(fake, time.Hour)
	if err := r.ReportBatch(context.Background(), nil); err != nil {
		t.Fatalf("ReportBatch(nil): %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("got %d Eval calls for an empty batch, want 0", len(fake.calls))
	}
}

func TestRedisReporter_PropagatesEvalError(t *testing.T) {
	boom := &erroringEvaler{}
	r := NewRedisReporter(boom, time.Hour)
	err := r.ReportBatch(context.Background(), []DigestEntry{{Name: "eth0", Seq: 1}})
	if err == nil {
		t.Fatal("ReportBatch() = nil, want error propagated from Eval")
	}
}

type erroringEvaler struct{}

func (e *erroringEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return nil, context.DeadlineExceeded
}
