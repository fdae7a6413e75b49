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

	"fqcodel/internal/netqueue/core"
	"fqcodel/pkg/fqcodel"
)

type fakeIdempotentReporter struct {
	entries []DigestEntry
}

func (f *fakeIdempotentReporter) ReportBatch(ctx context.Context, entries []DigestEntry) error {
	f.entries = append(f.entries, entries...)
	return nil
}

func TestShim_MapsSnapshotFieldsToDigestEntry(t *testing.T) {
	fake := &fakeIdempotentReporter{}
	shim := NewShim(fake)

	snap := core.QueueSnapshot{
		Name: "eth0",
		Seq:  7,
		Stats: fqcodel.Stats{
			TotalPackets: 3,
			TotalBytes:   300,
			MemoryUsage:  400,
			Drops:        [3]uint64{1, 2, 3},
			ECNMarks:     5,
		},
	}
	if err := shim.ReportBatch([]core.QueueSnapshot{snap}); err != nil {
		t.Fatalf("ReportBatch: %v", err)
	}
	if len(fake.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(fake.entries))
	}
	got := fake.entries[0]
	want := DigestEntry{
		Name: "eth0", Seq: 7,
		TotalPackets: 3, TotalBytes: 300, MemoryUsage: 400,
		DropsOverlimit: 1, DropsOvermemory: 2, DropsCoDel: 3, ECNMarks: 5,
	}
	if got != want {
		t.Fatalf("mapped entry = %+v, want %+v", got, want)
	}
}

func TestShim_EmptyBatchIsNoop(t *testing.T) {
	fake := &fakeIdempotentReporter{}
	shim := NewShim(fake)
	if err := shim.ReportBatch(nil); err != nil {
		t.Fatalf("ReportBatch(nil): %v", err)
	}
	if len(fake.entries) != 0 {
		t.Fatalf("got %d entries for an empty batch, want 0", len(fake.entries))
	}
}
