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

	"fqcodel/internal/netqueue/core"
	"fqcodel/pkg/fqcodel"
)

// shim adapts an IdempotentReporter to core.Reporter, the shape the
// background worker drives.
type shim struct {
	impl IdempotentReporter
}

// NewShim wraps impl as a core.Reporter.
func NewShim(impl IdempotentReporter) core.Reporter {
	return &shim{impl: impl}
}

// ReportBatch maps core.QueueSnapshot -> DigestEntry and forwards.
func (s *shim) ReportBatch(snapshots []core.QueueSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	entries := make([]DigestEntry, len(snapshots))
	for i, snap := range snapshots {
		entries[i] = DigestEntry{
			Name:            snap.Name,
			Seq:             snap.Seq,
			TotalPackets:    snap.Stats.TotalPackets,
			TotalBytes:      snap.Stats.TotalBytes,
			MemoryUsage:     snap.Stats.MemoryUsage,
			DropsOverlimit:  snap.Stats.Drops[fqcodel.DropOverlimit],
			DropsOvermemory: snap.Stats.Drops[fqcodel.DropOvermemory],
			DropsCoDel:      snap.Stats.Drops[fqcodel.DropCoDel],
			ECNMarks:        snap.Stats.ECNMarks,
		}
	}
	return s.impl.ReportBatch(context.Background(), entries)
}
