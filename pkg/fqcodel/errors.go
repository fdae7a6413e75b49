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

package fqcodel

import (
	"errors"
	"fmt"
)

// ErrFlowsCntImmutable is returned by Configure when a caller attempts to
// change FlowsCnt after it has already been fixed by an earlier call.
var ErrFlowsCntImmutable = errors.New("fqcodel: flows_cnt is write-once and cannot be changed")

// ErrSeedAllocation is returned by New when the per-table hash seeds could
// not be generated. No partial scheduler state is returned in this case;
// the zero value is discarded by the caller, which is Go's equivalent of
// unwinding partial allocations on an initialization failure.
var ErrSeedAllocation = errors.New("fqcodel: failed to allocate per-table hash seeds")

// ConfigError reports an out-of-range or otherwise invalid configuration
// field. No state is mutated when Configure returns a ConfigError.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fqcodel: invalid config field %s: %s", e.Field, e.Msg)
}

// EnqueueStatus is the result of an Enqueue call.
type EnqueueStatus int

const (
	// OK: the packet (and possibly packets from other flows, to make
	// room) was admitted.
	OK EnqueueStatus = iota
	// Congestion: the packet was admitted, but the overload policy had
	// to shed packets from the packet's own flow to stay within limits.
	Congestion
	// Dropped: the packet itself was not admitted (classifier rejection
	// or bypass), a silent non-counting-as-overlimit drop.
	Dropped
)

func (s EnqueueStatus) String() string {
	switch s {
	case OK:
		return "OK"
	case Congestion:
		return "CONGESTION"
	case Dropped:
		return "DROPPED"
	default:
		return "UNKNOWN"
	}
}

// DropCause labels why a packet left a queue without being dequeued to
// the caller, for the per-cause drop counters named in the data model.
type DropCause int

const (
	DropOverlimit DropCause = iota
	DropOvermemory
	DropCoDel
)
