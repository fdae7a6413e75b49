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

import "time"

// Config bundles every scheduler knob. Target/Interval/CEThreshold are
// expressed as durations (externally microsecond-granular per the wire
// contract) and are scaled to nanoseconds internally to match the
// Clock's unit.
type Config struct {
	// Target is the CoDel acceptable sojourn time. Default 5ms.
	Target time.Duration
	// Interval is the CoDel window after which a persistently-above-target
	// sojourn becomes eligible for dropping. Default 100ms.
	Interval time.Duration
	// CEThreshold, if > 0, CE-marks any dequeued packet whose sojourn
	// exceeds it, independent of the drop state machine. Default 0 (off).
	CEThreshold time.Duration
	// ECNEnable: when true and a packet is ECN-capable, CoDel marks
	// instead of dropping at the points it would otherwise drop.
	ECNEnable bool

	// Limit is the total packet capacity across all flows. Default 10240.
	Limit int
	// MemoryLimit is the total byte capacity across all flows. Default 32MiB.
	MemoryLimit uint64

	// FlowsCnt is F, the number of flow queues. Write-once: New fixes it;
	// any later Configure call that changes it returns
	// ErrFlowsCntImmutable. Range [1, 65536], default 1024.
	FlowsCnt int
	// Quantum is the deficit refill granted per round. Clamped to >= 256.
	// Default 1514 (a common Ethernet MTU).
	Quantum int
	// DropBatchSize is how many packets the fat-flow overload policy
	// sheds per overflow event. Clamped to >= 1. Default 64.
	DropBatchSize int
}

const (
	defaultTarget        = 5 * time.Millisecond
	defaultInterval      = 100 * time.Millisecond
	defaultLimit         = 10240
	defaultMemoryLimit   = 32 << 20 // 32 MiB
	defaultFlowsCnt      = 1024
	defaultQuantum       = 1514
	defaultDropBatchSize = 64

	minQuantum       = 256
	minDropBatchSize = 1
	maxMemoryLimit   = 1<<31 - 1
	maxFlowsCnt      = 65536
	minFlowsCnt      = 1
)

// DefaultConfig returns a Config populated with the scheduler's defaults.
func DefaultConfig() Config {
	return Config{
		Target:        defaultTarget,
		Interval:      defaultInterval,
		CEThreshold:   0,
		ECNEnable:     false,
		Limit:         defaultLimit,
		MemoryLimit:   defaultMemoryLimit,
		FlowsCnt:      defaultFlowsCnt,
		Quantum:       defaultQuantum,
		DropBatchSize: defaultDropBatchSize,
	}
}

// clamp applies the mandatory clamping rules for the control surface:
// quantum and drop batch size are raised to their floors (never
// rejected), memory limit is capped at its ceiling.
func (c *Config) clamp() {
	if c.Quantum < minQuantum {
		c.Quantum = minQuantum
	}
	if c.DropBatchSize < minDropBatchSize {
		c.DropBatchSize = minDropBatchSize
	}
	if c.MemoryLimit > maxMemoryLimit {
		c.MemoryLimit = maxMemoryLimit
	}
}

// validate rejects configurations outside the documented parameter
// ranges. It does not mutate state; callers must not apply a Config that
// fails validation.
func (c Config) validate() error {
	if c.FlowsCnt < minFlowsCnt || c.FlowsCnt > maxFlowsCnt {
		return &ConfigError{Field: "FlowsCnt", Msg: "must be in [1, 65536]"}
	}
	if c.Target <= 0 {
		return &ConfigError{Field: "Target", Msg: "must be positive"}
	}
	if c.Interval <= 0 {
		return &ConfigError{Field: "Interval", Msg: "must be positive"}
	}
	if c.CEThreshold < 0 {
		return &ConfigError{Field: "CEThreshold", Msg: "must be >= 0"}
	}
	if c.Limit <= 0 {
		return &ConfigError{Field: "Limit", Msg: "must be positive"}
	}
	return nil
}
