// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Statistics counts link traffic. Safe for concurrent use.
type Statistics struct {
	start time.Time

	framesSent      atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	pings           atomic.Uint64
	writeErrors     atomic.Uint64
	unknownCommands atomic.Uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{start: time.Now()}
}

// Snapshot is a point-in-time copy of Statistics
type Snapshot struct {
	Elapsed         time.Duration
	FramesSent      uint64
	BytesSent       uint64
	BytesReceived   uint64
	Pings           uint64
	WriteErrors     uint64
	UnknownCommands uint64
}

// Snapshot returns the current counters
func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		Elapsed:         time.Since(s.start),
		FramesSent:      s.framesSent.Load(),
		BytesSent:       s.bytesSent.Load(),
		BytesReceived:   s.bytesReceived.Load(),
		Pings:           s.pings.Load(),
		WriteErrors:     s.writeErrors.Load(),
		UnknownCommands: s.unknownCommands.Load(),
	}
}

func (s Snapshot) String() string {
	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", s.Elapsed.Seconds())
	result += fmt.Sprintf("Frames Sent:     %8d\n", s.FramesSent)
	result += fmt.Sprintf("Bytes Sent:      %8d\n", s.BytesSent)
	result += fmt.Sprintf("Bytes Received:  %8d\n", s.BytesReceived)
	result += fmt.Sprintf("Keep-alive Pings:%8d\n", s.Pings)
	if s.WriteErrors > 0 {
		result += fmt.Sprintf("Write Errors:    %8d\n", s.WriteErrors)
	}
	if s.UnknownCommands > 0 {
		result += fmt.Sprintf("Unknown Commands:%8d\n", s.UnknownCommands)
	}
	return result
}
