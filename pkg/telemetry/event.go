// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry carries development-time debug events from the
// control front end to a local collector.
package telemetry

import "time"

// Event types
const (
	TypeError        = "error"
	TypeSerialSend   = "serial_send"
	TypeSerialRecv   = "serial_recv"
	TypeConsole      = "console"
	TypeCommandChain = "command_chain"
	TypeInfo         = "info"
)

// Event is one debug record as posted to the collector
type Event struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Level     string      `json:"level,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps an event with the current time
func NewEvent(typ, message string, data interface{}) Event {
	return Event{
		Type:      typ,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
