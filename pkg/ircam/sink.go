// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

// Sink receives structured events for a developer console. Implementations
// must not block and must never fail the caller.
type Sink interface {
	SerialSend(command string, frame []byte)
	SerialReceive(data string)
	CommandChain(origin string, steps []Step)
	Error(message string, data map[string]interface{})
}

// NopSink discards all events
type NopSink struct{}

func (NopSink) SerialSend(string, []byte)            {}
func (NopSink) SerialReceive(string)                 {}
func (NopSink) CommandChain(string, []Step)          {}
func (NopSink) Error(string, map[string]interface{}) {}
