// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// LinkState is the connection state of a Link
type LinkState int

// Link states
const (
	Disconnected LinkState = iota
	Connecting
	Connected
)

func (s LinkState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Port is an open bidirectional byte stream to the device
type Port = io.ReadWriteCloser

// Opener requests and opens a transport
type Opener func(ctx context.Context) (Port, error)

// SerialMode returns the fixed line settings of the camera: 115200 baud,
// 8 data bits, no parity, two stop bits, no flow control.
func SerialMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
	}
}

// Link owns the open transport to the device
type Link struct {
	sink  Sink
	stats *Statistics

	mu      sync.Mutex
	state   LinkState
	port    Port
	done    chan struct{}
	writeMu sync.Mutex

	// OnStateChange, when set, is called after every state transition
	OnStateChange func(LinkState)
}

// NewLink creates a disconnected link
func NewLink(sink Sink, stats *Statistics) *Link {
	if sink == nil {
		sink = NopSink{}
	}
	if stats == nil {
		stats = NewStatistics()
	}
	return &Link{sink: sink, stats: stats}
}

// State returns the current link state
func (l *Link) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Done is closed when the current read loop exits. It returns nil before
// the first successful Connect.
func (l *Link) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *Link) setState(s LinkState) {
	l.mu.Lock()
	l.state = s
	cb := l.OnStateChange
	l.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// Connect opens the transport and starts the read loop
func (l *Link) Connect(ctx context.Context, open Opener) error {
	l.mu.Lock()
	if l.state != Disconnected {
		state := l.state
		l.mu.Unlock()
		return fmt.Errorf("cannot connect: link is %s", state)
	}
	l.mu.Unlock()
	l.setState(Connecting)

	port, err := open(ctx)
	if err != nil {
		l.setState(Disconnected)
		return fmt.Errorf("there was an error opening the serial port: %w", err)
	}

	done := make(chan struct{})
	l.mu.Lock()
	l.port = port
	l.done = done
	l.mu.Unlock()
	l.setState(Connected)

	logrus.Info("Connected to the serial port")
	go l.readLoop(port, done)
	return nil
}

// Write sends one frame. Frames are written one at a time. A failed write
// leaves the link disconnected until the next Connect.
func (l *Link) Write(frame []byte) error {
	l.mu.Lock()
	if l.state != Connected {
		l.mu.Unlock()
		return ErrNotConnected
	}
	port := l.port
	l.mu.Unlock()

	l.writeMu.Lock()
	n, err := port.Write(frame)
	l.writeMu.Unlock()
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		l.stats.writeErrors.Add(1)
		l.invalidate(port)
		return fmt.Errorf("%w: %v", ErrLinkFailed, err)
	}

	l.stats.framesSent.Add(1)
	l.stats.bytesSent.Add(uint64(n))
	return nil
}

// invalidate drops port if it is still the current one
func (l *Link) invalidate(port Port) {
	l.mu.Lock()
	if l.port != port {
		l.mu.Unlock()
		return
	}
	l.port = nil
	l.mu.Unlock()

	port.Close()
	l.setState(Disconnected)
}

// Close closes the transport and waits briefly for the read loop to exit
func (l *Link) Close() error {
	l.mu.Lock()
	port, done := l.port, l.done
	l.port = nil
	l.mu.Unlock()

	if port == nil {
		return nil
	}
	err := port.Close()
	l.setState(Disconnected)

	select {
	case <-done:
	case <-time.After(time.Second):
		logrus.Warn("Read loop did not exit after close")
	}
	return err
}

// readLoop decodes inbound bytes as text until the stream ends. A read
// fault stops the loop but leaves the write path alone.
func (l *Link) readLoop(port Port, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			text := string(buf[:n])
			l.stats.bytesReceived.Add(uint64(n))
			logrus.WithField("data", text).Debug("Received")
			l.sink.SerialReceive(text)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || l.closed(port) {
				logrus.Info("Stream closed")
				return
			}
			logrus.WithError(err).Error("Error reading from serial port")
			l.sink.Error("Error reading from serial port", map[string]interface{}{"error": err.Error()})
			return
		}
	}
}

// closed reports whether port has been closed or replaced
func (l *Link) closed(port Port) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != port
}
