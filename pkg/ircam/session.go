// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionConfig configures a Session
type SessionConfig struct {
	Variant   Variant
	Catalog   *Catalog
	Sink      Sink
	Keepalive time.Duration

	// StateFrames sends the combined zoom/colour frame built from the
	// current state for zoom and colour actions instead of a catalog entry.
	StateFrames bool

	// Initial is the state the machine starts in. Defaults to DefaultState.
	Initial *ControlState
}

// Session is one connection to a camera: the link, the control state,
// the keep-alive and the chain executor.
type Session struct {
	variant     Variant
	catalog     *Catalog
	sink        Sink
	stateFrames bool

	stats     *Statistics
	link      *Link
	machine   *Machine
	keepalive *Keepalive
	executor  *Executor

	holdMu sync.Mutex
	held   string
}

// NewSession creates a disconnected session
func NewSession(cfg SessionConfig) *Session {
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Catalog == nil {
		cfg.Catalog = EmptyCatalog()
	}
	if cfg.Variant.ID == "" {
		cfg.Variant = VariantDLE
	}
	initial := DefaultState
	if cfg.Initial != nil {
		initial = *cfg.Initial
	}

	s := &Session{
		variant:     cfg.Variant,
		catalog:     cfg.Catalog,
		sink:        cfg.Sink,
		stateFrames: cfg.StateFrames,
		stats:       NewStatistics(),
		machine:     NewMachine(initial),
	}
	s.link = NewLink(cfg.Sink, s.stats)
	s.keepalive = NewKeepalive(cfg.Keepalive, s.ping)
	s.executor = NewExecutor(s, cfg.Sink)
	return s
}

// Link returns the session's device link
func (s *Session) Link() *Link { return s.link }

// Catalog returns the session's command catalog
func (s *Session) Catalog() *Catalog { return s.catalog }

// Variant returns the protocol variant in use
func (s *Session) Variant() Variant { return s.variant }

// State returns a snapshot of the control state
func (s *Session) State() ControlState { return s.machine.State() }

// Stats returns the traffic counters
func (s *Session) Stats() Snapshot { return s.stats.Snapshot() }

// Connect opens the link, arms the keep-alive and, in state-frame mode,
// pushes the current zoom/colour state to the camera.
func (s *Session) Connect(ctx context.Context, open Opener) error {
	if err := s.link.Connect(ctx, open); err != nil {
		logrus.WithError(err).Error("Connection failed")
		s.sink.Error("Connection failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.keepalive.Reset()
	if s.stateFrames {
		s.sendStateFrame(ctx, "default")
	}
	return nil
}

// Close releases any held control, stops the keep-alive and closes the link
func (s *Session) Close() error {
	s.holdMu.Lock()
	held := s.held
	s.held = ""
	s.holdMu.Unlock()
	if held != "" {
		s.SendCommand(context.Background(), HoldActions[held].Release)
	}
	// The release above re-arms the keep-alive, so stop it afterwards
	s.keepalive.Stop()
	return s.link.Close()
}

// Dispatch applies a named action to the control state and sends the
// resulting command.
func (s *Session) Dispatch(ctx context.Context, action string) error {
	name, state, err := s.machine.Apply(action)
	if err != nil {
		logrus.WithField("action", action).Error("Unknown action")
		return err
	}
	logrus.WithFields(logrus.Fields{"action": action, "state": fmt.Sprintf("%+v", state)}).Debug("State changed")

	if s.stateFrames {
		if f := Actions[action].Field; f == FieldZoom || f == FieldColor {
			return s.sendStateFrame(ctx, action)
		}
	}
	return s.SendCommand(ctx, name)
}

// Press starts a hold control (continuous focus motion)
func (s *Session) Press(ctx context.Context, hold string) error {
	h, ok := HoldActions[hold]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, hold)
	}

	s.holdMu.Lock()
	prev := s.held
	s.held = hold
	s.holdMu.Unlock()

	if prev != "" && prev != hold {
		s.SendCommand(ctx, HoldActions[prev].Release)
	}
	return s.SendCommand(ctx, h.Press)
}

// Release stops a hold control. Releasing a control that is not held is a
// no-op, so release and cancel signals can both be wired to it.
func (s *Session) Release(ctx context.Context, hold string) error {
	h, ok := HoldActions[hold]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, hold)
	}

	s.holdMu.Lock()
	if s.held != hold {
		s.holdMu.Unlock()
		return nil
	}
	s.held = ""
	s.holdMu.Unlock()

	return s.SendCommand(ctx, h.Release)
}

// Held returns the hold control currently pressed, or ""
func (s *Session) Held() string {
	s.holdMu.Lock()
	defer s.holdMu.Unlock()
	return s.held
}

// RunChain executes a command chain through this session
func (s *Session) RunChain(ctx context.Context, chain Chain, originID string) error {
	return s.executor.Run(ctx, chain, originID)
}

// SendCommand frames and sends the catalog entry registered under name.
// Failures are logged and reported to the sink before being returned.
func (s *Session) SendCommand(ctx context.Context, name string) error {
	template, ok := s.catalog.Get(name)
	if !ok {
		s.stats.unknownCommands.Add(1)
		logrus.WithField("command", name).Error("Command not found")
		s.sink.Error("Command not found: "+name, nil)
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return s.send(ctx, name, template)
}

func (s *Session) sendStateFrame(ctx context.Context, origin string) error {
	state := s.machine.State()
	name := fmt.Sprintf("zoomColor(%s)", origin)
	return s.send(ctx, name, ZoomColorFrame(state))
}

func (s *Session) send(ctx context.Context, name string, template []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	frame, err := Frame(s.variant, template)
	if err != nil {
		logrus.WithError(err).WithField("command", name).Error("Cannot frame command")
		s.sink.Error("Cannot frame command "+name, map[string]interface{}{"error": err.Error()})
		return err
	}

	log := logrus.WithFields(logrus.Fields{"command": name, "frame": FormatHex(frame)})
	log.Debug("Sending command")
	if err := s.link.Write(frame); err != nil {
		if errors.Is(err, ErrNotConnected) {
			log.Error("Serial port not connected or writer not set up.")
		} else {
			log.WithError(err).Error("Write failed, link closed")
			s.keepalive.Stop()
		}
		s.sink.Error("Send failed: "+name, map[string]interface{}{"error": err.Error()})
		return err
	}
	log.Info("Command sent")
	s.sink.SerialSend(name, frame)

	if name != CommandPing {
		s.keepalive.Reset()
	}
	return nil
}

// ping is the keep-alive callback
func (s *Session) ping() {
	if s.link.State() != Connected {
		return
	}
	template, ok := s.catalog.Get(CommandPing)
	if !ok {
		logrus.Debug("No ping command in catalog, keep-alive skipped")
		return
	}
	if err := s.send(context.Background(), CommandPing, template); err == nil {
		s.stats.pings.Add(1)
	}
}
