// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/thermoscope/pkg/ircam"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling the camera",
	Long: `Control the camera via an interactive terminal UI.

Features:
  - Zoom, colour, brightness, contrast and mide controls on single keys
  - Focus near/far while a key is held
  - Command catalog and command chains as lists
  - Link state, control state and traffic statistics
  - Event log
  - Automatic reconnection on connection loss

Tab switches between the command and chain lists, Enter sends the selected
entry. Press ? in the TUI for the key map.

Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// connectionManager watches the session's link and reconnects it when the
// transport goes away
type connectionManager struct {
	ctx      context.Context
	session  *ircam.Session
	open     ircam.Opener
	connInfo string
	p        *tea.Program
}

func runControl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	open, connInfo, err := NewOpener(cfg.Serial)
	if err != nil {
		return err
	}

	chains, err := loadChains()
	if err != nil {
		return err
	}

	session, err := newSession(ctx)
	if err != nil {
		return err
	}

	// The connection failure is the one error reported before the TUI starts
	if err := session.Connect(ctx, open); err != nil {
		return err
	}

	cm := &connectionManager{
		ctx:      ctx,
		session:  session,
		open:     open,
		connInfo: connInfo,
	}

	m := initialControlModel(ctx, session, chains, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	cm.p = p

	// Log output would corrupt the alternate screen, so entries go to the
	// event log panel instead
	events := newLogForwarder(p)
	logrus.AddHook(events)
	output := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(output)

	go events.run(ctx)
	go cm.watchLink()

	_, runErr := p.Run()
	stop()
	session.Close()

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// watchLink waits for the read loop to end and reconnects
func (cm *connectionManager) watchLink() {
	for {
		done := cm.session.Link().Done()
		select {
		case <-cm.ctx.Done():
			return
		case <-done:
		}

		select {
		case <-cm.ctx.Done():
			return
		default:
		}

		cm.p.Send(connectionLostMsg{})
		cm.session.Close()

		if !cm.reconnect() {
			return
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.ctx.Done():
			return false
		case <-time.After(backoff):
		}

		if err := cm.session.Connect(cm.ctx, cm.open); err == nil {
			cm.p.Send(reconnectedMsg{connInfo: cm.connInfo})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// logForwarder is a logrus hook that hands log entries to the TUI. Entries
// are buffered so logging never blocks on the UI loop.
type logForwarder struct {
	p       *tea.Program
	entries chan logEntryMsg
}

func newLogForwarder(p *tea.Program) *logForwarder {
	return &logForwarder{p: p, entries: make(chan logEntryMsg, 256)}
}

func (f *logForwarder) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

func (f *logForwarder) Fire(entry *logrus.Entry) error {
	message := entry.Message
	if cmd, ok := entry.Data["command"]; ok {
		message = fmt.Sprintf("%s: %v", message, cmd)
	}
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		message = fmt.Sprintf("%s (%v)", message, err)
	}

	select {
	case f.entries <- logEntryMsg{
		timestamp: entry.Time,
		message:   message,
		isError:   entry.Level <= logrus.WarnLevel,
	}:
	default:
	}
	return nil
}

func (f *logForwarder) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-f.entries:
			f.p.Send(e)
		}
	}
}
