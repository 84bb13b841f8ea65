// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"github.com/sirupsen/logrus"
)

// Hook mirrors log entries to the collector as console events
type Hook struct {
	client *Client
}

// NewHook creates a logrus hook that forwards to client
func NewHook(client *Client) *Hook {
	return &Hook{client: client}
}

// Levels implements logrus.Hook. Debug and trace stay local so the
// client's own diagnostics are not fed back into its queue.
func (h *Hook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

// Fire implements logrus.Hook
func (h *Hook) Fire(entry *logrus.Entry) error {
	data := make(map[string]interface{}, len(entry.Data)+1)
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		data[k] = v
	}
	level := consoleLevel(entry.Level)
	data["level"] = level

	ev := NewEvent(TypeConsole, entry.Message, data)
	ev.Level = level
	h.client.enqueue(ev)
	return nil
}

func consoleLevel(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return "error"
	case logrus.WarnLevel:
		return "warn"
	default:
		return "log"
	}
}
