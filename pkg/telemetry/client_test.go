// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Thermoquad/thermoscope/pkg/ircam"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCollector records posted events and can be switched off
type fakeCollector struct {
	up     atomic.Bool
	mu     sync.Mutex
	events []Event
}

func (f *fakeCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !f.up.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeCollector) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Message
	}
	return out
}

func (f *fakeCollector) event(i int) Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[i]
}

func startClient(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestClient_DeliversInOrder(t *testing.T) {
	collector := &fakeCollector{}
	collector.up.Store(true)
	srv := httptest.NewServer(collector)
	defer srv.Close()

	c := NewClient(srv.URL)
	startClient(t, c)
	assert.Eventually(t, func() bool { return len(collector.messages()) == 1 }, time.Second, 5*time.Millisecond)

	c.Send(TypeInfo, "one", nil)
	c.Send(TypeInfo, "two", nil)

	assert.Eventually(t, func() bool { return len(collector.messages()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Frontend connected", "one", "two"}, collector.messages())
	assert.True(t, c.Online())
	assert.Equal(t, 0, c.Pending())
}

func TestClient_QueuesWhileOffline(t *testing.T) {
	collector := &fakeCollector{}
	srv := httptest.NewServer(collector)
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(time.Hour))
	startClient(t, c)
	assert.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, 5*time.Millisecond)

	c.Send(TypeInfo, "queued", nil)
	assert.Eventually(t, func() bool { return c.Pending() == 2 }, time.Second, 5*time.Millisecond)
	assert.False(t, c.Online())

	// A new event triggers a retry that flushes the backlog
	collector.up.Store(true)
	c.Send(TypeInfo, "trigger", nil)

	assert.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Frontend connected", "queued", "trigger"}, collector.messages())
	assert.True(t, c.Online())
}

func TestClient_RetryTimer(t *testing.T) {
	collector := &fakeCollector{}
	srv := httptest.NewServer(collector)
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(20*time.Millisecond))
	startClient(t, c)

	assert.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, 5*time.Millisecond)
	collector.up.Store(true)
	assert.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClient_UnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, WithRetry(time.Hour))
	startClient(t, c)
	assert.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, 5*time.Millisecond)

	c.Send(TypeError, "lost", nil)
	assert.Eventually(t, func() bool { return c.Pending() == 2 }, time.Second, 5*time.Millisecond)
	assert.False(t, c.Online())
}

func TestClient_QueueBounded(t *testing.T) {
	c := NewClient("", WithQueueLen(2))
	c.Send(TypeInfo, "a", nil)
	c.Send(TypeInfo, "b", nil)
	c.Send(TypeInfo, "c", nil)

	assert.Equal(t, 2, c.Pending())
	assert.Equal(t, uint64(1), c.Dropped())
	assert.Equal(t, "b", c.queue[0].ev.Message)
}

func TestClient_SinkEvents(t *testing.T) {
	collector := &fakeCollector{}
	collector.up.Store(true)
	srv := httptest.NewServer(collector)
	defer srv.Close()

	c := NewClient(srv.URL)
	var sink ircam.Sink = c
	startClient(t, c)
	assert.Eventually(t, func() bool { return len(collector.messages()) == 1 }, time.Second, 5*time.Millisecond)

	sink.SerialSend("zoom1", []byte{0x10, 0x02})
	sink.SerialReceive("OK")
	sink.CommandChain("calibrateFocus", []ircam.Step{{Command: "calibrate"}, {Delay: 100}})
	sink.Error("Command not found: x", nil)

	assert.Eventually(t, func() bool { return len(collector.messages()) == 5 }, time.Second, 5*time.Millisecond)

	send := collector.event(1)
	assert.Equal(t, TypeSerialSend, send.Type)
	assert.Equal(t, "zoom1", send.Message)
	assert.Equal(t, map[string]interface{}{
		"data": []interface{}{float64(16), float64(2)},
		"hex":  "0x10 0x02",
	}, send.Data)

	recv := collector.event(2)
	assert.Equal(t, TypeSerialRecv, recv.Type)
	assert.Equal(t, "OK", recv.Data.(map[string]interface{})["raw"])

	chain := collector.event(3)
	assert.Equal(t, TypeCommandChain, chain.Type)
	assert.Equal(t, []interface{}{"calibrate", "delay: 100ms"}, chain.Data.(map[string]interface{})["commands"])

	errEvent := collector.event(4)
	assert.Equal(t, TypeError, errEvent.Type)
	assert.Nil(t, errEvent.Data)
	assert.False(t, errEvent.Timestamp.IsZero())
}

// ============================================================
// Hook Tests
// ============================================================

func TestHook_ForwardsConsoleEvents(t *testing.T) {
	c := NewClient("")
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	log.AddHook(NewHook(c))

	log.Debug("stays local")
	log.WithError(errors.New("boom")).WithField("command", "zoom1").Warn("Write failed")

	require.Equal(t, 1, c.Pending())
	ev := c.queue[0].ev
	assert.Equal(t, TypeConsole, ev.Type)
	assert.Equal(t, "Write failed", ev.Message)
	assert.Equal(t, "warn", ev.Level)

	data := ev.Data.(map[string]interface{})
	assert.Equal(t, "boom", data["error"])
	assert.Equal(t, "zoom1", data["command"])
	assert.Equal(t, "warn", data["level"])
}

func TestConsoleLevel(t *testing.T) {
	assert.Equal(t, "error", consoleLevel(logrus.ErrorLevel))
	assert.Equal(t, "warn", consoleLevel(logrus.WarnLevel))
	assert.Equal(t, "log", consoleLevel(logrus.InfoLevel))
}
