// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCamera is the device end of a pipe. It collects everything the
// host writes.
type fakeCamera struct {
	conn net.Conn
	mu   sync.Mutex
	data []byte
}

func newFakeCamera(conn net.Conn) *fakeCamera {
	c := &fakeCamera{conn: conn}
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			c.mu.Lock()
			c.data = append(c.data, buf[:n]...)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}()
	return c
}

func (c *fakeCamera) received() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.data...)
}

func (c *fakeCamera) count(frame []byte) int {
	return bytes.Count(c.received(), frame)
}

func builtinFrame(t *testing.T, name string) []byte {
	t.Helper()
	template, ok := BuiltinCatalog().Get(name)
	require.True(t, ok, name)
	return MustFrame(VariantDLE, template)
}

// connectedSession returns a session on the builtin catalog connected to
// a fake camera
func connectedSession(t *testing.T, cfg SessionConfig) (*Session, *fakeCamera, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	cfg.Sink = sink
	cfg.Catalog = BuiltinCatalog()
	if cfg.Keepalive == 0 {
		cfg.Keepalive = time.Hour
	}

	s := NewSession(cfg)
	open, device := pipeOpener()
	camera := newFakeCamera(device)
	require.NoError(t, s.Connect(context.Background(), open))
	t.Cleanup(func() {
		s.Close()
		device.Close()
	})
	return s, camera, sink
}

func TestSession_Defaults(t *testing.T) {
	s := NewSession(SessionConfig{})
	assert.Equal(t, VariantDLE, s.Variant())
	assert.Equal(t, 0, s.Catalog().Len())
	assert.Equal(t, DefaultState, s.State())
	assert.Equal(t, Disconnected, s.Link().State())
}

func TestSession_SendWhileDisconnected(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(SessionConfig{Catalog: BuiltinCatalog(), Sink: sink})

	err := s.SendCommand(context.Background(), CommandCalibrate)
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.Empty(t, sink.sentCommands())
	assert.Equal(t, 1, sink.errorCount())
	assert.Equal(t, uint64(0), s.Stats().FramesSent)
}

func TestSession_UnknownCommand(t *testing.T) {
	s, camera, sink := connectedSession(t, SessionConfig{})

	err := s.SendCommand(context.Background(), "selfDestruct")
	assert.True(t, errors.Is(err, ErrUnknownCommand))
	assert.Equal(t, uint64(1), s.Stats().UnknownCommands)
	assert.Equal(t, 1, sink.errorCount())

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, camera.received())
}

func TestSession_SendCommand(t *testing.T) {
	s, camera, sink := connectedSession(t, SessionConfig{})

	require.NoError(t, s.SendCommand(context.Background(), CommandCalibrate))
	assert.Eventually(t, func() bool {
		return camera.count(builtinFrame(t, CommandCalibrate)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{CommandCalibrate}, sink.sentCommands())
}

func TestSession_Dispatch(t *testing.T) {
	s, camera, sink := connectedSession(t, SessionConfig{})

	require.NoError(t, s.Dispatch(context.Background(), "brightness"))
	require.NoError(t, s.Dispatch(context.Background(), "zoomIn"))
	assert.Equal(t, 1, s.State().Brightness)
	assert.Equal(t, ZoomMiddle, s.State().Zoom)

	assert.Eventually(t, func() bool {
		return camera.count(builtinFrame(t, "brightness1")) == 1 &&
			camera.count(builtinFrame(t, "zoom1")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"brightness1", "zoom1"}, sink.sentCommands())

	assert.True(t, errors.Is(s.Dispatch(context.Background(), "nope"), ErrUnknownAction))
}

func TestSession_KeepalivePings(t *testing.T) {
	s, camera, _ := connectedSession(t, SessionConfig{Keepalive: 20 * time.Millisecond})

	ping := builtinFrame(t, CommandPing)
	assert.Eventually(t, func() bool { return camera.count(ping) >= 2 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, s.Stats().Pings, uint64(2))
}

func TestSession_ClosedSessionStopsPinging(t *testing.T) {
	s, camera, _ := connectedSession(t, SessionConfig{Keepalive: 20 * time.Millisecond})
	ping := builtinFrame(t, CommandPing)
	assert.Eventually(t, func() bool { return camera.count(ping) >= 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())
	assert.False(t, s.keepalive.Active())

	time.Sleep(20 * time.Millisecond)
	before := camera.count(ping)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, before, camera.count(ping))
}

func TestSession_WriteFailureStopsKeepalive(t *testing.T) {
	sink := &recordingSink{}
	s := NewSession(SessionConfig{Catalog: BuiltinCatalog(), Sink: sink, Keepalive: time.Hour})
	open, device := pipeOpener()
	require.NoError(t, s.Connect(context.Background(), open))
	defer s.Close()
	assert.True(t, s.keepalive.Active())

	device.Close()
	waitDone(t, s.Link())

	err := s.SendCommand(context.Background(), CommandCalibrate)
	assert.True(t, errors.Is(err, ErrLinkFailed))
	assert.False(t, s.keepalive.Active())
	assert.Equal(t, Disconnected, s.Link().State())
}

func TestSession_HoldRelease(t *testing.T) {
	s, camera, _ := connectedSession(t, SessionConfig{})
	ctx := context.Background()

	require.NoError(t, s.Press(ctx, "focusNear"))
	assert.Equal(t, "focusNear", s.Held())

	require.NoError(t, s.Release(ctx, "focusNear"))
	require.NoError(t, s.Release(ctx, "focusNear"))
	assert.Equal(t, "", s.Held())

	stop := builtinFrame(t, CommandFocusStop)
	assert.Eventually(t, func() bool {
		return camera.count(builtinFrame(t, CommandFocusNear)) == 1 && camera.count(stop) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, camera.count(stop))

	assert.True(t, errors.Is(s.Press(ctx, "zoomIn"), ErrUnknownAction))
}

func TestSession_ReleaseOtherHoldIsNoop(t *testing.T) {
	s, _, sink := connectedSession(t, SessionConfig{})
	ctx := context.Background()

	require.NoError(t, s.Press(ctx, "focusFar"))
	require.NoError(t, s.Release(ctx, "focusNear"))
	assert.Equal(t, "focusFar", s.Held())
	assert.Equal(t, []string{CommandFocusFar}, sink.sentCommands())
}

func TestSession_CloseReleasesHold(t *testing.T) {
	s, camera, _ := connectedSession(t, SessionConfig{})
	require.NoError(t, s.Press(context.Background(), "focusFar"))

	require.NoError(t, s.Close())
	assert.Equal(t, "", s.Held())
	assert.Eventually(t, func() bool {
		return camera.count(builtinFrame(t, CommandFocusStop)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSession_StateFrames(t *testing.T) {
	s, camera, _ := connectedSession(t, SessionConfig{StateFrames: true})

	initial := MustFrame(VariantDLE, ZoomColorFrame(DefaultState))
	assert.Eventually(t, func() bool { return camera.count(initial) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Dispatch(context.Background(), "zoomNarrow"))
	narrow := MustFrame(VariantDLE, ZoomColorFrame(ControlState{Zoom: ZoomNarrow, Color: ColorWhiteHot}))
	assert.Eventually(t, func() bool { return camera.count(narrow) == 1 }, time.Second, 5*time.Millisecond)

	// Other controls still use the catalog
	require.NoError(t, s.Dispatch(context.Background(), "contrast"))
	assert.Eventually(t, func() bool {
		return camera.count(builtinFrame(t, "contrast1")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSession_RunChain(t *testing.T) {
	s, camera, sink := connectedSession(t, SessionConfig{})

	chain := calibrateFocus
	chain.Steps = append([]Step{{Command: "missing"}}, chain.Steps...)
	require.NoError(t, s.RunChain(context.Background(), chain, "button"))

	assert.Equal(t, []string{CommandCalibrate, CommandAutoFocus}, sink.sentCommands())
	assert.Equal(t, []string{"button"}, sink.chains)
	assert.Eventually(t, func() bool {
		return camera.count(builtinFrame(t, CommandAutoFocus)) == 1
	}, time.Second, 5*time.Millisecond)
}
