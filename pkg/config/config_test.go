// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "dle", cfg.Device.Variant)
	assert.Equal(t, 200*time.Millisecond, cfg.Device.Keepalive)
	assert.False(t, cfg.Device.StateFrames)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "http://localhost:8001/log", cfg.Telemetry.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Telemetry.Retry)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 8001, cfg.Server.DebugPort)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermoscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
serial:
  port: /dev/ttyUSB3
  no_ssl_verify: true
device:
  variant: raw
  keepalive: 500ms
  state_frames: true
server:
  debug_port: 9001
`), 0o644))

	v := New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB3", cfg.Serial.Port)
	assert.True(t, cfg.Serial.NoVerify)
	assert.Equal(t, "raw", cfg.Device.Variant)
	assert.Equal(t, 500*time.Millisecond, cfg.Device.Keepalive)
	assert.True(t, cfg.Device.StateFrames)
	assert.Equal(t, 9001, cfg.Server.DebugPort)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("THERMOSCOPE_DEVICE_VARIANT", "raw-msb")
	t.Setenv("THERMOSCOPE_TELEMETRY_ENABLED", "true")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "raw-msb", cfg.Device.Variant)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_RejectsKeepalive(t *testing.T) {
	v := New()
	v.Set("device.keepalive", "0s")

	_, err := Load(v)
	assert.ErrorContains(t, err, "device.keepalive")
}

func TestLoad_BrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermoscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: [unclosed"), 0o644))

	v := New()
	v.SetConfigFile(path)
	_, err := Load(v)
	assert.ErrorContains(t, err, "cannot parse config")
}
