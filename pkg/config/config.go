// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads thermoscope settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Serial selects the transport to the camera
type Serial struct {
	Port     string
	URL      string
	Username string
	NoVerify bool `mapstructure:"no_ssl_verify"`
}

// Device selects the protocol variant and command definitions
type Device struct {
	Variant     string
	Catalog     string
	Chains      string
	Keepalive   time.Duration
	StateFrames bool `mapstructure:"state_frames"`
}

// Telemetry configures the debug event client
type Telemetry struct {
	Enabled  bool
	Endpoint string
	Retry    time.Duration
}

// Server configures the static asset server and the debug collector
type Server struct {
	Port      int
	DebugPort int `mapstructure:"debug_port"`
	Root      string
}

// Log configures logging
type Log struct {
	Level string
}

// Configuration is the full thermoscope configuration
type Configuration struct {
	Serial    Serial
	Device    Device
	Telemetry Telemetry
	Server    Server
	Log       Log
}

// New returns a viper instance with defaults, search paths and environment
// binding set up. Flags may be bound to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("thermoscope")
	v.AddConfigPath("$HOME/")
	v.AddConfigPath(".")

	v.SetEnvPrefix("THERMOSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("serial.port", "")
	v.SetDefault("serial.url", "")
	v.SetDefault("serial.username", "")
	v.SetDefault("serial.no_ssl_verify", false)

	v.SetDefault("device.variant", "dle")
	v.SetDefault("device.catalog", "")
	v.SetDefault("device.chains", "")
	v.SetDefault("device.keepalive", "200ms")
	v.SetDefault("device.state_frames", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "http://localhost:8001/log")
	v.SetDefault("telemetry.retry", "2s")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debug_port", 8001)
	v.SetDefault("server.root", ".")

	v.SetDefault("log.level", "info")
	return v
}

// Load reads the config file (optional) and decodes the configuration
func Load(v *viper.Viper) (*Configuration, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("cannot parse config: %w", err)
		}
	}

	cfg := &Configuration{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	if cfg.Device.Keepalive <= 0 {
		return nil, fmt.Errorf("device.keepalive must be positive, got %s", cfg.Device.Keepalive)
	}
	return cfg, nil
}
