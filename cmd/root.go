// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/thermoscope/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	v   = config.New()
	cfg *config.Configuration

	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "thermoscope",
	Short: "Thermal camera serial remote",
	Long: `Thermoscope - A CLI tool for controlling a thermal/IR camera over its serial
command protocol.

Frames commands with the camera's CRC-16 checksum, keeps the link alive with
periodic pings, runs timed command chains and serves the debug collector used
to observe traffic.

Connection modes:
  Serial:    --port /dev/ttyUSB0 (first USB port when omitted)
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the THERMOSCOPE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Settings are read from thermoscope.yaml in $HOME or the working directory and
from THERMOSCOPE_* environment variables. Flags take precedence.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfiguration,
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&configFile, "config", "", "Config file (default thermoscope.yaml in $HOME or .)")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")

	// Serial connection flags
	flags.StringP("port", "p", "", "Serial port device")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Device flags
	flags.String("variant", "dle", "Protocol variant (dle, raw, raw-msb)")
	flags.String("catalog", "", "Command catalog file (.json or .cbor), builtin when empty")
	flags.String("chains", "", "Command chain definitions (.yaml)")
	flags.Bool("telemetry", false, "Post traffic events to the debug collector")

	for key, name := range map[string]string{
		"serial.port":          "port",
		"serial.url":           "url",
		"serial.username":      "username",
		"serial.no_ssl_verify": "no-ssl-verify",
		"device.variant":       "variant",
		"device.catalog":       "catalog",
		"device.chains":        "chains",
		"telemetry.enabled":    "telemetry",
	} {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(name)))
	}
}

func loadConfiguration(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	var err error
	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	if debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

