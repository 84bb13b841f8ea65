// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"

	"github.com/Thermoquad/thermoscope/pkg/ircam"
	"github.com/Thermoquad/thermoscope/pkg/telemetry"
	"github.com/sirupsen/logrus"
)

// teeSink forwards every event to each of its sinks
type teeSink []ircam.Sink

func (t teeSink) SerialSend(command string, frame []byte) {
	for _, s := range t {
		s.SerialSend(command, frame)
	}
}

func (t teeSink) SerialReceive(data string) {
	for _, s := range t {
		s.SerialReceive(data)
	}
}

func (t teeSink) CommandChain(origin string, steps []ircam.Step) {
	for _, s := range t {
		s.CommandChain(origin, steps)
	}
}

func (t teeSink) Error(message string, data map[string]interface{}) {
	for _, s := range t {
		s.Error(message, data)
	}
}

// receiveFunc adapts a function to a sink that only observes inbound data
type receiveFunc func(data string)

func (f receiveFunc) SerialSend(string, []byte)            {}
func (f receiveFunc) SerialReceive(data string)            { f(data) }
func (f receiveFunc) CommandChain(string, []ircam.Step)    {}
func (f receiveFunc) Error(string, map[string]interface{}) {}

// startTelemetry starts the debug event client when enabled and mirrors
// log entries to it. The client stops with ctx.
func startTelemetry(ctx context.Context) ircam.Sink {
	if !cfg.Telemetry.Enabled {
		return ircam.NopSink{}
	}

	client := telemetry.NewClient(cfg.Telemetry.Endpoint, telemetry.WithRetry(cfg.Telemetry.Retry))
	logrus.AddHook(telemetry.NewHook(client))
	go client.Run(ctx)

	logrus.WithField("endpoint", cfg.Telemetry.Endpoint).Debug("Telemetry enabled")
	return client
}

// loadCatalog returns the configured catalog, or the builtin one
func loadCatalog() *ircam.Catalog {
	if cfg.Device.Catalog == "" {
		return ircam.BuiltinCatalog()
	}
	return ircam.LoadCatalogSoft(cfg.Device.Catalog)
}

// loadChains returns the configured chains, or the default ones
func loadChains() ([]ircam.Chain, error) {
	if cfg.Device.Chains == "" {
		return ircam.DefaultChains(), nil
	}
	return ircam.LoadChains(cfg.Device.Chains)
}

// newSession builds a disconnected session from the configuration. Extra
// sinks receive the same events as telemetry.
func newSession(ctx context.Context, extra ...ircam.Sink) (*ircam.Session, error) {
	variant, err := ircam.LookupVariant(cfg.Device.Variant)
	if err != nil {
		return nil, err
	}

	sink := append(teeSink{startTelemetry(ctx)}, extra...)

	return ircam.NewSession(ircam.SessionConfig{
		Variant:     variant,
		Catalog:     loadCatalog(),
		Sink:        sink,
		Keepalive:   cfg.Device.Keepalive,
		StateFrames: cfg.Device.StateFrames,
	}), nil
}

// connectSession builds a session and connects it with the configured
// transport
func connectSession(ctx context.Context, extra ...ircam.Sink) (*ircam.Session, string, error) {
	open, connInfo, err := NewOpener(cfg.Serial)
	if err != nil {
		return nil, "", err
	}

	session, err := newSession(ctx, extra...)
	if err != nil {
		return nil, "", err
	}

	if err := session.Connect(ctx, open); err != nil {
		return nil, "", err
	}
	return session, connInfo, nil
}
