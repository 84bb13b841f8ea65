// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Step is either a command or a delay in milliseconds
type Step struct {
	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	Delay   int    `yaml:"delay,omitempty" json:"delay,omitempty"`
}

// IsDelay reports whether the step only waits
func (s Step) IsDelay() bool {
	return s.Command == ""
}

func (s Step) String() string {
	if s.IsDelay() {
		return fmt.Sprintf("delay: %dms", s.Delay)
	}
	return s.Command
}

// Chain is an ordered macro of commands and delays
type Chain struct {
	ID    string `yaml:"-"`
	Label string `yaml:"label"`
	Steps []Step `yaml:"steps"`
}

// LoadChains reads chain definitions from a YAML file of the form
//
//	calibrateFocus:
//	  label: Calibrate + Focus
//	  steps:
//	    - command: calibrate
//	    - delay: 100
//	    - command: autoFocus
func LoadChains(path string) ([]Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chains: %w", err)
	}
	return ParseChains(data)
}

// ParseChains decodes YAML chain definitions, sorted by id
func ParseChains(data []byte) ([]Chain, error) {
	var defs map[string]Chain
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to decode chains: %w", err)
	}

	chains := make([]Chain, 0, len(defs))
	for id, c := range defs {
		for i, s := range c.Steps {
			if s.Command != "" && s.Delay != 0 {
				return nil, fmt.Errorf("chain %q step %d has both command and delay", id, i)
			}
			if s.Delay < 0 {
				return nil, fmt.Errorf("chain %q step %d has negative delay", id, i)
			}
		}
		c.ID = id
		if c.Label == "" {
			c.Label = id
		}
		chains = append(chains, c)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })
	return chains, nil
}

// DefaultChains are available when no chain file is configured
func DefaultChains() []Chain {
	return []Chain{
		{
			ID:    "calibrateFocus",
			Label: "Calibrate + Focus",
			Steps: []Step{
				{Command: CommandCalibrate},
				{Delay: 100},
				{Command: CommandAutoFocus},
			},
		},
	}
}

// FindChain returns the chain with the given id
func FindChain(chains []Chain, id string) (Chain, bool) {
	for _, c := range chains {
		if c.ID == id {
			return c, true
		}
	}
	return Chain{}, false
}

// Dispatcher sends one named command
type Dispatcher interface {
	SendCommand(ctx context.Context, name string) error
}

// Executor runs command chains one at a time
type Executor struct {
	dispatcher Dispatcher
	sink       Sink
	running    chan struct{}
}

// NewExecutor creates an executor that sends through dispatcher
func NewExecutor(dispatcher Dispatcher, sink Sink) *Executor {
	if sink == nil {
		sink = NopSink{}
	}
	return &Executor{
		dispatcher: dispatcher,
		sink:       sink,
		running:    make(chan struct{}, 1),
	}
}

// Run executes chain top to bottom. A chain started while another runs
// waits for it to finish. Unknown commands are skipped. Run only returns
// an error when ctx ends.
func (e *Executor) Run(ctx context.Context, chain Chain, originID string) error {
	select {
	case e.running <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.running }()

	log := logrus.WithFields(logrus.Fields{"chain": chain.ID, "origin": originID})
	log.WithField("steps", len(chain.Steps)).Info("Executing chain")
	e.sink.CommandChain(originID, chain.Steps)

	for i, step := range chain.Steps {
		if step.IsDelay() {
			if err := sleep(ctx, time.Duration(step.Delay)*time.Millisecond); err != nil {
				log.WithField("step", i).Warn("Chain cancelled")
				return err
			}
			continue
		}

		name := strings.TrimSpace(step.Command)
		err := e.dispatcher.SendCommand(ctx, name)
		switch {
		case err == nil:
			log.WithFields(logrus.Fields{"step": i, "command": name}).Debug("Chain command sent")
		case errors.Is(err, ErrUnknownCommand):
			log.WithFields(logrus.Fields{"step": i, "command": name}).Warn("Command not found, skipping")
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			log.WithError(err).WithFields(logrus.Fields{"step": i, "command": name}).Error("Chain command failed")
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
