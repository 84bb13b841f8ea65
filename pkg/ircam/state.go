// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"fmt"
	"sync"
)

// Number of discrete positions per control
const (
	ZoomLevels       = 3
	ColorLevels      = 2
	BrightnessLevels = 8
	ContrastLevels   = 8
	MideLevels       = 16
)

// ControlState holds the current level of every virtual control
type ControlState struct {
	Zoom       int
	Color      int
	Brightness int
	Contrast   int
	Mide       int
}

// DefaultState is the state applied after connecting: zoom wide, white hot
var DefaultState = ControlState{Zoom: ZoomWide, Color: ColorWhiteHot}

// Field identifies one control of ControlState
type Field int

// Controls
const (
	FieldZoom Field = iota
	FieldColor
	FieldBrightness
	FieldContrast
	FieldMide
)

// Size returns the number of levels of the control
func (f Field) Size() int {
	switch f {
	case FieldZoom:
		return ZoomLevels
	case FieldColor:
		return ColorLevels
	case FieldBrightness:
		return BrightnessLevels
	case FieldContrast:
		return ContrastLevels
	case FieldMide:
		return MideLevels
	}
	return 0
}

// Base returns the command name prefix for the control
func (f Field) Base() string {
	switch f {
	case FieldZoom:
		return "zoom"
	case FieldColor:
		return "color"
	case FieldBrightness:
		return "brightness"
	case FieldContrast:
		return "contrast"
	case FieldMide:
		return "mide"
	}
	return "unknown"
}

func (s *ControlState) level(f Field) *int {
	switch f {
	case FieldZoom:
		return &s.Zoom
	case FieldColor:
		return &s.Color
	case FieldBrightness:
		return &s.Brightness
	case FieldContrast:
		return &s.Contrast
	case FieldMide:
		return &s.Mide
	}
	return nil
}

// Level returns the current level of a control
func (s ControlState) Level(f Field) int {
	if p := s.level(f); p != nil {
		return *p
	}
	return 0
}

// Op is the kind of transition an action applies to its control
type Op int

// Transitions
const (
	OpWrap  Op = iota // step by Arg, wrapping modulo the control size
	OpClamp           // step by Arg, saturating at 0 and size-1
	OpSet             // set to Arg
)

// Wrap steps value by delta modulo size
func Wrap(value, delta, size int) int {
	return ((value+delta)%size + size) % size
}

// Clamp steps value by delta within [0, size-1]
func Clamp(value, delta, size int) int {
	v := value + delta
	if v < 0 {
		return 0
	}
	if v > size-1 {
		return size - 1
	}
	return v
}

// Action is one entry of the dispatch table
type Action struct {
	Field Field
	Op    Op
	Arg   int
}

// Actions maps action identifiers to state transitions
var Actions = map[string]Action{
	"zoomIn":         {FieldZoom, OpClamp, +1},
	"zoomOut":        {FieldZoom, OpClamp, -1},
	"zoomCycle":      {FieldZoom, OpWrap, +1},
	"zoomWide":       {FieldZoom, OpSet, ZoomWide},
	"zoomMiddle":     {FieldZoom, OpSet, ZoomMiddle},
	"zoomNarrow":     {FieldZoom, OpSet, ZoomNarrow},
	"color":          {FieldColor, OpWrap, +1},
	"blackHot":       {FieldColor, OpSet, ColorBlackHot},
	"whiteHot":       {FieldColor, OpSet, ColorWhiteHot},
	"brightness":     {FieldBrightness, OpWrap, +1},
	"brightnessDown": {FieldBrightness, OpWrap, -1},
	"contrast":       {FieldContrast, OpWrap, +1},
	"contrastDown":   {FieldContrast, OpWrap, -1},
	"mide":           {FieldMide, OpWrap, +1},
	"mideDown":       {FieldMide, OpWrap, -1},
}

// Hold describes a press-and-hold control
type Hold struct {
	Press   string
	Release string
}

// HoldActions maps hold identifiers to their press and release commands
var HoldActions = map[string]Hold{
	"focusNear": {Press: CommandFocusNear, Release: CommandFocusStop},
	"focusFar":  {Press: CommandFocusFar, Release: CommandFocusStop},
}

// CommandName derives the catalog entry for a control at a level
func CommandName(f Field, level int) string {
	return fmt.Sprintf("%s%d", f.Base(), level)
}

// Machine owns a ControlState and applies actions to it
type Machine struct {
	mu    sync.Mutex
	state ControlState
}

// NewMachine creates a state machine starting at initial
func NewMachine(initial ControlState) *Machine {
	return &Machine{state: initial}
}

// State returns a snapshot of the current state
func (m *Machine) State() ControlState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply performs the action's transition and returns the command to send
// for the new level.
func (m *Machine) Apply(action string) (string, ControlState, error) {
	a, ok := Actions[action]
	if !ok {
		return "", m.State(), fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.state.level(a.Field)
	size := a.Field.Size()
	switch a.Op {
	case OpWrap:
		*p = Wrap(*p, a.Arg, size)
	case OpClamp:
		*p = Clamp(*p, a.Arg, size)
	case OpSet:
		*p = Clamp(a.Arg, 0, size)
	}
	return CommandName(a.Field, *p), m.state, nil
}

// Set replaces the whole state
func (m *Machine) Set(s ControlState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}
