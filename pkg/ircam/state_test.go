// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestWrap(t *testing.T) {
	assert.Equal(t, 0, Wrap(7, 1, 8))
	assert.Equal(t, 7, Wrap(0, -1, 8))
	assert.Equal(t, 1, Wrap(0, 1, 2))
	assert.Equal(t, 0, Wrap(1, 1, 2))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 2, Clamp(2, 1, 3))
	assert.Equal(t, 0, Clamp(0, -1, 3))
	assert.Equal(t, 1, Clamp(0, 1, 3))
}

func TestMachine_BrightnessWraps(t *testing.T) {
	m := NewMachine(ControlState{Brightness: 7})
	name, state, err := m.Apply("brightness")
	require.NoError(t, err)
	assert.Equal(t, "brightness0", name)
	assert.Equal(t, 0, state.Brightness)
}

func TestMachine_ZoomInClamps(t *testing.T) {
	m := NewMachine(ControlState{Zoom: ZoomNarrow})
	name, state, err := m.Apply("zoomIn")
	require.NoError(t, err)
	assert.Equal(t, "zoom2", name)
	assert.Equal(t, ZoomNarrow, state.Zoom)

	name, _, _ = m.Apply("zoomOut")
	assert.Equal(t, "zoom1", name)
}

func TestMachine_ZoomCycleWraps(t *testing.T) {
	m := NewMachine(DefaultState)
	var names []string
	for i := 0; i < 4; i++ {
		name, _, err := m.Apply("zoomCycle")
		require.NoError(t, err)
		names = append(names, name)
	}
	assert.Equal(t, []string{"zoom1", "zoom2", "zoom0", "zoom1"}, names)
}

func TestMachine_ColorToggles(t *testing.T) {
	m := NewMachine(DefaultState)

	name, state, _ := m.Apply("color")
	assert.Equal(t, "color0", name)
	assert.Equal(t, ColorBlackHot, state.Color)

	name, _, _ = m.Apply("color")
	assert.Equal(t, "color1", name)

	name, _, _ = m.Apply("blackHot")
	assert.Equal(t, "color0", name)
	name, _, _ = m.Apply("blackHot")
	assert.Equal(t, "color0", name)
}

func TestMachine_MideDownWraps(t *testing.T) {
	m := NewMachine(ControlState{})
	name, state, _ := m.Apply("mideDown")
	assert.Equal(t, "mide15", name)
	assert.Equal(t, 15, state.Mide)
}

func TestMachine_UnknownAction(t *testing.T) {
	m := NewMachine(DefaultState)
	_, state, err := m.Apply("warpDrive")
	assert.True(t, errors.Is(err, ErrUnknownAction))
	assert.Equal(t, DefaultState, state)
}

func TestMachine_Set(t *testing.T) {
	m := NewMachine(DefaultState)
	m.Set(ControlState{Zoom: ZoomMiddle, Contrast: 3})
	assert.Equal(t, 3, m.State().Level(FieldContrast))
	assert.Equal(t, ZoomMiddle, m.State().Level(FieldZoom))
}

// Any sequence of actions keeps every control in range and names the
// command after the level it ends on.
func TestMachine_StaysInRange(t *testing.T) {
	actions := make([]string, 0, len(Actions))
	for name := range Actions {
		actions = append(actions, name)
	}
	sort.Strings(actions)

	rapid.Check(t, func(t *rapid.T) {
		m := NewMachine(DefaultState)
		seq := rapid.SliceOfN(rapid.SampledFrom(actions), 1, 50).Draw(t, "actions")

		for _, action := range seq {
			name, state, err := m.Apply(action)
			if err != nil {
				t.Fatal(err)
			}
			f := Actions[action].Field
			if name != CommandName(f, state.Level(f)) {
				t.Fatalf("%s sent %s at level %d", action, name, state.Level(f))
			}
			for _, g := range []Field{FieldZoom, FieldColor, FieldBrightness, FieldContrast, FieldMide} {
				if l := state.Level(g); l < 0 || l >= g.Size() {
					t.Fatalf("%s out of range: %d", g.Base(), l)
				}
			}
		}
	})
}

func TestHoldActions(t *testing.T) {
	for name, h := range HoldActions {
		assert.Equal(t, CommandFocusStop, h.Release, name)
		assert.NotEmpty(t, h.Press, name)
	}
}
