// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import "fmt"

// Camera address and command classes of the DLE-framed firmware
const (
	cameraAddress = 0xF4

	classPing       = 0x00
	classImage      = 0x02
	classFocus      = 0x05
	classBrightness = 0x06
	classContrast   = 0x07
	classMide       = 0x08
	classCalibrate  = 0x09
	classAutoFocus  = 0x0A
	classZoom       = 0x0B
	classColor      = 0x0C

	focusStop = 0x00
	focusNear = 0x01
	focusFar  = 0x02
)

// Zoom positions used by the combined image command
const (
	ZoomWide = iota
	ZoomMiddle
	ZoomNarrow
)

// Color modes
const (
	ColorBlackHot = iota
	ColorWhiteHot
)

var zoomBase = [...]byte{
	ZoomWide:   100,
	ZoomMiddle: 200,
	ZoomNarrow: 144,
}

// dleTemplate builds [DLE STX addr class args... DLE ETX 0 0]
func dleTemplate(class byte, args ...byte) Template {
	t := make(Template, 0, len(args)+8)
	t = append(t, DLE, STX, cameraAddress, class)
	t = append(t, args...)
	return append(t, DLE, ETX, 0, 0)
}

// ZoomColorFrame builds the combined zoom/colour image command for the
// given state. White hot sets the 0x20 colour offset; the narrow position
// also sets the narrow flag.
func ZoomColorFrame(s ControlState) Template {
	colorOffset := byte(0)
	if s.Color == ColorWhiteHot {
		colorOffset = 32
	}
	narrow := byte(0)
	if s.Zoom == ZoomNarrow {
		narrow = 1
	}
	zoom := s.Zoom
	if zoom < 0 || zoom >= len(zoomBase) {
		zoom = ZoomWide
	}
	return dleTemplate(classImage, colorOffset, 0x20, 0x00, narrow, zoomBase[zoom])
}

// BuiltinCatalog returns the in-code command mapping for the DLE firmware
func BuiltinCatalog() *Catalog {
	entries := []Entry{
		{ID: CommandPing, Label: "Ping", Data: dleTemplate(classPing)},
		{ID: CommandCalibrate, Label: "Calibrate", Data: dleTemplate(classCalibrate)},
		{ID: CommandAutoFocus, Label: "Auto Focus", Data: dleTemplate(classAutoFocus)},
		{ID: CommandFocusNear, Label: "Focus Near", Data: dleTemplate(classFocus, focusNear)},
		{ID: CommandFocusFar, Label: "Focus Far", Data: dleTemplate(classFocus, focusFar)},
		{ID: CommandFocusStop, Label: "Focus Stop", Data: dleTemplate(classFocus, focusStop)},
	}
	levels := []struct {
		base  string
		label string
		class byte
		size  int
	}{
		{"zoom", "Zoom", classZoom, ZoomLevels},
		{"color", "Color", classColor, ColorLevels},
		{"brightness", "Brightness", classBrightness, BrightnessLevels},
		{"contrast", "Contrast", classContrast, ContrastLevels},
		{"mide", "Mide", classMide, MideLevels},
	}
	for _, l := range levels {
		for n := 0; n < l.size; n++ {
			entries = append(entries, Entry{
				ID:    fmt.Sprintf("%s%d", l.base, n),
				Label: fmt.Sprintf("%s %d", l.label, n),
				Data:  dleTemplate(l.class, byte(n)),
			})
		}
	}

	c, err := NewCatalog(entries)
	if err != nil {
		panic(fmt.Sprintf("ircam: builtin catalog: %v", err))
	}
	return c
}
