// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ircam implements the command protocol of the serial-attached
// thermal camera family: CRC-16 checksums, frame layouts, the command
// catalog, control state, command chains and the device link.
//
// Nothing in this package knows about a user interface. Front ends drive a
// Session with named actions and command names.
package ircam

import "time"

// DLE framing bytes (Convention A)
const (
	DLE = 0x10
	STX = 0x02
	ETX = 0x03
)

// CRC-16-CCITT configuration
const (
	crcPolynomial     = 0x1021
	crcInitialMSB     = 0x0000
	crcInitialReflect = 0xFFFF
)

// Frame geometry
const (
	ChecksumSize  = 2
	MinFrameSize  = 4
	payloadOffset = 2 // DLE STX
)

const (
	readBufferSize   = 128
	DefaultKeepalive = 200 * time.Millisecond
)

// Serial line parameters. These are protocol constants, not configuration.
const (
	BaudRate = 115200
	DataBits = 8
)

// Well-known catalog entries
const (
	CommandPing      = "ping"
	CommandFocusNear = "focusNear"
	CommandFocusFar  = "focusFar"
	CommandFocusStop = "focusStop"
	CommandCalibrate = "calibrate"
	CommandAutoFocus = "autoFocus"
)
