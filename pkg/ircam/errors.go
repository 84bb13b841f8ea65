// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import "errors"

var (
	ErrNotConnected     = errors.New("serial port not connected")
	ErrLinkFailed       = errors.New("device link failed")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrUnknownAction    = errors.New("unknown action")
	ErrUnknownVariant   = errors.New("unknown protocol variant")
	ErrFrameTooShort    = errors.New("frame too short")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
