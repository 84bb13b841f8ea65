// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import "fmt"

// Frame copies template and fills its two trailing checksum bytes.
// The template itself is never modified.
func Frame(v Variant, template []byte) ([]byte, error) {
	if len(template) < MinFrameSize {
		return nil, fmt.Errorf("%w: %d bytes (min %d)", ErrFrameTooShort, len(template), MinFrameSize)
	}
	frame := make([]byte, len(template))
	copy(frame, template)

	crc := v.Convention.Checksum(v.Payload(frame))
	v.PutChecksum(frame, crc)
	return frame, nil
}

// MustFrame is Frame for templates known to be valid. Panics on error.
func MustFrame(v Variant, template []byte) []byte {
	frame, err := Frame(v, template)
	if err != nil {
		panic(fmt.Sprintf("ircam: frame error: %v", err))
	}
	return frame
}

// Verify recomputes the checksum of a framed command and compares it with
// the stored bytes.
func Verify(v Variant, frame []byte) error {
	if len(frame) < MinFrameSize {
		return fmt.Errorf("%w: %d bytes (min %d)", ErrFrameTooShort, len(frame), MinFrameSize)
	}
	calculated := v.Convention.Checksum(v.Payload(frame))
	stored := v.StoredChecksum(frame)
	if calculated != stored {
		return fmt.Errorf("%w: expected 0x%04X, got 0x%04X", ErrChecksumMismatch, calculated, stored)
	}
	return nil
}
