// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"fmt"
	"sort"
)

// Layout describes which bytes of a frame are covered by the checksum
type Layout int

// Frame layouts
const (
	// LayoutDLE frames are [DLE STX header... payload... DLE ETX crc crc].
	// The checksum covers everything between DLE STX and DLE ETX.
	LayoutDLE Layout = iota
	// LayoutRaw frames carry no markers; the checksum covers every byte
	// except the two reserved at the end.
	LayoutRaw
)

// ByteOrder is the order in which the checksum is written into a frame
type ByteOrder int

// Checksum byte orders
const (
	HighLow ByteOrder = iota
	LowHigh
)

// Variant ties together the layout, checksum convention and byte order
// spoken by one device firmware family.
type Variant struct {
	ID         string
	Layout     Layout
	Convention Convention
	ByteOrder  ByteOrder
}

// Known device variants
var (
	VariantDLE = Variant{
		ID:         "dle",
		Layout:     LayoutDLE,
		Convention: ConventionMSB,
		ByteOrder:  HighLow,
	}
	VariantRaw = Variant{
		ID:         "raw",
		Layout:     LayoutRaw,
		Convention: ConventionReflected,
		ByteOrder:  LowHigh,
	}
	VariantRawMSB = Variant{
		ID:         "raw-msb",
		Layout:     LayoutRaw,
		Convention: ConventionMSB,
		ByteOrder:  HighLow,
	}
)

var variants = map[string]Variant{
	VariantDLE.ID:    VariantDLE,
	VariantRaw.ID:    VariantRaw,
	VariantRawMSB.ID: VariantRawMSB,
}

// LookupVariant returns the variant registered under id
func LookupVariant(id string) (Variant, error) {
	v, ok := variants[id]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownVariant, id, VariantIDs())
	}
	return v, nil
}

// VariantIDs lists registered variant ids in sorted order
func VariantIDs() []string {
	ids := make([]string, 0, len(variants))
	for id := range variants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Payload returns the region of frame that the checksum covers.
// The returned slice aliases frame.
func (v Variant) Payload(frame []byte) []byte {
	end := len(frame) - ChecksumSize
	if end < 0 {
		return nil
	}
	if v.Layout == LayoutRaw {
		return frame[:end]
	}
	if end < payloadOffset {
		return nil
	}
	// The delimiter has to sit before the checksum slots.
	for i := payloadOffset; i+1 < end; i++ {
		if frame[i] == DLE && frame[i+1] == ETX {
			return frame[payloadOffset:i]
		}
	}
	// No DLE ETX: checksum the rest of the frame.
	return frame[payloadOffset:end]
}

// PutChecksum writes crc into the last two bytes of frame
func (v Variant) PutChecksum(frame []byte, crc uint16) {
	hi, lo := byte(crc>>8), byte(crc)
	n := len(frame)
	if v.ByteOrder == LowHigh {
		frame[n-2], frame[n-1] = lo, hi
	} else {
		frame[n-2], frame[n-1] = hi, lo
	}
}

// StoredChecksum reads the checksum from the last two bytes of frame
func (v Variant) StoredChecksum(frame []byte) uint16 {
	n := len(frame)
	a, b := uint16(frame[n-2]), uint16(frame[n-1])
	if v.ByteOrder == LowHigh {
		return b<<8 | a
	}
	return a<<8 | b
}

func (v Variant) String() string {
	return v.ID
}
