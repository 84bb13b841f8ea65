// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// FormatHex renders bytes as "0x10 0x02 ..." like the debug console expects
func FormatHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "0x%02x", b)
	}
	return sb.String()
}

// ParseHex accepts "10 02 f4", "0x10,0x02" or "1002f4"
func ParseHex(s string) ([]byte, error) {
	r := strings.NewReplacer("0x", "", "0X", "", ",", " ", ":", " ")
	fields := strings.Fields(r.Replace(s))
	var out []byte
	for _, f := range fields {
		if len(f)%2 == 1 {
			f = "0" + f
		}
		b, err := hex.DecodeString(f)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %w", f, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// FormatFrame renders a framed command with its checksum split out
func FormatFrame(v Variant, name string, frame []byte) string {
	if len(frame) < MinFrameSize {
		return fmt.Sprintf("%-12s %s (short)", name, FormatHex(frame))
	}
	body := frame[:len(frame)-ChecksumSize]
	return fmt.Sprintf("%-12s %s | crc=0x%04X", name, FormatHex(body), v.StoredChecksum(frame))
}
