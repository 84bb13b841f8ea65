// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/thermoscope/pkg/ircam"
	"github.com/spf13/cobra"
)

var (
	crcVerify bool
	crcAll    bool
)

var crcCmd = &cobra.Command{
	Use:   "crc <hex>",
	Short: "Frame a template and print its checksum",
	Long: `Compute the checksum of a command template and print the framed bytes.

The template is given as hex bytes including the two trailing checksum slots,
for example "10 02 01 02 00 10 03 00 00". With --verify the trailing bytes are
checked instead of filled in.

Examples:
  thermoscope crc 10 02 01 02 00 10 03 00 00
  thermoscope crc --variant raw 0x01,0x02,0x00,0x00
  thermoscope crc --all 10020102001003 0000`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCRC,
}

func init() {
	crcCmd.Flags().BoolVar(&crcVerify, "verify", false, "Verify the stored checksum instead of computing it")
	crcCmd.Flags().BoolVar(&crcAll, "all", false, "Show the result for every protocol variant")
	rootCmd.AddCommand(crcCmd)
}

func runCRC(cmd *cobra.Command, args []string) error {
	template, err := ircam.ParseHex(strings.Join(args, " "))
	if err != nil {
		return err
	}

	variants := []string{cfg.Device.Variant}
	if crcAll {
		variants = ircam.VariantIDs()
	}

	for _, id := range variants {
		v, err := ircam.LookupVariant(id)
		if err != nil {
			return err
		}

		if crcVerify {
			if err := ircam.Verify(v, template); err != nil {
				fmt.Printf("%-8s %v\n", v.ID, err)
			} else {
				fmt.Printf("%-8s OK (0x%04X)\n", v.ID, v.StoredChecksum(template))
			}
			continue
		}

		frame, err := ircam.Frame(v, template)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s payload: %s\n", v.ID, ircam.FormatHex(v.Payload(frame)))
		fmt.Printf("%-8s crc:     0x%04X (%s)\n", "", v.StoredChecksum(frame), v.Convention)
		fmt.Printf("%-8s frame:   %s\n", "", ircam.FormatHex(frame))
	}
	return nil
}
