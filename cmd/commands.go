// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/thermoscope/pkg/ircam"
	"github.com/spf13/cobra"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the command catalog",
	Long: `List every command in the catalog with the frame that would be sent for it
under the configured protocol variant.

The catalog comes from --catalog (JSON or CBOR) or the builtin definitions.`,
	RunE: runCommands,
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}

func runCommands(cmd *cobra.Command, args []string) error {
	variant, err := ircam.LookupVariant(cfg.Device.Variant)
	if err != nil {
		return err
	}

	catalog := loadCatalog()
	fmt.Printf("Variant: %s\n", variant)
	fmt.Printf("Commands: %d\n\n", catalog.Len())

	for _, entry := range catalog.Entries() {
		frame, err := ircam.Frame(variant, entry.Data)
		if err != nil {
			fmt.Printf("%-12s [ERROR] %v\n", entry.ID, err)
			continue
		}
		fmt.Println(ircam.FormatFrame(variant, entry.ID, frame))
	}
	return nil
}
