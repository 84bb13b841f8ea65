// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/thermoscope/pkg/ircam"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain [id]",
	Short: "Run a command chain",
	Long: `Run a command chain (an ordered list of commands and delays) from the chain
definitions file, or list the available chains when no id is given.

Unknown commands in a chain are reported and skipped; the remaining steps
still run. Ctrl+C aborts the chain between steps.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChain,
}

func init() {
	rootCmd.AddCommand(chainCmd)
}

func runChain(cmd *cobra.Command, args []string) error {
	chains, err := loadChains()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		for _, c := range chains {
			fmt.Printf("%-20s %-24s %s\n", c.ID, c.Label, formatSteps(c.Steps))
		}
		return nil
	}

	chain, ok := ircam.FindChain(chains, args[0])
	if !ok {
		return fmt.Errorf("unknown chain %q", args[0])
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, connInfo, err := connectSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("Connection: %s (%s)\n", connInfo, session.Variant())
	fmt.Printf("Running %s: %s\n", chain.Label, formatSteps(chain.Steps))

	start := time.Now()
	if err := session.RunChain(ctx, chain, chain.ID); err != nil {
		return fmt.Errorf("chain %s aborted: %w", chain.ID, err)
	}
	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func formatSteps(steps []ircam.Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " -> ")
}
