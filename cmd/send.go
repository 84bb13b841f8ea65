// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/thermoscope/pkg/ircam"
	"github.com/spf13/cobra"
)

var sendActions []string

var sendCmd = &cobra.Command{
	Use:   "send [command...]",
	Short: "Send catalog commands once",
	Long: `Connect to the camera, send the named catalog commands in order and exit.

Control actions (zoomIn, brightness, whiteHot, ...) can be given with --action.
They are applied to the default control state, so "--action zoomIn" sends
zoom1.

Examples:
  thermoscope send calibrate autoFocus
  thermoscope send --action zoomNarrow --action blackHot`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringArrayVarP(&sendActions, "action", "a", nil, "Control action to apply (repeatable)")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(sendActions) == 0 {
		return fmt.Errorf("nothing to send, give a command or --action")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, connInfo, err := connectSession(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("Connection: %s (%s)\n", connInfo, session.Variant())

	for _, name := range args {
		if err := session.SendCommand(ctx, name); err != nil {
			if errors.Is(err, ircam.ErrUnknownCommand) {
				fmt.Printf("  %-16s unknown command, skipped\n", name)
				continue
			}
			return err
		}
		fmt.Printf("  %-16s sent\n", name)
	}

	for _, action := range sendActions {
		if err := session.Dispatch(ctx, action); err != nil {
			if errors.Is(err, ircam.ErrUnknownCommand) || errors.Is(err, ircam.ErrUnknownAction) {
				fmt.Printf("  %-16s %v\n", action, err)
				continue
			}
			return err
		}
		fmt.Printf("  %-16s sent\n", action)
	}

	fmt.Printf("\n%s\n", session.Stats())
	return nil
}
