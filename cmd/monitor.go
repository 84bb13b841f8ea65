// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var monitorQuiet bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display data received from the camera",
	Long: `Connect to the camera and print everything it sends, with timestamps.

The keep-alive ping runs while monitoring so the camera stays in remote
mode. Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVarP(&monitorQuiet, "quiet", "q", false, "Print raw data only, without timestamps")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := receiveFunc(func(data string) {
		if monitorQuiet {
			fmt.Print(data)
			return
		}
		fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), strconv.Quote(data))
	})

	session, connInfo, err := connectSession(ctx, printer)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("Thermoscope - Monitor\n")
	fmt.Printf("Connection: %s (%s)\n", connInfo, session.Variant())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	select {
	case <-ctx.Done():
	case <-session.Link().Done():
		fmt.Println("Connection closed")
	}

	fmt.Printf("\n%s", session.Stats())
	return nil
}
