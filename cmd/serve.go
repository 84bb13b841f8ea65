// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/thermoscope/pkg/assets"
	"github.com/Thermoquad/thermoscope/pkg/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the static asset server and the debug collector",
	Long: `Serve the front-end files from server.root on server.port (default 8000) and
run the debug collector on server.debug_port (default 8001).

The collector accepts telemetry events on POST /log and writes them to the
log with their category. Both servers stop on Ctrl+C.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("http-port", assets.DefaultPort, "Static asset server port")
	serveCmd.Flags().Int("debug-port", 8001, "Debug collector port")
	serveCmd.Flags().String("root", ".", "Directory to serve")
	cobra.CheckErr(v.BindPFlag("server.port", serveCmd.Flags().Lookup("http-port")))
	cobra.CheckErr(v.BindPFlag("server.debug_port", serveCmd.Flags().Lookup("debug-port")))
	cobra.CheckErr(v.BindPFlag("server.root", serveCmd.Flags().Lookup("root")))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	servers := []*http.Server{
		{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           assets.NewServer(cfg.Server.Root),
			ReadHeaderTimeout: 10 * time.Second,
		},
		{
			Addr:              fmt.Sprintf(":%d", cfg.Server.DebugPort),
			Handler:           telemetry.NewCollector(logrus.StandardLogger()),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	fmt.Printf("Server running at http://localhost:%d/\n", cfg.Server.Port)
	fmt.Printf("Debug server running at http://localhost:%d/\n", cfg.Server.DebugPort)

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logrus.WithField("addr", srv.Addr).Debug("Listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logrus.WithError(err).WithField("addr", srv.Addr).Warn("Shutdown failed")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println("Servers stopped")
	return nil
}
