// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the minuted server",
		Long:  "Load configuration, build the endpoint pool, and start the HTTP API.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	logger := setupLogging(cmd, cfg)

	app, err := WireApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.Pool.Start(ctx)
	defer app.Pool.Stop()

	logger.Info("minuted starting",
		"listen", cfg.Server.Listen,
		"endpoints", len(cfg.Endpoints),
		"strategy", cfg.Pool.Strategy)

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Starting minuted on %s\n", cfg.Server.Listen); err != nil {
		return err
	}

	return app.Server.Start(ctx)
}
