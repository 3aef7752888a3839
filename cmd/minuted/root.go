// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/minuted-dev/minuted/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root minuted command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "minuted",
		Short:         "Resilient meeting-minutes extraction",
		Long:          "Minuted extracts structured meeting minutes from raw transcripts using a pool of local LLM endpoints with failover and retry.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newStartCmd(),
		newExtractCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig resolves the config path from the --config flag, falling
// back to the bootstrapped default location when none is given.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if defaultPath, err := config.DefaultConfigPath(); err == nil {
			if _, statErr := os.Stat(defaultPath); statErr == nil {
				path = defaultPath
			}
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		config.WarnInsecurePermissions(path)
	}
	return cfg, path, nil
}

// setupLogging installs the process-wide slog logger per the config,
// with --verbose forcing debug level.
func setupLogging(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
