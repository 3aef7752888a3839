// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/minuted-dev/minuted/internal/preprocess"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [transcript-file]",
		Short: "Extract meeting minutes from a transcript file",
		Long:  "Run a one-shot extraction against the configured endpoint pool and print the result as JSON. Reads from stdin when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExtract,
	}

	cmd.Flags().String("model", "", "model override for all field extractions")
	cmd.Flags().String("pool", "", "endpoint pool to use")
	cmd.Flags().String("segment-by", "", "transcript segmentation mode (paragraph, sentence, topic)")
	cmd.Flags().StringP("output", "o", "", "write the result to a file instead of stdout")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	transcript, err := readTranscript(cmd, args)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Endpoints) == 0 {
		return minutederr.New(minutederr.CodeCLIInputInvalid, "no endpoints configured; add one to the config file")
	}

	logger := setupLogging(cmd, cfg)

	app, err := WireApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// One-shot run: probe synchronously instead of starting the loop so
	// endpoints leave their unknown state before selection.
	app.Pool.CheckEndpoints(ctx)

	opts := app.ExtractOptions()
	opts.Model, _ = cmd.Flags().GetString("model")
	opts.PoolID, _ = cmd.Flags().GetString("pool")
	if segmentBy, _ := cmd.Flags().GetString("segment-by"); segmentBy != "" {
		opts.Preprocess.SegmentBy = preprocess.Segmentation(segmentBy)
	}

	result, err := app.Extractor.Extract(ctx, transcript, opts)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return minutederr.Wrap(err, minutederr.CodeCLIRequestFailure, "encoding result")
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" && output != "-" {
		if err := os.WriteFile(output, append(encoded, '\n'), 0o600); err != nil {
			return minutederr.Wrapf(err, minutederr.CodeCLIRequestFailure, "writing %s", output)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote minutes to %s (status: %s, confidence: %.2f)\n",
			output, result.Status, result.Confidence)
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return err
}

func readTranscript(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", minutederr.Wrapf(err, minutederr.CodeCLIInputInvalid, "reading transcript %s", args[0])
		}
		return string(data), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", minutederr.Wrap(err, minutederr.CodeCLIInputInvalid, "reading transcript from stdin")
	}
	return string(data), nil
}
