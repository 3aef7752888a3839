// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

// Package extract orchestrates structured meeting-minutes extraction:
// preprocess the transcript, fan six field extractions out through the
// retry engine and the endpoint pool, then validate and score the
// aggregate.
package extract

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minuted-dev/minuted/internal/llm"
	"github.com/minuted-dev/minuted/internal/preprocess"
	"github.com/minuted-dev/minuted/internal/retry"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

// Default generation options for extraction calls.
const (
	defaultTemperature = 0.3
	defaultTopP        = 0.9
	defaultMaxTokens   = 2048
)

// Generator issues one generation request with pool-level failover.
// *pool.Manager satisfies it.
type Generator interface {
	CallWithFailover(ctx context.Context, poolID string, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

// Options shapes one extraction run.
type Options struct {
	// PoolID selects the endpoint pool; empty uses the default pool.
	PoolID string

	// Model overrides the per-endpoint default model when set.
	Model string

	// Preprocess controls transcript cleaning.
	Preprocess preprocess.Options

	// Temperature overrides the default sampling temperature when
	// greater than zero.
	Temperature float64

	// PromptWindow bounds how many transcript runes the windowed
	// prompts see. Zero uses the built-in window.
	PromptWindow int

	// Retry overrides the per-type retry policy for field extractions.
	Retry *retry.Config
}

// DefaultOptions returns the standard extraction options.
func DefaultOptions() Options {
	return Options{Preprocess: preprocess.DefaultOptions()}
}

// Extractor runs meeting-minutes extractions. Safe for concurrent use.
type Extractor struct {
	generator Generator
	engine    *retry.Engine
	logger    *slog.Logger

	nowFunc func() time.Time
}

// NewExtractor creates an extractor over the given pool caller and
// retry engine.
func NewExtractor(generator Generator, engine *retry.Engine, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		generator: generator,
		engine:    engine,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

type fieldResult struct {
	field Field
	value any
	err   error
}

// Extract turns a raw transcript into validated meeting minutes. A
// preprocessing failure fails the whole run; a single field's terminal
// failure degrades that field to its typed default and the run
// continues. The returned Result is complete even when err is non-nil.
func (e *Extractor) Extract(ctx context.Context, text string, opts Options) (*Result, error) {
	start := e.nowFunc()
	result := &Result{
		RunID: uuid.NewString(),
		Model: opts.Model,
	}

	pre, err := preprocess.Preprocess(text, opts.Preprocess)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		result.Elapsed = time.Since(start)
		return result, err
	}

	e.logger.Info("extraction started",
		"run_id", result.RunID,
		"chars", pre.Stats.CleanedChars,
		"segments", pre.Stats.SegmentsCreated)

	results := make(chan fieldResult, len(allFields))
	var wg sync.WaitGroup
	for _, field := range allFields {
		wg.Add(1)
		go func(field Field) {
			defer wg.Done()
			results <- e.extractField(ctx, field, pre.Cleaned, opts)
		}(field)
	}
	wg.Wait()
	close(results)

	failed := make(map[string]bool)
	for fr := range results {
		if fr.err != nil {
			failed[string(fr.field)] = true
			e.logger.Warn("field extraction failed, using default",
				"run_id", result.RunID, "field", fr.field, "error", fr.err)
			continue
		}
		assignField(&result.Minutes, fr)
	}

	result.Validation = validate(result.Minutes)
	// A field that never produced data cannot count as valid, even when
	// its empty default would be vacuously so.
	if len(failed) > 0 {
		for name := range failed {
			result.Validation[name] = false
		}
		overall := true
		for name, ok := range result.Validation {
			if name != "overall" {
				overall = overall && ok
			}
		}
		result.Validation["overall"] = overall
	}
	result.Confidence = confidence(result.Minutes, result.Validation)
	if result.Validation["overall"] {
		result.Status = StatusCompleted
	} else {
		result.Status = StatusValidationFailed
	}
	result.Elapsed = time.Since(start)

	e.logger.Info("extraction finished",
		"run_id", result.RunID,
		"status", result.Status,
		"confidence", result.Confidence,
		"failed_fields", len(failed),
		"elapsed", result.Elapsed)
	return result, nil
}

// extractField runs one field extraction under the retry policy. The
// returned value is the parsed fragment; on terminal failure the typed
// default is substituted by the caller.
func (e *Extractor) extractField(ctx context.Context, field Field, text string, opts Options) fieldResult {
	temperature := defaultTemperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	req := llm.GenerateRequest{
		Prompt: prompt(field, text, opts.PromptWindow),
		Model:  opts.Model,
		System: systemPrompt,
		Format: llm.FormatJSON,
		Options: llm.GenerateOptions{
			Temperature: temperature,
			TopP:        defaultTopP,
			MaxTokens:   defaultMaxTokens,
		},
	}

	var value any
	err := e.engine.Do(ctx, func(ctx context.Context) error {
		resp, callErr := e.generator.CallWithFailover(ctx, opts.PoolID, req)
		if callErr != nil {
			return callErr
		}

		parsed, parseErr := parseField(field, resp.Content)
		if parseErr != nil {
			return parseErr
		}
		value = parsed
		return nil
	}, retry.Options{
		Operation: "extract_" + string(field),
		Config:    opts.Retry,
		Context:   map[string]any{"field": string(field)},
	})

	if err != nil {
		return fieldResult{field: field, err: minutederr.Wrap(err,
			minutederr.CodeExtractFieldFailure, "field extraction failed",
			minutederr.FieldExtraction(string(field)))}
	}
	return fieldResult{field: field, value: value}
}

func parseField(field Field, content string) (any, error) {
	switch field {
	case FieldBasicInfo:
		var v BasicInfo
		if err := decodeResponse(content, &v); err != nil {
			return nil, err
		}
		return v, nil
	case FieldAttendees:
		var v []Attendee
		if err := decodeResponse(content, &v); err != nil {
			return nil, err
		}
		return v, nil
	case FieldAgenda:
		var v []AgendaItem
		if err := decodeResponse(content, &v); err != nil {
			return nil, err
		}
		return v, nil
	case FieldActionItems:
		var v []ActionItem
		if err := decodeResponse(content, &v); err != nil {
			return nil, err
		}
		return v, nil
	case FieldDecisions:
		var v []Decision
		if err := decodeResponse(content, &v); err != nil {
			return nil, err
		}
		return v, nil
	case FieldKeyOutcomes:
		var v []string
		if err := decodeResponse(content, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, minutederr.Errorf(minutederr.CodeExtractFieldFailure,
		"unknown extraction field %q", field)
}

func assignField(m *Minutes, fr fieldResult) {
	switch v := fr.value.(type) {
	case BasicInfo:
		m.BasicInfo = v
	case []Attendee:
		m.Attendees = v
	case []AgendaItem:
		m.Agenda = v
	case []ActionItem:
		m.ActionItems = v
	case []Decision:
		m.Decisions = v
	case []string:
		m.KeyOutcomes = v
	}
}
