// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

// Package retry classifies failures into a fixed taxonomy and drives a
// per-type retry policy around arbitrary operations: classify, attempt
// automated recovery, back off, and record terminal failures into a
// bounded history.
package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

// EngineConfig wires the hooks the built-in recovery actions call into.
// Every hook is optional.
type EngineConfig struct {
	// ConnectivityProbe checks whether the upstream inference service is
	// reachable at all.
	ConnectivityProbe func(ctx context.Context) error

	// SwitchFallback rotates traffic to a fallback endpoint or model.
	SwitchFallback func(ctx context.Context) error

	// TempDir is swept by the temp-file cleanup action.
	TempDir string

	// ReduceConcurrency lowers the caller's parallelism; it reports
	// whether anything changed.
	ReduceConcurrency func() bool

	// Overrides replaces the built-in policy for specific error types.
	Overrides map[ErrorType]Config
}

// Engine runs operations under the retry policy. Safe for concurrent
// use.
type Engine struct {
	config  EngineConfig
	logger  *slog.Logger
	history *History
	actions map[ErrorType][]Action

	// Injectable seams for tests.
	nowFunc   func() time.Time
	randFloat func() float64
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an engine with the built-in recovery actions and
// per-type policies.
func NewEngine(cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config:    cfg,
		logger:    logger,
		history:   NewHistory(),
		actions:   defaultActions(cfg),
		nowFunc:   time.Now,
		randFloat: rand.Float64,
		sleepFunc: sleepCtx,
	}
}

// SetSleepFunc replaces the sleep used between attempts. It is a test
// seam for callers in other packages; production code keeps the
// default.
func (e *Engine) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	e.sleepFunc = fn
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// History exposes the terminal-failure record for reporting.
func (e *Engine) History() *History { return e.history }

// RegisterAction adds a recovery action for an error type, keeping the
// priority order.
func (e *Engine) RegisterAction(errType ErrorType, action Action) {
	list := append(e.actions[errType], action)
	sortActions(list)
	e.actions[errType] = list
}

// Options shapes one Do invocation.
type Options struct {
	// Operation names the work for logs and error context.
	Operation string

	// Config overrides the per-type default policy when set.
	Config *Config

	// Context is carried into every classified ErrorInfo.
	Context map[string]any
}

// Do runs op until it succeeds, the per-type attempt budget is spent,
// or the failure is classified non-retryable. Between attempts it first
// tries automated recovery (success retries immediately), otherwise
// sleeps the policy delay. The terminal failure is recorded into the
// history and returned wrapped with the attempts-exhausted code.
func (e *Engine) Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	attempt := 0
	for {
		attempt++

		if err := ctx.Err(); err != nil {
			return minutederr.Wrap(err, minutederr.CodeRetryAttemptsExhausted,
				"canceled before attempt", e.errFields(opts, attempt)...)
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				e.logger.Info("operation recovered",
					"operation", opts.Operation, "attempt", attempt)
			}
			return nil
		}

		info := classify(err, opts.Context, e.nowFunc().UTC())
		cfg := e.configFor(info.Type, opts.Config)

		if attempt >= cfg.MaxAttempts || !ShouldRetry(info, cfg) {
			e.logger.Error("operation failed permanently",
				"operation", opts.Operation, "attempt", attempt,
				"error_type", info.Type, "severity", info.Severity, "error", err)
			e.history.Record(info)
			return minutederr.Wrap(err, minutederr.CodeRetryAttemptsExhausted,
				"retry attempts exhausted", e.errFields(opts, attempt)...)
		}

		e.logger.Warn("operation failed, will retry",
			"operation", opts.Operation, "attempt", attempt,
			"error_type", info.Type, "error", err)

		if e.attemptRecovery(ctx, info) {
			continue
		}

		if d := cfg.delay(attempt, e.randFloat); d > 0 {
			if sleepErr := e.sleepFunc(ctx, d); sleepErr != nil {
				e.history.Record(info)
				return minutederr.Wrap(err, minutederr.CodeRetryAttemptsExhausted,
					"canceled while backing off", e.errFields(opts, attempt)...)
			}
		}
	}
}

func (e *Engine) errFields(opts Options, attempt int) []minutederr.Attr {
	return []minutederr.Attr{
		minutederr.Field("operation", opts.Operation),
		minutederr.Field("attempts", attempt),
	}
}

func (e *Engine) configFor(errType ErrorType, override *Config) Config {
	if override != nil {
		return *override
	}
	if cfg, ok := e.config.Overrides[errType]; ok {
		return cfg
	}
	return DefaultConfig(errType)
}

// attemptRecovery runs the error type's actions in priority order and
// reports whether one of them succeeded. Action failures are swallowed
// here; this is the only place they are handled.
func (e *Engine) attemptRecovery(ctx context.Context, info ErrorInfo) bool {
	for _, action := range e.actions[info.Type] {
		ok, err := action.Run(ctx, info)
		if err != nil {
			e.logger.Warn("recovery action failed",
				"action", action.ID, "error_type", info.Type, "error", err)
			continue
		}
		if ok {
			e.logger.Info("recovery action succeeded",
				"action", action.ID, "error_type", info.Type)
			return true
		}
	}
	return false
}
