// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package retry

import (
	"math"
	"math/rand"
	"time"

	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

// Strategy names a backoff shape.
type Strategy string

const (
	ExponentialBackoff Strategy = "exponential_backoff"
	LinearBackoff      Strategy = "linear_backoff"
	FixedDelay         Strategy = "fixed_delay"
	Immediate          Strategy = "immediate"
	NoRetry            Strategy = "no_retry"
)

// Config is the retry policy applied to one error type.
type Config struct {
	Strategy      Strategy
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool

	// StopOnCodes aborts retrying when the classified error carries one
	// of these codes, regardless of recoverability.
	StopOnCodes []minutederr.Code
}

// DefaultConfig returns the built-in policy for an error type.
func DefaultConfig(errType ErrorType) Config {
	switch errType {
	case TypeNetwork:
		return Config{Strategy: ExponentialBackoff, MaxAttempts: 5,
			BaseDelay: 2 * time.Second, MaxDelay: 120 * time.Second,
			BackoffFactor: 2.0, Jitter: true}
	case TypeTimeout:
		return Config{Strategy: LinearBackoff, MaxAttempts: 3,
			BaseDelay: 5 * time.Second, MaxDelay: 30 * time.Second}
	case TypeAIService:
		return Config{Strategy: ExponentialBackoff, MaxAttempts: 4,
			BaseDelay: 3 * time.Second, MaxDelay: 60 * time.Second,
			BackoffFactor: 2.5, Jitter: true}
	case TypeFilesystem:
		return Config{Strategy: FixedDelay, MaxAttempts: 2,
			BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	case TypeProcessing:
		return Config{Strategy: Immediate, MaxAttempts: 2}
	case TypeResource:
		return Config{Strategy: LinearBackoff, MaxAttempts: 3,
			BaseDelay: 10 * time.Second, MaxDelay: 60 * time.Second}
	case TypeValidation, TypeUser:
		return Config{Strategy: NoRetry}
	}
	return Config{Strategy: ExponentialBackoff, MaxAttempts: 3,
		BaseDelay: time.Second, MaxDelay: 60 * time.Second,
		BackoffFactor: 2.0, Jitter: true}
}

// Delay computes the sleep before retrying after the given 1-based
// attempt number.
func (c Config) Delay(attempt int) time.Duration {
	return c.delay(attempt, rand.Float64)
}

// delay takes the jitter source as a parameter so tests can pin it.
func (c Config) delay(attempt int, randFloat func() float64) time.Duration {
	var d time.Duration
	switch c.Strategy {
	case Immediate:
		return 0
	case FixedDelay:
		d = c.BaseDelay
	case LinearBackoff:
		d = c.BaseDelay * time.Duration(attempt)
	case ExponentialBackoff:
		d = time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt-1)))
	default:
		d = c.BaseDelay
	}

	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}

	// Jitter spreads retries across [0.5, 1.5) of the computed delay.
	if c.Jitter {
		d = time.Duration(float64(d) * (0.5 + randFloat()))
	}
	return d
}

// ShouldRetry reports whether a classified failure is worth another
// attempt under the given policy. Attempt budgets are enforced by the
// caller, not here.
func ShouldRetry(info ErrorInfo, cfg Config) bool {
	if !info.Recoverable {
		return false
	}
	if cfg.Strategy == NoRetry {
		return false
	}
	for _, code := range cfg.StopOnCodes {
		if minutederr.HasCode(info.Cause(), code) {
			return false
		}
	}
	return true
}
