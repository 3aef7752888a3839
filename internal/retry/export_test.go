// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package retry

import (
	"time"
)

// Test seams. Compiled only for tests in this package's test binary.

func (e *Engine) SetNowFunc(fn func() time.Time) { e.nowFunc = fn }

func (e *Engine) SetRandFloat(fn func() float64) { e.randFloat = fn }

// DelayWith computes the backoff with a pinned jitter source.
func (c Config) DelayWith(attempt int, randFloat func() float64) time.Duration {
	return c.delay(attempt, randFloat)
}

// ClassifyAt classifies with a pinned timestamp.
func ClassifyAt(err error, fields map[string]any, now time.Time) ErrorInfo {
	return classify(err, fields, now)
}
