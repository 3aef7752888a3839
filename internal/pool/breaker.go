// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package pool

import (
	"time"

	"github.com/minuted-dev/minuted/pkg/health"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker is the per-endpoint failure guard. It is embedded in Endpoint
// and shares the endpoint mutex; none of its methods lock.
//
// closed --[failureCount >= threshold]--> open
// open --[now - lastFailure > window]--> half_open
// half_open admits exactly one trial call: success resets to closed with
// failureCount zeroed, failure reopens and restarts the window.
type breaker struct {
	threshold     int
	window        time.Duration
	state         breakerState
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool
}

// canAttempt reports whether a call could be admitted right now without
// mutating state. Used while filtering candidates so selection does not
// consume the half-open trial token.
func (b *breaker) canAttempt(now time.Time) bool {
	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		return now.Sub(b.lastFailure) > b.window
	case breakerHalfOpen:
		return !b.trialInFlight
	}
	return false
}

// admit grants permission for one call, transitioning open -> half_open
// when the window has elapsed and taking the single trial token.
func (b *breaker) admit(now time.Time) bool {
	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if now.Sub(b.lastFailure) <= b.window {
			return false
		}
		b.state = breakerHalfOpen
		b.trialInFlight = true
		return true
	case breakerHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	}
	return false
}

func (b *breaker) recordSuccess() {
	b.state = breakerClosed
	b.failureCount = 0
	b.trialInFlight = false
}

func (b *breaker) recordFailure(now time.Time) {
	b.failureCount++
	b.lastFailure = now

	switch b.state {
	case breakerHalfOpen:
		b.state = breakerOpen
		b.trialInFlight = false
	case breakerClosed:
		if b.failureCount >= b.threshold {
			b.state = breakerOpen
		}
	}
}

func (b *breaker) stateName() health.BreakerState {
	switch b.state {
	case breakerOpen:
		return health.BreakerOpen
	case breakerHalfOpen:
		return health.BreakerHalfOpen
	default:
		return health.BreakerClosed
	}
}
