// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package pool

import (
	"context"
	"time"

	"github.com/minuted-dev/minuted/pkg/health"
)

// Test seams. Compiled only for tests in this package's test binary.

func (m *Manager) SetNowFunc(fn func() time.Time) { m.nowFunc = fn }

func (m *Manager) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	m.sleepFunc = fn
}

func (m *Manager) SetRandIntn(fn func(int) int) { m.randIntn = fn }

// EndpointByID returns the live endpoint object for direct state checks.
func (m *Manager) EndpointByID(poolID, id string) *Endpoint {
	p, err := m.getPool(poolID)
	if err != nil {
		return nil
	}
	return p.findEndpoint(id)
}

// MarkStatus force-sets an endpoint's health without a probe.
func (e *Endpoint) MarkStatus(s health.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = s
}

// BreakerSnapshot returns the breaker state and failure count.
func (e *Endpoint) BreakerSnapshot() (health.BreakerState, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.breaker.stateName(), e.breaker.failureCount
}
