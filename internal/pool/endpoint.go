// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package pool

import (
	"sync"
	"time"

	"github.com/minuted-dev/minuted/internal/llm"
	"github.com/minuted-dev/minuted/pkg/health"
)

// emaAlpha is the smoothing factor for the response-time moving average.
const emaAlpha = 0.1

// EndpointSpec describes an endpoint to register with a pool.
type EndpointSpec struct {
	ID            string
	BaseURL       string
	Model         string
	Priority      int // 1-10, higher = preferred
	MaxConcurrent int
	Timeout       time.Duration
	Client        llm.Client
}

// Endpoint is one reachable inference service instance. All mutable state
// is guarded by the endpoint's own mutex so concurrent acquire/release on
// different endpoints never contend.
type Endpoint struct {
	id            string
	baseURL       string
	model         string
	priority      int
	maxConcurrent int
	timeout       time.Duration
	client        llm.Client
	regIndex      int // registration order, used for deterministic tie-breaks

	mu      sync.Mutex
	enabled bool
	status  health.Status
	active  int
	metrics endpointMetrics
	breaker breaker
}

type endpointMetrics struct {
	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	connectionErrors   int64
	timeoutErrors      int64
	avgResponseTime    float64 // seconds, EMA
	lastRequestAt      time.Time
	lastHealthCheck    time.Time
}

func newEndpoint(spec EndpointSpec, regIndex int, threshold int, window time.Duration) *Endpoint {
	priority := spec.Priority
	if priority <= 0 {
		priority = 5
	}
	maxConcurrent := spec.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Endpoint{
		id:            spec.ID,
		baseURL:       spec.BaseURL,
		model:         spec.Model,
		priority:      priority,
		maxConcurrent: maxConcurrent,
		timeout:       timeout,
		client:        spec.Client,
		regIndex:      regIndex,
		enabled:       true,
		status:        health.StatusUnknown,
		breaker:       breaker{threshold: threshold, window: window},
	}
}

// ID returns the endpoint identifier.
func (e *Endpoint) ID() string { return e.id }

// Model returns the endpoint's default model name.
func (e *Endpoint) Model() string { return e.model }

// Timeout returns the per-call deadline configured for this endpoint.
func (e *Endpoint) Timeout() time.Duration { return e.timeout }

// Client returns the inference client bound to this endpoint.
func (e *Endpoint) Client() llm.Client { return e.client }

// ActiveConnections returns the current in-flight call count.
func (e *Endpoint) ActiveConnections() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// candidate is a point-in-time view of an eligible endpoint, captured
// under the endpoint lock so strategy selection runs lock-free.
type candidate struct {
	ep              *Endpoint
	active          int
	priority        int
	status          health.Status
	avgResponseTime float64
	hasSamples      bool
}

// eligible reports whether the endpoint can serve a call right now and,
// if so, returns a selection snapshot. Does not consume a half-open
// trial token; that happens in tryAcquire.
func (e *Endpoint) eligible(now time.Time) (candidate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return candidate{}, false
	}
	if e.status != health.StatusHealthy && e.status != health.StatusDegraded {
		return candidate{}, false
	}
	if e.active >= e.maxConcurrent {
		return candidate{}, false
	}
	if !e.breaker.canAttempt(now) {
		return candidate{}, false
	}

	return candidate{
		ep:              e,
		active:          e.active,
		priority:        e.priority,
		status:          e.status,
		avgResponseTime: e.metrics.avgResponseTime,
		hasSamples:      e.metrics.avgResponseTime > 0,
	}, true
}

// tryAcquire re-checks eligibility under the lock and reserves a
// connection slot. It consumes the half-open trial token when the
// breaker is probing, so callers that acquire directly must report the
// call outcome through recordSuccess or recordFailure.
func (e *Endpoint) tryAcquire(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled || e.active >= e.maxConcurrent {
		return false
	}
	if e.status != health.StatusHealthy && e.status != health.StatusDegraded {
		return false
	}
	if !e.breaker.admit(now) {
		return false
	}

	e.active++
	return true
}

// release frees a connection slot, floored at zero.
func (e *Endpoint) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active > 0 {
		e.active--
	}
}

// recordSuccess folds a completed call into the endpoint metrics and
// resets the circuit breaker.
func (e *Endpoint) recordSuccess(now time.Time, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.metrics.totalRequests++
	e.metrics.successfulRequests++
	e.metrics.lastRequestAt = now

	sample := elapsed.Seconds()
	if e.metrics.avgResponseTime == 0 {
		e.metrics.avgResponseTime = sample
	} else {
		e.metrics.avgResponseTime = emaAlpha*sample + (1-emaAlpha)*e.metrics.avgResponseTime
	}

	e.breaker.recordSuccess()
}

// recordFailure folds a failed call into the endpoint metrics, splitting
// timeouts from connection-level failures, and feeds the breaker.
func (e *Endpoint) recordFailure(now time.Time, timedOut bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.metrics.totalRequests++
	e.metrics.failedRequests++
	e.metrics.lastRequestAt = now
	if timedOut {
		e.metrics.timeoutErrors++
	} else {
		e.metrics.connectionErrors++
	}

	e.breaker.recordFailure(now)
}

// setHealth applies a probe result.
func (e *Endpoint) setHealth(status health.Status, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
	e.metrics.lastHealthCheck = now
}

func (e *Endpoint) setEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
}

// snapshot captures the endpoint state for stats reporting.
func (e *Endpoint) snapshot() health.EndpointSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := health.Metrics{
		TotalRequests:      e.metrics.totalRequests,
		SuccessfulRequests: e.metrics.successfulRequests,
		FailedRequests:     e.metrics.failedRequests,
		ConnectionErrors:   e.metrics.connectionErrors,
		TimeoutErrors:      e.metrics.timeoutErrors,
		AvgResponseTime:    e.metrics.avgResponseTime,
	}
	if e.metrics.totalRequests > 0 {
		m.SuccessRate = float64(e.metrics.successfulRequests) / float64(e.metrics.totalRequests)
	}
	if !e.metrics.lastRequestAt.IsZero() {
		t := e.metrics.lastRequestAt
		m.LastRequestAt = &t
	}
	if !e.metrics.lastHealthCheck.IsZero() {
		t := e.metrics.lastHealthCheck
		m.LastHealthCheck = &t
	}

	b := health.BreakerInfo{
		State:        e.breaker.stateName(),
		FailureCount: e.breaker.failureCount,
	}
	if !e.breaker.lastFailure.IsZero() {
		t := e.breaker.lastFailure
		b.LastFailure = &t
	}

	return health.EndpointSnapshot{
		ID:                e.id,
		BaseURL:           e.baseURL,
		Model:             e.model,
		Status:            e.status,
		Enabled:           e.enabled,
		Priority:          e.priority,
		ActiveConnections: e.active,
		MaxConcurrent:     e.maxConcurrent,
		Metrics:           m,
		Breaker:           b,
	}
}
