// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

// Package pool manages groups of LLM inference endpoints with health
// monitoring, per-endpoint circuit breaking, and pluggable load
// balancing. The Manager is the single entry point: acquire/release an
// endpoint directly, or let CallWithFailover drive the whole
// select-call-record-retry cycle.
package pool

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/minuted-dev/minuted/internal/llm"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/minuted-dev/minuted/pkg/health"
)

const (
	// DefaultPoolID is the pool used when callers pass an empty pool ID.
	DefaultPoolID = "default"

	// DefaultHealthInterval is the period of the background health sweep.
	DefaultHealthInterval = 30 * time.Second

	// DefaultProbeTimeout bounds a single liveness probe.
	DefaultProbeTimeout = 10 * time.Second

	// DefaultDegradedAfter is the probe latency past which a responsive
	// endpoint is classified degraded instead of healthy.
	DefaultDegradedAfter = 5 * time.Second

	// failoverBackoff scales the inter-attempt sleep in CallWithFailover:
	// attempt n sleeps n * failoverBackoff.
	failoverBackoff = 500 * time.Millisecond
)

// ManagerConfig carries manager-level tunables.
type ManagerConfig struct {
	HealthInterval time.Duration
	ProbeTimeout   time.Duration
	DegradedAfter  time.Duration
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.HealthInterval <= 0 {
		c.HealthInterval = DefaultHealthInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.DegradedAfter <= 0 {
		c.DegradedAfter = DefaultDegradedAfter
	}
	return c
}

// Manager owns the endpoint pools and the supervised health-check loop.
type Manager struct {
	config ManagerConfig
	logger *slog.Logger

	mu    sync.RWMutex
	pools map[string]*pool

	// Injectable seams for tests.
	nowFunc   func() time.Time
	randIntn  func(int) int
	sleepFunc func(ctx context.Context, d time.Duration) error

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a Manager with a default pool.
func NewManager(cfg ManagerConfig, poolCfg PoolConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		config:    cfg.withDefaults(),
		logger:    logger,
		pools:     map[string]*pool{DefaultPoolID: newPool(DefaultPoolID, poolCfg)},
		nowFunc:   time.Now,
		randIntn:  rand.Intn,
		sleepFunc: sleepCtx,
	}
	return m
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

func (m *Manager) getPool(poolID string) (*pool, error) {
	if poolID == "" {
		poolID = DefaultPoolID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[poolID]
	if !ok {
		return nil, minutederr.New(minutederr.CodePoolNotFound,
			"pool not found: "+poolID, minutederr.FieldPool(poolID))
	}
	return p, nil
}

// AddPool registers a new pool. Adding an existing ID is a conflict.
func (m *Manager) AddPool(poolID string, cfg PoolConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pools[poolID]; ok {
		return minutederr.New(minutederr.CodePoolEndpointExists,
			"pool already exists: "+poolID, minutederr.FieldPool(poolID))
	}
	m.pools[poolID] = newPool(poolID, cfg)
	return nil
}

// AddEndpoint registers an endpoint with a pool.
func (m *Manager) AddEndpoint(poolID string, spec EndpointSpec) error {
	p, err := m.getPool(poolID)
	if err != nil {
		return err
	}
	if spec.ID == "" || spec.Client == nil {
		return minutederr.New(minutederr.CodeConfigValidateInvalidValue,
			"endpoint needs an id and a client", minutederr.FieldPool(p.id))
	}
	if p.findEndpoint(spec.ID) != nil {
		return minutederr.New(minutederr.CodePoolEndpointExists,
			"endpoint already exists: "+spec.ID,
			minutederr.FieldPool(p.id), minutederr.FieldEndpoint(spec.ID))
	}
	p.addEndpoint(spec)
	m.logger.Info("endpoint added", "pool", p.id, "endpoint", spec.ID, "url", spec.BaseURL)
	return nil
}

// RemoveEndpoint removes an endpoint and its breaker state from a pool.
func (m *Manager) RemoveEndpoint(poolID, endpointID string) error {
	p, err := m.getPool(poolID)
	if err != nil {
		return err
	}
	if !p.removeEndpoint(endpointID) {
		return minutederr.New(minutederr.CodePoolEndpointNotFound,
			"endpoint not found: "+endpointID,
			minutederr.FieldPool(p.id), minutederr.FieldEndpoint(endpointID))
	}
	m.logger.Info("endpoint removed", "pool", p.id, "endpoint", endpointID)
	return nil
}

// EnableEndpoint marks an endpoint eligible for selection.
func (m *Manager) EnableEndpoint(poolID, endpointID string) error {
	return m.setEndpointEnabled(poolID, endpointID, true)
}

// DisableEndpoint removes an endpoint from selection without dropping
// its metrics or breaker state.
func (m *Manager) DisableEndpoint(poolID, endpointID string) error {
	return m.setEndpointEnabled(poolID, endpointID, false)
}

func (m *Manager) setEndpointEnabled(poolID, endpointID string, enabled bool) error {
	p, err := m.getPool(poolID)
	if err != nil {
		return err
	}
	ep := p.findEndpoint(endpointID)
	if ep == nil {
		return minutederr.New(minutederr.CodePoolEndpointNotFound,
			"endpoint not found: "+endpointID,
			minutederr.FieldPool(p.id), minutederr.FieldEndpoint(endpointID))
	}
	ep.setEnabled(enabled)
	m.logger.Info("endpoint toggled", "pool", p.id, "endpoint", endpointID, "enabled", enabled)
	return nil
}

// SetStrategy changes a pool's load-balancing strategy.
func (m *Manager) SetStrategy(poolID string, strategy Strategy) error {
	p, err := m.getPool(poolID)
	if err != nil {
		return err
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return err
	}
	p.setStrategy(strategy)
	m.logger.Info("strategy changed", "pool", p.id, "strategy", strategy)
	return nil
}

// AcquireEndpoint selects an eligible endpoint under the pool's strategy
// and reserves a connection slot. Callers must pair every successful
// acquire with ReleaseEndpoint on all exit paths, and should report the
// call outcome so breaker and metrics state stay truthful.
func (m *Manager) AcquireEndpoint(poolID string) (*Endpoint, error) {
	p, err := m.getPool(poolID)
	if err != nil {
		return nil, err
	}

	now := m.nowFunc()

	// Selection races with concurrent acquisitions; on a lost race the
	// filtered set is rebuilt rather than falling through to an error.
	for range 4 {
		candidates := make([]candidate, 0, 4)
		for _, ep := range p.listEndpoints() {
			if c, ok := ep.eligible(now); ok {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			break
		}

		strategy := p.strategy()
		var rr uint64
		if strategy == StrategyRoundRobin {
			rr = p.nextRR()
		}

		chosen := selectCandidate(candidates, strategy, rr, m.randIntn)
		if chosen == nil {
			break
		}
		if chosen.tryAcquire(now) {
			return chosen, nil
		}
	}

	return nil, minutederr.New(minutederr.CodePoolNoHealthyEndpoint,
		"no healthy endpoint available", minutederr.FieldPool(p.id))
}

// ReleaseEndpoint frees the connection slot taken by AcquireEndpoint.
func (m *Manager) ReleaseEndpoint(ep *Endpoint) {
	if ep == nil {
		return
	}
	ep.release()
}

// RecordSuccess reports a successful call on a directly acquired
// endpoint. CallWithFailover does this automatically.
func (m *Manager) RecordSuccess(ep *Endpoint, elapsed time.Duration) {
	ep.recordSuccess(m.nowFunc(), elapsed)
}

// RecordFailure reports a failed call on a directly acquired endpoint.
func (m *Manager) RecordFailure(ep *Endpoint, err error) {
	ep.recordFailure(m.nowFunc(), isTimeoutErr(err))
}

func isTimeoutErr(err error) bool {
	return minutederr.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded)
}

// CallWithFailover issues a generation request, retrying across the
// pool's endpoints up to MaxRetries attempts. Each attempt acquires a
// fresh endpoint, so consecutive attempts naturally fail over as
// breakers open and health shifts. The last observed failure is
// returned after the budget is spent.
func (m *Manager) CallWithFailover(ctx context.Context, poolID string, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p, err := m.getPool(poolID)
	if err != nil {
		return nil, err
	}
	maxRetries := p.config.MaxRetries

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		ep, err := m.AcquireEndpoint(poolID)
		if err != nil {
			lastErr = err
		} else {
			resp, callErr := m.callEndpoint(ctx, ep, req)
			if callErr == nil {
				return resp, nil
			}
			lastErr = callErr
			m.logger.Warn("generation attempt failed",
				"pool", p.id, "endpoint", ep.ID(), "attempt", attempt, "error", callErr)
		}

		if attempt == maxRetries {
			break
		}
		if err := m.sleepFunc(ctx, time.Duration(attempt)*failoverBackoff); err != nil {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// callEndpoint runs one guarded attempt: slot held for the duration,
// outcome recorded, slot released on every path.
func (m *Manager) callEndpoint(ctx context.Context, ep *Endpoint, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	defer m.ReleaseEndpoint(ep)

	callCtx, cancel := context.WithTimeout(ctx, ep.Timeout())
	defer cancel()

	if req.Model == "" {
		req.Model = ep.Model()
	}

	start := m.nowFunc()
	resp, err := ep.Client().Generate(callCtx, req)
	elapsed := time.Since(start)

	if err != nil {
		ep.recordFailure(m.nowFunc(), isTimeoutErr(err))
		return nil, err
	}

	ep.recordSuccess(m.nowFunc(), elapsed)
	return resp, nil
}

// Stats returns a point-in-time snapshot of every pool. Two calls with
// no intervening traffic return identical counters.
func (m *Manager) Stats() map[string]health.PoolSnapshot {
	m.mu.RLock()
	pools := make(map[string]*pool, len(m.pools))
	for id, p := range m.pools {
		pools[id] = p
	}
	m.mu.RUnlock()

	out := make(map[string]health.PoolSnapshot, len(pools))
	for id, p := range pools {
		out[id] = p.snapshot()
	}
	return out
}

// Start launches the background health-check loop. It is a no-op if the
// loop is already running. Stop or ctx cancellation ends the loop.
func (m *Manager) Start(ctx context.Context) {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.healthLoop(loopCtx, m.done)
	m.logger.Debug("health monitoring started", "interval", m.config.HealthInterval)
}

// Stop terminates the health-check loop and waits for it to exit.
func (m *Manager) Stop() {
	m.loopMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Manager) healthLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.config.HealthInterval)
	defer ticker.Stop()

	// Probe once at startup so endpoints leave StatusUnknown promptly.
	m.CheckEndpoints(ctx)

	for {
		select {
		case <-ticker.C:
			m.CheckEndpoints(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckEndpoints probes every enabled endpoint of every health-enabled
// pool concurrently. Probe errors are isolated per endpoint; a hung or
// failing endpoint cannot block the rest of the sweep.
func (m *Manager) CheckEndpoints(ctx context.Context) {
	m.mu.RLock()
	pools := make([]*pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, p := range pools {
		if !p.config.HealthChecks {
			continue
		}
		for _, ep := range p.listEndpoints() {
			ep.mu.Lock()
			enabled := ep.enabled
			ep.mu.Unlock()
			if !enabled {
				continue
			}

			wg.Add(1)
			go func(ep *Endpoint) {
				defer wg.Done()
				m.probeEndpoint(ctx, ep)
			}(ep)
		}
	}
	wg.Wait()
}

func (m *Manager) probeEndpoint(ctx context.Context, ep *Endpoint) {
	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	start := m.nowFunc()
	err := ep.Client().Probe(probeCtx)
	elapsed := time.Since(start)

	status := health.StatusHealthy
	switch {
	case err != nil:
		status = health.StatusUnhealthy
		m.logger.Debug("health probe failed", "endpoint", ep.ID(), "error", err)
	case elapsed >= m.config.DegradedAfter:
		status = health.StatusDegraded
	}

	ep.setHealth(status, m.nowFunc())
}
