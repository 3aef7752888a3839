// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package pool

import (
	"sync"
	"time"

	"github.com/minuted-dev/minuted/pkg/health"
)

// PoolConfig carries the tunables for one pool.
type PoolConfig struct {
	Strategy         Strategy
	MaxRetries       int
	BreakerThreshold int
	BreakerWindow    time.Duration
	HealthChecks     bool
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.Strategy == "" {
		c.Strategy = StrategyHealthBased
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerWindow <= 0 {
		c.BreakerWindow = 60 * time.Second
	}
	return c
}

// pool owns an ordered set of endpoints sharing a selection strategy.
// The pool mutex guards the endpoint list, strategy, and round-robin
// counter; per-endpoint state has its own lock.
type pool struct {
	id     string
	config PoolConfig

	mu        sync.Mutex
	endpoints []*Endpoint
	nextReg   int
	rr        uint64
}

func newPool(id string, cfg PoolConfig) *pool {
	return &pool{id: id, config: cfg.withDefaults()}
}

func (p *pool) addEndpoint(spec EndpointSpec) *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	ep := newEndpoint(spec, p.nextReg, p.config.BreakerThreshold, p.config.BreakerWindow)
	p.nextReg++
	p.endpoints = append(p.endpoints, ep)
	return ep
}

func (p *pool) findEndpoint(id string) *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ep := range p.endpoints {
		if ep.id == id {
			return ep
		}
	}
	return nil
}

func (p *pool) removeEndpoint(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ep := range p.endpoints {
		if ep.id == id {
			p.endpoints = append(p.endpoints[:i], p.endpoints[i+1:]...)
			return true
		}
	}
	return false
}

func (p *pool) listEndpoints() []*Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Endpoint, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}

func (p *pool) strategy() Strategy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config.Strategy
}

func (p *pool) setStrategy(s Strategy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.Strategy = s
}

// nextRR returns the current round-robin counter and advances it.
func (p *pool) nextRR() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.rr
	p.rr++
	return v
}

func (p *pool) snapshot() health.PoolSnapshot {
	endpoints := p.listEndpoints()

	snap := health.PoolSnapshot{
		Strategy:       string(p.strategy()),
		TotalEndpoints: len(endpoints),
		Endpoints:      make([]health.EndpointSnapshot, 0, len(endpoints)),
	}

	for _, ep := range endpoints {
		es := ep.snapshot()
		snap.Endpoints = append(snap.Endpoints, es)
		snap.ActiveConnections += es.ActiveConnections
		switch es.Status {
		case health.StatusHealthy:
			snap.HealthyEndpoints++
		case health.StatusDegraded:
			snap.DegradedEndpoints++
		case health.StatusUnhealthy:
			snap.UnhealthyEndpoints++
		}
	}
	return snap
}
