// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package pool

import (
	"math"

	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/minuted-dev/minuted/pkg/health"
)

// Strategy selects among eligible endpoints.
type Strategy string

const (
	StrategyRoundRobin       Strategy = "round_robin"
	StrategyRandom           Strategy = "random"
	StrategyLeastConnections Strategy = "least_connections"
	StrategyResponseTime     Strategy = "response_time"
	StrategyHealthBased      Strategy = "health_based"
)

// ParseStrategy validates a strategy name. An empty name yields the
// default health_based strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyRoundRobin, StrategyRandom, StrategyLeastConnections,
		StrategyResponseTime, StrategyHealthBased:
		return Strategy(name), nil
	case "":
		return StrategyHealthBased, nil
	}
	return "", minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
		"unknown load balancing strategy %q", name)
}

// selectCandidate picks one endpoint from the eligible set, which is in
// registration order. rrCounter is the pool's monotonic round-robin
// counter value for this selection. randIntn supplies randomness so
// tests can pin it.
func selectCandidate(candidates []candidate, strategy Strategy, rrCounter uint64, randIntn func(int) int) *Endpoint {
	if len(candidates) == 0 {
		return nil
	}

	switch strategy {
	case StrategyRoundRobin:
		return candidates[int(rrCounter%uint64(len(candidates)))].ep

	case StrategyRandom:
		return candidates[randIntn(len(candidates))].ep

	case StrategyLeastConnections:
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.active < best.active {
				best = c
			}
		}
		return best.ep

	case StrategyResponseTime:
		best := candidates[0]
		bestTime := responseTimeKey(best)
		for _, c := range candidates[1:] {
			if t := responseTimeKey(c); t < bestTime {
				best, bestTime = c, t
			}
		}
		return best.ep

	case StrategyHealthBased:
		// Fully healthy endpoints win over degraded ones regardless of
		// priority; within each tier the highest priority wins.
		if ep := maxPriority(candidates, true); ep != nil {
			return ep
		}
		return maxPriority(candidates, false)
	}

	return candidates[0].ep
}

// responseTimeKey treats endpoints with no samples as slowest.
func responseTimeKey(c candidate) float64 {
	if !c.hasSamples {
		return math.Inf(1)
	}
	return c.avgResponseTime
}

// maxPriority returns the highest-priority candidate, optionally
// restricted to fully healthy endpoints. Ties keep the earlier
// registration.
func maxPriority(candidates []candidate, healthyOnly bool) *Endpoint {
	var best *candidate
	for i := range candidates {
		c := &candidates[i]
		if healthyOnly && c.status != health.StatusHealthy {
			continue
		}
		if best == nil || c.priority > best.priority {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return best.ep
}
