// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package health

import "time"

// Status describes the probe-derived health of one inference endpoint.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// BreakerState is the circuit-breaker state guarding one endpoint.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Metrics is a point-in-time snapshot of one endpoint's traffic counters.
// All fields are safe to serialize to JSON; the snapshot holds no
// references to live pool state.
type Metrics struct {
	TotalRequests      int64      `json:"total_requests"`
	SuccessfulRequests int64      `json:"successful_requests"`
	FailedRequests     int64      `json:"failed_requests"`
	ConnectionErrors   int64      `json:"connection_errors"`
	TimeoutErrors      int64      `json:"timeout_errors"`
	SuccessRate        float64    `json:"success_rate"`
	AvgResponseTime    float64    `json:"avg_response_time_seconds"`
	LastRequestAt      *time.Time `json:"last_request_at,omitempty"`
	LastHealthCheck    *time.Time `json:"last_health_check,omitempty"`
}

// EndpointSnapshot is the externally visible state of one endpoint.
type EndpointSnapshot struct {
	ID                string      `json:"endpoint_id"`
	BaseURL           string      `json:"base_url"`
	Model             string      `json:"model"`
	Status            Status      `json:"status"`
	Enabled           bool        `json:"enabled"`
	Priority          int         `json:"priority"`
	ActiveConnections int         `json:"active_connections"`
	MaxConcurrent     int         `json:"max_concurrent"`
	Metrics           Metrics     `json:"metrics"`
	Breaker           BreakerInfo `json:"circuit_breaker"`
}

// BreakerInfo is a snapshot of an endpoint's circuit breaker.
type BreakerInfo struct {
	State        BreakerState `json:"state"`
	FailureCount int          `json:"failure_count"`
	LastFailure  *time.Time   `json:"last_failure,omitempty"`
}

// PoolSnapshot aggregates the endpoint snapshots of one pool.
type PoolSnapshot struct {
	Strategy           string             `json:"strategy"`
	TotalEndpoints     int                `json:"total_endpoints"`
	HealthyEndpoints   int                `json:"healthy_endpoints"`
	DegradedEndpoints  int                `json:"degraded_endpoints"`
	UnhealthyEndpoints int                `json:"unhealthy_endpoints"`
	ActiveConnections  int                `json:"active_connections"`
	Endpoints          []EndpointSnapshot `json:"endpoints"`
}
