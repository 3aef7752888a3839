// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package server_test

import (
	"context"
	"testing"

	"github.com/minuted-dev/minuted/internal/extract"
	"github.com/minuted-dev/minuted/internal/retry"
	"github.com/minuted-dev/minuted/internal/server"
	"github.com/minuted-dev/minuted/pkg/health"
	"github.com/stretchr/testify/require"
)

type fakeExtract struct {
	result   *extract.Result
	err      error
	lastText string
	lastOpts extract.Options
}

func (f *fakeExtract) Extract(_ context.Context, text string, opts extract.Options) (*extract.Result, error) {
	f.lastText = text
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type poolCall struct {
	method   string
	pool     string
	endpoint string
}

type fakePools struct {
	stats map[string]health.PoolSnapshot
	err   error
	calls []poolCall
}

func (f *fakePools) Stats() map[string]health.PoolSnapshot {
	return f.stats
}

func (f *fakePools) SetStrategy(poolID, strategy string) error {
	f.calls = append(f.calls, poolCall{method: "SetStrategy", pool: poolID, endpoint: strategy})
	return f.err
}

func (f *fakePools) AddEndpoint(poolID string, req server.EndpointRequest) error {
	f.calls = append(f.calls, poolCall{method: "AddEndpoint", pool: poolID, endpoint: req.ID})
	return f.err
}

func (f *fakePools) RemoveEndpoint(poolID, endpointID string) error {
	f.calls = append(f.calls, poolCall{method: "RemoveEndpoint", pool: poolID, endpoint: endpointID})
	return f.err
}

func (f *fakePools) EnableEndpoint(poolID, endpointID string) error {
	f.calls = append(f.calls, poolCall{method: "EnableEndpoint", pool: poolID, endpoint: endpointID})
	return f.err
}

func (f *fakePools) DisableEndpoint(poolID, endpointID string) error {
	f.calls = append(f.calls, poolCall{method: "DisableEndpoint", pool: poolID, endpoint: endpointID})
	return f.err
}

type fakeErrors struct {
	stats     retry.Stats
	recent    []retry.ErrorInfo
	lastLimit int
}

func (f *fakeErrors) Stats() retry.Stats {
	return f.stats
}

func (f *fakeErrors) Recent(limit int) []retry.ErrorInfo {
	f.lastLimit = limit
	return f.recent
}

type fakes struct {
	extractor *fakeExtract
	pools     *fakePools
	errs      *fakeErrors
}

func defaultFakes() fakes {
	return fakes{
		extractor: &fakeExtract{
			result: &extract.Result{
				RunID:      "run-1",
				Status:     extract.StatusCompleted,
				Confidence: 0.9,
				Validation: map[string]bool{"overall": true},
			},
		},
		pools: &fakePools{
			stats: map[string]health.PoolSnapshot{
				"default": {
					Strategy:         "health_based",
					TotalEndpoints:   1,
					HealthyEndpoints: 1,
					Endpoints: []health.EndpointSnapshot{
						{ID: "local", Status: health.StatusHealthy, Enabled: true},
					},
				},
			},
		},
		errs: &fakeErrors{
			stats: retry.Stats{TotalErrors: 2, ByType: map[retry.ErrorType]int{retry.TypeNetwork: 2}},
			recent: []retry.ErrorInfo{
				{ID: "e1", Type: retry.TypeNetwork, Message: "connection refused"},
			},
		},
	}
}

func newTestServer(t *testing.T, f fakes) *server.Server {
	t.Helper()

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	svc, err := server.NewServices(f.extractor, f.pools, f.errs)
	require.NoError(t, err)
	srv.RegisterServices(svc)

	return srv
}
