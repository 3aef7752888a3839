// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package pool_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minuted-dev/minuted/internal/llm"
	"github.com/minuted-dev/minuted/internal/pool"
	"github.com/minuted-dev/minuted/pkg/health"
	"github.com/stretchr/testify/require"
)

// mockClient is a configurable llm.Client for pool tests.
type mockClient struct {
	name        string
	generateErr error
	probeErr    error
	response    string
	calls       atomic.Int64
}

var _ llm.Client = (*mockClient)(nil)

func (c *mockClient) Name() string { return c.name }

func (c *mockClient) Generate(_ context.Context, _ llm.GenerateRequest) (*llm.GenerateResponse, error) {
	c.calls.Add(1)
	if c.generateErr != nil {
		return nil, c.generateErr
	}
	content := c.response
	if content == "" {
		content = "{}"
	}
	return &llm.GenerateResponse{Content: content, Done: true}, nil
}

func (c *mockClient) Probe(_ context.Context) error { return c.probeErr }

func (c *mockClient) Close() error { return nil }

// newTestManager builds a manager with the given endpoints registered in
// order and marked healthy, with sleeps disabled.
func newTestManager(t *testing.T, poolCfg pool.PoolConfig, specs ...pool.EndpointSpec) *pool.Manager {
	t.Helper()

	m := pool.NewManager(pool.ManagerConfig{}, poolCfg, slog.Default())
	m.SetSleepFunc(func(_ context.Context, _ time.Duration) error { return nil })

	for _, spec := range specs {
		require.NoError(t, m.AddEndpoint(pool.DefaultPoolID, spec))
		m.EndpointByID(pool.DefaultPoolID, spec.ID).MarkStatus(health.StatusHealthy)
	}
	return m
}

func spec(id string, priority int, client llm.Client) pool.EndpointSpec {
	if client == nil {
		client = &mockClient{name: id}
	}
	return pool.EndpointSpec{
		ID:            id,
		BaseURL:       "http://" + id + ":11434",
		Model:         "llama3.2",
		Priority:      priority,
		MaxConcurrent: 5,
		Timeout:       time.Second,
		Client:        client,
	}
}
