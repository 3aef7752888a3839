// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minuted-dev/minuted/internal/server"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_New(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestServer_New_EmptyListenAddr(t *testing.T) {
	_, err := server.New(server.Config{})
	require.Error(t, err)
	assert.True(t, minutederr.HasCode(err, minutederr.CodeConfigValidateInvalidValue))
	assert.Contains(t, err.Error(), "listen address is required")
}

func TestServer_New_WildcardCORSRejected(t *testing.T) {
	_, err := server.New(server.Config{
		ListenAddr:  "127.0.0.1:0",
		CORSOrigins: []string{"*"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wildcard CORS origin")
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestServer_OpenAPISpec(t *testing.T) {
	srv := newTestServer(t, defaultFakes())

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "/api/v1/minutes")
	assert.Contains(t, body, "extract-minutes")
	assert.Contains(t, body, "/api/v1/pools")
}

func TestServer_SecurityHeaders(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestServer_CORSHeaders(t *testing.T) {
	srv, err := server.New(server.Config{
		ListenAddr:  "127.0.0.1:0",
		CORSOrigins: []string{"http://localhost:5173"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/pools", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_CORSOrigins_NoneConfigured_RejectsAll(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/pools", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_GracefulShutdown(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	<-ctx.Done()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down within timeout")
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := server.Config{ListenAddr: "127.0.0.1:8823"}
	cfg.ApplyDefaults()
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Minute, cfg.WriteTimeout)

	custom := server.Config{
		ListenAddr:   "127.0.0.1:8823",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	custom.ApplyDefaults()
	assert.Equal(t, 5*time.Second, custom.ReadTimeout)
	assert.Equal(t, 15*time.Second, custom.WriteTimeout)
}

func TestNewServices_RequiresAllServices(t *testing.T) {
	fakes := defaultFakes()

	_, err := server.NewServices(nil, fakes.pools, fakes.errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract service is required")

	_, err = server.NewServices(fakes.extractor, nil, fakes.errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool service is required")

	_, err = server.NewServices(fakes.extractor, fakes.pools, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error service is required")
}
