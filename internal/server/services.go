// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package server

import (
	"context"

	"github.com/minuted-dev/minuted/internal/extract"
	"github.com/minuted-dev/minuted/internal/retry"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/minuted-dev/minuted/pkg/health"
)

// ExtractService runs meeting-minutes extractions.
// *extract.Extractor satisfies it.
type ExtractService interface {
	Extract(ctx context.Context, text string, opts extract.Options) (*extract.Result, error)
}

// EndpointRequest describes an endpoint to join a pool at runtime.
// The wiring layer turns it into a live client per protocol.
type EndpointRequest struct {
	ID            string `json:"id" minLength:"1" doc:"Endpoint identifier, unique within the pool"`
	URL           string `json:"url" minLength:"1" doc:"Base URL of the inference service"`
	Model         string `json:"model,omitempty" doc:"Default model served by this endpoint"`
	Protocol      string `json:"protocol,omitempty" enum:"ollama,openai" doc:"Wire protocol, defaults to ollama"`
	APIKey        string `json:"api_key,omitempty" doc:"Bearer token for openai-protocol endpoints"`
	Priority      int    `json:"priority,omitempty" minimum:"0" maximum:"10" doc:"Selection priority, higher preferred"`
	MaxConcurrent int    `json:"max_concurrent,omitempty" minimum:"0" doc:"Connection cap, 0 uses the default"`
	TimeoutSecs   int    `json:"timeout_seconds,omitempty" minimum:"0" doc:"Per-call timeout in seconds"`
}

// PoolService exposes pool observation and administration.
type PoolService interface {
	Stats() map[string]health.PoolSnapshot
	SetStrategy(poolID, strategy string) error
	AddEndpoint(poolID string, req EndpointRequest) error
	RemoveEndpoint(poolID, endpointID string) error
	EnableEndpoint(poolID, endpointID string) error
	DisableEndpoint(poolID, endpointID string) error
}

// ErrorService exposes the retry engine's error history.
// *retry.History satisfies it.
type ErrorService interface {
	Stats() retry.Stats
	Recent(limit int) []retry.ErrorInfo
}

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
// Use NewServices to ensure all required services are provided.
type Services struct {
	extractor ExtractService
	pools     PoolService
	errs      ErrorService
}

// NewServices creates a Services instance with validation.
// Returns an error if any required service is nil.
func NewServices(extractor ExtractService, pools PoolService, errs ErrorService) (*Services, error) {
	if extractor == nil {
		return nil, minutederr.New(minutederr.CodeConfigValidateInvalidValue, "extract service is required")
	}
	if pools == nil {
		return nil, minutederr.New(minutederr.CodeConfigValidateInvalidValue, "pool service is required")
	}
	if errs == nil {
		return nil, minutederr.New(minutederr.CodeConfigValidateInvalidValue, "error service is required")
	}
	return &Services{
		extractor: extractor,
		pools:     pools,
		errs:      errs,
	}, nil
}

// Extractor returns the extract service.
func (s *Services) Extractor() ExtractService {
	return s.extractor
}

// Pools returns the pool service.
func (s *Services) Pools() PoolService {
	return s.pools
}

// Errors returns the error history service.
func (s *Services) Errors() ErrorService {
	return s.errs
}
