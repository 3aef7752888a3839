// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/minuted-dev/minuted/internal/extract"
	"github.com/minuted-dev/minuted/internal/preprocess"
	"github.com/minuted-dev/minuted/internal/retry"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/minuted-dev/minuted/pkg/health"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Extraction
	huma.Register(s.api, huma.Operation{
		OperationID: "extract-minutes",
		Method:      http.MethodPost,
		Path:        "/api/v1/minutes",
		Summary:     "Extract meeting minutes from a transcript",
		Tags:        []string{"minutes"},
	}, s.handleExtractMinutes)

	// Pool observation
	huma.Register(s.api, huma.Operation{
		OperationID: "list-pools",
		Method:      http.MethodGet,
		Path:        "/api/v1/pools",
		Summary:     "List endpoint pools with statistics",
		Tags:        []string{"pools"},
	}, s.handleListPools)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-pool",
		Method:      http.MethodGet,
		Path:        "/api/v1/pools/{pool}",
		Summary:     "Get one pool's statistics",
		Tags:        []string{"pools"},
	}, s.handleGetPool)

	// Pool administration
	huma.Register(s.api, huma.Operation{
		OperationID: "set-pool-strategy",
		Method:      http.MethodPut,
		Path:        "/api/v1/pools/{pool}/strategy",
		Summary:     "Change a pool's load-balancing strategy",
		Tags:        []string{"pools"},
	}, s.handleSetStrategy)

	huma.Register(s.api, huma.Operation{
		OperationID: "add-endpoint",
		Method:      http.MethodPost,
		Path:        "/api/v1/pools/{pool}/endpoints",
		Summary:     "Add an endpoint to a pool",
		Tags:        []string{"pools"},
	}, s.handleAddEndpoint)

	huma.Register(s.api, huma.Operation{
		OperationID: "remove-endpoint",
		Method:      http.MethodDelete,
		Path:        "/api/v1/pools/{pool}/endpoints/{id}",
		Summary:     "Remove an endpoint from a pool",
		Tags:        []string{"pools"},
	}, s.handleRemoveEndpoint)

	huma.Register(s.api, huma.Operation{
		OperationID: "enable-endpoint",
		Method:      http.MethodPost,
		Path:        "/api/v1/pools/{pool}/endpoints/{id}/enable",
		Summary:     "Enable an endpoint",
		Tags:        []string{"pools"},
	}, s.handleEnableEndpoint)

	huma.Register(s.api, huma.Operation{
		OperationID: "disable-endpoint",
		Method:      http.MethodPost,
		Path:        "/api/v1/pools/{pool}/endpoints/{id}/disable",
		Summary:     "Disable an endpoint",
		Tags:        []string{"pools"},
	}, s.handleDisableEndpoint)

	// Error history
	huma.Register(s.api, huma.Operation{
		OperationID: "error-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/errors",
		Summary:     "Retry engine error statistics and recent errors",
		Tags:        []string{"errors"},
	}, s.handleErrorHistory)
}

// --- Request/Response types for huma ---

type extractMinutesInput struct {
	Body struct {
		Transcript string `json:"transcript" minLength:"1" doc:"Raw meeting transcript text"`
		PoolID     string `json:"pool_id,omitempty" doc:"Endpoint pool to use, defaults to the default pool"`
		Model      string `json:"model,omitempty" doc:"Model override for all field extractions"`
		SegmentBy  string `json:"segment_by,omitempty" enum:"paragraph,sentence,topic" doc:"Transcript segmentation mode"`
	}
}
type extractMinutesOutput struct {
	Body extract.Result
}

type listPoolsOutput struct {
	Body struct {
		Pools map[string]health.PoolSnapshot `json:"pools"`
	}
}

type poolInput struct {
	Pool string `path:"pool"`
}
type getPoolOutput struct {
	Body health.PoolSnapshot
}

type setStrategyInput struct {
	Pool string `path:"pool"`
	Body struct {
		Strategy string `json:"strategy" enum:"round_robin,random,least_connections,response_time,health_based" doc:"Load-balancing strategy"`
	}
}
type statusOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type addEndpointInput struct {
	Pool string `path:"pool"`
	Body EndpointRequest
}

type endpointInput struct {
	Pool string `path:"pool"`
	ID   string `path:"id"`
}

type errorHistoryInput struct {
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Number of recent errors to return"`
}
type errorHistoryOutput struct {
	Body struct {
		Stats  retry.Stats       `json:"stats"`
		Recent []retry.ErrorInfo `json:"recent"`
	}
}

// --- Handlers ---

func (s *Server) handleExtractMinutes(ctx context.Context, input *extractMinutesInput) (*extractMinutesOutput, error) {
	// Only request-level knobs are set here; the extract service fills
	// in the configured preprocessing defaults.
	opts := extract.Options{
		PoolID: input.Body.PoolID,
		Model:  input.Body.Model,
	}
	if input.Body.SegmentBy != "" {
		opts.Preprocess.SegmentBy = preprocess.Segmentation(input.Body.SegmentBy)
	}

	result, err := s.services.Extractor().Extract(ctx, input.Body.Transcript, opts)
	if err != nil {
		// The run itself failed before producing minutes. Field-level
		// failures do not reach here; they degrade the result instead.
		return nil, humaError(err)
	}
	return &extractMinutesOutput{Body: *result}, nil
}

func (s *Server) handleListPools(_ context.Context, _ *struct{}) (*listPoolsOutput, error) {
	out := &listPoolsOutput{}
	out.Body.Pools = s.services.Pools().Stats()
	return out, nil
}

func (s *Server) handleGetPool(_ context.Context, input *poolInput) (*getPoolOutput, error) {
	snapshot, ok := s.services.Pools().Stats()[input.Pool]
	if !ok {
		return nil, huma.Error404NotFound("pool " + input.Pool + " not found")
	}
	return &getPoolOutput{Body: snapshot}, nil
}

func (s *Server) handleSetStrategy(_ context.Context, input *setStrategyInput) (*statusOutput, error) {
	if err := s.services.Pools().SetStrategy(input.Pool, input.Body.Strategy); err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "updated"
	return out, nil
}

func (s *Server) handleAddEndpoint(_ context.Context, input *addEndpointInput) (*statusOutput, error) {
	if err := s.services.Pools().AddEndpoint(input.Pool, input.Body); err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "added"
	return out, nil
}

func (s *Server) handleRemoveEndpoint(_ context.Context, input *endpointInput) (*statusOutput, error) {
	if err := s.services.Pools().RemoveEndpoint(input.Pool, input.ID); err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "removed"
	return out, nil
}

func (s *Server) handleEnableEndpoint(_ context.Context, input *endpointInput) (*statusOutput, error) {
	if err := s.services.Pools().EnableEndpoint(input.Pool, input.ID); err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "enabled"
	return out, nil
}

func (s *Server) handleDisableEndpoint(_ context.Context, input *endpointInput) (*statusOutput, error) {
	if err := s.services.Pools().DisableEndpoint(input.Pool, input.ID); err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "disabled"
	return out, nil
}

func (s *Server) handleErrorHistory(_ context.Context, input *errorHistoryInput) (*errorHistoryOutput, error) {
	out := &errorHistoryOutput{}
	out.Body.Stats = s.services.Errors().Stats()
	out.Body.Recent = s.services.Errors().Recent(input.Limit)
	return out, nil
}

// humaError maps a coded error onto the matching HTTP status.
func humaError(err error) error {
	return huma.NewError(minutederr.HTTPStatus(err), err.Error())
}
