// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/minuted-dev/minuted/internal/config"
	"github.com/minuted-dev/minuted/internal/extract"
	"github.com/minuted-dev/minuted/internal/llm"
	"github.com/minuted-dev/minuted/internal/llm/ollama"
	"github.com/minuted-dev/minuted/internal/llm/openaicompat"
	"github.com/minuted-dev/minuted/internal/pool"
	"github.com/minuted-dev/minuted/internal/preprocess"
	"github.com/minuted-dev/minuted/internal/retry"
	"github.com/minuted-dev/minuted/internal/server"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/minuted-dev/minuted/pkg/health"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Server    *server.Server
	Pool      *pool.Manager
	Engine    *retry.Engine
	Extractor *extract.Extractor

	baseOptions extract.Options
}

// WireApp creates all subsystems from the loaded configuration and
// wires them together.
func WireApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	strategy, err := pool.ParseStrategy(cfg.Pool.Strategy)
	if err != nil {
		return nil, minutederr.Wrapf(err, minutederr.CodeCLISetupFailure, "parsing pool strategy")
	}

	mgr := pool.NewManager(
		pool.ManagerConfig{
			HealthInterval: cfg.Health.Interval(),
			ProbeTimeout:   cfg.Health.ProbeTimeout(),
			DegradedAfter:  cfg.Health.DegradedAfter(),
		},
		pool.PoolConfig{
			Strategy:         strategy,
			MaxRetries:       cfg.Pool.MaxRetries,
			BreakerThreshold: cfg.Pool.BreakerThreshold,
			BreakerWindow:    cfg.Pool.BreakerWindow(),
			HealthChecks:     cfg.Pool.HealthChecks,
		},
		logger,
	)

	for _, ep := range cfg.Endpoints {
		client, err := buildClient(ep.Protocol, ep.URL, ep.Model, ep.APIKey)
		if err != nil {
			return nil, minutederr.Wrapf(err, minutederr.CodeCLISetupFailure, "building client for endpoint %s", ep.ID)
		}
		spec := pool.EndpointSpec{
			ID:            ep.ID,
			BaseURL:       ep.URL,
			Model:         ep.Model,
			Priority:      ep.Priority,
			MaxConcurrent: ep.MaxConcurrent,
			Timeout:       ep.Timeout(),
			Client:        client,
		}
		if err := mgr.AddEndpoint(pool.DefaultPoolID, spec); err != nil {
			return nil, minutederr.Wrapf(err, minutederr.CodeCLISetupFailure, "adding endpoint %s", ep.ID)
		}
	}

	engine := retry.NewEngine(retry.EngineConfig{
		ConnectivityProbe: func(ctx context.Context) error {
			mgr.CheckEndpoints(ctx)
			return ctx.Err()
		},
		TempDir: cfg.Extraction.TempDir,
	}, logger)

	extractor := extract.NewExtractor(mgr, engine, logger)
	baseOpts := extract.Options{
		Preprocess:   preprocessOptions(cfg.Extraction),
		Temperature:  cfg.Extraction.Temperature,
		PromptWindow: cfg.Extraction.PromptWindowRunes,
	}

	services, err := server.NewServices(
		&extractServiceAdapter{extractor: extractor, base: baseOpts},
		&poolServiceAdapter{mgr: mgr},
		engine.History(),
	)
	if err != nil {
		return nil, minutederr.Wrap(err, minutederr.CodeCLISetupFailure, "creating services")
	}

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		return nil, minutederr.Wrap(err, minutederr.CodeCLISetupFailure, "creating server")
	}
	srv.RegisterServices(services)

	return &App{
		Server:      srv,
		Pool:        mgr,
		Engine:      engine,
		Extractor:   extractor,
		baseOptions: baseOpts,
	}, nil
}

// ExtractOptions returns extraction options carrying the configured
// defaults.
func (a *App) ExtractOptions() extract.Options {
	return a.baseOptions
}

// buildClient constructs a protocol-specific inference client. An empty
// protocol defaults to ollama.
func buildClient(protocol, baseURL, model, apiKey string) (llm.Client, error) {
	switch protocol {
	case "", "ollama":
		return ollama.New(ollama.Config{BaseURL: baseURL, Model: model})
	case "openai":
		return openaicompat.New(openaicompat.Config{BaseURL: baseURL, Model: model, APIKey: apiKey})
	default:
		return nil, minutederr.Errorf(minutederr.CodeCLIInputInvalid, "unknown endpoint protocol %q", protocol)
	}
}

// preprocessOptions maps the extraction config onto preprocessing options.
func preprocessOptions(cfg config.ExtractionConfig) preprocess.Options {
	opts := preprocess.DefaultOptions()
	if cfg.SegmentBy != "" {
		opts.SegmentBy = preprocess.Segmentation(cfg.SegmentBy)
	}
	if cfg.MaxSegments > 0 {
		opts.MaxSegments = cfg.MaxSegments
	}
	opts.RemoveFillers = cfg.RemoveFillers
	opts.RemoveRepetitions = cfg.RemoveRepetitions
	opts.RemoveSpeakerLabels = cfg.RemoveSpeakerLabels
	return opts
}

// extractServiceAdapter applies configured extraction defaults to
// incoming requests. Requests may override the segmentation mode, pool,
// and model; everything else comes from config.
type extractServiceAdapter struct {
	extractor *extract.Extractor
	base      extract.Options
}

func (s *extractServiceAdapter) Extract(ctx context.Context, text string, opts extract.Options) (*extract.Result, error) {
	merged := s.base
	merged.PoolID = opts.PoolID
	merged.Model = opts.Model
	if opts.Preprocess.SegmentBy != "" {
		merged.Preprocess.SegmentBy = opts.Preprocess.SegmentBy
	}
	return s.extractor.Extract(ctx, text, merged)
}

// poolServiceAdapter exposes the pool manager over the server's
// PoolService interface, constructing live clients for endpoints added
// at runtime.
type poolServiceAdapter struct {
	mgr *pool.Manager
}

func (a *poolServiceAdapter) Stats() map[string]health.PoolSnapshot {
	return a.mgr.Stats()
}

func (a *poolServiceAdapter) SetStrategy(poolID, strategy string) error {
	parsed, err := pool.ParseStrategy(strategy)
	if err != nil {
		return err
	}
	return a.mgr.SetStrategy(poolID, parsed)
}

func (a *poolServiceAdapter) AddEndpoint(poolID string, req server.EndpointRequest) error {
	client, err := buildClient(req.Protocol, req.URL, req.Model, req.APIKey)
	if err != nil {
		return err
	}
	return a.mgr.AddEndpoint(poolID, pool.EndpointSpec{
		ID:            req.ID,
		BaseURL:       req.URL,
		Model:         req.Model,
		Priority:      req.Priority,
		MaxConcurrent: req.MaxConcurrent,
		Timeout:       time.Duration(req.TimeoutSecs) * time.Second,
		Client:        client,
	})
}

func (a *poolServiceAdapter) RemoveEndpoint(poolID, endpointID string) error {
	return a.mgr.RemoveEndpoint(poolID, endpointID)
}

func (a *poolServiceAdapter) EnableEndpoint(poolID, endpointID string) error {
	return a.mgr.EnableEndpoint(poolID, endpointID)
}

func (a *poolServiceAdapter) DisableEndpoint(poolID, endpointID string) error {
	return a.mgr.DisableEndpoint(poolID, endpointID)
}
