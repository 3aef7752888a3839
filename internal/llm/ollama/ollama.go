// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

// Package ollama implements llm.Client against the native Ollama HTTP API
// (/api/generate for completions, /api/version as the liveness probe).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minuted-dev/minuted/internal/llm"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

// Config holds the connection target for one Ollama instance.
type Config struct {
	BaseURL string
	Model   string // default model when the request carries none
	// HTTPClient overrides the transport, useful for tests. When nil a
	// client without its own timeout is used; per-call deadlines come
	// from the caller's context.
	HTTPClient *http.Client
}

// Client talks to a single Ollama instance.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

var _ llm.Client = (*Client)(nil)

// New creates a Client. Returns an error if the base URL is missing.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama: missing base_url in config")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    hc,
	}, nil
}

func (c *Client) Name() string { return "ollama" }

func (c *Client) Close() error { return nil }

// generateRequest is the native /api/generate wire format.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"created_at"`
	Response        string    `json:"response"`
	Done            bool      `json:"done"`
	Context         []int     `json:"context"`
	TotalDuration   int64     `json:"total_duration"`
	LoadDuration    int64     `json:"load_duration"`
	PromptEvalCount int       `json:"prompt_eval_count"`
	EvalCount       int       `json:"eval_count"`
	EvalDuration    int64     `json:"eval_duration"`
}

// Generate issues a non-streaming completion request.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	wire := generateRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Format: string(req.Format),
		Stream: false,
	}
	if opts := buildOptions(req.Options); len(opts) > 0 {
		wire.Options = opts
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, minutederr.Wrapf(err, minutederr.CodeLLMRequestFailure, "ollama: encoding request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, minutederr.Wrapf(err, minutederr.CodeLLMRequestFailure, "ollama: building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, minutederr.Wrapf(err, minutederr.CodeLLMRequestTimeout, "ollama: generate timed out")
		}
		return nil, minutederr.Wrapf(err, minutederr.CodeLLMRequestFailure, "ollama: generate request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, minutederr.Errorf(minutederr.CodeLLMRequestFailure,
			"ollama: generate returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var wireResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return nil, minutederr.Wrapf(err, minutederr.CodeLLMResponseInvalid, "ollama: decoding response")
	}

	return &llm.GenerateResponse{
		Content:         wireResp.Response,
		Model:           wireResp.Model,
		CreatedAt:       wireResp.CreatedAt,
		Done:            wireResp.Done,
		TotalDuration:   time.Duration(wireResp.TotalDuration),
		LoadDuration:    time.Duration(wireResp.LoadDuration),
		PromptEvalCount: wireResp.PromptEvalCount,
		EvalCount:       wireResp.EvalCount,
		EvalDuration:    time.Duration(wireResp.EvalDuration),
		Context:         wireResp.Context,
	}, nil
}

// Probe hits /api/version, the cheapest endpoint the service exposes.
func (c *Client) Probe(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return minutederr.Wrapf(err, minutederr.CodeLLMProbeFailure, "ollama: building probe")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return minutederr.Wrapf(err, minutederr.CodeLLMProbeFailure, "ollama: probe request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return minutederr.Errorf(minutederr.CodeLLMProbeFailure, "ollama: probe returned %d", resp.StatusCode)
	}
	return nil
}

func buildOptions(o llm.GenerateOptions) map[string]any {
	opts := make(map[string]any)
	if o.Temperature > 0 {
		opts["temperature"] = o.Temperature
	}
	if o.TopP > 0 {
		opts["top_p"] = o.TopP
	}
	if o.MaxTokens > 0 {
		opts["num_predict"] = o.MaxTokens
	}
	return opts
}
