// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package llm

import (
	"context"
	"time"
)

// Client is the core interface for local LLM inference backends.
type Client interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	// Probe performs a lightweight liveness check against the backend.
	Probe(ctx context.Context) error
	Close() error
}

// Format hints the backend toward a specific output shape.
type Format string

const (
	// FormatJSON asks the backend to constrain output to valid JSON.
	FormatJSON Format = "json"
)

// GenerateRequest represents a single non-streaming completion request.
type GenerateRequest struct {
	Prompt  string
	Model   string
	System  string
	Format  Format
	Options GenerateOptions
}

// GenerateOptions contains sampling configuration.
type GenerateOptions struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// GenerateResponse is a completed generation with the backend's timing
// metadata preserved where the protocol provides it.
type GenerateResponse struct {
	Content         string
	Model           string
	CreatedAt       time.Time
	Done            bool
	TotalDuration   time.Duration
	LoadDuration    time.Duration
	PromptEvalCount int
	EvalCount       int
	EvalDuration    time.Duration
	Context         []int
}
