// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

// Package openaicompat implements llm.Client for local inference servers
// exposing an OpenAI-compatible /v1 surface (Ollama, vLLM, LM Studio).
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/minuted-dev/minuted/internal/llm"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

// Config holds the connection target for one OpenAI-compatible server.
type Config struct {
	BaseURL string
	Model   string // default model when the request carries none
	APIKey  string // most local servers accept any non-empty key
}

// Client adapts the OpenAI chat completions API to llm.Client.
type Client struct {
	client openaisdk.Client
	config Config
}

var _ llm.Client = (*Client)(nil)

// New creates a Client. Returns an error if the base URL is missing.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: missing base_url in config")
	}

	key := cfg.APIKey
	if key == "" {
		key = "unused"
	}

	client := openaisdk.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
	)
	return &Client{client: client, config: cfg}, nil
}

func (c *Client) Name() string { return "openai-compat" }

func (c *Client) Close() error { return nil }

// Generate issues a non-streaming chat completion and flattens the first
// choice into a GenerateResponse.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openaisdk.SystemMessage(req.System))
	}
	msgs = append(msgs, openaisdk.UserMessage(req.Prompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: msgs,
	}

	if req.Options.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Options.Temperature)
	}
	if req.Options.TopP > 0 {
		params.TopP = param.NewOpt(req.Options.TopP)
	}
	if req.Options.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.Options.MaxTokens))
	}
	if req.Format == llm.FormatJSON {
		params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, minutederr.Wrapf(err, minutederr.CodeLLMRequestTimeout, "openaicompat: completion timed out")
		}
		return nil, minutederr.Wrapf(err, minutederr.CodeLLMRequestFailure, "openaicompat: chat completion")
	}

	if len(completion.Choices) == 0 {
		return nil, minutederr.New(minutederr.CodeLLMResponseInvalid, "openaicompat: completion has no choices")
	}

	return &llm.GenerateResponse{
		Content:         completion.Choices[0].Message.Content,
		Model:           completion.Model,
		Done:            true,
		PromptEvalCount: int(completion.Usage.PromptTokens),
		EvalCount:       int(completion.Usage.CompletionTokens),
	}, nil
}

// Probe lists models, the cheapest authenticated call the protocol offers.
func (c *Client) Probe(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return minutederr.Wrapf(err, minutederr.CodeLLMProbeFailure, "openaicompat: listing models")
	}
	return nil
}
