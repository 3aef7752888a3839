// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package openaicompat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuted-dev/minuted/internal/llm"
	"github.com/minuted-dev/minuted/internal/llm/openaicompat"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

func completionJSON(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "llama3.2",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
		"usage": map[string]any{"prompt_tokens": 11, "completion_tokens": 4},
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := openaicompat.New(openaicompat.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestGenerate_WireFormat(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionJSON(`{"ok":true}`))
	}))
	defer srv.Close()

	client, err := openaicompat.New(openaicompat.Config{BaseURL: srv.URL, Model: "llama3.2", APIKey: "sk-test"})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), llm.GenerateRequest{
		Prompt: "extract the agenda",
		System: "respond with JSON",
		Format: llm.FormatJSON,
		Options: llm.GenerateOptions{
			Temperature: 0.3,
			TopP:        0.9,
			MaxTokens:   2048,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "llama3.2", captured["model"])
	assert.InDelta(t, 0.3, captured["temperature"], 1e-9)
	assert.InDelta(t, 0.9, captured["top_p"], 1e-9)
	assert.EqualValues(t, 2048, captured["max_completion_tokens"])

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "respond with JSON", first["content"])
	second := msgs[1].(map[string]any)
	assert.Equal(t, "user", second["role"])
	assert.Equal(t, "extract the agenda", second["content"])

	format, ok := captured["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])

	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.True(t, resp.Done)
	assert.Equal(t, 11, resp.PromptEvalCount)
	assert.Equal(t, 4, resp.EvalCount)
}

func TestGenerate_DefaultModel(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionJSON("ok"))
	}))
	defer srv.Close()

	client, err := openaicompat.New(openaicompat.Config{BaseURL: srv.URL, Model: "configured"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), llm.GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "configured", captured["model"])
}

func TestGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := openaicompat.New(openaicompat.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), llm.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, minutederr.HasCode(err, minutederr.CodeLLMRequestFailure))
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "model": "m", "choices": []any{},
		})
	}))
	defer srv.Close()

	client, err := openaicompat.New(openaicompat.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), llm.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, minutederr.HasCode(err, minutederr.CodeLLMResponseInvalid))
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": "llama3.2", "object": "model"}},
		})
	}))
	defer srv.Close()

	client, err := openaicompat.New(openaicompat.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, client.Probe(context.Background()))
}

func TestName(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client, err := openaicompat.New(openaicompat.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "openai-compat", client.Name())
	assert.NoError(t, client.Close())
}
