// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuted-dev/minuted/internal/llm"
	"github.com/minuted-dev/minuted/internal/llm/ollama"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := ollama.New(ollama.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestGenerate_WireFormat(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"model":             "llama3.2",
			"response":          `{"ok":true}`,
			"done":              true,
			"total_duration":    1500000000,
			"prompt_eval_count": 42,
			"eval_count":        7,
		})
	}))
	defer srv.Close()

	client, err := ollama.New(ollama.Config{BaseURL: srv.URL, Model: "llama3.2"})
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

	assert.Equal(t, "extract the agenda", captured["prompt"])
	assert.Equal(t, "respond with JSON", captured["system"])
	assert.Equal(t, "llama3.2", captured["model"])
	assert.Equal(t, "json", captured["format"])
	assert.Equal(t, false, captured["stream"])

	opts, ok := captured["options"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.3, opts["temperature"], 1e-9)
	assert.InDelta(t, 0.9, opts["top_p"], 1e-9)
	assert.EqualValues(t, 2048, opts["num_predict"])

	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.True(t, resp.Done)
	assert.Equal(t, 1500*time.Millisecond, resp.TotalDuration)
	assert.Equal(t, 42, resp.PromptEvalCount)
	assert.Equal(t, 7, resp.EvalCount)
}

func TestGenerate_DefaultModel(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{"response": "ok", "done": true})
	}))
	defer srv.Close()

	client, err := ollama.New(ollama.Config{BaseURL: srv.URL, Model: "configured"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), llm.GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "configured", captured["model"])

	_, err = client.Generate(context.Background(), llm.GenerateRequest{Prompt: "hi", Model: "per-request"})
	require.NoError(t, err)
	assert.Equal(t, "per-request", captured["model"])
}

func TestGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := ollama.New(ollama.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), llm.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, minutederr.HasCode(err, minutederr.CodeLLMRequestFailure))
	assert.Contains(t, err.Error(), "model not found")
}

func TestGenerate_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client, err := ollama.New(ollama.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), llm.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, minutederr.HasCode(err, minutederr.CodeLLMResponseInvalid))
}

func TestGenerate_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"response": "late", "done": true})
	}))
	defer srv.Close()

	client, err := ollama.New(ollama.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Generate(ctx, llm.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, minutederr.HasCode(err, minutederr.CodeLLMRequestTimeout))
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/version", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"version": "0.5.1"})
	}))
	defer srv.Close()

	client, err := ollama.New(ollama.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, client.Probe(context.Background()))
}

func TestProbe_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := ollama.New(ollama.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	err = client.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, minutederr.HasCode(err, minutederr.CodeLLMProbeFailure))
}

func TestName(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client, err := ollama.New(ollama.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "ollama", client.Name())
	assert.NoError(t, client.Close())
}
