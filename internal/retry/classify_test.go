// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package retry_test

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"testing"

	"github.com/minuted-dev/minuted/internal/retry"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "dial tcp 10.0.0.1:11434: i/o problem" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return true }

func TestClassify_Taxonomy(t *testing.T) {
	jsonErr := json.Unmarshal([]byte("{"), &struct{}{})
	require.Error(t, jsonErr)

	tests := []struct {
		name string
		err  error
		want retry.ErrorType
	}{
		{"deadline exceeded", context.DeadlineExceeded, retry.TypeTimeout},
		{"timeout code", minutederr.New(minutederr.CodeLLMRequestTimeout, "generation timed out"), retry.TypeTimeout},
		{"net timeout", fakeNetErr{timeout: true}, retry.TypeTimeout},
		{"net error", fakeNetErr{}, retry.TypeNetwork},
		{"keyword connection", errors.New("connection refused"), retry.TypeNetwork},
		{"keyword dns", errors.New("dns lookup failed"), retry.TypeNetwork},
		{"validation code", minutederr.New(minutederr.CodeExtractInputInvalid, "empty document"), retry.TypeValidation},
		{"llm upstream code", minutederr.New(minutederr.CodeLLMRequestFailure, "upstream 500"), retry.TypeAIService},
		{"no healthy endpoint", minutederr.New(minutederr.CodePoolNoHealthyEndpoint, "no healthy endpoint available"), retry.TypeAIService},
		{"keyword ollama", errors.New("ollama server not responding"), retry.TypeAIService},
		{"fs not exist", fs.ErrNotExist, retry.TypeFilesystem},
		{"keyword permission", errors.New("permission denied"), retry.TypeFilesystem},
		{"json syntax", jsonErr, retry.TypeProcessing},
		{"keyword oom", errors.New("runtime: out of memory"), retry.TypeResource},
		{"unknown", errors.New("something odd happened"), retry.TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := retry.Classify(tt.err, nil)
			assert.Equal(t, tt.want, info.Type)
			assert.NotEmpty(t, info.ID)
			assert.Equal(t, tt.err.Error(), info.Message)
			assert.Equal(t, tt.err, info.Cause())
		})
	}
}

func TestClassify_Severity(t *testing.T) {
	tests := []struct {
		err  error
		want retry.Severity
	}{
		{errors.New("runtime: out of memory"), retry.SeverityCritical},
		{minutederr.New(minutederr.CodeLLMRequestFailure, "upstream 500"), retry.SeverityHigh},
		{fs.ErrPermission, retry.SeverityHigh},
		{errors.New("connection reset"), retry.SeverityMedium},
		{context.DeadlineExceeded, retry.SeverityMedium},
		{minutederr.New(minutederr.CodeExtractInputInvalid, "bad input"), retry.SeverityLow},
		{errors.New("wat"), retry.SeverityMedium},
	}

	for _, tt := range tests {
		info := retry.Classify(tt.err, nil)
		assert.Equal(t, tt.want, info.Severity, "error %q", tt.err)
	}
}

func TestClassify_Recoverable(t *testing.T) {
	recoverable := retry.Classify(errors.New("connection refused"), nil)
	assert.True(t, recoverable.Recoverable)

	validation := retry.Classify(minutederr.New(minutederr.CodeExtractInputInvalid, "bad"), nil)
	assert.False(t, validation.Recoverable)
	assert.NotEmpty(t, validation.SuggestedAction)
}

func TestClassify_CarriesContext(t *testing.T) {
	info := retry.Classify(errors.New("boom"), map[string]any{"field": "attendees"})
	assert.Equal(t, "attendees", info.Context["field"])
}
