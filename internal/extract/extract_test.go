// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package extract_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minuted-dev/minuted/internal/extract"
	"github.com/minuted-dev/minuted/internal/llm"
	"github.com/minuted-dev/minuted/internal/retry"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transcript = `Alice Johnson: Welcome to the Q3 planning meeting everyone.
Bob Smith: Thanks. First agenda topic is the budget review.

Alice Johnson: Decision made, we proceed with option B. Carol will follow
up with the vendor by next Friday. That is the main outcome for today.`

// fieldResponses maps a distinguishing prompt fragment to a canned
// model response.
var fieldResponses = map[string]string{
	"basic information": `{"title": "Q3 Planning Meeting", "date": "2026-03-01", "time": "", "duration": "", "location": "", "meeting_type": "planning", "organizer": "Alice Johnson"}`,
	"attendees":         `[{"name": "Alice Johnson", "role": "chair", "organization": "", "email": "", "present": true}, {"name": "Bob Smith", "role": "", "organization": "", "email": "", "present": true}]`,
	"agenda topics":     `[{"title": "Budget review", "description": "Q3 budget", "presenter": "Bob Smith", "duration": "", "key_points": ["spend is on track"]}]`,
	"action items":      `[{"task": "Follow up with the vendor", "assignee": "Carol", "due_date": "next Friday", "priority": "", "status": "open", "notes": ""}]`,
	"decisions":         `[{"decision": "Proceed with option B", "rationale": "", "impact": "", "responsible_party": "Alice Johnson", "implementation_date": ""}]`,
	"key outcomes":      `["Option B approved", "Vendor follow-up assigned to Carol"]`,
}

// stubGenerator answers per-field prompts and can fail selected fields.
type stubGenerator struct {
	mu       sync.Mutex
	failOn   map[string]error // prompt fragment -> error
	respOn   map[string]string
	requests []llm.GenerateRequest
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{failOn: make(map[string]error), respOn: make(map[string]string)}
}

func (g *stubGenerator) CallWithFailover(_ context.Context, _ string, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	for fragment, err := range g.failOn {
		if strings.Contains(req.Prompt, fragment) {
			return nil, err
		}
	}
	for fragment, resp := range g.respOn {
		if strings.Contains(req.Prompt, fragment) {
			return &llm.GenerateResponse{Content: resp, Done: true}, nil
		}
	}
	for fragment, resp := range fieldResponses {
		if strings.Contains(req.Prompt, fragment) {
			return &llm.GenerateResponse{Content: resp, Done: true}, nil
		}
	}
	return nil, errors.New("unmatched prompt")
}

func newTestExtractor(t *testing.T, gen extract.Generator) *extract.Extractor {
	t.Helper()

	engine := retry.NewEngine(retry.EngineConfig{}, nil)
	engine.SetSleepFunc(func(context.Context, time.Duration) error { return nil })
	return extract.NewExtractor(gen, engine, nil)
}

func TestExtract_AllFieldsSucceed(t *testing.T) {
	gen := newStubGenerator()
	ex := newTestExtractor(t, gen)

	result, err := ex.Extract(context.Background(), transcript, extract.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, extract.StatusCompleted, result.Status)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "Q3 Planning Meeting", result.Minutes.BasicInfo.Title)
	require.Len(t, result.Minutes.Attendees, 2)
	assert.Equal(t, "Alice Johnson", result.Minutes.Attendees[0].Name)
	require.Len(t, result.Minutes.Agenda, 1)
	require.Len(t, result.Minutes.ActionItems, 1)
	assert.Equal(t, "Carol", result.Minutes.ActionItems[0].Assignee)
	require.Len(t, result.Minutes.Decisions, 1)
	assert.Len(t, result.Minutes.KeyOutcomes, 2)

	for name, ok := range result.Validation {
		assert.True(t, ok, "validation flag %s", name)
	}
	// All seven flags pass and every field is populated.
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, 6, len(gen.requests))
}

func TestExtract_PartialFailureDegradesField(t *testing.T) {
	gen := newStubGenerator()
	gen.failOn["decisions"] = minutederr.New(minutederr.CodeLLMRequestFailure, "upstream 500")
	ex := newTestExtractor(t, gen)

	result, err := ex.Extract(context.Background(), transcript, extract.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, extract.StatusValidationFailed, result.Status)
	assert.Empty(t, result.Minutes.Decisions)
	assert.False(t, result.Validation["decisions"])
	assert.False(t, result.Validation["overall"])

	// Other fields keep their extracted values.
	assert.Equal(t, "Q3 Planning Meeting", result.Minutes.BasicInfo.Title)
	assert.Len(t, result.Minutes.Attendees, 2)
	assert.True(t, result.Validation["attendees"])
	assert.Less(t, result.Confidence, 1.0)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestExtract_ConfidenceDeterminism(t *testing.T) {
	gen := newStubGenerator()
	gen.respOn["agenda topics"] = `[]`
	gen.respOn["action items"] = `[]`
	gen.respOn["decisions"] = `[]`
	gen.respOn["key outcomes"] = `[]`
	ex := newTestExtractor(t, gen)

	result, err := ex.Extract(context.Background(), transcript, extract.DefaultOptions())
	require.NoError(t, err)

	// basic_info and attendees present, the rest vacuously valid and
	// empty: 0.6*1.0 + 0.4*(0.20+0.20) = 0.76.
	assert.Equal(t, extract.StatusCompleted, result.Status)
	assert.Equal(t, 0.76, result.Confidence)
}

func TestExtract_PreprocessFailureFailsRun(t *testing.T) {
	gen := newStubGenerator()
	ex := newTestExtractor(t, gen)

	result, err := ex.Extract(context.Background(), "   ", extract.DefaultOptions())
	require.Error(t, err)
	assert.True(t, minutederr.HasCode(err, minutederr.CodeExtractPreprocessFailure))

	require.NotNil(t, result)
	assert.Equal(t, extract.StatusFailed, result.Status)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, gen.requests)
}

func TestExtract_MalformedResponseRetriedThenDefaulted(t *testing.T) {
	gen := newStubGenerator()
	gen.respOn["attendees"] = "I could not find any attendees, sorry!"
	ex := newTestExtractor(t, gen)

	result, err := ex.Extract(context.Background(), transcript, extract.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, extract.StatusValidationFailed, result.Status)
	assert.Empty(t, result.Minutes.Attendees)
	assert.False(t, result.Validation["attendees"])
	assert.Equal(t, "Q3 Planning Meeting", result.Minutes.BasicInfo.Title)
}

func TestExtract_FenceWrappedJSONAccepted(t *testing.T) {
	gen := newStubGenerator()
	gen.respOn["key outcomes"] = "```json\n[\"Option B approved\"]\n```"
	ex := newTestExtractor(t, gen)

	result, err := ex.Extract(context.Background(), transcript, extract.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Option B approved"}, result.Minutes.KeyOutcomes)
}

func TestExtract_RequestShape(t *testing.T) {
	gen := newStubGenerator()
	ex := newTestExtractor(t, gen)

	opts := extract.DefaultOptions()
	opts.Model = "llama3.2"
	_, err := ex.Extract(context.Background(), transcript, opts)
	require.NoError(t, err)

	for _, req := range gen.requests {
		assert.Equal(t, "llama3.2", req.Model)
		assert.Equal(t, llm.FormatJSON, req.Format)
		assert.NotEmpty(t, req.System)
		assert.InDelta(t, 0.3, req.Options.Temperature, 1e-9)
	}
}

func TestExtract_TemperatureAndWindowOverrides(t *testing.T) {
	gen := newStubGenerator()
	ex := newTestExtractor(t, gen)

	opts := extract.DefaultOptions()
	opts.Temperature = 0.7
	opts.PromptWindow = 40

	_, err := ex.Extract(context.Background(), transcript, opts)
	require.NoError(t, err)

	for _, req := range gen.requests {
		assert.InDelta(t, 0.7, req.Options.Temperature, 1e-9)
		if strings.Contains(req.Prompt, "basic information") {
			// The windowed prompt carries at most 40 transcript runes
			// after the fixed instruction header.
			assert.Less(t, len(req.Prompt), 400)
		}
	}
}

func TestExtract_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := newStubGenerator()
	ex := newTestExtractor(t, gen)

	result, err := ex.Extract(ctx, transcript, extract.DefaultOptions())
	require.NoError(t, err)
	// Every field degrades to its default; the run itself completes.
	assert.Equal(t, extract.StatusValidationFailed, result.Status)
	assert.False(t, result.Validation["overall"])
}
