// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package retry

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

// ErrorType buckets a failure for retry-policy and recovery lookup.
type ErrorType string

const (
	TypeNetwork    ErrorType = "network_error"
	TypeTimeout    ErrorType = "timeout_error"
	TypeValidation ErrorType = "validation_error"
	TypeAIService  ErrorType = "ai_service_error"
	TypeFilesystem ErrorType = "file_system_error"
	TypeProcessing ErrorType = "processing_error"
	TypeResource   ErrorType = "resource_error"
	TypeUser       ErrorType = "user_error"
	TypeUnknown    ErrorType = "unknown_error"
)

// Severity ranks how much a failure threatens the overall run.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorInfo is the classified view of one failure. It is immutable once
// built; Record stores it as-is.
type ErrorInfo struct {
	ID              string         `json:"error_id"`
	Type            ErrorType      `json:"error_type"`
	Message         string         `json:"message"`
	Severity        Severity       `json:"severity"`
	Recoverable     bool           `json:"recoverable"`
	SuggestedAction string         `json:"suggested_action,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`

	cause error
}

// Cause returns the original error this info was classified from.
func (i ErrorInfo) Cause() error { return i.cause }

// Classify buckets err into an ErrorType and derives severity,
// recoverability, and a suggested action. fields is caller context
// carried along for reporting.
func Classify(err error, fields map[string]any) ErrorInfo {
	return classify(err, fields, time.Now().UTC())
}

func classify(err error, fields map[string]any, now time.Time) ErrorInfo {
	errType := determineType(err)

	return ErrorInfo{
		ID:              uuid.NewString(),
		Type:            errType,
		Message:         err.Error(),
		Severity:        determineSeverity(err, errType),
		Recoverable:     errType != TypeValidation && errType != TypeUser,
		SuggestedAction: suggestedAction(errType),
		Context:         fields,
		Timestamp:       now,
		cause:           err,
	}
}

func determineType(err error) ErrorType {
	// Typed errors first: our own codes, then stdlib sentinels.
	switch {
	case minutederr.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return TypeTimeout
	case minutederr.IsInvalidInput(err):
		return TypeValidation
	case minutederr.IsNoHealthyEndpoint(err),
		minutederr.HasCode(err, minutederr.CodeLLMRequestFailure),
		minutederr.HasCode(err, minutederr.CodeLLMResponseInvalid),
		minutederr.HasCode(err, minutederr.CodeLLMProbeFailure):
		return TypeAIService
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return TypeTimeout
		}
		return TypeNetwork
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) || errors.Is(err, os.ErrClosed) {
		return TypeFilesystem
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return TypeProcessing
	}

	return typeFromMessage(strings.ToLower(err.Error()))
}

// typeFromMessage is the keyword fallback for untyped errors.
func typeFromMessage(msg string) ErrorType {
	switch {
	case containsAny(msg, "ollama", "llm", "model"):
		return TypeAIService
	case containsAny(msg, "connection", "network", "dns", "tls"):
		return TypeNetwork
	case containsAny(msg, "timeout", "deadline"):
		return TypeTimeout
	case containsAny(msg, "out of memory", "too many open files"):
		return TypeResource
	case containsAny(msg, "no such file", "permission denied", "disk", "directory"):
		return TypeFilesystem
	case containsAny(msg, "unexpected end of json", "invalid character", "cannot unmarshal"):
		return TypeProcessing
	}
	return TypeUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func determineSeverity(err error, errType ErrorType) Severity {
	switch errType {
	case TypeResource:
		if strings.Contains(strings.ToLower(err.Error()), "out of memory") {
			return SeverityCritical
		}
		return SeverityMedium
	case TypeAIService, TypeFilesystem:
		return SeverityHigh
	case TypeNetwork, TypeTimeout, TypeProcessing:
		return SeverityMedium
	case TypeValidation, TypeUser:
		return SeverityLow
	}
	return SeverityMedium
}

func suggestedAction(errType ErrorType) string {
	switch errType {
	case TypeNetwork:
		return "check network connectivity and retry"
	case TypeTimeout:
		return "increase timeout settings or reduce payload size"
	case TypeValidation:
		return "verify input data format and requirements"
	case TypeAIService:
		return "check inference service status or use an alternative model"
	case TypeFilesystem:
		return "check file permissions and available disk space"
	case TypeProcessing:
		return "review processing parameters and input data"
	case TypeResource:
		return "free up system resources or reduce concurrent operations"
	case TypeUser:
		return "review user input and correct invalid data"
	}
	return "review error details and try again"
}
