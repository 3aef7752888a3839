// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package extract

import (
	"encoding/json"
	"strings"

	minutederr "github.com/minuted-dev/minuted/pkg/errors"
)

// decodeResponse strictly decodes a model response into v after a
// tolerant cleanup pass: code fences are stripped and the payload is
// trimmed to the outermost JSON value, since models occasionally wrap
// the JSON in prose despite the format instructions.
func decodeResponse(content string, v any) error {
	payload := extractJSON(content)
	if payload == "" {
		return minutederr.New(minutederr.CodeLLMResponseInvalid,
			"response contains no JSON value")
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	if err := dec.Decode(v); err != nil {
		return minutederr.Wrap(err, minutederr.CodeLLMResponseInvalid,
			"response is not valid JSON")
	}
	return nil
}

// extractJSON strips markdown fences and returns the substring from the
// first JSON opener to its matching closer.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(content, "```json"); ok {
		content = after
	} else if after, ok := strings.CutPrefix(content, "```"); ok {
		content = after
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	start := strings.IndexAny(content, "{[")
	if start == -1 {
		return ""
	}

	opener := content[start]
	closer := byte('}')
	if opener == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(content, closer)
	if end <= start {
		return ""
	}
	return content[start : end+1]
}
