// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package extract

import "fmt"

// promptWindow bounds how much transcript a header-style prompt sees.
// Basic info and attendees are announced up front; key outcomes cluster
// at the end.
const promptWindow = 2000

const systemPrompt = "You are a professional meeting minutes assistant. " +
	"Extract structured information from meeting transcripts. " +
	"Respond with only valid JSON, no prose, no code fences. " +
	"Use empty strings or empty arrays for information that is not " +
	"clearly stated in the text."

// prompt builds the field-specific user prompt over the cleaned text.
// window bounds the head/tail truncation; zero or negative uses the
// built-in window.
func prompt(field Field, text string, window int) string {
	if window <= 0 {
		window = promptWindow
	}
	switch field {
	case FieldBasicInfo:
		return fmt.Sprintf(`Extract the meeting's basic information from this transcript.
Return a JSON object with exactly these keys:
{"title": "", "date": "", "time": "", "duration": "", "location": "", "meeting_type": "", "organizer": ""}

Transcript:
%s`, headRunes(text, window))

	case FieldAttendees:
		return fmt.Sprintf(`List the meeting attendees mentioned in this transcript.
Return a JSON array of objects with exactly these keys:
[{"name": "", "role": "", "organization": "", "email": "", "present": true}]
Return [] if no attendees are identifiable.

Transcript:
%s`, headRunes(text, window))

	case FieldAgenda:
		return fmt.Sprintf(`Extract the agenda topics discussed in this transcript.
Return a JSON array of objects with exactly these keys:
[{"title": "", "description": "", "presenter": "", "duration": "", "key_points": []}]
Return [] if no distinct topics are identifiable.

Transcript:
%s`, text)

	case FieldActionItems:
		return fmt.Sprintf(`Extract the action items assigned in this transcript.
Return a JSON array of objects with exactly these keys:
[{"task": "", "assignee": "", "due_date": "", "priority": "", "status": "", "notes": ""}]
Return [] if no action items are identifiable.

Transcript:
%s`, text)

	case FieldDecisions:
		return fmt.Sprintf(`Extract the decisions reached in this transcript.
Return a JSON array of objects with exactly these keys:
[{"decision": "", "rationale": "", "impact": "", "responsible_party": "", "implementation_date": ""}]
Return [] if no decisions are identifiable.

Transcript:
%s`, text)

	case FieldKeyOutcomes:
		return fmt.Sprintf(`Summarize the key outcomes of this meeting as short statements.
Return a JSON array of strings: ["outcome one", "outcome two"]
Return [] if no outcomes are identifiable.

Transcript:
%s`, tailRunes(text, window))
	}

	return text
}

func headRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
