// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package extract

import (
	"time"
)

// Field names one of the six independently extracted minutes sections.
type Field string

const (
	FieldBasicInfo   Field = "basic_info"
	FieldAttendees   Field = "attendees"
	FieldAgenda      Field = "agenda"
	FieldActionItems Field = "action_items"
	FieldDecisions   Field = "decisions"
	FieldKeyOutcomes Field = "key_outcomes"
)

// allFields is the fan-out order; extraction itself is unordered.
var allFields = []Field{
	FieldBasicInfo, FieldAttendees, FieldAgenda,
	FieldActionItems, FieldDecisions, FieldKeyOutcomes,
}

// Status is the terminal state of one extraction run.
type Status string

const (
	StatusCompleted        Status = "completed"
	StatusValidationFailed Status = "validation_failed"
	StatusFailed           Status = "failed"
)

// BasicInfo is the meeting header block.
type BasicInfo struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Duration    string `json:"duration"`
	Location    string `json:"location"`
	MeetingType string `json:"meeting_type"`
	Organizer   string `json:"organizer"`
}

// Attendee is one meeting participant.
type Attendee struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
	Email        string `json:"email"`
	Present      bool   `json:"present"`
}

// AgendaItem is one discussed topic.
type AgendaItem struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Presenter   string   `json:"presenter"`
	Duration    string   `json:"duration"`
	KeyPoints   []string `json:"key_points"`
}

// ActionItem is one assigned follow-up task.
type ActionItem struct {
	Task     string `json:"task"`
	Assignee string `json:"assignee"`
	DueDate  string `json:"due_date"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Notes    string `json:"notes"`
}

// Decision is one resolution reached in the meeting.
type Decision struct {
	Decision           string `json:"decision"`
	Rationale          string `json:"rationale"`
	Impact             string `json:"impact"`
	ResponsibleParty   string `json:"responsible_party"`
	ImplementationDate string `json:"implementation_date"`
}

// Minutes aggregates the six extracted sections. A section whose
// extraction failed terminally carries its typed zero value.
type Minutes struct {
	BasicInfo   BasicInfo    `json:"basic_info"`
	Attendees   []Attendee   `json:"attendees"`
	Agenda      []AgendaItem `json:"agenda"`
	ActionItems []ActionItem `json:"action_items"`
	Decisions   []Decision   `json:"decisions"`
	KeyOutcomes []string     `json:"key_outcomes"`
}

// Result is the immutable outcome of one extraction run.
type Result struct {
	RunID      string          `json:"run_id"`
	Status     Status          `json:"status"`
	Minutes    Minutes         `json:"minutes"`
	Validation map[string]bool `json:"validation"`
	Confidence float64         `json:"confidence_score"`
	Elapsed    time.Duration   `json:"elapsed"`
	Model      string          `json:"model,omitempty"`
	Error      string          `json:"error,omitempty"`
}
