// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package extract

import "strings"

// validate runs the per-field structural checks plus the derived
// "overall" flag. Empty agenda, action-item, and decision lists are
// vacuously valid; non-empty lists need their headline field on every
// entry.
func validate(m Minutes) map[string]bool {
	v := map[string]bool{
		string(FieldBasicInfo):   m.BasicInfo.Title != "" || m.BasicInfo.MeetingType != "",
		string(FieldAttendees):   validAttendees(m.Attendees),
		string(FieldAgenda):      allNonEmpty(m.Agenda, func(a AgendaItem) string { return a.Title }),
		string(FieldActionItems): allNonEmpty(m.ActionItems, func(a ActionItem) string { return a.Task }),
		string(FieldDecisions):   allNonEmpty(m.Decisions, func(d Decision) string { return d.Decision }),
		string(FieldKeyOutcomes): true,
	}

	overall := true
	for _, ok := range v {
		overall = overall && ok
	}
	v["overall"] = overall
	return v
}

func validAttendees(attendees []Attendee) bool {
	for _, a := range attendees {
		if strings.TrimSpace(a.Name) != "" {
			return true
		}
	}
	return false
}

func allNonEmpty[T any](items []T, headline func(T) string) bool {
	for _, item := range items {
		if strings.TrimSpace(headline(item)) == "" {
			return false
		}
	}
	return true
}
