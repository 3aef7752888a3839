// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package extract

import "math"

// Fixed scoring constants carried over from the extraction design; the
// richness weights sum to 1.0 across the six fields.
const (
	validationWeight = 0.6
	richnessWeight   = 0.4

	richnessBasicInfo   = 0.20
	richnessAttendees   = 0.20
	richnessAgenda      = 0.20
	richnessActionItems = 0.15
	richnessDecisions   = 0.15
	richnessKeyOutcomes = 0.10
)

// confidence blends the validation pass-rate with a content-richness
// score, clamped to [0,1] and rounded to two decimals.
func confidence(m Minutes, validation map[string]bool) float64 {
	passed := 0
	for _, ok := range validation {
		if ok {
			passed++
		}
	}
	ratio := 0.0
	if len(validation) > 0 {
		ratio = float64(passed) / float64(len(validation))
	}

	score := validationWeight*ratio + richnessWeight*richness(m)
	score = math.Max(0, math.Min(1, score))
	return math.Round(score*100) / 100
}

// richness awards each field's weight only when it carries content.
func richness(m Minutes) float64 {
	score := 0.0
	if m.BasicInfo != (BasicInfo{}) {
		score += richnessBasicInfo
	}
	if len(m.Attendees) > 0 {
		score += richnessAttendees
	}
	if len(m.Agenda) > 0 {
		score += richnessAgenda
	}
	if len(m.ActionItems) > 0 {
		score += richnessActionItems
	}
	if len(m.Decisions) > 0 {
		score += richnessDecisions
	}
	if len(m.KeyOutcomes) > 0 {
		score += richnessKeyOutcomes
	}
	return score
}
