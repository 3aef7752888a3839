// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package retry

import (
	"sort"
	"sync"
)

// maxPerBucket bounds the stored errors per type per UTC day.
const maxPerBucket = 100

// History is a bounded in-memory record of terminal failures, keyed by
// error type and UTC day. Writes never fail; the oldest entries of a
// full bucket are evicted.
type History struct {
	mu      sync.Mutex
	buckets map[string][]ErrorInfo
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{buckets: make(map[string][]ErrorInfo)}
}

// Record stores a classified failure.
func (h *History) Record(info ErrorInfo) {
	key := string(info.Type) + "_" + info.Timestamp.UTC().Format("20060102")

	h.mu.Lock()
	defer h.mu.Unlock()

	bucket := append(h.buckets[key], info)
	if len(bucket) > maxPerBucket {
		bucket = bucket[len(bucket)-maxPerBucket:]
	}
	h.buckets[key] = bucket
}

// Stats aggregates the retained history.
type Stats struct {
	TotalErrors int               `json:"total_errors"`
	ByType      map[ErrorType]int `json:"by_type"`
	BySeverity  map[Severity]int  `json:"by_severity"`
}

// Stats counts the retained errors per type and severity.
func (h *History) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := Stats{
		ByType:     make(map[ErrorType]int),
		BySeverity: make(map[Severity]int),
	}
	for _, bucket := range h.buckets {
		stats.TotalErrors += len(bucket)
		for _, info := range bucket {
			stats.ByType[info.Type]++
			stats.BySeverity[info.Severity]++
		}
	}
	return stats
}

// Recent returns up to limit retained errors, newest first.
func (h *History) Recent(limit int) []ErrorInfo {
	h.mu.Lock()
	all := make([]ErrorInfo, 0, limit)
	for _, bucket := range h.buckets {
		all = append(all, bucket...)
	}
	h.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
