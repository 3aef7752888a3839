// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package retry

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Action is one automated recovery step tried before sleeping between
// retry attempts. Run reports whether the underlying condition was
// addressed; an error means the action itself failed and the next one
// should be tried.
type Action struct {
	ID          string
	Description string
	Priority    int // 1-10, higher runs first
	Run         func(ctx context.Context, info ErrorInfo) (bool, error)
}

// tempFileTTL is how old a temp file must be before cleanup removes it.
const tempFileTTL = time.Hour

// defaultActions wires the built-in recovery actions for an engine.
// Hooks left nil in the config simply make their actions report false.
func defaultActions(cfg EngineConfig) map[ErrorType][]Action {
	actions := map[ErrorType][]Action{
		TypeNetwork: {
			{ID: "check_connection", Description: "check network connectivity",
				Priority: 9, Run: probeAction(cfg.ConnectivityProbe)},
			{ID: "fallback_endpoint", Description: "switch to fallback endpoint",
				Priority: 7, Run: probeAction(cfg.SwitchFallback)},
		},
		TypeAIService: {
			{ID: "check_service", Description: "check inference service health",
				Priority: 10, Run: probeAction(cfg.ConnectivityProbe)},
			{ID: "fallback_model", Description: "switch to fallback model",
				Priority: 8, Run: probeAction(cfg.SwitchFallback)},
		},
		TypeFilesystem: {
			{ID: "create_missing_dirs", Description: "create missing directories",
				Priority: 8, Run: createMissingDirs},
			{ID: "cleanup_temp_files", Description: "clean up temporary files",
				Priority: 7, Run: cleanupTempFiles(cfg.TempDir)},
		},
		TypeResource: {
			{ID: "free_memory", Description: "free up memory resources",
				Priority: 8, Run: freeMemory},
			{ID: "reduce_concurrency", Description: "reduce concurrent operations",
				Priority: 7, Run: boolAction(cfg.ReduceConcurrency)},
		},
	}

	for _, list := range actions {
		sortActions(list)
	}
	return actions
}

func sortActions(list []Action) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Priority > list[j].Priority
	})
}

func probeAction(hook func(ctx context.Context) error) func(context.Context, ErrorInfo) (bool, error) {
	return func(ctx context.Context, _ ErrorInfo) (bool, error) {
		if hook == nil {
			return false, nil
		}
		if err := hook(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
}

func boolAction(hook func() bool) func(context.Context, ErrorInfo) (bool, error) {
	return func(_ context.Context, _ ErrorInfo) (bool, error) {
		if hook == nil {
			return false, nil
		}
		return hook(), nil
	}
}

// createMissingDirs recreates the directory named in the error context
// under the "path" key.
func createMissingDirs(_ context.Context, info ErrorInfo) (bool, error) {
	path, ok := info.Context["path"].(string)
	if !ok || path == "" {
		return false, nil
	}
	dir := path
	if filepath.Ext(path) != "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	return true, nil
}

// cleanupTempFiles removes stale files from the configured temp dir.
func cleanupTempFiles(dir string) func(context.Context, ErrorInfo) (bool, error) {
	return func(_ context.Context, _ ErrorInfo) (bool, error) {
		if dir == "" {
			return false, nil
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return false, err
		}

		cutoff := time.Now().Add(-tempFileTTL)
		removed := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			fi, err := entry.Info()
			if err != nil || fi.ModTime().After(cutoff) {
				continue
			}
			if os.Remove(filepath.Join(dir, entry.Name())) == nil {
				removed++
			}
		}
		return removed > 0, nil
	}
}

func freeMemory(_ context.Context, _ ErrorInfo) (bool, error) {
	runtime.GC()
	return true, nil
}
