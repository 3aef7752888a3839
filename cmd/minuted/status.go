// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/minuted-dev/minuted/pkg/health"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show endpoint pool status",
		Long:  "Query the running server's pool statistics and display per-endpoint health.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:8823", "server address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	client := newServerClient(addr)
	var body struct {
		Pools map[string]health.PoolSnapshot `json:"pools"`
	}
	if err := client.getJSON("/api/v1/pools", &body); err != nil {
		if errors.Is(err, ErrServerNotRunning) {
			_, _ = fmt.Fprintf(out, "Minuted at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Minuted at %s: %s\n", addr, err)
		return nil
	}

	poolIDs := make([]string, 0, len(body.Pools))
	for id := range body.Pools {
		poolIDs = append(poolIDs, id)
	}
	sort.Strings(poolIDs)

	for _, id := range poolIDs {
		snapshot := body.Pools[id]
		_, _ = fmt.Fprintf(out, "Pool %s (%s): %d/%d healthy, %d active connections\n",
			id, snapshot.Strategy, snapshot.HealthyEndpoints, snapshot.TotalEndpoints,
			snapshot.ActiveConnections)
		for _, ep := range snapshot.Endpoints {
			enabled := "enabled"
			if !ep.Enabled {
				enabled = "disabled"
			}
			_, _ = fmt.Fprintf(out, "  %-12s %-10s %-9s breaker=%s success=%.1f%% avg=%.2fs\n",
				ep.ID, ep.Status, enabled, ep.Breaker.State,
				ep.Metrics.SuccessRate*100, ep.Metrics.AvgResponseTime)
		}
	}

	return nil
}
