// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bot status",
		Long:  "Check the running bot's ops endpoint and display health and runtime statistics.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:18990", "ops address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	ops := newOpsClient(addr)
	var health struct {
		Status string `json:"status"`
	}
	if err := ops.getJSON("/health", &health); err != nil {
		if vgerr.HasCode(err, vgerr.CodeCLIServiceNotRunning) {
			_, _ = fmt.Fprintf(out, "Vidgate at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Vidgate at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Vidgate at %s: %s\n", addr, health.Status)

	var stats struct {
		Users           int64 `json:"users"`
		CachedVideos    int64 `json:"cached_videos"`
		PendingRequests int   `json:"pending_requests"`
	}
	if err := ops.getJSON("/v1/stats", &stats); err != nil {
		_, _ = fmt.Fprintf(out, "Stats unavailable: %s\n", err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Users: %d\nCached videos: %d\nPending requests: %d\n",
		stats.Users, stats.CachedVideos, stats.PendingRequests)
	return nil
}
