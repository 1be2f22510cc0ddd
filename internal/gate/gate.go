// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

// Package gate decides whether a user has satisfied the forced-subscription
// requirements before a download is served.
package gate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vidgate-dev/vidgate/internal/store"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// RequirementSource supplies the current requirement set. Implemented by
// registry.Service.
type RequirementSource interface {
	List(ctx context.Context) ([]*store.ChannelRequirement, error)
}

// MembershipChecker verifies one requirement for one user. Implemented
// by Checker.
type MembershipChecker interface {
	Check(ctx context.Context, req *store.ChannelRequirement, userID int64) (MembershipStatus, error)
}

// Result is a single pass/fail decision with the complete list of unmet
// requirements in registry order.
type Result struct {
	Passed  bool
	Missing []*store.ChannelRequirement

	// Err aggregates membership-query failures encountered during the
	// evaluation. The affected requirements are already in Missing
	// (fail closed); Err exists for operator logging only and never
	// reaches the user.
	Err error
}

// Metrics receives gate observations. nil disables recording.
type Metrics interface {
	MembershipCheckFailed()
}

type noopMetrics struct{}

func (noopMetrics) MembershipCheckFailed() {}

// Gate evaluates users against the full requirement set.
type Gate struct {
	source  RequirementSource
	checker MembershipChecker
	metrics Metrics
}

// New creates a Gate. metrics may be nil.
func New(source RequirementSource, checker MembershipChecker, metrics Metrics) *Gate {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Gate{source: source, checker: checker, metrics: metrics}
}

// Evaluate checks every requirement for the user and returns the full
// missing list. All requirements are checked even after the first miss:
// the UI needs the complete set of unmet channels. Checks run in
// parallel; there is no ordering dependency between channels, and
// Missing is assembled back in registry order.
//
// A requirement whose check fails at the transport level is treated as
// unmet (deny by default). That choice risks locking users out during
// transport outages; the error is kept on Result.Err so operators see it.
func (g *Gate) Evaluate(ctx context.Context, userID int64) (Result, error) {
	requirements, err := g.source.List(ctx)
	if err != nil {
		return Result{}, vgerr.Wrap(err, vgerr.CodeStoreDatabaseFailure, "loading requirement set")
	}

	// No forced subscription configured.
	if len(requirements) == 0 {
		return Result{Passed: true}, nil
	}

	type outcome struct {
		status MembershipStatus
		err    error
	}

	outcomes := make([]outcome, len(requirements))
	var wg sync.WaitGroup
	for i, req := range requirements {
		wg.Add(1)
		go func(i int, req *store.ChannelRequirement) {
			defer wg.Done()
			status, err := g.checker.Check(ctx, req, userID)
			outcomes[i] = outcome{status: status, err: err}
		}(i, req)
	}
	wg.Wait()

	result := Result{}
	var checkErrs []error
	for i, req := range requirements {
		out := outcomes[i]
		if out.err != nil {
			checkErrs = append(checkErrs, out.err)
			result.Missing = append(result.Missing, req)
			g.metrics.MembershipCheckFailed()
			slog.Warn("membership check failed, treating as unsubscribed",
				"channel_id", req.ChannelID,
				"user_id", userID,
				"error", out.err,
			)
			continue
		}
		if !out.status.IsMember {
			result.Missing = append(result.Missing, req)
		}
	}

	result.Passed = len(result.Missing) == 0
	if len(checkErrs) > 0 {
		result.Err = vgerr.Join(checkErrs...)
	}

	return result, nil
}
