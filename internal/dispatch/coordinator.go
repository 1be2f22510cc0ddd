// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

// Package dispatch orchestrates the per-request lifecycle: receive link,
// emit indicator, run the subscription gate, and either hand the request
// to the download executor or issue a retry affordance. It guarantees at
// most one executor submission per request.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidgate-dev/vidgate/internal/gate"
	"github.com/vidgate-dev/vidgate/internal/platform"
	"github.com/vidgate-dev/vidgate/internal/store"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// GateEvaluator runs the subscription gate for a user.
type GateEvaluator interface {
	Evaluate(ctx context.Context, userID int64) (gate.Result, error)
}

// Job is a validated download handed to the executor.
type Job struct {
	RequestID string
	URL       string
	Platform  platform.Platform
	Format    string
	UserID    int64
	ChatID    int64
	ReplyTo   int64
}

// Outcome is the executor's completion report for a job.
type Outcome struct {
	StorageMessageID int64
	Err              error
}

// Executor accepts validated download jobs. Submission is asynchronous;
// completion arrives through the coordinator's Started/Completed callbacks.
type Executor interface {
	Submit(job Job) error
}

// Notifier is the transport-side effect surface. Every call is
// best-effort: implementations log failures and never propagate them
// into the dispatch decision path.
type Notifier interface {
	// Indicate emits the visual "seen" indicator on the inbound message.
	Indicate(ctx context.Context, chatID, messageID int64)
	// SubscriptionRequired presents the missing channels with a retry
	// affordance bound to the request.
	SubscriptionRequired(ctx context.Context, req *Request, missing []*store.ChannelRequirement)
	// FormatChoices presents the selectable formats for the request.
	FormatChoices(ctx context.Context, req *Request, formats []string)
	// Queued tells the user the download is starting.
	Queued(ctx context.Context, req *Request)
	// Delivered hands the finished artifact to the user.
	Delivered(ctx context.Context, req *Request, storageMessageID int64)
	// Failed tells the user the download could not be completed.
	Failed(ctx context.Context, req *Request)
}

// Metrics receives dispatch observations. The zero-value noopMetrics is
// used when nil is passed to New.
type Metrics interface {
	GateEvaluated(passed bool, missing int)
	RequestFinished(platform string, delivered bool)
}

type noopMetrics struct{}

func (noopMetrics) GateEvaluated(bool, int)      {}
func (noopMetrics) RequestFinished(string, bool) {}

// Coordinator advances download requests through the state machine.
type Coordinator struct {
	gate     GateEvaluator
	executor Executor
	notifier Notifier
	metrics  Metrics

	mu       sync.Mutex
	requests map[string]*Request
}

// New creates a Coordinator. metrics may be nil.
func New(g GateEvaluator, exec Executor, notifier Notifier, m Metrics) *Coordinator {
	if m == nil {
		m = noopMetrics{}
	}
	return &Coordinator{
		gate:     g,
		executor: exec,
		notifier: notifier,
		metrics:  m,
		requests: make(map[string]*Request),
	}
}

// Get returns a tracked request by id.
func (c *Coordinator) Get(requestID string) (*Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.requests[requestID]
	if !ok {
		return nil, vgerr.Errorf(vgerr.CodeDispatchRequestNotFound, "request %s not tracked", requestID)
	}
	return req, nil
}

// Pending returns the number of requests currently tracked.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// OnLinkReceived creates a request for an inbound link, emits the visual
// indicator, and runs the gate. The indicator is fire-and-forget; the
// gate runs synchronously from the caller's perspective.
func (c *Coordinator) OnLinkReceived(ctx context.Context, ev Event) (string, error) {
	p := platform.Detect(ev.URL)
	if p == platform.Unknown {
		return "", vgerr.Errorf(vgerr.CodeDispatchStateInvalid, "unsupported link %q", ev.URL)
	}

	normalized, ok := platform.Normalize(ev.URL)
	if !ok {
		return "", vgerr.Errorf(vgerr.CodeDispatchStateInvalid, "unsupported link %q", ev.URL)
	}

	req := &Request{
		ID:        uuid.NewString(),
		UserID:    ev.UserID,
		ChatID:    ev.ChatID,
		MessageID: ev.MessageID,
		URL:       normalized,
		Platform:  p,
		CreatedAt: time.Now(),
		status:    StatusPendingGate,
	}

	c.mu.Lock()
	c.requests[req.ID] = req
	c.mu.Unlock()

	// Visual indicator only. Failure must not block or fail the gate.
	go c.notifier.Indicate(context.WithoutCancel(ctx), ev.ChatID, ev.MessageID)

	c.runGate(ctx, req)
	return req.ID, nil
}

// OnRetryRequested re-runs the gate for a request that previously failed
// it. Repeated taps are safe: once the request has left PENDING_GATE,
// further retries are ignored.
func (c *Coordinator) OnRetryRequested(ctx context.Context, requestID string) error {
	req, err := c.Get(requestID)
	if err != nil {
		return err
	}

	req.mu.Lock()
	if req.status != StatusPendingGate {
		req.mu.Unlock()
		return nil
	}
	req.mu.Unlock()

	c.runGate(ctx, req)
	return nil
}

// OnFormatSelected resolves a pending format choice. Valid only from
// AWAITING_FORMAT; anything else is a stale selection.
func (c *Coordinator) OnFormatSelected(ctx context.Context, requestID, format string) error {
	req, err := c.Get(requestID)
	if err != nil {
		return err
	}

	if !ValidYouTubeFormat(format) {
		return vgerr.Errorf(vgerr.CodeDispatchStateInvalid, "unknown format %q", format)
	}

	req.mu.Lock()
	if req.status != StatusAwaitingFormat {
		status := req.status
		req.mu.Unlock()
		return vgerr.New(vgerr.CodeDispatchStateInvalid,
			"format selection is no longer available",
			vgerr.FieldRequestID(requestID),
			vgerr.Field("status", string(status)),
		)
	}
	req.format = format
	req.mu.Unlock()

	c.enqueue(ctx, req)
	return nil
}

// Started marks a queued request as picked up by the executor.
func (c *Coordinator) Started(requestID string) {
	req, err := c.Get(requestID)
	if err != nil {
		slog.Warn("executor started unknown request", "request_id", requestID)
		return
	}

	req.mu.Lock()
	if req.status == StatusQueued {
		req.status = StatusInProgress
	}
	req.mu.Unlock()
}

// Completed finishes a request: DELIVERED on success, FAILED otherwise.
// The request is garbage-collected from the tracker either way.
func (c *Coordinator) Completed(requestID string, outcome Outcome) {
	req, err := c.Get(requestID)
	if err != nil {
		slog.Warn("executor completed unknown request", "request_id", requestID)
		return
	}

	ctx := context.Background()

	req.mu.Lock()
	if req.status.terminal() {
		req.mu.Unlock()
		return
	}
	if outcome.Err != nil {
		req.status = StatusFailed
	} else {
		req.status = StatusDelivered
	}
	delivered := req.status == StatusDelivered
	req.mu.Unlock()

	if delivered {
		c.notifier.Delivered(ctx, req, outcome.StorageMessageID)
	} else {
		slog.Error("download failed",
			"request_id", requestID,
			"platform", req.Platform,
			"error", outcome.Err,
		)
		c.notifier.Failed(ctx, req)
	}
	c.metrics.RequestFinished(string(req.Platform), delivered)

	c.mu.Lock()
	delete(c.requests, requestID)
	c.mu.Unlock()
}

// runGate evaluates the gate and advances or blocks the request.
// The request mutex is never held across the gate's network calls; the
// state is re-checked before any transition.
func (c *Coordinator) runGate(ctx context.Context, req *Request) {
	result, err := c.gate.Evaluate(ctx, req.UserID)
	if err != nil {
		// Registry unreadable: fail closed with an empty missing list
		// is useless to the user, so keep the request retryable and
		// present the affordance.
		slog.Error("gate evaluation failed", "request_id", req.ID, "error", err)
		c.notifier.SubscriptionRequired(ctx, req, nil)
		return
	}
	if result.Err != nil {
		slog.Warn("gate evaluated with membership query failures",
			"request_id", req.ID,
			"user_id", req.UserID,
			"error", result.Err,
		)
	}
	c.metrics.GateEvaluated(result.Passed, len(result.Missing))

	if !result.Passed {
		c.notifier.SubscriptionRequired(ctx, req, result.Missing)
		return
	}

	// Gate passed: YouTube without a chosen format needs a selection
	// round-trip, everything else queues immediately.
	req.mu.Lock()
	if req.status != StatusPendingGate {
		req.mu.Unlock()
		return
	}
	if req.Platform == platform.YouTube && req.format == "" {
		req.status = StatusAwaitingFormat
		req.mu.Unlock()
		c.notifier.FormatChoices(ctx, req, YouTubeFormats)
		return
	}
	req.mu.Unlock()

	c.enqueue(ctx, req)
}

// enqueue transitions to QUEUED and submits to the executor exactly once
// per request lifetime.
func (c *Coordinator) enqueue(ctx context.Context, req *Request) {
	req.mu.Lock()
	if req.submitted {
		req.mu.Unlock()
		return
	}
	req.submitted = true
	req.status = StatusQueued
	job := Job{
		RequestID: req.ID,
		URL:       req.URL,
		Platform:  req.Platform,
		Format:    req.format,
		UserID:    req.UserID,
		ChatID:    req.ChatID,
		ReplyTo:   req.MessageID,
	}
	req.mu.Unlock()

	c.notifier.Queued(ctx, req)

	if err := c.executor.Submit(job); err != nil {
		slog.Error("executor rejected job", "request_id", req.ID, "error", err)
		c.Completed(req.ID, Outcome{Err: vgerr.Wrap(err, vgerr.CodeExecutorSubmitFailure, "submitting job")})
	}
}
