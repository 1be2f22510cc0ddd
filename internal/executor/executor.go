// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

// Package executor runs download jobs on a bounded worker pool. Every
// job is resolved cache-first against the video cache; only misses hit
// the downloader.
package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vidgate-dev/vidgate/internal/dispatch"
	"github.com/vidgate-dev/vidgate/internal/store"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// Downloader fetches the media behind a job and uploads it to the
// storage channel, returning the storage message id of the upload.
type Downloader interface {
	Download(ctx context.Context, job dispatch.Job) (int64, error)
}

// Callbacks receives job lifecycle events. *dispatch.Coordinator
// satisfies it.
type Callbacks interface {
	Started(requestID string)
	Completed(requestID string, outcome dispatch.Outcome)
}

// Metrics receives download observations. Nil-safe via noopMetrics.
type Metrics interface {
	DownloadFinished(platform string, cacheHit bool, seconds float64, success bool)
}

type noopMetrics struct{}

func (noopMetrics) DownloadFinished(string, bool, float64, bool) {}

// Options configures a Pool.
type Options struct {
	// Workers is the number of concurrent downloads. Defaults to 2.
	Workers int
	// QueueSize bounds the pending-job backlog. Defaults to 64.
	QueueSize int
	// Timeout bounds a single download. Defaults to 10 minutes.
	Timeout time.Duration
}

func (o *Options) defaults() {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Minute
	}
}

// Pool is a bounded download worker pool.
type Pool struct {
	opts       Options
	downloader Downloader
	cache      store.VideoCacheStore
	metrics    Metrics

	jobs chan dispatch.Job

	mu      sync.Mutex
	stopped bool
}

// NewPool creates a Pool. cache and metrics may be nil; a nil cache
// disables cache-first resolution.
func NewPool(d Downloader, cache store.VideoCacheStore, m Metrics, opts Options) *Pool {
	opts.defaults()
	if m == nil {
		m = noopMetrics{}
	}
	return &Pool{
		opts:       opts,
		downloader: d,
		cache:      cache,
		metrics:    m,
		jobs:       make(chan dispatch.Job, opts.QueueSize),
	}
}

// Submit enqueues a job. It never blocks: a full backlog or a stopped
// pool is reported as an error so the caller can fail the request. The
// stopped check and the send share one critical section — a job must
// never land in the queue after Run's drain has emptied it.
func (p *Pool) Submit(job dispatch.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return vgerr.New(vgerr.CodeExecutorSubmitFailure, "executor is shut down",
			vgerr.FieldRequestID(job.RequestID))
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return vgerr.New(vgerr.CodeExecutorSubmitFailure, "download queue is full",
			vgerr.FieldRequestID(job.RequestID))
	}
}

// Run starts the workers and blocks until ctx is cancelled and all
// in-flight jobs have finished. Jobs still queued at shutdown are
// failed through the callbacks.
func (p *Pool) Run(ctx context.Context, cb Callbacks) {
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-p.jobs:
					p.process(ctx, cb, job)
				}
			}
		}()
	}

	<-ctx.Done()
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	wg.Wait()

	// Drain the backlog so no request is left hanging.
	for {
		select {
		case job := <-p.jobs:
			cb.Completed(job.RequestID, dispatch.Outcome{
				Err: vgerr.New(vgerr.CodeExecutorSubmitFailure, "executor shut down before job ran",
					vgerr.FieldRequestID(job.RequestID)),
			})
		default:
			return
		}
	}
}

func (p *Pool) process(ctx context.Context, cb Callbacks, job dispatch.Job) {
	cb.Started(job.RequestID)
	start := time.Now()

	if id, ok := p.cached(ctx, job); ok {
		slog.Info("served download from cache",
			"request_id", job.RequestID,
			"platform", job.Platform,
		)
		p.metrics.DownloadFinished(string(job.Platform), true, time.Since(start).Seconds(), true)
		cb.Completed(job.RequestID, dispatch.Outcome{StorageMessageID: id})
		return
	}

	dctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	storageID, err := p.downloader.Download(dctx, job)
	cancel()

	p.metrics.DownloadFinished(string(job.Platform), false, time.Since(start).Seconds(), err == nil)
	if err != nil {
		cb.Completed(job.RequestID, dispatch.Outcome{
			Err: vgerr.Wrap(err, vgerr.CodeExecutorDownloadFailure, "downloading media",
				vgerr.FieldRequestID(job.RequestID),
				vgerr.FieldPlatform(string(job.Platform)),
			),
		})
		return
	}

	p.remember(ctx, job, storageID)
	cb.Completed(job.RequestID, dispatch.Outcome{StorageMessageID: storageID})
}

func cacheKey(job dispatch.Job) string {
	if job.Format == "" {
		return job.URL
	}
	return job.URL + "#" + job.Format
}

func (p *Pool) cached(ctx context.Context, job dispatch.Job) (int64, bool) {
	if p.cache == nil {
		return 0, false
	}
	video, err := p.cache.Get(ctx, cacheKey(job))
	if err != nil {
		slog.Warn("video cache lookup failed", "request_id", job.RequestID, "error", err)
		return 0, false
	}
	if video == nil {
		return 0, false
	}
	return video.StorageMessageID, true
}

func (p *Pool) remember(ctx context.Context, job dispatch.Job, storageID int64) {
	if p.cache == nil {
		return
	}
	err := p.cache.Put(ctx, &store.CachedVideo{
		CacheKey:         cacheKey(job),
		StorageMessageID: storageID,
		Platform:         string(job.Platform),
		CreatedAt:        time.Now(),
	})
	if err != nil {
		slog.Warn("video cache store failed", "request_id", job.RequestID, "error", err)
	}
}
