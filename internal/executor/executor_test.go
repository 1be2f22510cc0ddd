// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package executor_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgate-dev/vidgate/internal/dispatch"
	"github.com/vidgate-dev/vidgate/internal/executor"
	"github.com/vidgate-dev/vidgate/internal/platform"
	"github.com/vidgate-dev/vidgate/internal/store"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

type fakeDownloader struct {
	calls     atomic.Int64
	storageID int64
	err       error
}

func (f *fakeDownloader) Download(_ context.Context, _ dispatch.Job) (int64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return f.storageID, nil
}

type memoryCache struct {
	mu     sync.Mutex
	videos map[string]*store.CachedVideo
}

func newMemoryCache() *memoryCache {
	return &memoryCache{videos: make(map[string]*store.CachedVideo)}
}

func (m *memoryCache) Get(_ context.Context, cacheKey string) (*store.CachedVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videos[cacheKey], nil
}

func (m *memoryCache) Put(_ context.Context, video *store.CachedVideo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[video.CacheKey] = video
	return nil
}

func (m *memoryCache) Delete(_ context.Context, cacheKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.videos, cacheKey)
	return nil
}

func (m *memoryCache) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.videos)), nil
}

type recorder struct {
	started atomic.Int64
	done    chan dispatch.Outcome
}

func newRecorder() *recorder {
	return &recorder{done: make(chan dispatch.Outcome, 16)}
}

func (r *recorder) Started(string) { r.started.Add(1) }

func (r *recorder) Completed(_ string, outcome dispatch.Outcome) {
	r.done <- outcome
}

func (r *recorder) wait(t *testing.T) dispatch.Outcome {
	t.Helper()
	select {
	case outcome := <-r.done:
		return outcome
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
		return dispatch.Outcome{}
	}
}

func runPool(t *testing.T, pool *executor.Pool, cb executor.Callbacks) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		pool.Run(ctx, cb)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
}

func tikTokJob(id string) dispatch.Job {
	return dispatch.Job{
		RequestID: id,
		URL:       "https://www.tiktok.com/@user/video/123",
		Platform:  platform.TikTok,
		UserID:    100,
		ChatID:    100,
	}
}

func TestPoolDownloadsAndCaches(t *testing.T) {
	t.Parallel()

	d := &fakeDownloader{storageID: 42}
	cache := newMemoryCache()
	rec := newRecorder()
	pool := executor.NewPool(d, cache, nil, executor.Options{Workers: 1})
	runPool(t, pool, rec)

	require.NoError(t, pool.Submit(tikTokJob("req-1")))

	outcome := rec.wait(t)
	require.NoError(t, outcome.Err)
	assert.Equal(t, int64(42), outcome.StorageMessageID)
	assert.Equal(t, int64(1), rec.started.Load())
	assert.Equal(t, int64(1), d.calls.Load())

	video, err := cache.Get(context.Background(), "https://www.tiktok.com/@user/video/123")
	require.NoError(t, err)
	require.NotNil(t, video)
	assert.Equal(t, int64(42), video.StorageMessageID)
}

func TestPoolServesCacheHitWithoutDownloading(t *testing.T) {
	t.Parallel()

	d := &fakeDownloader{storageID: 42}
	cache := newMemoryCache()
	require.NoError(t, cache.Put(context.Background(), &store.CachedVideo{
		CacheKey:         "https://www.tiktok.com/@user/video/123",
		StorageMessageID: 99,
	}))

	rec := newRecorder()
	pool := executor.NewPool(d, cache, nil, executor.Options{Workers: 1})
	runPool(t, pool, rec)

	require.NoError(t, pool.Submit(tikTokJob("req-1")))

	outcome := rec.wait(t)
	require.NoError(t, outcome.Err)
	assert.Equal(t, int64(99), outcome.StorageMessageID)
	assert.Equal(t, int64(0), d.calls.Load())
}

func TestPoolCacheKeyIncludesFormat(t *testing.T) {
	t.Parallel()

	d := &fakeDownloader{storageID: 42}
	cache := newMemoryCache()
	rec := newRecorder()
	pool := executor.NewPool(d, cache, nil, executor.Options{Workers: 1})
	runPool(t, pool, rec)

	job := dispatch.Job{
		RequestID: "req-1",
		URL:       "https://www.youtube.com/watch?v=abc",
		Platform:  platform.YouTube,
		Format:    "720p",
	}
	require.NoError(t, pool.Submit(job))
	require.NoError(t, rec.wait(t).Err)

	video, err := cache.Get(context.Background(), "https://www.youtube.com/watch?v=abc#720p")
	require.NoError(t, err)
	require.NotNil(t, video)

	// A different format of the same video is a distinct cache entry.
	miss, err := cache.Get(context.Background(), "https://www.youtube.com/watch?v=abc#mp3")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestPoolReportsDownloadFailure(t *testing.T) {
	t.Parallel()

	d := &fakeDownloader{err: vgerr.New(vgerr.CodeExecutorDownloadFailure, "media unavailable")}
	cache := newMemoryCache()
	rec := newRecorder()
	pool := executor.NewPool(d, cache, nil, executor.Options{Workers: 1})
	runPool(t, pool, rec)

	require.NoError(t, pool.Submit(tikTokJob("req-1")))

	outcome := rec.wait(t)
	require.Error(t, outcome.Err)
	assert.True(t, vgerr.HasCode(outcome.Err, vgerr.CodeExecutorDownloadFailure))

	count, err := cache.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	t.Parallel()

	// No workers running: submissions land in the backlog only.
	pool := executor.NewPool(&fakeDownloader{}, nil, nil, executor.Options{Workers: 1, QueueSize: 1})

	require.NoError(t, pool.Submit(tikTokJob("req-1")))

	err := pool.Submit(tikTokJob("req-2"))
	require.Error(t, err)
	assert.True(t, vgerr.HasCode(err, vgerr.CodeExecutorSubmitFailure))
}

// countingRecorder tallies completions without blocking workers.
type countingRecorder struct {
	completed atomic.Int64
}

func (c *countingRecorder) Started(string) {}

func (c *countingRecorder) Completed(string, dispatch.Outcome) {
	c.completed.Add(1)
}

func TestPoolShutdownNeverStrandsAcceptedJobs(t *testing.T) {
	t.Parallel()

	pool := executor.NewPool(&fakeDownloader{storageID: 1}, nil, nil,
		executor.Options{Workers: 2, QueueSize: 256})
	rec := &countingRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		pool.Run(ctx, rec)
		close(stopped)
	}()

	// Submitters race the shutdown: every accepted job must still get a
	// completion callback, either from a worker or from the drain.
	var accepted atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				job := tikTokJob(fmt.Sprintf("req-%d-%d", g, i))
				if pool.Submit(job) == nil {
					accepted.Add(1)
				}
			}
		}(g)
	}

	cancel()
	wg.Wait()
	<-stopped

	assert.Equal(t, accepted.Load(), rec.completed.Load())
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	t.Parallel()

	pool := executor.NewPool(&fakeDownloader{}, nil, nil, executor.Options{Workers: 1})
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		pool.Run(ctx, rec)
		close(stopped)
	}()
	cancel()
	<-stopped

	err := pool.Submit(tikTokJob("req-1"))
	require.Error(t, err)
	assert.True(t, vgerr.HasCode(err, vgerr.CodeExecutorSubmitFailure))
}
