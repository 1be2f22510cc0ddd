// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package dispatch

import (
	"sync"
	"time"

	"github.com/vidgate-dev/vidgate/internal/platform"
)

// Status is a DownloadRequest lifecycle state.
type Status string

const (
	StatusPendingGate    Status = "PENDING_GATE"
	StatusAwaitingFormat Status = "AWAITING_FORMAT"
	StatusQueued         Status = "QUEUED"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusDelivered      Status = "DELIVERED"
	StatusFailed         Status = "FAILED"
)

// terminal reports whether a status ends the request lifecycle.
func (s Status) terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// YouTubeFormats are the selectable YouTube download formats, in the
// order they are presented.
var YouTubeFormats = []string{"360p", "480p", "720p", "mp3"}

// ValidYouTubeFormat reports whether f is a selectable format.
func ValidYouTubeFormat(f string) bool {
	for _, v := range YouTubeFormats {
		if v == f {
			return true
		}
	}
	return false
}

// Event is an inbound shareable link from the messaging transport.
type Event struct {
	UserID    int64
	ChatID    int64
	MessageID int64
	URL       string
}

// Request tracks one download request through the state machine. All
// state mutations go through the request's own mutex; the coordinator
// map mutex only guards lookup and insertion.
type Request struct {
	ID        string
	UserID    int64
	ChatID    int64
	MessageID int64
	URL       string
	Platform  platform.Platform
	CreatedAt time.Time

	mu        sync.Mutex
	status    Status
	format    string
	submitted bool
}

// Status returns the current lifecycle state.
func (r *Request) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Format returns the selected download format, if any.
func (r *Request) Format() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.format
}

// CacheKey is the video-cache key for this request: the normalized URL,
// suffixed with the format for format-specific downloads.
func (r *Request) CacheKey() string {
	key := r.URL
	if f := r.Format(); f != "" {
		key += "#" + f
	}
	return key
}
