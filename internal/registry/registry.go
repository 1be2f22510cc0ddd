// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

// Package registry is the single mutation point for required-subscription
// channels. All writes serialize through one Service so concurrent admin
// edits cannot lose updates; reads go straight to the store and reflect
// the latest committed write.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vidgate-dev/vidgate/internal/store"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// Service wraps a ChannelStore with single-writer semantics.
type Service struct {
	channels store.ChannelStore

	// mu serializes mutations only; reads are served by sqlite directly.
	mu sync.Mutex
}

// NewService creates a registry Service over the given channel store.
func NewService(channels store.ChannelStore) *Service {
	return &Service{channels: channels}
}

// List returns the current requirement set in admin-defined order.
func (s *Service) List(ctx context.Context) ([]*store.ChannelRequirement, error) {
	return s.channels.List(ctx)
}

// Get returns one requirement by channel id.
func (s *Service) Get(ctx context.Context, channelID int64) (*store.ChannelRequirement, error) {
	return s.channels.Get(ctx, channelID)
}

// Add registers a new required channel. Duplicate channel ids fail with
// CodeRegistryChannelDuplicate.
func (s *Service) Add(ctx context.Context, req *store.ChannelRequirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels.Add(ctx, req)
}

// Update replaces the mutable fields of an existing requirement.
func (s *Service) Update(ctx context.Context, req *store.ChannelRequirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels.Update(ctx, req)
}

// Remove deletes a requirement. Removing an absent channel is a no-op.
func (s *Service) Remove(ctx context.Context, channelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels.Remove(ctx, channelID)
}

// Seed applies seed-file entries at startup. Channels already present
// are left untouched; only unexpected errors propagate.
func (s *Service) Seed(ctx context.Context, entries []SeedChannel) error {
	for _, e := range entries {
		req, err := e.requirement()
		if err != nil {
			return err
		}

		if err := s.Add(ctx, req); err != nil {
			if vgerr.HasCode(err, vgerr.CodeRegistryChannelDuplicate) {
				continue
			}
			return vgerr.Wrapf(err, vgerr.CodeStoreDatabaseFailure, "seeding channel %d", req.ChannelID)
		}
		slog.Info("seeded required channel",
			"channel_id", req.ChannelID,
			"type", req.Type,
		)
	}
	return nil
}
