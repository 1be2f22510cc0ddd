// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package store

import "time"

// ChannelType distinguishes how membership in a required channel is verified.
type ChannelType string

const (
	// ChannelOpen is a public channel joinable via @username.
	ChannelOpen ChannelType = "open"
	// ChannelClosed is an invite-only channel; the bot may lack visibility
	// into it, which surfaces as a query failure rather than non-membership.
	ChannelClosed ChannelType = "closed"
)

// ChannelRequirement is a channel a user must belong to before downloads
// are served. ChannelID is immutable once referenced by active requests.
type ChannelRequirement struct {
	ChannelID  int64
	Type       ChannelType
	Username   string
	Title      string
	InviteLink string
	Position   int
	CreatedAt  time.Time
}

// Link returns the user-facing URL for joining the channel.
func (c ChannelRequirement) Link() string {
	if c.Username != "" {
		return "https://t.me/" + c.Username
	}
	return c.InviteLink
}

// DisplayName returns the human-readable label for UI listings.
func (c ChannelRequirement) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return "@" + c.Username
	}
	return "channel"
}

// User is a bot user tracked for stats and broadcasts.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Downloads int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CachedVideo maps a normalized source URL (plus format suffix for
// format-specific downloads) to a message in the storage channel.
type CachedVideo struct {
	CacheKey         string
	StorageMessageID int64
	Platform         string
	CreatedAt        time.Time
}

// ListOpts controls pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}
