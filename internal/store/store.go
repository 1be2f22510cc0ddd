// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package store

import "context"

// BotStore groups the persistent state of the bot.
type BotStore interface {
	Channels() ChannelStore
	Admins() AdminStore
	Users() UserStore
	Videos() VideoCacheStore
	Close() error
}

// ChannelStore persists required-subscription channel definitions.
// Reads must reflect the latest committed write; gate correctness
// depends on the current requirement set.
type ChannelStore interface {
	List(ctx context.Context) ([]*ChannelRequirement, error)
	Get(ctx context.Context, channelID int64) (*ChannelRequirement, error)
	Add(ctx context.Context, req *ChannelRequirement) error
	Update(ctx context.Context, req *ChannelRequirement) error
	// Remove is idempotent: removing an absent channel is not an error.
	Remove(ctx context.Context, channelID int64) error
}

// AdminStore persists the admin identity list.
type AdminStore interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
}

// UserStore tracks bot users for stats and broadcasts.
type UserStore interface {
	Upsert(ctx context.Context, user *User) error
	Get(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, opts ListOpts) ([]*User, error)
	Count(ctx context.Context) (int64, error)
	IncrementDownloads(ctx context.Context, id int64) error
}

// VideoCacheStore maps normalized source URLs to storage-channel messages
// so repeated requests skip the download entirely.
type VideoCacheStore interface {
	Get(ctx context.Context, cacheKey string) (*CachedVideo, error)
	Put(ctx context.Context, video *CachedVideo) error
	Delete(ctx context.Context, cacheKey string) error
	Count(ctx context.Context) (int64, error)
}
