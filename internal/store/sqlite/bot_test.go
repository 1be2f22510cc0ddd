// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/vidgate-dev/vidgate/internal/store"
	"github.com/vidgate-dev/vidgate/internal/store/sqlite"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.BotStore {
	t.Helper()
	bs, err := sqlite.NewBotStore(testDBPath(t, "bot"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return bs
}

func TestChannelStore_CRUD(t *testing.T) {
	ctx := context.Background()
	bs := newTestStore(t)
	cs := bs.Channels()

	ch := &store.ChannelRequirement{
		ChannelID: -1001234567890,
		Type:      store.ChannelOpen,
		Username:  "newsfeed",
		Title:     "News Feed",
	}

	require.NoError(t, cs.Add(ctx, ch))

	got, err := cs.Get(ctx, ch.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, store.ChannelOpen, got.Type)
	assert.Equal(t, "newsfeed", got.Username)
	assert.False(t, got.CreatedAt.IsZero())

	got.Title = "Main News Feed"
	require.NoError(t, cs.Update(ctx, got))

	got, err = cs.Get(ctx, ch.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, "Main News Feed", got.Title)

	require.NoError(t, cs.Remove(ctx, ch.ChannelID))

	_, err = cs.Get(ctx, ch.ChannelID)
	assert.True(t, vgerr.IsNotFound(err))
}

func TestChannelStore_DuplicateAdd(t *testing.T) {
	ctx := context.Background()
	cs := newTestStore(t).Channels()

	ch := &store.ChannelRequirement{ChannelID: -100, Type: store.ChannelClosed, InviteLink: "https://t.me/+abc"}
	require.NoError(t, cs.Add(ctx, ch))

	err := cs.Add(ctx, ch)
	require.Error(t, err)
	assert.True(t, vgerr.HasCode(err, vgerr.CodeRegistryChannelDuplicate))

	// The duplicate must not have changed anything.
	channels, err := cs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, channels, 1)
}

func TestChannelStore_RemoveAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cs := newTestStore(t).Channels()

	assert.NoError(t, cs.Remove(ctx, 12345))
	assert.NoError(t, cs.Remove(ctx, 12345))
}

func TestChannelStore_ListInsertionOrder(t *testing.T) {
	ctx := context.Background()
	cs := newTestStore(t).Channels()

	for i, id := range []int64{-3, -1, -2} {
		require.NoError(t, cs.Add(ctx, &store.ChannelRequirement{
			ChannelID: id,
			Type:      store.ChannelOpen,
			Username:  string(rune('a' + i)),
		}))
	}

	channels, err := cs.List(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 3)
	assert.Equal(t, int64(-3), channels[0].ChannelID)
	assert.Equal(t, int64(-1), channels[1].ChannelID)
	assert.Equal(t, int64(-2), channels[2].ChannelID)
}

func TestChannelStore_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	cs := newTestStore(t).Channels()

	err := cs.Add(ctx, &store.ChannelRequirement{ChannelID: 0, Type: store.ChannelOpen})
	assert.True(t, vgerr.IsInvalidInput(err))

	err = cs.Add(ctx, &store.ChannelRequirement{ChannelID: -5, Type: "secret"})
	assert.True(t, vgerr.IsInvalidInput(err))
}

func TestAdminStore(t *testing.T) {
	ctx := context.Background()
	as := newTestStore(t).Admins()

	ok, err := as.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, as.Add(ctx, 42))
	require.NoError(t, as.Add(ctx, 42)) // re-add is a no-op

	ok, err = as.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := as.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ids)

	require.NoError(t, as.Remove(ctx, 42))
	ok, err = as.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserStore_UpsertAndCounters(t *testing.T) {
	ctx := context.Background()
	us := newTestStore(t).Users()

	require.NoError(t, us.Upsert(ctx, &store.User{ID: 7, Username: "alice", FirstName: "Alice"}))
	require.NoError(t, us.Upsert(ctx, &store.User{ID: 7, Username: "alice2", FirstName: "Alice"}))

	got, err := us.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)
	assert.Equal(t, int64(0), got.Downloads)

	require.NoError(t, us.IncrementDownloads(ctx, 7))
	require.NoError(t, us.IncrementDownloads(ctx, 7))

	got, err = us.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Downloads)

	n, err := us.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	users, err := us.List(ctx, store.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestVideoCache(t *testing.T) {
	ctx := context.Background()
	vs := newTestStore(t).Videos()

	// Miss returns nil, nil.
	v, err := vs.Get(ctx, "https://example.com/v/1")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, vs.Put(ctx, &store.CachedVideo{
		CacheKey:         "https://youtube.com/watch?v=abc#720p",
		StorageMessageID: 991,
		Platform:         "youtube",
	}))

	v, err = vs.Get(ctx, "https://youtube.com/watch?v=abc#720p")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, int64(991), v.StorageMessageID)
	assert.Equal(t, "youtube", v.Platform)

	// Put on the same key replaces the storage pointer.
	require.NoError(t, vs.Put(ctx, &store.CachedVideo{
		CacheKey:         "https://youtube.com/watch?v=abc#720p",
		StorageMessageID: 1005,
		Platform:         "youtube",
	}))
	v, err = vs.Get(ctx, "https://youtube.com/watch?v=abc#720p")
	require.NoError(t, err)
	assert.Equal(t, int64(1005), v.StorageMessageID)

	n, err := vs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, vs.Delete(ctx, "https://youtube.com/watch?v=abc#720p"))
	v, err = vs.Get(ctx, "https://youtube.com/watch?v=abc#720p")
	require.NoError(t, err)
	assert.Nil(t, v)
}
