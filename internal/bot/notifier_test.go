// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package bot_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgate-dev/vidgate/internal/bot"
	"github.com/vidgate-dev/vidgate/internal/dispatch"
	"github.com/vidgate-dev/vidgate/internal/store"
	"github.com/vidgate-dev/vidgate/internal/store/sqlite"
)

const storageChannel = int64(-1009999)

func newNotifierFixture(t *testing.T) (*bot.Notifier, *fakeAPI, *sqlite.BotStore) {
	t.Helper()
	bs, err := sqlite.NewBotStore(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })

	api := &fakeAPI{}
	return bot.NewNotifier(api, bs.Users(), storageChannel), api, bs
}

func testRequest() *dispatch.Request {
	return &dispatch.Request{ID: "req-1", UserID: 100, ChatID: 100, MessageID: 7}
}

func TestIndicateSetsReaction(t *testing.T) {
	n, api, _ := newNotifierFixture(t)

	n.Indicate(context.Background(), 100, 7)

	assert.Equal(t, []string{"👀"}, api.reactions)
}

func TestSubscriptionRequiredKeyboard(t *testing.T) {
	n, api, _ := newNotifierFixture(t)

	missing := []*store.ChannelRequirement{
		{ChannelID: -1001, Type: store.ChannelOpen, Username: "newsfeed"},
		{ChannelID: -1002, Type: store.ChannelClosed, Title: "VIP", InviteLink: "https://t.me/+abc"},
	}
	n.SubscriptionRequired(context.Background(), testRequest(), missing)

	sent := api.lastSent(t)
	require.NotNil(t, sent.ReplyMarkup)
	rows := sent.ReplyMarkup.InlineKeyboard
	// One row per missing channel plus the retry row.
	require.Len(t, rows, 3)
	assert.Equal(t, "https://t.me/newsfeed", rows[0][0].URL)
	assert.Equal(t, "https://t.me/+abc", rows[1][0].URL)
	assert.Equal(t, "retry:req-1", rows[2][0].CallbackData)
	assert.Equal(t, int64(7), sent.ReplyToMessageID)
}

func TestFormatChoicesKeyboard(t *testing.T) {
	n, api, _ := newNotifierFixture(t)

	n.FormatChoices(context.Background(), testRequest(), dispatch.YouTubeFormats)

	sent := api.lastSent(t)
	require.NotNil(t, sent.ReplyMarkup)
	row := sent.ReplyMarkup.InlineKeyboard[0]
	require.Len(t, row, 4)
	assert.Equal(t, "fmt:req-1:360p", row[0].CallbackData)
	assert.Equal(t, "fmt:req-1:mp3", row[3].CallbackData)
}

func TestDeliveredCopiesFromStorageChannel(t *testing.T) {
	n, api, bs := newNotifierFixture(t)

	ctx := context.Background()
	require.NoError(t, bs.Users().Upsert(ctx, &store.User{ID: 100, Username: "sam"}))

	n.Delivered(ctx, testRequest(), 555)

	assert.Equal(t, []int64{555}, api.copies)

	u, err := bs.Users().Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.Downloads)
}

func TestDeliveredWithoutStorageChannel(t *testing.T) {
	bs, err := sqlite.NewBotStore(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })

	api := &fakeAPI{}
	n := bot.NewNotifier(api, bs.Users(), 0)

	n.Delivered(context.Background(), testRequest(), 555)

	assert.Empty(t, api.copies)
}

func TestFailedMentionsPlatform(t *testing.T) {
	n, api, _ := newNotifierFixture(t)

	req := testRequest()
	req.Platform = "tiktok"
	n.Failed(context.Background(), req)

	assert.Contains(t, api.lastSent(t).Text, "tiktok")
}
