// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vidgate-dev/vidgate/internal/registry"
	"github.com/vidgate-dev/vidgate/internal/store"
	"github.com/vidgate-dev/vidgate/internal/store/sqlite"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *registry.Service {
	t.Helper()
	bs, err := sqlite.NewBotStore(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return registry.NewService(bs.Channels())
}

func TestServiceReadYourWrites(t *testing.T) {
	ctx := context.Background()
	svc := newTestRegistry(t)

	require.NoError(t, svc.Add(ctx, &store.ChannelRequirement{
		ChannelID: -101,
		Type:      store.ChannelOpen,
		Username:  "first",
	}))

	channels, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "first", channels[0].Username)

	require.NoError(t, svc.Remove(ctx, -101))
	channels, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, channels)
}

func TestServiceDuplicateAdd(t *testing.T) {
	ctx := context.Background()
	svc := newTestRegistry(t)

	req := &store.ChannelRequirement{ChannelID: -7, Type: store.ChannelClosed, InviteLink: "https://t.me/+x"}
	require.NoError(t, svc.Add(ctx, req))

	err := svc.Add(ctx, req)
	assert.True(t, vgerr.HasCode(err, vgerr.CodeRegistryChannelDuplicate))
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
channels:
  - channel_id: -1001111111111
    type: open
    username: "@mychannel"
    title: My Channel
  - channel_id: -1002222222222
    type: closed
    invite_link: https://t.me/+AbCdEf
`), 0o600))

	entries, err := registry.LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "open", entries[0].Type)
	assert.Equal(t, int64(-1002222222222), entries[1].ChannelID)
}

func TestLoadSeedFileMissingPath(t *testing.T) {
	entries, err := registry.LoadSeedFile("")
	require.NoError(t, err)
	assert.Nil(t, entries)

	entries, err = registry.LoadSeedFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestSeedAppliesAndToleratesDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestRegistry(t)

	entries := []registry.SeedChannel{
		{ChannelID: -1, Type: "open", Username: "one"},
		{ChannelID: -2, Type: "closed", InviteLink: "https://t.me/+y"},
	}

	require.NoError(t, svc.Seed(ctx, entries))
	// A second seed run must be a no-op, not an error.
	require.NoError(t, svc.Seed(ctx, entries))

	channels, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, channels, 2)
}

func TestSeedRejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	svc := newTestRegistry(t)

	err := svc.Seed(ctx, []registry.SeedChannel{{ChannelID: -1, Type: "open"}})
	assert.True(t, vgerr.IsInvalidInput(err))

	err = svc.Seed(ctx, []registry.SeedChannel{{ChannelID: -2, Type: "mystery", Username: "x"}})
	assert.True(t, vgerr.IsInvalidInput(err))
}
