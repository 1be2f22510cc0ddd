// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/vidgate-dev/vidgate/internal/store"
	"github.com/vidgate-dev/vidgate/internal/telegram"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

const broadcastPageSize = 200

// handleCommand routes slash commands. Everything here mutates bot
// state, so the sender must be an admin.
func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message, text string) {
	cmd, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	if !b.isAdmin(ctx, msg.From.ID) {
		b.reply(ctx, msg, notAdminText)
		return
	}

	var err error
	switch cmd {
	case "/channels":
		err = b.cmdChannels(ctx, msg)
	case "/addchannel":
		err = b.cmdAddChannel(ctx, msg, args)
	case "/addprivate":
		err = b.cmdAddPrivate(ctx, msg, args)
	case "/removechannel":
		err = b.cmdRemoveChannel(ctx, msg, args)
	case "/admins":
		err = b.cmdAdmins(ctx, msg)
	case "/addadmin":
		err = b.cmdAddAdmin(ctx, msg, args)
	case "/removeadmin":
		err = b.cmdRemoveAdmin(ctx, msg, args)
	case "/broadcast":
		err = b.cmdBroadcast(ctx, msg, args)
	case "/stats":
		err = b.cmdStats(ctx, msg)
	default:
		b.reply(ctx, msg, unknownCommandText)
		return
	}

	if err != nil {
		slog.Error("admin command failed", "command", cmd, "user_id", msg.From.ID, "error", err)
		b.reply(ctx, msg, err.Error())
	}
}

// isAdmin accepts both bootstrap admins from the config and admins
// stored at runtime.
func (b *Bot) isAdmin(ctx context.Context, userID int64) bool {
	if slices.Contains(b.cfg.Admins, userID) {
		return true
	}
	ok, err := b.admins.IsAdmin(ctx, userID)
	if err != nil {
		slog.Warn("admin lookup failed", "user_id", userID, "error", err)
		return false
	}
	return ok
}

func (b *Bot) cmdChannels(ctx context.Context, msg *telegram.Message) error {
	channels, err := b.registry.List(ctx)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		b.reply(ctx, msg, "No required channels. The gate passes everyone.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Required channels:\n")
	for _, ch := range channels {
		fmt.Fprintf(&sb, "%d. %s (%d, %s)\n", ch.Position, ch.DisplayName(), ch.ChannelID, ch.Type)
	}
	b.reply(ctx, msg, sb.String())
	return nil
}

func (b *Bot) cmdAddChannel(ctx context.Context, msg *telegram.Message, args string) error {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "usage: /addchannel <channel-id> @username [title]")
	}

	channelID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return vgerr.Errorf(vgerr.CodeStoreInvalidInput, "bad channel id %q", fields[0])
	}
	username := strings.TrimPrefix(fields[1], "@")
	if username == "" {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "open channels need a public @username")
	}

	req := &store.ChannelRequirement{
		ChannelID: channelID,
		Type:      store.ChannelOpen,
		Username:  username,
		Title:     strings.Join(fields[2:], " "),
		CreatedAt: time.Now(),
	}
	if err := b.registry.Add(ctx, req); err != nil {
		if vgerr.IsDuplicate(err) {
			return vgerr.Errorf(vgerr.CodeRegistryChannelDuplicate, "channel %d is already required", channelID)
		}
		return err
	}

	b.reply(ctx, msg, fmt.Sprintf("Added @%s (%d) to the required channels.", username, channelID))
	return nil
}

func (b *Bot) cmdAddPrivate(ctx context.Context, msg *telegram.Message, args string) error {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "usage: /addprivate <channel-id> <invite-link> [title]")
	}

	channelID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return vgerr.Errorf(vgerr.CodeStoreInvalidInput, "bad channel id %q", fields[0])
	}
	invite := fields[1]
	if !strings.HasPrefix(invite, "https://t.me/") {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "invite link must start with https://t.me/")
	}

	req := &store.ChannelRequirement{
		ChannelID:  channelID,
		Type:       store.ChannelClosed,
		InviteLink: invite,
		Title:      strings.Join(fields[2:], " "),
		CreatedAt:  time.Now(),
	}
	if err := b.registry.Add(ctx, req); err != nil {
		if vgerr.IsDuplicate(err) {
			return vgerr.Errorf(vgerr.CodeRegistryChannelDuplicate, "channel %d is already required", channelID)
		}
		return err
	}

	b.reply(ctx, msg, fmt.Sprintf("Added private channel %d to the required channels.", channelID))
	return nil
}

func (b *Bot) cmdRemoveChannel(ctx context.Context, msg *telegram.Message, args string) error {
	channelID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "usage: /removechannel <channel-id>")
	}

	if err := b.registry.Remove(ctx, channelID); err != nil {
		return err
	}
	b.reply(ctx, msg, fmt.Sprintf("Channel %d is no longer required.", channelID))
	return nil
}

func (b *Bot) cmdAdmins(ctx context.Context, msg *telegram.Message) error {
	stored, err := b.admins.List(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("Admins:\n")
	for _, id := range b.cfg.Admins {
		fmt.Fprintf(&sb, "%d (config)\n", id)
	}
	for _, id := range stored {
		fmt.Fprintf(&sb, "%d\n", id)
	}
	b.reply(ctx, msg, sb.String())
	return nil
}

func (b *Bot) cmdAddAdmin(ctx context.Context, msg *telegram.Message, args string) error {
	userID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "usage: /addadmin <user-id>")
	}

	if err := b.admins.Add(ctx, userID); err != nil {
		return err
	}
	b.reply(ctx, msg, fmt.Sprintf("User %d is now an admin.", userID))
	return nil
}

func (b *Bot) cmdRemoveAdmin(ctx context.Context, msg *telegram.Message, args string) error {
	userID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "usage: /removeadmin <user-id>")
	}

	if err := b.admins.Remove(ctx, userID); err != nil {
		return err
	}
	b.reply(ctx, msg, fmt.Sprintf("User %d is no longer an admin.", userID))
	return nil
}

func (b *Bot) cmdBroadcast(ctx context.Context, msg *telegram.Message, text string) error {
	if text == "" {
		return vgerr.New(vgerr.CodeStoreInvalidInput, "usage: /broadcast <text>")
	}

	var sent, failed int
	for offset := 0; ; offset += broadcastPageSize {
		users, err := b.users.List(ctx, store.ListOpts{Limit: broadcastPageSize, Offset: offset})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			break
		}

		for _, u := range users {
			_, err := b.api.SendMessage(ctx, telegram.SendMessageRequest{ChatID: u.ID, Text: text})
			if err != nil {
				// Blocked bots and deleted accounts are expected here.
				slog.Debug("broadcast delivery failed", "user_id", u.ID, "error", err)
				failed++
				continue
			}
			sent++
		}
	}

	b.reply(ctx, msg, fmt.Sprintf("Broadcast sent to %d users (%d failed).", sent, failed))
	return nil
}

func (b *Bot) cmdStats(ctx context.Context, msg *telegram.Message) error {
	users, err := b.users.Count(ctx)
	if err != nil {
		return err
	}
	videos, err := b.videos.Count(ctx)
	if err != nil {
		return err
	}
	channels, err := b.registry.List(ctx)
	if err != nil {
		return err
	}

	b.reply(ctx, msg, fmt.Sprintf("Users: %d\nCached videos: %d\nRequired channels: %d", users, videos, len(channels)))
	return nil
}

const (
	notAdminText = "This command is for admins only."

	unknownCommandText = "Unknown command. Send a video link, or /help."
)
