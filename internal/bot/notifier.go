// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vidgate-dev/vidgate/internal/dispatch"
	"github.com/vidgate-dev/vidgate/internal/store"
	"github.com/vidgate-dev/vidgate/internal/telegram"
)

const seenReaction = "👀"

// Notifier implements the dispatch pipeline's user-facing side effects
// over the Telegram API. Every method is best-effort: failures are
// logged and never surface into dispatch decisions.
type Notifier struct {
	api              API
	users            store.UserStore
	storageChannelID int64
}

// NewNotifier creates a Notifier. storageChannelID is the channel media
// is delivered from; zero disables delivery.
func NewNotifier(api API, users store.UserStore, storageChannelID int64) *Notifier {
	return &Notifier{api: api, users: users, storageChannelID: storageChannelID}
}

var _ dispatch.Notifier = (*Notifier)(nil)

// Indicate reacts to the inbound message so the user sees the link was
// picked up. Fire-and-forget.
func (n *Notifier) Indicate(ctx context.Context, chatID, messageID int64) {
	if err := n.api.SetMessageReaction(ctx, chatID, messageID, seenReaction); err != nil {
		slog.Debug("setMessageReaction failed", "chat_id", chatID, "error", err)
	}
}

// SubscriptionRequired presents the unmet channels with join buttons and
// a retry button bound to the request.
func (n *Notifier) SubscriptionRequired(ctx context.Context, req *dispatch.Request, missing []*store.ChannelRequirement) {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(missing)+1)
	for _, ch := range missing {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text: ch.DisplayName(),
			URL:  ch.Link(),
		}})
	}
	rows = append(rows, []telegram.InlineKeyboardButton{{
		Text:         "✅ I subscribed",
		CallbackData: retryCallbackData(req.ID),
	}})

	_, err := n.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:           req.ChatID,
		Text:             subscribeText,
		ReplyToMessageID: req.MessageID,
		ReplyMarkup:      &telegram.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	if err != nil {
		slog.Warn("subscription prompt failed", "chat_id", req.ChatID, "error", err)
	}
}

// FormatChoices presents the selectable formats as one row of buttons.
func (n *Notifier) FormatChoices(ctx context.Context, req *dispatch.Request, formats []string) {
	row := make([]telegram.InlineKeyboardButton, 0, len(formats))
	for _, f := range formats {
		row = append(row, telegram.InlineKeyboardButton{
			Text:         f,
			CallbackData: formatCallbackData(req.ID, f),
		})
	}

	_, err := n.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:           req.ChatID,
		Text:             chooseFormatText,
		ReplyToMessageID: req.MessageID,
		ReplyMarkup:      &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{row}},
	})
	if err != nil {
		slog.Warn("format prompt failed", "chat_id", req.ChatID, "error", err)
	}
}

// Queued tells the user the download is starting.
func (n *Notifier) Queued(ctx context.Context, req *dispatch.Request) {
	_, err := n.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:           req.ChatID,
		Text:             downloadingText,
		ReplyToMessageID: req.MessageID,
	})
	if err != nil {
		slog.Debug("queued notice failed", "chat_id", req.ChatID, "error", err)
	}
}

// Delivered copies the media from the storage channel to the user and
// bumps their download counter.
func (n *Notifier) Delivered(ctx context.Context, req *dispatch.Request, storageMessageID int64) {
	if n.storageChannelID == 0 {
		slog.Error("no storage channel configured, cannot deliver",
			"request_id", req.ID,
			"chat_id", req.ChatID,
		)
		return
	}

	if _, err := n.api.CopyMessage(ctx, req.ChatID, n.storageChannelID, storageMessageID, req.MessageID); err != nil {
		slog.Error("delivery failed",
			"request_id", req.ID,
			"chat_id", req.ChatID,
			"storage_message_id", storageMessageID,
			"error", err,
		)
		n.sendText(ctx, req, errorText)
		return
	}

	if err := n.users.IncrementDownloads(ctx, req.UserID); err != nil {
		slog.Warn("download counter update failed", "user_id", req.UserID, "error", err)
	}
}

// Failed tells the user the download could not be completed.
func (n *Notifier) Failed(ctx context.Context, req *dispatch.Request) {
	n.sendText(ctx, req, fmt.Sprintf("Couldn't download that %s link. It may be private or removed.", req.Platform))
}

func (n *Notifier) sendText(ctx context.Context, req *dispatch.Request, text string) {
	_, err := n.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:           req.ChatID,
		Text:             text,
		ReplyToMessageID: req.MessageID,
	})
	if err != nil {
		slog.Warn("notification failed", "chat_id", req.ChatID, "error", err)
	}
}

const (
	subscribeText = "To use the bot, subscribe to the channels below, then tap the button."

	chooseFormatText = "Choose a format:"

	downloadingText = "Downloading, this can take a minute…"
)
