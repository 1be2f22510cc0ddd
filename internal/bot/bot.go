// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

// Package bot glues the Telegram transport to the dispatch pipeline:
// the long-poll loop, message and callback routing, and the admin
// command surface.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/vidgate-dev/vidgate/internal/dispatch"
	"github.com/vidgate-dev/vidgate/internal/gate"
	"github.com/vidgate-dev/vidgate/internal/platform"
	"github.com/vidgate-dev/vidgate/internal/store"
	"github.com/vidgate-dev/vidgate/internal/telegram"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// API is the slice of the Telegram client the bot uses. Implemented by
// *telegram.Client.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error
	SetMessageReaction(ctx context.Context, chatID, messageID int64, emoji string) error
	CopyMessage(ctx context.Context, chatID, fromChatID, messageID int64, replyTo int64) (int64, error)
}

// Dispatcher is the coordinator surface the bot drives. Implemented by
// *dispatch.Coordinator.
type Dispatcher interface {
	OnLinkReceived(ctx context.Context, ev dispatch.Event) (string, error)
	OnRetryRequested(ctx context.Context, requestID string) error
	OnFormatSelected(ctx context.Context, requestID, format string) error
}

// Gate is the subscription gate the bot consults on /start, so new
// users see the subscribe keyboard before they send their first link.
// Implemented by *gate.Gate.
type Gate interface {
	Evaluate(ctx context.Context, userID int64) (gate.Result, error)
}

// Config holds the bot's runtime settings.
type Config struct {
	PollTimeout time.Duration
	// Admins are bootstrap admin ids from the config file.
	Admins []int64
}

// Bot routes Telegram updates to the dispatch pipeline and the admin
// command handlers.
type Bot struct {
	api        API
	dispatcher Dispatcher
	gate       Gate
	registry   Registry
	users      store.UserStore
	admins     store.AdminStore
	videos     store.VideoCacheStore
	cfg        Config
}

// Registry is the channel registry surface used by admin commands.
// Implemented by registry.Service.
type Registry interface {
	List(ctx context.Context) ([]*store.ChannelRequirement, error)
	Add(ctx context.Context, req *store.ChannelRequirement) error
	Remove(ctx context.Context, channelID int64) error
}

// New creates a Bot.
func New(api API, dispatcher Dispatcher, g Gate, reg Registry, st store.BotStore, cfg Config) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	return &Bot{
		api:        api,
		dispatcher: dispatcher,
		gate:       g,
		registry:   reg,
		users:      st.Users(),
		admins:     st.Admins(),
		videos:     st.Videos(),
		cfg:        cfg,
	}
}

// Run long-polls for updates until ctx is cancelled. Each update is
// handled on its own goroutine so a slow gate evaluation never stalls
// the poll loop.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		updates, err := b.api.GetUpdates(ctx, offset, b.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("getUpdates failed, backing off", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, up := range updates {
			if up.UpdateID >= offset {
				offset = up.UpdateID + 1
			}
			go b.handleUpdate(ctx, up)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, up telegram.Update) {
	switch {
	case up.Message != nil:
		b.handleMessage(ctx, up.Message)
	case up.CallbackQuery != nil:
		b.handleCallback(ctx, up.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	b.rememberUser(ctx, msg.From)

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start":
		b.handleStart(ctx, msg)
	case text == "/help":
		b.reply(ctx, msg, welcomeText)
	case strings.HasPrefix(text, "/"):
		b.handleCommand(ctx, msg, text)
	default:
		b.handleLink(ctx, msg, text)
	}
}

// handleStart greets the user, or shows the subscribe keyboard right
// away when required channels are unmet so the rules are clear before
// the first link is sent. There is no retry button: /start carries no
// request, the user just sends a link once subscribed.
func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) {
	res, err := b.gate.Evaluate(ctx, msg.From.ID)
	if err != nil {
		slog.Warn("gate evaluation on /start failed", "user_id", msg.From.ID, "error", err)
		b.reply(ctx, msg, welcomeText)
		return
	}
	if res.Err != nil {
		slog.Warn("membership checks failed during /start", "user_id", msg.From.ID, "error", res.Err)
	}
	if res.Passed {
		b.reply(ctx, msg, welcomeText)
		return
	}

	rows := make([][]telegram.InlineKeyboardButton, 0, len(res.Missing))
	for _, ch := range res.Missing {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text: ch.DisplayName(),
			URL:  ch.Link(),
		}})
	}
	_, err = b.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:           msg.Chat.ID,
		Text:             subscribeText,
		ReplyToMessageID: msg.MessageID,
		ReplyMarkup:      &telegram.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	if err != nil {
		slog.Warn("subscription prompt failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) handleLink(ctx context.Context, msg *telegram.Message, text string) {
	urls := platform.ExtractURLs(text)
	if len(urls) == 0 {
		b.reply(ctx, msg, unsupportedText)
		return
	}

	_, err := b.dispatcher.OnLinkReceived(ctx, dispatch.Event{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		URL:       urls[0],
	})
	if err != nil {
		slog.Info("rejected link", "user_id", msg.From.ID, "error", err)
		b.reply(ctx, msg, unsupportedText)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	action, err := parseCallback(cb.Data)
	if err != nil {
		slog.Debug("ignoring unknown callback", "data", cb.Data)
		b.answer(ctx, cb.ID, "", false)
		return
	}

	switch action.kind {
	case callbackRetry:
		err = b.dispatcher.OnRetryRequested(ctx, action.requestID)
	case callbackFormat:
		err = b.dispatcher.OnFormatSelected(ctx, action.requestID, action.format)
	}

	switch {
	case err == nil:
		b.answer(ctx, cb.ID, "", false)
	case vgerr.HasCode(err, vgerr.CodeDispatchRequestNotFound):
		b.answer(ctx, cb.ID, staleActionText, true)
	case vgerr.HasCode(err, vgerr.CodeDispatchStateInvalid):
		b.answer(ctx, cb.ID, staleActionText, true)
	default:
		slog.Error("callback handling failed", "data", cb.Data, "error", err)
		b.answer(ctx, cb.ID, errorText, true)
	}
}

// rememberUser upserts the sender into the user registry. Failures are
// logged only; registration never blocks a download.
func (b *Bot) rememberUser(ctx context.Context, from *telegram.User) {
	err := b.users.Upsert(ctx, &store.User{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	})
	if err != nil {
		slog.Warn("user upsert failed", "user_id", from.ID, "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string) {
	_, err := b.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:           msg.Chat.ID,
		Text:             text,
		ReplyToMessageID: msg.MessageID,
	})
	if err != nil {
		slog.Warn("reply failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := b.api.AnswerCallbackQuery(ctx, callbackID, text, alert); err != nil {
		slog.Debug("answerCallbackQuery failed", "error", err)
	}
}

// --- callback data ---

type callbackKind int

const (
	callbackRetry callbackKind = iota
	callbackFormat
)

type callbackAction struct {
	kind      callbackKind
	requestID string
	format    string
}

const (
	retryPrefix  = "retry:"
	formatPrefix = "fmt:"
)

func retryCallbackData(requestID string) string {
	return retryPrefix + requestID
}

func formatCallbackData(requestID, format string) string {
	return formatPrefix + requestID + ":" + format
}

func parseCallback(data string) (callbackAction, error) {
	switch {
	case strings.HasPrefix(data, retryPrefix):
		id := strings.TrimPrefix(data, retryPrefix)
		if id == "" {
			return callbackAction{}, errors.New("empty request id")
		}
		return callbackAction{kind: callbackRetry, requestID: id}, nil
	case strings.HasPrefix(data, formatPrefix):
		rest := strings.TrimPrefix(data, formatPrefix)
		id, format, ok := strings.Cut(rest, ":")
		if !ok || id == "" || format == "" {
			return callbackAction{}, errors.New("malformed format callback")
		}
		return callbackAction{kind: callbackFormat, requestID: id, format: format}, nil
	}
	return callbackAction{}, errors.New("unknown callback")
}

// --- user-facing copy ---

const (
	welcomeText = "Send me a link from Instagram, YouTube, TikTok, Facebook, or Twitter/X and I'll fetch the video for you."

	unsupportedText = "I couldn't find a supported link in that message. Send a video link from Instagram, YouTube, TikTok, Facebook, or Twitter/X."

	staleActionText = "That button has expired. Send the link again."

	errorText = "Something went wrong. Please try again."
)
