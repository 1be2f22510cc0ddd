// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

// Package telegram is a minimal Bot API client covering the calls the
// bot consumes: identity checks, long polling, membership queries,
// messaging, reactions, and storage-channel copies.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// DefaultBaseURL is the production Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Client talks to the Telegram Bot API over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests point this at httptest).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client for the given bot token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    DefaultBaseURL,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// call POSTs a JSON payload to the named Bot API method and decodes the
// result into out (which may be nil when the result is ignored).
func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "encoding %s payload", method)
		}
		body = bytes.NewReader(buf)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "building %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "calling %s", method)
	}
	defer func() { _ = resp.Body.Close() }()

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "decoding %s response", method)
	}

	if !env.OK {
		if resp.StatusCode == http.StatusUnauthorized {
			return vgerr.Errorf(vgerr.CodeTelegramTokenInvalid, "invalid bot token (HTTP %d): %s", resp.StatusCode, env.Description)
		}
		return vgerr.New(vgerr.CodeTelegramStatusFailure,
			fmt.Sprintf("%s failed: %s", method, env.Description),
			vgerr.Field("method", method),
			vgerr.Field("error_code", env.ErrorCode),
		)
	}

	if out != nil && env.Result != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return vgerr.Wrapf(err, vgerr.CodeTelegramRequestFailure, "decoding %s result", method)
		}
	}

	return nil
}

// Me calls getMe and returns the bot's own identity.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ValidateToken verifies the bot token against getMe. Token rejection
// surfaces distinctly from transport failures.
func (c *Client) ValidateToken(ctx context.Context) error {
	_, err := c.Me(ctx)
	if err != nil && !vgerr.HasCode(err, vgerr.CodeTelegramTokenInvalid) {
		return vgerr.Wrap(err, vgerr.CodeTelegramTokenCheckFailed, "validating bot token")
	}
	return err
}

// GetUpdates long-polls for new updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// GetChatMember queries a user's membership status in a chat or channel.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	payload := map[string]any{"chat_id": chatID, "user_id": userID}

	var m ChatMember
	if err := c.call(ctx, "getChatMember", payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SendMessageRequest configures SendMessage.
type SendMessageRequest struct {
	ChatID           int64                 `json:"chat_id"`
	Text             string                `json:"text"`
	ParseMode        string                `json:"parse_mode,omitempty"`
	ReplyToMessageID int64                 `json:"reply_to_message_id,omitempty"`
	ReplyMarkup      *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendMessage posts a message and returns the sent message.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	var m Message
	if err := c.call(ctx, "sendMessage", req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EditMessageText replaces the text (and keyboard) of a sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallbackQuery acknowledges an inline-button tap.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        showAlert,
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// SetMessageReaction sets an emoji reaction on a message.
func (c *Client) SetMessageReaction(ctx context.Context, chatID, messageID int64, emoji string) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"reaction":   []ReactionType{{Type: "emoji", Emoji: emoji}},
	}
	return c.call(ctx, "setMessageReaction", payload, nil)
}

// CopyMessage copies a message (typically from the storage channel) into
// a chat without the forward header. Returns the new message id.
func (c *Client) CopyMessage(ctx context.Context, chatID, fromChatID, messageID int64, replyTo int64) (int64, error) {
	payload := map[string]any{
		"chat_id":      chatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}
	if replyTo != 0 {
		payload["reply_to_message_id"] = replyTo
	}

	var result struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call(ctx, "copyMessage", payload, &result); err != nil {
		return 0, err
	}
	return result.MessageID, nil
}
