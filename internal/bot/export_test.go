// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package bot

import (
	"context"

	"github.com/vidgate-dev/vidgate/internal/telegram"
)

// Test-only exports for driving update handling without the poll loop.

func (b *Bot) HandleMessage(ctx context.Context, msg *telegram.Message) {
	b.handleMessage(ctx, msg)
}

func (b *Bot) HandleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	b.handleCallback(ctx, cb)
}
