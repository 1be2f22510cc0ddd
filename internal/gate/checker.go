// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package gate

import (
	"context"
	"time"

	"github.com/vidgate-dev/vidgate/internal/store"
	"github.com/vidgate-dev/vidgate/internal/telegram"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// MembershipClient is the transport capability the checker consumes.
type MembershipClient interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (*telegram.ChatMember, error)
}

// MembershipStatus is the outcome of a single membership check. It is
// computed on demand and never cached: membership can change between
// requests and a stale result would gate incorrectly.
type MembershipStatus struct {
	ChannelID int64
	UserID    int64
	IsMember  bool
	CheckedAt time.Time
}

// Checker verifies a user's membership in a single required channel.
type Checker struct {
	client MembershipClient
}

// NewChecker creates a Checker over the given membership client.
func NewChecker(client MembershipClient) *Checker {
	return &Checker{client: client}
}

// memberStatuses are the chat member states that count as subscribed.
var memberStatuses = map[string]bool{
	telegram.MemberStatusCreator:       true,
	telegram.MemberStatusAdministrator: true,
	telegram.MemberStatusMember:        true,
}

// Check queries the user's membership in the requirement's channel.
// Transport failures surface as CodeMembershipQueryFailure so callers
// can distinguish "not a member" from "could not find out". For closed
// channels the bot may lack visibility entirely; that is still a query
// failure, never a silent non-membership.
func (c *Checker) Check(ctx context.Context, req *store.ChannelRequirement, userID int64) (MembershipStatus, error) {
	status := MembershipStatus{
		ChannelID: req.ChannelID,
		UserID:    userID,
		CheckedAt: time.Now(),
	}

	member, err := c.client.GetChatMember(ctx, req.ChannelID, userID)
	if err != nil {
		return status, vgerr.Wrap(err, vgerr.CodeMembershipQueryFailure,
			"querying membership",
			vgerr.FieldChannelID(req.ChannelID),
			vgerr.FieldUserID(userID),
			vgerr.Field("channel_type", string(req.Type)),
		)
	}

	status.IsMember = memberStatuses[member.Status]
	return status, nil
}
