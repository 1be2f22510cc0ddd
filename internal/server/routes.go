// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vidgate-dev/vidgate/internal/store"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// ChannelRegistry is the registry surface the ops API mutates.
// Implemented by registry.Service.
type ChannelRegistry interface {
	List(ctx context.Context) ([]*store.ChannelRequirement, error)
	Add(ctx context.Context, req *store.ChannelRequirement) error
	Remove(ctx context.Context, channelID int64) error
}

// Counter reports a total. Implemented by the user and video cache stores.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// PendingSource reports the number of in-flight download requests.
// Implemented by dispatch.Coordinator.
type PendingSource interface {
	Pending() int
}

// Services bundles the dependencies of the ops routes.
type Services struct {
	Registry ChannelRegistry
	Users    Counter
	Videos   Counter
	Dispatch PendingSource
}

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-channels",
		Method:      http.MethodGet,
		Path:        "/v1/channels",
		Summary:     "List required channels",
		Tags:        []string{"channels"},
	}, s.handleListChannels)

	huma.Register(s.api, huma.Operation{
		OperationID: "add-channel",
		Method:      http.MethodPost,
		Path:        "/v1/channels",
		Summary:     "Add a required channel",
		Tags:        []string{"channels"},
	}, s.handleAddChannel)

	huma.Register(s.api, huma.Operation{
		OperationID: "remove-channel",
		Method:      http.MethodDelete,
		Path:        "/v1/channels/{id}",
		Summary:     "Remove a required channel",
		Tags:        []string{"channels"},
	}, s.handleRemoveChannel)

	huma.Register(s.api, huma.Operation{
		OperationID: "stats",
		Method:      http.MethodGet,
		Path:        "/v1/stats",
		Summary:     "Runtime statistics",
		Tags:        []string{"system"},
	}, s.handleStats)
}

// --- Request/Response types for huma ---

// ChannelSummary is the API representation of a channel requirement.
type ChannelSummary struct {
	ChannelID  int64  `json:"channel_id" doc:"Telegram channel id"`
	Type       string `json:"type" enum:"open,closed" doc:"open (public) or closed (invite-only)"`
	Username   string `json:"username,omitempty" doc:"Public username, without @"`
	Title      string `json:"title,omitempty"`
	InviteLink string `json:"invite_link,omitempty"`
	Position   int    `json:"position"`
}

type listChannelsOutput struct {
	Body struct {
		Channels []ChannelSummary `json:"channels"`
	}
}

type addChannelInput struct {
	Body struct {
		ChannelID  int64  `json:"channel_id" doc:"Telegram channel id"`
		Type       string `json:"type" enum:"open,closed"`
		Username   string `json:"username,omitempty" doc:"Required for open channels"`
		Title      string `json:"title,omitempty"`
		InviteLink string `json:"invite_link,omitempty" doc:"Required for closed channels"`
	}
}
type addChannelOutput struct {
	Body ChannelSummary
}

type removeChannelInput struct {
	ID int64 `path:"id"`
}
type removeChannelOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type statsOutput struct {
	Body struct {
		Users           int64 `json:"users" doc:"Registered users"`
		CachedVideos    int64 `json:"cached_videos" doc:"Entries in the video cache"`
		PendingRequests int   `json:"pending_requests" doc:"Download requests in flight"`
	}
}

// --- Handlers ---

func (s *Server) handleListChannels(ctx context.Context, _ *struct{}) (*listChannelsOutput, error) {
	channels, err := s.services.Registry.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing channels", err)
	}
	out := &listChannelsOutput{}
	out.Body.Channels = make([]ChannelSummary, 0, len(channels))
	for _, ch := range channels {
		out.Body.Channels = append(out.Body.Channels, channelSummary(ch))
	}
	return out, nil
}

func (s *Server) handleAddChannel(ctx context.Context, input *addChannelInput) (*addChannelOutput, error) {
	req := &store.ChannelRequirement{
		ChannelID:  input.Body.ChannelID,
		Type:       store.ChannelType(input.Body.Type),
		Username:   input.Body.Username,
		Title:      input.Body.Title,
		InviteLink: input.Body.InviteLink,
		CreatedAt:  time.Now(),
	}

	if err := s.services.Registry.Add(ctx, req); err != nil {
		switch {
		case vgerr.IsDuplicate(err):
			return nil, huma.Error409Conflict(fmt.Sprintf("channel %d is already required", input.Body.ChannelID))
		case vgerr.IsInvalidInput(err):
			return nil, huma.Error422UnprocessableEntity(err.Error())
		default:
			return nil, huma.Error500InternalServerError("adding channel", err)
		}
	}

	return &addChannelOutput{Body: channelSummary(req)}, nil
}

func (s *Server) handleRemoveChannel(ctx context.Context, input *removeChannelInput) (*removeChannelOutput, error) {
	if err := s.services.Registry.Remove(ctx, input.ID); err != nil {
		return nil, huma.Error500InternalServerError("removing channel", err)
	}
	out := &removeChannelOutput{}
	out.Body.Status = "removed"
	return out, nil
}

func (s *Server) handleStats(ctx context.Context, _ *struct{}) (*statsOutput, error) {
	users, err := s.services.Users.Count(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("counting users", err)
	}
	videos, err := s.services.Videos.Count(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("counting cached videos", err)
	}

	out := &statsOutput{}
	out.Body.Users = users
	out.Body.CachedVideos = videos
	out.Body.PendingRequests = s.services.Dispatch.Pending()
	return out, nil
}

func channelSummary(ch *store.ChannelRequirement) ChannelSummary {
	return ChannelSummary{
		ChannelID:  ch.ChannelID,
		Type:       string(ch.Type),
		Username:   ch.Username,
		Title:      ch.Title,
		InviteLink: ch.InviteLink,
		Position:   ch.Position,
	}
}
