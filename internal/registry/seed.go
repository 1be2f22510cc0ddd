// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package registry

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vidgate-dev/vidgate/internal/store"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// SeedChannel is one entry of the optional channels seed file.
type SeedChannel struct {
	ChannelID  int64  `yaml:"channel_id"`
	Type       string `yaml:"type"`
	Username   string `yaml:"username,omitempty"`
	Title      string `yaml:"title,omitempty"`
	InviteLink string `yaml:"invite_link,omitempty"`
}

// seedFile is the top-level document shape.
type seedFile struct {
	Channels []SeedChannel `yaml:"channels"`
}

func (e SeedChannel) requirement() (*store.ChannelRequirement, error) {
	typ := store.ChannelType(strings.ToLower(e.Type))
	if typ != store.ChannelOpen && typ != store.ChannelClosed {
		return nil, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"seed channel %d: type must be open or closed, got %q", e.ChannelID, e.Type)
	}
	if typ == store.ChannelOpen && e.Username == "" {
		return nil, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"seed channel %d: open channels require a username", e.ChannelID)
	}
	if typ == store.ChannelClosed && e.InviteLink == "" {
		return nil, vgerr.Errorf(vgerr.CodeConfigValidateInvalidValue,
			"seed channel %d: closed channels require an invite link", e.ChannelID)
	}

	return &store.ChannelRequirement{
		ChannelID:  e.ChannelID,
		Type:       typ,
		Username:   strings.TrimPrefix(e.Username, "@"),
		Title:      e.Title,
		InviteLink: e.InviteLink,
	}, nil
}

// LoadSeedFile parses a channels seed file. A missing path returns an
// empty list; a malformed file is an error.
func LoadSeedFile(path string) ([]SeedChannel, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vgerr.Wrapf(err, vgerr.CodeConfigLoadReadFailure, "reading seed file %s", path)
	}

	var doc seedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, vgerr.Wrapf(err, vgerr.CodeConfigValidateInvalidValue, "parsing seed file %s", path)
	}

	return doc.Channels, nil
}
