// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package secrets

import (
	"os"

	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

const (
	// Service is the keyring service name for Vidgate secrets.
	Service = "vidgate"

	// TokenKey is the keyring key for the Telegram bot token.
	TokenKey = "telegram-token"

	// TokenEnv overrides every other token source when set.
	TokenEnv = "VIDGATE_TELEGRAM_TOKEN"
)

// ResolveToken returns the bot token, in precedence order: the
// VIDGATE_TELEGRAM_TOKEN environment variable, the config file value,
// then the OS keyring.
func ResolveToken(cfgToken string, store Store) (string, error) {
	if env := os.Getenv(TokenEnv); env != "" {
		return env, nil
	}
	if cfgToken != "" {
		return cfgToken, nil
	}

	token, err := store.Retrieve(Service, TokenKey)
	if err != nil {
		if vgerr.HasCode(err, vgerr.CodeSecretNotFound) {
			return "", vgerr.Errorf(vgerr.CodeSecretNotFound,
				"no bot token configured: set %s, telegram.token, or run `vidgate token set`", TokenEnv)
		}
		return "", err
	}
	return token, nil
}

// SetToken stores the bot token in the OS keyring.
func SetToken(store Store, token string) error {
	if token == "" {
		return vgerr.New(vgerr.CodeSecretInvalidInput, "token must not be empty")
	}
	return store.Store(Service, TokenKey, token)
}

// ClearToken removes the bot token from the OS keyring.
func ClearToken(store Store) error {
	return store.Delete(Service, TokenKey)
}
