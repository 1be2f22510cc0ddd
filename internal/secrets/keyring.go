// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"

	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// KeyringStore implements Store using the OS keyring via zalando/go-keyring.
// On macOS it uses Keychain, on Linux secret-service (D-Bus), and on Windows
// the Credential Manager.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(service, key, value string) error {
	if service == "" {
		return vgerr.New(vgerr.CodeSecretInvalidInput, "secret store: service must not be empty")
	}
	if key == "" {
		return vgerr.New(vgerr.CodeSecretInvalidInput, "secret store: key must not be empty")
	}

	if err := keyring.Set(service, key, value); err != nil {
		return vgerr.Wrapf(err, vgerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	return nil
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if service == "" {
		return "", vgerr.New(vgerr.CodeSecretInvalidInput, "secret retrieve: service must not be empty")
	}
	if key == "" {
		return "", vgerr.New(vgerr.CodeSecretInvalidInput, "secret retrieve: key must not be empty")
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", vgerr.Errorf(vgerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", vgerr.Wrapf(err, vgerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if service == "" {
		return vgerr.New(vgerr.CodeSecretInvalidInput, "secret delete: service must not be empty")
	}
	if key == "" {
		return vgerr.New(vgerr.CodeSecretInvalidInput, "secret delete: key must not be empty")
	}

	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return vgerr.Errorf(vgerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return vgerr.Wrapf(err, vgerr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}

	return nil
}
