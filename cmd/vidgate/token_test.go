// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgate-dev/vidgate/internal/secrets"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

type mockSecretStore struct {
	values map[string]string
}

func newMockSecretStore() *mockSecretStore {
	return &mockSecretStore{values: map[string]string{}}
}

func (m *mockSecretStore) Store(service, key, value string) error {
	m.values[service+"/"+key] = value
	return nil
}

func (m *mockSecretStore) Retrieve(service, key string) (string, error) {
	v, ok := m.values[service+"/"+key]
	if !ok {
		return "", vgerr.Errorf(vgerr.CodeSecretNotFound, "secret %q not found", key)
	}
	return v, nil
}

func (m *mockSecretStore) Delete(service, key string) error {
	if _, ok := m.values[service+"/"+key]; !ok {
		return vgerr.Errorf(vgerr.CodeSecretNotFound, "secret %q not found", key)
	}
	delete(m.values, service+"/"+key)
	return nil
}

func withMockStore(t *testing.T) *mockSecretStore {
	t.Helper()
	mock := newMockSecretStore()
	orig := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return mock }
	t.Cleanup(func() { secretStoreFactory = orig })
	return mock
}

func runTokenCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	if stdin != "" {
		root.SetIn(strings.NewReader(stdin))
	}
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func TestTokenSet_FromArgument(t *testing.T) {
	mock := withMockStore(t)

	out, err := runTokenCmd(t, "", "token", "set", "123456:abcdef")
	require.NoError(t, err)
	assert.Contains(t, out, "stored")
	assert.Equal(t, "123456:abcdef", mock.values[secrets.Service+"/"+secrets.TokenKey])
}

func TestTokenSet_FromStdin(t *testing.T) {
	mock := withMockStore(t)

	out, err := runTokenCmd(t, "123456:abcdef\n", "token", "set")
	require.NoError(t, err)
	assert.Contains(t, out, "stored")
	assert.Equal(t, "123456:abcdef", mock.values[secrets.Service+"/"+secrets.TokenKey])
}

func TestTokenSet_EmptyRejected(t *testing.T) {
	withMockStore(t)

	_, err := runTokenCmd(t, "\n", "token", "set")
	require.Error(t, err)
	assert.True(t, vgerr.HasCode(err, vgerr.CodeSecretInvalidInput))
}

func TestTokenClear(t *testing.T) {
	mock := withMockStore(t)
	require.NoError(t, mock.Store(secrets.Service, secrets.TokenKey, "123456:abcdef"))

	out, err := runTokenCmd(t, "", "token", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "removed")
	assert.Empty(t, mock.values)
}

func TestTokenClear_NothingStored(t *testing.T) {
	withMockStore(t)

	out, err := runTokenCmd(t, "", "token", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "No token stored")
}
