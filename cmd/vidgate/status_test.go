// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStatusAgainst(t *testing.T, addr string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"status", "--address", addr})

	require.NoError(t, root.Execute())
	return buf.String()
}

func TestStatusCommand_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/v1/stats":
			_, _ = w.Write([]byte(`{"users":12,"cached_videos":7,"pending_requests":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out := runStatusAgainst(t, strings.TrimPrefix(srv.URL, "http://"))
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "Users: 12")
	assert.Contains(t, out, "Cached videos: 7")
	assert.Contains(t, out, "Pending requests: 1")
}

func TestStatusCommand_NotRunning(t *testing.T) {
	// Grab a port that nothing is listening on.
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	out := runStatusAgainst(t, addr)
	assert.Contains(t, out, "not running")
}

func TestStatusCommand_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := runStatusAgainst(t, strings.TrimPrefix(srv.URL, "http://"))
	assert.Contains(t, out, "500")
}
