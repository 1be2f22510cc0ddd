// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by ops
// commands. Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// opsClient provides HTTP access to a running vidgate ops server.
type opsClient struct {
	baseURL string
	http    *http.Client
}

// newOpsClient creates a client targeting the given host:port address.
func newOpsClient(addr string) *opsClient {
	return &opsClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
// Returns CodeCLIServiceNotRunning on connection refused.
func (c *opsClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return vgerr.Errorf(vgerr.CodeCLIServiceNotRunning, "vidgate is not running (connection refused)")
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ops server returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
