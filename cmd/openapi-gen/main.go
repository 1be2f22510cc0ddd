// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vidgate-dev/vidgate/internal/server"
	"github.com/vidgate-dev/vidgate/internal/store"
	vgerr "github.com/vidgate-dev/vidgate/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI spec that huma generates from the Go type annotations.
func generateSpec() ([]byte, error) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, nil)
	if err != nil {
		return nil, vgerr.Errorf(vgerr.CodeCLISetupFailure, "creating server: %w", err)
	}

	// No-op service stubs so all routes are registered for schema
	// discovery. Handlers are never invoked during spec generation.
	srv.RegisterServices(&server.Services{
		Registry: &stubRegistry{},
		Users:    &stubCounter{},
		Videos:   &stubCounter{},
		Dispatch: &stubPending{},
	})

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

type stubRegistry struct{}

func (s *stubRegistry) List(context.Context) ([]*store.ChannelRequirement, error) { return nil, nil }
func (s *stubRegistry) Add(context.Context, *store.ChannelRequirement) error      { return nil }
func (s *stubRegistry) Remove(context.Context, int64) error                       { return nil }

type stubCounter struct{}

func (s *stubCounter) Count(context.Context) (int64, error) { return 0, nil }

type stubPending struct{}

func (s *stubPending) Pending() int { return 0 }
