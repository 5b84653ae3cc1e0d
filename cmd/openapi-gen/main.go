// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sigil-dev/churnmap/internal/metrics"
	"github.com/sigil-dev/churnmap/internal/server"
	"github.com/sigil-dev/churnmap/internal/split"
	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
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

	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI spec that huma generates from the Go type annotations.
func generateSpec() ([]byte, error) {
	// Handlers are never invoked during spec generation.
	svc, err := server.NewServices(stubMetrics{}, stubSplit{}, stubStatus{}, split.Options{})
	if err != nil {
		return nil, err
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		return nil, cmerr.Errorf(cmerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	srv.RegisterServices(svc)

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

type stubMetrics struct{}

func (stubMetrics) ProjectMetrics(context.Context, int) (*metrics.Report, error) { return nil, nil }
func (stubMetrics) FileDependents(context.Context, []string) (map[string][]string, error) {
	return nil, nil
}
func (stubMetrics) EstimatedLoad(context.Context, []string, int) (int, error) { return 0, nil }

type stubSplit struct{}

func (stubSplit) Suggest(context.Context, []string, split.Options) (*split.Result, error) {
	return nil, nil
}

type stubStatus struct{}

func (stubStatus) Counts(context.Context) (store.TableCounts, error) { return store.TableCounts{}, nil }
