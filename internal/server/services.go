// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"

	"github.com/sigil-dev/churnmap/internal/metrics"
	"github.com/sigil-dev/churnmap/internal/split"
	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// MetricsService answers the metric queries. *metrics.Engine implements it.
type MetricsService interface {
	ProjectMetrics(ctx context.Context, n int) (*metrics.Report, error)
	FileDependents(ctx context.Context, files []string) (map[string][]string, error)
	EstimatedLoad(ctx context.Context, files []string, n int) (int, error)
}

// SplitService suggests two-way partitions. *split.Optimizer implements it.
type SplitService interface {
	Suggest(ctx context.Context, files []string, opts split.Options) (*split.Result, error)
}

// StatusService reports store row counts. store.GraphStore implements it.
type StatusService interface {
	Counts(ctx context.Context) (store.TableCounts, error)
}

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
// Use NewServices constructor to ensure all required services are provided.
type Services struct {
	metrics  MetricsService
	splitter SplitService
	status   StatusService
	defaults split.Options
}

// NewServices creates a Services instance with validation. splitDefaults
// fills the seed and iteration cap of split requests that leave them unset.
func NewServices(m MetricsService, s SplitService, st StatusService, splitDefaults split.Options) (*Services, error) {
	if m == nil {
		return nil, cmerr.New(cmerr.CodeServerConfigInvalid, "metrics service is required")
	}
	if s == nil {
		return nil, cmerr.New(cmerr.CodeServerConfigInvalid, "split service is required")
	}
	if st == nil {
		return nil, cmerr.New(cmerr.CodeServerConfigInvalid, "status service is required")
	}
	return &Services{metrics: m, splitter: s, status: st, defaults: splitDefaults}, nil
}
