// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package metrics derives windowed churn and load figures from the project
// graph and commit history.
package metrics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/churnmap/internal/graph"
	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// DefaultWindow is the number of recent commits considered when the caller
// does not choose a window.
const DefaultWindow = 100

const defaultConcurrency = 8

// Closure resolves transitive dependents of a project.
type Closure interface {
	Dependents(ctx context.Context, name string) graph.Result
}

// ProjectMetrics are the windowed figures for one project.
type ProjectMetrics struct {
	Name           string `json:"name"`
	TouchedCount   int    `json:"touchedCount"`
	DependentCount int    `json:"dependentCount"`
	Load           int    `json:"load"`
	AffectedCount  int    `json:"affectedCount"`
}

// Report holds the metrics of every stored project for one window.
type Report struct {
	Window   int
	Commits  int
	Projects map[string]ProjectMetrics
	// DegradedProjects lists projects whose dependents lookup failed and
	// were counted with an empty dependent set.
	DegradedProjects []string
}

// List returns the project metrics ordered by name.
func (r *Report) List() []ProjectMetrics {
	out := make([]ProjectMetrics, 0, len(r.Projects))
	for _, m := range r.Projects {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Engine computes project metrics and file-set load estimates.
type Engine struct {
	store       store.WindowReader
	closure     Closure
	window      int
	concurrency int
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultWindow sets the window used when a call passes a window <= 0.
func WithDefaultWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithConcurrency bounds the number of parallel dependents lookups.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine over st, resolving dependents with closure.
func NewEngine(st store.WindowReader, closure Closure, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		closure:     closure,
		window:      DefaultWindow,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateWindow rejects negative windows. Zero selects the default.
func ValidateWindow(n int) error {
	if n < 0 {
		return cmerr.New(cmerr.CodeMetricsWindowInvalid, "window must not be negative", cmerr.FieldWindow(n))
	}
	return nil
}

func (e *Engine) effectiveWindow(n int) int {
	if n <= 0 {
		return e.window
	}
	return n
}

// ProjectMetrics computes touched, dependent, load and affected counts for
// every stored project over the n most recent commits.
func (e *Engine) ProjectMetrics(ctx context.Context, n int) (report *Report, err error) {
	window := e.effectiveWindow(n)
	ctx, span := startSpan(ctx, "project_metrics", window)
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		recordCompute(ctx, "project_metrics", time.Since(start), err == nil)
	}()

	names, err := e.store.ListProjectNames(ctx)
	if err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeMetricsQueryFailure, "listing projects")
	}
	ids, err := e.store.RecentCommitIDs(ctx, window)
	if err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeMetricsQueryFailure, "selecting commit window", cmerr.FieldWindow(window))
	}
	byCommit, err := e.store.TouchedProjectsByCommit(ctx, ids)
	if err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeMetricsQueryFailure, "selecting touched projects", cmerr.FieldWindow(window))
	}

	// dependentCount is graph-wide, so every project is resolved, not only
	// the ones touched in the window.
	closures, degraded, err := e.resolveAll(ctx, names)
	if err != nil {
		return nil, err
	}

	touched := make(map[string]int, len(names))
	affected := make(map[string]int, len(names))
	for _, id := range ids {
		projects := byCommit[id]
		if len(projects) == 0 {
			continue
		}
		set := make(map[string]struct{})
		for _, p := range projects {
			touched[p]++
			set[p] = struct{}{}
			for dep := range closures[p] {
				set[dep] = struct{}{}
			}
		}
		for p := range set {
			affected[p]++
		}
	}

	report = &Report{
		Window:           window,
		Commits:          len(ids),
		Projects:         make(map[string]ProjectMetrics, len(names)),
		DegradedProjects: degraded,
	}
	for _, name := range names {
		dependents := len(closures[name])
		report.Projects[name] = ProjectMetrics{
			Name:           name,
			TouchedCount:   touched[name],
			DependentCount: dependents,
			Load:           touched[name] * dependents,
			AffectedCount:  affected[name],
		}
	}

	span.SetAttributes(
		attribute.Int("metrics.projects", len(names)),
		attribute.Int("metrics.commits", len(ids)),
		attribute.Int("metrics.degraded", len(degraded)),
	)
	return report, nil
}

// ListProjectMetrics is ProjectMetrics ordered by project name.
func (e *Engine) ListProjectMetrics(ctx context.Context, n int) ([]ProjectMetrics, error) {
	report, err := e.ProjectMetrics(ctx, n)
	if err != nil {
		return nil, err
	}
	return report.List(), nil
}

// FileDependents maps every path in files to the projects owning a file that
// imports it. Paths nobody imports map to an empty list.
func (e *Engine) FileDependents(ctx context.Context, files []string) (map[string][]string, error) {
	paths := dedupe(files)
	byFile, err := e.store.ProjectsDependingOnFiles(ctx, paths)
	if err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeMetricsQueryFailure, "selecting file dependents")
	}
	out := make(map[string][]string, len(paths))
	for _, p := range paths {
		deps := byFile[p]
		if deps == nil {
			deps = []string{}
		}
		out[p] = deps
	}
	return out, nil
}

// EstimatedLoad returns the number of window commits touching any of files
// multiplied by the size of the transitive dependent set of the projects
// importing them.
func (e *Engine) EstimatedLoad(ctx context.Context, files []string, n int) (int, error) {
	est, err := e.Estimator(ctx, n)
	if err != nil {
		return 0, err
	}
	return est.EstimatedLoad(ctx, files)
}

// resolveAll resolves the dependents of every name in parallel and returns
// them as sets keyed by name, plus the names whose lookup degraded.
func (e *Engine) resolveAll(ctx context.Context, names []string) (map[string]map[string]struct{}, []string, error) {
	results := make([]graph.Result, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, name := range names {
		g.Go(func() error {
			results[i] = e.closure.Dependents(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, cmerr.Wrap(err, cmerr.CodeMetricsQueryFailure, "resolving dependents")
	}

	sets := make(map[string]map[string]struct{}, len(names))
	var degraded []string
	for i, name := range names {
		if results[i].Degraded {
			degraded = append(degraded, name)
		}
		sets[name] = results[i].Set()
	}
	if len(degraded) > 0 {
		recordDegraded(ctx, len(degraded))
		e.logger.WarnContext(ctx, "dependents degraded for some projects", "projects", degraded)
	}
	return sets, degraded, nil
}

func dedupe(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
