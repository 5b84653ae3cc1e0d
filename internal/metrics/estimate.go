// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// Estimator computes estimated load for file sets against one fixed commit
// window. Dependent closures are memoised for the lifetime of the Estimator,
// so it should not outlive a single query.
type Estimator struct {
	engine  *Engine
	window  int
	commits []int64

	mu       sync.Mutex
	closures map[string]map[string]struct{}
}

// Estimator pins the n most recent commits and returns an Estimator over
// them.
func (e *Engine) Estimator(ctx context.Context, n int) (*Estimator, error) {
	window := e.effectiveWindow(n)
	ids, err := e.store.RecentCommitIDs(ctx, window)
	if err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeMetricsQueryFailure, "selecting commit window", cmerr.FieldWindow(window))
	}
	return &Estimator{
		engine:   e,
		window:   window,
		commits:  ids,
		closures: make(map[string]map[string]struct{}),
	}, nil
}

// Window returns the number of commits requested for this estimator.
func (s *Estimator) Window() int { return s.window }

// FileDependents delegates to the engine.
func (s *Estimator) FileDependents(ctx context.Context, files []string) (map[string][]string, error) {
	return s.engine.FileDependents(ctx, files)
}

// EstimatedLoad returns touchCount x |allDependents| for files, where
// touchCount counts window commits touching at least one of files and
// allDependents is the importing projects plus their transitive dependents.
func (s *Estimator) EstimatedLoad(ctx context.Context, files []string) (load int, err error) {
	ctx, span := startSpan(ctx, "estimated_load", s.window)
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		recordCompute(ctx, "estimated_load", time.Since(start), err == nil)
	}()

	paths := dedupe(files)
	if len(paths) == 0 {
		return 0, nil
	}

	byFile, err := s.engine.store.ProjectsDependingOnFiles(ctx, paths)
	if err != nil {
		return 0, cmerr.Wrap(err, cmerr.CodeMetricsQueryFailure, "selecting file dependents")
	}
	direct := make(map[string]struct{})
	for _, projects := range byFile {
		for _, p := range projects {
			direct[p] = struct{}{}
		}
	}
	if len(direct) == 0 {
		return 0, nil
	}

	touching, err := s.engine.store.CommitsTouchingFiles(ctx, s.commits, paths)
	if err != nil {
		return 0, cmerr.Wrap(err, cmerr.CodeMetricsQueryFailure, "selecting commits touching files", cmerr.FieldWindow(s.window))
	}
	if len(touching) == 0 {
		return 0, nil
	}

	all, err := s.dependentsOf(ctx, direct)
	if err != nil {
		return 0, err
	}
	return len(touching) * len(all), nil
}

// dependentsOf returns roots unioned with the transitive dependents of each
// root.
func (s *Estimator) dependentsOf(ctx context.Context, roots map[string]struct{}) (map[string]struct{}, error) {
	var missing []string
	s.mu.Lock()
	for r := range roots {
		if _, ok := s.closures[r]; !ok {
			missing = append(missing, r)
		}
	}
	s.mu.Unlock()

	if len(missing) > 0 {
		resolved, _, err := s.engine.resolveAll(ctx, missing)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		for name, set := range resolved {
			s.closures[name] = set
		}
		s.mu.Unlock()
	}

	all := make(map[string]struct{}, len(roots))
	s.mu.Lock()
	defer s.mu.Unlock()
	for r := range roots {
		all[r] = struct{}{}
		for dep := range s.closures[r] {
			all[dep] = struct{}{}
		}
	}
	return all, nil
}

// EstimatedLoads evaluates several file sets concurrently. The i-th result
// belongs to the i-th set.
func (s *Estimator) EstimatedLoads(ctx context.Context, sets ...[]string) ([]int, error) {
	loads := make([]int, len(sets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.engine.concurrency)
	for i, files := range sets {
		g.Go(func() error {
			load, err := s.EstimatedLoad(gctx, files)
			if err != nil {
				return err
			}
			loads[i] = load
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return loads, nil
}
