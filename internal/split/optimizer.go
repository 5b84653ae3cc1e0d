// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package split suggests a two-way partition of a file set that minimises
// the summed estimated load of both halves.
package split

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sigil-dev/churnmap/internal/metrics"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

var tracer = otel.Tracer("churnmap.split")

// Estimator evaluates file sets against a fixed commit window.
type Estimator interface {
	EstimatedLoads(ctx context.Context, sets ...[]string) ([]int, error)
	FileDependents(ctx context.Context, files []string) (map[string][]string, error)
}

// EstimatorFunc opens an Estimator for a commit window.
type EstimatorFunc func(ctx context.Context, window int) (Estimator, error)

// FromEngine adapts a metrics engine into an EstimatorFunc.
func FromEngine(e *metrics.Engine) EstimatorFunc {
	return func(ctx context.Context, window int) (Estimator, error) {
		est, err := e.Estimator(ctx, window)
		if err != nil {
			return nil, err
		}
		return est, nil
	}
}

// Options control one Suggest run.
type Options struct {
	// Window is the commit window passed to the estimator. Zero selects
	// the engine default.
	Window int
	// Seed drives the random initial split. Zero derives a seed from the
	// clock; the seed used is reported on the Result.
	Seed uint64
	// MaxIterations caps the number of applied moves. Zero runs to a local
	// optimum.
	MaxIterations int
}

// Result is a suggested partition. Files nobody depends on are always in
// GroupA; they take no part in the search and LoadA, LoadB and the totals
// score the searched files only.
type Result struct {
	RunID        string   `json:"runId"`
	Seed         uint64   `json:"seed"`
	GroupA       []string `json:"groupA"`
	GroupB       []string `json:"groupB"`
	LoadA        int      `json:"loadA"`
	LoadB        int      `json:"loadB"`
	InitialTotal int      `json:"initialTotal"`
	Total        int      `json:"total"`
	Iterations   int      `json:"iterations"`
	// Capped is set when MaxIterations stopped the search before a local
	// optimum was confirmed.
	Capped bool `json:"capped"`
}

// Optimizer runs best-improvement hill climbing over single-file moves.
type Optimizer struct {
	estimators EstimatorFunc
	logger     *slog.Logger
}

// NewOptimizer creates an Optimizer that evaluates loads through estimators.
func NewOptimizer(estimators EstimatorFunc, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{estimators: estimators, logger: logger}
}

// Suggest partitions files into two groups. Duplicate paths are collapsed.
func (o *Optimizer) Suggest(ctx context.Context, files []string, opts Options) (res *Result, err error) {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	res = &Result{RunID: uuid.NewString(), Seed: seed, GroupA: []string{}, GroupB: []string{}}

	ctx, span := tracer.Start(ctx, "split.Suggest", trace.WithAttributes(
		attribute.String("split.run_id", res.RunID),
		attribute.Int("split.files", len(files)),
		attribute.Int("split.window", opts.Window),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	paths, err := normalize(files)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return res, nil
	}

	est, err := o.estimators(ctx, opts.Window)
	if err != nil {
		return nil, err
	}
	deps, err := est.FileDependents(ctx, paths)
	if err != nil {
		return nil, err
	}

	var withDeps, withoutDeps []string
	for _, p := range paths {
		if len(deps[p]) > 0 {
			withDeps = append(withDeps, p)
		} else {
			withoutDeps = append(withoutDeps, p)
		}
	}
	if len(withDeps) == 0 {
		res.GroupA = paths
		return res, nil
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	inA := make([]bool, len(withDeps))
	for i := range withDeps {
		inA[i] = rng.IntN(2) == 0
	}

	loads, err := est.EstimatedLoads(ctx, groupOf(withDeps, inA, true), groupOf(withDeps, inA, false))
	if err != nil {
		return nil, err
	}
	loadA, loadB := loads[0], loads[1]
	res.InitialTotal = loadA + loadB

	for {
		if opts.MaxIterations > 0 && res.Iterations >= opts.MaxIterations {
			res.Capped = true
			break
		}

		move, candA, candB, err := bestMove(ctx, est, withDeps, inA, loadA+loadB)
		if err != nil {
			return nil, err
		}
		if move < 0 {
			break
		}
		inA[move] = !inA[move]
		loadA, loadB = candA, candB
		res.Iterations++
	}

	res.GroupA = append(groupOf(withDeps, inA, true), withoutDeps...)
	res.GroupB = groupOf(withDeps, inA, false)
	res.LoadA, res.LoadB = loadA, loadB
	res.Total = loadA + loadB

	span.SetAttributes(
		attribute.Int("split.iterations", res.Iterations),
		attribute.Int("split.initial_total", res.InitialTotal),
		attribute.Int("split.total", res.Total),
	)
	o.logger.DebugContext(ctx, "split converged",
		"run_id", res.RunID,
		"seed", seed,
		"iterations", res.Iterations,
		"initial_total", res.InitialTotal,
		"total", res.Total,
		"capped", res.Capped,
	)
	return res, nil
}

// bestMove evaluates moving each file to the other group and returns the
// index of the move with the most negative delta, or -1 when no move
// strictly improves total. Ties go to the earliest file.
func bestMove(ctx context.Context, est Estimator, files []string, inA []bool, total int) (int, int, int, error) {
	sets := make([][]string, 0, 2*len(files))
	for i := range files {
		inA[i] = !inA[i]
		sets = append(sets, groupOf(files, inA, true), groupOf(files, inA, false))
		inA[i] = !inA[i]
	}

	loads, err := est.EstimatedLoads(ctx, sets...)
	if err != nil {
		return -1, 0, 0, err
	}

	best, bestDelta := -1, 0
	var bestA, bestB int
	for i := range files {
		a, b := loads[2*i], loads[2*i+1]
		if delta := a + b - total; delta < bestDelta {
			best, bestDelta = i, delta
			bestA, bestB = a, b
		}
	}
	return best, bestA, bestB, nil
}

func groupOf(files []string, inA []bool, wantA bool) []string {
	out := make([]string, 0, len(files))
	for i, f := range files {
		if inA[i] == wantA {
			out = append(out, f)
		}
	}
	return out
}

// normalize drops duplicate paths, keeping first-seen order.
func normalize(files []string) ([]string, error) {
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f == "" {
			return nil, cmerr.New(cmerr.CodeSplitInputInvalid, "file path must not be empty")
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}
