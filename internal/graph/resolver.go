// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package graph computes transitive closures over the project dependency
// graph held in a store.
package graph

import (
	"context"
	"log/slog"
	"sort"

	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// DefaultBatchSize bounds the number of frontier nodes sent in one lookup.
const DefaultBatchSize = 50

// Direction selects which way edges are followed.
type Direction int

const (
	// Dependents follows edges backwards: who depends on the start node.
	Dependents Direction = iota
	// Dependencies follows edges forwards: what the start node depends on.
	Dependencies
)

func (d Direction) String() string {
	if d == Dependencies {
		return "dependencies"
	}
	return "dependents"
}

// Result is the outcome of one closure query. A degraded result carries an
// empty project list and the cause of the failed lookup.
type Result struct {
	Projects []string
	Degraded bool
	Cause    error
}

// Set returns the projects as a set.
func (r Result) Set() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Projects))
	for _, p := range r.Projects {
		set[p] = struct{}{}
	}
	return set
}

// Resolver walks the project graph breadth first.
type Resolver struct {
	edges     store.EdgeReader
	batchSize int
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBatchSize overrides the frontier batch size. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithLogger sets the logger used for degraded lookups.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver reading single-hop edges from edges.
func NewResolver(edges store.EdgeReader, opts ...Option) *Resolver {
	r := &Resolver{
		edges:     edges,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dependents returns every project that transitively depends on name.
func (r *Resolver) Dependents(ctx context.Context, name string) Result {
	return r.Resolve(ctx, name, Dependents)
}

// Dependencies returns every project name transitively depends on.
func (r *Resolver) Dependencies(ctx context.Context, name string) Result {
	return r.Resolve(ctx, name, Dependencies)
}

// Resolve returns the set reachable from name in the given direction,
// excluding name itself. Cycles are safe. A failed lookup yields a degraded
// result instead of an error.
func (r *Resolver) Resolve(ctx context.Context, name string, dir Direction) Result {
	a := newArena()
	a.intern(name)

	frontier := []int{0}
	for len(frontier) > 0 {
		var next []int
		for start := 0; start < len(frontier); start += r.batchSize {
			end := min(start+r.batchSize, len(frontier))
			batch := a.lookup(frontier[start:end])

			found, err := r.hop(ctx, batch, dir)
			if err != nil {
				return r.degrade(ctx, name, dir, err)
			}
			for _, n := range found {
				if idx, fresh := a.intern(n); fresh {
					next = append(next, idx)
				}
			}
		}
		frontier = next
	}

	projects := append([]string(nil), a.names[1:]...)
	sort.Strings(projects)
	return Result{Projects: projects}
}

func (r *Resolver) hop(ctx context.Context, names []string, dir Direction) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dir == Dependencies {
		return r.edges.DependenciesOf(ctx, names)
	}
	return r.edges.DependentsOf(ctx, names)
}

func (r *Resolver) degrade(ctx context.Context, name string, dir Direction, err error) Result {
	cause := cmerr.Wrap(err, cmerr.CodeGraphTraversalFailure, "resolving "+dir.String(), cmerr.FieldProject(name))
	r.logger.WarnContext(ctx, "graph lookup failed, using empty set",
		"project", name,
		"direction", dir.String(),
		"error", err,
	)
	return Result{Projects: []string{}, Degraded: true, Cause: cause}
}

// arena interns project names into dense indices. Index 0 is the start node.
type arena struct {
	index map[string]int
	names []string
}

func newArena() *arena {
	return &arena{index: make(map[string]int)}
}

// intern returns the index of name and whether it was newly added.
func (a *arena) intern(name string) (int, bool) {
	if idx, ok := a.index[name]; ok {
		return idx, false
	}
	idx := len(a.names)
	a.index[name] = idx
	a.names = append(a.names, name)
	return idx, true
}

func (a *arena) lookup(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = a.names[id]
	}
	return out
}
