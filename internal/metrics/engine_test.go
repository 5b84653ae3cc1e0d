// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package metrics_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/churnmap/internal/graph"
	"github.com/sigil-dev/churnmap/internal/metrics"
	"github.com/sigil-dev/churnmap/internal/store"
	"github.com/sigil-dev/churnmap/internal/store/sqlite"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

func newStore(t *testing.T) *sqlite.GraphStore {
	t.Helper()
	gs, err := sqlite.NewGraphStore(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })
	return gs
}

func newEngine(gs *sqlite.GraphStore) *metrics.Engine {
	return metrics.NewEngine(gs, graph.NewResolver(gs))
}

func syncSnapshot(t *testing.T, gs *sqlite.GraphStore, snap *store.Snapshot) {
	t.Helper()
	require.NoError(t, gs.SyncWorkspace(context.Background(), snap))
}

var commitSeq int

func commit(t *testing.T, gs *sqlite.GraphStore, date string, paths ...string) {
	t.Helper()
	commitSeq++
	touched := make([]store.TouchedFile, 0, len(paths))
	for _, p := range paths {
		touched = append(touched, store.TouchedFile{FilePath: p, ChangeType: store.ChangeModified})
	}
	_, err := gs.RecordCommit(context.Background(),
		&store.Commit{Hash: fmt.Sprintf("c%04d", commitSeq), Date: date}, touched)
	require.NoError(t, err)
}

// chainSnapshot is core(a.ts) <- mid(b.ts) <- app(c.ts).
func chainSnapshot() *store.Snapshot {
	return &store.Snapshot{
		Projects: []store.Project{{Name: "core"}, {Name: "mid"}, {Name: "app"}},
		Files: []store.ProjectFile{
			{Project: "core", FilePath: "a.ts"},
			{Project: "mid", FilePath: "b.ts"},
			{Project: "app", FilePath: "c.ts"},
		},
		ProjectDependencies: []store.ProjectDependency{
			{Source: "mid", Target: "core"},
			{Source: "app", Target: "mid"},
		},
		FileDependencies: []store.FileDependency{
			{FilePath: "b.ts", DependsOnProject: "core", DependsOnFile: "a.ts"},
			{FilePath: "c.ts", DependsOnProject: "mid", DependsOnFile: "b.ts"},
		},
	}
}

func TestEngine_EndToEndScenario(t *testing.T) {
	gs := newStore(t)
	syncSnapshot(t, gs, chainSnapshot())
	commit(t, gs, "2024-01-01T00:00:00Z", "a.ts")

	report, err := newEngine(gs).ProjectMetrics(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Commits)
	assert.Empty(t, report.DegradedProjects)

	assert.Equal(t, metrics.ProjectMetrics{Name: "core", TouchedCount: 1, DependentCount: 2, Load: 2, AffectedCount: 1},
		report.Projects["core"])
	assert.Equal(t, metrics.ProjectMetrics{Name: "mid", TouchedCount: 0, DependentCount: 1, Load: 0, AffectedCount: 1},
		report.Projects["mid"])
	assert.Equal(t, metrics.ProjectMetrics{Name: "app", TouchedCount: 0, DependentCount: 0, Load: 0, AffectedCount: 1},
		report.Projects["app"])
}

func TestEngine_LoadIsProduct(t *testing.T) {
	gs := newStore(t)
	syncSnapshot(t, gs, chainSnapshot())
	for i := range 3 {
		commit(t, gs, fmt.Sprintf("2024-01-0%dT00:00:00Z", i+1), "a.ts")
	}

	report, err := newEngine(gs).ProjectMetrics(context.Background(), 0)
	require.NoError(t, err)
	core := report.Projects["core"]
	assert.Equal(t, 3, core.TouchedCount)
	assert.Equal(t, 2, core.DependentCount)
	assert.Equal(t, 6, core.Load)
	assert.Equal(t, metrics.DefaultWindow, report.Window)
}

func TestEngine_AffectedCountsOncePerCommit(t *testing.T) {
	gs := newStore(t)
	// A and B both reach C.
	syncSnapshot(t, gs, &store.Snapshot{
		Projects: []store.Project{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		Files: []store.ProjectFile{
			{Project: "A", FilePath: "a.go"},
			{Project: "B", FilePath: "b.go"},
			{Project: "C", FilePath: "c.go"},
		},
		ProjectDependencies: []store.ProjectDependency{
			{Source: "C", Target: "A"},
			{Source: "C", Target: "B"},
		},
	})
	commit(t, gs, "2024-01-01T00:00:00Z", "a.go", "b.go")

	report, err := newEngine(gs).ProjectMetrics(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Projects["C"].AffectedCount)
	assert.Equal(t, 1, report.Projects["A"].AffectedCount)
	assert.Equal(t, 1, report.Projects["B"].AffectedCount)
	assert.Equal(t, 0, report.Projects["C"].TouchedCount)
}

func TestEngine_WindowLimitsCommits(t *testing.T) {
	gs := newStore(t)
	syncSnapshot(t, gs, chainSnapshot())
	commit(t, gs, "2024-01-01T00:00:00Z", "a.ts")
	commit(t, gs, "2024-01-02T00:00:00Z", "b.ts")
	commit(t, gs, "2024-01-03T00:00:00Z", "b.ts")

	report, err := newEngine(gs).ProjectMetrics(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Commits)
	assert.Zero(t, report.Projects["core"].TouchedCount)
	assert.Equal(t, 2, report.Projects["mid"].TouchedCount)
	assert.Equal(t, 2, report.Projects["mid"].Load)
	assert.Equal(t, 2, report.Projects["app"].AffectedCount)
}

func TestEngine_EveryProjectReported(t *testing.T) {
	gs := newStore(t)
	syncSnapshot(t, gs, &store.Snapshot{Projects: []store.Project{{Name: "zeta"}, {Name: "alpha"}}})

	list, err := newEngine(gs).ListProjectMetrics(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, metrics.ProjectMetrics{Name: "alpha"}, list[0])
	assert.Equal(t, metrics.ProjectMetrics{Name: "zeta"}, list[1])
}

// failingClosure degrades every lookup.
type failingClosure struct{}

func (failingClosure) Dependents(context.Context, string) graph.Result {
	return graph.Result{Projects: []string{}, Degraded: true, Cause: fmt.Errorf("store unavailable")}
}

func TestEngine_DegradedLookupsStillReport(t *testing.T) {
	gs := newStore(t)
	syncSnapshot(t, gs, chainSnapshot())
	commit(t, gs, "2024-01-01T00:00:00Z", "a.ts")

	report, err := metrics.NewEngine(gs, failingClosure{}).ProjectMetrics(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "core", "mid"}, report.DegradedProjects)

	core := report.Projects["core"]
	assert.Equal(t, 1, core.TouchedCount)
	assert.Zero(t, core.DependentCount)
	assert.Zero(t, core.Load)
	assert.Equal(t, 1, core.AffectedCount)
}

func TestEngine_EstimatedLoad(t *testing.T) {
	gs := newStore(t)
	syncSnapshot(t, gs, chainSnapshot())
	commit(t, gs, "2024-01-01T00:00:00Z", "a.ts")
	commit(t, gs, "2024-01-02T00:00:00Z", "a.ts", "b.ts")
	commit(t, gs, "2024-01-03T00:00:00Z", "c.ts")
	e := newEngine(gs)
	ctx := context.Background()

	tests := []struct {
		name  string
		files []string
		n     int
		want  int
	}{
		// a.ts is imported by mid, whose dependents are {app}: 2 commits x 2.
		{"single file", []string{"a.ts"}, 100, 4},
		// b.ts imported by app only: 1 commit x 1.
		{"leaf import", []string{"b.ts"}, 100, 1},
		// Commits touching either: 2; dependents {mid, app}.
		{"union", []string{"a.ts", "b.ts", "a.ts"}, 100, 4},
		// Only the newest two commits: one touches a.ts.
		{"window", []string{"a.ts"}, 2, 2},
		{"empty", nil, 100, 0},
		// c.ts is touched but nobody imports it.
		{"no dependents", []string{"c.ts"}, 100, 0},
		{"unknown file", []string{"nope.ts"}, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EstimatedLoad(ctx, tt.files, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimator_EstimatedLoads(t *testing.T) {
	gs := newStore(t)
	syncSnapshot(t, gs, chainSnapshot())
	commit(t, gs, "2024-01-01T00:00:00Z", "a.ts", "b.ts")
	ctx := context.Background()

	est, err := newEngine(gs).Estimator(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, metrics.DefaultWindow, est.Window())

	loads, err := est.EstimatedLoads(ctx, []string{"a.ts"}, []string{"b.ts"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, loads)
}

func TestEngine_FileDependents(t *testing.T) {
	gs := newStore(t)
	syncSnapshot(t, gs, chainSnapshot())

	deps, err := newEngine(gs).FileDependents(context.Background(), []string{"a.ts", "b.ts", "c.ts"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"a.ts": {"mid"},
		"b.ts": {"app"},
		"c.ts": {},
	}, deps)
}

func TestValidateWindow(t *testing.T) {
	assert.NoError(t, metrics.ValidateWindow(0))
	assert.NoError(t, metrics.ValidateWindow(50))

	err := metrics.ValidateWindow(-1)
	require.Error(t, err)
	assert.True(t, cmerr.IsInvalidInput(err))
}
