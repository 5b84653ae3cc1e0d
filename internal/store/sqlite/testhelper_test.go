// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/churnmap/internal/store"
	"github.com/sigil-dev/churnmap/internal/store/sqlite"
)

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".db")
}

// newTestStore opens a fresh graph store that is closed at test end.
func newTestStore(t *testing.T) *sqlite.GraphStore {
	t.Helper()
	gs, err := sqlite.NewGraphStore(testDBPath(t, "graph"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })
	return gs
}

// seedChain builds core <- mid <- app with one file each.
func seedChain(t *testing.T, gs *sqlite.GraphStore) {
	t.Helper()
	err := gs.SyncWorkspace(context.Background(), &store.Snapshot{
		Projects: []store.Project{{Name: "core"}, {Name: "mid"}, {Name: "app"}},
		Files: []store.ProjectFile{
			{Project: "core", FilePath: "core/a.ts"},
			{Project: "mid", FilePath: "mid/b.ts"},
			{Project: "app", FilePath: "app/c.ts"},
		},
		ProjectDependencies: []store.ProjectDependency{
			{Source: "mid", Target: "core"},
			{Source: "app", Target: "mid"},
		},
		FileDependencies: []store.FileDependency{
			{FilePath: "mid/b.ts", DependsOnProject: "core", DependsOnFile: "core/a.ts"},
			{FilePath: "app/c.ts", DependsOnProject: "mid", DependsOnFile: "mid/b.ts"},
		},
	})
	require.NoError(t, err)
}
