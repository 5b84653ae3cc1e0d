// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/churnmap/internal/store"
	"github.com/sigil-dev/churnmap/internal/store/sqlite"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

func TestGraphStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "reopen")

	gs, err := sqlite.NewGraphStore(path)
	require.NoError(t, err)
	require.NoError(t, gs.UpsertProject(ctx, &store.Project{Name: "core"}))
	require.NoError(t, gs.Close())

	gs, err = sqlite.NewGraphStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })

	p, err := gs.GetProject(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, "core", p.Name)
}

func TestGraphStore_UpsertAndGetProject(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)

	in := &store.Project{
		Name:        "core",
		Description: "shared code",
		Type:        "library",
		SourceRoot:  "libs/core/src",
		Root:        "libs/core",
		Tags:        []string{"scope:shared", "type:lib"},
	}
	require.NoError(t, gs.UpsertProject(ctx, in))

	got, err := gs.GetProject(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	in.Description = "updated"
	in.Tags = nil
	require.NoError(t, gs.UpsertProject(ctx, in))

	got, err = gs.GetProject(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
	assert.Empty(t, got.Tags)

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Projects)
}

func TestGraphStore_UpsertProjectInvalid(t *testing.T) {
	gs := newTestStore(t)

	err := gs.UpsertProject(context.Background(), &store.Project{})
	require.Error(t, err)
	assert.True(t, cmerr.IsInvalidInput(err))
	assert.True(t, errors.Is(err, store.ErrInvalidInput))
}

func TestGraphStore_NilArgumentsAreInvalid(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)

	_, commitErr := gs.InsertCommitIfAbsent(ctx, nil)
	_, recordErr := gs.RecordCommit(ctx, nil, nil)
	tests := []struct {
		name string
		err  error
	}{
		{"project", gs.UpsertProject(ctx, nil)},
		{"project file", gs.AddProjectFile(ctx, nil)},
		{"snapshot", gs.SyncWorkspace(ctx, nil)},
		{"commit", commitErr},
		{"recorded commit", recordErr},
		{"touched file", gs.InsertTouchedFile(ctx, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, cmerr.IsInvalidInput(tt.err))
			assert.True(t, errors.Is(tt.err, store.ErrInvalidInput))
		})
	}
}

func TestGraphStore_GetProjectNotFound(t *testing.T) {
	gs := newTestStore(t)

	_, err := gs.GetProject(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, cmerr.IsNotFound(err))
}

func TestGraphStore_ListProjectsOrdered(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, gs.UpsertProject(ctx, &store.Project{Name: name}))
	}

	projects, err := gs.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "alpha", projects[0].Name)
	assert.Equal(t, "mid", projects[1].Name)
	assert.Equal(t, "zeta", projects[2].Name)

	names, err := gs.ListProjectNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestGraphStore_AddProjectFile(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)
	require.NoError(t, gs.UpsertProject(ctx, &store.Project{Name: "core"}))

	require.NoError(t, gs.AddProjectFile(ctx, &store.ProjectFile{Project: "core", FilePath: "core/b.ts", FileType: "ts"}))
	require.NoError(t, gs.AddProjectFile(ctx, &store.ProjectFile{Project: "core", FilePath: "core/a.ts"}))
	// Same membership again only refreshes the file type.
	require.NoError(t, gs.AddProjectFile(ctx, &store.ProjectFile{Project: "core", FilePath: "core/a.ts", FileType: "ts"}))

	files, err := gs.ListFiles(ctx, "core")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "core/a.ts", files[0].FilePath)
	assert.Equal(t, "ts", files[0].FileType)
	assert.Equal(t, "core/b.ts", files[1].FilePath)
}

func TestGraphStore_AddProjectFileUnknownProject(t *testing.T) {
	gs := newTestStore(t)

	err := gs.AddProjectFile(context.Background(), &store.ProjectFile{Project: "ghost", FilePath: "x.ts"})
	require.Error(t, err)
	assert.True(t, cmerr.IsNotFound(err))
}

func TestGraphStore_ListFilesUnknownProject(t *testing.T) {
	gs := newTestStore(t)

	files, err := gs.ListFiles(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGraphStore_FileOwnedByMultipleProjects(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)
	for _, name := range []string{"b", "a"} {
		require.NoError(t, gs.UpsertProject(ctx, &store.Project{Name: name}))
		require.NoError(t, gs.AddProjectFile(ctx, &store.ProjectFile{Project: name, FilePath: "shared.ts"}))
	}

	owners, err := gs.ListFileOwners(ctx, "shared.ts")
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, "a", owners[0].Name)
	assert.Equal(t, "b", owners[1].Name)
}

func TestGraphStore_DeleteProjectCascadesFiles(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)
	seedChain(t, gs)

	require.NoError(t, gs.DeleteProject(ctx, "core"))

	files, err := gs.ListFiles(ctx, "core")
	require.NoError(t, err)
	assert.Empty(t, files)

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Projects)
	assert.Equal(t, int64(2), counts.ProjectFiles)
	// Edges are not owned by the project row.
	assert.Equal(t, int64(2), counts.ProjectDependencies)

	err = gs.DeleteProject(ctx, "core")
	require.Error(t, err)
	assert.True(t, cmerr.IsNotFound(err))
}

func TestGraphStore_ReplaceProjectDependencies(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)
	seedChain(t, gs)

	require.NoError(t, gs.ReplaceProjectDependencies(ctx, []store.ProjectDependency{
		{Source: "app", Target: "core"},
		{Source: "app", Target: "core"},
	}))

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.ProjectDependencies)

	deps, err := gs.DependenciesOf(ctx, []string{"app"})
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, deps)
}

func TestGraphStore_ReplaceProjectDependenciesRollsBack(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)
	seedChain(t, gs)

	err := gs.ReplaceProjectDependencies(ctx, []store.ProjectDependency{
		{Source: "app", Target: "core"},
		{Source: "", Target: "core"},
	})
	require.Error(t, err)
	assert.True(t, cmerr.IsInvalidInput(err))
	assert.True(t, errors.Is(err, store.ErrInvalidInput))

	// The previous edge set survives intact.
	dependents, err := gs.DependentsOf(ctx, []string{"core"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mid"}, dependents)
}

func TestGraphStore_ReplaceFileDependencies(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)
	seedChain(t, gs)

	require.NoError(t, gs.ReplaceFileDependencies(ctx, []store.FileDependency{
		{FilePath: "app/c.ts", DependsOnProject: "core"},
	}))

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.FileDependencies)

	byFile, err := gs.ProjectsDependingOnFiles(ctx, []string{"core/a.ts"})
	require.NoError(t, err)
	assert.Empty(t, byFile)
}

func TestGraphStore_SyncWorkspaceIsAtomic(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)
	seedChain(t, gs)

	// A file naming an unknown project violates the foreign key and the
	// whole sync is discarded.
	err := gs.SyncWorkspace(ctx, &store.Snapshot{
		Projects: []store.Project{{Name: "extra"}},
		Files:    []store.ProjectFile{{Project: "ghost", FilePath: "ghost.ts"}},
	})
	require.Error(t, err)

	_, err = gs.GetProject(ctx, "extra")
	assert.True(t, cmerr.IsNotFound(err))

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.TableCounts{
		Projects:            3,
		ProjectFiles:        3,
		ProjectDependencies: 2,
		FileDependencies:    2,
	}, counts)
}

func TestGraphStore_SyncWorkspaceReplacesEdges(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)
	seedChain(t, gs)

	require.NoError(t, gs.SyncWorkspace(ctx, &store.Snapshot{
		Projects: []store.Project{{Name: "core"}},
	}))

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Projects)
	assert.Equal(t, int64(3), counts.ProjectFiles)
	assert.Zero(t, counts.ProjectDependencies)
	assert.Zero(t, counts.FileDependencies)
}
