// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"slices"

	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

type pairRow struct {
	Key   string `db:"k"`
	Value string `db:"v"`
}

type commitProjectRow struct {
	CommitID int64  `db:"commit_id"`
	Project  string `db:"project"`
}

// DependentsOf returns the distinct projects with an edge into any of names.
func (g *GraphStore) DependentsOf(ctx context.Context, names []string) ([]string, error) {
	var rows []string
	if err := selectIn(ctx, g.db, &rows,
		`SELECT DISTINCT source_project FROM project_dependencies WHERE target_project IN (?)`, names); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "selecting dependents: %w", err)
	}
	return distinctSorted(rows), nil
}

// DependenciesOf returns the distinct projects that any of names depends on.
func (g *GraphStore) DependenciesOf(ctx context.Context, names []string) ([]string, error) {
	var rows []string
	if err := selectIn(ctx, g.db, &rows,
		`SELECT DISTINCT target_project FROM project_dependencies WHERE source_project IN (?)`, names); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "selecting dependencies: %w", err)
	}
	return distinctSorted(rows), nil
}

// ListProjectNames returns every project name in ascending order.
func (g *GraphStore) ListProjectNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := g.db.SelectContext(ctx, &names, `SELECT name FROM projects ORDER BY name`); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "listing project names: %w", err)
	}
	return names, nil
}

// RecentCommitIDs returns the ids of the n most recent commits by date,
// newest first. Ties on date are broken by insertion order.
func (g *GraphStore) RecentCommitIDs(ctx context.Context, n int) ([]int64, error) {
	if n <= 0 {
		return []int64{}, nil
	}
	var ids []int64
	if err := g.db.SelectContext(ctx, &ids,
		`SELECT id FROM git_commits ORDER BY date DESC, id DESC LIMIT ?`, n); err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "selecting recent commits", cmerr.FieldWindow(n))
	}
	return ids, nil
}

// TouchedProjectsByCommit maps each commit to the distinct projects owning a
// file it touched.
func (g *GraphStore) TouchedProjectsByCommit(ctx context.Context, commitIDs []int64) (map[int64][]string, error) {
	var rows []commitProjectRow
	if err := selectIn(ctx, g.db, &rows,
		`SELECT DISTINCT tf.commit_id AS commit_id, pf.project AS project
		FROM touched_files tf JOIN project_files pf ON pf.file_path = tf.file_path
		WHERE tf.commit_id IN (?)`, commitIDs); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "selecting touched projects: %w", err)
	}

	out := make(map[int64][]string)
	for _, r := range rows {
		out[r.CommitID] = append(out[r.CommitID], r.Project)
	}
	for id, projects := range out {
		out[id] = distinctSorted(projects)
	}
	return out, nil
}

// CommitsTouchingFiles returns, in ascending order, the ids among commitIDs
// that touched at least one of paths.
func (g *GraphStore) CommitsTouchingFiles(ctx context.Context, commitIDs []int64, paths []string) ([]int64, error) {
	if len(commitIDs) == 0 || len(paths) == 0 {
		return []int64{}, nil
	}

	seen := make(map[int64]struct{})
	for _, idChunk := range chunks(commitIDs, maxBatchParams) {
		var rows []int64
		if err := selectIn(ctx, g.db, &rows,
			`SELECT DISTINCT commit_id FROM touched_files WHERE commit_id IN (?) AND file_path IN (?)`,
			paths, idChunk); err != nil {
			return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "selecting commits touching files: %w", err)
		}
		for _, id := range rows {
			seen[id] = struct{}{}
		}
	}

	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

// ProjectsDependingOnFiles maps each path to the distinct projects owning a
// file with a file-level dependency on that path.
func (g *GraphStore) ProjectsDependingOnFiles(ctx context.Context, paths []string) (map[string][]string, error) {
	var rows []pairRow
	if err := selectIn(ctx, g.db, &rows,
		`SELECT DISTINCT fd.depends_on_file AS k, pf.project AS v
		FROM file_dependencies fd JOIN project_files pf ON pf.file_path = fd.file_path
		WHERE fd.depends_on_file IN (?)`, paths); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "selecting file dependents: %w", err)
	}

	out := make(map[string][]string)
	for _, r := range rows {
		out[r.Key] = append(out[r.Key], r.Value)
	}
	for k, projects := range out {
		out[k] = distinctSorted(projects)
	}
	return out, nil
}

func distinctSorted(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return store.SortedKeys(set)
}
