// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

type projectRow struct {
	Name        string `db:"name"`
	Description string `db:"description"`
	Type        string `db:"type"`
	SourceRoot  string `db:"source_root"`
	Root        string `db:"root"`
	Tags        string `db:"tags"`
}

func (r projectRow) toProject() *store.Project {
	return &store.Project{
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		SourceRoot:  r.SourceRoot,
		Root:        r.Root,
		Tags:        store.SplitTags(r.Tags),
	}
}

type fileRow struct {
	Project  string `db:"project"`
	FilePath string `db:"file_path"`
	FileType string `db:"file_type"`
}

const upsertProjectSQL = `INSERT INTO projects (name, description, type, source_root, root, tags)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		description = excluded.description,
		type        = excluded.type,
		source_root = excluded.source_root,
		root        = excluded.root,
		tags        = excluded.tags`

const upsertFileSQL = `INSERT INTO project_files (project, file_path, file_type)
	VALUES (?, ?, ?)
	ON CONFLICT(project, file_path) DO UPDATE SET file_type = excluded.file_type`

// UpsertProject inserts a project or overwrites its attributes.
func (g *GraphStore) UpsertProject(ctx context.Context, project *store.Project) error {
	if project == nil {
		return cmerr.Errorf(cmerr.CodeStoreProjectInvalid, "project is nil: %w", store.ErrInvalidInput)
	}
	if err := project.Validate(); err != nil {
		return err
	}
	if err := upsertProject(ctx, g.db, project); err != nil {
		return cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "upserting project", cmerr.FieldProject(project.Name))
	}
	return nil
}

func upsertProject(ctx context.Context, ex sqlx.ExecerContext, p *store.Project) error {
	_, err := ex.ExecContext(ctx, upsertProjectSQL,
		p.Name, p.Description, p.Type, p.SourceRoot, p.Root, p.JoinTags())
	return err
}

// GetProject returns the named project or a not-found error.
func (g *GraphStore) GetProject(ctx context.Context, name string) (*store.Project, error) {
	var row projectRow
	err := g.db.GetContext(ctx, &row,
		`SELECT name, description, type, source_root, root, tags FROM projects WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cmerr.Errorf(cmerr.CodeStoreProjectNotFound, "project %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "getting project", cmerr.FieldProject(name))
	}
	return row.toProject(), nil
}

// ListProjects returns every project ordered by name.
func (g *GraphStore) ListProjects(ctx context.Context) ([]*store.Project, error) {
	var rows []projectRow
	if err := g.db.SelectContext(ctx, &rows,
		`SELECT name, description, type, source_root, root, tags FROM projects ORDER BY name`); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "listing projects: %w", err)
	}
	out := make([]*store.Project, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toProject())
	}
	return out, nil
}

// DeleteProject removes a project. Its file memberships cascade; dependency
// edges naming it are left in place.
func (g *GraphStore) DeleteProject(ctx context.Context, name string) error {
	res, err := g.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "deleting project", cmerr.FieldProject(name))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "checking delete result: %w", err)
	}
	if n == 0 {
		return cmerr.Errorf(cmerr.CodeStoreProjectNotFound, "project %q: %w", name, store.ErrNotFound)
	}
	return nil
}

// AddProjectFile records that a file belongs to an existing project.
func (g *GraphStore) AddProjectFile(ctx context.Context, file *store.ProjectFile) error {
	if file == nil {
		return cmerr.Errorf(cmerr.CodeStoreFileInvalid, "project file is nil: %w", store.ErrInvalidInput)
	}
	if err := file.Validate(); err != nil {
		return err
	}

	return g.withTx(ctx, "add project file", func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, `SELECT 1 FROM projects WHERE name = ?`, file.Project)
		if errors.Is(err, sql.ErrNoRows) {
			return cmerr.Errorf(cmerr.CodeStoreProjectNotFound, "project %q: %w", file.Project, store.ErrNotFound)
		}
		if err != nil {
			return cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "checking project", cmerr.FieldProject(file.Project))
		}
		if _, err := tx.ExecContext(ctx, upsertFileSQL, file.Project, file.FilePath, file.FileType); err != nil {
			return cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "adding project file",
				cmerr.FieldProject(file.Project), cmerr.FieldFilePath(file.FilePath))
		}
		return nil
	})
}

// ListFiles returns the files of a project ordered by path. An unknown
// project has no files.
func (g *GraphStore) ListFiles(ctx context.Context, project string) ([]*store.ProjectFile, error) {
	var rows []fileRow
	if err := g.db.SelectContext(ctx, &rows,
		`SELECT project, file_path, file_type FROM project_files WHERE project = ? ORDER BY file_path`, project); err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "listing files", cmerr.FieldProject(project))
	}
	out := make([]*store.ProjectFile, 0, len(rows))
	for _, r := range rows {
		out = append(out, &store.ProjectFile{Project: r.Project, FilePath: r.FilePath, FileType: r.FileType})
	}
	return out, nil
}

// ListFileOwners returns the projects that own path, ordered by name.
func (g *GraphStore) ListFileOwners(ctx context.Context, path string) ([]*store.Project, error) {
	var rows []projectRow
	if err := g.db.SelectContext(ctx, &rows,
		`SELECT p.name, p.description, p.type, p.source_root, p.root, p.tags
		FROM projects p JOIN project_files pf ON pf.project = p.name
		WHERE pf.file_path = ? ORDER BY p.name`, path); err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "listing file owners", cmerr.FieldFilePath(path))
	}
	out := make([]*store.Project, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toProject())
	}
	return out, nil
}

// ReplaceProjectDependencies clears the project edge relation and writes
// edges in one transaction. Duplicate edges collapse to one.
func (g *GraphStore) ReplaceProjectDependencies(ctx context.Context, edges []store.ProjectDependency) error {
	return g.withTx(ctx, "replace project dependencies", func(tx *sqlx.Tx) error {
		return replaceProjectDependencies(ctx, tx, edges)
	})
}

func replaceProjectDependencies(ctx context.Context, tx *sqlx.Tx, edges []store.ProjectDependency) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_dependencies`); err != nil {
		return cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "clearing project dependencies: %w", err)
	}
	for _, e := range edges {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_dependencies (source_project, target_project) VALUES (?, ?)`,
			e.Source, e.Target); err != nil {
			return cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "inserting project dependency",
				cmerr.FieldProject(e.Source))
		}
	}
	return nil
}

// ReplaceFileDependencies clears the file edge relation and writes edges in
// one transaction.
func (g *GraphStore) ReplaceFileDependencies(ctx context.Context, edges []store.FileDependency) error {
	return g.withTx(ctx, "replace file dependencies", func(tx *sqlx.Tx) error {
		return replaceFileDependencies(ctx, tx, edges)
	})
}

func replaceFileDependencies(ctx context.Context, tx *sqlx.Tx, edges []store.FileDependency) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_dependencies`); err != nil {
		return cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "clearing file dependencies: %w", err)
	}
	for _, e := range edges {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO file_dependencies (file_path, depends_on_project, depends_on_file) VALUES (?, ?, ?)`,
			e.FilePath, e.DependsOnProject, e.DependsOnFile); err != nil {
			return cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "inserting file dependency",
				cmerr.FieldFilePath(e.FilePath))
		}
	}
	return nil
}

// SyncWorkspace upserts every project and file of snap and replaces both
// dependency relations, all in one transaction.
func (g *GraphStore) SyncWorkspace(ctx context.Context, snap *store.Snapshot) error {
	if snap == nil {
		return cmerr.Errorf(cmerr.CodeStoreInvalidInput, "snapshot is nil: %w", store.ErrInvalidInput)
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	return g.withTx(ctx, "sync workspace", func(tx *sqlx.Tx) error {
		for i := range snap.Projects {
			if err := upsertProject(ctx, tx, &snap.Projects[i]); err != nil {
				return cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "upserting project",
					cmerr.FieldProject(snap.Projects[i].Name))
			}
		}
		for _, f := range snap.Files {
			if _, err := tx.ExecContext(ctx, upsertFileSQL, f.Project, f.FilePath, f.FileType); err != nil {
				return cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "upserting project file",
					cmerr.FieldProject(f.Project), cmerr.FieldFilePath(f.FilePath))
			}
		}
		if err := replaceProjectDependencies(ctx, tx, snap.ProjectDependencies); err != nil {
			return err
		}
		return replaceFileDependencies(ctx, tx, snap.FileDependencies)
	})
}
