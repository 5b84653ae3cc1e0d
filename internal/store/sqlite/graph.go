// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// Compile-time interface check.
var _ store.GraphStore = (*GraphStore)(nil)

// maxBatchParams bounds the number of bound parameters in a single IN list.
const maxBatchParams = 500

// GraphStore implements store.GraphStore backed by a single SQLite database.
type GraphStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewGraphStore opens (or creates) a SQLite database at dbPath and
// initialises the project graph and commit history tables.
func NewGraphStore(dbPath string) (*GraphStore, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "migrating graph tables: %w", err)
	}

	return &GraphStore{db: db, logger: slog.Default()}, nil
}

func migrate(db *sqlx.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS projects (
	name        TEXT PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT '',
	source_root TEXT NOT NULL DEFAULT '',
	root        TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS project_files (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	project   TEXT NOT NULL,
	file_path TEXT NOT NULL,
	file_type TEXT NOT NULL DEFAULT '',
	UNIQUE(project, file_path),
	FOREIGN KEY (project) REFERENCES projects(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_project_files_path ON project_files(file_path);

CREATE TABLE IF NOT EXISTS project_dependencies (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	source_project TEXT NOT NULL,
	target_project TEXT NOT NULL,
	UNIQUE(source_project, target_project)
);

CREATE INDEX IF NOT EXISTS idx_project_dependencies_target ON project_dependencies(target_project);

CREATE TABLE IF NOT EXISTS file_dependencies (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path          TEXT NOT NULL,
	depends_on_project TEXT NOT NULL,
	depends_on_file    TEXT NOT NULL DEFAULT '',
	UNIQUE(file_path, depends_on_project, depends_on_file)
);

CREATE INDEX IF NOT EXISTS idx_file_dependencies_target_file ON file_dependencies(depends_on_file);

CREATE TABLE IF NOT EXISTS git_commits (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	hash    TEXT NOT NULL UNIQUE,
	author  TEXT NOT NULL DEFAULT '',
	date    TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_git_commits_date ON git_commits(date);

CREATE TABLE IF NOT EXISTS touched_files (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_id   INTEGER NOT NULL,
	file_path   TEXT NOT NULL,
	change_type TEXT NOT NULL,
	UNIQUE(commit_id, file_path),
	FOREIGN KEY (commit_id) REFERENCES git_commits(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_touched_files_path ON touched_files(file_path);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (g *GraphStore) Close() error {
	return g.db.Close()
}

// Counts returns the row count of every relation.
func (g *GraphStore) Counts(ctx context.Context) (store.TableCounts, error) {
	const q = `SELECT
	(SELECT COUNT(*) FROM projects)             AS projects,
	(SELECT COUNT(*) FROM project_files)        AS project_files,
	(SELECT COUNT(*) FROM project_dependencies) AS project_dependencies,
	(SELECT COUNT(*) FROM file_dependencies)    AS file_dependencies,
	(SELECT COUNT(*) FROM git_commits)          AS git_commits,
	(SELECT COUNT(*) FROM touched_files)        AS touched_files`

	var counts store.TableCounts
	if err := g.db.GetContext(ctx, &counts, q); err != nil {
		return store.TableCounts{}, cmerr.Errorf(cmerr.CodeStoreDatabaseFailure, "counting rows: %w", err)
	}
	return counts, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (g *GraphStore) withTx(ctx context.Context, op string, fn func(*sqlx.Tx) error) error {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return cmerr.Errorf(cmerr.CodeStoreTransactionFailure, "beginning %s transaction: %w", op, err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			g.logger.ErrorContext(ctx, "rollback failed", "op", op, "error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return cmerr.Errorf(cmerr.CodeStoreTransactionFailure, "committing %s: %w", op, err)
	}
	return nil
}

// selectIn runs an IN-list query once per chunk of values and appends the
// scanned rows into dest. The query must contain exactly one "IN (?)" for
// values, preceded by any fixed args.
func selectIn[T any, V any](ctx context.Context, db *sqlx.DB, dest *[]T, query string, values []V, fixed ...any) error {
	for _, chunk := range chunks(values, maxBatchParams) {
		args := append(append([]any{}, fixed...), chunk)
		q, qArgs, err := sqlx.In(query, args...)
		if err != nil {
			return err
		}
		var rows []T
		if err := db.SelectContext(ctx, &rows, db.Rebind(q), qArgs...); err != nil {
			return err
		}
		*dest = append(*dest, rows...)
	}
	return nil
}

// chunks splits items into consecutive slices of at most size elements.
func chunks[V any](items []V, size int) [][]V {
	if len(items) == 0 {
		return nil
	}
	out := make([][]V, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
