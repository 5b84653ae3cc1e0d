// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// InsertCommitIfAbsent inserts commit unless its hash is already present and
// returns the id of the stored row either way.
func (g *GraphStore) InsertCommitIfAbsent(ctx context.Context, commit *store.Commit) (int64, error) {
	if commit == nil {
		return 0, cmerr.Errorf(cmerr.CodeStoreCommitInvalid, "commit is nil: %w", store.ErrInvalidInput)
	}
	if err := commit.Validate(); err != nil {
		return 0, err
	}
	id, err := insertCommit(ctx, g.db, commit)
	if err != nil {
		return 0, err
	}
	commit.ID = id
	return id, nil
}

func insertCommit(ctx context.Context, q sqlx.ExtContext, c *store.Commit) (int64, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO git_commits (hash, author, date, message) VALUES (?, ?, ?, ?)`,
		c.Hash, c.Author, c.Date, c.Message); err != nil {
		return 0, cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "inserting commit", cmerr.FieldCommit(c.Hash))
	}
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM git_commits WHERE hash = ?`, c.Hash); err != nil {
		return 0, cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "resolving commit id", cmerr.FieldCommit(c.Hash))
	}
	return id, nil
}

// InsertTouchedFile records a file touched by a stored commit. Re-recording
// the same (commit, path) pair overwrites its change type.
func (g *GraphStore) InsertTouchedFile(ctx context.Context, file *store.TouchedFile) error {
	if file == nil {
		return cmerr.Errorf(cmerr.CodeStoreCommitInvalid, "touched file is nil: %w", store.ErrInvalidInput)
	}
	return insertTouched(ctx, g.db, file.CommitID, *file)
}

func insertTouched(ctx context.Context, ex sqlx.ExecerContext, commitID int64, t store.TouchedFile) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx,
		`INSERT OR REPLACE INTO touched_files (commit_id, file_path, change_type) VALUES (?, ?, ?)`,
		commitID, t.FilePath, string(t.ChangeType)); err != nil {
		return cmerr.Wrap(err, cmerr.CodeStoreDatabaseFailure, "inserting touched file", cmerr.FieldFilePath(t.FilePath))
	}
	return nil
}

// RecordCommit stores a commit and its touched files in one transaction. The
// CommitID of each touched entry is ignored in favour of the stored id.
func (g *GraphStore) RecordCommit(ctx context.Context, commit *store.Commit, touched []store.TouchedFile) (int64, error) {
	if commit == nil {
		return 0, cmerr.Errorf(cmerr.CodeStoreCommitInvalid, "commit is nil: %w", store.ErrInvalidInput)
	}
	if err := commit.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := g.withTx(ctx, "record commit", func(tx *sqlx.Tx) error {
		var err error
		id, err = insertCommit(ctx, tx, commit)
		if err != nil {
			return err
		}
		for _, t := range touched {
			if err := insertTouched(ctx, tx, id, t); err != nil {
				return cmerr.With(err, cmerr.FieldCommit(commit.Hash))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	commit.ID = id
	return id, nil
}
