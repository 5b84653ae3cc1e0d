// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

func TestGraphStore_InsertCommitIfAbsent(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)

	c := &store.Commit{Hash: "abc123", Author: "dev", Date: "2024-01-02T10:00:00Z", Message: "init"}
	id, err := gs.InsertCommitIfAbsent(ctx, c)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, c.ID)

	// A second insert with the same hash returns the existing id.
	again, err := gs.InsertCommitIfAbsent(ctx, &store.Commit{Hash: "abc123", Date: "2030-01-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Commits)
}

func TestGraphStore_InsertCommitInvalid(t *testing.T) {
	gs := newTestStore(t)

	_, err := gs.InsertCommitIfAbsent(context.Background(), &store.Commit{Hash: "abc"})
	require.Error(t, err)
	assert.True(t, cmerr.IsInvalidInput(err))
}

func TestGraphStore_InsertTouchedFile(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)

	id, err := gs.InsertCommitIfAbsent(ctx, &store.Commit{Hash: "h1", Date: "2024-01-01T00:00:00Z"})
	require.NoError(t, err)

	require.NoError(t, gs.InsertTouchedFile(ctx, &store.TouchedFile{CommitID: id, FilePath: "a.ts", ChangeType: store.ChangeAdded}))
	require.NoError(t, gs.InsertTouchedFile(ctx, &store.TouchedFile{CommitID: id, FilePath: "a.ts", ChangeType: store.ChangeModified}))

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.TouchedFiles)

	err = gs.InsertTouchedFile(ctx, &store.TouchedFile{CommitID: id, FilePath: "b.ts", ChangeType: "Copied"})
	require.Error(t, err)
	assert.True(t, cmerr.IsInvalidInput(err))
}

func TestGraphStore_InsertTouchedFileUnknownCommit(t *testing.T) {
	gs := newTestStore(t)

	err := gs.InsertTouchedFile(context.Background(),
		&store.TouchedFile{CommitID: 999, FilePath: "a.ts", ChangeType: store.ChangeAdded})
	require.Error(t, err)
}

func TestGraphStore_RecordCommitIdempotent(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)

	touched := []store.TouchedFile{
		{FilePath: "a.ts", ChangeType: store.ChangeModified},
		{FilePath: "b.ts", ChangeType: store.ChangeDeleted},
	}
	c := &store.Commit{Hash: "h1", Author: "dev", Date: "2024-01-01T00:00:00Z", Message: "msg"}

	first, err := gs.RecordCommit(ctx, c, touched)
	require.NoError(t, err)
	second, err := gs.RecordCommit(ctx, &store.Commit{Hash: "h1", Date: "2024-01-01T00:00:00Z"}, touched)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Commits)
	assert.Equal(t, int64(2), counts.TouchedFiles)
}

func TestGraphStore_RecordCommitRollsBack(t *testing.T) {
	ctx := context.Background()
	gs := newTestStore(t)

	_, err := gs.RecordCommit(ctx, &store.Commit{Hash: "h1", Date: "2024-01-01T00:00:00Z"}, []store.TouchedFile{
		{FilePath: "a.ts", ChangeType: store.ChangeAdded},
		{FilePath: "", ChangeType: store.ChangeAdded},
	})
	require.Error(t, err)

	counts, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Commits)
	assert.Zero(t, counts.TouchedFiles)
}
