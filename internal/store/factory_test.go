// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sigil-dev/churnmap/internal/store"
	_ "github.com/sigil-dev/churnmap/internal/store/sqlite" // register sqlite backend
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphStore_SQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := &store.StorageConfig{Backend: "sqlite"}

	gs, err := store.NewGraphStore(cfg, dir)
	require.NoError(t, err)
	require.NotNil(t, gs)
	t.Cleanup(func() { _ = gs.Close() })

	counts, err := gs.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Projects)
	assert.FileExists(t, filepath.Join(dir, "churnmap.db"))
}

func TestNewGraphStore_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "custom.db")
	cfg := &store.StorageConfig{Path: dbPath} // empty backend defaults to sqlite

	gs, err := store.NewGraphStore(cfg, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })
	assert.FileExists(t, dbPath)
}

func TestNewGraphStore_UnknownBackend(t *testing.T) {
	cfg := &store.StorageConfig{Backend: "unknown"}

	_, err := store.NewGraphStore(cfg, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown")
	assert.True(t, cmerr.HasCode(err, cmerr.CodeStoreBackendUnsupported))
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "churnmap.db"), store.ResolvePath(&store.StorageConfig{}, "data"))
	assert.Equal(t, "/tmp/x.db", store.ResolvePath(&store.StorageConfig{Path: "/tmp/x.db"}, "data"))
}

// TestRegisterBackend_Concurrent verifies that RegisterBackend is goroutine-safe
// and can handle concurrent registrations without race conditions.
func TestRegisterBackend_Concurrent(t *testing.T) {
	const numGoroutines = 10
	const registrationsPerGoroutine = 10

	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			defer func() { done <- true }()
			for j := 0; j < registrationsPerGoroutine; j++ {
				name := fmt.Sprintf("backend-%d-%d", goroutineID, j)
				store.RegisterBackend(name, func(_ string) (store.GraphStore, error) {
					return nil, nil
				})
			}
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	gs, err := store.NewGraphStore(&store.StorageConfig{Backend: "backend-3-7"}, t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, gs)
}
