// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"path/filepath"
	"sync"

	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// defaultDBName is the database file created under the data directory when
// no explicit path is configured.
const defaultDBName = "churnmap.db"

// GraphStoreFactory opens a graph store at the given database path.
type GraphStoreFactory func(dbPath string) (GraphStore, error)

var (
	graphFactories = map[string]GraphStoreFactory{}
	factoriesMu    sync.RWMutex
)

// RegisterBackend registers the factory function for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, gs GraphStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	graphFactories[name] = gs
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// ResolvePath returns the database path for cfg, falling back to a file
// inside dataDir.
func ResolvePath(cfg *StorageConfig, dataDir string) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	return filepath.Join(dataDir, defaultDBName)
}

// NewGraphStore opens the graph store for the configured backend.
func NewGraphStore(cfg *StorageConfig, dataDir string) (GraphStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := graphFactories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, cmerr.Errorf(cmerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(ResolvePath(cfg, dataDir))
}
