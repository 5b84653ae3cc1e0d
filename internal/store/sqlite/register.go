// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"github.com/sigil-dev/churnmap/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", newGraphStore)
}

func newGraphStore(dbPath string) (store.GraphStore, error) {
	return NewGraphStore(dbPath)
}
