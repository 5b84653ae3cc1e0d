// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package workspace

import (
	"context"
	"sort"
)

// SymbolResolver reports which files of target a file's imports resolve to.
// An empty result means the import is known only at project granularity.
type SymbolResolver interface {
	Resolve(ctx context.Context, file, target string) ([]string, error)
}

// StaticResolver answers from the imports declared in a Document.
type StaticResolver struct {
	resolved map[importKey][]string
}

type importKey struct{ file, project string }

// NewStaticResolver indexes the imports of doc.
func NewStaticResolver(doc *Document) *StaticResolver {
	r := &StaticResolver{resolved: make(map[importKey][]string)}
	for _, p := range doc.Projects {
		for _, imp := range p.Imports {
			k := importKey{imp.File, imp.Project}
			r.resolved[k] = append(r.resolved[k], imp.Resolves...)
		}
	}
	for k, files := range r.resolved {
		sort.Strings(files)
		r.resolved[k] = compact(files)
	}
	return r
}

// Resolve implements SymbolResolver.
func (r *StaticResolver) Resolve(_ context.Context, file, target string) ([]string, error) {
	return r.resolved[importKey{file, target}], nil
}

// compact removes adjacent duplicates from a sorted slice.
func compact(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
