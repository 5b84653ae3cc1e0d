// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package workspace

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// LockFileName is the exclusive lock taken under the data directory while
// the store is being mutated.
const LockFileName = "sync.lock"

// Lock takes the data-directory write lock without blocking. It fails with
// a conflict error when another process holds it.
func Lock(dataDir string) (unlock func(), err error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeWorkspaceSyncFailure, "creating data directory %s: %w", dataDir, err)
	}
	lock := flock.New(filepath.Join(dataDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, cmerr.Errorf(cmerr.CodeWorkspaceSyncFailure, "acquiring sync lock: %w", err)
	}
	if !locked {
		return nil, cmerr.New(cmerr.CodeWorkspaceLockConflict, "another sync or ingest is in progress")
	}
	return func() { _ = lock.Unlock() }, nil
}

// SyncStats counts what one sync wrote.
type SyncStats struct {
	Projects            int `json:"projects"`
	Files               int `json:"files"`
	ProjectDependencies int `json:"projectDependencies"`
	FileDependencies    int `json:"fileDependencies"`
}

// Syncer applies workspace documents to a graph store.
type Syncer struct {
	store   store.GraphStore
	dataDir string
	logger  *slog.Logger
}

// NewSyncer creates a Syncer writing to gs and locking under dataDir.
func NewSyncer(gs store.GraphStore, dataDir string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: gs, dataDir: dataDir, logger: logger}
}

// Sync converts doc into a snapshot, resolving file imports through
// resolver, and writes it in one transaction while holding the data
// directory lock. Paths in doc are taken relative to root and stored
// cleaned, in slash form.
func (s *Syncer) Sync(ctx context.Context, root string, doc *Document, resolver SymbolResolver) (SyncStats, error) {
	if errs := doc.Validate(); len(errs) > 0 {
		return SyncStats{}, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid, "validating workspace document: %w", errors.Join(errs...))
	}
	if resolver == nil {
		resolver = NewStaticResolver(doc)
	}

	snap, err := BuildSnapshot(ctx, root, doc, resolver)
	if err != nil {
		return SyncStats{}, err
	}

	unlock, err := Lock(s.dataDir)
	if err != nil {
		return SyncStats{}, err
	}
	defer unlock()

	if err := s.store.SyncWorkspace(ctx, snap); err != nil {
		return SyncStats{}, cmerr.Wrap(err, cmerr.CodeWorkspaceSyncFailure, "writing workspace snapshot")
	}

	stats := SyncStats{
		Projects:            len(snap.Projects),
		Files:               len(snap.Files),
		ProjectDependencies: len(snap.ProjectDependencies),
		FileDependencies:    len(snap.FileDependencies),
	}
	s.logger.InfoContext(ctx, "workspace synced",
		"root", root,
		"projects", stats.Projects,
		"files", stats.Files,
		"project_dependencies", stats.ProjectDependencies,
		"file_dependencies", stats.FileDependencies,
	)
	return stats, nil
}

// BuildSnapshot turns a validated document into a store snapshot.
func BuildSnapshot(ctx context.Context, root string, doc *Document, resolver SymbolResolver) (*store.Snapshot, error) {
	snap := &store.Snapshot{}
	for _, p := range doc.Projects {
		snap.Projects = append(snap.Projects, store.Project{
			Name:        p.Name,
			Description: p.Description,
			Type:        p.Type,
			SourceRoot:  p.SourceRoot,
			Root:        p.Root,
			Tags:        p.Tags,
		})
		for _, f := range p.Files {
			snap.Files = append(snap.Files, store.ProjectFile{
				Project:  p.Name,
				FilePath: relPath(root, f.Path),
				FileType: f.Type,
			})
		}
		for _, dep := range p.DependsOn {
			snap.ProjectDependencies = append(snap.ProjectDependencies, store.ProjectDependency{
				Source: p.Name,
				Target: dep,
			})
		}
		for _, imp := range p.Imports {
			targets, err := resolver.Resolve(ctx, imp.File, imp.Project)
			if err != nil {
				return nil, cmerr.Wrap(err, cmerr.CodeWorkspaceSyncFailure, "resolving imports",
					cmerr.FieldFilePath(imp.File), cmerr.FieldProject(imp.Project))
			}
			file := relPath(root, imp.File)
			if len(targets) == 0 {
				snap.FileDependencies = append(snap.FileDependencies, store.FileDependency{
					FilePath:         file,
					DependsOnProject: imp.Project,
				})
				continue
			}
			for _, t := range targets {
				snap.FileDependencies = append(snap.FileDependencies, store.FileDependency{
					FilePath:         file,
					DependsOnProject: imp.Project,
					DependsOnFile:    relPath(root, t),
				})
			}
		}
	}
	return snap, nil
}

// relPath normalises p to a slash-separated path relative to root. Paths
// outside root are kept as given.
func relPath(root, p string) string {
	if root != "" && filepath.IsAbs(p) {
		if rel, err := filepath.Rel(root, p); err == nil && !filepath.IsAbs(rel) && rel != ".." &&
			!hasDotDotPrefix(rel) {
			p = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(p))
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
