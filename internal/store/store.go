// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "context"

// GraphStore is the durable store for the project graph and commit history.
type GraphStore interface {
	ProjectStore
	CommitStore
	EdgeReader
	WindowReader

	// SyncWorkspace applies a full workspace snapshot in one transaction.
	SyncWorkspace(ctx context.Context, snap *Snapshot) error
	Counts(ctx context.Context) (TableCounts, error)
	Close() error
}

// ProjectStore manages projects, file membership, and dependency edges.
type ProjectStore interface {
	UpsertProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, name string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	DeleteProject(ctx context.Context, name string) error

	AddProjectFile(ctx context.Context, file *ProjectFile) error
	ListFiles(ctx context.Context, project string) ([]*ProjectFile, error)
	ListFileOwners(ctx context.Context, path string) ([]*Project, error)

	// Replace operations clear and rewrite the whole relation atomically.
	ReplaceProjectDependencies(ctx context.Context, edges []ProjectDependency) error
	ReplaceFileDependencies(ctx context.Context, edges []FileDependency) error
}

// CommitStore manages commits and the files they touched. Commits are
// insert-only; a duplicate hash is never an error.
type CommitStore interface {
	InsertCommitIfAbsent(ctx context.Context, commit *Commit) (int64, error)
	InsertTouchedFile(ctx context.Context, file *TouchedFile) error
	RecordCommit(ctx context.Context, commit *Commit, touched []TouchedFile) (int64, error)
}

// EdgeReader answers single-hop questions about the project dependency graph.
type EdgeReader interface {
	// DependentsOf returns the distinct projects with an edge into any of names.
	DependentsOf(ctx context.Context, names []string) ([]string, error)
	// DependenciesOf returns the distinct projects any of names has an edge to.
	DependenciesOf(ctx context.Context, names []string) ([]string, error)
}

// WindowReader serves the commit-window and file-level lookups used for
// metrics.
type WindowReader interface {
	ListProjectNames(ctx context.Context) ([]string, error)
	// RecentCommitIDs returns the ids of the n most recently dated commits.
	RecentCommitIDs(ctx context.Context, n int) ([]int64, error)
	// TouchedProjectsByCommit maps each commit id to the distinct projects
	// owning at least one file it touched. Commits touching no owned file
	// are absent from the result.
	TouchedProjectsByCommit(ctx context.Context, commitIDs []int64) (map[int64][]string, error)
	// CommitsTouchingFiles returns the subset of commitIDs that touched at
	// least one of paths.
	CommitsTouchingFiles(ctx context.Context, commitIDs []int64, paths []string) ([]int64, error)
	// ProjectsDependingOnFiles maps each path to the distinct projects owning
	// a file with a file-level dependency on it.
	ProjectsDependingOnFiles(ctx context.Context, paths []string) (map[string][]string, error)
}
