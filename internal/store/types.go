// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"sort"
	"strings"
)

// --- Project graph types ---

// Project is a named unit of code ownership with member files.
type Project struct {
	Name        string
	Description string
	Type        string
	SourceRoot  string
	Root        string
	Tags        []string
}

// JoinTags returns the comma-joined label set as persisted.
func (p Project) JoinTags() string {
	return strings.Join(p.Tags, ",")
}

// SplitTags parses a persisted comma-joined label set. Empty labels are dropped.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// ProjectFile is a membership edge between a project and a file path.
type ProjectFile struct {
	Project  string
	FilePath string
	FileType string
}

// ProjectDependency is a directed edge: Source build-depends-on Target.
type ProjectDependency struct {
	Source string
	Target string
}

// FileDependency records that FilePath imports something originating in
// DependsOnProject, optionally narrowed to DependsOnFile.
type FileDependency struct {
	FilePath         string
	DependsOnProject string
	DependsOnFile    string
}

// --- Commit history types ---

// ChangeType is the kind of change a commit made to a file.
type ChangeType string

const (
	ChangeAdded      ChangeType = "Added"
	ChangeModified   ChangeType = "Modified"
	ChangeDeleted    ChangeType = "Deleted"
	ChangeRenamed    ChangeType = "Renamed"
	ChangeTypechange ChangeType = "Typechange"
)

// ChangeTypeFromCode maps a name-status letter (A, M, D, R, T) to a ChangeType.
// Rename codes may carry a similarity score ("R100").
func ChangeTypeFromCode(code string) (ChangeType, bool) {
	if code == "" {
		return "", false
	}
	switch code[0] {
	case 'A':
		return ChangeAdded, len(code) == 1
	case 'M':
		return ChangeModified, len(code) == 1
	case 'D':
		return ChangeDeleted, len(code) == 1
	case 'T':
		return ChangeTypechange, len(code) == 1
	case 'R':
		for _, r := range code[1:] {
			if r < '0' || r > '9' {
				return "", false
			}
		}
		return ChangeRenamed, true
	default:
		return "", false
	}
}

// Commit is a single version-control commit. Date is an ISO-8601 string and
// sorts lexically.
type Commit struct {
	ID      int64
	Hash    string
	Author  string
	Date    string
	Message string
}

// TouchedFile records that a commit changed a file.
type TouchedFile struct {
	CommitID   int64
	FilePath   string
	ChangeType ChangeType
}

// --- Sync and bookkeeping ---

// Snapshot is the full output of one workspace sync. Projects and files are
// upserted; both dependency relations are replaced wholesale.
type Snapshot struct {
	Projects            []Project
	Files               []ProjectFile
	ProjectDependencies []ProjectDependency
	FileDependencies    []FileDependency
}

// TableCounts reports the number of rows per persisted relation.
type TableCounts struct {
	Projects            int64 `db:"projects" json:"projects"`
	ProjectFiles        int64 `db:"project_files" json:"project_files"`
	ProjectDependencies int64 `db:"project_dependencies" json:"project_dependencies"`
	FileDependencies    int64 `db:"file_dependencies" json:"file_dependencies"`
	Commits             int64 `db:"git_commits" json:"git_commits"`
	TouchedFiles        int64 `db:"touched_files" json:"touched_files"`
}

// SortedKeys returns the keys of a string set in ascending order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
