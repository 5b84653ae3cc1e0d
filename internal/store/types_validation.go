// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// invalidf builds a coded validation error that also matches ErrInvalidInput.
func invalidf(code cmerr.Code, format string, args ...any) error {
	return cmerr.Errorf(code, format+": %w", append(args, ErrInvalidInput)...)
}

// Valid reports whether the change type is one of the known kinds.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeAdded, ChangeModified, ChangeDeleted, ChangeRenamed, ChangeTypechange:
		return true
	default:
		return false
	}
}

// Validate checks that the Project has all required fields set.
func (p Project) Validate() error {
	if p.Name == "" {
		return invalidf(cmerr.CodeStoreProjectInvalid, "project: Name is required")
	}
	return nil
}

// Validate checks that the ProjectFile has all required fields set.
func (f ProjectFile) Validate() error {
	if f.Project == "" {
		return invalidf(cmerr.CodeStoreFileInvalid, "project file: Project is required")
	}
	if f.FilePath == "" {
		return cmerr.With(invalidf(cmerr.CodeStoreFileInvalid, "project file: FilePath is required"),
			cmerr.FieldProject(f.Project))
	}
	return nil
}

// Validate checks that both endpoints of the edge are set.
func (d ProjectDependency) Validate() error {
	if d.Source == "" || d.Target == "" {
		return invalidf(cmerr.CodeStoreInvalidInput, "project dependency: source and target are required, got %q -> %q", d.Source, d.Target)
	}
	return nil
}

// Validate checks that the file and target project are set.
func (d FileDependency) Validate() error {
	if d.FilePath == "" || d.DependsOnProject == "" {
		return invalidf(cmerr.CodeStoreInvalidInput, "file dependency: file and project are required, got %q -> %q", d.FilePath, d.DependsOnProject)
	}
	return nil
}

// Validate checks that the Commit has a hash and a date.
func (c Commit) Validate() error {
	if c.Hash == "" {
		return invalidf(cmerr.CodeStoreCommitInvalid, "commit: Hash is required")
	}
	if c.Date == "" {
		return cmerr.With(invalidf(cmerr.CodeStoreCommitInvalid, "commit: Date is required"), cmerr.FieldCommit(c.Hash))
	}
	return nil
}

// Validate checks that the TouchedFile has a path and a known change type.
func (t TouchedFile) Validate() error {
	if t.FilePath == "" {
		return invalidf(cmerr.CodeStoreCommitInvalid, "touched file: FilePath is required")
	}
	if !t.ChangeType.Valid() {
		return invalidf(cmerr.CodeStoreCommitInvalid, "touched file: invalid change type %q", t.ChangeType)
	}
	return nil
}

// Validate checks every entity of the snapshot, returning the first failure.
func (s *Snapshot) Validate() error {
	for _, p := range s.Projects {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, f := range s.Files {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	for _, d := range s.ProjectDependencies {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	for _, d := range s.FileDependencies {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}
