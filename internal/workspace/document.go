// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package workspace loads a workspace graph description and syncs it into
// the graph store.
package workspace

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// Document is the workspace graph as produced by the build-graph provider.
// JSON documents parse as well, since YAML is a superset.
type Document struct {
	Projects []ProjectSpec `yaml:"projects"`
}

// ProjectSpec declares one project, its files and its edges.
type ProjectSpec struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Type        string       `yaml:"type"`
	SourceRoot  string       `yaml:"sourceRoot"`
	Root        string       `yaml:"root"`
	Tags        []string     `yaml:"tags"`
	Files       []FileSpec   `yaml:"files"`
	DependsOn   []string     `yaml:"dependsOn"`
	Imports     []ImportSpec `yaml:"imports"`
}

// FileSpec is a project member. In YAML it may be a bare path or a mapping
// with path and type.
type FileSpec struct {
	Path string `yaml:"path"`
	Type string `yaml:"type"`
}

// UnmarshalYAML accepts either a scalar path or a {path, type} mapping.
func (f *FileSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Path = node.Value
		return nil
	}
	type plain FileSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = FileSpec(p)
	return nil
}

// ImportSpec records that File imports from Project. Resolves optionally
// narrows the import to files of Project.
type ImportSpec struct {
	File     string   `yaml:"file"`
	Project  string   `yaml:"project"`
	Resolves []string `yaml:"resolves"`
}

// LoadDocument reads and validates a document from path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cmerr.Errorf(cmerr.CodeWorkspaceReadFailure, "reading workspace document %s: %w", path, err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes and validates a document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid, "parsing workspace document: %w", err)
	}
	if errs := doc.Validate(); len(errs) > 0 {
		return nil, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid, "validating workspace document: %w", errors.Join(errs...))
	}
	return &doc, nil
}

// Validate checks the document for structural errors, collecting all of
// them rather than stopping at the first.
func (d *Document) Validate() []error {
	var errs []error

	members := make(map[string]map[string]struct{}, len(d.Projects))
	for i, p := range d.Projects {
		if p.Name == "" {
			errs = append(errs, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid, "projects[%d]: name must not be empty", i))
			continue
		}
		if _, dup := members[p.Name]; dup {
			errs = append(errs, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid, "projects[%d]: duplicate project %q", i, p.Name))
			continue
		}
		files := make(map[string]struct{}, len(p.Files))
		for j, f := range p.Files {
			if f.Path == "" {
				errs = append(errs, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid, "project %q: files[%d] has an empty path", p.Name, j))
				continue
			}
			files[f.Path] = struct{}{}
		}
		members[p.Name] = files
	}

	for _, p := range d.Projects {
		if p.Name == "" {
			continue
		}
		for _, dep := range p.DependsOn {
			if _, ok := members[dep]; !ok {
				errs = append(errs, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid,
					"project %q: dependsOn names undeclared project %q", p.Name, dep))
			}
		}
		for j, imp := range p.Imports {
			if _, ok := members[p.Name][imp.File]; !ok {
				errs = append(errs, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid,
					"project %q: imports[%d] file %q is not a member", p.Name, j, imp.File))
			}
			target, ok := members[imp.Project]
			if !ok {
				errs = append(errs, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid,
					"project %q: imports[%d] names undeclared project %q", p.Name, j, imp.Project))
				continue
			}
			for _, r := range imp.Resolves {
				if _, ok := target[r]; !ok {
					errs = append(errs, cmerr.Errorf(cmerr.CodeWorkspaceDocumentInvalid,
						"project %q: imports[%d] resolves %q outside project %q", p.Name, j, r, imp.Project))
				}
			}
		}
	}

	return errs
}
