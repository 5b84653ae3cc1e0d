// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package ingest

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"

	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// logFormat renders the header line Parse expects.
const logFormat = "--pretty=format:%H|%an|%aI|%s"

// GitLogSource runs git log against an explicit repository root. The
// process working directory is never changed.
type GitLogSource struct {
	Root  string
	Limit int    // Most recent commits to read; 0 reads the whole history.
	Git   string // git binary; empty uses "git" from PATH.
}

// Args returns the git arguments used by Open.
func (s GitLogSource) Args() []string {
	args := []string{"-C", s.Root, "log", "--no-color", "--name-status", logFormat}
	if s.Limit > 0 {
		args = append(args, "-n", strconv.Itoa(s.Limit))
	}
	return args
}

// Open starts git and returns its standard output. Close waits for the
// process and reports a non-zero exit.
func (s GitLogSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.Root == "" {
		return nil, cmerr.New(cmerr.CodeIngestSourceFailure, "git log source requires a repository root")
	}
	bin := s.Git
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, s.Args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, cmerr.Errorf(cmerr.CodeIngestSourceFailure, "creating git stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeIngestSourceFailure, "starting git: %w", err)
	}
	return &gitReader{ReadCloser: out, cmd: cmd, stderr: &stderr}, nil
}

type gitReader struct {
	io.ReadCloser
	cmd    *exec.Cmd
	stderr *bytes.Buffer
}

func (g *gitReader) Close() error {
	// Drain so git is not blocked on a full pipe when the reader stops early.
	_, _ = io.Copy(io.Discard, g.ReadCloser)
	if err := g.cmd.Wait(); err != nil {
		return cmerr.Errorf(cmerr.CodeIngestSourceFailure, "git log: %w: %s", err, strings.TrimSpace(g.stderr.String()))
	}
	return nil
}
