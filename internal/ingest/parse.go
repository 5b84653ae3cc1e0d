// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package ingest turns version-control log output into commit records.
package ingest

import (
	"bufio"
	"io"
	"strings"

	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// maxLineBytes bounds a single log line. Long commit subjects are the usual
// offender.
const maxLineBytes = 1 << 20

// Block is one commit header with the files it touched.
type Block struct {
	Commit  store.Commit
	Touched []store.TouchedFile
}

// Parse reads repeated blocks of a header line "hash|author|date|subject"
// followed by change lines "<code>\t<path>" and calls fn once per block in
// input order. Blank lines are ignored. Lines that are neither a header nor
// a valid change line are skipped and counted. A malformed header line ends
// the open block, so the change lines after it are skipped as orphans. An
// error from fn stops the parse and is returned as is.
func Parse(r io.Reader, fn func(Block) error) (skipped int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var cur *Block
	flush := func() error {
		if cur == nil {
			return nil
		}
		b := *cur
		cur = nil
		return fn(b)
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if tf, ok := parseChange(line); ok {
			if cur == nil {
				skipped++
				continue
			}
			cur.Touched = append(cur.Touched, tf)
			continue
		}

		if c, ok := parseHeader(line); ok {
			if err := flush(); err != nil {
				return skipped, err
			}
			cur = &Block{Commit: c}
			continue
		}

		// A broken header ends the open block.
		if strings.Contains(line, "|") {
			if err := flush(); err != nil {
				return skipped, err
			}
		}
		skipped++
	}
	if err := sc.Err(); err != nil {
		return skipped, cmerr.Errorf(cmerr.CodeIngestSourceFailure, "reading commit log: %w", err)
	}
	return skipped, flush()
}

// parseHeader splits "hash|author|date|subject". The subject may itself
// contain '|'.
func parseHeader(line string) (store.Commit, bool) {
	parts := strings.SplitN(line, "|", 4)
	if len(parts) != 4 {
		return store.Commit{}, false
	}
	hash := strings.TrimSpace(parts[0])
	date := strings.TrimSpace(parts[2])
	if hash == "" || date == "" || strings.ContainsAny(hash, " \t") {
		return store.Commit{}, false
	}
	return store.Commit{
		Hash:    hash,
		Author:  strings.TrimSpace(parts[1]),
		Date:    date,
		Message: parts[3],
	}, true
}

// parseChange reads "<code>\t<path>". Rename lines carry two paths
// ("R100\told\tnew"); the new path is recorded.
func parseChange(line string) (store.TouchedFile, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return store.TouchedFile{}, false
	}
	ct, ok := store.ChangeTypeFromCode(fields[0])
	if !ok {
		return store.TouchedFile{}, false
	}

	path := fields[1]
	switch {
	case ct == store.ChangeRenamed && len(fields) == 3:
		path = fields[2]
	case len(fields) != 2:
		return store.TouchedFile{}, false
	}
	if path == "" {
		return store.TouchedFile{}, false
	}
	return store.TouchedFile{FilePath: path, ChangeType: ct}, true
}
