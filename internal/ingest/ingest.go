// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package ingest

import (
	"context"
	"io"
	"log/slog"

	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// Recorder persists one commit with its touched files.
type Recorder interface {
	RecordCommit(ctx context.Context, commit *store.Commit, touched []store.TouchedFile) (int64, error)
}

// Source produces raw commit-log text.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Stats summarises one ingestion run.
type Stats struct {
	Commits      int `json:"commits"`
	TouchedFiles int `json:"touchedFiles"`
	Skipped      int `json:"skipped"`
}

// Ingestor writes parsed commit blocks to a Recorder.
type Ingestor struct {
	rec    Recorder
	logger *slog.Logger
}

// New creates an Ingestor writing to rec.
func New(rec Recorder, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{rec: rec, logger: logger}
}

// Ingest parses r and records every commit block. Commits already present
// are left untouched apart from their touched-file rows, which are
// rewritten with the same values.
func (i *Ingestor) Ingest(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	skipped, err := Parse(r, func(b Block) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := i.rec.RecordCommit(ctx, &b.Commit, b.Touched); err != nil {
			return cmerr.Wrap(err, cmerr.CodeIngestWriteFailure, "recording commit", cmerr.FieldCommit(b.Commit.Hash))
		}
		stats.Commits++
		stats.TouchedFiles += len(b.Touched)
		return nil
	})
	stats.Skipped = skipped
	if err != nil {
		return stats, err
	}

	if stats.Skipped > 0 {
		i.logger.WarnContext(ctx, "skipped malformed commit log lines", "count", stats.Skipped)
	}
	i.logger.InfoContext(ctx, "commit log ingested",
		"commits", stats.Commits,
		"touched_files", stats.TouchedFiles,
	)
	return stats, nil
}

// IngestSource opens src and ingests its output.
func (i *Ingestor) IngestSource(ctx context.Context, src Source) (stats Stats, err error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return Stats{}, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return i.Ingest(ctx, rc)
}
