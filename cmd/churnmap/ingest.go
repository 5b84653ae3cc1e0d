// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/churnmap/internal/ingest"
	"github.com/sigil-dev/churnmap/internal/workspace"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

func newIngestCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Record commit history",
		Long: "Run git log in the repository (or read an equivalent log from --file) and record every " +
			"commit with the files it touched. Commits already stored are left unchanged.",
		Args: userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, _ := cmd.Flags().GetString("repo")
			limit, _ := cmd.Flags().GetInt("limit")
			file, _ := cmd.Flags().GetString("file")
			if limit < 0 {
				return cmerr.New(cmerr.CodeCLIInputInvalid, "--limit must not be negative")
			}

			var src ingest.Source = ingest.GitLogSource{Root: repo, Limit: limit}
			if file != "" {
				src = fileSource{path: file, stdin: cmd.InOrStdin()}
			}

			return withApp(cmd, v, func(app *App) error {
				unlock, err := workspace.Lock(app.Config.DataDir)
				if err != nil {
					return err
				}
				defer unlock()

				stats, err := ingest.New(app.Store, app.Logger).IngestSource(cmd.Context(), src)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return writeJSON(cmd.OutOrStdout(), stats)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d commits touching %d files (%d lines skipped)\n",
					stats.Commits, stats.TouchedFiles, stats.Skipped)
				return err
			})
		},
	}

	cmd.Flags().String("repo", ".", "repository root to run git log in")
	cmd.Flags().Int("limit", 0, "only read the N most recent commits (0 reads all)")
	cmd.Flags().String("file", "", "read a name-status log from this file instead of running git (- for stdin)")

	return cmd
}

// fileSource reads a pre-recorded log from a file or stdin.
type fileSource struct {
	path  string
	stdin io.Reader
}

func (f fileSource) Open(context.Context) (io.ReadCloser, error) {
	if f.path == "-" {
		return io.NopCloser(f.stdin), nil
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, cmerr.Errorf(cmerr.CodeIngestSourceFailure, "opening commit log %s: %w", f.path, err)
	}
	return fh, nil
}
