// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show row counts of the graph store",
		Args:  userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(app *App) error {
				counts, err := app.Store.Counts(cmd.Context())
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return writeJSON(cmd.OutOrStdout(), counts)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "TABLE\tROWS")
				_, _ = fmt.Fprintf(tw, "projects\t%d\n", counts.Projects)
				_, _ = fmt.Fprintf(tw, "project_files\t%d\n", counts.ProjectFiles)
				_, _ = fmt.Fprintf(tw, "project_dependencies\t%d\n", counts.ProjectDependencies)
				_, _ = fmt.Fprintf(tw, "file_dependencies\t%d\n", counts.FileDependencies)
				_, _ = fmt.Fprintf(tw, "git_commits\t%d\n", counts.Commits)
				_, _ = fmt.Fprintf(tw, "touched_files\t%d\n", counts.TouchedFiles)
				return tw.Flush()
			})
		},
	}
}
