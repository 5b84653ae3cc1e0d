// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/churnmap/internal/metrics"
)

func newProjectsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Show windowed metrics for every project",
		Long: "For each project, count the window commits touching it, its transitive dependents, " +
			"their product (load), and the window commits that affected it directly or through a dependency.",
		Args: userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, _ := cmd.Flags().GetInt("window")
			if err := metrics.ValidateWindow(window); err != nil {
				return err
			}
			return withApp(cmd, v, func(app *App) error {
				report, err := app.Engine.ProjectMetrics(cmd.Context(), window)
				if err != nil {
					return err
				}
				if len(report.DegradedProjects) > 0 {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: dependents unavailable for %s; counted as 0\n",
						strings.Join(report.DegradedProjects, ", "))
				}

				if v.GetBool("json") {
					degraded := report.DegradedProjects
					if degraded == nil {
						degraded = []string{}
					}
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"window":           report.Window,
						"commits":          report.Commits,
						"projects":         report.List(),
						"degradedProjects": degraded,
					})
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "PROJECT\tTOUCHED\tDEPENDENTS\tLOAD\tAFFECTED")
				for _, m := range report.List() {
					_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n",
						m.Name, m.TouchedCount, m.DependentCount, m.Load, m.AffectedCount)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().Int("window", 0, "number of most recent commits (0 uses metrics.window)")

	return cmd
}
