// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/churnmap/internal/workspace"
)

func newSyncCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <workspace-document>",
		Short: "Sync the project graph from a workspace document",
		Long: "Load a YAML or JSON workspace document listing projects, their files and dependencies, " +
			"and replace the stored graph with it in one transaction.",
		Args: userArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			doc, err := workspace.LoadDocument(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, v, func(app *App) error {
				stats, err := workspace.NewSyncer(app.Store, app.Config.DataDir, app.Logger).
					Sync(cmd.Context(), root, doc, nil)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return writeJSON(cmd.OutOrStdout(), stats)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(),
					"Synced %d projects, %d files, %d project dependencies, %d file dependencies\n",
					stats.Projects, stats.Files, stats.ProjectDependencies, stats.FileDependencies)
				return err
			})
		},
	}

	cmd.Flags().String("root", "", "workspace root that absolute paths in the document are made relative to")

	return cmd
}
