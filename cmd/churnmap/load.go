// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/churnmap/internal/metrics"
)

func newLoadCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <path>...",
		Short: "Estimate the load of a file set",
		Long: "Count the window commits touching any of the files and multiply by the number of " +
			"projects that depend on them directly or transitively.",
		Args: userArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, _ := cmd.Flags().GetInt("window")
			if err := metrics.ValidateWindow(window); err != nil {
				return err
			}
			return withApp(cmd, v, func(app *App) error {
				load, err := app.Engine.EstimatedLoad(cmd.Context(), args, window)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return writeJSON(cmd.OutOrStdout(), map[string]int{"load": load})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), load)
				return err
			})
		},
	}

	cmd.Flags().Int("window", 0, "number of most recent commits (0 uses metrics.window)")

	return cmd
}
