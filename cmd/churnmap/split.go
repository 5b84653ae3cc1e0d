// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/churnmap/internal/metrics"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

func newSplitCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <path>...",
		Short: "Suggest a two-way split of a file set",
		Long: "Partition the files into two groups by hill climbing from a seeded random split, " +
			"moving one file at a time while the summed estimated load of the groups decreases. " +
			"Files no project imports are placed in group A.",
		Args: userArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, _ := cmd.Flags().GetInt("window")
			if err := metrics.ValidateWindow(window); err != nil {
				return err
			}
			maxIter, _ := cmd.Flags().GetInt("max-iterations")
			if maxIter < 0 {
				return cmerr.New(cmerr.CodeCLIInputInvalid, "--max-iterations must not be negative")
			}

			return withApp(cmd, v, func(app *App) error {
				opts := app.SplitDefaults()
				opts.Window = window
				if cmd.Flags().Changed("seed") {
					opts.Seed, _ = cmd.Flags().GetUint64("seed")
				}
				if cmd.Flags().Changed("max-iterations") {
					opts.MaxIterations = maxIter
				}

				res, err := app.Optimizer.Suggest(cmd.Context(), args, opts)
				if err != nil {
					return err
				}
				if v.GetBool("json") {
					return writeJSON(cmd.OutOrStdout(), res)
				}

				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Group A (load %d): %s\n", res.LoadA, strings.Join(res.GroupA, " "))
				_, _ = fmt.Fprintf(out, "Group B (load %d): %s\n", res.LoadB, strings.Join(res.GroupB, " "))
				_, err = fmt.Fprintf(out, "Total %d (initial %d) after %d moves, seed %d\n",
					res.Total, res.InitialTotal, res.Iterations, res.Seed)
				if res.Capped {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "warning: stopped at the iteration cap before reaching a local optimum")
				}
				return err
			})
		},
	}

	cmd.Flags().Int("window", 0, "number of most recent commits (0 uses metrics.window)")
	cmd.Flags().Uint64("seed", 0, "seed for the initial split (default split.seed; 0 picks one)")
	cmd.Flags().Int("max-iterations", 0, "cap on applied moves (default split.max_iterations; 0 is unbounded)")

	return cmd
}
