// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/churnmap/internal/graph"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

func newDependentsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dependents <project> | --files <path>...",
		Short: "List transitive dependents of a project, or direct dependents of files",
		Long: "With a project name, print every project that depends on it directly or transitively " +
			"(--dependencies reverses the direction). With --files, print for each path the projects " +
			"whose files import it.",
		Args: userArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, _ := cmd.Flags().GetBool("files")
			reverse, _ := cmd.Flags().GetBool("dependencies")
			if !files && len(args) != 1 {
				return cmerr.Errorf(cmerr.CodeCLIInputInvalid, "accepts 1 project name, received %d", len(args))
			}

			return withApp(cmd, v, func(app *App) error {
				if files {
					return printFileDependents(cmd, v, app, args)
				}

				name := args[0]
				if _, err := app.Store.GetProject(cmd.Context(), name); err != nil {
					return err
				}
				dir := graph.Dependents
				if reverse {
					dir = graph.Dependencies
				}
				res := app.Resolver.Resolve(cmd.Context(), name, dir)
				if res.Degraded {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s lookup failed; showing an empty result\n", dir)
				}

				projects := res.Projects
				if projects == nil {
					projects = []string{}
				}
				if v.GetBool("json") {
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"project":   name,
						"direction": dir.String(),
						"projects":  projects,
						"degraded":  res.Degraded,
					})
				}
				for _, p := range projects {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), p); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().Bool("dependencies", false, "list what the project depends on instead")
	cmd.Flags().Bool("files", false, "treat arguments as file paths")

	return cmd
}

func printFileDependents(cmd *cobra.Command, v *viper.Viper, app *App, paths []string) error {
	deps, err := app.Engine.FileDependents(cmd.Context(), paths)
	if err != nil {
		return err
	}
	if v.GetBool("json") {
		return writeJSON(cmd.OutOrStdout(), deps)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FILE\tDEPENDENT PROJECTS")
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] || p == "" {
			continue
		}
		seen[p] = true
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", p, strings.Join(deps[p], ","))
	}
	return tw.Flush()
}
