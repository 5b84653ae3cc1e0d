// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/churnmap/internal/config"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// NewRootCmd creates the root churnmap command with all subcommands registered.
// Each root owns its own Viper instance so commands built in the same process
// do not share configuration.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "churnmap",
		Short:         "churnmap: churn-weighted dependency metrics",
		Long:          "churnmap combines a workspace's project dependency graph with its commit history to report per-project load and suggest how to split files across build units.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd, v)
		},
	}

	// Global flags. These map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().Bool("json", false, "write JSON instead of tables")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cmerr.Errorf(cmerr.CodeCLIInputInvalid, "%s: %w", cmd.CommandPath(), err)
	})

	root.AddCommand(
		newSyncCmd(v),
		newIngestCmd(v),
		newProjectsCmd(v),
		newDependentsCmd(v),
		newLoadCmd(v),
		newSplitCmd(v),
		newStatusCmd(v),
		newServeCmd(v),
		newVersionCmd(),
	)

	return root
}

// initViper sets up v with defaults, env bindings, flag bindings, and an
// optional config file so the standard precedence (flag > env > file >
// defaults) is handled uniformly.
func initViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return cmerr.Errorf(cmerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted so Viper never matches the bare
		// ./churnmap binary as a config file.
		v.SetConfigName("churnmap")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/churnmap")
		// No config file is fine. Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return cmerr.Errorf(cmerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return cmerr.Errorf(cmerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{"data_dir": "data-dir", "verbose": "verbose", "json": "json"} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return cmerr.Errorf(cmerr.CodeCLISetupFailure, "binding %s flag: %w", flag, err)
		}
	}

	return nil
}

// userArgs marks argument-count failures as caller mistakes.
func userArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return cmerr.Errorf(cmerr.CodeCLIInputInvalid, "%s: %w", cmd.CommandPath(), err)
		}
		return nil
	}
}
