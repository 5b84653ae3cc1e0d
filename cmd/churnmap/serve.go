// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/churnmap/internal/server"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metrics API over HTTP",
		Long:  "Load configuration, open the graph store, and serve the metrics and split endpoints until interrupted.",
		Args:  userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				v.Set("server.listen", listen)
			}
			return withApp(cmd, v, func(app *App) error {
				srv, err := newServer(app)
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return srv.Start(ctx)
			})
		},
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

// newServer wires the HTTP server for app.
func newServer(app *App) (*server.Server, error) {
	services, err := server.NewServices(app.Engine, app.Optimizer, app.Store, app.SplitDefaults())
	if err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeCLISetupFailure, "creating services")
	}

	srv, err := server.New(server.Config{
		ListenAddr:  app.Config.Server.Listen,
		CORSOrigins: app.Config.Server.CORSOrigins,
		Version:     version,
		Logger:      app.Logger,
	})
	if err != nil {
		return nil, cmerr.Wrap(err, cmerr.CodeCLISetupFailure, "creating server")
	}
	srv.RegisterServices(services)
	return srv, nil
}

