// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/churnmap/internal/config"
	"github.com/sigil-dev/churnmap/internal/graph"
	"github.com/sigil-dev/churnmap/internal/logging"
	"github.com/sigil-dev/churnmap/internal/metrics"
	"github.com/sigil-dev/churnmap/internal/split"
	"github.com/sigil-dev/churnmap/internal/store"
	_ "github.com/sigil-dev/churnmap/internal/store/sqlite" // register sqlite backend
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// App holds all wired subsystems for one command invocation.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     store.GraphStore
	Resolver  *graph.Resolver
	Engine    *metrics.Engine
	Optimizer *split.Optimizer

	logCloser io.Closer
}

// WireApp loads configuration from v and creates every subsystem.
func WireApp(v *viper.Viper, stderr io.Writer) (*App, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.Setup(cfg.Logging, stderr, v.GetBool("verbose"))
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		_ = logCloser.Close()
		return nil, cmerr.Errorf(cmerr.CodeCLISetupFailure, "creating data directory: %w", err)
	}

	gs, err := store.NewGraphStore(&store.StorageConfig{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
	}, cfg.DataDir)
	if err != nil {
		_ = logCloser.Close()
		return nil, cmerr.Wrap(err, cmerr.CodeCLISetupFailure, "opening graph store")
	}

	resolver := graph.NewResolver(gs,
		graph.WithBatchSize(cfg.Graph.BatchSize),
		graph.WithLogger(logger),
	)
	engine := metrics.NewEngine(gs, resolver,
		metrics.WithDefaultWindow(cfg.Metrics.Window),
		metrics.WithLogger(logger),
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     gs,
		Resolver:  resolver,
		Engine:    engine,
		Optimizer: split.NewOptimizer(split.FromEngine(engine), logger),
		logCloser: logCloser,
	}, nil
}

// SplitDefaults returns the configured optimizer options.
func (a *App) SplitDefaults() split.Options {
	return split.Options{
		Seed:          a.Config.Split.Seed,
		MaxIterations: a.Config.Split.MaxIterations,
	}
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}

// withApp wires an App for the command, runs fn, and closes the App.
func withApp(cmd *cobra.Command, v *viper.Viper, fn func(*App) error) (err error) {
	app, err := WireApp(v, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(app)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
