// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

//go:embed churnmap.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/churnmap/churnmap.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", cmerr.Errorf(cmerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "churnmap", "churnmap.yaml"), nil
}

// BootstrapConfig writes the default commented config to the default path if
// it does not already exist. Returns the path written, or empty string if the
// file already existed or could not be written. Failures are logged at debug
// level and never fatal.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	return bootstrapAt(cfgPath)
}

func bootstrapAt(cfgPath string) string {
	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}
