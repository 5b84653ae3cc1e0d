// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// CHURNMAP_METRICS_WINDOW.
const EnvPrefix = "CHURNMAP"

// Config is the top-level churnmap configuration.
type Config struct {
	DataDir string        `mapstructure:"data_dir"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Graph   GraphConfig   `mapstructure:"graph"`
	Split   SplitConfig   `mapstructure:"split"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// MetricsConfig controls the commit window.
type MetricsConfig struct {
	Window int `mapstructure:"window"`
}

// GraphConfig controls dependency traversal.
type GraphConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

// SplitConfig controls the split optimizer. A zero seed is replaced by a
// time-derived one per run; zero max iterations means unbounded.
type SplitConfig struct {
	Seed          uint64 `mapstructure:"seed"`
	MaxIterations int    `mapstructure:"max_iterations"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LoggingConfig controls the process logger. An empty File logs to stderr.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".churnmap")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "")
	v.SetDefault("metrics.window", 100)
	v.SetDefault("graph.batch_size", 50)
	v.SetDefault("split.seed", 0)
	v.SetDefault("split.max_iterations", 0)
	v.SetDefault("server.listen", "127.0.0.1:18790")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", false)
}

// SetupEnv binds CHURNMAP_* environment variables to nested keys.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix CHURNMAP_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, cmerr.Errorf(cmerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, cmerr.Errorf(cmerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateAnalysis()...)
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite], got %q",
			c.Storage.Backend,
		))
	}

	if c.DataDir == "" && c.Storage.Path == "" {
		errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
			"config: one of data_dir or storage.path must be set"))
	}

	return errs
}

func (c *Config) validateAnalysis() []error {
	var errs []error

	if c.Metrics.Window <= 0 {
		errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
			"config: metrics.window must be greater than 0, got %d",
			c.Metrics.Window,
		))
	}

	if c.Graph.BatchSize <= 0 {
		errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
			"config: graph.batch_size must be greater than 0, got %d",
			c.Graph.BatchSize,
		))
	}

	if c.Split.MaxIterations < 0 {
		errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
			"config: split.max_iterations must not be negative, got %d",
			c.Split.MaxIterations,
		))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Server.Listen)
		if err != nil {
			errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
				"config: server.listen must be a valid host:port address, got %q: %w",
				c.Server.Listen, err,
			))
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
					"config: server.listen port must be a number, got %q",
					portStr,
				))
			} else if port < 1 || port > 65535 {
				errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
					"config: server.listen port must be between 1 and 65535, got %d",
					port,
				))
			}
		}
	}

	for i, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
				"config: server.cors_origins[%d] must be an absolute origin or \"*\", got %q",
				i, origin,
			))
		}
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
			"config: logging.level must be one of [debug, info, warn, error], got %q",
			c.Logging.Level,
		))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
			"config: logging.format must be one of [text, json], got %q",
			c.Logging.Format,
		))
	}

	if c.Logging.File != "" && c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, cmerr.Errorf(cmerr.CodeConfigValidateInvalidValue,
			"config: logging.max_size_mb must be greater than 0 when logging.file is set, got %d",
			c.Logging.MaxSizeMB,
		))
	}

	return errs
}
