// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cognito-authorizer.
//
// go-cognito-authorizer is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-cognito-authorizer/internal/config"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/authorizer"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/jwks"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// OutputFormat controls output formatting (text, json, yaml)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: string(OutputFormatText),
	}
}

// Load reads and validates the authorizer configuration. --verbose turns
// on debug logging regardless of VERBOSE.
func (c *Config) Load() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigFile)
	if err != nil {
		return nil, err
	}
	if c.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// App is the wired authorizer: configuration, logger, key source and the
// pipeline built on them.
type App struct {
	Config     *config.Config
	Logger     logger.Logger
	Keys       jwks.KeySource
	Authorizer *authorizer.Authorizer
}

// NewApp loads the configuration and wires the authorizer. Logs go to
// logOut.
func (c *Config) NewApp(logOut io.Writer) (*App, error) {
	cfg, err := c.Load()
	if err != nil {
		return nil, err
	}

	level := logger.LevelInfo
	if cfg.Verbose {
		level = logger.LevelDebug
	}
	log := logger.NewSlogAdapter(&logger.SlogConfig{
		Level:  level,
		Format: cfg.LogFormat,
		Output: logOut,
	})

	keys, err := newKeySource(cfg, log)
	if err != nil {
		return nil, err
	}

	resource, err := cfg.ResourceARN()
	if err != nil {
		return nil, err
	}

	authz, err := authorizer.New(authorizer.Config{
		ClientID: cfg.AppClientID,
		Issuer:   cfg.IssuerURL(),
		Resource: resource,
	}, keys, authorizer.WithLogger(log))
	if err != nil {
		return nil, err
	}

	return &App{
		Config:     cfg,
		Logger:     log,
		Keys:       keys,
		Authorizer: authz,
	}, nil
}

// newKeySource returns a static set when JWKS_FILE is configured and a
// caching resolver over the issuer's endpoint otherwise.
func newKeySource(cfg *config.Config, log logger.Logger) (jwks.KeySource, error) {
	if cfg.JWKS.File != "" {
		keys, err := jwks.LoadFile(cfg.JWKS.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load key set file: %w", err)
		}
		log.Info("using static key set", logger.String("file", cfg.JWKS.File))
		return keys, nil
	}

	return jwks.NewCachingResolver(&jwks.Options{
		URL:              cfg.JWKSURL(),
		CacheTTL:         cfg.JWKS.CacheTTL,
		FetchTimeout:     cfg.JWKS.FetchTimeout,
		RefreshRateLimit: cfg.JWKS.RefreshRateLimit,
		Logger:           log,
	})
}

// warmKeys fetches the key set ahead of the first request. Failure is
// logged, not fatal: every lookup retries the fetch.
func (a *App) warmKeys(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, a.Config.JWKS.FetchTimeout)
	defer cancel()
	keys, err := a.Keys.Keys(ctx)
	if err != nil {
		a.Logger.Warn("initial key set fetch failed", logger.Error(err))
		return
	}
	a.Logger.Debug("key set loaded", logger.Int("keys", len(keys)))
}
