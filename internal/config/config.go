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

// Package config loads the authorizer's startup configuration from the
// environment and an optional YAML or JSON file. Values are read once;
// the resulting Config is never mutated.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/jwks"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/policy"
	"github.com/spf13/viper"
)

// ConfigFileEnv names the environment variable holding an optional
// configuration file path.
const ConfigFileEnv = "AUTHORIZER_CONFIG"

// DefaultListenAddress is where the local HTTP emulation listens.
const DefaultListenAddress = ":8080"

// ErrMissingRequired is returned when a required setting has no value.
var ErrMissingRequired = errors.New("missing required configuration")

// Config is the complete authorizer configuration.
type Config struct {
	Region      string `mapstructure:"region" yaml:"region" json:"region"`
	AccountID   string `mapstructure:"account_id" yaml:"account_id" json:"account_id"`
	APIID       string `mapstructure:"api_id" yaml:"api_id" json:"api_id"`
	UserPoolID  string `mapstructure:"user_pool_id" yaml:"user_pool_id" json:"user_pool_id"`
	AppClientID string `mapstructure:"app_client_id" yaml:"app_client_id" json:"app_client_id"`

	// Verbose lowers the log level to debug.
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`

	JWKS   JWKSConfig   `mapstructure:"jwks" yaml:"jwks" json:"jwks"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// JWKSConfig controls signing key resolution.
type JWKSConfig struct {
	// URL overrides the key set endpoint derived from the user pool.
	URL string `mapstructure:"url" yaml:"url,omitempty" json:"url,omitempty"`
	// File serves a fixed key set from disk instead of fetching one.
	File             string        `mapstructure:"file" yaml:"file,omitempty" json:"file,omitempty"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl" json:"cache_ttl"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout" json:"fetch_timeout"`
	RefreshRateLimit time.Duration `mapstructure:"refresh_rate_limit" yaml:"refresh_rate_limit" json:"refresh_rate_limit"`
}

// ServerConfig controls the local HTTP emulation.
type ServerConfig struct {
	Listen    string          `mapstructure:"listen" yaml:"listen" json:"listen"`
	TLS       TLSConfig       `mapstructure:"tls" yaml:"tls" json:"tls"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig throttles /authorize per client IP. Zero disables it.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int `mapstructure:"burst" yaml:"burst" json:"burst"`

	// TrustForwarded keys clients by X-Forwarded-For. Only safe behind a
	// proxy that sets it.
	TrustForwarded bool `mapstructure:"trust_forwarded" yaml:"trust_forwarded" json:"trust_forwarded"`
}

// bindings maps configuration keys to the environment variables that set
// them.
var bindings = []struct {
	key string
	env string
}{
	{"region", "API_REGION"},
	{"account_id", "ACCOUNT_ID"},
	{"api_id", "API_ID"},
	{"user_pool_id", "COGNITO_USER_POOL_ID"},
	{"app_client_id", "COGNITO_APP_CLIENT_ID"},
	{"verbose", "VERBOSE"},
	{"log_format", "LOG_FORMAT"},
	{"jwks.url", "JWKS_URL"},
	{"jwks.file", "JWKS_FILE"},
	{"jwks.cache_ttl", "JWKS_CACHE_TTL"},
	{"jwks.fetch_timeout", "JWKS_FETCH_TIMEOUT"},
	{"jwks.refresh_rate_limit", "JWKS_REFRESH_RATE_LIMIT"},
	{"server.listen", "LISTEN_ADDRESS"},
	{"server.tls.cert_file", "TLS_CERT_FILE"},
	{"server.tls.key_file", "TLS_KEY_FILE"},
	{"server.tls.min_version", "TLS_MIN_VERSION"},
	{"server.rate_limit.requests_per_minute", "RATE_LIMIT_RPM"},
	{"server.rate_limit.burst", "RATE_LIMIT_BURST"},
	{"server.rate_limit.trust_forwarded", "RATE_LIMIT_TRUST_FORWARDED"},
}

// Load reads the configuration. path names an optional YAML or JSON file;
// when empty, AUTHORIZER_CONFIG is consulted. Environment variables
// override file values. The result is validated before it is returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}

	v := viper.New()
	v.SetDefault("verbose", false)
	v.SetDefault("log_format", logger.FormatText)
	v.SetDefault("jwks.cache_ttl", jwks.DefaultCacheTTL)
	v.SetDefault("jwks.fetch_timeout", jwks.DefaultFetchTimeout)
	v.SetDefault("jwks.refresh_rate_limit", jwks.DefaultRefreshRateLimit)
	v.SetDefault("server.listen", DefaultListenAddress)
	v.SetDefault("server.tls.min_version", DefaultTLSMinVersion)

	for _, b := range bindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", b.env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks required values, durations and formats. Every missing
// required setting is reported at once, wrapped in ErrMissingRequired.
func (c *Config) Validate() error {
	required := []struct {
		env   string
		value string
	}{
		{"API_REGION", c.Region},
		{"ACCOUNT_ID", c.AccountID},
		{"API_ID", c.APIID},
		{"COGNITO_USER_POOL_ID", c.UserPoolID},
		{"COGNITO_APP_CLIENT_ID", c.AppClientID},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	if _, err := c.ResourceARN(); err != nil {
		return err
	}

	switch c.LogFormat {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.LogFormat)
	}

	if c.JWKS.CacheTTL <= 0 {
		return fmt.Errorf("jwks cache ttl must be positive, got %s", c.JWKS.CacheTTL)
	}
	if c.JWKS.FetchTimeout <= 0 {
		return fmt.Errorf("jwks fetch timeout must be positive, got %s", c.JWKS.FetchTimeout)
	}
	if c.JWKS.RefreshRateLimit <= 0 {
		return fmt.Errorf("jwks refresh rate limit must be positive, got %s", c.JWKS.RefreshRateLimit)
	}

	if c.Server.RateLimit.RequestsPerMinute < 0 || c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}

	return c.Server.TLS.Validate()
}

// IssuerURL returns the Cognito issuer tokens must carry in iss.
func (c *Config) IssuerURL() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// JWKSURL returns the key set endpoint: the override when set, otherwise
// the user pool's well-known document.
func (c *Config) JWKSURL() string {
	if c.JWKS.URL != "" {
		return c.JWKS.URL
	}
	return c.IssuerURL() + "/.well-known/jwks.json"
}

// ResourceARN returns the execute-api resource granted on Allow.
func (c *Config) ResourceARN() (string, error) {
	return policy.ResourceARN(c.Region, c.AccountID, c.APIID)
}
