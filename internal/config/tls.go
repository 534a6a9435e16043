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

package config

import (
	"crypto/tls"
	"fmt"
)

// DefaultTLSMinVersion is the lowest protocol version the local server
// accepts.
const DefaultTLSMinVersion = "TLS1.2"

// TLSConfig enables HTTPS on the local HTTP emulation. Both files must be
// set together.
type TLSConfig struct {
	CertFile   string `mapstructure:"cert_file" yaml:"cert_file,omitempty" json:"cert_file,omitempty"`
	KeyFile    string `mapstructure:"key_file" yaml:"key_file,omitempty" json:"key_file,omitempty"`
	MinVersion string `mapstructure:"min_version" yaml:"min_version,omitempty" json:"min_version,omitempty"`
}

// Enabled reports whether a certificate is configured.
func (cfg *TLSConfig) Enabled() bool {
	return cfg.CertFile != "" || cfg.KeyFile != ""
}

// Validate checks that certificate and key are configured together and
// that the minimum version is known.
func (cfg *TLSConfig) Validate() error {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.CertFile == "" {
		return fmt.Errorf("TLS cert_file is required when key_file is set")
	}
	if cfg.KeyFile == "" {
		return fmt.Errorf("TLS key_file is required when cert_file is set")
	}
	if _, err := parseTLSVersion(cfg.MinVersion); err != nil {
		return err
	}
	return nil
}

// LoadTLSConfig loads the certificate pair. It returns nil when TLS is not
// enabled.
func (cfg *TLSConfig) LoadTLSConfig() (*tls.Config, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	minVersion, _ := parseTLSVersion(cfg.MinVersion)
	// #nosec G402 - MinVersion defaults to TLS 1.2 and never goes lower
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
	}, nil
}

// parseTLSVersion converts a version name to a tls constant. Empty means
// the default.
func parseTLSVersion(version string) (uint16, error) {
	switch version {
	case "", "TLS1.2":
		return tls.VersionTLS12, nil
	case "TLS1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS min_version %q (must be TLS1.2 or TLS1.3)", version)
	}
}
