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

package authorizer

import (
	"time"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
)

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authorizer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(a *Authorizer) {
		if log != nil {
			a.log = log
		}
	}
}

// WithAllowedTokenUse replaces the accepted token_use values. The default
// accepts only id tokens.
func WithAllowedTokenUse(uses ...string) Option {
	return func(a *Authorizer) {
		if len(uses) > 0 {
			a.tokenUse = append([]string(nil), uses...)
		}
	}
}

// WithMetrics enables or disables Prometheus recording of decisions.
func WithMetrics(enabled bool) Option {
	return func(a *Authorizer) {
		a.metrics = enabled
	}
}
