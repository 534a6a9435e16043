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
	"slices"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/encoding/jwt"
)

// Validate checks the semantics of verified claims and returns nil when
// all hold:
//
//   - exp is present and now <= exp
//   - aud is a single string equal to audience
//   - iss equals the configured issuer
//   - token_use is one of the allowed values
//
// It stops at the first failing condition and returns an *Error.
func (a *Authorizer) Validate(claims *jwt.VerifiedClaims, audience string) error {
	return a.validate(a.log, claims, audience)
}

func (a *Authorizer) validate(log logger.Logger, claims *jwt.VerifiedClaims, audience string) error {
	err := a.checkClaims(claims, audience)
	if err != nil {
		log.Debug("claim validation failed", logger.Error(err))
	}
	return err
}

func (a *Authorizer) checkClaims(claims *jwt.VerifiedClaims, audience string) error {
	exp, err := claims.Expiry()
	if err != nil {
		return deny(verificationReason(err), err)
	}
	if now := a.now().Unix(); now > exp {
		return denyf(ReasonTokenExpired, "token expired at %d, now %d", exp, now)
	}

	aud, err := claims.Audience()
	if err != nil {
		return deny(verificationReason(err), err)
	}
	if aud != audience {
		return denyf(ReasonClaimMismatch, "audience %q does not match app client", aud)
	}

	iss, err := claims.Issuer()
	if err != nil {
		return deny(verificationReason(err), err)
	}
	if iss != a.issuer {
		return denyf(ReasonClaimMismatch, "issuer %q does not match user pool", iss)
	}

	use, err := claims.TokenUse()
	if err != nil {
		return deny(verificationReason(err), err)
	}
	if !slices.Contains(a.tokenUse, use) {
		return denyf(ReasonClaimMismatch, "token_use %q is not accepted", use)
	}

	return nil
}
