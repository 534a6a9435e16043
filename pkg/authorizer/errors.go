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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/encoding/jwt"
)

// Reason identifies why a credential was denied. Reasons are for logs and
// metrics only; callers of the authorizer always receive the same opaque
// Deny policy.
type Reason string

const (
	ReasonMissingCredential    Reason = "missing_credential"
	ReasonMalformedToken       Reason = "malformed_token"
	ReasonKeyResolutionFailure Reason = "key_resolution_failure"
	ReasonMissingAlgorithm     Reason = "missing_algorithm"
	ReasonSignatureInvalid     Reason = "signature_invalid"
	ReasonClaimMissing         Reason = "claim_missing"
	ReasonClaimMismatch        Reason = "claim_mismatch"
	ReasonTokenExpired         Reason = "token_expired"
)

// String returns the string representation of the Reason.
func (r Reason) String() string {
	return string(r)
}

// Error is a denial raised by one pipeline step.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func deny(reason Reason, err error) *Error {
	return &Error{Reason: reason, Err: err}
}

func denyf(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// ReasonOf returns the denial reason carried by err. Errors that did not
// come from the pipeline are reported as ReasonSignatureInvalid so an
// unexpected failure still denies.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonSignatureInvalid
}

// verificationReason maps a jwt verification or claim accessor error to a
// Reason.
func verificationReason(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrMissingAlgorithm):
		return ReasonMissingAlgorithm
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonTokenExpired
	case errors.Is(err, jwt.ErrClaimMissing):
		return ReasonClaimMissing
	case errors.Is(err, jwt.ErrClaimMismatch):
		return ReasonClaimMismatch
	case errors.Is(err, jwt.ErrMalformedToken):
		return ReasonMalformedToken
	default:
		return ReasonSignatureInvalid
	}
}
