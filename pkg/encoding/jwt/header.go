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

package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// UnverifiedHeader is the token header read before the signature is
// checked. Nothing in it is trusted; it only selects the verification key
// and the one algorithm the token may be verified with.
type UnverifiedHeader struct {
	KeyID     string `json:"kid,omitempty"`
	Algorithm string `json:"alg,omitempty"`
	Type      string `json:"typ,omitempty"`
}

// ParseHeader decodes the header of tokenString without verifying its
// signature. The token must have three segments whose header and claims
// decode as JSON objects; anything else is ErrMalformedToken.
//
// A header without alg, or naming an algorithm this library does not
// implement, is not a structural failure. It is returned with the raw
// Algorithm value so the caller decides how to reject it.
func ParseHeader(tokenString string) (*UnverifiedHeader, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	// ErrTokenUnverifiable is only raised after both segments decoded, when
	// alg is missing or unknown.
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if token == nil || token.Header == nil {
		return nil, fmt.Errorf("%w: empty header", ErrMalformedToken)
	}

	header := &UnverifiedHeader{}
	header.KeyID, _ = token.Header["kid"].(string)
	header.Algorithm, _ = token.Header["alg"].(string)
	header.Type, _ = token.Header["typ"].(string)
	return header, nil
}
