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
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifiedClaims is the claim set of a token whose signature verified
// against the key resolved for its kid. It is only constructed by Verify.
type VerifiedClaims struct {
	keyID     string
	algorithm string
	claims    jwt.MapClaims
}

// KeyID returns the kid of the key the signature verified with.
func (c *VerifiedClaims) KeyID() string {
	return c.keyID
}

// Algorithm returns the algorithm the signature verified with.
func (c *VerifiedClaims) Algorithm() string {
	return c.algorithm
}

// Claim returns the decoded value of a claim and whether it is present.
func (c *VerifiedClaims) Claim(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.claims[name]
	return v, ok
}

// Expiry returns exp in whole seconds since the epoch. An absent, null or
// zero exp is ErrClaimMissing; a non-numeric exp is ErrClaimMismatch.
func (c *VerifiedClaims) Expiry() (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("%w: exp", ErrClaimMissing)
	}
	exp, err := c.claims.GetExpirationTime()
	if err != nil {
		return 0, fmt.Errorf("%w: exp is not a numeric date", ErrClaimMismatch)
	}
	if exp == nil || exp.Unix() == 0 {
		return 0, fmt.Errorf("%w: exp", ErrClaimMissing)
	}
	return exp.Unix(), nil
}

// Audience returns aud when it is a single string. An array audience is
// ErrClaimMismatch even if it contains only one entry.
func (c *VerifiedClaims) Audience() (string, error) {
	return c.stringClaim("aud")
}

// Issuer returns iss.
func (c *VerifiedClaims) Issuer() (string, error) {
	return c.stringClaim("iss")
}

// TokenUse returns the Cognito token_use claim.
func (c *VerifiedClaims) TokenUse() (string, error) {
	return c.stringClaim("token_use")
}

// Subject returns sub, or an empty string when it is absent.
func (c *VerifiedClaims) Subject() string {
	sub, _ := c.stringClaim("sub")
	return sub
}

func (c *VerifiedClaims) stringClaim(name string) (string, error) {
	raw, ok := c.Claim(name)
	if !ok || isEmpty(raw) {
		return "", fmt.Errorf("%w: %s", ErrClaimMissing, name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, not a string", ErrClaimMismatch, name, raw)
	}
	return s, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// VerifyOptions configures a Verifier.
type VerifyOptions struct {
	// Audience, when set, must be one of the token's audiences.
	Audience string

	// Leeway is added to exp (and subtracted from nbf and iat).
	Leeway time.Duration

	// Now overrides the clock used for time-based claims.
	Now func() time.Time
}

// Verifier checks token signatures and decodes claims. It is safe for
// concurrent use.
type Verifier struct {
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewVerifier creates a new JWT verifier
func NewVerifier(opts *VerifyOptions) *Verifier {
	v := &Verifier{now: time.Now}
	if opts != nil {
		v.audience = opts.Audience
		v.leeway = opts.Leeway
		if opts.Now != nil {
			v.now = opts.Now
		}
	}
	return v
}

// Verify checks the signature of tokenString with key using exactly
// header.Algorithm, requires exp, checks the audience when configured and
// returns the decoded claims.
//
// header must be the result of ParseHeader on the same token; a token
// whose kid differs from header.KeyID is rejected.
func (v *Verifier) Verify(tokenString string, header *UnverifiedHeader, key crypto.PublicKey) (*VerifiedClaims, error) {
	if header == nil || header.Algorithm == "" {
		return nil, ErrMissingAlgorithm
	}
	if key == nil {
		return nil, fmt.Errorf("%w: no verification key", ErrSignatureInvalid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{header.Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != header.KeyID {
			return nil, fmt.Errorf("kid %q does not match resolved key %q", kid, header.KeyID)
		}
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, ErrSignatureInvalid
	}

	return &VerifiedClaims{
		keyID:     header.KeyID,
		algorithm: header.Algorithm,
		claims:    claims,
	}, nil
}

// classify maps golang-jwt errors onto this package's sentinels. Claim
// errors are checked first because the library joins them with
// ErrTokenInvalidClaims.
func classify(err error) error {
	var sentinel error
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		sentinel = ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		sentinel = ErrClaimMissing
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrInvalidType):
		sentinel = ErrClaimMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		sentinel = ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrInvalidKeyType),
		errors.Is(err, jwt.ErrInvalidKey):
		sentinel = ErrSignatureInvalid
	default:
		sentinel = ErrMalformedToken
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
