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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm represents supported JWT signing algorithms
type Algorithm string

const (
	RS256 Algorithm = "RS256" // RSASSA-PKCS1-v1_5 using SHA-256
	RS384 Algorithm = "RS384" // RSASSA-PKCS1-v1_5 using SHA-384
	RS512 Algorithm = "RS512" // RSASSA-PKCS1-v1_5 using SHA-512
	ES256 Algorithm = "ES256" // ECDSA using P-256 and SHA-256
	ES384 Algorithm = "ES384" // ECDSA using P-384 and SHA-384
	ES512 Algorithm = "ES512" // ECDSA using P-521 and SHA-512
	EdDSA Algorithm = "EdDSA" // EdDSA signature algorithms
	PS256 Algorithm = "PS256" // RSASSA-PSS using SHA-256
	PS384 Algorithm = "PS384" // RSASSA-PSS using SHA-384
	PS512 Algorithm = "PS512" // RSASSA-PSS using SHA-512
)

var (
	// ErrMalformedToken indicates the token is not a structurally valid JWT.
	ErrMalformedToken = errors.New("malformed token")

	// ErrMissingAlgorithm indicates the token header carries no alg.
	ErrMissingAlgorithm = errors.New("token header has no algorithm")

	// ErrSignatureInvalid indicates the signature did not verify with the
	// resolved key and the header algorithm.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrTokenExpired indicates the exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")

	// ErrClaimMissing indicates a required claim is absent.
	ErrClaimMissing = errors.New("required claim missing")

	// ErrClaimMismatch indicates a claim is present but has the wrong value
	// or type.
	ErrClaimMismatch = errors.New("claim mismatch")
)

// Signer signs JWT tokens using cryptographic keys
type Signer struct{}

// NewSigner creates a new JWT signer
func NewSigner() *Signer {
	return &Signer{}
}

// Sign creates and signs a JWT with the given private key and claims.
// The signing algorithm is automatically determined from the key type.
func (s *Signer) Sign(key crypto.PrivateKey, claims jwt.Claims) (string, error) {
	alg, err := AlgorithmForKey(key)
	if err != nil {
		return "", err
	}
	return s.SignWithHeader(key, claims, alg, nil)
}

// SignWithKID creates and signs a JWT with a Key ID in the header.
//
// Example:
//
//	token, err := signer.SignWithKID(privateKey, claims, "abcd1234")
func (s *Signer) SignWithKID(key crypto.PrivateKey, claims jwt.Claims, kid string) (string, error) {
	alg, err := AlgorithmForKey(key)
	if err != nil {
		return "", err
	}
	return s.SignWithHeader(key, claims, alg, map[string]any{"kid": kid})
}

// SignWithHeader signs claims with alg and merges header into the token
// header. A nil value in header removes that member.
func (s *Signer) SignWithHeader(key crypto.PrivateKey, claims jwt.Claims, alg Algorithm, header map[string]any) (string, error) {
	method := jwt.GetSigningMethod(string(alg))
	if method == nil {
		return "", fmt.Errorf("unsupported algorithm: %s", alg)
	}

	token := jwt.NewWithClaims(method, claims)
	for name, value := range header {
		if value == nil {
			delete(token.Header, name)
			continue
		}
		token.Header[name] = value
	}

	return token.SignedString(key)
}

// AlgorithmForKey returns the default signing algorithm for a private or
// public key.
func AlgorithmForKey(key crypto.PrivateKey) (Algorithm, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey, *rsa.PublicKey:
		return RS256, nil
	case *ecdsa.PrivateKey:
		return algorithmForCurve(k.Curve)
	case *ecdsa.PublicKey:
		return algorithmForCurve(k.Curve)
	case ed25519.PrivateKey, ed25519.PublicKey:
		return EdDSA, nil
	default:
		return "", fmt.Errorf("unsupported key type: %T", key)
	}
}

func algorithmForCurve(curve elliptic.Curve) (Algorithm, error) {
	switch curve {
	case elliptic.P256():
		return ES256, nil
	case elliptic.P384():
		return ES384, nil
	case elliptic.P521():
		return ES512, nil
	default:
		return "", fmt.Errorf("unsupported ECDSA curve: %s", curve.Params().Name)
	}
}

// ParseAlgorithm converts an algorithm string to an Algorithm type
func ParseAlgorithm(alg string) (Algorithm, error) {
	upper := strings.ToUpper(alg)

	// EdDSA is a special case - it should be "EdDSA" not "EDDSA"
	if upper == "EDDSA" {
		return EdDSA, nil
	}

	switch Algorithm(upper) {
	case RS256, RS384, RS512, ES256, ES384, ES512, PS256, PS384, PS512:
		return Algorithm(upper), nil
	default:
		return "", fmt.Errorf("unsupported algorithm: %s", alg)
	}
}
