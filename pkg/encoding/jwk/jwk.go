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

// Package jwk encodes public keys as JSON Web Keys (RFC 7517), assembles
// JWK Set documents and computes RFC 7638 thumbprints.
//
// Decoding of untrusted key sets lives in pkg/jwks, which uses go-jose; this
// package is the producing side used by local tooling and tests.
package jwk

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

// JWK represents a public JSON Web Key as defined in RFC 7517.
type JWK struct {
	Kty string `json:"kty"`           // Key Type (required)
	Use string `json:"use,omitempty"` // Public Key Use (sig, enc)
	Alg string `json:"alg,omitempty"` // Algorithm
	Kid string `json:"kid,omitempty"` // Key ID

	// RSA public key fields (RFC 7518 Section 6.3.1)
	N string `json:"n,omitempty"` // Modulus (base64url)
	E string `json:"e,omitempty"` // Exponent (base64url)

	// EC and OKP public key fields (RFC 7518 Section 6.2.1, RFC 8037)
	Crv string `json:"crv,omitempty"` // Curve (P-256, P-384, P-521, Ed25519)
	X   string `json:"x,omitempty"`   // X Coordinate (base64url)
	Y   string `json:"y,omitempty"`   // Y Coordinate (base64url)
}

// KeyType represents the key type (kty) parameter values
type KeyType string

const (
	KeyTypeRSA KeyType = "RSA"
	KeyTypeEC  KeyType = "EC"
	KeyTypeOKP KeyType = "OKP" // Octet Key Pair (Ed25519)
)

// Curve represents EC curve names
type Curve string

const (
	CurveP256    Curve = "P-256"
	CurveP384    Curve = "P-384"
	CurveP521    Curve = "P-521"
	CurveEd25519 Curve = "Ed25519"
)

// UseSignature is the use value of signing keys.
const UseSignature = "sig"

// FromPublicKey creates a JWK from a crypto.PublicKey.
// Supports RSA, ECDSA and Ed25519 public keys.
func FromPublicKey(pub crypto.PublicKey) (*JWK, error) {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		return &JWK{
			Kty: string(KeyTypeRSA),
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}, nil
	case *ecdsa.PublicKey:
		crv, size, err := curveParams(key.Curve)
		if err != nil {
			return nil, err
		}
		return &JWK{
			Kty: string(KeyTypeEC),
			Crv: string(crv),
			X:   base64.RawURLEncoding.EncodeToString(key.X.FillBytes(make([]byte, size))),
			Y:   base64.RawURLEncoding.EncodeToString(key.Y.FillBytes(make([]byte, size))),
		}, nil
	case ed25519.PublicKey:
		return &JWK{
			Kty: string(KeyTypeOKP),
			Crv: string(CurveEd25519),
			X:   base64.RawURLEncoding.EncodeToString(key),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported public key type: %T", pub)
	}
}

// curveParams returns the JWK curve name and the fixed coordinate length
// RFC 7518 requires for x and y.
func curveParams(curve elliptic.Curve) (Curve, int, error) {
	switch curve {
	case elliptic.P256():
		return CurveP256, 32, nil
	case elliptic.P384():
		return CurveP384, 48, nil
	case elliptic.P521():
		return CurveP521, 66, nil
	default:
		return "", 0, fmt.Errorf("unsupported curve: %s", curve.Params().Name)
	}
}

// Marshal serializes the JWK to JSON.
func (jwk *JWK) Marshal() ([]byte, error) {
	return json.Marshal(jwk)
}

// Set is a JWK Set document (RFC 7517 Section 5).
type Set struct {
	Keys []*JWK `json:"keys"`
}

// NewSet creates an empty JWK Set.
func NewSet() *Set {
	return &Set{Keys: []*JWK{}}
}

// AddPublicKey appends pub as a signing key with the given kid and alg.
// alg may be empty.
func (s *Set) AddPublicKey(pub crypto.PublicKey, kid, alg string) (*JWK, error) {
	key, err := FromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	key.Kid = kid
	key.Alg = alg
	key.Use = UseSignature
	s.Keys = append(s.Keys, key)
	return key, nil
}

// Marshal serializes the set to JSON.
func (s *Set) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// MarshalIndent serializes the set to indented JSON.
func (s *Set) MarshalIndent(prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(s, prefix, indent)
}
