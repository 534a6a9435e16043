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

package jwk

import (
	"crypto"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Thumbprint computes the SHA-256 JWK thumbprint of a public key as
// defined in RFC 7638.
//
// For RSA keys: {"e":"...","kty":"RSA","n":"..."}
// For EC keys: {"crv":"...","kty":"EC","x":"...","y":"..."}
// For OKP keys: {"crv":"...","kty":"OKP","x":"..."}
func Thumbprint(key crypto.PublicKey) (string, error) {
	jwk, err := FromPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to convert key to JWK: %w", err)
	}
	return jwk.Thumbprint()
}

// Thumbprint computes the SHA-256 thumbprint of this key.
func (jwk *JWK) Thumbprint() (string, error) {
	fields, err := jwk.thumbprintFields()
	if err != nil {
		return "", err
	}

	data, err := serializeForThumbprint(fields)
	if err != nil {
		return "", fmt.Errorf("failed to serialize for thumbprint: %w", err)
	}

	sum := sha256.Sum256(data)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// thumbprintFields returns the required members per RFC 7638 Section 3.2.
func (jwk *JWK) thumbprintFields() (map[string]string, error) {
	switch jwk.Kty {
	case string(KeyTypeRSA):
		if jwk.E == "" || jwk.N == "" {
			return nil, fmt.Errorf("RSA JWK missing required fields for thumbprint")
		}
		return map[string]string{"e": jwk.E, "kty": jwk.Kty, "n": jwk.N}, nil

	case string(KeyTypeEC):
		if jwk.Crv == "" || jwk.X == "" || jwk.Y == "" {
			return nil, fmt.Errorf("EC JWK missing required fields for thumbprint")
		}
		return map[string]string{"crv": jwk.Crv, "kty": jwk.Kty, "x": jwk.X, "y": jwk.Y}, nil

	case string(KeyTypeOKP):
		if jwk.Crv == "" || jwk.X == "" {
			return nil, fmt.Errorf("OKP JWK missing required fields for thumbprint")
		}
		return map[string]string{"crv": jwk.Crv, "kty": jwk.Kty, "x": jwk.X}, nil

	default:
		return nil, fmt.Errorf("unsupported key type for thumbprint: %s", jwk.Kty)
	}
}

// serializeForThumbprint writes members in lexicographic order with no
// whitespace.
func serializeForThumbprint(fields map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		valueJSON, err := json.Marshal(fields[key])
		if err != nil {
			return nil, err
		}
		b.Write(keyJSON)
		b.WriteByte(':')
		b.Write(valueJSON)
	}
	b.WriteByte('}')

	return []byte(b.String()), nil
}
