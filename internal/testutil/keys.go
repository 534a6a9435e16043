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

// Package testutil provides signing keys, key set documents, token minting
// and an httptest key set server for tests.
package testutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/encoding/jwt"
	"github.com/stretchr/testify/require"
)

// KeyPair is a signing key published under KeyID.
type KeyPair struct {
	KeyID     string
	Algorithm jwt.Algorithm
	Private   crypto.Signer

	// OmitAlg leaves alg out of the published JWK.
	OmitAlg bool
}

// Public returns the public half of the key.
func (k *KeyPair) Public() crypto.PublicKey {
	return k.Private.Public()
}

// NewRSAKey generates a 2048-bit RS256 key.
func NewRSAKey(t testing.TB, kid string) *KeyPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &KeyPair{KeyID: kid, Algorithm: jwt.RS256, Private: key}
}

// NewECKey generates a P-256 ES256 key.
func NewECKey(t testing.TB, kid string) *KeyPair {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return &KeyPair{KeyID: kid, Algorithm: jwt.ES256, Private: key}
}

// NewEd25519Key generates an EdDSA key.
func NewEd25519Key(t testing.TB, kid string) *KeyPair {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &KeyPair{KeyID: kid, Algorithm: jwt.EdDSA, Private: key}
}

// KeySetJSON returns a JWK Set document publishing the public keys.
func KeySetJSON(t testing.TB, keys ...*KeyPair) []byte {
	t.Helper()
	set := jwk.NewSet()
	for _, k := range keys {
		alg := string(k.Algorithm)
		if k.OmitAlg {
			alg = ""
		}
		_, err := set.AddPublicKey(k.Public(), k.KeyID, alg)
		require.NoError(t, err)
	}
	data, err := set.Marshal()
	require.NoError(t, err)
	return data
}
