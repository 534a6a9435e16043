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

// Package jwks resolves token signing keys from an issuer's JSON Web Key
// Set.
//
// CachingResolver downloads the set over HTTP, caches it for a TTL and
// refreshes early when a token names a kid the cached set does not contain,
// which is how signing key rotation shows up. Refreshes triggered by
// unknown kids are rate limited so a flood of forged kids cannot turn into
// a flood of requests against the issuer, and concurrent refreshes collapse
// into a single download. A failed download is not retried until a backoff
// window passes; meanwhile the stale set keeps answering.
//
// StaticResolver serves a fixed set loaded from a file, for local testing
// and air-gapped use.
package jwks

import (
	"context"
	"crypto"
	"errors"
	"sort"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/encoding/jwk"
)

var (
	// ErrKeySetUnavailable indicates the key set could not be obtained or
	// decoded.
	ErrKeySetUnavailable = errors.New("key set unavailable")

	// ErrKeyNotFound indicates no usable key in the set has the requested
	// kid.
	ErrKeyNotFound = errors.New("no signing key matches kid")
)

// SigningKey is a public verification key from a key set.
type SigningKey struct {
	// KeyID is the kid the key is published under.
	KeyID string
	// Algorithm is the alg the key is bound to, or empty if the JWK does
	// not declare one.
	Algorithm string
	// Use is the declared use, "sig" or empty.
	Use string
	// Key is an *rsa.PublicKey, *ecdsa.PublicKey or ed25519.PublicKey.
	Key crypto.PublicKey
}

// Thumbprint returns the RFC 7638 SHA-256 thumbprint of the key, or an
// empty string if it cannot be computed.
func (k *SigningKey) Thumbprint() string {
	tp, err := jwk.Thumbprint(k.Key)
	if err != nil {
		return ""
	}
	return tp
}

// Resolver looks up the verification key for a kid.
type Resolver interface {
	SigningKey(ctx context.Context, kid string) (*SigningKey, error)
}

// KeySource is a Resolver that can also enumerate its keys.
type KeySource interface {
	Resolver
	Keys(ctx context.Context) ([]*SigningKey, error)
}

// KeySet is a decoded, immutable key set indexed by kid.
type KeySet struct {
	keys map[string]*SigningKey
}

// Lookup returns the key with the given kid.
func (s *KeySet) Lookup(kid string) (*SigningKey, bool) {
	if s == nil {
		return nil, false
	}
	key, ok := s.keys[kid]
	return key, ok
}

// Len returns the number of usable keys.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the keys sorted by kid.
func (s *KeySet) Keys() []*SigningKey {
	if s == nil {
		return nil
	}
	keys := make([]*SigningKey, 0, len(s.keys))
	for _, key := range s.keys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].KeyID < keys[j].KeyID })
	return keys
}
