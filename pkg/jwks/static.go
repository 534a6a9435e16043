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

package jwks

import (
	"context"
	"fmt"
	"os"
)

// StaticResolver serves keys from a fixed set.
type StaticResolver struct {
	set *KeySet
}

// NewStaticResolver creates a resolver over set.
func NewStaticResolver(set *KeySet) *StaticResolver {
	return &StaticResolver{set: set}
}

// LoadFile reads a JWK Set document from path.
func LoadFile(path string) (*StaticResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeySetUnavailable, err)
	}
	set, err := ParseSet(data)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: %s contains no usable signing keys", ErrKeySetUnavailable, path)
	}
	return NewStaticResolver(set), nil
}

// SigningKey implements Resolver.
func (r *StaticResolver) SigningKey(ctx context.Context, kid string) (*SigningKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: token has no kid", ErrKeyNotFound)
	}
	if key, ok := r.set.Lookup(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
}

// Keys implements KeySource.
func (r *StaticResolver) Keys(ctx context.Context) ([]*SigningKey, error) {
	return r.set.Keys(), nil
}
