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
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

const useSignature = "sig"

// ParseSet decodes a JWK Set document. Keys that fail to decode, carry
// private material, have no kid or are published for a use other than
// "sig" are skipped; when two keys share a kid the first wins. A document
// without a keys array is ErrKeySetUnavailable.
func ParseSet(data []byte) (*KeySet, error) {
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode key set: %w", ErrKeySetUnavailable, err)
	}
	if doc.Keys == nil {
		return nil, fmt.Errorf("%w: document has no keys member", ErrKeySetUnavailable)
	}

	set := &KeySet{keys: make(map[string]*SigningKey, len(doc.Keys))}
	for _, raw := range doc.Keys {
		// Decoded one at a time so a single unsupported kty does not reject
		// the whole set.
		var key jose.JSONWebKey
		if err := key.UnmarshalJSON(raw); err != nil {
			continue
		}
		if key.KeyID == "" || !key.Valid() || !key.IsPublic() {
			continue
		}
		if key.Use != "" && key.Use != useSignature {
			continue
		}
		if _, dup := set.keys[key.KeyID]; dup {
			continue
		}
		set.keys[key.KeyID] = &SigningKey{
			KeyID:     key.KeyID,
			Algorithm: key.Algorithm,
			Use:       key.Use,
			Key:       key.Key,
		}
	}
	return set, nil
}
