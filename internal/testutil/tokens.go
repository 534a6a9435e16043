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

package testutil

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/encoding/jwt"
	"github.com/stretchr/testify/require"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Deployment values shared by tests.
const (
	Region     = "us-east-1"
	AccountID  = "123456789012"
	APIID      = "abc123"
	UserPoolID = "us-east-1_TestPool"
	ClientID   = "test-client-id"
)

// Issuer is the Cognito issuer for Region and UserPoolID.
var Issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", Region, UserPoolID)

// Resource is the execute-api resource for Region, AccountID and APIID.
var Resource = fmt.Sprintf("arn:aws:execute-api:%s:%s:%s*", Region, AccountID, APIID)

// IDTokenClaims returns the claims of a valid Cognito id token expiring
// one hour after now.
func IDTokenClaims(now time.Time) jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"sub":              "0b6e2f4e-1111-4c2e-9a5e-3f2d1c0b9a87",
		"aud":              ClientID,
		"iss":              Issuer,
		"token_use":        "id",
		"auth_time":        now.Add(-time.Minute).Unix(),
		"iat":              now.Add(-time.Minute).Unix(),
		"exp":              now.Add(time.Hour).Unix(),
		"cognito:username": "test-user",
		"email":            "test@example.com",
	}
}

// Sign mints a token signed by k with kid and alg in the header.
func (k *KeyPair) Sign(t testing.TB, claims jwtlib.MapClaims) string {
	t.Helper()
	return k.SignWithHeader(t, claims, nil)
}

// SignWithHeader mints a token signed by k. Entries in header override
// the defaults; a nil value removes the member.
func (k *KeyPair) SignWithHeader(t testing.TB, claims jwtlib.MapClaims, header map[string]any) string {
	t.Helper()
	merged := map[string]any{"kid": k.KeyID}
	for name, value := range header {
		merged[name] = value
	}
	alg := k.Algorithm
	if a, ok := header["alg"].(string); ok {
		alg = jwt.Algorithm(a)
	}
	token, err := jwt.NewSigner().SignWithHeader(k.Private, claims, alg, merged)
	require.NoError(t, err)
	return token
}

// RawToken assembles a token from arbitrary header and claims objects and
// a base64url signature segment, without signing.
func RawToken(t testing.TB, header, claims map[string]any, signature string) string {
	t.Helper()
	return segment(t, header) + "." + segment(t, claims) + "." + signature
}

func segment(t testing.TB, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(data)
}
