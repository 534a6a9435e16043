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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

func generateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func generateECKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":       "user-1",
		"aud":       "client-1",
		"iss":       "https://issuer.example",
		"token_use": "id",
		"exp":       testNow.Add(time.Hour).Unix(),
	}
}

func encodeSegment(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(data)
}

func newTestVerifier() *Verifier {
	return NewVerifier(&VerifyOptions{
		Audience: "client-1",
		Leeway:   time.Second,
		Now:      func() time.Time { return testNow },
	})
}

func TestAlgorithmForKey(t *testing.T) {
	rsaKey := generateRSAKey(t)
	ecKey := generateECKey(t)
	ec384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name string
		key  any
		want Algorithm
	}{
		{"rsa private", rsaKey, RS256},
		{"rsa public", &rsaKey.PublicKey, RS256},
		{"p256", ecKey, ES256},
		{"p256 public", &ecKey.PublicKey, ES256},
		{"p384", ec384, ES384},
		{"ed25519", edKey, EdDSA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AlgorithmForKey(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = AlgorithmForKey("not a key")
	assert.Error(t, err)
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"RS256", RS256, false},
		{"rs256", RS256, false},
		{"ES512", ES512, false},
		{"eddsa", EdDSA, false},
		{"PS384", PS384, false},
		{"HS256", "", true},
		{"none", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSigner_SignWithKID(t *testing.T) {
	key := generateRSAKey(t)

	token, err := NewSigner().SignWithKID(key, validClaims(), "kid-1")
	require.NoError(t, err)

	header, err := ParseHeader(token)
	require.NoError(t, err)
	assert.Equal(t, "kid-1", header.KeyID)
	assert.Equal(t, "RS256", header.Algorithm)
	assert.Equal(t, "JWT", header.Type)
}

func TestSigner_SignWithHeader_RemovesMembers(t *testing.T) {
	key := generateECKey(t)

	token, err := NewSigner().SignWithHeader(key, validClaims(), ES256, map[string]any{"kid": "ec-1", "typ": nil})
	require.NoError(t, err)

	header, err := ParseHeader(token)
	require.NoError(t, err)
	assert.Equal(t, "ec-1", header.KeyID)
	assert.Empty(t, header.Type)
}

func TestParseHeader_Malformed(t *testing.T) {
	claims := encodeSegment(t, map[string]any{"sub": "x"})

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", "a.b"},
		{"four segments", "a.b.c.d"},
		{"header not base64", "%%%." + claims + ".sig"},
		{"header not json", base64.RawURLEncoding.EncodeToString([]byte("nope")) + "." + claims + ".sig"},
		{"header is array", encodeSegment(t, []string{"RS256"}) + "." + claims + ".sig"},
		{"claims not json", encodeSegment(t, map[string]any{"alg": "RS256", "kid": "k"}) + "." + base64.RawURLEncoding.EncodeToString([]byte("{")) + ".sig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.token)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestParseHeader_MissingAlgorithmIsNotMalformed(t *testing.T) {
	token := encodeSegment(t, map[string]any{"kid": "k1", "typ": "JWT"}) + "." +
		encodeSegment(t, map[string]any{"sub": "x"}) + ".c2ln"

	header, err := ParseHeader(token)
	require.NoError(t, err)
	assert.Equal(t, "k1", header.KeyID)
	assert.Empty(t, header.Algorithm)
}

func TestParseHeader_UnknownAlgorithmIsCarried(t *testing.T) {
	token := encodeSegment(t, map[string]any{"kid": "k1", "alg": "XX999"}) + "." +
		encodeSegment(t, map[string]any{"sub": "x"}) + ".c2ln"

	header, err := ParseHeader(token)
	require.NoError(t, err)
	assert.Equal(t, "XX999", header.Algorithm)
}

func TestParseHeader_NonStringMembers(t *testing.T) {
	token := encodeSegment(t, map[string]any{"kid": 42, "alg": "RS256"}) + "." +
		encodeSegment(t, map[string]any{"sub": "x"}) + ".c2ln"

	header, err := ParseHeader(token)
	require.NoError(t, err)
	assert.Empty(t, header.KeyID)
	assert.Equal(t, "RS256", header.Algorithm)
}

func TestVerifier_Verify_Success(t *testing.T) {
	key := generateRSAKey(t)
	token, err := NewSigner().SignWithKID(key, validClaims(), "kid-1")
	require.NoError(t, err)

	header, err := ParseHeader(token)
	require.NoError(t, err)

	claims, err := newTestVerifier().Verify(token, header, &key.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, "kid-1", claims.KeyID())
	assert.Equal(t, "RS256", claims.Algorithm())
	assert.Equal(t, "user-1", claims.Subject())

	aud, err := claims.Audience()
	require.NoError(t, err)
	assert.Equal(t, "client-1", aud)

	exp, err := claims.Expiry()
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour).Unix(), exp)

	use, err := claims.TokenUse()
	require.NoError(t, err)
	assert.Equal(t, "id", use)
}

func TestVerifier_Verify_ECDSAAndEd25519(t *testing.T) {
	ecKey := generateECKey(t)
	edPub, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name    string
		private any
		public  any
	}{
		{"es256", ecKey, &ecKey.PublicKey},
		{"eddsa", edKey, edPub},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := NewSigner().SignWithKID(tt.private, validClaims(), "k")
			require.NoError(t, err)
			header, err := ParseHeader(token)
			require.NoError(t, err)

			_, err = newTestVerifier().Verify(token, header, tt.public)
			assert.NoError(t, err)
		})
	}
}

func TestVerifier_Verify_MissingAlgorithm(t *testing.T) {
	key := generateRSAKey(t)
	_, err := newTestVerifier().Verify("a.b.c", &UnverifiedHeader{KeyID: "k"}, &key.PublicKey)
	assert.ErrorIs(t, err, ErrMissingAlgorithm)

	_, err = newTestVerifier().Verify("a.b.c", nil, &key.PublicKey)
	assert.ErrorIs(t, err, ErrMissingAlgorithm)
}

func TestVerifier_Verify_WrongKey(t *testing.T) {
	key := generateRSAKey(t)
	other := generateRSAKey(t)
	token, err := NewSigner().SignWithKID(key, validClaims(), "kid-1")
	require.NoError(t, err)
	header, err := ParseHeader(token)
	require.NoError(t, err)

	_, err = newTestVerifier().Verify(token, header, &other.PublicKey)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifier_Verify_KeyTypeMismatch(t *testing.T) {
	key := generateRSAKey(t)
	ecKey := generateECKey(t)
	token, err := NewSigner().SignWithKID(key, validClaims(), "kid-1")
	require.NoError(t, err)
	header, err := ParseHeader(token)
	require.NoError(t, err)

	_, err = newTestVerifier().Verify(token, header, &ecKey.PublicKey)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifier_Verify_OnlyHeaderAlgorithm(t *testing.T) {
	key := generateRSAKey(t)
	token, err := NewSigner().SignWithHeader(key, validClaims(), PS256, map[string]any{"kid": "kid-1"})
	require.NoError(t, err)

	// The caller claims RS256 but the token was signed with PS256.
	header := &UnverifiedHeader{KeyID: "kid-1", Algorithm: "RS256"}
	_, err = newTestVerifier().Verify(token, header, &key.PublicKey)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifier_Verify_NoneAlgorithm(t *testing.T) {
	key := generateRSAKey(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	header, err := ParseHeader(token)
	require.NoError(t, err)
	assert.Equal(t, "none", header.Algorithm)

	_, err = newTestVerifier().Verify(token, header, &key.PublicKey)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifier_Verify_KIDMustMatchHeader(t *testing.T) {
	key := generateRSAKey(t)
	token, err := NewSigner().SignWithKID(key, validClaims(), "kid-1")
	require.NoError(t, err)

	header := &UnverifiedHeader{KeyID: "kid-2", Algorithm: "RS256"}
	_, err = newTestVerifier().Verify(token, header, &key.PublicKey)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifier_Verify_TamperedPayload(t *testing.T) {
	key := generateRSAKey(t)
	token, err := NewSigner().SignWithKID(key, validClaims(), "kid-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forged := validClaims()
	forged["sub"] = "admin"
	parts[1] = encodeSegment(t, forged)
	tampered := strings.Join(parts, ".")

	header, err := ParseHeader(tampered)
	require.NoError(t, err)
	_, err = newTestVerifier().Verify(tampered, header, &key.PublicKey)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifier_Verify_ClaimErrors(t *testing.T) {
	key := generateRSAKey(t)

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
		want   error
	}{
		{"expired", func(c jwt.MapClaims) { c["exp"] = testNow.Add(-time.Minute).Unix() }, ErrTokenExpired},
		{"expired one second", func(c jwt.MapClaims) { c["exp"] = testNow.Unix() - 1 }, ErrTokenExpired},
		{"missing exp", func(c jwt.MapClaims) { delete(c, "exp") }, ErrClaimMissing},
		{"wrong audience", func(c jwt.MapClaims) { c["aud"] = "someone-else" }, ErrClaimMismatch},
		{"missing audience", func(c jwt.MapClaims) { delete(c, "aud") }, ErrClaimMissing},
		{"exp not numeric", func(c jwt.MapClaims) { c["exp"] = "tomorrow" }, ErrClaimMismatch},
		{"not yet valid", func(c jwt.MapClaims) { c["nbf"] = testNow.Add(time.Hour).Unix() }, ErrClaimMismatch},
		{"issued in the future", func(c jwt.MapClaims) { c["iat"] = testNow.Add(24 * time.Hour).Unix() }, ErrClaimMismatch},
		{"issued beyond leeway", func(c jwt.MapClaims) { c["iat"] = testNow.Unix() + 2 }, ErrClaimMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims()
			tt.mutate(claims)
			token, err := NewSigner().SignWithKID(key, claims, "kid-1")
			require.NoError(t, err)
			header, err := ParseHeader(token)
			require.NoError(t, err)

			_, err = newTestVerifier().Verify(token, header, &key.PublicKey)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifier_Verify_ExpiryBoundary(t *testing.T) {
	key := generateRSAKey(t)
	claims := validClaims()
	claims["exp"] = testNow.Unix()
	token, err := NewSigner().SignWithKID(key, claims, "kid-1")
	require.NoError(t, err)
	header, err := ParseHeader(token)
	require.NoError(t, err)

	_, err = newTestVerifier().Verify(token, header, &key.PublicKey)
	assert.NoError(t, err)
}

func TestVerifier_Verify_IssuedAtWithinLeeway(t *testing.T) {
	key := generateRSAKey(t)
	claims := validClaims()
	claims["iat"] = testNow.Unix() + 1
	token, err := NewSigner().SignWithKID(key, claims, "kid-1")
	require.NoError(t, err)
	header, err := ParseHeader(token)
	require.NoError(t, err)

	_, err = newTestVerifier().Verify(token, header, &key.PublicKey)
	assert.NoError(t, err)
}

func TestVerifiedClaims_Accessors(t *testing.T) {
	c := &VerifiedClaims{claims: jwt.MapClaims{
		"aud":       []any{"client-1"},
		"iss":       "",
		"token_use": 7.0,
		"exp":       float64(0),
	}}

	_, err := c.Audience()
	assert.ErrorIs(t, err, ErrClaimMismatch)

	_, err = c.Issuer()
	assert.ErrorIs(t, err, ErrClaimMissing)

	_, err = c.TokenUse()
	assert.ErrorIs(t, err, ErrClaimMismatch)

	_, err = c.Expiry()
	assert.ErrorIs(t, err, ErrClaimMissing)

	assert.Empty(t, c.Subject())

	v, ok := c.Claim("token_use")
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)

	var nilClaims *VerifiedClaims
	_, ok = nilClaims.Claim("sub")
	assert.False(t, ok)
	_, err = nilClaims.Expiry()
	assert.ErrorIs(t, err, ErrClaimMissing)
}
