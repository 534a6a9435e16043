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

package authorizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeremyhahn/go-cognito-authorizer/internal/testutil"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/correlation"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/encoding/jwt"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/jwks"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var testNow = time.Unix(1_700_000_000, 0)

const (
	allowJSON = `{"policyDocument":{"Version":"2012-10-17","Statement":[{"Action":"execute-api:Invoke","Resource":["arn:aws:execute-api:us-east-1:123456789012:abc123*"],"Effect":"Allow"}]}}`
	denyJSON  = `{"policyDocument":{"Version":"2012-10-17","Statement":[{"Action":"*","Resource":["*"],"Effect":"Deny"}]}}`
)

type fixture struct {
	key   *testutil.KeyPair
	authz *Authorizer
}

func staticResolver(t *testing.T, keys ...*testutil.KeyPair) *jwks.StaticResolver {
	t.Helper()
	set, err := jwks.ParseSet(testutil.KeySetJSON(t, keys...))
	require.NoError(t, err)
	return jwks.NewStaticResolver(set)
}

func testConfig() Config {
	return Config{
		ClientID: testutil.ClientID,
		Issuer:   testutil.Issuer,
		Resource: testutil.Resource,
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	key := testutil.NewRSAKey(t, "rsa-1")
	opts = append([]Option{WithClock(func() time.Time { return testNow }), WithMetrics(false)}, opts...)
	authz, err := New(testConfig(), staticResolver(t, key), opts...)
	require.NoError(t, err)
	return &fixture{key: key, authz: authz}
}

func assertResponseJSON(t *testing.T, want string, d Decision) {
	t.Helper()
	data, err := json.Marshal(d.Response)
	require.NoError(t, err)
	assert.JSONEq(t, want, string(data))
}

func assertDenied(t *testing.T, d Decision, reason Reason) {
	t.Helper()
	assert.False(t, d.Allowed())
	assert.Equal(t, policy.Deny, d.Effect)
	assert.Equal(t, reason, d.Reason, "err: %v", d.Err)
	assert.Empty(t, d.Principal)
	assertResponseJSON(t, denyJSON, d)
}

func TestNew_RequiresConfig(t *testing.T) {
	resolver := staticResolver(t, testutil.NewRSAKey(t, "k"))

	_, err := New(Config{}, resolver)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client id")
	assert.Contains(t, err.Error(), "issuer")
	assert.Contains(t, err.Error(), "resource")

	_, err = New(testConfig(), nil)
	assert.ErrorContains(t, err, "key resolver")
}

func TestAuthorize_ValidIDToken(t *testing.T) {
	f := newFixture(t)
	token := f.key.Sign(t, testutil.IDTokenClaims(testNow))

	for _, credential := range []string{token, "Bearer " + token} {
		d := f.authz.Authorize(context.Background(), credential)
		require.True(t, d.Allowed(), "err: %v", d.Err)
		assert.Empty(t, d.Reason)
		assert.Equal(t, "0b6e2f4e-1111-4c2e-9a5e-3f2d1c0b9a87", d.Principal)
		assertResponseJSON(t, allowJSON, d)
	}
}

func TestAuthorize_OtherKeyTypes(t *testing.T) {
	ecKey := testutil.NewECKey(t, "ec-1")
	edKey := testutil.NewEd25519Key(t, "ed-1")
	authz, err := New(testConfig(), staticResolver(t, ecKey, edKey),
		WithClock(func() time.Time { return testNow }), WithMetrics(false))
	require.NoError(t, err)

	for _, key := range []*testutil.KeyPair{ecKey, edKey} {
		d := authz.Authorize(context.Background(), key.Sign(t, testutil.IDTokenClaims(testNow)))
		assert.True(t, d.Allowed(), "%s: %v", key.KeyID, d.Err)
	}
}

func TestAuthorize_MissingCredential(t *testing.T) {
	f := newFixture(t)
	for _, credential := range []string{"", "Bearer ", "Bearer", "Bearer    ", "   "} {
		d := f.authz.Authorize(context.Background(), credential)
		assertDenied(t, d, ReasonMissingCredential)
	}
}

func TestAuthorize_MalformedToken(t *testing.T) {
	f := newFixture(t)
	for _, credential := range []string{"abc", "Bearer a.b", "a.b.c.d", "Bearer %%%.%%%.%%%"} {
		d := f.authz.Authorize(context.Background(), credential)
		assertDenied(t, d, ReasonMalformedToken)
	}
}

func TestAuthorize_KeyResolutionFailure(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown kid", func(t *testing.T) {
		other := testutil.NewRSAKey(t, "unknown-kid")
		d := f.authz.Authorize(context.Background(), other.Sign(t, testutil.IDTokenClaims(testNow)))
		assertDenied(t, d, ReasonKeyResolutionFailure)
		assert.ErrorIs(t, d.Err, jwks.ErrKeyNotFound)
	})

	t.Run("no kid", func(t *testing.T) {
		token := f.key.SignWithHeader(t, testutil.IDTokenClaims(testNow), map[string]any{"kid": nil})
		d := f.authz.Authorize(context.Background(), token)
		assertDenied(t, d, ReasonKeyResolutionFailure)
	})

	t.Run("key set unavailable", func(t *testing.T) {
		server := testutil.NewJWKSServer(t, f.key)
		server.SetStatus(503)
		resolver, err := jwks.NewCachingResolver(&jwks.Options{URL: server.KeySetURL()})
		require.NoError(t, err)
		authz, err := New(testConfig(), resolver, WithClock(func() time.Time { return testNow }), WithMetrics(false))
		require.NoError(t, err)

		d := authz.Authorize(context.Background(), f.key.Sign(t, testutil.IDTokenClaims(testNow)))
		assertDenied(t, d, ReasonKeyResolutionFailure)
		assert.ErrorIs(t, d.Err, jwks.ErrKeySetUnavailable)
	})
}

func TestAuthorize_MissingAlgorithm(t *testing.T) {
	f := newFixture(t)
	token := f.key.SignWithHeader(t, testutil.IDTokenClaims(testNow), map[string]any{"alg": nil})

	d := f.authz.Authorize(context.Background(), token)
	assertDenied(t, d, ReasonMissingAlgorithm)
}

func TestAuthorize_MissingAlgorithmWithUnknownKID(t *testing.T) {
	f := newFixture(t)
	token := testutil.RawToken(t,
		map[string]any{"kid": "nope"},
		map[string]any{"sub": "x"},
		"c2ln")

	// Key resolution runs before the algorithm check.
	d := f.authz.Authorize(context.Background(), token)
	assertDenied(t, d, ReasonKeyResolutionFailure)
}

func TestAuthorize_SignatureInvalid(t *testing.T) {
	f := newFixture(t)
	claims := testutil.IDTokenClaims(testNow)

	t.Run("signed by another key under the same kid", func(t *testing.T) {
		impostor := testutil.NewRSAKey(t, "rsa-1")
		d := f.authz.Authorize(context.Background(), impostor.Sign(t, claims))
		assertDenied(t, d, ReasonSignatureInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		token := f.key.Sign(t, claims)
		parts := strings.Split(token, ".")
		forged := testutil.IDTokenClaims(testNow)
		forged["sub"] = "admin"
		other := strings.Split(testutil.RawToken(t, map[string]any{}, forged, ""), ".")
		parts[1] = other[1]

		d := f.authz.Authorize(context.Background(), strings.Join(parts, "."))
		assertDenied(t, d, ReasonSignatureInvalid)
	})

	t.Run("alg none", func(t *testing.T) {
		token := testutil.RawToken(t, map[string]any{"alg": "none", "kid": "rsa-1"}, claims, "")
		d := f.authz.Authorize(context.Background(), token)
		assertDenied(t, d, ReasonSignatureInvalid)
	})

	t.Run("unknown alg", func(t *testing.T) {
		token := testutil.RawToken(t, map[string]any{"alg": "XX999", "kid": "rsa-1"}, claims, "c2ln")
		d := f.authz.Authorize(context.Background(), token)
		assertDenied(t, d, ReasonSignatureInvalid)
	})

	t.Run("alg differs from key binding", func(t *testing.T) {
		token := f.key.SignWithHeader(t, claims, map[string]any{"alg": "RS384"})
		d := f.authz.Authorize(context.Background(), token)
		assertDenied(t, d, ReasonSignatureInvalid)
	})

	t.Run("hmac with public key as secret", func(t *testing.T) {
		secret := testutil.KeySetJSON(t, f.key)
		token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
		token.Header["kid"] = "rsa-1"
		signed, err := token.SignedString(secret)
		require.NoError(t, err)

		d := f.authz.Authorize(context.Background(), signed)
		assertDenied(t, d, ReasonSignatureInvalid)
	})
}

func TestAuthorize_UnboundKeyAcceptsHeaderAlgorithm(t *testing.T) {
	key := testutil.NewRSAKey(t, "rsa-1")
	key.OmitAlg = true
	authz, err := New(testConfig(), staticResolver(t, key),
		WithClock(func() time.Time { return testNow }), WithMetrics(false))
	require.NoError(t, err)

	token := key.SignWithHeader(t, testutil.IDTokenClaims(testNow), map[string]any{"alg": "PS256"})
	d := authz.Authorize(context.Background(), token)
	assert.True(t, d.Allowed(), "err: %v", d.Err)
}

func TestAuthorize_ClaimFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(jwtlib.MapClaims)
		want   Reason
	}{
		{"expired", func(c jwtlib.MapClaims) { c["exp"] = testNow.Add(-time.Minute).Unix() }, ReasonTokenExpired},
		{"expired one second ago", func(c jwtlib.MapClaims) { c["exp"] = testNow.Unix() - 1 }, ReasonTokenExpired},
		{"missing exp", func(c jwtlib.MapClaims) { delete(c, "exp") }, ReasonClaimMissing},
		{"missing aud", func(c jwtlib.MapClaims) { delete(c, "aud") }, ReasonClaimMissing},
		{"wrong aud", func(c jwtlib.MapClaims) { c["aud"] = "other-client" }, ReasonClaimMismatch},
		{"aud array", func(c jwtlib.MapClaims) { c["aud"] = []string{testutil.ClientID} }, ReasonClaimMismatch},
		{"missing iss", func(c jwtlib.MapClaims) { delete(c, "iss") }, ReasonClaimMissing},
		{"wrong iss", func(c jwtlib.MapClaims) {
			c["iss"] = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_Other"
		}, ReasonClaimMismatch},
		{"iss trailing slash", func(c jwtlib.MapClaims) { c["iss"] = testutil.Issuer + "/" }, ReasonClaimMismatch},
		{"missing token_use", func(c jwtlib.MapClaims) { delete(c, "token_use") }, ReasonClaimMissing},
		{"access token", func(c jwtlib.MapClaims) { c["token_use"] = "access" }, ReasonClaimMismatch},
		{"token_use not string", func(c jwtlib.MapClaims) { c["token_use"] = 1 }, ReasonClaimMismatch},
		{"issued in the future", func(c jwtlib.MapClaims) { c["iat"] = testNow.Add(24 * time.Hour).Unix() }, ReasonClaimMismatch},
		{"not yet valid", func(c jwtlib.MapClaims) { c["nbf"] = testNow.Add(time.Hour).Unix() }, ReasonClaimMismatch},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := testutil.IDTokenClaims(testNow)
			tt.mutate(claims)
			d := f.authz.Authorize(context.Background(), f.key.Sign(t, claims))
			assertDenied(t, d, tt.want)
		})
	}
}

func TestAuthorize_ExpiryBoundary(t *testing.T) {
	claims := testutil.IDTokenClaims(testNow)
	claims["exp"] = testNow.Unix()

	for _, offset := range []time.Duration{0, 500 * time.Millisecond, 999 * time.Millisecond} {
		f := newFixture(t, WithClock(func() time.Time { return testNow.Add(offset) }))
		d := f.authz.Authorize(context.Background(), f.key.Sign(t, claims))
		assert.True(t, d.Allowed(), "offset %s: %v", offset, d.Err)
	}

	f := newFixture(t, WithClock(func() time.Time { return testNow.Add(time.Second) }))
	d := f.authz.Authorize(context.Background(), f.key.Sign(t, claims))
	assertDenied(t, d, ReasonTokenExpired)
}

func TestAuthorize_AllowedTokenUse(t *testing.T) {
	f := newFixture(t, WithAllowedTokenUse("id", "access"))
	claims := testutil.IDTokenClaims(testNow)
	claims["token_use"] = "access"

	d := f.authz.Authorize(context.Background(), f.key.Sign(t, claims))
	assert.True(t, d.Allowed(), "err: %v", d.Err)
}

func TestAuthorize_Idempotent(t *testing.T) {
	f := newFixture(t)
	valid := f.key.Sign(t, testutil.IDTokenClaims(testNow))
	expired := testutil.IDTokenClaims(testNow)
	expired["exp"] = testNow.Add(-time.Hour).Unix()
	invalid := f.key.Sign(t, expired)

	for _, token := range []string{valid, invalid, "garbage"} {
		first := f.authz.Authorize(context.Background(), token)
		second := f.authz.Authorize(context.Background(), token)
		assert.Equal(t, first.Effect, second.Effect)
		assert.Equal(t, first.Reason, second.Reason)
		assert.Equal(t, first.Response, second.Response)
	}
}

func TestAuthorize_DecisionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	token := f.key.Sign(t, testutil.IDTokenClaims(testNow))

	first := f.authz.Authorize(context.Background(), token)
	first.Response.PolicyDocument.Statement[0].Resource[0] = "*"

	second := f.authz.Authorize(context.Background(), token)
	assertResponseJSON(t, allowJSON, second)
}

func TestAuthorize_Concurrent(t *testing.T) {
	f := newFixture(t)
	valid := f.key.Sign(t, testutil.IDTokenClaims(testNow))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.True(t, f.authz.Authorize(context.Background(), valid).Allowed())
		}()
		go func() {
			defer wg.Done()
			assert.False(t, f.authz.Authorize(context.Background(), "Bearer x.y.z").Allowed())
		}()
	}
	wg.Wait()
}

func TestAuthorize_LogsReasonWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogAdapter(&logger.SlogConfig{Level: logger.LevelDebug, Output: &buf})
	f := newFixture(t, WithLogger(log))

	ctx := correlation.WithCorrelationID(context.Background(), "req-7")
	f.authz.Authorize(ctx, "")

	output := buf.String()
	assert.Contains(t, output, "authorization denied")
	assert.Contains(t, output, "reason=missing_credential")
	assert.Contains(t, output, "correlation_id=req-7")
}

func TestAuthorize_NeverLogsToken(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogAdapter(&logger.SlogConfig{Level: logger.LevelDebug, Output: &buf})
	f := newFixture(t, WithLogger(log))

	token := f.key.Sign(t, testutil.IDTokenClaims(testNow))
	f.authz.Authorize(context.Background(), token)

	assert.NotContains(t, buf.String(), strings.Split(token, ".")[2])
}

// verifiedClaims produces claims that passed a deliberately lax signature
// step, so Validate is exercised on its own.
func verifiedClaims(t *testing.T, key *testutil.KeyPair, claims jwtlib.MapClaims) *jwt.VerifiedClaims {
	t.Helper()
	token := key.Sign(t, claims)
	header, err := jwt.ParseHeader(token)
	require.NoError(t, err)
	lax := jwt.NewVerifier(&jwt.VerifyOptions{
		Leeway: 1000 * time.Hour,
		Now:    func() time.Time { return testNow },
	})
	verified, err := lax.Verify(token, header, key.Public())
	require.NoError(t, err)
	return verified
}

func TestValidate(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(jwtlib.MapClaims)
		want   Reason
	}{
		{"valid", func(c jwtlib.MapClaims) {}, ""},
		{"exp equals now", func(c jwtlib.MapClaims) { c["exp"] = testNow.Unix() }, ""},
		{"expired", func(c jwtlib.MapClaims) { c["exp"] = testNow.Unix() - 1 }, ReasonTokenExpired},
		{"aud mismatch", func(c jwtlib.MapClaims) { c["aud"] = "other" }, ReasonClaimMismatch},
		{"aud array", func(c jwtlib.MapClaims) { c["aud"] = []string{testutil.ClientID, "other"} }, ReasonClaimMismatch},
		{"aud empty", func(c jwtlib.MapClaims) { c["aud"] = "" }, ReasonClaimMissing},
		{"iss mismatch", func(c jwtlib.MapClaims) { c["iss"] = "https://evil.example" }, ReasonClaimMismatch},
		{"token_use refresh", func(c jwtlib.MapClaims) { c["token_use"] = "refresh" }, ReasonClaimMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := testutil.IDTokenClaims(testNow)
			tt.mutate(claims)
			err := f.authz.Validate(verifiedClaims(t, f.key, claims), testutil.ClientID)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, ReasonOf(err))
		})
	}
}

func TestValidate_AudienceArgument(t *testing.T) {
	f := newFixture(t)
	claims := verifiedClaims(t, f.key, testutil.IDTokenClaims(testNow))

	assert.NoError(t, f.authz.Validate(claims, testutil.ClientID))
	assert.Equal(t, ReasonClaimMismatch, ReasonOf(f.authz.Validate(claims, "someone-else")))
}

func TestValidate_NilClaims(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, ReasonClaimMissing, ReasonOf(f.authz.Validate(nil, testutil.ClientID)))
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, Reason(""), ReasonOf(nil))
	assert.Equal(t, ReasonSignatureInvalid, ReasonOf(errors.New("unexpected")))
	assert.Equal(t, ReasonTokenExpired, ReasonOf(deny(ReasonTokenExpired, nil)))

	err := denyf(ReasonClaimMismatch, "iss %q", "x")
	assert.Equal(t, `claim_mismatch: iss "x"`, err.Error())
	assert.Equal(t, "token_expired", deny(ReasonTokenExpired, nil).Error())
}
