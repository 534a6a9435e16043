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

// Package jwt reads and verifies JSON Web Tokens with golang-jwt/jwt.
//
// Verification is split in two so a caller can select the verification key
// before trusting anything in the token:
//
//	header, err := jwt.ParseHeader(token)    // untrusted routing data
//	key := lookup(header.KeyID)              // resolve the signing key
//	claims, err := verifier.Verify(token, header, key)
//
// ParseHeader never checks the signature and its result must only be used to
// pick a key and the single algorithm the token is allowed to use. Verify
// accepts exactly header.Algorithm, checks the signature with the supplied
// key, requires exp and, when configured, the audience. The resulting
// VerifiedClaims can only be obtained from a successful Verify.
//
// # Supported Algorithms
//
//   - RS256, RS384, RS512 (RSA with PKCS#1 v1.5)
//   - PS256, PS384, PS512 (RSA with PSS)
//   - ES256, ES384, ES512 (ECDSA)
//   - EdDSA (Ed25519)
//
// The none algorithm and HMAC algorithms are never accepted because the
// resolved key is always a public key.
//
// # Errors
//
// Every error returned by Verify wraps exactly one of ErrMalformedToken,
// ErrSignatureInvalid, ErrTokenExpired, ErrClaimMissing or ErrClaimMismatch
// so callers can classify failures with errors.Is.
//
// The Signer exists for tests and local tooling that need tokens in the
// shape an identity provider would issue.
package jwt
