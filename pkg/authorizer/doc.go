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

// Package authorizer decides whether a bearer token issued by an Amazon
// Cognito user pool may invoke an API Gateway API.
//
// Authorize runs a fixed, fail-closed pipeline:
//
//  1. Strip an optional "Bearer " prefix; an empty token is denied.
//  2. Read the token header without trusting it.
//  3. Resolve the signing key for the header kid from the issuer's key set.
//  4. Require the header to name an algorithm.
//  5. Verify the signature with exactly that algorithm and the resolved key,
//     requiring exp and the configured audience.
//  6. Re-validate exp, aud, iss and token_use on the verified claims.
//  7. Return an Allow policy scoped to the API, or a Deny policy.
//
// Every failure resolves to a Deny decision carrying a Reason; Authorize
// never returns an error or panics. Claims are only ever read from a
// jwt.VerifiedClaims, which cannot exist without a successful signature
// check.
//
// Basic usage:
//
//	resolver, _ := jwks.NewCachingResolver(&jwks.Options{URL: jwksURL})
//	authz, err := authorizer.New(authorizer.Config{
//	    ClientID: clientID,
//	    Issuer:   issuer,
//	    Resource: resource,
//	}, resolver, authorizer.WithLogger(log))
//	decision := authz.Authorize(ctx, event.AuthorizationToken)
//	return decision.Response, nil
package authorizer
