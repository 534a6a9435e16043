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

// Package rest emulates the API Gateway authorizer call over plain HTTP so
// the authorizer can be exercised locally without deploying a Lambda.
//
// # Endpoints
//
//   - POST /authorize - accepts a TOKEN authorizer event and returns the
//     policy response. When the body carries no authorizationToken, the
//     Authorization header is used instead. With a rate limiter configured,
//     clients over their limit get 429.
//   - GET /health/live - liveness probe
//   - GET /health/ready - readiness probe; fails while the signing key set
//     cannot be loaded
//   - GET /metrics - Prometheus metrics
//
// # Example
//
//	curl -s localhost:8080/authorize \
//	    -H "Authorization: Bearer $ID_TOKEN"
//
//	{"policyDocument":{"Version":"2012-10-17","Statement":[...]}}
//
// Every request gets a correlation id from X-Correlation-ID, X-Request-ID
// or a fresh UUID, echoed back in X-Correlation-ID and attached to every
// log line of the decision.
package rest
