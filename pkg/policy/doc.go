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

// Package policy builds the IAM policy documents an API Gateway custom
// authorizer returns.
//
// Only two documents are ever produced. Allow grants execute-api:Invoke on
// every method and stage of a single API:
//
//	{"policyDocument":{"Version":"2012-10-17","Statement":[{
//	  "Action":"execute-api:Invoke",
//	  "Resource":["arn:aws:execute-api:us-east-1:123456789012:abc123*"],
//	  "Effect":"Allow"}]}}
//
// Deny denies every action on every resource:
//
//	{"policyDocument":{"Version":"2012-10-17","Statement":[{
//	  "Action":"*","Resource":["*"],"Effect":"Deny"}]}}
//
// Each call returns a freshly allocated Response, so callers may mutate the
// result without affecting later decisions.
package policy
