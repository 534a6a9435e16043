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

// Package correlation carries a per-invocation id through context so every
// log line of one authorization decision can be tied together.
package correlation

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// CorrelationIDKey is the context key for storing correlation IDs
	CorrelationIDKey contextKey = "correlation-id"

	// RequestIDHeader is the HTTP header for request IDs
	RequestIDHeader = "X-Request-ID"

	// CorrelationIDHeader is the HTTP header for correlation IDs
	CorrelationIDHeader = "X-Correlation-ID"

	// AmznRequestIDHeader carries the API Gateway request id.
	AmznRequestIDHeader = "X-Amzn-RequestId"

	// AmznTraceIDHeader carries the X-Ray trace header set by API Gateway
	// and load balancers.
	AmznTraceIDHeader = "X-Amzn-Trace-Id"

	// maxIDLength bounds ids taken from request headers.
	maxIDLength = 128

	// LogField is the structured log key correlation ids are written under.
	LogField = "correlation_id"
)

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID retrieves the correlation ID from context.
// Returns an empty string if no correlation ID is found.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// NewID generates a new UUID v4 correlation ID.
func NewID() string {
	return uuid.New().String()
}

// GetOrGenerate retrieves an existing correlation ID from context
// or generates a new one if none exists.
func GetOrGenerate(ctx context.Context) string {
	if id := GetCorrelationID(ctx); id != "" {
		return id
	}
	return NewID()
}

// FromLambda returns ctx carrying a correlation id. The Lambda request id
// is used when the runtime supplied one, otherwise an existing id is kept
// or a new one generated.
func FromLambda(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return WithCorrelationID(ctx, lc.AwsRequestID)
	}
	return WithCorrelationID(ctx, GetOrGenerate(ctx))
}

// FromRequest returns the correlation id a caller supplied, checking
// X-Correlation-ID, X-Request-ID, X-Amzn-RequestId and the Root of
// X-Amzn-Trace-Id in that order. Values that are too long or contain
// characters outside [A-Za-z0-9._:=-] are ignored. An empty result means
// none was usable.
func FromRequest(r *http.Request) string {
	for _, h := range []string{CorrelationIDHeader, RequestIDHeader, AmznRequestIDHeader} {
		if id := clean(r.Header.Get(h)); id != "" {
			return id
		}
	}
	return clean(traceRoot(r.Header.Get(AmznTraceIDHeader)))
}

// traceRoot extracts Root from "Root=1-...;Parent=...;Sampled=1".
func traceRoot(header string) string {
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == "Root" {
			return value
		}
	}
	return ""
}

func clean(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxIDLength {
		return ""
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':', c == '=':
		default:
			return ""
		}
	}
	return id
}
