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

package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/correlation"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationMiddleware(t *testing.T) {
	mockServer := &Server{}

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"uses X-Correlation-ID", map[string]string{correlation.CorrelationIDHeader: "test-correlation-id"}, "test-correlation-id"},
		{"falls back to X-Request-ID", map[string]string{correlation.RequestIDHeader: "test-request-id"}, "test-request-id"},
		{"X-Correlation-ID takes precedence", map[string]string{
			correlation.CorrelationIDHeader: "correlation-id",
			correlation.RequestIDHeader:     "request-id",
		}, "correlation-id"},
		{"uses the gateway request id", map[string]string{
			correlation.AmznRequestIDHeader: "c6af9ac6-7b61-11e6-9a41-93e8deadbeef",
		}, "c6af9ac6-7b61-11e6-9a41-93e8deadbeef"},
		{"uses the trace root", map[string]string{
			correlation.AmznTraceIDHeader: "Root=1-5759e988-bd862e3fe1be46a994272793;Sampled=1",
		}, "1-5759e988-bd862e3fe1be46a994272793"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := mockServer.CorrelationMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = correlation.GetCorrelationID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, seen)
			assert.Equal(t, tt.want, w.Header().Get(correlation.CorrelationIDHeader))
		})
	}

	t.Run("generates an id when none is provided", func(t *testing.T) {
		var seen string
		handler := mockServer.CorrelationMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = correlation.GetCorrelationID(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(correlation.CorrelationIDHeader))
	})

	t.Run("replaces an unusable id", func(t *testing.T) {
		var seen string
		handler := mockServer.CorrelationMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = correlation.GetCorrelationID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(correlation.CorrelationIDHeader, "forged\nlevel=ERROR")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.NotEmpty(t, seen)
		assert.NotContains(t, seen, "forged")
	})
}
