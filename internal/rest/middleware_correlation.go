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

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/correlation"
)

// CorrelationMiddleware ties every log line of one /authorize call to an
// id. A caller-supplied id is reused (see correlation.FromRequest), so a
// request forwarded by API Gateway keeps its gateway request id; otherwise a
// UUID is generated. The id is echoed in X-Correlation-ID.
func (s *Server) CorrelationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := correlation.FromRequest(r)
			if id == "" {
				id = correlation.NewID()
			}
			w.Header().Set(correlation.CorrelationIDHeader, id)
			next.ServeHTTP(w, r.WithContext(correlation.WithCorrelationID(r.Context(), id)))
		})
	}
}
