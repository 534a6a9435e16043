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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jeremyhahn/go-cognito-authorizer/internal/gateway"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
)

// maxEventBytes caps the size of an authorizer event body.
const maxEventBytes = 64 << 10

// HandlerContext holds the dependencies of the HTTP handlers.
type HandlerContext struct {
	Gateway       *gateway.Handler
	HealthChecker HealthChecker
	logger        logger.Logger
}

// AuthorizeHandler handles POST /authorize.
//
// The body is an API Gateway TOKEN authorizer event. An empty body is an
// event with no fields. The response is always 200 with the policy
// document, as API Gateway would receive it from the Lambda; the effect is
// in the document.
func (h *HandlerContext) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	var event events.APIGatewayCustomAuthorizerRequest

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes+1))
	if err != nil {
		writeErrorWithMessage(w, ErrInvalidRequest, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxEventBytes {
		writeError(w, ErrEventTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &event); err != nil {
			writeErrorWithMessage(w, ErrInvalidRequest, "body is not an authorizer event", http.StatusBadRequest)
			return
		}
	}

	if event.AuthorizationToken == "" {
		event.AuthorizationToken = r.Header.Get("Authorization")
	}
	if event.Type == "" {
		event.Type = gateway.EventTypeToken
	}

	resp, err := h.Gateway.Handle(r.Context(), event)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("authorizer failed", logger.Error(err))
		writeError(w, errors.Join(ErrInternalError, err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp, http.StatusOK)
}
