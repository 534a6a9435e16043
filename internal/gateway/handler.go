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

// Package gateway adapts API Gateway TOKEN authorizer events to the
// authorizer pipeline.
package gateway

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/authorizer"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/correlation"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/policy"
)

// EventTypeToken is the type API Gateway sets on TOKEN authorizer events.
const EventTypeToken = "TOKEN"

// Authorizer decides on a single credential.
type Authorizer interface {
	Authorize(ctx context.Context, credential string) authorizer.Decision
}

// Handler is the Lambda entry point.
type Handler struct {
	authz Authorizer
	log   logger.Logger
}

// NewHandler creates a Handler. A nil log discards.
func NewHandler(authz Authorizer, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{authz: authz, log: log}
}

// Handle answers one authorizer event. It never returns an error: every
// failure is already a Deny policy, and an error would make API Gateway
// answer 500 instead of 403.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayCustomAuthorizerRequest) (policy.Response, error) {
	ctx = correlation.FromLambda(ctx)
	log := h.log.WithContext(ctx)

	if event.Type != "" && event.Type != EventTypeToken {
		log.Warn("unexpected authorizer event type", logger.String("type", event.Type))
	}
	if method, err := policy.ParseMethodARN(event.MethodArn); err == nil {
		log.Debug("authorizing request",
			logger.String("api_id", method.APIID),
			logger.String("stage", method.Stage),
			logger.String("method", method.Method),
			logger.String("path", method.Path))
	} else if event.MethodArn != "" {
		log.Debug("unparseable method arn", logger.Error(err))
	}

	decision := h.authz.Authorize(ctx, event.AuthorizationToken)
	return decision.Response, nil
}
