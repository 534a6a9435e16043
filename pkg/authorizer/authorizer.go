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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/encoding/jwt"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/jwks"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/metrics"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/policy"
)

// BearerPrefix is stripped from the credential before parsing.
const BearerPrefix = "Bearer "

// TokenUseID is the token_use of Cognito id tokens.
const TokenUseID = "id"

// Config is the deployment-specific input of an Authorizer.
type Config struct {
	// ClientID is the app client id tokens must be issued to (aud).
	ClientID string
	// Issuer is the exact iss tokens must carry.
	Issuer string
	// Resource is the execute-api ARN granted on Allow.
	Resource string
}

// Decision is the outcome of one Authorize call.
type Decision struct {
	Effect policy.Effect `json:"effect"`
	// Reason is empty on Allow.
	Reason Reason `json:"reason,omitempty"`
	// Principal is the sub claim on Allow.
	Principal string `json:"principal,omitempty"`
	// Err is the detailed denial cause. It is never sent to callers.
	Err error `json:"-"`
	// Response is the policy document returned to API Gateway.
	Response policy.Response `json:"response"`
}

// Allowed reports whether the decision is Allow.
func (d Decision) Allowed() bool {
	return d.Effect == policy.Allow
}

// Authorizer validates credentials. It holds no per-call state and is safe
// for concurrent use.
type Authorizer struct {
	clientID string
	issuer   string
	resource string
	tokenUse []string
	resolver jwks.Resolver
	verifier *jwt.Verifier
	log      logger.Logger
	now      func() time.Time
	metrics  bool
}

// New creates an Authorizer. Every Config field and the resolver are
// required.
func New(cfg Config, resolver jwks.Resolver, opts ...Option) (*Authorizer, error) {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "client id")
	}
	if cfg.Issuer == "" {
		missing = append(missing, "issuer")
	}
	if cfg.Resource == "" {
		missing = append(missing, "resource")
	}
	if resolver == nil {
		missing = append(missing, "key resolver")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("authorizer: missing %s", strings.Join(missing, ", "))
	}

	a := &Authorizer{
		clientID: cfg.ClientID,
		issuer:   cfg.Issuer,
		resource: cfg.Resource,
		tokenUse: []string{TokenUseID},
		resolver: resolver,
		log:      logger.Discard(),
		now:      time.Now,
		metrics:  true,
	}
	for _, opt := range opts {
		opt(a)
	}

	// The library rejects exp when now >= exp+leeway. Whole-second time and
	// one second of leeway make exp == now valid, matching Validate.
	a.verifier = jwt.NewVerifier(&jwt.VerifyOptions{
		Audience: a.clientID,
		Leeway:   time.Second,
		Now:      func() time.Time { return a.now().Truncate(time.Second) },
	})
	return a, nil
}

// Authorize runs the verification pipeline on credential and returns an
// Allow or Deny decision. It never fails; every error becomes a Deny.
func (a *Authorizer) Authorize(ctx context.Context, credential string) Decision {
	start := time.Now()
	log := a.log.WithContext(ctx)

	claims, err := a.verify(ctx, log, credential)
	if err == nil {
		err = a.validate(log, claims, a.clientID)
	}

	var decision Decision
	if err != nil {
		reason := ReasonOf(err)
		decision = Decision{
			Effect:   policy.Deny,
			Reason:   reason,
			Err:      err,
			Response: policy.DenyResponse(),
		}
		log.Warn("authorization denied",
			logger.String("reason", reason.String()),
			logger.Error(err))
	} else {
		decision = Decision{
			Effect:    policy.Allow,
			Principal: claims.Subject(),
			Response:  policy.AllowResponse(a.resource),
		}
		log.Info("authorization allowed",
			logger.String("sub", decision.Principal),
			logger.String("kid", claims.KeyID()))
	}

	if a.metrics {
		metrics.RecordDecision(decision.Effect.String(), decision.Reason.String(), time.Since(start).Seconds())
	}
	return decision
}

// verify runs steps one to five and returns the verified claims.
func (a *Authorizer) verify(ctx context.Context, log logger.Logger, credential string) (*jwt.VerifiedClaims, error) {
	token := strings.TrimSpace(strings.TrimPrefix(credential, BearerPrefix))
	if token == "" || token == strings.TrimSpace(BearerPrefix) {
		return nil, deny(ReasonMissingCredential, errors.New("no bearer token supplied"))
	}

	header, err := jwt.ParseHeader(token)
	if err != nil {
		return nil, deny(ReasonMalformedToken, err)
	}
	log = log.With(logger.String("kid", header.KeyID))

	key, err := a.resolver.SigningKey(ctx, header.KeyID)
	if err != nil {
		return nil, deny(ReasonKeyResolutionFailure, err)
	}
	log.Debug("signing key resolved",
		logger.String("alg", key.Algorithm),
		logger.String("thumbprint", key.Thumbprint()))

	if header.Algorithm == "" {
		return nil, deny(ReasonMissingAlgorithm, jwt.ErrMissingAlgorithm)
	}
	if key.Algorithm != "" && key.Algorithm != header.Algorithm {
		return nil, denyf(ReasonSignatureInvalid, "%w: key %q is bound to %s, token names %s",
			jwt.ErrSignatureInvalid, key.KeyID, key.Algorithm, header.Algorithm)
	}

	claims, err := a.verifier.Verify(token, header, key.Key)
	if err != nil {
		return nil, deny(verificationReason(err), err)
	}
	return claims, nil
}
