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

package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// Effect represents the effect of a policy statement (Allow or Deny).
type Effect string

const (
	// Allow indicates the statement permits the listed actions.
	Allow Effect = "Allow"
	// Deny indicates the statement prohibits the listed actions.
	Deny Effect = "Deny"
)

// String returns the string representation of the Effect.
func (e Effect) String() string {
	return string(e)
}

const (
	// Version is the IAM policy language version.
	Version = "2012-10-17"

	// ActionInvoke is the API Gateway invoke permission.
	ActionInvoke = "execute-api:Invoke"

	// Wildcard matches every action or resource.
	Wildcard = "*"

	partitionAWS   = "aws"
	serviceExecute = "execute-api"
)

// ErrInvalidResource is returned when an execute-api ARN cannot be built or
// parsed.
var ErrInvalidResource = errors.New("invalid execute-api resource")

// Statement is a single IAM policy statement. Field order matches the
// document API Gateway expects.
type Statement struct {
	Action   string   `json:"Action" yaml:"Action"`
	Resource []string `json:"Resource" yaml:"Resource"`
	Effect   Effect   `json:"Effect" yaml:"Effect"`
}

// Document is an IAM policy document.
type Document struct {
	Version   string      `json:"Version" yaml:"Version"`
	Statement []Statement `json:"Statement" yaml:"Statement"`
}

// Response is the authorizer response envelope. No principalId or context
// is emitted.
type Response struct {
	PolicyDocument Document `json:"policyDocument" yaml:"policyDocument"`
}

// Effect returns the effect of the first statement, or Deny for an empty
// document.
func (r Response) Effect() Effect {
	if len(r.PolicyDocument.Statement) == 0 {
		return Deny
	}
	return r.PolicyDocument.Statement[0].Effect
}

// AllowResponse returns a response granting execute-api:Invoke on exactly
// the given resource.
func AllowResponse(resource string) Response {
	return Response{
		PolicyDocument: Document{
			Version: Version,
			Statement: []Statement{{
				Action:   ActionInvoke,
				Resource: []string{resource},
				Effect:   Allow,
			}},
		},
	}
}

// DenyResponse returns a response denying every action on every resource.
func DenyResponse() Response {
	return Response{
		PolicyDocument: Document{
			Version: Version,
			Statement: []Statement{{
				Action:   Wildcard,
				Resource: []string{Wildcard},
				Effect:   Deny,
			}},
		},
	}
}

// ResourceARN returns the execute-api resource covering every stage, method
// and path of the API: arn:aws:execute-api:{region}:{account}:{apiID}*.
func ResourceARN(region, accountID, apiID string) (string, error) {
	if region == "" || accountID == "" || apiID == "" {
		return "", fmt.Errorf("%w: region, account id and api id are required", ErrInvalidResource)
	}
	if strings.ContainsAny(apiID, "/*:") {
		return "", fmt.Errorf("%w: api id %q contains reserved characters", ErrInvalidResource, apiID)
	}
	return arn.ARN{
		Partition: partitionAWS,
		Service:   serviceExecute,
		Region:    region,
		AccountID: accountID,
		Resource:  apiID + Wildcard,
	}.String(), nil
}

// MethodARN is the decoded form of the methodArn an API Gateway authorizer
// event carries: arn:aws:execute-api:{region}:{account}:{apiId}/{stage}/{verb}/{path}.
type MethodARN struct {
	Region    string
	AccountID string
	APIID     string
	Stage     string
	Method    string
	Path      string
}

// ParseMethodARN decodes an execute-api method ARN. It is informational
// only; authorization decisions never depend on it.
func ParseMethodARN(s string) (*MethodARN, error) {
	parsed, err := arn.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResource, err)
	}
	if parsed.Service != serviceExecute {
		return nil, fmt.Errorf("%w: service %q", ErrInvalidResource, parsed.Service)
	}
	parts := strings.SplitN(parsed.Resource, "/", 4)
	m := &MethodARN{
		Region:    parsed.Region,
		AccountID: parsed.AccountID,
		APIID:     parts[0],
	}
	if len(parts) > 1 {
		m.Stage = parts[1]
	}
	if len(parts) > 2 {
		m.Method = parts[2]
	}
	if len(parts) > 3 {
		m.Path = "/" + parts[3]
	}
	return m, nil
}
