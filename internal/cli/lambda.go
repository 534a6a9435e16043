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

package cli

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jeremyhahn/go-cognito-authorizer/internal/gateway"
	"github.com/spf13/cobra"
)

func newLambdaCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run as the API Gateway authorizer Lambda (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(cmd, cfg)
		},
	}
}

// runLambda hands control to the Lambda runtime. It only returns on a
// configuration error; lambda.Start never returns.
func runLambda(cmd *cobra.Command, cfg *Config) error {
	app, err := cfg.NewApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	app.warmKeys(cmd.Context())

	handler := gateway.NewHandler(app.Authorizer, app.Logger)
	lambda.Start(handler.Handle)
	return nil
}
