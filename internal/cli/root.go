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

// Package cli implements the authorizer command line: the Lambda entry
// point, a local HTTP emulation and offline tooling around the key set
// and configuration.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree. Running it without a
// subcommand starts the Lambda handler.
func NewRootCommand() *cobra.Command {
	cfg := NewConfig()

	rootCmd := &cobra.Command{
		Use:   "authorizer",
		Short: "Cognito JWT authorizer for API Gateway",
		Long: `authorizer validates Cognito id tokens for an API Gateway TOKEN
authorizer and answers with an Allow or Deny IAM policy.

Configuration is read from the environment:
  API_REGION, ACCOUNT_ID, API_ID            the protected API
  COGNITO_USER_POOL_ID, COGNITO_APP_CLIENT_ID  the token issuer and audience
  VERBOSE, LOG_FORMAT                       logging
  JWKS_URL, JWKS_FILE, JWKS_CACHE_TTL,
  JWKS_FETCH_TIMEOUT, JWKS_REFRESH_RATE_LIMIT  signing key resolution

Without a subcommand the Lambda runtime loop is started.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(cmd, cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "",
		"config file (YAML or JSON; default $AUTHORIZER_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputFormat, "output", "o", "text",
		"output format (text, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false,
		"debug logging (overrides VERBOSE)")

	rootCmd.AddCommand(newLambdaCmd(cfg))
	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newVerifyCmd(cfg))
	rootCmd.AddCommand(newKeysCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd(cfg))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// HandleError prints err to stderr and exits with code 1.
func HandleError(err error) {
	_ = NewPrinter(string(OutputFormatText), os.Stderr).PrintError(err)
	os.Exit(1)
}
