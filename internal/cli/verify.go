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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/correlation"
	"github.com/spf13/cobra"
)

// ErrDenied is returned by verify when the token is denied, so the exit
// status reflects the decision.
var ErrDenied = errors.New("token denied")

func newVerifyCmd(cfg *Config) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the authorizer once against a token",
		Long: `verify runs the full verification pipeline on a token and prints the
decision and the policy document. The token is read from --token or, when
absent, from the first line of stdin. A "Bearer " prefix is accepted.

The command exits non-zero when the token is denied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("token") {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				token = line
			}

			app, err := cfg.NewApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx := correlation.WithCorrelationID(cmd.Context(), correlation.NewID())
			decision := app.Authorizer.Authorize(ctx, token)

			if err := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintDecision(decision); err != nil {
				return err
			}
			if !decision.Allowed() {
				return fmt.Errorf("%w: %s", ErrDenied, decision.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "token to verify (default: read from stdin)")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	return "", nil
}
