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
	"context"

	"github.com/spf13/cobra"
)

func newKeysCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the signing keys the authorizer trusts",
		Long: `keys fetches the configured key set (or loads JWKS_FILE) and lists each
usable signing key with its algorithm, type and RFC 7638 thumbprint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cfg.NewApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.JWKS.FetchTimeout)
			defer cancel()
			keys, err := app.Keys.Keys(ctx)
			if err != nil {
				return err
			}

			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintKeys(keys)
		},
	}
}
