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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremyhahn/go-cognito-authorizer/internal/gateway"
	"github.com/jeremyhahn/go-cognito-authorizer/internal/rest"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/health"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/ratelimit"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfg *Config) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the authorizer over HTTP for local testing",
		Long: `serve emulates the API Gateway authorizer call over HTTP.

POST /authorize with a TOKEN authorizer event, or with an Authorization
header, returns the policy document the Lambda would return.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default $LISTEN_ADDRESS or :8080)")
	return cmd
}

// runServe serves until ctx is done, then shuts down gracefully.
func runServe(ctx context.Context, cmd *cobra.Command, cfg *Config, listen string) error {
	app, err := cfg.NewApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if listen == "" {
		listen = app.Config.Server.Listen
	}

	tlsConfig, err := app.Config.Server.TLS.LoadTLSConfig()
	if err != nil {
		return err
	}

	checker := health.NewChecker()
	checker.RegisterCheck("jwks", health.ErrorCheck("jwks", func(ctx context.Context) error {
		_, err := app.Keys.Keys(ctx)
		return err
	}))

	limiter := ratelimit.New(&ratelimit.Config{
		RequestsPerMinute:     app.Config.Server.RateLimit.RequestsPerMinute,
		Burst:                 app.Config.Server.RateLimit.Burst,
		TrustForwardedHeaders: app.Config.Server.RateLimit.TrustForwarded,
	})
	defer limiter.Stop()

	srv, err := rest.NewServer(&rest.Config{
		Address:       listen,
		Gateway:       gateway.NewHandler(app.Authorizer, app.Logger),
		HealthChecker: checker,
		TLSConfig:     tlsConfig,
		RateLimiter:   limiter,
		Logger:        app.Logger,
	})
	if err != nil {
		return err
	}

	app.warmKeys(ctx)
	checker.MarkStarted()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		app.Logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil {
		app.Logger.Error("server exited with error", logger.Error(err))
		return err
	}
	return nil
}
