package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plmirror/internal/server"
	"github.com/desertthunder/plmirror/internal/shared"
)

// Serve runs the HTTP API until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		cfg.Port = port
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", shared.ErrInvalidArgument, cfg.Port)
	}

	srv := server.New(r.engine, server.Opts{
		Addr:           cfg.Addr(),
		Logger:         r.logger,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	r.logger.Info("listening", "addr", cfg.Addr(), "locks", r.config.Locks.Backend,
		"strict_ownership", r.config.Sync.StrictOwnership)
	return srv.ListenAndServe(ctx)
}
