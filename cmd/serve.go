package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/vibes/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.cfg()
	if err := config.Validate(); err != nil {
		return err
	}

	auth, err := r.newAuthenticator()
	if err != nil {
		return err
	}
	engine, err := r.newEngine(true)
	if err != nil {
		return err
	}

	api := server.NewAPI(server.APIOptions{
		Engine:      engine,
		Auth:        auth,
		Profiles:    r.newCatalog(),
		FrontendURL: config.Server.FrontendURL,
		Logger:      r.logger,
	})
	handler := server.NewHandler(api, config.Server.AllowedOrigins, r.logger)

	addr := cmd.String("addr")
	if addr == "" {
		addr = config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(addr, handler, r.logger).ListenAndServe(ctx)
}
