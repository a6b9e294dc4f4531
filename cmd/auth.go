package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/vibes/internal/server"
	"github.com/desertthunder/vibes/internal/services"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultLoginTimeout = 2 * time.Minute

// Login performs the OAuth2 authorization code flow from the terminal.
//
// Starts a local HTTP server on the configured redirect URI, opens the browser for user authorization
// and prints the exchanged tokens as JSON.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.newAuthenticator()
	if err != nil {
		return err
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}

	token, err := r.doOAuth(ctx, auth, timeout, !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	return r.writeJSON(services.NewTokenResponse(token), cmd.Bool("pretty"))
}

// Refresh exchanges a refresh token for a new access token.
func (r *Runner) Refresh(ctx context.Context, cmd *cli.Command) error {
	refreshToken := cmd.String("refresh-token")
	if refreshToken == "" {
		return fmt.Errorf("%w: --refresh-token", shared.ErrMissingArgument)
	}

	auth, err := r.newAuthenticator()
	if err != nil {
		return err
	}

	token, err := auth.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	return r.writeJSON(services.NewTokenResponse(token), cmd.Bool("pretty"))
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server bound to the redirect URI.
func (r *Runner) doOAuth(ctx context.Context, auth server.Authorizer, timeout time.Duration, openBrowser bool) (*oauth2.Token, error) {
	redirect, err := url.Parse(r.cfg().Credentials.Spotify.RedirectURI)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, r.cfg().Credentials.Spotify.RedirectURI)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := auth.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(auth, state, redirect.Path)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()

	srv := server.New(redirect.Host, router, r.logger)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", redirect.Host)
		serverErrors <- srv.ListenAndServe(srvCtx)
	}()

	if openBrowser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	} else {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	stop()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}
