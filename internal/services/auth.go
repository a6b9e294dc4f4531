// OAuth2 authorization code flow against the Spotify accounts service
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/vibes/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// DefaultScopes grants playlist creation in public and private playlists.
var DefaultScopes = []string{
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// AuthOptions configures an [Authenticator].
type AuthOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	HTTPClient   *http.Client
}

// Authenticator performs the OAuth2 authorization code and refresh token grants.
//
// Client credentials are sent with HTTP Basic auth (client_id:client_secret) on every token request.
type Authenticator struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewAuthenticator creates an Authenticator, defaulting to the Spotify accounts endpoints.
func NewAuthenticator(opts AuthOptions) (*Authenticator, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyauth.AuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyauth.TokenURL
	}
	if len(opts.Scopes) == 0 {
		opts.Scopes = DefaultScopes
	}

	return &Authenticator{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: opts.HTTPClient,
	}, nil
}

// Config returns the underlying OAuth2 configuration.
func (a *Authenticator) Config() *oauth2.Config {
	return a.config
}

// AuthURL returns the authorization redirect URL for the given state.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens (grant_type=authorization_code).
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := a.config.Exchange(a.withClient(ctx), code)
	if err != nil {
		return nil, tokenError("exchange", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Refresh obtains a new access token (grant_type=refresh_token).
//
// When the provider omits a new refresh token the original one is kept.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token", shared.ErrMissingArgument)
	}

	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	token, err := a.config.TokenSource(a.withClient(ctx), expired).Token()
	if err != nil {
		return nil, tokenError("refresh", shared.ErrRefreshFailed, err)
	}
	return token, nil
}

func (a *Authenticator) withClient(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func tokenError(op string, sentinel, err error) error {
	ue := &UpstreamError{Service: "accounts", Op: op, Err: fmt.Errorf("%w: %v", sentinel, err), Body: err.Error()}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			ue.Status = re.Response.StatusCode
		}
		ue.Body = string(re.Body)
	}
	return ue
}

// TokenResponse is the token payload returned to the browser, in the identity provider's shape.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// NewTokenResponse converts an [oauth2.Token] to a [TokenResponse].
func NewTokenResponse(t *oauth2.Token) TokenResponse {
	resp := TokenResponse{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if !t.Expiry.IsZero() {
		resp.ExpiresIn = int64(time.Until(t.Expiry).Round(time.Second).Seconds())
	}
	if scope, ok := t.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	return resp
}
