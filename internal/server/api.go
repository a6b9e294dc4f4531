package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/services"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/desertthunder/vibes/internal/tasks"
	"golang.org/x/oauth2"
)

const (
	// StateCookie holds the OAuth state between /auth/login and /auth/callback.
	StateCookie = "spotify_auth_state"

	stateCookieMaxAge = 10 * 60
	maxBodyBytes      = 1 << 20
)

// Authorizer performs the OAuth2 authorization code flow.
type Authorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Profiles looks up the account that owns a credential.
type Profiles interface {
	CurrentUserID(ctx context.Context, token string) (string, error)
}

// APIOptions configures an [API].
type APIOptions struct {
	Engine      tasks.Engine
	Auth        Authorizer
	Profiles    Profiles
	FrontendURL string // when set, /auth/callback redirects here with the tokens in the query
	Logger      *log.Logger
}

// API serves the browser-facing HTTP surface: health, OAuth, prompt parsing, track resolution and playlist building.
type API struct {
	engine      tasks.Engine
	auth        Authorizer
	profiles    Profiles
	frontendURL string
	logger      *log.Logger
}

// NewAPI creates an API.
func NewAPI(opts APIOptions) *API {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &API{
		engine:      opts.Engine,
		auth:        opts.Auth,
		profiles:    opts.Profiles,
		frontendURL: opts.FrontendURL,
		logger:      shared.WithLogger(opts.Logger, "component", "api"),
	}
}

// Register adds the API routes to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.Health))
	r.Handle(http.MethodGet, "/auth/login", http.HandlerFunc(a.Login))
	r.Handle(http.MethodGet, "/auth/callback", http.HandlerFunc(a.Callback))
	r.Handle(http.MethodGet, "/auth/refresh_token", http.HandlerFunc(a.RefreshToken))
	r.Handle(http.MethodPost, "/api/parse-prompt", http.HandlerFunc(a.ParsePrompt))
	r.Handle(http.MethodPost, "/api/spotify/fetch-tracks", http.HandlerFunc(a.FetchTracks))
	r.Handle(http.MethodPost, "/api/spotify/build-playlist", http.HandlerFunc(a.BuildPlaylist))
	r.Handle(http.MethodGet, "/api/spotify/me", http.HandlerFunc(a.Me))
}

// NewHandler builds the complete service handler: routes, panic recovery, request logging and CORS.
func NewHandler(api *API, allowedOrigins []string, logger *log.Logger) http.Handler {
	router := NewBasicRouter()
	router.Use(Recoverer(logger))
	api.Register(router)
	return Chain(router, RequestLogger(logger), CORS(allowedOrigins))
}

// Health reports that the service is up.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Backend is up and running!"})
}

// Login redirects to the identity provider with a fresh state, remembered in a short-lived cookie.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "Authentication is not configured")
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		a.logger.Error("failed to generate state", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to start login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.auth.AuthURL(state), http.StatusFound)
}

// Callback verifies the state and exchanges the authorization code for tokens.
func (a *API) Callback(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "Authentication is not configured")
		return
	}

	q := r.URL.Query()
	cookie, err := r.Cookie(StateCookie)
	if err != nil || q.Get("state") == "" || cookie.Value != q.Get("state") {
		a.logger.Warn("state mismatch on callback", "request_id", RequestID(r.Context()))
		writeError(w, http.StatusBadRequest, "state_mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: StateCookie, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true})

	if e := q.Get("error"); e != "" {
		writeError(w, http.StatusBadRequest, "Authorization denied: "+e)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	token, err := a.auth.Exchange(r.Context(), code)
	if err != nil {
		a.logUpstream(r, "error exchanging code for tokens", err)
		writeError(w, http.StatusInternalServerError, "Failed to exchange code for tokens")
		return
	}

	resp := services.NewTokenResponse(token)
	if a.frontendURL != "" {
		target, err := a.frontendRedirect(resp)
		if err == nil {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		a.logger.Error("invalid frontend url", "url", a.frontendURL, "err", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// frontendRedirect merges the tokens into the frontend URL's existing query, keeping any fragment.
func (a *API) frontendRedirect(t services.TokenResponse) (string, error) {
	u, err := url.Parse(a.frontendURL)
	if err != nil {
		return "", err
	}

	v := u.Query()
	v.Set("access_token", t.AccessToken)
	if t.RefreshToken != "" {
		v.Set("refresh_token", t.RefreshToken)
	}
	v.Set("expires_in", strconv.FormatInt(t.ExpiresIn, 10))
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (a *API) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "Authentication is not configured")
		return
	}

	refresh := r.URL.Query().Get("refresh_token")
	if refresh == "" {
		writeError(w, http.StatusBadRequest, "missing refresh token")
		return
	}

	token, err := a.auth.Refresh(r.Context(), refresh)
	if err != nil {
		a.logUpstream(r, "error refreshing token", err)
		writeError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}
	writeJSON(w, http.StatusOK, services.NewTokenResponse(token))
}

type parsePromptRequest struct {
	Prompt string `json:"prompt"`
}

// ParsePrompt turns a vibe into structured data, or a warning with the raw model text.
func (a *API) ParsePrompt(w http.ResponseWriter, r *http.Request) {
	var req parsePromptRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Missing prompt")
		return
	}

	outcome, err := a.engine.Generate(r.Context(), req.Prompt, nil)
	if err != nil {
		a.logUpstream(r, "error calling generator", err)
		writeError(w, statusFor(err), "Failed to process prompt")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type tracksRequest struct {
	ParsedData         *models.ParsedPrompt `json:"parsedData"`
	SpotifyAccessToken string               `json:"spotifyAccessToken"`
	SpotifyUserID      string               `json:"spotifyUserId"`
}

type tracksResponse struct {
	Tracks []models.ResolvedEntry `json:"tracks"`
}

// FetchTracks resolves the parsed songs and returns only the matched entries, in request order.
func (a *API) FetchTracks(w http.ResponseWriter, r *http.Request) {
	var req tracksRequest
	if !a.decode(w, r, &req) {
		return
	}
	token := req.SpotifyAccessToken
	if token == "" {
		token = bearerToken(r)
	}
	if req.ParsedData == nil || token == "" {
		writeError(w, http.StatusBadRequest, "Missing parsedData or spotifyAccessToken")
		return
	}

	entries, err := a.engine.FetchTracks(r.Context(), token, req.ParsedData.Playlist, nil)
	if err != nil {
		a.logUpstream(r, "error fetching tracks", err)
		writeError(w, statusFor(err), "Failed to fetch tracks")
		return
	}
	writeJSON(w, http.StatusOK, tracksResponse{Tracks: models.Matched(entries)})
}

type buildResponse struct {
	PlaylistURL string `json:"playlistUrl"`
}

// BuildPlaylist creates a playlist from the parsed songs and returns its shareable URL.
func (a *API) BuildPlaylist(w http.ResponseWriter, r *http.Request) {
	var req tracksRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.ParsedData == nil || req.SpotifyAccessToken == "" || req.SpotifyUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing parsedData, spotifyAccessToken, or spotifyUserId")
		return
	}

	result, err := a.engine.Build(r.Context(), req.SpotifyAccessToken, req.SpotifyUserID, req.ParsedData, nil)
	if err != nil {
		a.logUpstream(r, "error building playlist", err)
		writeError(w, statusFor(err), "Failed to build Spotify playlist")
		return
	}
	writeJSON(w, http.StatusOK, buildResponse{PlaylistURL: result.Playlist.URL})
}

// Me returns the account identifier for the bearer credential.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	if a.profiles == nil {
		writeError(w, http.StatusServiceUnavailable, "Catalog is not configured")
		return
	}

	id, err := a.profiles.CurrentUserID(r.Context(), token)
	if err != nil {
		a.logUpstream(r, "error fetching profile", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch user profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if a.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "Service is not configured")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// logUpstream logs a failure with the upstream status and body when the error carries them.
func (a *API) logUpstream(r *http.Request, msg string, err error) {
	kv := []any{"err", err, "request_id", RequestID(r.Context())}

	var ue *services.UpstreamError
	if errors.As(err, &ue) {
		kv = append(kv, "service", ue.Service, "status", ue.Status, "body", ue.Body)
	}
	a.logger.Error(msg, kv...)
}

// statusFor maps an error to the response status: missing input is a client error, everything else a server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
