// Spotify Web API implementation of [Catalog]
package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const spotifyBaseURL = "https://api.spotify.com/v1/"

// CatalogOptions configures a [SpotifyCatalog].
type CatalogOptions struct {
	BaseURL     string       // API root, must end with a slash
	HTTPClient  *http.Client // base client wrapped with the bearer credential
	Description string       // description set on created playlists
	Public      bool         // whether created playlists are public
	Logger      *log.Logger
}

// SpotifyCatalog implements [Catalog] on top of the Spotify Web API client.
//
// A client is built per call from the caller's bearer credential, so a single SpotifyCatalog is
// shared by all users and safe for concurrent use.
type SpotifyCatalog struct {
	baseURL     string
	httpClient  *http.Client
	description string
	public      bool
	logger      *log.Logger
}

// NewSpotifyCatalog creates a SpotifyCatalog, defaulting to the public Spotify API.
func NewSpotifyCatalog(opts CatalogOptions) *SpotifyCatalog {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &SpotifyCatalog{
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		description: opts.Description,
		public:      opts.Public,
		logger:      shared.WithLogger(opts.Logger, "service", "spotify"),
	}
}

func (c *SpotifyCatalog) client(ctx context.Context, token string) (*spotify.Client, *errorRecorder) {
	base := http.DefaultTransport
	if c.httpClient != nil && c.httpClient.Transport != nil {
		base = c.httpClient.Transport
	}
	rec := &errorRecorder{base: base}
	hc := &http.Client{Transport: rec}
	if c.httpClient != nil {
		hc.Timeout = c.httpClient.Timeout
		hc.Jar = c.httpClient.Jar
		hc.CheckRedirect = c.httpClient.CheckRedirect
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return spotify.New(oauth2.NewClient(ctx, src), spotify.WithBaseURL(c.baseURL)), rec
}

// errorRecorder keeps the status and raw body of the last error response it carried.
type errorRecorder struct {
	base   http.RoundTripper
	status int
	body   string
}

func (e *errorRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := e.base.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	e.status = resp.StatusCode
	e.body = string(raw)
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	if readErr != nil {
		return nil, readErr
	}
	return resp, nil
}

// SearchTracks performs GET /search?q=<query>&type=track&limit=1.
func (c *SpotifyCatalog) SearchTracks(ctx context.Context, token, query string) ([]models.CatalogTrack, error) {
	client, rec := c.client(ctx, token)
	res, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, spotifyError("search", err, rec)
	}
	if res == nil || res.Tracks == nil {
		return nil, nil
	}

	tracks := make([]models.CatalogTrack, 0, len(res.Tracks.Tracks))
	for _, ft := range res.Tracks.Tracks {
		tracks = append(tracks, toCatalogTrack(ft))
	}
	return tracks, nil
}

// CurrentUserID performs GET /me and returns the account identifier.
func (c *SpotifyCatalog) CurrentUserID(ctx context.Context, token string) (string, error) {
	client, rec := c.client(ctx, token)
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return "", spotifyError("profile", err, rec)
	}
	return user.ID, nil
}

// CreatePlaylist performs POST /users/{id}/playlists.
func (c *SpotifyCatalog) CreatePlaylist(ctx context.Context, token, userID, name string) (*models.Playlist, error) {
	client, rec := c.client(ctx, token)
	pl, err := client.CreatePlaylistForUser(ctx, userID, name, c.description, c.public, false)
	if err != nil {
		return nil, spotifyError("create playlist", err, rec)
	}

	c.logger.Info("created playlist", "id", pl.ID, "name", pl.Name, "owner", userID)
	return &models.Playlist{
		ID:   string(pl.ID),
		Name: pl.Name,
		URL:  pl.ExternalURLs["spotify"],
	}, nil
}

// AddTracks performs POST /playlists/{id}/tracks with the tracks' URIs.
func (c *SpotifyCatalog) AddTracks(ctx context.Context, token, playlistID string, trackIDs []string) error {
	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	client, rec := c.client(ctx, token)
	if _, err := client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
		return spotifyError("add tracks", err, rec)
	}
	return nil
}

func toCatalogTrack(ft spotify.FullTrack) models.CatalogTrack {
	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, a.Name)
	}

	images := make([]models.Image, 0, len(ft.Album.Images))
	for _, img := range ft.Album.Images {
		images = append(images, models.Image{URL: img.URL, Height: int(img.Height), Width: int(img.Width)})
	}

	return models.CatalogTrack{
		ID:           string(ft.ID),
		Name:         ft.Name,
		URI:          string(ft.URI),
		Artists:      artists,
		Album:        models.Album{Name: ft.Album.Name, Images: images},
		ExternalURLs: models.ExternalURLs{Spotify: ft.ExternalURLs["spotify"]},
	}
}

// spotifyError prefers the recorded response over the client's decoded error, which drops
// plain-text and empty bodies.
func spotifyError(op string, err error, rec *errorRecorder) error {
	ue := &UpstreamError{Service: "spotify", Op: op, Err: err, Body: err.Error()}

	var serr spotify.Error
	if errors.As(err, &serr) {
		ue.Status = serr.Status
		ue.Body = serr.Message
	}
	if rec != nil && rec.status != 0 {
		ue.Status = rec.status
		ue.Body = rec.body
	}
	return ue
}
