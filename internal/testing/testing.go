// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/services"
)

// FakeCatalog is a test double for [services.Catalog].
//
// Searches return Results[query]; queries listed in Errors fail with that error.
// Created playlists get the ID "pl-<n>" and URL "https://open.spotify.com/playlist/pl-<n>".
type FakeCatalog struct {
	Results   map[string][]models.CatalogTrack
	Errors    map[string]error
	UserID    string
	UserErr   error
	CreateErr error
	AddErr    error

	mu       sync.Mutex
	searches []string
	created  []models.Playlist
	added    map[string][]string
	owners   []string
}

func (f *FakeCatalog) SearchTracks(ctx context.Context, token, query string) ([]models.CatalogTrack, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	f.mu.Unlock()

	if err := f.Errors[query]; err != nil {
		return nil, err
	}
	return f.Results[query], nil
}

func (f *FakeCatalog) CurrentUserID(ctx context.Context, token string) (string, error) {
	if f.UserErr != nil {
		return "", f.UserErr
	}
	return f.UserID, nil
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, token, userID, name string) (*models.Playlist, error) {
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := "pl-" + strconv.Itoa(len(f.created)+1)
	pl := models.Playlist{ID: id, Name: name, URL: "https://open.spotify.com/playlist/" + id}
	f.created = append(f.created, pl)
	f.owners = append(f.owners, userID)
	return &pl, nil
}

func (f *FakeCatalog) AddTracks(ctx context.Context, token, playlistID string, trackIDs []string) error {
	if f.AddErr != nil {
		return f.AddErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.added == nil {
		f.added = map[string][]string{}
	}
	f.added[playlistID] = append(f.added[playlistID], trackIDs...)
	return nil
}

// Searches returns the queries issued so far.
func (f *FakeCatalog) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

// Created returns the playlists created so far.
func (f *FakeCatalog) Created() []models.Playlist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Playlist(nil), f.created...)
}

// Owners returns the user IDs playlists were created for.
func (f *FakeCatalog) Owners() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.owners...)
}

// Added returns the track IDs added to a playlist.
func (f *FakeCatalog) Added(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added[playlistID]...)
}

// FakeParser is a test double for [services.PromptParser].
type FakeParser struct {
	Outcome *services.ParseOutcome
	Err     error
	Prompts []string

	mu sync.Mutex
}

func (f *FakeParser) Parse(ctx context.Context, prompt string) (*services.ParseOutcome, error) {
	f.mu.Lock()
	f.Prompts = append(f.Prompts, prompt)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Outcome, nil
}

// Track builds a catalog track with predictable URI and URL fields.
func Track(id, name, artist string) models.CatalogTrack {
	return models.CatalogTrack{
		ID:           id,
		Name:         name,
		URI:          "spotify:track:" + id,
		Artists:      []string{artist},
		ExternalURLs: models.ExternalURLs{Spotify: "https://open.spotify.com/track/" + id},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
