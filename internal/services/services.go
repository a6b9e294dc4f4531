// package services defines clients for the external collaborators: the music catalog,
// the OAuth identity provider, and the generative text API.
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/shared"
)

// Catalog defines the music catalog operations used to resolve tracks and assemble playlists.
//
// Every call takes the end user's bearer credential; implementations hold no per-user state.
type Catalog interface {
	// SearchTracks runs a track search limited to one result and returns the items in catalog order.
	SearchTracks(ctx context.Context, token, query string) ([]models.CatalogTrack, error)

	// CurrentUserID returns the account identifier that owns the credential.
	CurrentUserID(ctx context.Context, token string) (string, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, token, userID, name string) (*models.Playlist, error)

	// AddTracks appends tracks to a playlist.
	AddTracks(ctx context.Context, token, playlistID string, trackIDs []string) error
}

// PromptParser turns a free-text vibe into structured playlist data.
type PromptParser interface {
	Parse(ctx context.Context, prompt string) (*ParseOutcome, error)
}

// UpstreamError describes a failed call to an external service.
//
// Status is zero when no HTTP response was received. Body holds the raw error body or the
// provider's error message when the body itself is unavailable.
type UpstreamError struct {
	Service string
	Op      string
	Status  int
	Body    string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Service, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is reports UpstreamError as a [shared.ErrAPIRequest].
func (e *UpstreamError) Is(target error) bool { return target == shared.ErrAPIRequest }

// StatusCode returns the HTTP status of the failed response, or zero.
func (e *UpstreamError) StatusCode() int { return e.Status }

// RawBody returns the error body reported by the service.
func (e *UpstreamError) RawBody() string { return e.Body }
