// package tasks turns a vibe into resolved tracks and saved playlists.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/resolver"
	"github.com/desertthunder/vibes/internal/services"
	"github.com/desertthunder/vibes/internal/shared"
)

// BuildResult contains the data from a playlist build.
type BuildResult struct {
	Playlist *models.Playlist      // Created playlist, set even when adding tracks failed
	Entries  []models.ResolvedEntry // One entry per requested song, in request order
	Added    int                    // Number of tracks added to the playlist
}

// RunOptions controls [PlaylistEngine.Run].
type RunOptions struct {
	Build  bool   // assemble a playlist from the matched tracks
	UserID string // playlist owner; looked up from the credential when empty
}

// Engine defines the vibe to playlist operations.
type Engine interface {
	// Generate asks the generative text service for a mood, genre and song list.
	Generate(ctx context.Context, prompt string, progress chan<- ProgressUpdate) (*services.ParseOutcome, error)

	// FetchTracks resolves every song concurrently and returns one entry per song in request order.
	FetchTracks(ctx context.Context, token string, songs []models.SongRequest, progress chan<- ProgressUpdate) ([]models.ResolvedEntry, error)

	// Build resolves the parsed songs, creates a playlist named after the mood and adds the matches.
	Build(ctx context.Context, token, userID string, parsed *models.ParsedPrompt, progress chan<- ProgressUpdate) (*BuildResult, error)
}

// PlaylistEngine implements Engine on top of a prompt parser, a track resolver and a catalog.
type PlaylistEngine struct {
	parser   services.PromptParser
	resolver *resolver.Resolver
	catalog  services.Catalog
	logger   *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine. Any dependency may be nil when the operations needing it are unused.
func NewPlaylistEngine(parser services.PromptParser, res *resolver.Resolver, catalog services.Catalog, logger *log.Logger) *PlaylistEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PlaylistEngine{
		parser:   parser,
		resolver: res,
		catalog:  catalog,
		logger:   shared.WithLogger(logger, "component", "engine"),
	}
}

// PlaylistName returns "<mood> Vibe Playlist", using "My" when the mood is blank.
func PlaylistName(mood string) string {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		mood = "My"
	}
	return mood + " Vibe Playlist"
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Generate parses a vibe into structured playlist data.
func (e *PlaylistEngine) Generate(ctx context.Context, prompt string, progress chan<- ProgressUpdate) (*services.ParseOutcome, error) {
	if e.parser == nil {
		return nil, fmt.Errorf("%w: generator not configured", shared.ErrServiceUnavailable)
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}

	e.sendProgress(progress, parsePromptUpdate(prompt))

	outcome, err := e.parser.Parse(ctx, prompt)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, parsedPromptUpdate(outcome))
	return outcome, nil
}

// FetchTracks resolves songs against the catalog. Unmatched songs are kept with a nil track.
func (e *PlaylistEngine) FetchTracks(ctx context.Context, token string, songs []models.SongRequest, progress chan<- ProgressUpdate) ([]models.ResolvedEntry, error) {
	if e.resolver == nil {
		return nil, fmt.Errorf("%w: resolver not configured", shared.ErrServiceUnavailable)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: access token", shared.ErrNotAuthenticated)
	}

	total := len(songs)
	e.sendProgress(progress, searchTracksUpdate(0, total))

	resolutions := e.resolver.ResolveBatch(ctx, token, songs, func(done, total int) {
		e.sendProgress(progress, searchTracksUpdate(done, total))
	})

	entries := make([]models.ResolvedEntry, len(resolutions))
	for i, res := range resolutions {
		entries[i] = res.Entry()
	}

	matched := len(models.Matched(entries))
	e.logger.Info("resolved tracks", "matched", matched, "total", total)
	e.sendProgress(progress, resolvedTracksUpdate(matched, total, entries))
	return entries, nil
}

// Build creates a playlist from the parsed songs.
//
// When adding tracks fails after the playlist was created, the empty playlist is left in place and
// the result is returned together with the error. No add request is made when nothing matched.
func (e *PlaylistEngine) Build(ctx context.Context, token, userID string, parsed *models.ParsedPrompt, progress chan<- ProgressUpdate) (*BuildResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not configured", shared.ErrServiceUnavailable)
	}
	if parsed == nil {
		return nil, fmt.Errorf("%w: parsed data", shared.ErrMissingArgument)
	}

	entries, err := e.FetchTracks(ctx, token, parsed.Playlist, progress)
	if err != nil {
		return nil, err
	}
	result := &BuildResult{Entries: entries}

	if userID == "" {
		e.sendProgress(progress, lookupUserUpdate())
		if userID, err = e.catalog.CurrentUserID(ctx, token); err != nil {
			return nil, fmt.Errorf("failed to look up account: %w", err)
		}
	}

	name := PlaylistName(parsed.Mood)
	e.sendProgress(progress, createPlaylistUpdate(name))

	pl, err := e.catalog.CreatePlaylist(ctx, token, userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	result.Playlist = pl

	ids := models.TrackIDs(entries)
	if len(ids) == 0 {
		e.logger.Warn("no tracks matched, playlist left empty", "playlist", pl.ID)
		e.sendProgress(progress, playlistReadyUpdate(pl, 0))
		return result, nil
	}

	e.sendProgress(progress, addTracksUpdate(len(ids)))
	if err := e.catalog.AddTracks(ctx, token, pl.ID, ids); err != nil {
		e.logger.Error("playlist created but tracks were not added", "playlist", pl.ID, "err", err)
		return result, fmt.Errorf("playlist %s created without tracks: %w", pl.ID, err)
	}
	result.Added = len(ids)

	e.sendProgress(progress, playlistReadyUpdate(pl, result.Added))
	return result, nil
}

// Run takes a vibe through generation, resolution and, when requested, playlist assembly.
//
// Model output that cannot be decoded is reported as [shared.ErrMalformedOutput] carrying the warning.
func (e *PlaylistEngine) Run(ctx context.Context, token, prompt string, opts RunOptions, progress chan<- ProgressUpdate) (*models.Report, error) {
	outcome, err := e.Generate(ctx, prompt, progress)
	if err != nil {
		return nil, err
	}
	if !outcome.OK() {
		return nil, fmt.Errorf("%w: %s", shared.ErrMalformedOutput, outcome.Warning)
	}

	report := &models.Report{
		Name:   PlaylistName(outcome.Parsed.Mood),
		Prompt: prompt,
		Parsed: outcome.Parsed,
	}

	if !opts.Build {
		entries, err := e.FetchTracks(ctx, token, outcome.Parsed.Playlist, progress)
		if err != nil {
			return nil, err
		}
		report.Entries = entries
		return report, nil
	}

	result, err := e.Build(ctx, token, opts.UserID, outcome.Parsed, progress)
	if result != nil {
		report.Entries = result.Entries
		report.Playlist = result.Playlist
	}
	if err != nil {
		return report, err
	}
	return report, nil
}
