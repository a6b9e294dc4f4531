package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/vibes/internal/formatter"
	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/resolver"
	"github.com/desertthunder/vibes/internal/services"
	"github.com/desertthunder/vibes/internal/shared"
	th "github.com/desertthunder/vibes/internal/testing"
)

func exactQuery(song, artist string) string {
	return resolver.TierExact.Query(song, artist)
}

// newEngine wires a PlaylistEngine over fakes. Songs listed in matched resolve on the first tier.
func newEngine(parser services.PromptParser, catalog *th.FakeCatalog) *PlaylistEngine {
	logger := shared.NewLogger(io.Discard)
	res := resolver.New(resolver.Options{Catalog: catalog, Logger: logger})
	return NewPlaylistEngine(parser, res, catalog, logger)
}

func songs(n int) []models.SongRequest {
	out := make([]models.SongRequest, n)
	for i := range out {
		out[i] = models.SongRequest{Song: fmt.Sprintf("Song %d", i+1), Artist: fmt.Sprintf("Artist %d", i+1)}
	}
	return out
}

// catalogMatching returns a catalog where the songs at the given indexes match on the exact tier.
func catalogMatching(reqs []models.SongRequest, indexes ...int) *th.FakeCatalog {
	c := &th.FakeCatalog{Results: map[string][]models.CatalogTrack{}, UserID: "listener42"}
	for _, i := range indexes {
		r := reqs[i]
		c.Results[exactQuery(r.Song, r.Artist)] = []models.CatalogTrack{th.Track(fmt.Sprintf("trk%d", i+1), r.Song, r.Artist)}
	}
	return c
}

func TestPlaylistName(t *testing.T) {
	tests := map[string]string{
		"Chill":     "Chill Vibe Playlist",
		"":          "My Vibe Playlist",
		"   ":       "My Vibe Playlist",
		" Dreamy  ": "Dreamy Vibe Playlist",
	}
	for mood, want := range tests {
		if got := PlaylistName(mood); got != want {
			t.Errorf("PlaylistName(%q) = %q, want %q", mood, got, want)
		}
	}
}

func TestPhaseString(t *testing.T) {
	phases := []Phase{ParsePrompt, SearchTracks, LookupUser, CreatePlaylist, AddTracks, ExportReport}
	for _, p := range phases {
		if p.String() == "" {
			t.Errorf("phase %d has no name", p)
		}
	}
	if Phase(99).String() != "" {
		t.Error("expected unknown phase to have empty name")
	}
}

func TestPlaylistEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("Generate", func(t *testing.T) {
		t.Run("Returns Parsed Outcome", func(t *testing.T) {
			parser := &th.FakeParser{Outcome: &services.ParseOutcome{Parsed: &models.ParsedPrompt{Mood: "Chill", Playlist: songs(3)}}}
			engine := newEngine(parser, &th.FakeCatalog{})
			progress := make(chan ProgressUpdate, 10)

			outcome, err := engine.Generate(ctx, "rainy sunday", progress)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !outcome.OK() || outcome.Parsed.Mood != "Chill" {
				t.Errorf("unexpected outcome: %+v", outcome)
			}
			if len(parser.Prompts) != 1 || parser.Prompts[0] != "rainy sunday" {
				t.Errorf("unexpected prompts: %v", parser.Prompts)
			}
			if len(progress) != 2 {
				t.Errorf("expected 2 progress updates, got %d", len(progress))
			}
		})

		t.Run("Empty Prompt", func(t *testing.T) {
			parser := &th.FakeParser{}
			engine := newEngine(parser, &th.FakeCatalog{})

			if _, err := engine.Generate(ctx, "", nil); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
			if len(parser.Prompts) != 0 {
				t.Error("expected parser not to be called")
			}
		})

		t.Run("No Parser", func(t *testing.T) {
			engine := NewPlaylistEngine(nil, nil, nil, shared.NewLogger(io.Discard))
			if _, err := engine.Generate(ctx, "x", nil); !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("Parser Error", func(t *testing.T) {
			engine := newEngine(&th.FakeParser{Err: shared.ErrAPIRequest}, &th.FakeCatalog{})
			if _, err := engine.Generate(ctx, "x", nil); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("FetchTracks", func(t *testing.T) {
		t.Run("Preserves Order And Marks Misses", func(t *testing.T) {
			reqs := []models.SongRequest{{Song: "A", Artist: "B"}, {Song: "C", Artist: "D"}, {Song: "E", Artist: "F"}}
			catalog := catalogMatching(reqs, 0, 2)
			engine := newEngine(nil, catalog)

			entries, err := engine.FetchTracks(ctx, "token", reqs, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(entries) != 3 {
				t.Fatalf("expected one entry per request, got %d", len(entries))
			}
			if !entries[0].Matched() || entries[1].Matched() || !entries[2].Matched() {
				t.Errorf("unexpected match pattern: %+v", entries)
			}

			matched := models.Matched(entries)
			if len(matched) != 2 || matched[0].Song != "A" || matched[1].Song != "E" {
				t.Errorf("expected A then E, got %+v", matched)
			}
		})

		t.Run("Missing Token", func(t *testing.T) {
			catalog := &th.FakeCatalog{}
			engine := newEngine(nil, catalog)

			if _, err := engine.FetchTracks(ctx, "", songs(2), nil); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if len(catalog.Searches()) != 0 {
				t.Error("expected no catalog calls")
			}
		})

		t.Run("Reports Progress", func(t *testing.T) {
			reqs := songs(4)
			engine := newEngine(nil, catalogMatching(reqs, 1))
			progress := make(chan ProgressUpdate, 20)

			if _, err := engine.FetchTracks(ctx, "token", reqs, progress); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			close(progress)

			var last ProgressUpdate
			count := 0
			for u := range progress {
				if u.Phase != SearchTracks {
					t.Errorf("unexpected phase %s", u.Phase)
				}
				last = u
				count++
			}
			if count != 6 {
				t.Errorf("expected start, 4 steps and summary, got %d updates", count)
			}
			if last.Message != "Matched 1 of 4 songs" {
				t.Errorf("unexpected summary %q", last.Message)
			}
		})

		t.Run("Full Progress Channel Does Not Block", func(t *testing.T) {
			reqs := songs(5)
			engine := newEngine(nil, catalogMatching(reqs))
			progress := make(chan ProgressUpdate)

			if _, err := engine.FetchTracks(ctx, "token", reqs, progress); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	})

	t.Run("Build", func(t *testing.T) {
		t.Run("Chill Playlist With Seven Of Ten", func(t *testing.T) {
			reqs := songs(10)
			catalog := catalogMatching(reqs, 0, 1, 2, 4, 5, 7, 9)
			engine := newEngine(nil, catalog)

			result, err := engine.Build(ctx, "token", "listener42", &models.ParsedPrompt{Mood: "Chill", Playlist: reqs}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Playlist.Name != "Chill Vibe Playlist" {
				t.Errorf("expected Chill Vibe Playlist, got %q", result.Playlist.Name)
			}

			created := catalog.Created()
			if len(created) != 1 {
				t.Fatalf("expected one playlist, got %d", len(created))
			}
			if result.Playlist.URL != created[0].URL {
				t.Errorf("expected echoed URL %q, got %q", created[0].URL, result.Playlist.URL)
			}
			if result.Added != 7 {
				t.Errorf("expected 7 tracks added, got %d", result.Added)
			}

			added := catalog.Added(result.Playlist.ID)
			want := []string{"trk1", "trk2", "trk3", "trk5", "trk6", "trk8", "trk10"}
			if strings.Join(added, ",") != strings.Join(want, ",") {
				t.Errorf("expected %v in order, got %v", want, added)
			}
		})

		t.Run("Looks Up Account When Missing", func(t *testing.T) {
			reqs := songs(2)
			catalog := catalogMatching(reqs, 0)
			engine := newEngine(nil, catalog)

			if _, err := engine.Build(ctx, "token", "", &models.ParsedPrompt{Playlist: reqs}, nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if owners := catalog.Owners(); len(owners) != 1 || owners[0] != "listener42" {
				t.Errorf("expected playlist for listener42, got %v", owners)
			}
			if created := catalog.Created(); created[0].Name != "My Vibe Playlist" {
				t.Errorf("expected default name, got %q", created[0].Name)
			}
		})

		t.Run("No Matches Skips Add", func(t *testing.T) {
			reqs := songs(3)
			catalog := catalogMatching(reqs)
			engine := newEngine(nil, catalog)

			result, err := engine.Build(ctx, "token", "listener42", &models.ParsedPrompt{Mood: "Quiet", Playlist: reqs}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.Added != 0 || len(catalog.Added(result.Playlist.ID)) != 0 {
				t.Error("expected no tracks added")
			}
		})

		t.Run("Add Failure Leaves Playlist", func(t *testing.T) {
			reqs := songs(2)
			catalog := catalogMatching(reqs, 0, 1)
			catalog.AddErr = &services.UpstreamError{Service: "spotify", Op: "add tracks", Status: 500, Err: errors.New("boom")}
			engine := newEngine(nil, catalog)

			result, err := engine.Build(ctx, "token", "listener42", &models.ParsedPrompt{Mood: "Chill", Playlist: reqs}, nil)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}
			if result == nil || result.Playlist == nil {
				t.Fatal("expected the created playlist to be reported")
			}
			if len(catalog.Created()) != 1 {
				t.Error("expected the playlist to remain created")
			}
		})

		t.Run("Create Failure", func(t *testing.T) {
			reqs := songs(1)
			catalog := catalogMatching(reqs, 0)
			catalog.CreateErr = shared.ErrAPIRequest
			engine := newEngine(nil, catalog)

			result, err := engine.Build(ctx, "token", "listener42", &models.ParsedPrompt{Playlist: reqs}, nil)
			if !errors.Is(err, shared.ErrAPIRequest) || result != nil {
				t.Errorf("expected create error and no result, got %v, %+v", err, result)
			}
		})

		t.Run("Missing Parsed Data", func(t *testing.T) {
			engine := newEngine(nil, &th.FakeCatalog{})
			if _, err := engine.Build(ctx, "token", "u", nil, nil); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("Run", func(t *testing.T) {
		t.Run("Tracks Only", func(t *testing.T) {
			reqs := songs(10)
			catalog := catalogMatching(reqs, 0, 3, 6)
			parser := &th.FakeParser{Outcome: &services.ParseOutcome{Parsed: &models.ParsedPrompt{Mood: "Upbeat", Genre: "Pop", Playlist: reqs}}}
			engine := newEngine(parser, catalog)

			report, err := engine.Run(ctx, "token", "upbeat 2020s pop", RunOptions{}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if report.Name != "Upbeat Vibe Playlist" || report.Prompt != "upbeat 2020s pop" {
				t.Errorf("unexpected report header: %+v", report)
			}
			if len(report.Entries) != 10 || report.MatchedCount() != 3 {
				t.Errorf("expected 3 of 10 matched, got %d of %d", report.MatchedCount(), len(report.Entries))
			}
			if report.Playlist != nil || len(catalog.Created()) != 0 {
				t.Error("expected no playlist without Build")
			}
		})

		t.Run("Build", func(t *testing.T) {
			reqs := songs(2)
			catalog := catalogMatching(reqs, 0, 1)
			parser := &th.FakeParser{Outcome: &services.ParseOutcome{Parsed: &models.ParsedPrompt{Mood: "Chill", Playlist: reqs}}}
			engine := newEngine(parser, catalog)

			report, err := engine.Run(ctx, "token", "chill", RunOptions{Build: true}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if report.Playlist == nil || report.Playlist.URL == "" {
				t.Fatalf("expected playlist URL, got %+v", report.Playlist)
			}
		})

		t.Run("Malformed Output", func(t *testing.T) {
			parser := &th.FakeParser{Outcome: &services.ParseOutcome{Raw: "nope", Warning: services.ParseWarning}}
			engine := newEngine(parser, &th.FakeCatalog{})

			if _, err := engine.Run(ctx, "token", "chill", RunOptions{}, nil); !errors.Is(err, shared.ErrMalformedOutput) {
				t.Errorf("expected ErrMalformedOutput, got %v", err)
			}
		})
	})

	t.Run("Export", func(t *testing.T) {
		t.Run("Writes Reports And Manifest", func(t *testing.T) {
			reqs := songs(2)
			catalog := catalogMatching(reqs, 0)
			parser := &th.FakeParser{Outcome: &services.ParseOutcome{Parsed: &models.ParsedPrompt{Mood: "Chill", Playlist: reqs}}}
			engine := newEngine(parser, catalog)
			dir := t.TempDir()

			result, err := engine.Export(ctx, "token", []string{"first", "second"}, ExportOpts{Format: formatter.FormatCSV, OutputDir: dir, NumWorkers: 2}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.SuccessfulExports != 2 || result.FailedExports != 0 {
				t.Errorf("expected 2 successes, got %+v", result)
			}
			if result.Results[0].Prompt != "first" || result.Results[1].Prompt != "second" {
				t.Errorf("expected results in prompt order, got %+v", result.Results)
			}

			th.AssertFileExists(t, filepath.Join(dir, "01-chill-vibe-playlist.csv"))
			th.AssertFileExists(t, filepath.Join(dir, "02-chill-vibe-playlist.csv"))
			manifest := th.MustReadFile(t, result.ManifestPath)
			if !strings.Contains(manifest, `"successful_exports": 2`) {
				t.Errorf("unexpected manifest: %s", manifest)
			}
		})

		t.Run("Records Failures", func(t *testing.T) {
			engine := newEngine(&th.FakeParser{Err: shared.ErrAPIRequest}, &th.FakeCatalog{})

			result, err := engine.Export(ctx, "token", []string{"one"}, ExportOpts{OutputDir: t.TempDir()}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result.FailedExports != 1 || result.Results[0].Success {
				t.Errorf("expected a recorded failure, got %+v", result.Results)
			}
			if result.Results[0].ErrorText == "" {
				t.Error("expected error text in manifest entry")
			}
		})

		t.Run("No Prompts", func(t *testing.T) {
			engine := newEngine(nil, &th.FakeCatalog{})
			if _, err := engine.Export(ctx, "token", nil, ExportOpts{}, nil); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})
}
