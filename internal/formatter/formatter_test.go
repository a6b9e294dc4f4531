package formatter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/shared"
	th "github.com/desertthunder/vibes/internal/testing"
)

func sampleReport() *models.Report {
	matched := th.Track("trk1", "Levitating", "Dua Lipa")
	matched.Album.Images = []models.Image{{URL: "https://img/cover", Height: 640, Width: 640}}
	last := th.Track("trk3", "As It Was", "Harry Styles")

	return &models.Report{
		Name:   "Upbeat Vibe Playlist",
		Prompt: "upbeat 2020s pop",
		Parsed: &models.ParsedPrompt{
			Mood:    "Upbeat",
			Genre:   "Pop",
			Artists: []string{"Dua Lipa"},
		},
		Entries: []models.ResolvedEntry{
			{Song: "Levitating", Artist: "Dua Lipa", Track: &matched},
			{Song: "Nonexistent", Artist: "Nobody"},
			{Song: "As It Was", Artist: "Harry Styles", Track: &last},
		},
		Playlist: &models.Playlist{ID: "pl1", Name: "Upbeat Vibe Playlist", URL: "https://open.spotify.com/playlist/pl1"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"", FormatText},
		{"txt", FormatText},
		{"TEXT", FormatText},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"csv", FormatCSV},
		{" json ", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("ToCSV", func(t *testing.T) {
		data, err := ToCSV(sampleReport())
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
		}
		if lines[0] != "Position,Song,Artist,Matched,Track ID,URI,URL" {
			t.Errorf("unexpected headers: %s", lines[0])
		}
		if lines[1] != "1,Levitating,Dua Lipa,true,trk1,spotify:track:trk1,https://open.spotify.com/track/trk1" {
			t.Errorf("unexpected matched row: %s", lines[1])
		}
		if lines[2] != "2,Nonexistent,Nobody,false,,," {
			t.Errorf("unexpected unmatched row: %s", lines[2])
		}
	})

	t.Run("ToMarkdown", func(t *testing.T) {
		data, err := ToMarkdown(sampleReport(), "cover.jpg")
		if err != nil {
			t.Fatalf("ToMarkdown failed: %v", err)
		}

		output := string(data)
		expected := []string{
			"# Upbeat Vibe Playlist",
			"![Cover](cover.jpg)",
			"> upbeat 2020s pop",
			"**Mood**: Upbeat",
			"**Genre**: Pop",
			"**Tracks**: 2 of 3 matched",
			"**Playlist**: [Upbeat Vibe Playlist](https://open.spotify.com/playlist/pl1)",
			"1. [Dua Lipa - Levitating](https://open.spotify.com/track/trk1)",
			"2. ~~Nobody - Nonexistent~~ (no match)",
		}
		for _, want := range expected {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ToMarkdown Without Image", func(t *testing.T) {
		data, _ := ToMarkdown(&models.Report{Name: "My Vibe Playlist"}, "")
		if strings.Contains(string(data), "![Cover]") {
			t.Error("expected no cover image")
		}
	})

	t.Run("ToText", func(t *testing.T) {
		data, err := ToText(sampleReport())
		if err != nil {
			t.Fatalf("ToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"Playlist: Upbeat Vibe Playlist",
			"Tracks: 2/3 matched",
			"URL: https://open.spotify.com/playlist/pl1",
			" 1. Dua Lipa - Levitating  https://open.spotify.com/track/trk1",
			" 2. Nobody - Nonexistent  (no match)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ToJSON", func(t *testing.T) {
		data, err := ToJSON(sampleReport())
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}

		var decoded struct {
			Name   string `json:"name"`
			Tracks []struct {
				Song         string          `json:"song"`
				SpotifyTrack json.RawMessage `json:"spotifyTrack"`
			} `json:"tracks"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Name != "Upbeat Vibe Playlist" || len(decoded.Tracks) != 3 {
			t.Errorf("unexpected report: %+v", decoded)
		}
		if decoded.Tracks[1].SpotifyTrack != nil {
			t.Error("expected unmatched entry to omit spotifyTrack")
		}
	})
}

func TestRender(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Render(&buf, sampleReport(), f); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if buf.Len() == 0 {
				t.Error("expected output")
			}
		})
	}

	t.Run("Writer Failure", func(t *testing.T) {
		if err := Render(&th.FWriter{}, sampleReport(), FormatText); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestWriteReport(t *testing.T) {
	ctx := context.Background()

	t.Run("CSV", func(t *testing.T) {
		dir := t.TempDir()
		result, err := WriteReport(ctx, sampleReport(), WriteOptions{Format: FormatCSV, Dir: dir})
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}

		want := filepath.Join(dir, "upbeat-vibe-playlist.csv")
		if len(result.Files) != 1 || result.Files[0] != want {
			t.Fatalf("expected %s, got %v", want, result.Files)
		}
		if !strings.Contains(th.MustReadFile(t, want), "trk1") {
			t.Error("CSV missing track data")
		}
	})

	t.Run("Markdown With Cover", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg-bytes"))
		}))
		defer server.Close()

		report := sampleReport()
		report.Entries[0].Track.Album.Images[0].URL = server.URL + "/cover.jpg"

		dir := t.TempDir()
		result, err := WriteReport(ctx, report, WriteOptions{Format: FormatMarkdown, Dir: dir, BaseName: "upbeat", WithCover: true})
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}

		th.AssertDirExists(t, filepath.Join(dir, "upbeat"))
		th.AssertFileExists(t, filepath.Join(dir, "upbeat", "README.md"))
		if result.CoverImage != filepath.Join(dir, "upbeat", "cover.jpg") {
			t.Errorf("unexpected cover path %q", result.CoverImage)
		}
		if th.MustReadFile(t, result.CoverImage) != "jpeg-bytes" {
			t.Error("cover image content mismatch")
		}
		if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "upbeat", "README.md")), "![Cover](cover.jpg)") {
			t.Error("expected README to reference the cover")
		}
	})

	t.Run("Markdown Cover Failure Is Not Fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		report := sampleReport()
		report.Entries[0].Track.Album.Images[0].URL = server.URL + "/missing.jpg"

		result, err := WriteReport(ctx, report, WriteOptions{Format: FormatMarkdown, Dir: t.TempDir(), WithCover: true})
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if result.CoverImage != "" || len(result.Files) != 1 {
			t.Errorf("expected README only, got %+v", result)
		}
	})

	t.Run("Manifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.json")
		if err := WriteManifest(map[string]int{"reports": 2}, path); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}
		if !strings.Contains(th.MustReadFile(t, path), `"reports": 2`) {
			t.Error("manifest content mismatch")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty URL", func(t *testing.T) {
		if _, err := DownloadImage(ctx, nil, ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Transport Error", func(t *testing.T) {
		client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("connection refused"))}
		if _, err := DownloadImage(ctx, client, "https://img/cover"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Body Read Error", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &th.FCloser{}}
		client := &http.Client{Transport: th.NewMockRoundTripper(resp, nil)}
		if _, err := DownloadImage(ctx, client, "https://img/cover"); err == nil {
			t.Error("expected read error")
		}
	})
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Chill Vibe Playlist": "chill-vibe-playlist",
		"  Lo-Fi // Beats!! ": "lo-fi-beats",
		"???":                 "vibe",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
