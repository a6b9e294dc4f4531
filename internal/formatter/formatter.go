// package formatter renders vibe reports as plain text, Markdown, CSV or JSON and writes them to disk
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/vibes/internal/models"
	"github.com/desertthunder/vibes/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatText, FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat validates a format name. "txt" and "md" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, s)
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// ToCSV converts a report to CSV with columns: Position, Song, Artist, Matched, Track ID, URI, URL
func ToCSV(r *models.Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Song", "Artist", "Matched", "Track ID", "URI", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, e := range r.Entries {
		record := []string{strconv.Itoa(i + 1), e.Song, e.Artist, strconv.FormatBool(e.Matched()), "", "", ""}
		if e.Matched() {
			record[4], record[5], record[6] = e.Track.ID, e.Track.URI, e.Track.PlayURL()
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ToMarkdown converts a report to Markdown with an optional cover image
func ToMarkdown(r *models.Report, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", r.Name)
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if r.Prompt != "" {
		fmt.Fprintf(&buf, "> %s\n\n", r.Prompt)
	}

	if p := r.Parsed; p != nil {
		if p.Mood != "" {
			fmt.Fprintf(&buf, "**Mood**: %s\n", p.Mood)
		}
		if p.Genre != "" {
			fmt.Fprintf(&buf, "**Genre**: %s\n", p.Genre)
		}
		if len(p.Artists) > 0 {
			fmt.Fprintf(&buf, "**Artists**: %s\n", strings.Join(p.Artists, ", "))
		}
		if len(p.Recommendations) > 0 {
			fmt.Fprintf(&buf, "**Similar**: %s\n", strings.Join(p.Recommendations, ", "))
		}
	}
	fmt.Fprintf(&buf, "**Tracks**: %d of %d matched\n", r.MatchedCount(), len(r.Entries))
	if r.Playlist != nil && r.Playlist.URL != "" {
		fmt.Fprintf(&buf, "**Playlist**: [%s](%s)\n", r.Playlist.Name, r.Playlist.URL)
	}

	buf.WriteString("\n## Tracks\n\n")
	for i, e := range r.Entries {
		if !e.Matched() {
			fmt.Fprintf(&buf, "%d. ~~%s - %s~~ (no match)\n", i+1, e.Artist, e.Song)
			continue
		}
		fmt.Fprintf(&buf, "%d. [%s - %s](%s)\n", i+1, e.Track.PrimaryArtist(), e.Track.Name, e.Track.PlayURL())
	}
	return buf.Bytes(), nil
}

// ToText converts a report to plain text
func ToText(r *models.Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", r.Name)
	if p := r.Parsed; p != nil {
		if p.Mood != "" {
			fmt.Fprintf(&buf, "Mood: %s\n", p.Mood)
		}
		if p.Genre != "" {
			fmt.Fprintf(&buf, "Genre: %s\n", p.Genre)
		}
	}
	fmt.Fprintf(&buf, "Tracks: %d/%d matched\n", r.MatchedCount(), len(r.Entries))
	if r.Playlist != nil && r.Playlist.URL != "" {
		fmt.Fprintf(&buf, "URL: %s\n", r.Playlist.URL)
	}
	buf.WriteString("\n")

	for i, e := range r.Entries {
		if e.Matched() {
			fmt.Fprintf(&buf, "%2d. %s - %s  %s\n", i+1, e.Artist, e.Song, e.Track.PlayURL())
		} else {
			fmt.Fprintf(&buf, "%2d. %s - %s  (no match)\n", i+1, e.Artist, e.Song)
		}
	}
	return buf.Bytes(), nil
}

// ToJSON converts a report to indented JSON
func ToJSON(r *models.Report) ([]byte, error) {
	return shared.MarshalJSON(r, true)
}

// Render writes the report to w in the given format.
func Render(w io.Writer, r *models.Report, f Format) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatMarkdown:
		data, err = ToMarkdown(r, r.CoverURL())
	case FormatCSV:
		data, err = ToCSV(r)
	case FormatJSON:
		data, err = ToJSON(r)
	default:
		data, err = ToText(r)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidInput)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return imageData, nil
}

// WriteOptions controls [WriteReport].
type WriteOptions struct {
	Format     Format
	Dir        string       // output directory, created if missing
	BaseName   string       // file name without extension
	WithCover  bool         // Markdown only: download the cover image next to the file
	HTTPClient *http.Client // used for the cover download
}

// WriteResult lists the files produced by [WriteReport].
type WriteResult struct {
	Files      []string
	CoverImage string
}

// WriteReport writes a report to {dir}/{base}{ext}.
//
// Markdown exports get a dedicated {dir}/{base}/ directory holding README.md and, when requested, cover.jpg.
// A failed cover download is not fatal; the document is written without the image.
func WriteReport(ctx context.Context, r *models.Report, opts WriteOptions) (*WriteResult, error) {
	if opts.BaseName == "" {
		opts.BaseName = Slug(r.Name)
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &WriteResult{Files: []string{}}

	if opts.Format == FormatMarkdown {
		dir := filepath.Join(opts.Dir, opts.BaseName)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		var coverFilename string
		if url := r.CoverURL(); opts.WithCover && url != "" {
			if img, err := DownloadImage(ctx, opts.HTTPClient, url); err == nil {
				coverPath := filepath.Join(dir, "cover.jpg")
				if err := os.WriteFile(coverPath, img, 0644); err == nil {
					coverFilename = "cover.jpg"
					result.CoverImage = coverPath
					result.Files = append(result.Files, coverPath)
				}
			}
		}

		data, err := ToMarkdown(r, coverFilename)
		if err != nil {
			return nil, fmt.Errorf("failed to generate Markdown: %w", err)
		}
		mdFile := filepath.Join(dir, "README.md")
		if err := os.WriteFile(mdFile, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write Markdown file: %w", err)
		}
		result.Files = append(result.Files, mdFile)
		return result, nil
	}

	var buf bytes.Buffer
	if err := Render(&buf, r, opts.Format); err != nil {
		return nil, err
	}

	path := filepath.Join(opts.Dir, opts.BaseName+opts.Format.Ext())
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s file: %w", opts.Format, err)
	}
	result.Files = append(result.Files, path)
	return result, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Slug converts a name into a lowercase, dash-separated file name.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "vibe"
	}
	return s
}
