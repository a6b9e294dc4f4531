package models

// SongRequest is a single (song, artist) pair to resolve against the catalog.
type SongRequest struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// ParsedPrompt is the structured description of a vibe returned by the generative text service.
type ParsedPrompt struct {
	Mood            string        `json:"mood"`
	Genre           string        `json:"genre"`
	Artists         []string      `json:"artists"`
	Recommendations []string      `json:"recommendations"`
	Playlist        []SongRequest `json:"playlist"`
}

// Image is a piece of album artwork at a given resolution.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Album carries the album name and its artwork, largest first as returned by the catalog.
type Album struct {
	Name   string  `json:"name,omitempty"`
	Images []Image `json:"images"`
}

// ExternalURLs holds public links to a catalog object.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// CatalogTrack is a track record owned by the catalog service.
type CatalogTrack struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	URI          string       `json:"uri"`
	Artists      []string     `json:"artists,omitempty"`
	Album        Album        `json:"album"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// PlayURL returns the external playback link.
func (t CatalogTrack) PlayURL() string {
	return t.ExternalURLs.Spotify
}

// PrimaryArtist returns the first credited artist, or an empty string.
func (t CatalogTrack) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ResolvedEntry pairs a request with its catalog match. Track is nil when there was no match.
type ResolvedEntry struct {
	Song   string        `json:"song"`
	Artist string        `json:"artist"`
	Track  *CatalogTrack `json:"spotifyTrack,omitempty"`
}

// Matched reports whether the entry has a catalog track.
func (e ResolvedEntry) Matched() bool {
	return e.Track != nil
}

// Matched returns the entries that have a catalog track, preserving their relative order.
func Matched(entries []ResolvedEntry) []ResolvedEntry {
	out := make([]ResolvedEntry, 0, len(entries))
	for _, e := range entries {
		if e.Matched() {
			out = append(out, e)
		}
	}
	return out
}

// TrackIDs returns the catalog IDs of matched entries in order.
func TrackIDs(entries []ResolvedEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Matched() {
			ids = append(ids, e.Track.ID)
		}
	}
	return ids
}

// Playlist is a playlist created in the user's account.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Report bundles the outcome of one vibe for display or export.
type Report struct {
	Name     string          `json:"name"`
	Prompt   string          `json:"prompt"`
	Parsed   *ParsedPrompt   `json:"parsedData,omitempty"`
	Entries  []ResolvedEntry `json:"tracks"`
	Playlist *Playlist       `json:"playlist,omitempty"`
}

// MatchedCount returns the number of entries with a catalog track.
func (r Report) MatchedCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Matched() {
			n++
		}
	}
	return n
}

// CoverURL returns the largest album image of the first matched track, or an empty string.
func (r Report) CoverURL() string {
	for _, e := range r.Entries {
		if e.Matched() && len(e.Track.Album.Images) > 0 {
			return e.Track.Album.Images[0].URL
		}
	}
	return ""
}
