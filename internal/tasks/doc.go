// Package tasks orchestrates the vibe to playlist pipeline with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines three operations:
//
//  1. [Engine.Generate] : Parse a vibe with the generative text service
//     - Returns mood, genre, artists and a song list
//     - Undecodable model output is returned as a warning with the raw text
//
//  2. [Engine.FetchTracks] : Resolve songs against the catalog
//     - Every song is resolved concurrently through the tiered search cascade
//     - One entry per song, in request order; unmatched songs carry no track
//
//  3. [Engine.Build] : Assemble a playlist
//     - Creates "<mood> Vibe Playlist" for the account and adds the matched tracks
//     - A failed add leaves the created playlist in place and reports the error
//
// [PlaylistEngine.Run] chains the three for the CLI and TUI, and [PlaylistEngine.Export]
// runs many vibes through a worker pool and writes a report for each.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
