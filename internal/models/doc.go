// Package models defines the data transfer objects shared by the resolver, services, and HTTP layers.
//
//   - [SongRequest] : a (song, artist) pair produced by the generative text step
//   - [ParsedPrompt] : the structured vibe extracted from free text
//   - [CatalogTrack] : a catalog track record, forwarded as-is to callers
//   - [ResolvedEntry] : a request paired with its catalog match or an explicit absence
//   - [Playlist] : a playlist created in the user's account
//
// JSON tags follow the wire shapes the browser front end consumes, so values can be written
// directly to HTTP responses.
package models
