// Package services implements clients for the external collaborators of the playlist builder.
//
// # Catalog
//
// [Catalog] is the abstraction over the music catalog used for track search and playlist assembly.
// [SpotifyCatalog] implements it with the zmb3/spotify client. Every call carries the end user's
// bearer credential, so one catalog value serves all users.
//
// # Identity
//
// [Authenticator] wraps [oauth2.Config] for the authorization code and refresh token grants.
// Client credentials travel as HTTP Basic auth.
//
// # Generator
//
// [Generator] asks a chat completion model to turn a vibe into mood, genre, artists and a song list.
// Model output is repaired with [CleanCompletion] before decoding. Output that still fails to decode
// is not an error: [ParseOutcome] carries a warning and the raw text instead.
//
// # Error Handling
//
// Failed upstream calls are reported as [*UpstreamError], which matches [shared.ErrAPIRequest]
// with errors.Is and exposes the HTTP status and raw body for logging.
package services
