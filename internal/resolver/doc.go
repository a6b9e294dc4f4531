// Package resolver converts model-generated (song, artist) pairs into catalog tracks.
//
// # Sanitization
//
// [Sanitize] normalizes typographic quotes to straight double quotes and strips trailing
// dots and surrounding whitespace (e.g. "Fred Again.." becomes "Fred Again").
//
// # Cascade
//
// [Resolver.Resolve] tries progressively less specific queries and stops at the first one
// that returns a result:
//
//  1. track:"<title>" artist:"<artist>"
//  2. "<title>" artist:"<artist>"
//  3. "<title>"
//
// Only a successful empty result falls through to the next tier. A failed request ends the
// cascade for that entry with an [UpstreamError] outcome. The first item of a result set is
// taken as-is; the catalog's relevance ranking is trusted.
//
// # Batches
//
// [Resolver.ResolveAll] resolves every request concurrently and waits for all of them.
// Output has the same length and order as the input; callers drop unmatched entries with
// [models.Matched] at their boundary.
package resolver
