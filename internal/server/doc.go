// Package server provides HTTP routing, middleware, the browser-facing API and the CLI OAuth callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// [Chain] applies service-wide middleware ([RequestLogger], [CORS]) outside the router so that
// preflight and rejected requests are logged and answered too.
//
// # API
//
// [API] exposes the endpoints used by the browser front end:
//
//	GET  /                            health check
//	GET  /auth/login                  redirect to the identity provider
//	GET  /auth/callback               exchange the code, respond with tokens
//	GET  /auth/refresh_token          refresh an access token
//	POST /api/parse-prompt            vibe → mood, genre, songs
//	POST /api/spotify/fetch-tracks    songs → matched catalog tracks
//	POST /api/spotify/build-playlist  songs → playlist URL
//	GET  /api/spotify/me              bearer credential → account id
//
// Missing input is answered with 400 (401 for a missing bearer credential) before any external call.
// Upstream failures are logged with their status and body and answered with a generic 500.
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the authorization code flow for the `login` command. It validates the
// state parameter, exchanges the code and sends the result through a channel. It only processes
// one callback to prevent replay.
package server
