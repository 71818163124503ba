// Package services defines the interfaces songlist needs from a music streaming provider and implements them for Spotify.
//
// # Service Interface
//
// An import only needs two calls: [Searcher.SearchTrack] to resolve a "song - artist" line and [PlaylistAppender.AddTracksToPlaylist] to insert the match.
// Tasks depend on these narrow interfaces so they can be exercised against mocks.
//
// # Spotify Implementation
//
// [SpotifyService] talks to the Web API over plain HTTP and reads the bearer token from a [Session] on every request.
//
// # Token Refresh
//
// A [Refresher] owns writes to the [Session]. It exchanges the refresh token on a schedule derived from the token's expiry
// and reports every new token through the callback set with [SpotifyService.SetTokenRefreshCallback], which the CLI uses to persist it.
// A failed refresh is logged and the current token stays in place.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no token installed with OAuthenticate()
//   - [shared.ErrAPIRequest] : any failed HTTP request
//   - [shared.ErrTokenExpired] : status 401, wrapped together with ErrAPIRequest
//   - [shared.ErrRateLimited] : status 429, wrapped together with ErrAPIRequest
//   - [shared.ErrServiceUnavailable] : status 502, 503 or 504, wrapped together with ErrAPIRequest
//   - [shared.ErrTrackNotFound] : search returned an empty page
//   - [shared.ErrRefreshFailed] : the token endpoint rejected a refresh
package services
