// Package server runs the local HTTP listener that completes the OAuth2 authorization code flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// method-qualified patterns on an [http.ServeMux]; [RequestLogger] is the only middleware in use.
//
// # Routes
//
//   - GET /login redirects to the authorize URL ([LoginHandler])
//   - GET /callback validates state, exchanges the code and delivers the token ([OAuthHandler])
//
// The callback only processes one request to prevent replays.
//
// # Lifecycle
//
// [CallbackServer] exists only for the duration of an authorization. The CLI starts it, opens the browser,
// waits up to two minutes for a token and shuts it down before any import work begins.
package server
