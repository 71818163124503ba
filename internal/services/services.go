package services

import (
	"context"

	"github.com/desertthunder/songlist/internal/models"
	"golang.org/x/oauth2"
)

// Searcher resolves a free-text query to a single track.
type Searcher interface {
	// SearchTrack returns the first result of the first page of a track search.
	// Returns an error wrapping [shared.ErrTrackNotFound] when the page is empty.
	SearchTrack(ctx context.Context, query string) (*models.Track, error)
}

// PlaylistAppender inserts tracks into an existing playlist.
type PlaylistAppender interface {
	// AddTracksToPlaylist inserts the track URIs at position and returns the playlist's new snapshot id.
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string, position int) (string, error)
}

// Service is a music provider that can both search and modify playlists.
type Service interface {
	Searcher
	PlaylistAppender

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService is a [Service] that authenticates with the OAuth2 authorization code flow.
type OAuthService interface {
	Service

	// GetAuthURL returns the URL the user visits to grant access.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the OAuth2 configuration used for code exchange and refresh.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs an already obtained token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// Playlist is the subset of playlist metadata songlist displays.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
	Owner       string
}
