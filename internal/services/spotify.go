// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/songlist/internal/models"
	"github.com/desertthunder/songlist/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// maxTracksPerRequest is the most URIs the playlist endpoint accepts at once.
	maxTracksPerRequest = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a simplified Spotify playlist.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       owner          `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      playlistTracks `json:"tracks"`
	URI         string         `json:"uri"`
}

// SpotifyTrackPage is one page of a paginated track listing.
type SpotifyTrackPage struct {
	Items    []SpotifyTrack `json:"items"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
}

// SpotifySearchResponse is the body of GET /search with type=track.
type SpotifySearchResponse struct {
	Tracks SpotifyTrackPage `json:"tracks"`
}

type addTracksRequest struct {
	URIs     []string `json:"uris"`
	Position int      `json:"position"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService implements the [OAuthService] interface for Spotify API interactions.
//
// Requests read the access token from a [Session] on every call, so a [Refresher] can rotate it underneath a running import.
type SpotifyService struct {
	config         *oauth2.Config
	session        *Session
	httpClient     *http.Client
	baseURL        string
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyAuthURL,
			TokenURL:  spotifyTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    spotifyBaseURL,
	}, nil
}

// OAuthenticate installs an already obtained token in a new [Session].
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidCredentials)
	}
	s.session = NewSession(token)
	return nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Session returns the token store used by this service, or nil before authentication.
func (s *SpotifyService) Session() *Session {
	return s.session
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenRefreshCallback registers fn to be called with every newly refreshed token.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// SetBaseURL points API requests at a different host.
func (s *SpotifyService) SetBaseURL(baseURL string) {
	s.baseURL = baseURL
}

// SetTokenURL points token exchange and refresh at a different endpoint.
func (s *SpotifyService) SetTokenURL(tokenURL string) {
	s.config.Endpoint.TokenURL = tokenURL
}

// SetHTTPClient replaces the client used for API requests.
func (s *SpotifyService) SetHTTPClient(client *http.Client) {
	s.httpClient = client
}

// NewRefresher returns a [Refresher] that rotates this service's session token.
func (s *SpotifyService) NewRefresher() (*Refresher, error) {
	if s.session == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return NewRefresher(s.config, s.session, s.onTokenRefresh), nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// A non-nil body is sent as JSON. Every failure wraps [shared.ErrAPIRequest]; 401 also wraps [shared.ErrTokenExpired] and 429 wraps [shared.ErrRateLimited].
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.session == nil {
		return fmt.Errorf("%w: %w: call OAuthenticate first", shared.ErrAPIRequest, shared.ErrNotAuthenticated)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request body: %v", shared.ErrAPIRequest, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", shared.ErrAPIRequest, err)
	}

	req.Header.Set("Authorization", "Bearer "+s.session.AccessToken())
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

func statusError(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	var apiErr apiError
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w: status %d: %s", shared.ErrAPIRequest, shared.ErrTokenExpired, resp.StatusCode, msg)
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return fmt.Errorf("%w: %w: status %d (retry after %ss): %s", shared.ErrAPIRequest, shared.ErrRateLimited, resp.StatusCode, retryAfter, msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w: status %d: %s", shared.ErrAPIRequest, shared.ErrServiceUnavailable, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: spotify API error: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
	}
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetPlaylist retrieves playlist metadata by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*Playlist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/playlists/%s?fields=%s", url.PathEscape(playlistID), url.QueryEscape("id,name,description,public,owner,tracks.total,uri"))

	var sp SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &sp); err != nil {
		return nil, err
	}

	return &Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
		Owner:       sp.Owner.DisplayName,
	}, nil
}

// SearchTrack runs a track search for query and returns the first result of the first page.
//
// The query is sent verbatim; no ranking or disambiguation is applied.
func (s *SpotifyService) SearchTrack(ctx context.Context, query string) (*models.Track, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")

	var response SpotifySearchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	if len(response.Tracks.Items) == 0 {
		return nil, fmt.Errorf("%w: no results for %q", shared.ErrTrackNotFound, query)
	}

	track := response.Tracks.Items[0].toTrack()
	return &track, nil
}

// AddTracksToPlaylist inserts uris into the playlist at position.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string, position int) (string, error) {
	if playlistID == "" {
		return "", fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if len(uris) == 0 {
		return "", fmt.Errorf("%w: no track URIs provided", shared.ErrInvalidArgument)
	}
	if len(uris) > maxTracksPerRequest {
		return "", fmt.Errorf("%w: maximum %d track URIs allowed", shared.ErrInvalidArgument, maxTracksPerRequest)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := addTracksRequest{URIs: uris, Position: position}

	var response snapshotResponse
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &response); err != nil {
		return "", err
	}

	return response.SnapshotID, nil
}

func (t SpotifyTrack) toTrack() models.Track {
	track := models.Track{
		ID:    t.ID,
		URI:   t.URI,
		Name:  t.Name,
		Album: t.Album.Name,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	if track.URI == "" && t.ID != "" {
		track.URI = "spotify:track:" + t.ID
	}
	return track
}
