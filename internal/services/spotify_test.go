package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/songlist/internal/shared"
	"golang.org/x/oauth2"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		srv.SetBaseURL(server.URL)
	}

	if err := srv.OAuthenticate(context.Background(), &oauth2.Token{AccessToken: "test_access_token", RefreshToken: "test_refresh"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:9000/callback",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://127.0.0.1:9000/callback" {
				t.Errorf("expected custom redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://localhost:8080/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Requests playlist modify scopes", func(t *testing.T) {
			srv := newTestService(t, nil)
			scopes := strings.Join(srv.config.Scopes, " ")
			for _, want := range []string{"playlist-modify-public", "playlist-modify-private"} {
				if !strings.Contains(scopes, want) {
					t.Errorf("expected scope %s in %q", want, scopes)
				}
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv := newTestService(t, nil)

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("Before Authenticate", func(t *testing.T) {
			_, err := srv.SearchTrack(context.Background(), "Imagine - John Lennon")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if _, err := srv.NewRefresher(); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated from NewRefresher, got %v", err)
			}
		})

		t.Run("WithToken", func(t *testing.T) {
			err := srv.OAuthenticate(context.Background(), &oauth2.Token{
				AccessToken:  "test_access_token",
				RefreshToken: "test_refresh_token",
			})
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}

			if srv.Session() == nil {
				t.Fatal("expected session to be set")
			}
			token := srv.Session().Token()
			if token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be 'test_access_token', got %s", token.AccessToken)
			}
			if token.RefreshToken != "test_refresh_token" {
				t.Errorf("expected refresh token to be kept, got %s", token.RefreshToken)
			}
		})

		t.Run("Empty Token", func(t *testing.T) {
			if err := srv.OAuthenticate(context.Background(), &oauth2.Token{}); !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	})

	t.Run("Service Interface", func(t *testing.T) {
		srv := newTestService(t, nil)
		var _ OAuthService = srv
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv := newTestService(t, nil)

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {})
			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})
	})

	t.Run("SearchTrack", func(t *testing.T) {
		t.Run("returns first result", func(t *testing.T) {
			srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" {
					t.Errorf("expected /search, got %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("q"); got != "Imagine - John Lennon" {
					t.Errorf("expected raw query, got %q", got)
				}
				if got := r.URL.Query().Get("type"); got != "track" {
					t.Errorf("expected type=track, got %q", got)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test_access_token" {
					t.Errorf("unexpected Authorization header %q", got)
				}

				json.NewEncoder(w).Encode(SpotifySearchResponse{Tracks: SpotifyTrackPage{Items: []SpotifyTrack{
					{ID: "abc", URI: "spotify:track:abc", Name: "Imagine", Artists: []SpotifyArtist{{Name: "John Lennon"}}, Album: SpotifyAlbum{Name: "Imagine"}},
					{ID: "def", URI: "spotify:track:def", Name: "Imagine (Cover)", Artists: []SpotifyArtist{{Name: "Someone"}}},
				}}})
			})

			track, err := srv.SearchTrack(context.Background(), "Imagine - John Lennon")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.URI != "spotify:track:abc" {
				t.Errorf("expected first result, got %s", track.URI)
			}
			if track.String() != "Imagine - John Lennon" {
				t.Errorf("unexpected track string %q", track.String())
			}
		})

		t.Run("empty page is not found", func(t *testing.T) {
			srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"tracks":{"items":[],"total":0}}`))
			})

			_, err := srv.SearchTrack(context.Background(), "Nonexistent Song - Nobody")
			if !errors.Is(err, shared.ErrTrackNotFound) {
				t.Errorf("expected ErrTrackNotFound, got %v", err)
			}
		})

		t.Run("derives URI from ID", func(t *testing.T) {
			srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"tracks":{"items":[{"id":"xyz","name":"Song","artists":[]}]}}`))
			})

			track, err := srv.SearchTrack(context.Background(), "Song")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.URI != "spotify:track:xyz" {
				t.Errorf("expected derived URI, got %s", track.URI)
			}
		})
	})

	t.Run("Error Mapping", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			want   error
		}{
			{"unauthorized", http.StatusUnauthorized, shared.ErrTokenExpired},
			{"rate limited", http.StatusTooManyRequests, shared.ErrRateLimited},
			{"unavailable", http.StatusServiceUnavailable, shared.ErrServiceUnavailable},
			{"bad gateway", http.StatusBadGateway, shared.ErrServiceUnavailable},
			{"server error", http.StatusInternalServerError, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Retry-After", "3")
					w.WriteHeader(tt.status)
					w.Write([]byte(`{"error":{"status":0,"message":"nope"}}`))
				})

				_, err := srv.SearchTrack(context.Background(), "anything")
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if !errors.Is(err, shared.ErrAPIRequest) {
					t.Errorf("expected every failure to wrap ErrAPIRequest, got %v", err)
				}
				if !strings.Contains(err.Error(), "nope") {
					t.Errorf("expected API message in error, got %v", err)
				}
			})
		}
	})

	t.Run("AddTracksToPlaylist", func(t *testing.T) {
		t.Run("posts uris at position", func(t *testing.T) {
			srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/playlists/pl123/tracks" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}

				var body addTracksRequest
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if len(body.URIs) != 1 || body.URIs[0] != "spotify:track:abc" {
					t.Errorf("unexpected uris %v", body.URIs)
				}
				if body.Position != 0 {
					t.Errorf("expected position 0, got %d", body.Position)
				}

				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"snapshot_id":"snap1"}`))
			})

			snapshot, err := srv.AddTracksToPlaylist(context.Background(), "pl123", []string{"spotify:track:abc"}, 0)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if snapshot != "snap1" {
				t.Errorf("expected snapshot id, got %s", snapshot)
			}
		})

		t.Run("validates arguments", func(t *testing.T) {
			srv := newTestService(t, nil)

			if _, err := srv.AddTracksToPlaylist(context.Background(), "", []string{"x"}, 0); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
			if _, err := srv.AddTracksToPlaylist(context.Background(), "pl", nil, 0); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if _, err := srv.AddTracksToPlaylist(context.Background(), "pl", make([]string, 101), 0); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("forbidden playlist", func(t *testing.T) {
			srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			})

			_, err := srv.AddTracksToPlaylist(context.Background(), "pl123", []string{"spotify:track:abc"}, 0)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if !strings.Contains(err.Error(), "403") {
				t.Errorf("expected status in error, got %v", err)
			}
		})
	})

	t.Run("GetPlaylist", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/pl123" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"id":"pl123","name":"Road Trip","public":true,"owner":{"display_name":"me"},"tracks":{"total":12}}`))
		})

		playlist, err := srv.GetPlaylist(context.Background(), "pl123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.Name != "Road Trip" || playlist.TrackCount != 12 || playlist.Owner != "me" {
			t.Errorf("unexpected playlist %+v", playlist)
		}
	})

	t.Run("UserProfile", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"u1","display_name":"Listener"}`))
		})

		user, err := srv.UserProfile(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.DisplayName != "Listener" {
			t.Errorf("expected display name, got %s", user.DisplayName)
		}
	})
}
