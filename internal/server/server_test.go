package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songlist/internal/shared"
	"golang.org/x/oauth2"
)

func newTokenEndpoint(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("code") != "good_code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/authorize",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("unexpected order %s", got)
		}
	})

	t.Run("rejects wrong method", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("request logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		router := NewBasicRouter()
		router.Use(RequestLogger(logger))
		router.Handle(http.MethodGet, "/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "/teapot") || !strings.Contains(out, "418") {
			t.Errorf("expected path and status in log, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("query string should not be logged, got %q", out)
		}
	})
}

func TestLoginHandler(t *testing.T) {
	router := NewBasicRouter()
	router.Handler(NewLoginHandler("https://accounts.example.com/authorize?state=abc"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://accounts.example.com/authorize?state=abc" {
		t.Errorf("unexpected redirect %s", loc)
	}
}

func TestOAuthHandler(t *testing.T) {
	tokenBody := `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantErr    error
	}{
		{"success", "state=s1&code=good_code", http.StatusOK, nil},
		{"bad state", "state=other&code=good_code", http.StatusBadRequest, shared.ErrAuthFailed},
		{"provider error", "state=s1&error=access_denied", http.StatusBadRequest, shared.ErrAuthFailed},
		{"missing code", "state=s1", http.StatusBadRequest, shared.ErrAuthFailed},
		{"exchange fails", "state=s1&code=bad_code", http.StatusInternalServerError, shared.ErrAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := newTokenEndpoint(t, http.StatusOK, tokenBody)
			handler := NewOAuthHandler(testConfig(endpoint.URL), "s1")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			result := <-handler.Result()
			if tt.wantErr != nil {
				if !errors.Is(result.Error(), tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, result.Error())
				}
				return
			}

			if result.Error() != nil {
				t.Fatalf("expected no error, got %v", result.Error())
			}
			if result.Token.AccessToken != "at" || result.Token.RefreshToken != "rt" {
				t.Errorf("unexpected token %+v", result.Token)
			}
			if !strings.Contains(rec.Body.String(), "close the window") {
				t.Errorf("expected success page, got %s", rec.Body.String())
			}
		})
	}

	t.Run("second callback rejected", func(t *testing.T) {
		endpoint := newTokenEndpoint(t, http.StatusOK, tokenBody)
		handler := NewOAuthHandler(testConfig(endpoint.URL), "s1")

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=good_code", nil))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=good_code", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replay, got %d", rec.Code)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	tokenBody := `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`

	t.Run("delivers token", func(t *testing.T) {
		endpoint := newTokenEndpoint(t, http.StatusOK, tokenBody)
		cs := NewCallbackServer("127.0.0.1:0", testConfig(endpoint.URL), "s1", "https://accounts.example.com/authorize", log.New(io.Discard))
		if err := cs.Start(); err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		defer cs.Shutdown(context.Background())

		client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

		resp, err := client.Get(fmt.Sprintf("http://%s/login", cs.Addr()))
		if err != nil {
			t.Fatalf("login request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Errorf("expected redirect from /login, got %d", resp.StatusCode)
		}

		go func() {
			resp, err := client.Get(fmt.Sprintf("http://%s/callback?state=s1&code=good_code", cs.Addr()))
			if err == nil {
				resp.Body.Close()
			}
		}()

		token, err := cs.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		if token.AccessToken != "at" {
			t.Errorf("unexpected token %+v", token)
		}
	})

	t.Run("times out", func(t *testing.T) {
		cs := NewCallbackServer("127.0.0.1:0", testConfig("http://127.0.0.1:1/token"), "s1", "https://accounts.example.com/authorize", log.New(io.Discard))
		if err := cs.Start(); err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		defer cs.Shutdown(context.Background())

		_, err := cs.Wait(context.Background(), 20*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cs := NewCallbackServer("127.0.0.1:0", testConfig("http://127.0.0.1:1/token"), "s1", "https://accounts.example.com/authorize", log.New(io.Discard))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := cs.Wait(ctx, time.Minute)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
