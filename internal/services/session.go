package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songlist/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultRefreshInterval = 30 * time.Minute
	minRefreshInterval     = 10 * time.Second
)

// Session holds the current OAuth token pair.
//
// Readers take a snapshot per request; only a [Refresher] writes.
type Session struct {
	mu    sync.RWMutex
	token oauth2.Token
}

// NewSession creates a session holding a copy of token.
func NewSession(token *oauth2.Token) *Session {
	s := &Session{}
	if token != nil {
		s.token = *token
	}
	return s
}

// Token returns a snapshot of the current token.
func (s *Session) Token() oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token.AccessToken
}

// Store replaces the current token. An empty refresh token keeps the previous one.
func (s *Session) Store(token *oauth2.Token) {
	if token == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	refresh := s.token.RefreshToken
	s.token = *token
	if s.token.RefreshToken == "" {
		s.token.RefreshToken = refresh
	}
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports every new access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != r.last {
		r.last = token.AccessToken
		r.notify(token)
	}
	return token, nil
}

func (r *refreshableTokenSource) notify(token *oauth2.Token) {
	if r.callback == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error("token refresh callback panicked", "panic", p)
		}
	}()
	r.callback(token)
}

// Refresher periodically exchanges the session's refresh token for a new access token.
//
// The interval is half the lifetime of the current token, falling back to 30 minutes when the expiry is unknown.
type Refresher struct {
	config    *oauth2.Config
	session   *Session
	onRefresh func(*oauth2.Token)
	logger    *log.Logger
	every     time.Duration
}

// NewRefresher creates a Refresher that writes refreshed tokens to session and reports them to onRefresh.
func NewRefresher(config *oauth2.Config, session *Session, onRefresh func(*oauth2.Token)) *Refresher {
	return &Refresher{
		config:    config,
		session:   session,
		onRefresh: onRefresh,
		logger:    log.Default(),
	}
}

// SetLogger replaces the logger used for refresh outcomes.
func (r *Refresher) SetLogger(l *log.Logger) {
	r.logger = l
}

// SetInterval fixes the refresh interval instead of deriving it from the token expiry.
func (r *Refresher) SetInterval(d time.Duration) {
	r.every = d
}

// Interval returns the wait before the next refresh.
func (r *Refresher) Interval() time.Duration {
	if r.every > 0 {
		return r.every
	}

	token := r.session.Token()
	if token.Expiry.IsZero() {
		return defaultRefreshInterval
	}

	return max(time.Until(token.Expiry)/2, minRefreshInterval)
}

// Refresh forces a token refresh and stores the result in the session.
func (r *Refresher) Refresh(ctx context.Context) error {
	current := r.session.Token()
	if current.RefreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	source := &refreshableTokenSource{
		source:   r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken}),
		callback: r.onRefresh,
		last:     current.AccessToken,
	}

	token, err := source.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	r.session.Store(token)
	return nil
}

// Run refreshes the token on schedule until ctx is cancelled.
//
// Failures are logged and retried at the next tick; the current token stays in place.
func (r *Refresher) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(r.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := r.Refresh(ctx); err != nil {
			r.logger.Error("failed to refresh access token", "error", err)
			continue
		}
		r.logger.Debug("access token refreshed", "expiry", r.session.Token().Expiry)
	}
}
