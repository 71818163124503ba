package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songlist/internal/models"
	"github.com/desertthunder/songlist/internal/services"
)

// MatchCacher stores query matches across runs.
type MatchCacher interface {
	// Lookup returns the cached track for query, or false when there is none.
	Lookup(ctx context.Context, query string) (*models.Track, bool, error)
	// Store remembers track as the match for query.
	Store(ctx context.Context, query string, track *models.Track) error
}

// Matcher resolves a query to a track, consulting an optional [MatchCacher] before searching.
type Matcher struct {
	searcher services.Searcher
	cache    MatchCacher
	logger   *log.Logger
}

// NewMatcher creates a Matcher. cache may be nil.
func NewMatcher(searcher services.Searcher, cache MatchCacher, logger *log.Logger) *Matcher {
	return &Matcher{searcher: searcher, cache: cache, logger: logger}
}

// Match returns the track for query and whether it came from the cache.
//
// Cache failures are logged and fall through to a search.
func (m *Matcher) Match(ctx context.Context, query string) (*models.Track, bool, error) {
	if m.cache != nil {
		track, ok, err := m.cache.Lookup(ctx, query)
		switch {
		case err != nil:
			m.logger.Warn("match cache lookup failed", "query", query, "error", err)
		case ok:
			m.logger.Debug("match cache hit", "query", query, "uri", track.URI)
			return track, true, nil
		}
	}

	track, err := m.searcher.SearchTrack(ctx, query)
	if err != nil {
		return nil, false, err
	}

	if m.cache != nil {
		if err := m.cache.Store(ctx, query, track); err != nil {
			m.logger.Warn("failed to cache match", "query", query, "error", err)
		}
	}
	return track, false, nil
}
