package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songlist/internal/models"
	"github.com/desertthunder/songlist/internal/shared"
)

// MatchCacheAdapter implements tasks.MatchCacher on the match_cache table.
//
// Queries are keyed by [shared.NormalizeQueryKey], so case and spacing differences share an entry.
type MatchCacheAdapter struct {
	db *sql.DB
}

// NewMatchCacheAdapter creates a new MatchCacheAdapter with the given database connection
func NewMatchCacheAdapter(db *sql.DB) *MatchCacheAdapter {
	return &MatchCacheAdapter{db: db}
}

// Lookup returns the cached track for query.
func (a *MatchCacheAdapter) Lookup(ctx context.Context, query string) (*models.Track, bool, error) {
	var (
		track               models.Track
		name, artist, album sql.NullString
	)

	err := a.db.QueryRowContext(ctx, `
		SELECT track_id, track_uri, track_name, artist, album
		FROM match_cache WHERE query_key = ?
	`, shared.NormalizeQueryKey(query)).Scan(&track.ID, &track.URI, &name, &artist, &album)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read match cache: %w", err)
	}

	track.Name, track.Artist, track.Album = name.String, artist.String, album.String
	return &track, true, nil
}

// Store remembers track as the match for query, replacing any previous match.
func (a *MatchCacheAdapter) Store(ctx context.Context, query string, track *models.Track) error {
	if track == nil || track.URI == "" {
		return fmt.Errorf("%w: track without uri", shared.ErrInvalidArgument)
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO match_cache (query_key, query, track_id, track_uri, track_name, artist, album, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		shared.NormalizeQueryKey(query),
		query,
		track.ID,
		track.URI,
		nullString(track.Name),
		nullString(track.Artist),
		nullString(track.Album),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to cache match: %w", err)
	}
	return nil
}

// Forget removes the cached match for query, e.g. after it proved wrong.
func (a *MatchCacheAdapter) Forget(ctx context.Context, query string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM match_cache WHERE query_key = ?`, shared.NormalizeQueryKey(query)); err != nil {
		return fmt.Errorf("failed to forget match: %w", err)
	}
	return nil
}

// Clear empties the cache and returns how many entries were removed.
func (a *MatchCacheAdapter) Clear(ctx context.Context) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM match_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear match cache: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of cached matches.
func (a *MatchCacheAdapter) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count match cache: %w", err)
	}
	return n, nil
}
