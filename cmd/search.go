package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/songlist/internal/repositories"
	"github.com/desertthunder/songlist/internal/shared"
	"github.com/desertthunder/songlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Search prints the track an import would add for a single query.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	svc, err := r.spotifyService(cmd.String("client-id"), cmd.String("client-secret"))
	if err != nil {
		return err
	}

	if err := r.ensureToken(ctx, svc); err != nil {
		return err
	}

	var cache tasks.MatchCacher
	if cmd.Bool("cache") {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		cache = repositories.NewMatchCacheAdapter(db)
	}

	r.logger.Infof("searching spotify for %q", query)

	track, cached, err := tasks.NewMatcher(svc, cache, r.logger).Match(ctx, query)
	if errors.Is(err, shared.ErrTrackNotFound) {
		return r.writePlain("✗ No match for %q\n", query)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, true)
	}

	r.writePlain("✓ %s\n", track)
	if track.Album != "" {
		r.writePlain("  Album: %s\n", track.Album)
	}
	r.writePlain("  URI:   %s\n", track.URI)
	if cached {
		r.writePlain("  (from cache)\n")
	}
	return nil
}
