package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/songlist/internal/repositories"
	"github.com/desertthunder/songlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheStats prints the number of cached query matches.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repositories.NewMatchCacheAdapter(db).Count(ctx)
	if err != nil {
		return err
	}

	return r.writePlain("%d cached matches in %s\n", n, r.config.Database.Path)
}

// CacheForget drops the cached match for one query, so the next import searches it again.
func (r *Runner) CacheForget(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewMatchCacheAdapter(db).Forget(ctx, query); err != nil {
		return err
	}

	r.logger.Infof("forgot cached match for %q", query)
	return r.writePlain("✓ Forgot %q\n", query)
}

// CacheClear drops every cached match.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repositories.NewMatchCacheAdapter(db).Clear(ctx)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Cleared %d cached matches\n", n)
}
