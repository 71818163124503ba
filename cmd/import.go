package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/desertthunder/songlist/internal/formatter"
	"github.com/desertthunder/songlist/internal/repositories"
	"github.com/desertthunder/songlist/internal/services"
	"github.com/desertthunder/songlist/internal/shared"
	"github.com/desertthunder/songlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// importOptions are the import settings after merging flags over config.toml.
type importOptions struct {
	clientID     string
	clientSecret string
	file         string
	playlistID   string
	report       string
	summary      string
	format       formatter.Format
	delay        time.Duration
	backoff      time.Duration
	legacyRetry  bool
	tui          bool
	history      bool
	cache        bool
}

// parseImportOptions reads positional arguments and flags.
//
// Arguments are either CLIENT_ID CLIENT_SECRET FILE PLAYLIST_ID or FILE PLAYLIST_ID.
func (r *Runner) parseImportOptions(cmd *cli.Command) (*importOptions, error) {
	opts := &importOptions{
		clientID:     cmd.String("client-id"),
		clientSecret: cmd.String("client-secret"),
		report:       r.config.Import.ReportPath,
		summary:      cmd.String("summary"),
		delay:        r.config.Import.Delay.Duration,
		backoff:      r.config.Import.Backoff.Duration,
		legacyRetry:  r.config.Import.LegacyRetry || cmd.Bool("legacy-retry"),
		tui:          cmd.Bool("tui"),
		history:      cmd.Bool("history"),
		cache:        cmd.Bool("cache"),
	}

	args := cmd.Args().Slice()
	switch len(args) {
	case 4:
		opts.clientID, opts.clientSecret, opts.file, opts.playlistID = args[0], args[1], args[2], args[3]
	case 2:
		opts.file, opts.playlistID = args[0], args[1]
	default:
		return nil, fmt.Errorf("%w: expected [CLIENT_ID CLIENT_SECRET] FILE PLAYLIST_ID, got %d arguments", shared.ErrMissingArgument, len(args))
	}

	if cmd.IsSet("report") {
		opts.report = cmd.String("report")
	}
	if opts.report == "" {
		opts.report = formatter.DefaultReportPath
	}

	if cmd.IsSet("delay") {
		opts.delay = cmd.Duration("delay")
	}
	if opts.delay <= 0 {
		opts.delay = tasks.DefaultDelay
	}

	if cmd.IsSet("backoff") {
		opts.backoff = cmd.Duration("backoff")
	}
	if opts.backoff <= 0 {
		opts.backoff = tasks.DefaultBackoff
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return nil, err
	}
	opts.format = format

	return opts, nil
}

// Import reads a song list and inserts the top match of every line at the front of a playlist.
//
// The input file is read before any network activity; a missing or unreadable file stops the command. Queries
// that cannot be matched are written to the report, which is also written when the run is interrupted.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	opts, err := r.parseImportOptions(cmd)
	if err != nil {
		return err
	}

	queries, err := tasks.LoadQueries(opts.file)
	if err != nil {
		return err
	}
	r.logger.Info("loaded queries", "file", opts.file, "count", len(queries))

	if opts.tui {
		fileLogger, err := shared.NewFileLogger(tuiLogPath)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		r.logger.Infof("logging to %s while the progress view is open", tuiLogPath)
		r.SetLogger(fileLogger)
	}

	svc, err := r.spotifyService(opts.clientID, opts.clientSecret)
	if err != nil {
		return err
	}

	if err := r.ensureToken(ctx, svc); err != nil {
		return err
	}

	refresher, err := svc.NewRefresher()
	if err != nil {
		return err
	}
	refresher.SetLogger(r.logger)

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	go refresher.Run(refreshCtx)

	engineOpts := tasks.EngineOpts{
		Searcher: svc,
		Appender: svc,
		Pacer:    tasks.NewRatePacer(opts.delay, opts.backoff),
		Retry:    tasks.NewRetryPolicy(opts.legacyRetry),
		Logger:   shared.WithLogger(r.logger, "source", filepath.Base(opts.file)),
	}

	if opts.history || opts.cache {
		db, err := r.openDatabase()
		if err != nil {
			r.logger.Warn("continuing without history and cache", "error", err)
		} else {
			defer db.Close()
			if opts.history {
				engineOpts.Recorder = repositories.NewHistoryRecorder(db)
			}
			if opts.cache {
				engineOpts.Cache = repositories.NewMatchCacheAdapter(db)
			}
		}
	}

	engine := tasks.NewImportEngine(engineOpts)
	req := tasks.ImportRequest{
		PlaylistID: opts.playlistID,
		SourceFile: opts.file,
		Queries:    queries,
	}

	var result *tasks.ImportResult
	if opts.tui {
		result, err = r.runTUI(ctx, engine, req)
	} else {
		result, err = engine.Run(ctx, req, nil)
	}

	return r.finishImport(ctx, svc, opts, result, err)
}

// finishImport writes the reports for result and prints a summary.
//
// Report failures are logged and do not fail the command. A cancelled run is not an error.
func (r *Runner) finishImport(ctx context.Context, svc *services.SpotifyService, opts *importOptions, result *tasks.ImportResult, runErr error) error {
	if result == nil {
		return runErr
	}

	if err := formatter.WriteUnmatchedReport(opts.report, result.Unmatched); err != nil {
		r.logger.Error("failed to write unable-to-find report", "path", opts.report, "error", err)
	} else {
		r.logger.Info("wrote unable-to-find report", "path", opts.report, "queries", len(result.Unmatched))
	}

	if opts.summary != "" {
		name := r.playlistName(ctx, svc, result.PlaylistID)
		if err := formatter.WriteRunReport(opts.summary, opts.format, result, name); err != nil {
			r.logger.Error("failed to write run summary", "path", opts.summary, "error", err)
		} else {
			r.logger.Info("wrote run summary", "path", opts.summary, "format", opts.format)
		}
	}

	r.printImportSummary(opts, result)

	if errors.Is(runErr, context.Canceled) {
		r.logger.Warn("import cancelled", "processed", len(result.Outcomes), "total", result.Total)
		return nil
	}
	return runErr
}

// playlistName fetches the playlist's display name, falling back to its ID.
func (r *Runner) playlistName(ctx context.Context, svc *services.SpotifyService, playlistID string) string {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	playlist, err := svc.GetPlaylist(ctx, playlistID)
	if err != nil {
		r.logger.Debug("failed to fetch playlist name", "playlist", playlistID, "error", err)
		return playlistID
	}
	return playlist.Name
}

func (r *Runner) printImportSummary(opts *importOptions, result *tasks.ImportResult) {
	title := "Import complete"
	if result.Cancelled {
		title = "Import cancelled"
	}

	r.writePlainHeader(title)
	r.writePlain("Playlist:       %s\n", result.PlaylistID)
	r.writePlain("Processed:      %d/%d\n", len(result.Outcomes), result.Total)
	r.writePlain("Added:          %d (%.1f%%)\n", result.Added, result.MatchPercentage())
	r.writePlain("Unable to find: %d → %s\n", len(result.Unmatched), opts.report)
	if result.RunID != "" {
		r.writePlain("History:        songlist history show %s\n", result.RunID)
	}
}
