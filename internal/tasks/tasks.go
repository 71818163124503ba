package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songlist/internal/models"
	"github.com/desertthunder/songlist/internal/services"
	"github.com/desertthunder/songlist/internal/shared"
)

// QueryOutcome is the final result for one query.
type QueryOutcome struct {
	Index    int           // Position in the query list, starting at 0
	Query    string        // Line as read from the file
	Track    *models.Track // Track added to the playlist (nil if unmatched)
	Attempts int           // Attempts made, including the retry
	Cached   bool          // Match came from the match cache
	Err      error         // Last error when unmatched
}

// Matched reports whether the query's track was added.
func (o QueryOutcome) Matched() bool {
	return o.Err == nil && o.Track != nil
}

// ImportResult contains all data from an import run.
type ImportResult struct {
	RunID      string         // History run id, empty when history is disabled
	PlaylistID string         // Target playlist
	SourceFile string         // Input file
	RetryMode  RetryMode      // Policy the run used
	Total      int            // Queries in the input
	Outcomes   []QueryOutcome // One per processed query, in input order
	Added      int            // Tracks added to the playlist
	Unmatched  []string       // Queries written to the report, in input order
	Cancelled  bool           // Run stopped before processing every query
	StartedAt  time.Time
	FinishedAt time.Time
}

// MatchPercentage returns the share of processed queries that were added.
func (r *ImportResult) MatchPercentage() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	return float64(r.Added) / float64(len(r.Outcomes)) * 100
}

func (r *ImportResult) add(outcome QueryOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	if outcome.Matched() {
		r.Added++
	} else {
		r.Unmatched = append(r.Unmatched, outcome.Query)
	}
}

// RunRecorder journals an import as it happens.
type RunRecorder interface {
	// Begin persists run and assigns its id.
	Begin(ctx context.Context, run *models.ImportRun) error
	// Record persists one resolved query.
	Record(ctx context.Context, entry *models.ImportEntry) error
	// Finish persists run's final status and counts.
	Finish(ctx context.Context, run *models.ImportRun) error
}

// ImportRequest describes one import.
type ImportRequest struct {
	PlaylistID string
	SourceFile string
	Queries    []string
}

// EngineOpts contains the dependencies of an [ImportEngine]. Searcher and Appender are required.
type EngineOpts struct {
	Searcher services.Searcher
	Appender services.PlaylistAppender
	Pacer    Pacer       // defaults to a RatePacer with DefaultDelay and DefaultBackoff
	Retry    RetryPolicy // defaults to PerQueryRetry
	Cache    MatchCacher
	Recorder RunRecorder
	Logger   *log.Logger
}

// ImportEngine adds the tracks matching a list of queries to a playlist.
//
// Queries are processed strictly in order, one remote call at a time.
type ImportEngine struct {
	matcher  *Matcher
	appender services.PlaylistAppender
	pacer    Pacer
	retry    RetryPolicy
	recorder RunRecorder
	logger   *log.Logger
}

// NewImportEngine creates a new ImportEngine from opts.
func NewImportEngine(opts EngineOpts) *ImportEngine {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Pacer == nil {
		opts.Pacer = NewRatePacer(DefaultDelay, DefaultBackoff)
	}
	if opts.Retry == nil {
		opts.Retry = PerQueryRetry{}
	}

	return &ImportEngine{
		matcher:  NewMatcher(opts.Searcher, opts.Cache, opts.Logger),
		appender: opts.Appender,
		pacer:    opts.Pacer,
		retry:    opts.Retry,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ImportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run matches every query and inserts each match at the top of the playlist.
//
// A query that fails (search or insert) is retried according to the engine's [RetryPolicy] and otherwise
// lands in [ImportResult.Unmatched]. Remote failures never stop the run. When ctx is cancelled Run returns the
// partial result along with ctx.Err(); the query in flight is not counted.
func (e *ImportEngine) Run(ctx context.Context, req ImportRequest, progress chan<- ProgressUpdate) (*ImportResult, error) {
	if req.PlaylistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	total := len(req.Queries)
	result := &ImportResult{
		PlaylistID: req.PlaylistID,
		SourceFile: req.SourceFile,
		RetryMode:  e.retry.Mode(),
		Total:      total,
		Outcomes:   make([]QueryOutcome, 0, total),
		StartedAt:  time.Now(),
	}

	run := e.beginRun(ctx, req, result)
	e.logger.Info("starting import", "queries", total, "playlist", req.PlaylistID, "retry", result.RetryMode)

	for i, query := range req.Queries {
		outcome, err := e.resolve(ctx, req.PlaylistID, i, total, query, progress)
		if err != nil {
			result.Cancelled = true
			result.FinishedAt = time.Now()
			e.finishRun(run, result, err)
			return result, err
		}

		result.add(outcome)
		e.recordOutcome(ctx, run, outcome)

		if outcome.Matched() {
			e.sendProgress(progress, addedUpdate(i+1, total, outcome, outcome.Track))
		} else {
			e.sendProgress(progress, unmatchedUpdate(i+1, total, outcome))
		}
	}

	result.FinishedAt = time.Now()
	e.finishRun(run, result, nil)
	e.sendProgress(progress, completeUpdate(result))
	e.logger.Info("import finished", "added", result.Added, "unmatched", len(result.Unmatched))

	return result, nil
}

// resolve attempts one query until it succeeds or the retry policy gives up.
//
// The returned error is non-nil only when ctx ends.
func (e *ImportEngine) resolve(ctx context.Context, playlistID string, i, total int, query string, progress chan<- ProgressUpdate) (QueryOutcome, error) {
	outcome := QueryOutcome{Index: i, Query: query}

	for attempt := 1; ; attempt++ {
		if err := e.pacer.Pace(ctx); err != nil {
			return outcome, err
		}

		outcome.Attempts = attempt
		e.logger.Infof("[%d/%d] looking up %q", i+1, total, query)
		e.sendProgress(progress, lookupUpdate(i+1, total, query))

		track, cached, err := e.attempt(ctx, playlistID, query)
		if err == nil {
			outcome.Track, outcome.Cached, outcome.Err = track, cached, nil
			e.logger.Debug("track added", "query", query, "uri", track.URI, "cached", cached)
			return outcome, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, ctxErr
		}
		outcome.Err = err

		if !e.retry.ShouldRetry(attempt) {
			e.logger.Error("unable to find query", "query", query, "attempts", attempt, "error", err)
			return outcome, nil
		}

		e.logger.Warn("lookup failed, retrying once", "query", query, "error", err)
		e.sendProgress(progress, retryUpdate(i+1, total, query, err))

		if err := e.pacer.Backoff(ctx); err != nil {
			return outcome, err
		}
	}
}

func (e *ImportEngine) attempt(ctx context.Context, playlistID, query string) (*models.Track, bool, error) {
	track, cached, err := e.matcher.Match(ctx, query)
	if err != nil {
		return nil, false, err
	}

	if _, err := e.appender.AddTracksToPlaylist(ctx, playlistID, []string{track.URI}, 0); err != nil {
		return nil, false, err
	}
	return track, cached, nil
}

func (e *ImportEngine) beginRun(ctx context.Context, req ImportRequest, result *ImportResult) *models.ImportRun {
	if e.recorder == nil {
		return nil
	}

	run := models.NewImportRun(0, req.PlaylistID, req.SourceFile, string(result.RetryMode), result.Total)
	if err := e.recorder.Begin(ctx, run); err != nil {
		e.logger.Warn("failed to record import run, history disabled for this run", "error", err)
		return nil
	}

	result.RunID = run.ID()
	return run
}

func (e *ImportEngine) recordOutcome(ctx context.Context, run *models.ImportRun, outcome QueryOutcome) {
	if run == nil {
		return
	}

	entry := models.NewImportEntry(run.ID(), outcome.Index, outcome.Query, outcome.Attempts, outcome.Track, outcome.Err)
	if err := e.recorder.Record(ctx, entry); err != nil {
		e.logger.Warn("failed to record query outcome", "query", outcome.Query, "error", err)
	}
}

// finishRun uses a fresh context so a cancelled run is still closed out.
func (e *ImportEngine) finishRun(run *models.ImportRun, result *ImportResult, runErr error) {
	if run == nil {
		return
	}

	run.SetCounts(result.Added, len(result.Unmatched))
	switch {
	case runErr == nil:
		run.Finish(models.RunCompleted, nil)
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		run.Finish(models.RunCancelled, runErr)
	default:
		run.Finish(models.RunFailed, runErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.recorder.Finish(ctx, run); err != nil {
		e.logger.Warn("failed to record run completion", "run", run.ID(), "error", err)
	}
}
