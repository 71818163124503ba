package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/songlist/internal/formatter"
	"github.com/desertthunder/songlist/internal/models"
	"github.com/desertthunder/songlist/internal/repositories"
	"github.com/desertthunder/songlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// runView is the JSON shape of an import run.
type runView struct {
	ID          string      `json:"id"`
	Sequence    int         `json:"sequence"`
	PlaylistID  string      `json:"playlist_id"`
	SourceFile  string      `json:"source_file"`
	RetryMode   string      `json:"retry_mode"`
	Status      string      `json:"status"`
	Total       int         `json:"total"`
	Added       int         `json:"added"`
	Unmatched   int         `json:"unmatched"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Entries     []entryView `json:"entries,omitempty"`
}

// entryView is the JSON shape of an import entry.
type entryView struct {
	Position int    `json:"position"`
	Query    string `json:"query"`
	Status   string `json:"status"`
	Track    string `json:"track,omitempty"`
	URI      string `json:"uri,omitempty"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

func newRunView(run *models.ImportRun) runView {
	return runView{
		ID:          run.ID(),
		Sequence:    run.Sequence(),
		PlaylistID:  run.PlaylistID(),
		SourceFile:  run.SourceFile(),
		RetryMode:   run.RetryMode(),
		Status:      string(run.Status()),
		Total:       run.Total(),
		Added:       run.Added(),
		Unmatched:   run.Unmatched(),
		Error:       run.ErrorMessage(),
		StartedAt:   run.StartedAt(),
		CompletedAt: run.CompletedAt(),
	}
}

func newEntryView(e *models.ImportEntry) entryView {
	return entryView{
		Position: e.Position(),
		Query:    e.Query(),
		Status:   string(e.Status()),
		Track:    e.TrackName(),
		URI:      e.TrackURI(),
		Attempts: e.Attempts(),
		Error:    e.ErrorMessage(),
	}
}

// HistoryList prints recorded import runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewImportRunRepository(db).List(map[string]any{
		"status":      cmd.String("status"),
		"playlist_id": cmd.String("playlist"),
		"limit":       cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No imports recorded. Run 'songlist import --history ...' to record one.\n")
	}

	r.writePlain("Found %d runs:\n\n", len(runs))
	for _, run := range runs {
		r.writePlain("#%d  %-9s  %d/%d added  %s → %s\n",
			run.Sequence(), run.Status(), run.Added(), run.Total(), run.SourceFile(), run.PlaylistID())
		r.writePlain("    %s  started %s\n", run.ID(), run.StartedAt().Local().Format(time.DateTime))
	}
	return nil
}

// HistoryShow prints one run and its unmatched queries, optionally rewriting its report.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("run")
	if ref == "" {
		return fmt.Errorf("%w: run", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := repositories.NewImportRunRepository(db).Find(ref)
	if err != nil {
		return err
	}

	criteria := map[string]any{"run_id": run.ID()}
	if !cmd.Bool("all") {
		criteria["status"] = string(models.EntryUnmatched)
	}

	entryRepo := repositories.NewImportEntryRepository(db)
	entries, err := entryRepo.List(criteria)
	if err != nil {
		return err
	}

	if path := cmd.String("report"); path != "" {
		unmatched, err := entryRepo.Unmatched(run.ID())
		if err != nil {
			return err
		}
		if err := formatter.WriteUnmatchedReport(path, unmatched); err != nil {
			return err
		}
		r.logger.Info("wrote unable-to-find report", "path", path, "queries", len(unmatched))
	}

	if cmd.Bool("json") {
		view := newRunView(run)
		for _, e := range entries {
			view.Entries = append(view.Entries, newEntryView(e))
		}
		return r.writeJSON(view, true)
	}

	r.writePlainHeader(fmt.Sprintf("Import #%d (%s)", run.Sequence(), run.Status()))
	r.writePlain("ID:         %s\n", run.ID())
	r.writePlain("File:       %s\n", run.SourceFile())
	r.writePlain("Playlist:   %s\n", run.PlaylistID())
	r.writePlain("Retry mode: %s\n", run.RetryMode())
	r.writePlain("Added:      %d/%d\n", run.Added(), run.Total())
	r.writePlain("Unmatched:  %d\n", run.Unmatched())
	r.writePlain("Started:    %s\n", run.StartedAt().Local().Format(time.DateTime))
	if completed := run.CompletedAt(); completed != nil {
		r.writePlain("Finished:   %s\n", completed.Local().Format(time.DateTime))
	}
	if msg := run.ErrorMessage(); msg != "" {
		r.writePlain("Error:      %s\n", msg)
	}

	if len(entries) == 0 {
		return nil
	}

	r.writePlain("\n")
	for _, e := range entries {
		if e.Status() == models.EntryAdded {
			r.writePlain("%4d. ✓ %s → %s\n", e.Position()+1, e.Query(), e.TrackName())
			continue
		}
		r.writePlain("%4d. ✗ %s (%d attempts)\n", e.Position()+1, e.Query(), e.Attempts())
	}
	return nil
}

// HistoryDelete removes a run from the history.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("run")
	if ref == "" {
		return fmt.Errorf("%w: run", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewImportRunRepository(db)
	run, err := repo.Find(ref)
	if err != nil {
		return err
	}

	if err := repo.Delete(run.ID()); err != nil {
		return err
	}

	return r.writePlain("✓ Deleted import #%d\n", run.Sequence())
}
