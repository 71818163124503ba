package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/songlist/internal/models"
	"github.com/desertthunder/songlist/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createRun(t *testing.T, repo *ImportRunRepository, playlistID string) *models.ImportRun {
	t.Helper()
	run := models.NewImportRun(0, playlistID, "songs.txt", "per_query", 2)
	if err := repo.Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	return run
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "import_runs")
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "nope"); err == nil {
		t.Error("expected error for unknown table")
	}
}

func TestImportRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewImportRunRepository(setupTestDB(t))
		run := createRun(t, repo, "pl1")

		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence())
		}
	})

	t.Run("Create validates", func(t *testing.T) {
		repo := NewImportRunRepository(setupTestDB(t))
		run := models.NewImportRun(0, "", "songs.txt", "per_query", 0)

		if err := repo.Create(run); err == nil {
			t.Fatal("expected validation error for empty playlist id")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewImportRunRepository(setupTestDB(t))
		run := createRun(t, repo, "pl1")

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.PlaylistID() != "pl1" || retrieved.SourceFile() != "songs.txt" {
			t.Errorf("unexpected run %+v", retrieved)
		}
		if retrieved.Status() != models.RunRunning {
			t.Errorf("expected running, got %s", retrieved.Status())
		}
		if retrieved.CompletedAt() != nil {
			t.Error("expected no completion time")
		}
	})

	t.Run("Get not found", func(t *testing.T) {
		repo := NewImportRunRepository(setupTestDB(t))
		if _, err := repo.Get("nonexistent-id"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewImportRunRepository(setupTestDB(t))
		run := createRun(t, repo, "pl1")

		run.SetCounts(1, 1)
		run.Finish(models.RunCancelled, context.Canceled)
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if retrieved.Status() != models.RunCancelled {
			t.Errorf("expected cancelled, got %s", retrieved.Status())
		}
		if retrieved.Added() != 1 || retrieved.Unmatched() != 1 {
			t.Errorf("unexpected counts %d/%d", retrieved.Added(), retrieved.Unmatched())
		}
		if retrieved.ErrorMessage() != context.Canceled.Error() {
			t.Errorf("unexpected error message %q", retrieved.ErrorMessage())
		}
		if retrieved.CompletedAt() == nil {
			t.Error("expected completion time")
		}
	})

	t.Run("Update not found", func(t *testing.T) {
		repo := NewImportRunRepository(setupTestDB(t))
		run := models.NewImportRun(0, "pl1", "songs.txt", "per_query", 0)
		run.SetID("missing")

		if err := repo.Update(run); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewImportRunRepository(setupTestDB(t))
		run := createRun(t, repo, "pl1")

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected deleted run to be hidden, got %v", err)
		}
		if err := repo.Delete(run.ID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}
	})

	t.Run("Delete removes entries", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewImportRunRepository(db)
		run := createRun(t, repo, "pl1")
		other := createRun(t, repo, "pl2")

		entries := NewImportEntryRepository(db)
		for _, e := range []*models.ImportEntry{
			models.NewImportEntry(run.ID(), 0, "Nonexistent Song XYZ123", 2, nil, shared.ErrTrackNotFound),
			models.NewImportEntry(other.ID(), 0, "Nonexistent Song XYZ123", 2, nil, shared.ErrTrackNotFound),
		} {
			if err := entries.Create(e); err != nil {
				t.Fatalf("failed to create entry: %v", err)
			}
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		if listed, _ := entries.List(map[string]any{"run_id": run.ID()}); len(listed) != 0 {
			t.Errorf("expected entries of deleted run to be hidden, got %d", len(listed))
		}
		if listed, _ := entries.List(map[string]any{"run_id": other.ID()}); len(listed) != 1 {
			t.Errorf("expected other run's entries to survive, got %d", len(listed))
		}
	})

	t.Run("Find numeric ID prefix", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewImportRunRepository(db)
		run := createRun(t, repo, "pl1")

		const id = "12345678-9abc-4def-8123-456789abcdef"
		if _, err := db.Exec("UPDATE import_runs SET id = ? WHERE id = ?", id, run.ID()); err != nil {
			t.Fatalf("failed to set id: %v", err)
		}

		for _, ref := range []string{"12345678", "#12345678", "1", id} {
			found, err := repo.Find(ref)
			if err != nil {
				t.Fatalf("Find(%q) failed: %v", ref, err)
			}
			if found.ID() != id {
				t.Errorf("Find(%q) returned %s", ref, found.ID())
			}
		}

		if _, err := repo.Find("1234"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected short numeric reference to be a sequence only, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewImportRunRepository(setupTestDB(t))
		first := createRun(t, repo, "pl1")
		createRun(t, repo, "pl2")
		createRun(t, repo, "pl1")

		first.Finish(models.RunCompleted, nil)
		if err := repo.Update(first); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{"all", nil, 3},
			{"by playlist", map[string]any{"playlist_id": "pl1"}, 2},
			{"by status", map[string]any{"status": string(models.RunCompleted)}, 1},
			{"limit", map[string]any{"limit": 2}, 2},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runs, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list runs: %v", err)
				}
				if len(runs) != tt.want {
					t.Errorf("expected %d runs, got %d", tt.want, len(runs))
				}
			})
		}

		runs, _ := repo.List(nil)
		if runs[0].Sequence() != 3 {
			t.Errorf("expected newest first, got sequence %d", runs[0].Sequence())
		}
	})

	t.Run("Find", func(t *testing.T) {
		repo := NewImportRunRepository(setupTestDB(t))
		run := createRun(t, repo, "pl1")
		createRun(t, repo, "pl2")

		for _, ref := range []string{"1", "#1", run.ID(), run.ID()[:8]} {
			found, err := repo.Find(ref)
			if err != nil {
				t.Fatalf("Find(%q) failed: %v", ref, err)
			}
			if found.ID() != run.ID() {
				t.Errorf("Find(%q) returned %s", ref, found.ID())
			}
		}

		if _, err := repo.Find("99"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.Find("zzzzzzzz"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.Find("zzzz"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected short prefix to be rejected, got %v", err)
		}
		if _, err := repo.Find(""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestImportEntryRepository(t *testing.T) {
	track := &models.Track{URI: "spotify:track:abc", Name: "Imagine", Artist: "John Lennon"}

	t.Run("Create and List", func(t *testing.T) {
		db := setupTestDB(t)
		run := createRun(t, NewImportRunRepository(db), "pl1")
		repo := NewImportEntryRepository(db)

		entries := []*models.ImportEntry{
			models.NewImportEntry(run.ID(), 1, "Nonexistent Song XYZ123", 2, nil, fmt.Errorf("%w: none", shared.ErrTrackNotFound)),
			models.NewImportEntry(run.ID(), 0, "Imagine - John Lennon", 1, track, nil),
		}
		for _, e := range entries {
			if err := repo.Create(e); err != nil {
				t.Fatalf("failed to create entry: %v", err)
			}
		}

		listed, err := repo.List(map[string]any{"run_id": run.ID()})
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if len(listed) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(listed))
		}
		if listed[0].Position() != 0 || listed[0].TrackURI() != "spotify:track:abc" {
			t.Errorf("expected entries in input order, got %+v", listed[0])
		}
		if listed[0].TrackName() != "Imagine - John Lennon" {
			t.Errorf("unexpected track name %q", listed[0].TrackName())
		}
		if listed[1].Status() != models.EntryUnmatched || listed[1].Attempts() != 2 {
			t.Errorf("unexpected unmatched entry %+v", listed[1])
		}

		unmatched, err := repo.Unmatched(run.ID())
		if err != nil {
			t.Fatalf("failed to list unmatched: %v", err)
		}
		if len(unmatched) != 1 || unmatched[0] != "Nonexistent Song XYZ123" {
			t.Errorf("unexpected unmatched %v", unmatched)
		}
	})

	t.Run("Create requires existing run", func(t *testing.T) {
		repo := NewImportEntryRepository(setupTestDB(t))
		entry := models.NewImportEntry("missing-run", 0, "q", 1, track, nil)

		if err := repo.Create(entry); err == nil {
			t.Fatal("expected foreign key error")
		}
	})

	t.Run("Create rejects duplicate position", func(t *testing.T) {
		db := setupTestDB(t)
		run := createRun(t, NewImportRunRepository(db), "pl1")
		repo := NewImportEntryRepository(db)

		if err := repo.Create(models.NewImportEntry(run.ID(), 0, "a", 1, track, nil)); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if err := repo.Create(models.NewImportEntry(run.ID(), 0, "b", 1, track, nil)); err == nil {
			t.Fatal("expected unique constraint error")
		}
	})

	t.Run("Create validates", func(t *testing.T) {
		db := setupTestDB(t)
		run := createRun(t, NewImportRunRepository(db), "pl1")
		repo := NewImportEntryRepository(db)

		if err := repo.Create(models.NewImportEntry(run.ID(), 0, "a", 1, nil, nil)); err == nil {
			t.Fatal("expected validation error for added entry without track")
		}
	})

}

func TestMatchCacheAdapter(t *testing.T) {
	ctx := context.Background()
	track := &models.Track{ID: "abc", URI: "spotify:track:abc", Name: "Imagine", Artist: "John Lennon", Album: "Imagine"}

	t.Run("miss then hit", func(t *testing.T) {
		cache := NewMatchCacheAdapter(setupTestDB(t))

		_, ok, err := cache.Lookup(ctx, "Imagine - John Lennon")
		if err != nil || ok {
			t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
		}

		if err := cache.Store(ctx, "Imagine - John Lennon", track); err != nil {
			t.Fatalf("failed to store: %v", err)
		}

		got, ok, err := cache.Lookup(ctx, "  imagine   -  JOHN lennon ")
		if err != nil || !ok {
			t.Fatalf("expected hit for equivalent key, got ok=%v err=%v", ok, err)
		}
		if *got != *track {
			t.Errorf("expected %+v, got %+v", track, got)
		}
	})

	t.Run("store replaces", func(t *testing.T) {
		cache := NewMatchCacheAdapter(setupTestDB(t))
		other := &models.Track{ID: "def", URI: "spotify:track:def", Name: "Imagine (Remastered)"}

		cache.Store(ctx, "Imagine", track)
		if err := cache.Store(ctx, "imagine", other); err != nil {
			t.Fatalf("failed to store: %v", err)
		}

		got, _, _ := cache.Lookup(ctx, "Imagine")
		if got.URI != "spotify:track:def" {
			t.Errorf("expected replaced match, got %s", got.URI)
		}
		if n, _ := cache.Count(ctx); n != 1 {
			t.Errorf("expected 1 entry, got %d", n)
		}
	})

	t.Run("store rejects empty track", func(t *testing.T) {
		cache := NewMatchCacheAdapter(setupTestDB(t))
		if err := cache.Store(ctx, "q", &models.Track{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("forget and clear", func(t *testing.T) {
		cache := NewMatchCacheAdapter(setupTestDB(t))
		cache.Store(ctx, "a", track)
		cache.Store(ctx, "b", track)

		if err := cache.Forget(ctx, "A"); err != nil {
			t.Fatalf("failed to forget: %v", err)
		}
		if _, ok, _ := cache.Lookup(ctx, "a"); ok {
			t.Error("expected forgotten entry to miss")
		}

		removed, err := cache.Clear(ctx)
		if err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 removed, got %d", removed)
		}
	})
}

func TestHistoryRecorder(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	recorder := NewHistoryRecorder(db)

	run := models.NewImportRun(0, "pl1", "songs.txt", "shared_flag", 2)
	if err := recorder.Begin(ctx, run); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	track := &models.Track{URI: "spotify:track:abc", Name: "Imagine"}
	if err := recorder.Record(ctx, models.NewImportEntry(run.ID(), 0, "Imagine", 1, track, nil)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := recorder.Record(ctx, models.NewImportEntry(run.ID(), 1, "missing", 1, nil, shared.ErrTrackNotFound)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	run.SetCounts(1, 1)
	run.Finish(models.RunCompleted, nil)
	if err := recorder.Finish(ctx, run); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	stored, err := NewImportRunRepository(db).Get(run.ID())
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if stored.Status() != models.RunCompleted || stored.RetryMode() != "shared_flag" {
		t.Errorf("unexpected stored run %+v", stored)
	}

	unmatched, _ := NewImportEntryRepository(db).Unmatched(run.ID())
	if len(unmatched) != 1 || unmatched[0] != "missing" {
		t.Errorf("unexpected unmatched %v", unmatched)
	}
}
