package repositories

import (
	"context"
	"database/sql"

	"github.com/desertthunder/songlist/internal/models"
)

// HistoryRecorder implements tasks.RunRecorder with the run and entry repositories.
type HistoryRecorder struct {
	runs    *ImportRunRepository
	entries *ImportEntryRepository
}

// NewHistoryRecorder creates a HistoryRecorder backed by db.
func NewHistoryRecorder(db *sql.DB) *HistoryRecorder {
	return &HistoryRecorder{
		runs:    NewImportRunRepository(db),
		entries: NewImportEntryRepository(db),
	}
}

func (h *HistoryRecorder) Begin(_ context.Context, run *models.ImportRun) error {
	return h.runs.Create(run)
}

func (h *HistoryRecorder) Record(_ context.Context, entry *models.ImportEntry) error {
	return h.entries.Create(entry)
}

func (h *HistoryRecorder) Finish(_ context.Context, run *models.ImportRun) error {
	return h.runs.Update(run)
}
