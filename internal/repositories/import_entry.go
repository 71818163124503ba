package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songlist/internal/models"
	"github.com/desertthunder/songlist/internal/shared"
)

const importEntryColumns = `
	id, sequence, run_id, position, query, track_uri, track_name,
	attempts, status, error_message, created_at, updated_at, deleted_at`

// ImportEntryRepository stores the per-query journal.
//
// Entries are append-only; they are removed together with their run by [ImportRunRepository.Delete].
type ImportEntryRepository struct {
	db *sql.DB
}

// NewImportEntryRepository creates a new ImportEntryRepository with the given database connection
func NewImportEntryRepository(db *sql.DB) *ImportEntryRepository {
	return &ImportEntryRepository{db: db}
}

// Create inserts an entry with a generated ID and sequence. The referenced run must exist.
func (r *ImportEntryRepository) Create(entry *models.ImportEntry) error {
	sequence, err := NextSequence(r.db, "import_entries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	entry.SetID(id)
	entry.SetSequence(sequence)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO import_entries (
			id, sequence, run_id, position, query, track_uri, track_name,
			attempts, status, error_message, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		entry.RunID(),
		entry.Position(),
		entry.Query(),
		nullString(entry.TrackURI()),
		nullString(entry.TrackName()),
		entry.Attempts(),
		entry.Status(),
		nullString(entry.ErrorMessage()),
		entry.CreatedAt(),
		entry.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import entry: %w", err)
	}

	return nil
}

// List returns entries in input order. Supported criteria: "run_id" and "status" (string).
func (r *ImportEntryRepository) List(criteria map[string]any) ([]*models.ImportEntry, error) {
	query := `SELECT ` + importEntryColumns + ` FROM import_entries WHERE deleted_at IS NULL`
	args := []any{}

	if runID, ok := criteria["run_id"].(string); ok && runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY run_id, position"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.ImportEntry
	for rows.Next() {
		entry, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Unmatched returns the queries of a run that were not added, in input order.
func (r *ImportEntryRepository) Unmatched(runID string) ([]string, error) {
	entries, err := r.List(map[string]any{"run_id": runID, "status": string(models.EntryUnmatched)})
	if err != nil {
		return nil, err
	}

	queries := make([]string, 0, len(entries))
	for _, e := range entries {
		queries = append(queries, e.Query())
	}
	return queries, nil
}

func (r *ImportEntryRepository) scan(row scanner) (*models.ImportEntry, error) {
	var (
		id           string
		sequence     int
		runID        string
		position     int
		query        string
		trackURI     sql.NullString
		trackName    sql.NullString
		attempts     int
		status       string
		errorMessage sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &runID, &position, &query, &trackURI, &trackName,
		&attempts, &status, &errorMessage, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: import entry", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import entry: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestoreImportEntry(
		id, sequence, runID, position, query, trackURI.String, trackName.String,
		attempts, models.EntryStatus(status), errorMessage.String,
		createdAt, updatedAt, deleted,
	), nil
}
