package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/songlist/internal/models"
	"github.com/desertthunder/songlist/internal/shared"
)

const importRunColumns = `
	id, sequence, playlist_id, source_file, retry_mode, status,
	queries_total, queries_added, queries_unmatched, error_message,
	started_at, completed_at, created_at, updated_at, deleted_at`

// ImportRunRepository implements models.Repository[*models.ImportRun].
type ImportRunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.ImportRun] = (*ImportRunRepository)(nil)

// NewImportRunRepository creates a new ImportRunRepository with the given database connection
func NewImportRunRepository(db *sql.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

// Create inserts a run with a generated ID and sequence.
func (r *ImportRunRepository) Create(run *models.ImportRun) error {
	sequence, err := NextSequence(r.db, "import_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO import_runs (
			id, sequence, playlist_id, source_file, retry_mode, status,
			queries_total, queries_added, queries_unmatched, error_message,
			started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.PlaylistID(),
		run.SourceFile(),
		run.RetryMode(),
		run.Status(),
		run.Total(),
		run.Added(),
		run.Unmatched(),
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs.
func (r *ImportRunRepository) Get(id string) (*models.ImportRun, error) {
	query := `SELECT ` + importRunColumns + ` FROM import_runs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// minPrefixLen is the shortest ID prefix Find accepts.
const minPrefixLen = 8

// Find resolves a user-supplied reference: a sequence number ("42" or "#42"), a full ID or a unique ID prefix of
// at least eight characters.
//
// A numeric reference is tried as a sequence first; one long enough to be a prefix falls back to the ID lookup.
func (r *ImportRunRepository) Find(ref string) (*models.ImportRun, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if ref == "" {
		return nil, fmt.Errorf("%w: run reference", shared.ErrMissingArgument)
	}

	if seq, err := strconv.Atoi(ref); err == nil {
		query := `SELECT ` + importRunColumns + ` FROM import_runs WHERE sequence = ? AND deleted_at IS NULL`
		run, err := r.scan(r.db.QueryRow(query, seq))
		if err == nil || !errors.Is(err, ErrNotFound) || len(ref) < minPrefixLen {
			return run, err
		}
	} else if len(ref) < minPrefixLen {
		return nil, fmt.Errorf("%w: run reference %q is shorter than %d characters", shared.ErrInvalidArgument, ref, minPrefixLen)
	}

	query := `SELECT ` + importRunColumns + ` FROM import_runs WHERE id LIKE ? AND deleted_at IS NULL LIMIT 2`
	rows, err := r.db.Query(query, ref+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var matches []*models.ImportRun
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: import run %s", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: run reference %q is ambiguous", shared.ErrInvalidArgument, ref)
	}
}

// Update writes the run's status, counts and completion time.
func (r *ImportRunRepository) Update(run *models.ImportRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE import_runs
		SET status = ?, queries_total = ?, queries_added = ?, queries_unmatched = ?,
			error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.Status(),
		run.Total(),
		run.Added(),
		run.Unmatched(),
		nullString(run.ErrorMessage()),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update import run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: import run %s", ErrNotFound, run.ID())
	}

	return nil
}

// Delete soft-deletes a run and its entries in one transaction.
func (r *ImportRunRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if err := softDelete(tx, "import_runs", id, now); err != nil {
		return err
	}

	if _, err := tx.Exec("UPDATE import_entries SET deleted_at = ? WHERE run_id = ? AND deleted_at IS NULL", now, id); err != nil {
		return fmt.Errorf("failed to delete import entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// List returns runs newest first. Supported criteria: "status", "playlist_id" (string) and "limit" (int).
func (r *ImportRunRepository) List(criteria map[string]any) ([]*models.ImportRun, error) {
	query := `SELECT ` + importRunColumns + ` FROM import_runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *ImportRunRepository) scan(row scanner) (*models.ImportRun, error) {
	var (
		id           string
		sequence     int
		playlistID   string
		sourceFile   string
		retryMode    string
		status       string
		total        int
		added        int
		unmatched    int
		errorMessage sql.NullString
		startedAt    time.Time
		completedAt  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &playlistID, &sourceFile, &retryMode, &status,
		&total, &added, &unmatched, &errorMessage,
		&startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: import run", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import run: %w", err)
	}

	var completed, deleted *time.Time
	if completedAt.Valid {
		completed = &completedAt.Time
	}
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestoreImportRun(
		id, sequence, playlistID, sourceFile, retryMode, models.RunStatus(status),
		total, added, unmatched, errorMessage.String,
		startedAt, completed, createdAt, updatedAt, deleted,
	), nil
}
