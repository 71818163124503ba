package models

import (
	"errors"
	"time"
)

// RunStatus is the lifecycle state of an [ImportRun].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// EntryStatus is the final outcome of an [ImportEntry].
type EntryStatus string

const (
	EntryAdded     EntryStatus = "added"
	EntryUnmatched EntryStatus = "unmatched"
)

// ImportRun records one execution of the import command.
type ImportRun struct {
	id           string
	sequence     int
	playlistID   string
	sourceFile   string
	retryMode    string
	status       RunStatus
	total        int
	added        int
	unmatched    int
	errorMessage string
	startedAt    time.Time
	completedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewImportRun creates a running [ImportRun] for the given playlist and source file.
func NewImportRun(sequence int, playlistID, sourceFile, retryMode string, total int) *ImportRun {
	now := time.Now()
	return &ImportRun{
		sequence:   sequence,
		playlistID: playlistID,
		sourceFile: sourceFile,
		retryMode:  retryMode,
		status:     RunRunning,
		total:      total,
		startedAt:  now,
		createdAt:  now,
		updatedAt:  now,
	}
}

// RestoreImportRun rebuilds an [ImportRun] from stored column values.
func RestoreImportRun(
	id string, sequence int, playlistID, sourceFile, retryMode string, status RunStatus,
	total, added, unmatched int, errorMessage string,
	startedAt time.Time, completedAt *time.Time, createdAt, updatedAt time.Time, deletedAt *time.Time,
) *ImportRun {
	return &ImportRun{
		id:           id,
		sequence:     sequence,
		playlistID:   playlistID,
		sourceFile:   sourceFile,
		retryMode:    retryMode,
		status:       status,
		total:        total,
		added:        added,
		unmatched:    unmatched,
		errorMessage: errorMessage,
		startedAt:    startedAt,
		completedAt:  completedAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		deletedAt:    deletedAt,
	}
}

func (r *ImportRun) ID() string              { return r.id }
func (r *ImportRun) Sequence() int           { return r.sequence }
func (r *ImportRun) PlaylistID() string      { return r.playlistID }
func (r *ImportRun) SourceFile() string      { return r.sourceFile }
func (r *ImportRun) RetryMode() string       { return r.retryMode }
func (r *ImportRun) Status() RunStatus       { return r.status }
func (r *ImportRun) Total() int              { return r.total }
func (r *ImportRun) Added() int              { return r.added }
func (r *ImportRun) Unmatched() int          { return r.unmatched }
func (r *ImportRun) ErrorMessage() string    { return r.errorMessage }
func (r *ImportRun) StartedAt() time.Time    { return r.startedAt }
func (r *ImportRun) CompletedAt() *time.Time { return r.completedAt }
func (r *ImportRun) CreatedAt() time.Time    { return r.createdAt }
func (r *ImportRun) UpdatedAt() time.Time    { return r.updatedAt }
func (r *ImportRun) DeletedAt() *time.Time   { return r.deletedAt }

func (r *ImportRun) SetID(id string)          { r.id = id }
func (r *ImportRun) SetSequence(seq int)      { r.sequence = seq }
func (r *ImportRun) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *ImportRun) SetCounts(added, unmatched int) {
	r.added = added
	r.unmatched = unmatched
}

// Finish marks the run as finished with the given status.
// A non-nil err is recorded as the run's error message.
func (r *ImportRun) Finish(status RunStatus, err error) {
	now := time.Now()
	r.status = status
	r.completedAt = &now
	if err != nil {
		r.errorMessage = err.Error()
	}
}

// Validate checks that the run references a playlist and a source file.
func (r *ImportRun) Validate() error {
	if r.playlistID == "" {
		return errors.New("playlist id is required")
	}
	if r.sourceFile == "" {
		return errors.New("source file is required")
	}
	if r.total < 0 || r.added < 0 || r.unmatched < 0 {
		return errors.New("counts must not be negative")
	}
	switch r.status {
	case RunRunning, RunCompleted, RunCancelled, RunFailed:
	default:
		return errors.New("invalid run status")
	}
	return nil
}

// ImportEntry records the outcome of a single query within an [ImportRun].
type ImportEntry struct {
	id           string
	sequence     int
	runID        string
	position     int
	query        string
	trackURI     string
	trackName    string
	attempts     int
	status       EntryStatus
	errorMessage string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewImportEntry creates an entry for the query at position within run runID.
func NewImportEntry(runID string, position int, query string, attempts int, track *Track, err error) *ImportEntry {
	now := time.Now()
	e := &ImportEntry{
		runID:     runID,
		position:  position,
		query:     query,
		attempts:  attempts,
		status:    EntryAdded,
		createdAt: now,
		updatedAt: now,
	}
	if track != nil {
		e.trackURI = track.URI
		e.trackName = track.String()
	}
	if err != nil {
		e.status = EntryUnmatched
		e.errorMessage = err.Error()
	}
	return e
}

// RestoreImportEntry rebuilds an [ImportEntry] from stored column values.
func RestoreImportEntry(
	id string, sequence int, runID string, position int, query, trackURI, trackName string,
	attempts int, status EntryStatus, errorMessage string,
	createdAt, updatedAt time.Time, deletedAt *time.Time,
) *ImportEntry {
	return &ImportEntry{
		id:           id,
		sequence:     sequence,
		runID:        runID,
		position:     position,
		query:        query,
		trackURI:     trackURI,
		trackName:    trackName,
		attempts:     attempts,
		status:       status,
		errorMessage: errorMessage,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		deletedAt:    deletedAt,
	}
}

func (e *ImportEntry) ID() string            { return e.id }
func (e *ImportEntry) Sequence() int         { return e.sequence }
func (e *ImportEntry) RunID() string         { return e.runID }
func (e *ImportEntry) Position() int         { return e.position }
func (e *ImportEntry) Query() string         { return e.query }
func (e *ImportEntry) TrackURI() string      { return e.trackURI }
func (e *ImportEntry) TrackName() string     { return e.trackName }
func (e *ImportEntry) Attempts() int         { return e.attempts }
func (e *ImportEntry) Status() EntryStatus   { return e.status }
func (e *ImportEntry) ErrorMessage() string  { return e.errorMessage }
func (e *ImportEntry) CreatedAt() time.Time  { return e.createdAt }
func (e *ImportEntry) UpdatedAt() time.Time  { return e.updatedAt }
func (e *ImportEntry) DeletedAt() *time.Time { return e.deletedAt }

func (e *ImportEntry) SetID(id string)     { e.id = id }
func (e *ImportEntry) SetSequence(seq int) { e.sequence = seq }

// Validate checks the entry's references and that added entries carry a track.
func (e *ImportEntry) Validate() error {
	if e.runID == "" {
		return errors.New("run id is required")
	}
	if e.query == "" {
		return errors.New("query is required")
	}
	if e.position < 0 {
		return errors.New("position must not be negative")
	}
	if e.attempts < 1 {
		return errors.New("attempts must be at least 1")
	}
	switch e.status {
	case EntryAdded:
		if e.trackURI == "" {
			return errors.New("added entry requires a track uri")
		}
	case EntryUnmatched:
	default:
		return errors.New("invalid entry status")
	}
	return nil
}
