// Package repositories implements SQLite persistence for import history and the match cache.
//
// Repositories handle CRUD operations with atomic sequence generation for human-readable ordering.
// They support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [ImportRunRepository] : one row per import with status and counts
//   - [ImportEntryRepository] : per-query journal rows, written as the import progresses
//   - [MatchCacheAdapter] : query to track cache reused by later imports
//   - [HistoryRecorder] : adapts the run and entry repositories to the import engine
//
// Sequence numbers give runs a short handle (e.g. run #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
