// Package tasks implements the import pipeline: load queries from a file, match each one, insert the match into a playlist.
//
// # Loading
//
// [LoadQueries] reads the whole input file and [NormalizeQueries] turns it into an ordered list of non-blank lines.
// Lines are never trimmed or parsed; "title - artist" is a convention of the input, not a format.
//
// # Import Loop
//
// [ImportEngine.Run] walks the queries strictly in order. For every attempt it waits on the [Pacer], searches
// (or hits the [MatchCacher]) and inserts the first result at position 0, so the playlist ends up in reverse
// file order. A failed attempt is retried after [Pacer.Backoff] when the [RetryPolicy] allows it; otherwise the
// query is recorded as unmatched and the loop moves on.
//
// # Retry Policies
//
//   - [PerQueryRetry] gives every query one retry.
//   - [SharedFlagRetry] shares one toggle across the whole run, so a success after a retry
//     leaves the next query's first failure without a retry.
//
// # Progress
//
// Operations emit [ProgressUpdate] values on an optional channel. Sends never block; a full channel drops the update.
package tasks
