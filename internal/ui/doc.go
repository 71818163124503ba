// Package ui implements an interactive progress view for imports using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [ImportView] : Spinner, progress bar and the most recent query outcomes while the import runs
//  2. [ResultView] : Totals plus a filterable list of every outcome, unmatched queries first
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Progress updates flow through a buffered channel from the [Importer], which never blocks on a slow UI.
//
// Quitting while an import runs cancels it and waits for the partial result, so callers can still write the
// unable-to-find report from [Model.Result].
package ui
