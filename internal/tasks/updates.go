package tasks

import (
	"fmt"

	"github.com/desertthunder/songlist/internal/models"
)

// ProgressUpdate represents a progress event during an import.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current query number, starting at 1
	Total   int    // Total queries in the run
	Message string // Human-readable message for display
	Data    any    // QueryOutcome for resolved queries, ImportResult on completion
}

// Operation phase enumeration
type Phase int

const (
	LookupQuery Phase = iota
	RetryQuery
	QueryAdded
	QueryUnmatched
	ImportComplete
)

func (p Phase) String() string {
	switch p {
	case LookupQuery:
		return "lookup_query"
	case RetryQuery:
		return "retry_query"
	case QueryAdded:
		return "query_added"
	case QueryUnmatched:
		return "query_unmatched"
	case ImportComplete:
		return "import_complete"
	default:
		return ""
	}
}

func lookupUpdate(step, total int, query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LookupQuery,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up %q", step, total, query),
	}
}

func retryUpdate(step, total int, query string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RetryQuery,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Retrying %q once: %v", step, total, query, err),
	}
}

func addedUpdate(step, total int, outcome QueryOutcome, track *models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QueryAdded,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, track),
		Data:    outcome,
	}
}

func unmatchedUpdate(step, total int, outcome QueryOutcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QueryUnmatched,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, outcome.Query, outcome.Err),
		Data:    outcome,
	}
}

func completeUpdate(result *ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportComplete,
		Step:    len(result.Outcomes),
		Total:   result.Total,
		Message: fmt.Sprintf("Done: %d added, %d unable to find", result.Added, len(result.Unmatched)),
		Data:    result,
	}
}
