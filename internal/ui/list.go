package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/songlist/internal/tasks"
)

var _ list.Item = outcomeItem{}

// outcomeItem wraps [tasks.QueryOutcome] to implement [list.Item].
type outcomeItem struct {
	outcome tasks.QueryOutcome
}

func (i outcomeItem) FilterValue() string { return i.outcome.Query }

func (i outcomeItem) Title() string {
	if i.outcome.Matched() {
		return fmt.Sprintf("✓ %s", i.outcome.Query)
	}
	return fmt.Sprintf("✗ %s", i.outcome.Query)
}

func (i outcomeItem) Description() string {
	if !i.outcome.Matched() {
		return fmt.Sprintf("unable to find after %d attempt(s): %v", i.outcome.Attempts, i.outcome.Err)
	}

	desc := i.outcome.Track.String()
	if i.outcome.Track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.outcome.Track.Album)
	}
	if i.outcome.Cached {
		desc += " • cached"
	}
	return desc
}

// outcomeItems lists unmatched outcomes first, each group in input order.
func outcomeItems(outcomes []tasks.QueryOutcome) []list.Item {
	items := make([]list.Item, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Matched() {
			items = append(items, outcomeItem{outcome: o})
		}
	}
	for _, o := range outcomes {
		if o.Matched() {
			items = append(items, outcomeItem{outcome: o})
		}
	}
	return items
}
