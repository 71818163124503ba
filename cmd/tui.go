package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songlist/internal/tasks"
	"github.com/desertthunder/songlist/internal/ui"
)

// tuiLogPath receives logs while the progress view owns the terminal.
const tuiLogPath = "./tmp/songlist-tui.log"

// runTUI runs req on engine behind the interactive progress view and returns the engine's result.
func (r *Runner) runTUI(ctx context.Context, engine ui.Importer, req tasks.ImportRequest) (*tasks.ImportResult, error) {
	model := ui.NewModel(ctx, engine, req)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	return model.Result()
}
