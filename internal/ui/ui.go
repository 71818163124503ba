package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songlist/internal/tasks"
)

// recentLimit caps the outcome lines shown under the progress bar.
const recentLimit = 6

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ImportView ViewState = iota
	ResultView
)

// Importer runs an import, publishing progress on the given channel.
//
// Satisfied by [tasks.ImportEngine].
type Importer interface {
	Run(ctx context.Context, req tasks.ImportRequest, progress chan<- tasks.ProgressUpdate) (*tasks.ImportResult, error)
}

// Model represents the TUI application state.
type Model struct {
	parent       context.Context
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	engine       Importer
	request      tasks.ImportRequest
	width        int
	height       int
	spinner      spinner.Model
	bar          progress.Model
	outcomes     list.Model
	progressChan chan tasks.ProgressUpdate
	done         chan importCompleteData
	latest       tasks.ProgressUpdate
	recent       []string
	added        int
	unmatched    int
	cancelling   bool
	quitting     bool
	result       *tasks.ImportResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model that runs req on engine once started.
//
// The model derives a cancellable context from parent; cancelling the import from the keyboard does not cancel
// parent. When parent ends the model quits as soon as the import returns.
func NewModel(parent context.Context, engine Importer, req tasks.ImportRequest) *Model {
	ctx, cancel := context.WithCancel(parent)

	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok))
	bar := progress.New(progress.WithGradient(styles.gradient[0], styles.gradient[1]))

	return &Model{
		parent:  parent,
		ctx:     ctx,
		cancel:  cancel,
		view:    ImportView,
		engine:  engine,
		request: req,
		spinner: s,
		bar:     bar,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the import result and error once the import has finished.
//
// After a cancelled import the result holds the queries processed before cancellation.
func (m *Model) Result() (*tasks.ImportResult, error) {
	return m.result, m.err
}

// Init starts the spinner and the import.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startImport())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-4, 10)
		m.help.Width = msg.Width
		if m.view == ResultView {
			m.outcomes.SetSize(msg.Width-4, m.listHeight())
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ImportView:
			return m.handleImportKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != ImportView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.bar.Update(msg)
		m.bar = pm.(progress.Model)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			return m, tea.Batch(m.applyProgress(msg.data.(tasks.ProgressUpdate)), m.waitForProgress())
		case MsgImportComplete:
			data := msg.data.(importCompleteData)
			return m, m.finish(data.result, data.err)
		}
	}

	if m.view == ResultView {
		var cmd tea.Cmd
		m.outcomes, cmd = m.outcomes.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ImportView:
		return m.renderImport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleImportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		m.cancelImport()
	case key.Matches(msg, m.keys.cancel):
		m.cancelImport()
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.outcomes.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.outcomes, cmd = m.outcomes.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.outcomes, cmd = m.outcomes.Update(msg)
	return m, cmd
}

func (m *Model) cancelImport() {
	if m.cancelling {
		return
	}
	m.cancelling = true
	m.cancel()
}

func (m *Model) applyProgress(update tasks.ProgressUpdate) tea.Cmd {
	m.latest = update

	switch update.Phase {
	case tasks.QueryAdded:
		m.added++
		m.pushRecent(styles.ok.Render(update.Message))
	case tasks.QueryUnmatched:
		m.unmatched++
		m.pushRecent(styles.warn.Render(update.Message))
	case tasks.RetryQuery:
		m.pushRecent(styles.muted.Render(update.Message))
	}

	if update.Total == 0 {
		return nil
	}
	return m.bar.SetPercent(float64(m.added+m.unmatched) / float64(update.Total))
}

func (m *Model) pushRecent(line string) {
	m.recent = append(m.recent, line)
	if len(m.recent) > recentLimit {
		m.recent = m.recent[len(m.recent)-recentLimit:]
	}
}

func (m *Model) finish(result *tasks.ImportResult, err error) tea.Cmd {
	m.result = result
	m.err = err
	m.view = ResultView
	m.progressChan = nil
	m.done = nil
	m.cancel()

	var items []list.Item
	if result != nil {
		items = outcomeItems(result.Outcomes)
	}
	m.outcomes = list.New(items, list.NewDefaultDelegate(), max(m.width-4, 0), m.listHeight())
	m.outcomes.Title = "Outcomes"
	m.outcomes.SetShowHelp(false)

	if m.quitting || m.parent.Err() != nil {
		return tea.Quit
	}
	return nil
}

func (m *Model) listHeight() int {
	return max(m.height-12, 5)
}

func (m *Model) startImport() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.done = make(chan importCompleteData, 1)

	progressChan, done := m.progressChan, m.done
	ctx, engine, req := m.ctx, m.engine, m.request

	go func() {
		result, err := engine.Run(ctx, req, progressChan)
		done <- importCompleteData{result: result, err: err}
	}()

	return m.waitForProgress()
}

// waitForProgress delivers the next progress update, or the final result once the engine returns.
//
// Updates still buffered when the engine returns are drained first.
func (m *Model) waitForProgress() tea.Cmd {
	progressChan, done := m.progressChan, m.done
	if progressChan == nil {
		return nil
	}

	return func() tea.Msg {
		select {
		case update := <-progressChan:
			return progressUpdateMsg(update)
		case data := <-done:
			select {
			case update := <-progressChan:
				done <- data
				return progressUpdateMsg(update)
			default:
			}
			return importCompleteMsg(data.result, data.err)
		}
	}
}

func (m *Model) renderImport() string {
	title := styles.title.Render(fmt.Sprintf("Importing %s into playlist %s", filepath.Base(m.request.SourceFile), m.request.PlaylistID))

	status := "Starting..."
	if m.latest.Message != "" {
		status = m.latest.Message
	}
	if m.cancelling {
		status = styles.warn.Render("Cancelling after the current query...")
	}

	counts := fmt.Sprintf("%s  %s  %s",
		styles.ok.Render(fmt.Sprintf("%d added", m.added)),
		styles.warn.Render(fmt.Sprintf("%d unable to find", m.unmatched)),
		styles.muted.Render(fmt.Sprintf("%d queries", len(m.request.Queries))),
	)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s %s\n\n%s\n%s\n", title, m.spinner.View(), status, m.bar.View(), counts)
	if len(m.recent) > 0 {
		b.WriteString("\n" + strings.Join(m.recent, "\n") + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderResult() string {
	if m.result == nil {
		msg := "Import failed"
		if m.err != nil {
			msg = fmt.Sprintf("Import failed: %v", m.err)
		}
		return styles.err.Render(msg+"\n\nPress q to quit") + "\n"
	}

	var title string
	switch {
	case errors.Is(m.err, context.Canceled) || m.result.Cancelled:
		title = styles.warn.Bold(true).Render("Import cancelled")
	case m.err != nil:
		title = styles.err.Render(fmt.Sprintf("Import stopped: %v", m.err))
	default:
		title = styles.ok.Render("✓ Import Complete!")
	}

	info := fmt.Sprintf(
		"\nPlaylist: %s\nProcessed: %d/%d\nAdded: %d (%.1f%%)\nUnable to find: %d",
		m.result.PlaylistID,
		len(m.result.Outcomes),
		m.result.Total,
		m.result.Added,
		m.result.MatchPercentage(),
		len(m.result.Unmatched),
	)

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, info, m.outcomes.View(), m.help.View(m.keys))
}
