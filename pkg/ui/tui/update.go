package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Messages the fetcher sends into the program.

// GalleryMsg announces the gallery being downloaded.
type GalleryMsg struct {
	Title       string
	TotalPages  int
	AlreadyDone int
}

// PageStartMsg marks a page as in flight.
type PageStartMsg struct {
	Page     int
	Filename string
}

// PageDoneMsg marks a page as landed.
type PageDoneMsg struct {
	Page int
	Size int64
}

// PageFailMsg marks a page as failed.
type PageFailMsg struct {
	Page int
	Err  error
}

// BudgetMsg updates the request budget gauge.
type BudgetMsg struct {
	Used    int
	Max     int
	ResetAt time.Time
}

// LogMsg appends to the activity log.
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg drives the periodic redraw.
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tea.Batch(tickCmd(), m.spinner.Tick)

	case GalleryMsg:
		m.SetGallery(msg.Title, msg.TotalPages, msg.AlreadyDone)
		m.AddLogMessage("INFO", "Downloading: "+msg.Title)
		return m, nil

	case PageStartMsg:
		m.StartPage(msg.Page, msg.Filename)
		return m, nil

	case PageDoneMsg:
		m.CompletePage(msg.Page, msg.Size)
		return m, nil

	case PageFailMsg:
		m.FailPage(msg.Page, msg.Err)
		if msg.Err != nil {
			m.AddLogMessage("ERROR", fmt.Sprintf("Failed: page %d - %v", msg.Page, msg.Err))
		}
		return m, nil

	case BudgetMsg:
		m.SetBudget(msg.Used, msg.Max, msg.ResetAt)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "p", "P":
		m.isPaused = !m.isPaused
		if m.isPaused {
			m.AddLogMessage("WARN", "Downloads paused by user")
		} else {
			m.AddLogMessage("INFO", "Downloads resumed by user")
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
