package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI wraps the bubbletea program behind the fetcher-facing interface.
// Methods translate fetcher calls into messages for the update loop.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a TUI. budgetMax seeds the request budget gauge.
func NewTUI(budgetMax int) *TUI {
	model := NewModel(budgetMax)
	program := tea.NewProgram(&model, tea.WithAltScreen())

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the program until the user quits or Stop is called.
func (t *TUI) Start() error {
	go func() {
		// Kick off the redraw loop once the program is up
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	_, err := t.program.Run()
	return err
}

// Stop shuts the program down gracefully.
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the update loop.
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// SetGallery announces the gallery being downloaded.
func (t *TUI) SetGallery(title string, totalPages, alreadyDone int) {
	t.Send(GalleryMsg{Title: title, TotalPages: totalPages, AlreadyDone: alreadyDone})
}

// StartPage marks a page as in flight.
func (t *TUI) StartPage(page int, filename string) {
	t.Send(PageStartMsg{Page: page, Filename: filename})
}

// CompletePage marks a page as landed.
func (t *TUI) CompletePage(page int, size int64) {
	t.Send(PageDoneMsg{Page: page, Size: size})
}

// FailPage marks a page as failed.
func (t *TUI) FailPage(page int, err error) {
	t.Send(PageFailMsg{Page: page, Err: err})
}

// UpdateRateLimit updates the request budget gauge.
func (t *TUI) UpdateRateLimit(used, max int, resetAt time.Time) {
	t.Send(BudgetMsg{Used: used, Max: max, ResetAt: resetAt})
}

// Log sends a log message to the activity log.
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogSuccess logs a success message
func (t *TUI) LogSuccess(format string, args ...interface{}) {
	t.Log("SUCCESS", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}

// IsPaused returns whether downloads are paused
func (t *TUI) IsPaused() bool {
	t.model.mu.RLock()
	defer t.model.mu.RUnlock()
	return t.model.isPaused
}
