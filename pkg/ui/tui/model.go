package tui

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// PageState tracks one gallery page through its download.
type PageState int

const (
	PageQueued PageState = iota
	PageFetching
	PageDone
	PageFailed
)

// PageDownload is the TUI's record of a single page.
type PageDownload struct {
	Page     int
	Filename string
	Size     int64
	State    PageState
	Started  time.Time
	Finished time.Time
	Err      error
}

// LogMessage is one entry in the activity log.
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
}

// Model holds the TUI state for one download session: the gallery being
// fetched, per-page progress, the request budget, and the activity log.
// Pages are fetched whole, so progress is counted in pages, with byte
// totals accumulated as pages land.
type Model struct {
	spinner    spinner.Model
	galleryBar progress.Model

	galleryTitle string
	totalPages   int
	resumedPages int // already on disk when the session began

	pages map[int]*PageDownload

	donePages   int
	failedPages int
	totalBytes  int64

	budgetUsed    int
	budgetMax     int
	budgetResetAt time.Time

	sessionStart time.Time

	width       int
	height      int
	showHelp    bool
	isPaused    bool
	logMessages []LogMessage
	maxLogLines int

	mu sync.RWMutex
}

// NewModel creates a TUI model. budgetMax seeds the request budget gauge
// until the first real update arrives.
func NewModel(budgetMax int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 50

	if budgetMax <= 0 {
		budgetMax = 30
	}

	return Model{
		spinner:      s,
		galleryBar:   bar,
		pages:        make(map[int]*PageDownload),
		sessionStart: time.Now(),
		maxLogLines:  50,
		budgetMax:    budgetMax,
	}
}

// Init starts the spinner ticking.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetGallery resets per-gallery state for a new download.
func (m *Model) SetGallery(title string, totalPages, alreadyDone int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.galleryTitle = title
	m.totalPages = totalPages
	m.resumedPages = alreadyDone
	m.pages = make(map[int]*PageDownload)
	m.donePages = 0
	m.failedPages = 0
	m.totalBytes = 0
}

// StartPage marks a page as in flight.
func (m *Model) StartPage(page int, filename string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pages[page] = &PageDownload{
		Page:     page,
		Filename: filename,
		State:    PageFetching,
		Started:  time.Now(),
	}
}

// CompletePage marks a page as landed and tallies its bytes.
func (m *Model) CompletePage(page int, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pages[page]
	if !ok {
		p = &PageDownload{Page: page}
		m.pages[page] = p
	}
	p.State = PageDone
	p.Size = size
	p.Finished = time.Now()
	m.donePages++
	m.totalBytes += size
}

// FailPage marks a page as failed.
func (m *Model) FailPage(page int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pages[page]
	if !ok {
		p = &PageDownload{Page: page}
		m.pages[page] = p
	}
	p.State = PageFailed
	p.Err = err
	p.Finished = time.Now()
	m.failedPages++
}

// SetBudget updates the request budget gauge.
func (m *Model) SetBudget(used, max int, resetAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.budgetUsed = used
	if max > 0 {
		m.budgetMax = max
	}
	m.budgetResetAt = resetAt
}

// AddLogMessage appends to the activity log, keeping only the newest
// entries.
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	})
	if len(m.logMessages) > m.maxLogLines {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogLines:]
	}
}

// FetchingPages returns the in-flight pages in page order.
func (m *Model) FetchingPages() []*PageDownload {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*PageDownload
	for _, p := range m.pages {
		if p.State == PageFetching {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// FailedPages returns the failed pages in page order.
func (m *Model) FailedPages() []*PageDownload {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*PageDownload
	for _, p := range m.pages {
		if p.State == PageFailed {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

// Progress returns the fraction of the gallery on disk, counting pages a
// resumed checkpoint already had.
func (m *Model) Progress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progressLocked()
}

func (m *Model) progressLocked() float64 {
	if m.totalPages <= 0 {
		return 0
	}
	f := float64(m.resumedPages+m.donePages) / float64(m.totalPages)
	if f > 1 {
		f = 1
	}
	return f
}

// Rate returns the session's pages per minute and the estimated time to
// finish the remaining pages at that rate.
func (m *Model) Rate() (pagesPerMin float64, eta time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rateLocked()
}

func (m *Model) rateLocked() (pagesPerMin float64, eta time.Duration) {
	elapsed := time.Since(m.sessionStart)
	if elapsed <= 0 || m.donePages == 0 {
		return 0, 0
	}
	pagesPerMin = float64(m.donePages) / elapsed.Minutes()

	remaining := m.totalPages - m.resumedPages - m.donePages - m.failedPages
	if remaining > 0 && pagesPerMin > 0 {
		eta = time.Duration(float64(remaining)/pagesPerMin) * time.Minute
	}
	return pagesPerMin, eta
}

// FormatBytes formats bytes to human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
