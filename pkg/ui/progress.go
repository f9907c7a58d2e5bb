package ui

import (
	"fmt"
	"time"
)

// StatusTracker tallies pages for the plain-console output mode. Totals
// include checkpoint-resumed pages; sessionPages counts only this run, so
// the pages/min rate stays honest across resumes.
type StatusTracker struct {
	total        int
	sessionPages int
	listingScans int
	startTime    time.Time
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{startTime: time.Now()}
}

// SetDownloadedCount seeds the total from a checkpoint on resume.
func (st *StatusTracker) SetDownloadedCount(count int) {
	st.total = count
}

// GetDownloadedCount returns the total pages on disk, resumed included.
func (st *StatusTracker) GetDownloadedCount() int {
	return st.total
}

// IncrementDownloaded records one page fetched this session.
func (st *StatusTracker) IncrementDownloaded() {
	st.total++
	st.sessionPages++
}

// GetElapsedTime returns the time since the session started.
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.startTime)
}

// GetDownloadRate returns this session's pages per minute.
func (st *StatusTracker) GetDownloadRate() float64 {
	minutes := st.GetElapsedTime().Minutes()
	if minutes == 0 {
		return 0
	}
	return float64(st.sessionPages) / minutes
}

// PrintProgress rewrites the single status line after a page lands.
func (st *StatusTracker) PrintProgress() {
	line := fmt.Sprintf("%s %d pages", Green("[SAVED]"), st.total)
	if rate := st.GetDownloadRate(); rate > 0 {
		line += fmt.Sprintf(" | %.1f pages/min", rate)
	}
	fmt.Printf("\r%s", line)
}

// PrintBatchStatus announces a listing-page scan while page keys are
// being resolved.
func (st *StatusTracker) PrintBatchStatus() {
	st.listingScans++
	fmt.Printf("\n%s %s\n", Magenta("[SCANNING]"), Yellow(fmt.Sprintf("listing page %d", st.listingScans)))
}
