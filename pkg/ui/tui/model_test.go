package tui

import (
	"fmt"
	"testing"
	"time"
)

func TestModelPageLifecycle(t *testing.T) {
	model := NewModel(30)
	model.SetGallery("Sample Gallery", 4, 0)

	model.StartPage(1, "00000001.jpg")
	model.StartPage(2, "00000002.jpg")

	if got := len(model.FetchingPages()); got != 2 {
		t.Errorf("Expected 2 pages in flight, got %d", got)
	}

	model.CompletePage(1, 512*1024)
	if model.donePages != 1 {
		t.Errorf("Expected 1 done page, got %d", model.donePages)
	}
	if model.totalBytes != 512*1024 {
		t.Errorf("Expected %d bytes tallied, got %d", 512*1024, model.totalBytes)
	}
	if got := len(model.FetchingPages()); got != 1 {
		t.Errorf("Expected 1 page in flight after completion, got %d", got)
	}

	model.FailPage(2, fmt.Errorf("404"))
	if model.failedPages != 1 {
		t.Errorf("Expected 1 failed page, got %d", model.failedPages)
	}
	if failed := model.FailedPages(); len(failed) != 1 || failed[0].Page != 2 {
		t.Errorf("Expected page 2 in failed list, got %v", failed)
	}
}

func TestModelProgressCountsResumedPages(t *testing.T) {
	// A resumed session starts with pages already on disk; the bar must
	// reflect them without inflating the session's own counters.
	model := NewModel(30)
	model.SetGallery("Resumed Gallery", 10, 6)

	if got := model.Progress(); got != 0.6 {
		t.Errorf("Expected progress 0.6 after resume, got %v", got)
	}

	model.StartPage(7, "00000007.jpg")
	model.CompletePage(7, 1024)

	if got := model.Progress(); got != 0.7 {
		t.Errorf("Expected progress 0.7, got %v", got)
	}
	if model.donePages != 1 {
		t.Errorf("Expected 1 page done this session, got %d", model.donePages)
	}
}

func TestModelRate(t *testing.T) {
	model := NewModel(30)
	model.SetGallery("Gallery", 100, 0)
	model.sessionStart = time.Now().Add(-time.Minute)

	for page := 1; page <= 10; page++ {
		model.StartPage(page, fmt.Sprintf("%08d.jpg", page))
		model.CompletePage(page, 1024)
	}

	pagesPerMin, eta := model.Rate()
	if pagesPerMin < 9 || pagesPerMin > 11 {
		t.Errorf("Expected roughly 10 pages/min, got %v", pagesPerMin)
	}
	// 90 pages remain at ~10/min
	if eta < 8*time.Minute || eta > 10*time.Minute {
		t.Errorf("Expected ETA near 9 minutes, got %v", eta)
	}
}

func TestModelBudget(t *testing.T) {
	model := NewModel(30)

	reset := time.Now().Add(time.Minute)
	model.SetBudget(12, 30, reset)

	if model.budgetUsed != 12 || model.budgetMax != 30 {
		t.Errorf("Expected budget 12/30, got %d/%d", model.budgetUsed, model.budgetMax)
	}

	// A zero max must not wipe the gauge ceiling
	model.SetBudget(13, 0, reset)
	if model.budgetMax != 30 {
		t.Errorf("Expected budget ceiling kept at 30, got %d", model.budgetMax)
	}
}

func TestModelLogTail(t *testing.T) {
	model := NewModel(30)
	model.maxLogLines = 5

	for i := 0; i < 8; i++ {
		model.AddLogMessage("INFO", fmt.Sprintf("message %d", i))
	}

	if got := len(model.logMessages); got != 5 {
		t.Errorf("Expected log capped at 5 entries, got %d", got)
	}
	if model.logMessages[0].Message != "message 3" {
		t.Errorf("Expected oldest kept entry to be message 3, got %q", model.logMessages[0].Message)
	}
}

func TestModelSetGalleryResets(t *testing.T) {
	model := NewModel(30)
	model.SetGallery("First", 5, 0)
	model.StartPage(1, "00000001.jpg")
	model.CompletePage(1, 2048)

	model.SetGallery("Second", 8, 0)
	if model.donePages != 0 || model.totalBytes != 0 || len(model.pages) != 0 {
		t.Error("Expected per-gallery state reset for the next gallery")
	}
	if model.totalPages != 8 {
		t.Errorf("Expected 8 total pages, got %d", model.totalPages)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{500, "500 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, test := range tests {
		result := FormatBytes(test.bytes)
		if result != test.expected {
			t.Errorf("FormatBytes(%d) = %s, expected %s", test.bytes, result, test.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{90 * time.Second, "01:30"},
		{time.Hour + 5*time.Minute + 3*time.Second, "01:05:03"},
		{-time.Second, "00:00"},
	}

	for _, test := range tests {
		if got := formatDuration(test.d); got != test.expected {
			t.Errorf("formatDuration(%v) = %s, expected %s", test.d, got, test.expected)
		}
	}
}
