package ui

import (
	"testing"
	"time"
)

func TestStatusTrackerResumeSeedsTotalOnly(t *testing.T) {
	st := NewStatusTracker()
	st.SetDownloadedCount(40)

	st.IncrementDownloaded()
	st.IncrementDownloaded()

	if st.GetDownloadedCount() != 42 {
		t.Errorf("Expected 42 total pages, got %d", st.GetDownloadedCount())
	}
	if st.sessionPages != 2 {
		t.Errorf("Expected 2 pages this session, got %d", st.sessionPages)
	}
}

func TestStatusTrackerRateExcludesResumedPages(t *testing.T) {
	st := NewStatusTracker()
	st.startTime = time.Now().Add(-time.Minute)
	st.SetDownloadedCount(100)

	for i := 0; i < 10; i++ {
		st.IncrementDownloaded()
	}

	rate := st.GetDownloadRate()
	if rate < 9 || rate > 11 {
		t.Errorf("Expected roughly 10 pages/min from session pages, got %v", rate)
	}
}
