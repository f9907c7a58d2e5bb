package ui

import "time"

// TUI receives download progress from the fetcher. The unit of progress is
// a gallery page: pages are queued, fetched whole, and land as done or
// failed. Byte totals arrive with completion since page sizes are unknown
// until the image is fetched.
type TUI interface {
	// SetGallery announces the gallery being downloaded. alreadyDone is
	// the number of pages a resumed checkpoint already has on disk.
	SetGallery(title string, totalPages, alreadyDone int)

	StartPage(page int, filename string)
	CompletePage(page int, size int64)
	FailPage(page int, err error)

	UpdateRateLimit(used, max int, resetAt time.Time)

	LogInfo(format string, args ...interface{})
	LogSuccess(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})

	IsPaused() bool
}
