package logger

// LogDownload records the outcome of one page download.
func LogDownload(galleryID int64, page int, success bool, err error) {
	l := GetLogger().WithFields(map[string]interface{}{
		"gallery": galleryID,
		"page":    page,
		"success": success,
	})

	switch {
	case err != nil:
		l.WithError(err).Error("Download failed")
	case success:
		l.Info("Download completed")
	default:
		l.Warn("Download skipped")
	}
}

// LogRateLimit records a pause forced by the request budget or the service.
func LogRateLimit(endpoint string, retryAfter int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfter,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// NewNopLogger returns a logger that discards everything. Tests that don't
// inspect log output use it to keep noise down.
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
