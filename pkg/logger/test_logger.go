package logger

import (
	"strings"
	"sync"
)

// LogMessage is one captured log event.
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// logRecorder collects messages from a TestLogger and every logger derived
// from it.
type logRecorder struct {
	mu       sync.Mutex
	messages []LogMessage
}

func (r *logRecorder) record(m LogMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// TestLogger captures log events for assertions. Derived loggers share the
// recorder, so fields and errors attached with the With helpers show up on
// the root logger's messages.
type TestLogger struct {
	rec    *logRecorder
	fields map[string]interface{}
	err    error
}

// NewTestLogger creates a capturing logger for tests.
func NewTestLogger() *TestLogger {
	return &TestLogger{rec: &logRecorder{}}
}

func (l *TestLogger) log(level, msg string, extra map[string]interface{}) {
	fields := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	l.rec.record(LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   l.err,
	})
}

func (l *TestLogger) derive() *TestLogger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	return &TestLogger{rec: l.rec, fields: fields, err: l.err}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	d := l.derive()
	d.fields[key] = value
	return d
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	d := l.derive()
	for k, v := range fields {
		d.fields[k] = v
	}
	return d
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	d := l.derive()
	d.err = err
	return d
}

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

// GetMessages returns a copy of everything captured so far.
func (l *TestLogger) GetMessages() []LogMessage {
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()
	out := make([]LogMessage, len(l.rec.messages))
	copy(out, l.rec.messages)
	return out
}

// GetMessagesByLevel returns captured messages at the given level.
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var out []LogMessage
	for _, m := range l.GetMessages() {
		if m.Level == level {
			out = append(out, m)
		}
	}
	return out
}

// HasMessage reports whether any captured message contains the substring.
func (l *TestLogger) HasMessage(substr string) bool {
	for _, m := range l.GetMessages() {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// HasError reports whether any captured message carries the given error.
func (l *TestLogger) HasError(err error) bool {
	for _, m := range l.GetMessages() {
		if m.Error == err {
			return true
		}
	}
	return false
}

// Clear discards everything captured so far.
func (l *TestLogger) Clear() {
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()
	l.rec.messages = nil
}
