package logging

import (
	"context"
	"maps"
	"sync"
)

// Entry is a captured log line.
type Entry struct {
	Level   string
	Message string
	Args    []any
	Fields  map[string]any
}

type entryLog struct {
	mu      sync.Mutex
	entries []Entry
}

// Recorder is an in-memory Logger that keeps every entry. It is safe for
// concurrent use; child loggers from WithFields share the same log.
type Recorder struct {
	log    *entryLog
	fields map[string]any
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{log: &entryLog{}}
}

func (r *Recorder) record(level, msg string, args []any) {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	r.log.entries = append(r.log.entries, Entry{
		Level:   level,
		Message: msg,
		Args:    append([]any(nil), args...),
		Fields:  maps.Clone(r.fields),
	})
}

func (r *Recorder) Trace(msg string, args ...any) { r.record("trace", msg, args) }
func (r *Recorder) Debug(msg string, args ...any) { r.record("debug", msg, args) }
func (r *Recorder) Info(msg string, args ...any)  { r.record("info", msg, args) }
func (r *Recorder) Warn(msg string, args ...any)  { r.record("warn", msg, args) }
func (r *Recorder) Error(msg string, args ...any) { r.record("error", msg, args) }
func (r *Recorder) Fatal(msg string, args ...any) { r.record("fatal", msg, args) }

// WithFields returns a child recorder writing to the same log.
func (r *Recorder) WithFields(fields map[string]any) Logger {
	merged := make(map[string]any, len(r.fields)+len(fields))
	maps.Copy(merged, r.fields)
	maps.Copy(merged, fields)
	return &Recorder{log: r.log, fields: merged}
}

func (r *Recorder) WithContext(context.Context) Logger {
	return r
}

// Entries returns a copy of all entries recorded so far.
func (r *Recorder) Entries() []Entry {
	r.log.mu.Lock()
	defer r.log.mu.Unlock()
	return append([]Entry(nil), r.log.entries...)
}

// Messages returns the messages recorded at the given level.
func (r *Recorder) Messages(level string) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

var (
	_ Logger       = (*Recorder)(nil)
	_ FieldsLogger = (*Recorder)(nil)
)
