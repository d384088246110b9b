// Package testutil holds test helpers shared across packages.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log call
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// logSink is the storage shared by a handler and its With* derivatives
type logSink struct {
	mu      sync.Mutex
	records []LogRecord
}

// CaptureHandler records every log call, including attributes added
// through Logger.With.
type CaptureHandler struct {
	sink  *logSink
	attrs []slog.Attr
}

// NewTestLogger returns a logger whose records can be inspected
func NewTestLogger() (*slog.Logger, *CaptureHandler) {
	h := &CaptureHandler{sink: &logSink{}}
	return slog.New(h), h
}

// Enabled implements slog.Handler
func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	h.sink.records = append(h.sink.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	return nil
}

// WithAttrs implements slog.Handler
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &CaptureHandler{sink: h.sink, attrs: merged}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *CaptureHandler) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of everything captured so far
func (h *CaptureHandler) Records() []LogRecord {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return append([]LogRecord(nil), h.sink.records...)
}

// Find returns the records at level whose message contains msg
func (h *CaptureHandler) Find(level slog.Level, msg string) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, msg) {
			out = append(out, r)
		}
	}
	return out
}

// AssertLogged fails t unless a record at level contains msg and carries
// every attribute in attrs.
func AssertLogged(t testing.TB, h *CaptureHandler, level slog.Level, msg string, attrs map[string]any) {
	t.Helper()
	for _, r := range h.Find(level, msg) {
		if hasAttrs(r, attrs) {
			return
		}
	}
	t.Errorf("no %s record %q with attrs %v", level, msg, attrs)
	for _, r := range h.Records() {
		t.Logf("  [%s] %s %v", r.Level, r.Message, r.Attrs)
	}
}

func hasAttrs(r LogRecord, attrs map[string]any) bool {
	for k, want := range attrs {
		if got, ok := r.Attrs[k]; !ok || got != want {
			return false
		}
	}
	return true
}
