// Package testutil provides shared test helpers, most importantly a
// buffered slog handler for asserting on structured log output.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured log entry. Attribute keys from WithGroup scopes
// are flattened with a dot separator ("request.id").
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogBuffer collects the records written through handlers created from it.
// All methods are safe for concurrent use.
type LogBuffer struct {
	mu      sync.Mutex
	records []LogRecord
	t       *testing.T
}

// NewTestLogger returns a logger whose output lands in the returned buffer.
// Records are echoed to the test log so failures show the captured output.
func NewTestLogger(t *testing.T) (*slog.Logger, *LogBuffer) {
	buf := &LogBuffer{t: t}
	return slog.New(&bufferHandler{buf: buf}), buf
}

// GetRecords returns a copy of every captured record in write order.
func (b *LogBuffer) GetRecords() []LogRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := make([]LogRecord, len(b.records))
	copy(records, b.records)
	return records
}

// GetRecordsByLevel returns the captured records at exactly the given level.
func (b *LogBuffer) GetRecordsByLevel(level slog.Level) []LogRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	var filtered []LogRecord
	for _, r := range b.records {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ContainsMessage reports whether any record's message contains the given
// substring.
func (b *LogBuffer) ContainsMessage(message string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.records {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record carries the attribute.
func (b *LogBuffer) ContainsAttr(key string, value any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.records {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Count returns the number of captured records.
func (b *LogBuffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

func (b *LogBuffer) append(r LogRecord) {
	b.mu.Lock()
	b.records = append(b.records, r)
	b.mu.Unlock()

	if b.t != nil {
		b.t.Logf("[%s] %s %v", r.Level, r.Message, r.Attrs)
	}
}

// bufferHandler is the slog.Handler view of a buffer. WithAttrs and
// WithGroup derive new handlers writing into the same buffer, so a logger
// passed through component constructors still lands in the test's buffer.
type bufferHandler struct {
	buf    *LogBuffer
	attrs  []slog.Attr
	groups []string
}

func (h *bufferHandler) Enabled(context.Context, slog.Level) bool {
	// Tests want every level, including debug.
	return true
}

func (h *bufferHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[prefix+a.Key] = a.Value.Resolve().Any()
		return true
	})

	h.buf.append(LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

func (h *bufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := h.clone()

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range attrs {
		derived.attrs = append(derived.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return derived
}

func (h *bufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := h.clone()
	derived.groups = append(derived.groups, name)
	return derived
}

func (h *bufferHandler) clone() *bufferHandler {
	return &bufferHandler{
		buf:    h.buf,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}
