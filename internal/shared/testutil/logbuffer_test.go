package testutil

import (
	"log/slog"
	"testing"
)

func TestLogBuffer(t *testing.T) {
	t.Run("captures records", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		if got := logs.Count(); got != 2 {
			t.Errorf("Count() = %d, want 2", got)
		}
		if !logs.ContainsMessage("test message") {
			t.Error("expected to find 'test message'")
		}
		if !logs.ContainsAttr("key", "value") {
			t.Error("expected to find attribute key=value")
		}

		records := logs.GetRecords()
		if records[1].Attrs["code"] != int64(500) {
			t.Errorf("code attr = %v, want 500", records[1].Attrs["code"])
		}
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		if got := len(logs.GetRecordsByLevel(slog.LevelInfo)); got != 1 {
			t.Errorf("info records = %d, want 1", got)
		}
		if got := len(logs.GetRecordsByLevel(slog.LevelError)); got != 1 {
			t.Errorf("error records = %d, want 1", got)
		}
	})

	t.Run("With carries attrs into the buffer", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		derived := logger.With(slog.String("component", "hub"))
		derived.Info("started")

		if !logs.ContainsAttr("component", "hub") {
			t.Error("expected derived logger attrs in captured record")
		}
		// The original logger must not inherit the derived attrs.
		logger.Info("plain")
		records := logs.GetRecords()
		if _, ok := records[1].Attrs["component"]; ok {
			t.Error("attrs leaked to the parent handler")
		}
	})

	t.Run("groups flatten with dots", func(t *testing.T) {
		logger, logs := NewTestLogger(t)

		logger.WithGroup("request").Info("handled", slog.String("id", "abc"))

		if !logs.ContainsAttr("request.id", "abc") {
			t.Errorf("expected request.id attr, records: %v", logs.GetRecords())
		}
	})
}
