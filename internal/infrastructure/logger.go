package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"staffpulse/internal/config"
)

// ctxKey is the private type for context keys owned by this package.
type ctxKey int

// traceIDKey carries the request trace ID through context.
const traceIDKey ctxKey = iota

var (
	globalMu     sync.Mutex
	globalLogger *slog.Logger
	globalFile   *os.File
)

// InitializeLogger builds the process-wide slog logger from the logging
// config and installs it as the slog default. The first successful call
// wins; later calls return the logger it built. Records are always JSON so
// log shippers never need a second parser.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger != nil {
		return globalLogger, nil
	}

	logger, file, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	globalLogger = logger
	globalFile = file
	slog.SetDefault(logger)
	return logger, nil
}

// GetLogger returns the initialized logger, or the slog default before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// newLogger builds a JSON logger writing to the configured output and
// returns the log file when one was opened.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, *os.File, error) {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLevel(cfg.Level),
	}

	var out io.Writer
	var file *os.File
	switch strings.ToLower(cfg.Output) {
	case "file":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file, out = f, f
	case "both":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file, out = f, io.MultiWriter(os.Stdout, f)
	default:
		out = os.Stdout
	}

	handler := &traceHandler{inner: slog.NewJSONHandler(out, opts)}
	return slog.New(handler), file, nil
}

// traceHandler decorates every record with the trace ID carried by the
// context, so request logs correlate without each call site passing it.
type traceHandler struct {
	inner slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID := GetTraceID(ctx); traceID != "" {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	return h.inner.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{inner: h.inner.WithGroup(name)}
}

// parseLevel maps the config level string onto slog levels. Unknown levels
// fall back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithTraceID returns a context carrying the trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace ID carried by ctx, or "" when there is none.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// LoggerFromContext returns the global logger with the context's trace ID
// bound as an attribute, for records emitted without the context itself.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if traceID := GetTraceID(ctx); traceID != "" {
		return GetLogger().With(slog.String("trace_id", traceID))
	}
	return GetLogger()
}

// CloseLogFile closes the log file during graceful shutdown. The logger
// keeps working afterwards; records simply stop reaching the file.
func CloseLogFile() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalFile == nil {
		return nil
	}
	err := globalFile.Close()
	globalFile = nil
	return err
}

// ResetLoggerForTesting clears the logger state so each test can install
// its own configuration.
func ResetLoggerForTesting() {
	CloseLogFile()
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = nil
}

// openLogFile opens the log file in append mode, creating its directory
// first.
func openLogFile(filePath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
	}
	return file, nil
}
