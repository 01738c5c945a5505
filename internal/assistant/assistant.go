// Package assistant provides natural-language question answering over
// extracted report data through an OpenAI-compatible chat completion
// endpoint. The report service renders a report into a text context and
// forwards it together with the user's question; callers never talk to
// the upstream API directly.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"staffpulse/internal/config"
	"staffpulse/internal/infrastructure"
)

// Assistant answers a question about a report. The reportContext argument
// carries the rendered report data the answer must be grounded on.
type Assistant interface {
	Ask(ctx context.Context, reportContext, question string) (string, error)
}

// RateLimitError reports that the upstream endpoint rejected a request
// with HTTP 429. RetryAfter is zero when the endpoint gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("assistant rate limited, retry after %s", e.RetryAfter)
	}
	return "assistant rate limited"
}

// New selects an implementation from configuration. Disabled or keyless
// configurations fall back to the deterministic mock so development
// environments work without upstream credentials.
func New(cfg config.AssistantConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) Assistant {
	if logger == nil {
		logger = slog.Default()
	}

	if !cfg.Enabled {
		logger.Info("Assistant disabled, using canned responses")
		return NewMock()
	}

	if cfg.APIKey == "" {
		logger.Warn("Assistant enabled without an API key, using canned responses")
		return NewMock()
	}

	return NewClient(cfg, metrics, logger)
}
