// Package store persists extracted weekly reports as whole documents.
//
// Two implementations exist: Postgres (pgx pool, JSONB documents with index
// columns for the list view) and Memory (RWMutex map for tests and
// zero-config dev runs). Both treat reports as read-only documents keyed by
// UUID; re-saving under the same ID replaces the document.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"staffpulse/internal/config"
	"staffpulse/pkg/contracts/domain"
)

// ErrNotFound is returned when no report exists under the requested ID.
var ErrNotFound = errors.New("report not found")

// DefaultListLimit caps list pages when the caller passes no limit.
const DefaultListLimit = 50

// Store is the persistence boundary for extracted reports.
type Store interface {
	// SaveReport stores the document under its ID, assigning a fresh UUID
	// when the report arrives without one, and returns the stored ID. The
	// passed report is not mutated.
	SaveReport(ctx context.Context, report *domain.ParsedReport) (string, error)

	// GetReport fetches one report document by ID.
	GetReport(ctx context.Context, id string) (*domain.ParsedReport, error)

	// ListReports returns newest-first summaries for one page plus the total
	// number of stored reports.
	ListReports(ctx context.Context, limit, offset int) ([]domain.ReportSummary, int, error)

	// DeleteReport removes one report document by ID.
	DeleteReport(ctx context.Context, id string) error

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}

// New builds the store named by cfg.Driver and returns it together with its
// cleanup function.
func New(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, func(), error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), func() {}, nil
	case "postgres":
		pg, err := NewPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// normalizePage clamps paging arguments to sane values.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
