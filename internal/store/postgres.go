package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"staffpulse/internal/config"
	"staffpulse/pkg/contracts/domain"
)

const reportsSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id          UUID PRIMARY KEY,
	file_name   TEXT NOT NULL,
	week_number TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL,
	document    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_uploaded_at_idx ON reports (uploaded_at DESC);
CREATE INDEX IF NOT EXISTS reports_week_number_idx ON reports (week_number);
CREATE INDEX IF NOT EXISTS reports_file_name_idx ON reports (file_name);
`

// Postgres stores report documents in a single JSONB table. The list view
// reads only the index columns; documents are fetched one at a time.
type Postgres struct {
	pool         *pgxpool.Pool
	logger       *slog.Logger
	queryTimeout time.Duration
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects a pgx pool and ensures the reports schema exists.
func NewPostgres(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse store dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect report store: %w", err)
	}

	p := &Postgres{
		pool:         pool,
		logger:       logger,
		queryTimeout: cfg.QueryTimeout,
	}

	if err := p.ensureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("Report store connected",
		slog.String("driver", "postgres"),
		slog.Int("max_conns", int(poolCfg.MaxConns)))
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, reportsSchema); err != nil {
		return fmt.Errorf("ensure reports schema: %w", err)
	}
	return nil
}

// queryContext bounds a single store call with the configured query timeout.
func (p *Postgres) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.queryTimeout)
}

// SaveReport upserts the report document by ID and returns the stored ID.
func (p *Postgres) SaveReport(ctx context.Context, report *domain.ParsedReport) (string, error) {
	id := report.ID
	if id == "" {
		id = uuid.New().String()
	}

	doc := *report
	doc.ID = id
	payload, err := json.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("encode report document: %w", err)
	}

	ctx, cancel := p.queryContext(ctx)
	defer cancel()

	_, err = p.pool.Exec(ctx, `
		INSERT INTO reports (id, file_name, week_number, uploaded_at, document)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			file_name   = EXCLUDED.file_name,
			week_number = EXCLUDED.week_number,
			uploaded_at = EXCLUDED.uploaded_at,
			document    = EXCLUDED.document`,
		id, doc.FileName, doc.WeekNumber, doc.UploadedAt, payload)
	if err != nil {
		return "", fmt.Errorf("save report %s: %w", id, err)
	}

	p.logger.Debug("Report saved",
		slog.String("report_id", id),
		slog.String("file_name", doc.FileName))
	return id, nil
}

// GetReport fetches one report document by ID.
func (p *Postgres) GetReport(ctx context.Context, id string) (*domain.ParsedReport, error) {
	ctx, cancel := p.queryContext(ctx)
	defer cancel()

	var payload []byte
	err := p.pool.QueryRow(ctx,
		`SELECT document FROM reports WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}

	var report domain.ParsedReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}

// ListReports scans the index columns newest-first without loading documents.
func (p *Postgres) ListReports(ctx context.Context, limit, offset int) ([]domain.ReportSummary, int, error) {
	limit, offset = normalizePage(limit, offset)

	ctx, cancel := p.queryContext(ctx)
	defer cancel()

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, file_name, week_number, uploaded_at,
		       CASE WHEN jsonb_typeof(document->'sheets') = 'array'
		            THEN jsonb_array_length(document->'sheets')
		            ELSE 0 END
		FROM reports
		ORDER BY uploaded_at DESC, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.ReportSummary, 0, limit)
	for rows.Next() {
		var s domain.ReportSummary
		if err := rows.Scan(&s.ID, &s.FileName, &s.WeekNumber, &s.UploadedAt, &s.SheetCount); err != nil {
			return nil, 0, fmt.Errorf("scan report summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	return summaries, total, nil
}

// DeleteReport removes one report document by ID.
func (p *Postgres) DeleteReport(ctx context.Context, id string) error {
	ctx, cancel := p.queryContext(ctx)
	defer cancel()

	tag, err := p.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks pool connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := p.queryContext(ctx)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
