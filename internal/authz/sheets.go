package authz

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"staffpulse/internal/config"
	apperrors "staffpulse/internal/errors"
)

// SheetsDirectory reads the principal directory from a Google Sheets
// spreadsheet maintained by operations staff. Row layout within the
// configured range: principal, comma-separated roles, comma-separated
// sheet list, token digest, status ("disabled" turns the entry off).
//
// The spreadsheet is fetched at most once per TTL. When a refresh fails
// and a previous snapshot exists, the stale snapshot keeps serving so a
// Sheets outage does not lock everyone out.
type SheetsDirectory struct {
	directory

	service       *sheets.Service
	spreadsheetID string
	readRange     string
	logger        *slog.Logger

	snapMu    sync.Mutex
	entries   []Entry
	fetchedAt time.Time
}

var _ Authorizer = (*SheetsDirectory)(nil)

// NewSheetsDirectory builds the directory using service-account
// credentials read from the credentials file.
func NewSheetsDirectory(ctx context.Context, cfg config.AuthzConfig, credentialsFile string, logger *slog.Logger) (*SheetsDirectory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.SpreadsheetID == "" {
		return nil, apperrors.NewConfigError("authz spreadsheet ID is required in sheets mode", nil)
	}

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("failed to read credentials file %s", credentialsFile), err)
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, apperrors.NewConfigError("failed to create sheets service", err)
	}

	d := &SheetsDirectory{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     cfg.DirectoryRange,
		logger:        logger,
	}
	d.directory = newDirectory(d.load, cfg.CacheTTL)

	logger.Info("Authorization directory configured",
		slog.String("mode", "sheets"),
		slog.String("spreadsheet_id", cfg.SpreadsheetID),
		slog.String("range", cfg.DirectoryRange),
		slog.Duration("cache_ttl", cfg.CacheTTL),
	)
	return d, nil
}

func (d *SheetsDirectory) load(ctx context.Context) ([]Entry, error) {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()

	if !d.fetchedAt.IsZero() && time.Since(d.fetchedAt) < d.ttl {
		return d.entries, nil
	}

	resp, err := d.service.Spreadsheets.Values.Get(d.spreadsheetID, d.readRange).Context(ctx).Do()
	if err != nil {
		if !d.fetchedAt.IsZero() {
			d.logger.Warn("Directory refresh failed, serving stale snapshot",
				slog.String("error", err.Error()),
				slog.Duration("age", time.Since(d.fetchedAt)),
			)
			return d.entries, nil
		}
		return nil, fmt.Errorf("failed to read directory spreadsheet: %w", err)
	}

	entries := parseDirectoryRows(resp.Values)
	if len(entries) == 0 {
		d.logger.Warn("Directory spreadsheet has no entries, running without enforcement",
			slog.String("spreadsheet_id", d.spreadsheetID),
		)
	}

	d.entries = entries
	d.fetchedAt = time.Now()

	d.logger.Debug("Directory snapshot refreshed",
		slog.Int("entries", len(entries)),
	)
	return d.entries, nil
}

func parseDirectoryRows(rows [][]interface{}) []Entry {
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		principal := cellString(row, 0)
		if principal == "" {
			continue
		}

		entry := Entry{
			Principal:   principal,
			Sheets:      cellString(row, 2),
			TokenDigest: cellString(row, 3),
			Disabled:    strings.EqualFold(cellString(row, 4), "disabled"),
		}
		for _, role := range strings.Split(cellString(row, 1), ",") {
			if role = strings.TrimSpace(role); role != "" {
				entry.Roles = append(entry.Roles, role)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func cellString(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	s, _ := row[idx].(string)
	return strings.TrimSpace(s)
}
