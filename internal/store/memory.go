package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"staffpulse/pkg/contracts/domain"
)

// Memory is an in-memory report store. It keeps deep copies on both sides of
// the API so callers can never mutate stored documents.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]*domain.ParsedReport
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		reports: make(map[string]*domain.ParsedReport),
	}
}

// SaveReport stores a copy of the report, assigning an ID when missing.
func (m *Memory) SaveReport(_ context.Context, report *domain.ParsedReport) (string, error) {
	id := report.ID
	if id == "" {
		id = uuid.New().String()
	}

	stored := cloneReport(report)
	stored.ID = id

	m.mu.Lock()
	m.reports[id] = stored
	m.mu.Unlock()

	return id, nil
}

// GetReport returns a copy of the stored report.
func (m *Memory) GetReport(_ context.Context, id string) (*domain.ParsedReport, error) {
	m.mu.RLock()
	report, ok := m.reports[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return cloneReport(report), nil
}

// ListReports returns newest-first summaries for one page plus the total count.
func (m *Memory) ListReports(_ context.Context, limit, offset int) ([]domain.ReportSummary, int, error) {
	limit, offset = normalizePage(limit, offset)

	m.mu.RLock()
	summaries := make([]domain.ReportSummary, 0, len(m.reports))
	for _, report := range m.reports {
		summaries = append(summaries, report.Summary())
	}
	m.mu.RUnlock()

	// Newest first; ID breaks timestamp ties so pages stay stable
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].UploadedAt.Equal(summaries[j].UploadedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].UploadedAt.After(summaries[j].UploadedAt)
	})

	total := len(summaries)
	if offset >= total {
		return []domain.ReportSummary{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return summaries[offset:end], total, nil
}

// DeleteReport removes the report if present.
func (m *Memory) DeleteReport(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[id]; !ok {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of stored reports.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reports)
}

// cloneReport deep-copies a report document.
func cloneReport(r *domain.ParsedReport) *domain.ParsedReport {
	out := *r
	out.Sheets = make([]domain.SheetData, len(r.Sheets))
	for i, sheet := range r.Sheets {
		cs := sheet
		cs.Weeks = append([]domain.WeekRecord(nil), sheet.Weeks...)
		if sheet.ThirteenWeekAvg != nil {
			avg := *sheet.ThirteenWeekAvg
			cs.ThirteenWeekAvg = &avg
		}
		if sheet.YTD != nil {
			ytd := *sheet.YTD
			cs.YTD = &ytd
		}
		out.Sheets[i] = cs
	}
	return &out
}
