package domain

import (
	"time"
)

// SheetData is one cost-center or rollup sheet's extracted content.
// Weeks is ordered most-recent-first exactly as the source layout lists them;
// the extractor never re-sorts. ThirteenWeekAvg and YTD are nil when the
// workbook has no such row for the sheet.
type SheetData struct {
	Name            string       `json:"name"`
	Weeks           []WeekRecord `json:"weeks"`
	ThirteenWeekAvg *WeekRecord  `json:"thirteen_week_avg,omitempty"`
	YTD             *WeekRecord  `json:"ytd,omitempty"`
}

// Latest returns the most recent weekly record (index 0), or nil when the
// sheet has no weekly rows.
func (s *SheetData) Latest() *WeekRecord {
	if len(s.Weeks) == 0 {
		return nil
	}
	return &s.Weeks[0]
}

// Previous returns the second most recent weekly record, or nil when fewer
// than two weekly rows exist.
func (s *SheetData) Previous() *WeekRecord {
	if len(s.Weeks) < 2 {
		return nil
	}
	return &s.Weeks[1]
}

// ParsedReport is one uploaded workbook's extraction result. Sheets preserves
// workbook tab order 1:1, including sheets that contributed zero weekly
// records, so downstream permission filtering by sheet name stays aligned
// with the source file.
//
// The extractor leaves ID empty; the service assigns a UUID when the report
// is persisted. After that the document is read-only.
type ParsedReport struct {
	ID         string      `json:"id" db:"id"`
	FileName   string      `json:"file_name" db:"file_name"`
	WeekNumber string      `json:"week_number" db:"week_number"`
	UploadedAt time.Time   `json:"uploaded_at" db:"uploaded_at"`
	Sheets     []SheetData `json:"sheets"`
}

// Sheet returns the sheet with the given name, or false when the report has
// no such sheet.
func (r *ParsedReport) Sheet(name string) (*SheetData, bool) {
	for i := range r.Sheets {
		if r.Sheets[i].Name == name {
			return &r.Sheets[i], true
		}
	}
	return nil, false
}

// SheetNames returns the sheet names in workbook order.
func (r *ParsedReport) SheetNames() []string {
	names := make([]string, len(r.Sheets))
	for i, s := range r.Sheets {
		names[i] = s.Name
	}
	return names
}

// WeekCount returns the total number of weekly records across all sheets.
func (r *ParsedReport) WeekCount() int {
	total := 0
	for i := range r.Sheets {
		total += len(r.Sheets[i].Weeks)
	}
	return total
}

// ReportSummary is the list-view projection of a stored report: the indexed
// columns plus the sheet count, without the document body.
type ReportSummary struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	WeekNumber string    `json:"week_number"`
	UploadedAt time.Time `json:"uploaded_at"`
	SheetCount int       `json:"sheet_count"`
}

// Summary returns the list-view projection of the report.
func (r *ParsedReport) Summary() ReportSummary {
	return ReportSummary{
		ID:         r.ID,
		FileName:   r.FileName,
		WeekNumber: r.WeekNumber,
		UploadedAt: r.UploadedAt,
		SheetCount: len(r.Sheets),
	}
}
