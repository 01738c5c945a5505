package extraction

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"staffpulse/pkg/contracts/domain"
)

// UnknownWeek is the week-number label used when the file name carries no
// recognizable week marker.
const UnknownWeek = "Unknown"

// weekNumberPattern matches "Week" (any case) followed by a space or
// underscore and a digit run, e.g. "13WeekReport_Week_37.xlsx".
var weekNumberPattern = regexp.MustCompile(`(?i)week[ _]([0-9]+)`)

// ParseError reports workbook bytes that cannot be decoded as a spreadsheet.
// It is the only error Extract returns: anything less than total structural
// failure degrades to defaults instead of erroring.
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse workbook %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Extractor turns 13-Week Report workbook bytes into a ParsedReport. It is
// stateless apart from its logger: each Extract call owns its input and
// output, so one Extractor is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract decodes one workbook and classifies every sheet's rows into weekly
// records plus the optional 13-week-average and YTD benchmark records.
//
// The returned report preserves workbook sheet order 1:1; sheets that yield
// zero weekly rows still appear with an empty Weeks slice. The report ID is
// left empty for the caller to assign on persistence.
func (e *Extractor) Extract(data []byte, fileName string) (*domain.ParsedReport, error) {
	start := time.Now()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{FileName: fileName, Err: err}
	}
	defer f.Close()

	report := &domain.ParsedReport{
		FileName:   fileName,
		WeekNumber: weekNumberFromFileName(fileName),
		UploadedAt: time.Now().UTC(),
	}

	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			// One unreadable sheet never fails the report.
			e.logger.Debug("sheet skipped",
				slog.String("file_name", fileName),
				slog.String("sheet", sheetName),
				slog.String("error", err.Error()))
			report.Sheets = append(report.Sheets, domain.SheetData{
				Name:  sheetName,
				Weeks: []domain.WeekRecord{},
			})
			continue
		}
		report.Sheets = append(report.Sheets, extractSheet(sheetName, rows))
	}

	e.logger.Info("workbook extracted",
		slog.String("file_name", fileName),
		slog.String("week_number", report.WeekNumber),
		slog.Int("sheets", len(report.Sheets)),
		slog.Int("week_records", report.WeekCount()),
		slog.Duration("duration", time.Since(start)))

	return report, nil
}

// extractSheet classifies one sheet's grid. Weekly rows are collected from
// the fixed candidate window in encounter order; the source lists weeks
// most-recent-first and that order is preserved, never re-sorted.
func extractSheet(name string, rows [][]string) domain.SheetData {
	sheet := domain.SheetData{
		Name:  name,
		Weeks: []domain.WeekRecord{},
	}

	for i := weekWindowStart; i <= weekWindowEnd && i < len(rows); i++ {
		if strings.HasPrefix(cellText(rows[i], weekLabelCol), weekRowPrefix) {
			sheet.Weeks = append(sheet.Weeks, decodeRow(rows[i]))
		}
	}

	if thirteenWeekAvgRow < len(rows) {
		row := rows[thirteenWeekAvgRow]
		if strings.Contains(cellText(row, weekLabelCol), thirteenWeekAvgMark) {
			rec := decodeRow(row)
			sheet.ThirteenWeekAvg = &rec
		}
	}

	if ytdRow < len(rows) {
		row := rows[ytdRow]
		if strings.Contains(cellText(row, weekLabelCol), ytdMark) ||
			cellText(row, periodTypeCol) == domain.PeriodYTD {
			rec := decodeRow(row)
			sheet.YTD = &rec
		}
	}

	return sheet
}

// cellText returns the trimmed cell at col, or "" when the row is too short.
func cellText(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// cellNumber coerces the cell at col to a float64. Currency and percent
// decoration and thousands separators are stripped before parsing. Missing,
// blank and unparseable cells come back as 0 — never an error, never NaN.
func cellNumber(row []string, col int) float64 {
	raw := cellText(row, col)
	if raw == "" {
		return 0
	}
	cleaned := strings.NewReplacer(",", "", "$", "", "%", "").Replace(raw)
	v, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// weekNumberFromFileName pulls the week number out of names like
// "13WeekReport_Week_37.xlsx". Files without a week marker yield UnknownWeek.
func weekNumberFromFileName(name string) string {
	m := weekNumberPattern.FindStringSubmatch(name)
	if m == nil {
		return UnknownWeek
	}
	return m[1]
}
