package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"staffpulse/internal/config"
	"staffpulse/pkg/contracts/domain"
)

// ReportExporter handles CSV export of extracted weekly reports
type ReportExporter struct {
	csvWriter *CSVWriter
	paths     *config.Paths
}

// NewReportExporter creates a new weekly report exporter
func NewReportExporter(paths *config.Paths) *ReportExporter {
	return &ReportExporter{
		csvWriter: NewCSVWriter(paths),
		paths:     paths,
	}
}

// SummaryRow is one line of the weekly summary: the latest weekly record
// of one sheet in one report, reduced to headline numbers.
type SummaryRow struct {
	FileName               string  `json:"file_name"`
	WeekNumber             string  `json:"week_number"`
	Sheet                  string  `json:"sheet"`
	WeekCount              int     `json:"week_count"`
	WeekLabel              string  `json:"week_label"`
	TotalSales             float64 `json:"total_sales"`
	GrossProfit            float64 `json:"gross_profit"`
	GrossProfitPercent     float64 `json:"gross_profit_percent"`
	AssociatesOnAssignment float64 `json:"associates_on_assignment"`
	FullTimeEquivalent     float64 `json:"full_time_equivalent"`
}

// WriteReport streams the full report as CSV: BOM, header, then one row per
// week record across every sheet in workbook order. Weekly rows come first
// in source order, then the 13-week average and YTD rows when present.
func (e *ReportExporter) WriteReport(w io.Writer, report *domain.ParsedReport) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(e.Headers()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, record := range e.ReportRows(report) {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportFileName returns the download name for a report's CSV export.
func (e *ReportExporter) ExportFileName(report *domain.ParsedReport) string {
	return fmt.Sprintf("%s_extracted.csv", baseName(report.FileName))
}

// ExportReport writes the full report CSV into the exports directory and
// returns the written path.
func (e *ReportExporter) ExportReport(report *domain.ParsedReport) (string, error) {
	fullPath := e.paths.GetExportPath(e.ExportFileName(report))

	if err := e.csvWriter.WriteFile(fullPath, e.Headers(), e.ReportRows(report)); err != nil {
		return "", fmt.Errorf("failed to write report export: %w", err)
	}
	return fullPath, nil
}

// ExportSheetCSVs writes one CSV per sheet into the exports directory so a
// branch manager can pull just their own cost center.
func (e *ReportExporter) ExportSheetCSVs(report *domain.ParsedReport) error {
	for _, sheet := range report.Sheets {
		var records [][]string
		for _, rec := range sheetRecords(sheet) {
			records = append(records, e.recordToCSVRow(sheet.Name, rec))
		}

		path := e.paths.GetSheetExportPath(sheet.Name)
		if err := e.csvWriter.WriteFile(path, e.Headers(), records); err != nil {
			return fmt.Errorf("failed to write sheet export for %s: %w", sheet.Name, err)
		}
	}
	return nil
}

// ExportWeeklySummary writes the cross-report summary to the well-known
// weekly_summary.csv and weekly_summary.json paths: one row per sheet per
// report, reduced to its latest weekly record.
func (e *ReportExporter) ExportWeeklySummary(reports []*domain.ParsedReport) error {
	rows := e.SummaryRows(reports)

	headers := []string{
		"FileName", "WeekNumber", "Sheet", "WeekCount", "WeekLabel",
		"TotalSales", "GrossProfit", "GrossProfitPercent",
		"AssociatesOnAssignment", "FullTimeEquivalent",
	}

	var records [][]string
	for _, row := range rows {
		records = append(records, []string{
			row.FileName,
			row.WeekNumber,
			row.Sheet,
			fmt.Sprintf("%d", row.WeekCount),
			row.WeekLabel,
			formatFloat(row.TotalSales),
			formatFloat(row.GrossProfit),
			formatFloat(row.GrossProfitPercent),
			formatFloat(row.AssociatesOnAssignment),
			formatFloat(row.FullTimeEquivalent),
		})
	}

	if err := e.csvWriter.WriteFile(e.paths.GetWeeklySummaryCSVPath(), headers, records); err != nil {
		return fmt.Errorf("failed to write weekly summary CSV: %w", err)
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weekly summary: %w", err)
	}
	if err := os.WriteFile(e.paths.GetWeeklySummaryJSONPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write weekly summary JSON: %w", err)
	}

	return nil
}

// findingsHeaders is the column set of the findings export.
var findingsHeaders = []string{"FileName", "Sheet", "Type", "Title", "Metric", "Value", "Description"}

// FindingsWriter appends findings to the well-known findings.csv one report
// at a time, so a batch run covering many weeks lands in a single file.
type FindingsWriter struct {
	stream *StreamWriter
}

// NewFindingsWriter opens findings.csv and writes its header row. The
// caller must Close it after the last report.
func (e *ReportExporter) NewFindingsWriter() (*FindingsWriter, error) {
	stream, err := e.csvWriter.CreateStreamWriter(e.paths.GetFindingsCSVPath(), findingsHeaders)
	if err != nil {
		return nil, fmt.Errorf("failed to open findings CSV: %w", err)
	}
	return &FindingsWriter{stream: stream}, nil
}

// Append writes one row per finding across the report's analyzed sheets.
func (fw *FindingsWriter) Append(report *domain.ParsedReport, insights []domain.SheetInsights) error {
	for _, sheet := range insights {
		for _, finding := range sheet.Findings {
			row := []string{
				report.FileName,
				sheet.SheetName,
				string(finding.Type),
				finding.Title,
				finding.Metric,
				finding.Value,
				finding.Description,
			}
			if err := fw.stream.WriteRecord(row); err != nil {
				return fmt.Errorf("failed to write finding for %s: %w", sheet.SheetName, err)
			}
		}
	}
	return nil
}

// Close flushes the findings file.
func (fw *FindingsWriter) Close() error {
	return fw.stream.Close()
}

// SummaryRows reduces each report sheet to its latest weekly record.
func (e *ReportExporter) SummaryRows(reports []*domain.ParsedReport) []SummaryRow {
	var rows []SummaryRow
	for _, report := range reports {
		for _, sheet := range report.Sheets {
			row := SummaryRow{
				FileName:   report.FileName,
				WeekNumber: report.WeekNumber,
				Sheet:      sheet.Name,
				WeekCount:  len(sheet.Weeks),
			}
			if latest := sheet.Latest(); latest != nil {
				row.WeekLabel = latest.WeekLabel
				row.TotalSales = latest.TotalSales
				row.GrossProfit = latest.GrossProfit
				row.GrossProfitPercent = latest.GrossProfitPercent
				row.AssociatesOnAssignment = latest.AssociatesOnAssignment
				row.FullTimeEquivalent = latest.FullTimeEquivalent
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// ReportRows converts every sheet of the report to CSV rows.
func (e *ReportExporter) ReportRows(report *domain.ParsedReport) [][]string {
	var records [][]string
	for _, sheet := range report.Sheets {
		for _, rec := range sheetRecords(sheet) {
			records = append(records, e.recordToCSVRow(sheet.Name, rec))
		}
	}
	return records
}

// Headers returns the CSV header set: sheet and period type first, then the
// record fields in struct order.
func (e *ReportExporter) Headers() []string {
	return []string{
		"Sheet", "PeriodType", "FiscalYear", "WeekLabel", "Status",
		"AOAChangePriorWeek", "AOAChangePriorYear",
		"CustomerChangePriorWeek", "CustomerChangePriorYear",
		"RevenueChangePriorWeek", "RevenueChangePriorYear",
		"GPChangePriorWeek", "GPChangePriorYear",
		"AssociatesOnAssignment", "CustomersBilled",
		"MarkupPercent", "AvgPayRate", "BillRate", "ProfitPerHour", "HoursPerAssociate",
		"AssociateBilling", "AssociateGrossProfit", "AssociateGPPercent",
		"FeeRevenue", "TotalSales", "GrossProfit", "GrossProfitPercent",
		"FullTimeEquivalent", "StaffExcludingBDM", "AssociateGPPerFTE", "AOAsPerFTE",
		"HoursBilled", "RevenuePerClient", "AssociateWages",
		"ConversionFees", "PermPlacementFees", "QuickHireFees",
	}
}

// recordToCSVRow converts one week record to a CSV row
func (e *ReportExporter) recordToCSVRow(sheetName string, rec domain.WeekRecord) []string {
	return []string{
		sheetName,
		rec.PeriodType,
		rec.FiscalYear,
		rec.WeekLabel,
		rec.Status,
		formatFloat(rec.AOAChangePriorWeek),
		formatFloat(rec.AOAChangePriorYear),
		formatFloat(rec.CustomerChangePriorWeek),
		formatFloat(rec.CustomerChangePriorYear),
		formatFloat(rec.RevenueChangePriorWeek),
		formatFloat(rec.RevenueChangePriorYear),
		formatFloat(rec.GPChangePriorWeek),
		formatFloat(rec.GPChangePriorYear),
		formatFloat(rec.AssociatesOnAssignment),
		formatFloat(rec.CustomersBilled),
		formatFloat(rec.MarkupPercent),
		formatFloat(rec.AvgPayRate),
		formatFloat(rec.BillRate),
		formatFloat(rec.ProfitPerHour),
		formatFloat(rec.HoursPerAssociate),
		formatFloat(rec.AssociateBilling),
		formatFloat(rec.AssociateGrossProfit),
		formatFloat(rec.AssociateGPPercent),
		formatFloat(rec.FeeRevenue),
		formatFloat(rec.TotalSales),
		formatFloat(rec.GrossProfit),
		formatFloat(rec.GrossProfitPercent),
		formatFloat(rec.FullTimeEquivalent),
		formatFloat(rec.StaffExcludingBDM),
		formatFloat(rec.AssociateGPPerFTE),
		formatFloat(rec.AOAsPerFTE),
		formatFloat(rec.HoursBilled),
		formatFloat(rec.RevenuePerClient),
		formatFloat(rec.AssociateWages),
		formatFloat(rec.ConversionFees),
		formatFloat(rec.PermPlacementFees),
		formatFloat(rec.QuickHireFees),
	}
}

// sheetRecords flattens one sheet into export order: weekly rows in source
// order, then the benchmark rows.
func sheetRecords(sheet domain.SheetData) []domain.WeekRecord {
	records := make([]domain.WeekRecord, 0, len(sheet.Weeks)+2)
	records = append(records, sheet.Weeks...)
	if sheet.ThirteenWeekAvg != nil {
		records = append(records, *sheet.ThirteenWeekAvg)
	}
	if sheet.YTD != nil {
		records = append(records, *sheet.YTD)
	}
	return records
}

// baseName strips the directory and extension from a workbook file name.
func baseName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// formatFloat renders a metric with two decimals, so 13.4 exports as 13.40
// and columns stay aligned in Excel.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
