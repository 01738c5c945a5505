// Package exporter provides CSV export functionality for extracted weekly
// reports.
//
// This package contains two main components:
//
// CSVWriter: Core CSV writing with a streaming row writer and a UTF-8 BOM
// on every file for Excel compatibility.
//
// ReportExporter: Flattens a ParsedReport into CSV rows (one row per week
// record, sheet and period type first) and writes whole-report exports,
// per-sheet exports, the cross-report weekly summary, and the findings file.
//
// Example usage:
//
//	exporter := exporter.NewReportExporter(paths)
//
//	// Stream a report to an HTTP response
//	err := exporter.WriteReport(w, report)
//
//	// Write the well-known export files
//	path, err := exporter.ExportReport(report)
//	err = exporter.ExportSheetCSVs(report)
//	err = exporter.ExportWeeklySummary(reports)
package exporter
