// Package extraction reads 13-Week Report workbooks and produces normalized
// ParsedReport structures.
//
// # Layout contract
//
// The source workbook has one sheet per cost center (or rollup). On every
// sheet the layout is positional and fixed:
//
//	grid rows 8..20  candidate weekly rows, most recent first
//	grid row 22      13-week-average benchmark row
//	grid row 23      YTD benchmark row
//
// A candidate row is a weekly row when its label cell (column index 2)
// starts with "Week". The benchmark rows are recognized by their label text,
// the YTD row alternatively by a period-type cell (column index 1) equal to
// "YTD". The full field-to-column binding lives in one declarative table in
// columns.go, which is the single source of truth for the layout.
//
// # Degradation
//
// Only undecodable workbook bytes fail an extraction (ParseError). Malformed
// cells coerce to 0 or "", sheets with unexpected layouts yield fewer or zero
// records, and every workbook sheet appears in the output regardless, so the
// result always corresponds 1:1 with the source tabs.
package extraction
