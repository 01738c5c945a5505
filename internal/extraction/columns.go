package extraction

import (
	"staffpulse/pkg/contracts/domain"
)

// Fixed grid geometry of the 13-Week Report layout. Row indices are 0-based
// grid rows as returned by excelize (add 1 for the row number shown in Excel).
const (
	// Weekly rows live in grid rows 8..20 (Excel rows 9-21), inclusive.
	weekWindowStart = 8
	weekWindowEnd   = 20

	// The 13-week-average row sits at grid row 22 (Excel row 23), the YTD
	// row directly below it at grid row 23 (Excel row 24).
	thirteenWeekAvgRow = 22
	ytdRow             = 23

	// periodTypeCol holds "Weekly"/"13 Week Average"/"YTD"; weekLabelCol
	// holds the row label ("Week 12", "13 Week Average", ...).
	periodTypeCol = 1
	weekLabelCol  = 2
)

// Row label markers used for classification.
const (
	weekRowPrefix       = "Week"
	thirteenWeekAvgMark = "13 Week Average"
	ytdMark             = "YTD"
)

// textColumn binds one text column of the layout to a WeekRecord field.
type textColumn struct {
	name string
	col  int
	set  func(*domain.WeekRecord, string)
}

// numericColumn binds one numeric column of the layout to a WeekRecord field.
type numericColumn struct {
	name string
	col  int
	set  func(*domain.WeekRecord, float64)
}

// textColumns and numericColumns together are the single source of truth for
// the positional column layout of a 13-Week Report row. Row decoding iterates
// these tables and nothing else; changing the layout means changing exactly
// one entry here.
var textColumns = []textColumn{
	{"fiscal_year", 0, func(r *domain.WeekRecord, v string) { r.FiscalYear = v }},
	{"period_type", periodTypeCol, func(r *domain.WeekRecord, v string) { r.PeriodType = v }},
	{"week_label", weekLabelCol, func(r *domain.WeekRecord, v string) { r.WeekLabel = v }},
	{"status", 3, func(r *domain.WeekRecord, v string) { r.Status = v }},
}

var numericColumns = []numericColumn{
	{"aoa_change_prior_week", 4, func(r *domain.WeekRecord, v float64) { r.AOAChangePriorWeek = v }},
	{"aoa_change_prior_year", 5, func(r *domain.WeekRecord, v float64) { r.AOAChangePriorYear = v }},
	{"customer_change_prior_week", 6, func(r *domain.WeekRecord, v float64) { r.CustomerChangePriorWeek = v }},
	{"customer_change_prior_year", 7, func(r *domain.WeekRecord, v float64) { r.CustomerChangePriorYear = v }},
	{"revenue_change_prior_week", 8, func(r *domain.WeekRecord, v float64) { r.RevenueChangePriorWeek = v }},
	{"revenue_change_prior_year", 9, func(r *domain.WeekRecord, v float64) { r.RevenueChangePriorYear = v }},
	{"gp_change_prior_week", 10, func(r *domain.WeekRecord, v float64) { r.GPChangePriorWeek = v }},
	{"gp_change_prior_year", 11, func(r *domain.WeekRecord, v float64) { r.GPChangePriorYear = v }},
	{"associates_on_assignment", 12, func(r *domain.WeekRecord, v float64) { r.AssociatesOnAssignment = v }},
	{"customers_billed", 13, func(r *domain.WeekRecord, v float64) { r.CustomersBilled = v }},
	{"markup_percent", 14, func(r *domain.WeekRecord, v float64) { r.MarkupPercent = v }},
	{"avg_pay_rate", 15, func(r *domain.WeekRecord, v float64) { r.AvgPayRate = v }},
	{"bill_rate", 16, func(r *domain.WeekRecord, v float64) { r.BillRate = v }},
	{"profit_per_hour", 17, func(r *domain.WeekRecord, v float64) { r.ProfitPerHour = v }},
	{"hours_per_associate", 18, func(r *domain.WeekRecord, v float64) { r.HoursPerAssociate = v }},
	{"associate_billing", 19, func(r *domain.WeekRecord, v float64) { r.AssociateBilling = v }},
	{"associate_gross_profit", 20, func(r *domain.WeekRecord, v float64) { r.AssociateGrossProfit = v }},
	{"associate_gp_percent", 21, func(r *domain.WeekRecord, v float64) { r.AssociateGPPercent = v }},
	{"fee_revenue", 22, func(r *domain.WeekRecord, v float64) { r.FeeRevenue = v }},
	{"total_sales", 23, func(r *domain.WeekRecord, v float64) { r.TotalSales = v }},
	{"gross_profit", 24, func(r *domain.WeekRecord, v float64) { r.GrossProfit = v }},
	{"gross_profit_percent", 25, func(r *domain.WeekRecord, v float64) { r.GrossProfitPercent = v }},
	{"full_time_equivalent", 26, func(r *domain.WeekRecord, v float64) { r.FullTimeEquivalent = v }},
	{"staff_excluding_bdm", 27, func(r *domain.WeekRecord, v float64) { r.StaffExcludingBDM = v }},
	{"associate_gp_per_fte", 28, func(r *domain.WeekRecord, v float64) { r.AssociateGPPerFTE = v }},
	{"aoas_per_fte", 29, func(r *domain.WeekRecord, v float64) { r.AOAsPerFTE = v }},
	{"hours_billed", 30, func(r *domain.WeekRecord, v float64) { r.HoursBilled = v }},
	{"revenue_per_client", 31, func(r *domain.WeekRecord, v float64) { r.RevenuePerClient = v }},
	{"associate_wages", 32, func(r *domain.WeekRecord, v float64) { r.AssociateWages = v }},
	{"conversion_fees", 33, func(r *domain.WeekRecord, v float64) { r.ConversionFees = v }},
	{"perm_placement_fees", 34, func(r *domain.WeekRecord, v float64) { r.PermPlacementFees = v }},
	{"quick_hire_fees", 35, func(r *domain.WeekRecord, v float64) { r.QuickHireFees = v }},
}

// ColumnIndex returns the column index bound to a field name, for callers
// that build fixtures or exports against the same layout. The second return
// is false for unknown names.
func ColumnIndex(field string) (int, bool) {
	for _, c := range textColumns {
		if c.name == field {
			return c.col, true
		}
	}
	for _, c := range numericColumns {
		if c.name == field {
			return c.col, true
		}
	}
	return 0, false
}

// decodeRow maps one grid row onto a WeekRecord using the column tables.
// Cells past the end of the row and malformed numeric cells degrade to the
// field's zero value; decoding never fails.
func decodeRow(row []string) domain.WeekRecord {
	var rec domain.WeekRecord
	for _, c := range textColumns {
		c.set(&rec, cellText(row, c.col))
	}
	for _, c := range numericColumns {
		c.set(&rec, cellNumber(row, c.col))
	}
	return rec
}
