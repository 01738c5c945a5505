package domain

// WeekRecord is the Single Source of Truth (SSOT) for one reporting week's
// metrics on one cost-center sheet. Every consumer of extracted data — the
// store, the insight engine, the exporters and the API — uses this structure.
//
// Coercion contract:
//   - Numeric fields default to 0 when the source cell is missing, blank, or
//     non-numeric. They are never NaN and extraction never fails on them.
//   - Text fields default to "".
//
// Scale contract: each field keeps the scale the source workbook uses.
// GrossProfitPercent and AssociateGPPercent are fractions (0.357 = 35.7%),
// while the *ChangePriorWeek/*ChangePriorYear fields already ARE percentages.
// Nothing in the system converts between the two representations.
type WeekRecord struct {
	// === IDENTITY ===

	// FiscalYear is the fiscal year label as printed in the sheet (e.g. "FY2024").
	FiscalYear string `json:"fiscal_year"`

	// PeriodType distinguishes weekly rows from the benchmark rows.
	// One of PeriodWeekly, PeriodThirteenWeekAvg, PeriodYTD.
	PeriodType string `json:"period_type"`

	// WeekLabel is the row label, e.g. "Week 12".
	WeekLabel string `json:"week_label"`

	// Status is the free-text status column.
	Status string `json:"status"`

	// === TREND DELTAS (already percentages, read from dedicated columns) ===

	AOAChangePriorWeek      float64 `json:"aoa_change_prior_week"`
	AOAChangePriorYear      float64 `json:"aoa_change_prior_year"`
	CustomerChangePriorWeek float64 `json:"customer_change_prior_week"`
	CustomerChangePriorYear float64 `json:"customer_change_prior_year"`
	RevenueChangePriorWeek  float64 `json:"revenue_change_prior_week"`
	RevenueChangePriorYear  float64 `json:"revenue_change_prior_year"`
	GPChangePriorWeek       float64 `json:"gp_change_prior_week"`
	GPChangePriorYear       float64 `json:"gp_change_prior_year"`

	// === WORKFORCE ===

	AssociatesOnAssignment float64 `json:"associates_on_assignment"`
	CustomersBilled        float64 `json:"customers_billed"`

	// === RATES ===

	MarkupPercent     float64 `json:"markup_percent"`
	AvgPayRate        float64 `json:"avg_pay_rate"`
	BillRate          float64 `json:"bill_rate"`
	ProfitPerHour     float64 `json:"profit_per_hour"`
	HoursPerAssociate float64 `json:"hours_per_associate"`

	// === REVENUE / PROFIT ===

	AssociateBilling     float64 `json:"associate_billing"`
	AssociateGrossProfit float64 `json:"associate_gross_profit"`
	// AssociateGPPercent is a fraction (0.42 = 42%).
	AssociateGPPercent float64 `json:"associate_gp_percent"`
	FeeRevenue         float64 `json:"fee_revenue"`
	TotalSales         float64 `json:"total_sales"`
	GrossProfit        float64 `json:"gross_profit"`
	// GrossProfitPercent is a fraction (0.357 = 35.7%).
	GrossProfitPercent float64 `json:"gross_profit_percent"`

	// === STAFFING EFFICIENCY ===

	FullTimeEquivalent float64 `json:"full_time_equivalent"`
	StaffExcludingBDM  float64 `json:"staff_excluding_bdm"`
	AssociateGPPerFTE  float64 `json:"associate_gp_per_fte"`
	AOAsPerFTE         float64 `json:"aoas_per_fte"`

	// === VOLUME ===

	HoursBilled      float64 `json:"hours_billed"`
	RevenuePerClient float64 `json:"revenue_per_client"`
	AssociateWages   float64 `json:"associate_wages"`

	// === FEE BREAKDOWN ===

	ConversionFees    float64 `json:"conversion_fees"`
	PermPlacementFees float64 `json:"perm_placement_fees"`
	QuickHireFees     float64 `json:"quick_hire_fees"`
}

// Period type values as they appear in the source workbook.
const (
	PeriodWeekly          = "Weekly"
	PeriodThirteenWeekAvg = "13 Week Average"
	PeriodYTD             = "YTD"
)

// IsWeekly reports whether the record came from a weekly row rather than a
// benchmark row.
func (w *WeekRecord) IsWeekly() bool {
	return w.PeriodType != PeriodThirteenWeekAvg && w.PeriodType != PeriodYTD
}
