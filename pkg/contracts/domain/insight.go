package domain

// FindingType classifies an insight finding's direction.
type FindingType string

const (
	FindingPositive FindingType = "positive"
	FindingNegative FindingType = "negative"
	FindingNeutral  FindingType = "neutral"
)

// InsightFinding is one qualitative observation produced by the insight
// engine. Findings are ephemeral: created fresh on each analysis call, never
// persisted, and carry no identity beyond that call.
type InsightFinding struct {
	Type        FindingType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Metric      string      `json:"metric,omitempty"`
	Value       string      `json:"value,omitempty"`
}

// SheetMetrics is the derived scalar set computed per sheet for display.
// Every metric degrades to 0 when its denominator is 0 or its input record
// is absent — the engine never returns NaN or an error for missing data.
type SheetMetrics struct {
	// RevenueGrowthRate is the week-over-week percent change in TotalSales.
	RevenueGrowthRate float64 `json:"revenue_growth_rate"`

	// Year-over-year deltas, passed through from the latest record's
	// prior-year columns rather than recomputed from the series.
	YoYRevenueChange float64 `json:"yoy_revenue_change"`
	YoYGPChange      float64 `json:"yoy_gp_change"`
	YoYAOAChange     float64 `json:"yoy_aoa_change"`

	// RevenuePerFTE is latest TotalSales / FullTimeEquivalent.
	RevenuePerFTE float64 `json:"revenue_per_fte"`

	// VsAvgRevenue is the latest week's percent difference against the
	// 13-week-average benchmark; VsAvgGP is the GP% difference in
	// percentage points against the same benchmark.
	VsAvgRevenue float64 `json:"vs_avg_revenue"`
	VsAvgGP      float64 `json:"vs_avg_gp"`

	// Volatility is the coefficient of variation of TotalSales over up to
	// the last 13 weekly records, as a percentage.
	Volatility float64 `json:"volatility"`
}

// SheetInsights bundles what the insights endpoint returns for one sheet.
type SheetInsights struct {
	SheetName string           `json:"sheet_name"`
	Findings  []InsightFinding `json:"findings"`
	Metrics   SheetMetrics     `json:"metrics"`
}
