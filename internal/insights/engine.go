package insights

import (
	"fmt"
	"math"

	"staffpulse/pkg/contracts/domain"
)

// Emission thresholds for automatic findings. Each comparison is strict:
// a change of exactly the threshold emits nothing.
const (
	// revenueThreshold is the week-over-week total sales change, in percent.
	revenueThreshold = 5.0
	// marginThreshold is the gross margin movement, in percentage points.
	marginThreshold = 0.5
	// staffingThreshold is the associates-on-assignment headcount change.
	staffingThreshold = 20.0
	// productivityThreshold is the revenue-per-AOA ratio change, in percent.
	productivityThreshold = 5.0
)

// volatilityWindow caps how many of the most recent weekly records feed the
// volatility calculation.
const volatilityWindow = 13

// Analyze runs the full engine over one sheet: automatic findings plus the
// derived scalar metrics.
func Analyze(sheet domain.SheetData) domain.SheetInsights {
	return domain.SheetInsights{
		SheetName: sheet.Name,
		Findings:  Findings(sheet),
		Metrics:   Metrics(sheet),
	}
}

// Findings generates the automatic qualitative findings for one sheet.
//
// Findings need a week-over-week comparison, so fewer than two weekly records
// yield an empty list. Emission order is fixed — revenue, margin, staffing,
// productivity — regardless of magnitude.
func Findings(sheet domain.SheetData) []domain.InsightFinding {
	findings := []domain.InsightFinding{}

	latest := sheet.Latest()
	previous := sheet.Previous()
	if latest == nil || previous == nil {
		return findings
	}

	if f, ok := revenueFinding(latest, previous); ok {
		findings = append(findings, f)
	}
	if f, ok := marginFinding(latest, previous); ok {
		findings = append(findings, f)
	}
	if f, ok := staffingFinding(latest, previous); ok {
		findings = append(findings, f)
	}
	if f, ok := productivityFinding(latest, previous); ok {
		findings = append(findings, f)
	}

	return findings
}

func revenueFinding(latest, previous *domain.WeekRecord) (domain.InsightFinding, bool) {
	change := pctChange(latest.TotalSales, previous.TotalSales)
	if math.Abs(change) <= revenueThreshold {
		return domain.InsightFinding{}, false
	}

	f := domain.InsightFinding{
		Type:        domain.FindingNegative,
		Title:       "Revenue Decline",
		Description: fmt.Sprintf("Total sales fell %.1f%% versus the prior week", math.Abs(change)),
		Metric:      "total_sales",
		Value:       fmt.Sprintf("%+.1f%%", change),
	}
	if change > 0 {
		f.Type = domain.FindingPositive
		f.Title = "Revenue Growth"
		f.Description = fmt.Sprintf("Total sales grew %.1f%% versus the prior week", change)
	}
	return f, true
}

func marginFinding(latest, previous *domain.WeekRecord) (domain.InsightFinding, bool) {
	points := (latest.GrossProfitPercent - previous.GrossProfitPercent) * 100
	if math.Abs(points) <= marginThreshold {
		return domain.InsightFinding{}, false
	}

	f := domain.InsightFinding{
		Type:        domain.FindingNegative,
		Title:       "Margin Compression",
		Description: fmt.Sprintf("Gross margin slipped %.1f percentage points week over week", math.Abs(points)),
		Metric:      "gross_profit_percent",
		Value:       fmt.Sprintf("%+.1f pts", points),
	}
	if points > 0 {
		f.Type = domain.FindingPositive
		f.Title = "Margin Improvement"
		f.Description = fmt.Sprintf("Gross margin improved %.1f percentage points week over week", points)
	}
	return f, true
}

func staffingFinding(latest, previous *domain.WeekRecord) (domain.InsightFinding, bool) {
	diff := latest.AssociatesOnAssignment - previous.AssociatesOnAssignment
	if math.Abs(diff) <= staffingThreshold {
		return domain.InsightFinding{}, false
	}

	f := domain.InsightFinding{
		Type:        domain.FindingNegative,
		Title:       "Staffing Decrease",
		Description: fmt.Sprintf("Associates on assignment dropped by %.0f", math.Abs(diff)),
		Metric:      "associates_on_assignment",
		Value:       fmt.Sprintf("%+.0f", diff),
	}
	if diff > 0 {
		f.Type = domain.FindingPositive
		f.Title = "Staffing Increase"
		f.Description = fmt.Sprintf("Associates on assignment grew by %.0f", diff)
	}
	return f, true
}

// productivityFinding classifies shifts in revenue per associate. A decline
// reads as neutral rather than negative: fewer dollars per associate usually
// means new placements ramping up, not trouble.
func productivityFinding(latest, previous *domain.WeekRecord) (domain.InsightFinding, bool) {
	current := safeDiv(latest.TotalSales, latest.AssociatesOnAssignment)
	prior := safeDiv(previous.TotalSales, previous.AssociatesOnAssignment)
	change := pctChange(current, prior)
	if math.Abs(change) <= productivityThreshold {
		return domain.InsightFinding{}, false
	}

	f := domain.InsightFinding{
		Type:        domain.FindingNeutral,
		Title:       "Productivity Shift",
		Description: fmt.Sprintf("Revenue per associate moved down %.1f%% week over week", math.Abs(change)),
		Metric:      "revenue_per_aoa",
		Value:       fmt.Sprintf("%+.1f%%", change),
	}
	if change > 0 {
		f.Type = domain.FindingPositive
		f.Title = "Productivity Gain"
		f.Description = fmt.Sprintf("Revenue per associate moved up %.1f%% week over week", change)
	}
	return f, true
}

// Metrics computes the derived scalar set for one sheet. Every metric
// degrades to 0 when its denominator is 0 or its input record is absent.
func Metrics(sheet domain.SheetData) domain.SheetMetrics {
	var m domain.SheetMetrics

	latest := sheet.Latest()
	if latest == nil {
		return m
	}

	if previous := sheet.Previous(); previous != nil {
		m.RevenueGrowthRate = pctChange(latest.TotalSales, previous.TotalSales)
	}

	// Prior-year deltas come straight off the latest record's dedicated
	// columns. The source precomputes them; recomputing from the series
	// would silently disagree with the workbook.
	m.YoYRevenueChange = latest.RevenueChangePriorYear
	m.YoYGPChange = latest.GPChangePriorYear
	m.YoYAOAChange = latest.AOAChangePriorYear

	m.RevenuePerFTE = safeDiv(latest.TotalSales, latest.FullTimeEquivalent)

	if avg := sheet.ThirteenWeekAvg; avg != nil {
		m.VsAvgRevenue = pctChange(latest.TotalSales, avg.TotalSales)
		m.VsAvgGP = (latest.GrossProfitPercent - avg.GrossProfitPercent) * 100
	}

	m.Volatility = volatility(sheet.Weeks)

	return m
}

// volatility is the coefficient of variation of total sales over up to the
// last volatilityWindow weekly records, as a percentage. A zero mean yields 0.
func volatility(weeks []domain.WeekRecord) float64 {
	n := len(weeks)
	if n > volatilityWindow {
		n = volatilityWindow
	}
	if n == 0 {
		return 0
	}

	var sum float64
	for _, w := range weeks[:n] {
		sum += w.TotalSales
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 0
	}

	var sq float64
	for _, w := range weeks[:n] {
		d := w.TotalSales - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(n))

	return stddev / mean * 100
}

// pctChange returns (current-prior)/prior*100, or 0 when prior is 0.
func pctChange(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return (current - prior) / prior * 100
}

// safeDiv returns num/den, or 0 when den is 0.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
