package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"staffpulse/internal/authz"
	"staffpulse/internal/store"
	"staffpulse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAuthorizer answers role and sheet-set questions from fixed fields.
type stubAuthorizer struct {
	sheets authz.SheetSet
	roles  map[string]bool
	err    error
}

func (a *stubAuthorizer) Identify(ctx context.Context, token string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return "test-principal", nil
}

func (a *stubAuthorizer) Allowed(ctx context.Context, principal, role string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.roles[role], nil
}

func (a *stubAuthorizer) SheetSet(ctx context.Context, principal string) (authz.SheetSet, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.sheets, nil
}

func allSheetsAuthorizer() *stubAuthorizer {
	return &stubAuthorizer{sheets: authz.NewSheetSet(authz.SheetWildcard)}
}

// storedReport builds a three-sheet report and saves it, returning the
// assigned ID.
func storedReport(t *testing.T, st store.Store) string {
	t.Helper()

	id, err := st.SaveReport(context.Background(), testReport())
	require.NoError(t, err)
	return id
}

func testReport() *domain.ParsedReport {
	return &domain.ParsedReport{
		FileName:   "13WeekReport_Week_14.xlsx",
		WeekNumber: "14",
		UploadedAt: time.Date(2025, 4, 4, 9, 30, 0, 0, time.UTC),
		Sheets: []domain.SheetData{
			{
				Name: "Company Total",
				Weeks: []domain.WeekRecord{
					{
						PeriodType:             domain.PeriodWeekly,
						WeekLabel:              "Week 13",
						TotalSales:             100000,
						GrossProfit:            30000,
						GrossProfitPercent:     0.30,
						AssociatesOnAssignment: 400,
						FullTimeEquivalent:     18,
						HoursBilled:            9500,
					},
					{
						PeriodType:             domain.PeriodWeekly,
						WeekLabel:              "Week 14",
						TotalSales:             140000,
						GrossProfit:            49980,
						GrossProfitPercent:     0.357,
						AssociatesOnAssignment: 412,
						FullTimeEquivalent:     18.5,
						HoursBilled:            10000,
					},
				},
				ThirteenWeekAvg: &domain.WeekRecord{
					PeriodType: domain.PeriodThirteenWeekAvg,
					WeekLabel:  "13 Week Average",
					TotalSales: 118000,
				},
				YTD: &domain.WeekRecord{
					PeriodType: domain.PeriodYTD,
					WeekLabel:  "YTD",
					TotalSales: 1650000,
				},
			},
			{
				Name: "Perm Division",
				Weeks: []domain.WeekRecord{
					{
						PeriodType:        domain.PeriodWeekly,
						WeekLabel:         "Week 14",
						TotalSales:        31200,
						PermPlacementFees: 31200,
					},
				},
			},
			{
				Name: "Temp Division",
				Weeks: []domain.WeekRecord{
					{
						PeriodType: domain.PeriodWeekly,
						WeekLabel:  "Week 14",
						TotalSales: 108800,
					},
				},
			},
		},
	}
}
