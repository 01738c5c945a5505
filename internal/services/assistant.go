package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"staffpulse/internal/assistant"
	"staffpulse/internal/authz"
	"staffpulse/internal/infrastructure"
	"staffpulse/internal/insights"
	"staffpulse/internal/store"
	"staffpulse/pkg/contracts/domain"
)

// AssistantService answers free-text questions about a stored report. The
// report is rendered to a plain-text context covering only the sheets the
// principal may see, so the upstream model never receives hidden divisions.
type AssistantService struct {
	store      store.Store
	authorizer authz.Authorizer
	assistant  assistant.Assistant
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger
}

// NewAssistantService creates the assistant service.
func NewAssistantService(st store.Store, authorizer authz.Authorizer, asst assistant.Assistant, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *AssistantService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &AssistantService{
		store:      st,
		authorizer: authorizer,
		assistant:  asst,
		metrics:    metrics,
		logger:     logger.With(slog.String("service", "assistant")),
	}
}

// Ask answers one question about a stored report.
func (s *AssistantService) Ask(ctx context.Context, principal, reportID, question string) (string, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return "", storeError(err, "report")
	}

	sheets, err := s.authorizer.SheetSet(ctx, principal)
	if err != nil {
		return "", authzError(err)
	}
	filtered := filterReportSheets(report, sheets)

	start := time.Now()
	answer, err := s.assistant.Ask(ctx, renderReportContext(filtered), question)

	var rateErr *assistant.RateLimitError
	infrastructure.RecordAssistantMetrics(ctx, s.metrics, time.Since(start), err, errors.As(err, &rateErr))

	if err != nil {
		s.logger.WarnContext(ctx, "Assistant request failed",
			slog.String("report_id", reportID),
			slog.String("error", err.Error()))
		return "", assistantError(err)
	}

	s.logger.InfoContext(ctx, "Assistant answered",
		slog.String("principal", principalLabel(principal)),
		slog.String("report_id", reportID),
		slog.Duration("duration", time.Since(start)))

	return answer, nil
}

// renderReportContext flattens a report into the plain-text context the
// assistant receives. It carries the latest and benchmark figures per sheet
// plus the engine's findings, which is what the questions are usually about.
func renderReportContext(report *domain.ParsedReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Weekly staffing report %q covering week %s, with %d cost-center sheets.\n",
		report.FileName, report.WeekNumber, len(report.Sheets))

	for _, sheet := range report.Sheets {
		fmt.Fprintf(&b, "\nSheet %q:\n", sheet.Name)

		if latest := sheet.Latest(); latest != nil {
			writeRecordLine(&b, "Latest week ("+latest.WeekLabel+")", latest)
		}
		if previous := sheet.Previous(); previous != nil {
			writeRecordLine(&b, "Previous week ("+previous.WeekLabel+")", previous)
		}
		if sheet.ThirteenWeekAvg != nil {
			writeRecordLine(&b, "13-week average", sheet.ThirteenWeekAvg)
		}
		if sheet.YTD != nil {
			writeRecordLine(&b, "Year to date", sheet.YTD)
		}

		for _, finding := range insights.Findings(sheet) {
			fmt.Fprintf(&b, "- Finding (%s): %s. %s\n", finding.Type, finding.Title, finding.Description)
		}
	}

	return b.String()
}

// writeRecordLine renders one record's headline figures. Fractional
// percentages are multiplied out for readability; the stored data keeps the
// workbook's own scale.
func writeRecordLine(b *strings.Builder, label string, rec *domain.WeekRecord) {
	fmt.Fprintf(b, "%s: total sales %.2f, gross profit %.2f (%.1f%% of revenue), %.0f associates on assignment, %.1f internal FTE, %.0f hours billed",
		label, rec.TotalSales, rec.GrossProfit, rec.GrossProfitPercent*100,
		rec.AssociatesOnAssignment, rec.FullTimeEquivalent, rec.HoursBilled)

	if fees := rec.PermPlacementFees + rec.ConversionFees + rec.QuickHireFees; fees > 0 {
		fmt.Fprintf(b, ", placement and conversion fees %.2f", fees)
	}
	b.WriteString(".\n")
}
