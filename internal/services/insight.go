package services

import (
	"context"
	"log/slog"

	"staffpulse/internal/authz"
	apperrors "staffpulse/internal/errors"
	"staffpulse/internal/infrastructure"
	"staffpulse/internal/insights"
	"staffpulse/internal/store"
	"staffpulse/pkg/contracts/domain"
)

// InsightService computes findings and derived metrics for a single sheet
// of a stored report, on demand.
type InsightService struct {
	store      store.Store
	authorizer authz.Authorizer
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger
}

// NewInsightService creates the insight service.
func NewInsightService(st store.Store, authorizer authz.Authorizer, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *InsightService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &InsightService{
		store:      st,
		authorizer: authorizer,
		metrics:    metrics,
		logger:     logger.With(slog.String("service", "insight")),
	}
}

// SheetInsights analyzes one sheet of a stored report. Sheets outside the
// principal's sheet set answer not-found, the same as sheets that do not
// exist, so responses never reveal which sheet names the workbook carries.
func (s *InsightService) SheetInsights(ctx context.Context, principal, reportID, sheetName string) (*domain.SheetInsights, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, storeError(err, "report")
	}

	sheets, err := s.authorizer.SheetSet(ctx, principal)
	if err != nil {
		return nil, authzError(err)
	}
	if !sheets.All() && !sheets.Contains(sheetName) {
		return nil, apperrors.NewNotFoundError("sheet")
	}

	sheet, ok := report.Sheet(sheetName)
	if !ok {
		return nil, apperrors.NewNotFoundError("sheet")
	}

	result := insights.Analyze(*sheet)
	infrastructure.RecordInsightMetrics(ctx, s.metrics, "api", 1, len(result.Findings))

	s.logger.DebugContext(ctx, "Computed sheet insights",
		slog.String("principal", principalLabel(principal)),
		slog.String("report_id", reportID),
		slog.String("sheet", sheetName),
		slog.Int("findings", len(result.Findings)))

	return &result, nil
}
