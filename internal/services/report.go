package services

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/samber/lo"

	"staffpulse/internal/authz"
	apperrors "staffpulse/internal/errors"
	"staffpulse/internal/exporter"
	"staffpulse/internal/infrastructure"
	"staffpulse/internal/pipeline"
	"staffpulse/internal/store"
	"staffpulse/pkg/contracts/domain"
)

// ReportService orchestrates workbook uploads through the pipeline and
// mediates report access: retrieval is filtered by the principal's sheet
// set, exports render the filtered document.
type ReportService struct {
	store      store.Store
	manager    *pipeline.Manager
	authorizer authz.Authorizer
	exporter   *exporter.ReportExporter
	logger     *slog.Logger
}

// NewReportService creates the report service.
func NewReportService(st store.Store, manager *pipeline.Manager, authorizer authz.Authorizer, exp *exporter.ReportExporter, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &ReportService{
		store:      st,
		manager:    manager,
		authorizer: authorizer,
		exporter:   exp,
		logger:     logger.With(slog.String("service", "report")),
	}
}

// Upload runs the processing pipeline for one workbook: validate, extract,
// persist, analyze. The result carries the stored report unfiltered; the
// uploader already holds the full file content.
func (s *ReportService) Upload(ctx context.Context, principal, fileName string, data []byte) (*pipeline.Result, error) {
	s.logger.InfoContext(ctx, "Processing upload",
		slog.String("principal", principalLabel(principal)),
		slog.String("file_name", fileName),
		slog.Int("bytes", len(data)))

	result, err := s.manager.Run(ctx, pipeline.Upload{
		FileName: fileName,
		Data:     data,
		TraceID:  infrastructure.GetTraceID(ctx),
	})
	if err != nil {
		return nil, pipelineError(err)
	}

	return result, nil
}

// Get fetches one stored report restricted to the principal's sheet set.
func (s *ReportService) Get(ctx context.Context, principal, id string) (*domain.ParsedReport, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, storeError(err, "report")
	}

	sheets, err := s.authorizer.SheetSet(ctx, principal)
	if err != nil {
		return nil, authzError(err)
	}

	filtered := filterReportSheets(report, sheets)
	if len(filtered.Sheets) < len(report.Sheets) {
		s.logger.DebugContext(ctx, "Filtered report sheets",
			slog.String("principal", principalLabel(principal)),
			slog.String("report_id", id),
			slog.Int("visible", len(filtered.Sheets)),
			slog.Int("total", len(report.Sheets)))
	}

	return filtered, nil
}

// List returns one page of stored report summaries, newest first, plus the
// total count for paging.
func (s *ReportService) List(ctx context.Context, limit, offset int) ([]domain.ReportSummary, int, error) {
	summaries, total, err := s.store.ListReports(ctx, limit, offset)
	if err != nil {
		return nil, 0, storeError(err, "reports")
	}
	return summaries, total, nil
}

// Delete removes one stored report.
func (s *ReportService) Delete(ctx context.Context, principal, id string) error {
	if err := s.store.DeleteReport(ctx, id); err != nil {
		return storeError(err, "report")
	}

	s.logger.InfoContext(ctx, "Report deleted",
		slog.String("principal", principalLabel(principal)),
		slog.String("report_id", id))
	return nil
}

// ExportCSV renders the principal's view of a report as a CSV download and
// returns the file name together with the rendered bytes. Rendering into a
// buffer keeps failures ahead of the first response byte.
func (s *ReportService) ExportCSV(ctx context.Context, principal, id string) (string, []byte, error) {
	report, err := s.Get(ctx, principal, id)
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := s.exporter.WriteReport(&buf, report); err != nil {
		return "", nil, apperrors.NewAppError(apperrors.ErrTypeInternal, "failed to render report export", err)
	}

	return s.exporter.ExportFileName(report), buf.Bytes(), nil
}

// filterReportSheets returns the report restricted to the given sheet set.
// The filtered document shares sheet data with the input; stored reports
// are read-only after persistence so sharing is safe.
func filterReportSheets(report *domain.ParsedReport, sheets authz.SheetSet) *domain.ParsedReport {
	if sheets.All() {
		return report
	}

	filtered := *report
	filtered.Sheets = lo.Filter(report.Sheets, func(sheet domain.SheetData, _ int) bool {
		return sheets.Contains(sheet.Name)
	})
	return &filtered
}

// principalLabel names the principal in log output.
func principalLabel(principal string) string {
	if principal == "" {
		return "anonymous"
	}
	return principal
}
