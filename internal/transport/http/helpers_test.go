package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"staffpulse/internal/assistant"
	"staffpulse/internal/authz"
	"staffpulse/internal/config"
	apierrors "staffpulse/internal/errors"
	"staffpulse/internal/exporter"
	mw "staffpulse/internal/middleware"
	"staffpulse/internal/pipeline"
	"staffpulse/internal/services"
	"staffpulse/internal/store"
	ws "staffpulse/internal/websocket"
	"staffpulse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedAuthz answers every request with fixed role and sheet grants.
type fixedAuthz struct {
	sheets authz.SheetSet
	roles  map[string]bool
}

func (a *fixedAuthz) Identify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	return "tester", nil
}

func (a *fixedAuthz) Allowed(ctx context.Context, principal, role string) (bool, error) {
	if a.roles == nil {
		return true, nil
	}
	return a.roles[role], nil
}

func (a *fixedAuthz) SheetSet(ctx context.Context, principal string) (authz.SheetSet, error) {
	if a.sheets == nil {
		return authz.NewSheetSet(authz.SheetWildcard), nil
	}
	return a.sheets, nil
}

// extractStage stands in for the real extraction so upload tests do not
// need workbook fixtures.
type extractStage struct {
	report *domain.ParsedReport
	err    error
}

func (s *extractStage) ID() string                           { return pipeline.StageIDExtract }
func (s *extractStage) Name() string                         { return "Extract report" }
func (s *extractStage) Validate(state *pipeline.State) error { return nil }

func (s *extractStage) Execute(ctx context.Context, state *pipeline.State) error {
	if s.err != nil {
		return s.err
	}
	state.SetReport(s.report)
	return nil
}

type testEnv struct {
	router    chi.Router
	store     *store.Memory
	assistant *assistant.Mock
}

// newTestEnv wires handlers over real services and the in-memory store,
// mirroring the application's route table for the report resource.
func newTestEnv(t *testing.T, auth authz.Authorizer) *testEnv {
	t.Helper()

	logger := testLogger()
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validation := mw.NewValidationMiddleware(logger)

	st := store.NewMemory()
	manager := pipeline.NewManager(nil, nil, logger,
		&extractStage{report: sampleReport()},
		pipeline.NewPersistStage(st, nil, logger),
		pipeline.NewAnalyzeStage(),
	)
	mock := assistant.NewMock()

	reportSvc := services.NewReportService(st, manager, auth, exporter.NewReportExporter(nil), logger)
	insightSvc := services.NewInsightService(st, auth, nil, logger)
	assistantSvc := services.NewAssistantService(st, auth, mock, nil, logger)
	healthSvc := services.NewHealthService(st, ws.NewHub(logger), &config.Paths{DataDir: t.TempDir()}, logger)

	reportHandler := NewReportHandler(reportSvc, 1<<20, logger, errorHandler)
	insightHandler := NewInsightHandler(insightSvc, logger, errorHandler)
	assistantHandler := NewAssistantHandler(assistantSvc, validation, logger, errorHandler)
	healthHandler := NewHealthHandler(healthSvc, logger)

	resolver := mw.NewPrincipalResolver(auth, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(resolver.Handler)

		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", reportHandler.Upload)
			r.Get("/", reportHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", reportHandler.Get)
				r.Delete("/", reportHandler.Delete)
				r.Get("/export", reportHandler.Export)
				r.Get("/sheets/{name}/insights", insightHandler.SheetInsights)
				r.Post("/ask", assistantHandler.Ask)
			})
		})
	})

	return &testEnv{router: r, store: st, assistant: mock}
}

func (e *testEnv) saveReport(t *testing.T) string {
	t.Helper()

	id, err := e.store.SaveReport(context.Background(), sampleReport())
	require.NoError(t, err)
	return id
}

func decodeEnvelope(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func multipartUpload(t *testing.T, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(uploadFieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, form.Close())
	return &buf, form.FormDataContentType()
}

func sampleReport() *domain.ParsedReport {
	return &domain.ParsedReport{
		FileName:   "13WeekReport_Week_14.xlsx",
		WeekNumber: "14",
		UploadedAt: time.Date(2025, 4, 4, 9, 30, 0, 0, time.UTC),
		Sheets: []domain.SheetData{
			{
				Name: "Company Total",
				Weeks: []domain.WeekRecord{
					{
						PeriodType:         domain.PeriodWeekly,
						WeekLabel:          "Week 13",
						TotalSales:         100000,
						GrossProfit:        30000,
						GrossProfitPercent: 0.30,
					},
					{
						PeriodType:         domain.PeriodWeekly,
						WeekLabel:          "Week 14",
						TotalSales:         140000,
						GrossProfit:        49980,
						GrossProfitPercent: 0.357,
					},
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
		},
	}
}
