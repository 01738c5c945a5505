package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffpulse/pkg/contracts/domain"
	"staffpulse/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStage is a scriptable stage for manager tests.
type fakeStage struct {
	id          string
	name        string
	validateErr error
	execErr     error
	execFn      func(ctx context.Context, state *State) error
	calls       int
}

func (f *fakeStage) ID() string { return f.id }

func (f *fakeStage) Name() string {
	if f.name != "" {
		return f.name
	}
	return f.id
}

func (f *fakeStage) Validate(state *State) error { return f.validateErr }

func (f *fakeStage) Execute(ctx context.Context, state *State) error {
	f.calls++
	if f.execFn != nil {
		return f.execFn(ctx, state)
	}
	return f.execErr
}

type broadcastRecord struct {
	msgType events.MessageType
	data    interface{}
	traceID string
}

// captureHub records broadcasts instead of delivering them.
type captureHub struct {
	mu      sync.Mutex
	records []broadcastRecord
}

func (h *captureHub) BroadcastEventWithTrace(msgType events.MessageType, data interface{}, traceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, broadcastRecord{msgType: msgType, data: data, traceID: traceID})
}

func (h *captureHub) all() []broadcastRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]broadcastRecord, len(h.records))
	copy(out, h.records)
	return out
}

func fixtureReport() *domain.ParsedReport {
	return &domain.ParsedReport{
		FileName:   "Week 34 2025 Weekly Report.xlsx",
		WeekNumber: "34",
		UploadedAt: time.Date(2025, 8, 18, 9, 0, 0, 0, time.UTC),
		Sheets: []domain.SheetData{
			{Name: "Branch North", Weeks: []domain.WeekRecord{{WeekLabel: "Week 34"}, {WeekLabel: "Week 33"}}},
			{Name: "Branch South", Weeks: []domain.WeekRecord{{WeekLabel: "Week 34"}}},
		},
	}
}

func TestManagerRunSuccess(t *testing.T) {
	hub := &captureHub{}
	var order []string
	first := &fakeStage{id: "one", name: "Stage one", execFn: func(_ context.Context, _ *State) error {
		order = append(order, "one")
		return nil
	}}
	second := &fakeStage{id: "two", name: "Stage two", execFn: func(_ context.Context, state *State) error {
		order = append(order, "two")
		report := fixtureReport()
		report.ID = "rpt-1"
		state.SetReport(report)
		state.SetReportID("rpt-1")
		state.SetArchivePath("data/uploads/Week 34 2025 Weekly Report.xlsx")
		state.SetInsights([]domain.SheetInsights{{SheetName: "Branch North"}})
		return nil
	}}

	manager := NewManager(hub, nil, testLogger(), first, second)
	result, err := manager.Run(context.Background(), Upload{
		FileName: "Week 34 2025 Weekly Report.xlsx",
		Data:     []byte("payload"),
		TraceID:  "trace-1",
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []string{"one", "two"}, order)
	assert.NotEmpty(t, result.PipelineID)
	require.NotNil(t, result.Report)
	assert.Equal(t, "rpt-1", result.Report.ID)
	assert.Len(t, result.Insights, 1)
	assert.Equal(t, "data/uploads/Week 34 2025 Weekly Report.xlsx", result.ArchivePath)

	require.Len(t, result.Stages, 2)
	for _, snap := range result.Stages {
		assert.Equal(t, StageStatusCompleted, snap.Status, "stage %s", snap.ID)
	}

	records := hub.all()
	require.Len(t, records, 4)

	assert.Equal(t, events.MessageTypeExtractionProgress, records[0].msgType)
	progress := records[0].data.(events.ExtractionProgress)
	assert.Equal(t, result.PipelineID, progress.PipelineID)
	assert.Equal(t, "one", progress.Stage)
	assert.Equal(t, "Stage one", progress.Message)
	assert.Equal(t, 0, progress.Progress)
	assert.Equal(t, "trace-1", records[0].traceID)

	progress = records[1].data.(events.ExtractionProgress)
	assert.Equal(t, "two", progress.Stage)
	assert.Equal(t, 50, progress.Progress)

	assert.Equal(t, events.MessageTypeExtractionComplete, records[2].msgType)
	complete := records[2].data.(events.ExtractionComplete)
	assert.True(t, complete.Success)
	assert.Equal(t, "rpt-1", complete.ReportID)
	assert.Equal(t, "34", complete.WeekNumber)
	assert.Equal(t, 2, complete.SheetCount)
	assert.Equal(t, 3, complete.RecordCount)
	assert.Empty(t, complete.Error)

	assert.Equal(t, events.MessageTypeReportSaved, records[3].msgType)
	saved := records[3].data.(events.ReportSaved)
	assert.Equal(t, "rpt-1", saved.ReportID)
	assert.Equal(t, "Week 34 2025 Weekly Report.xlsx", saved.FileName)
	assert.Equal(t, "34", saved.WeekNumber)
	assert.Equal(t, 2, saved.SheetCount)
	assert.Equal(t, time.Date(2025, 8, 18, 9, 0, 0, 0, time.UTC), saved.UploadedAt)
}

func TestManagerRunStageFailure(t *testing.T) {
	hub := &captureHub{}
	cause := errors.New("extraction exploded")
	first := &fakeStage{id: "one"}
	second := &fakeStage{id: "two", execErr: cause}
	third := &fakeStage{id: "three"}

	manager := NewManager(hub, nil, testLogger(), first, second, third)
	result, err := manager.Run(context.Background(), Upload{FileName: "report.xlsx", Data: []byte("x")})

	require.Error(t, err)
	assert.Nil(t, result)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "two", stageErr.Stage)
	assert.Equal(t, ErrorTypeExecution, stageErr.Type)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls, "stages after a failure must not run")

	records := hub.all()
	require.Len(t, records, 3, "progress for the two attempted stages plus the failure event")
	assert.Equal(t, events.MessageTypeExtractionComplete, records[2].msgType)
	complete := records[2].data.(events.ExtractionComplete)
	assert.False(t, complete.Success)
	assert.NotEmpty(t, complete.Error)
	assert.Empty(t, complete.ReportID)
}

func TestManagerRunValidateFailure(t *testing.T) {
	hub := &captureHub{}
	first := &fakeStage{id: "one", validateErr: errors.New("store not configured")}
	second := &fakeStage{id: "two"}

	manager := NewManager(hub, nil, testLogger(), first, second)
	_, err := manager.Run(context.Background(), Upload{FileName: "report.xlsx", Data: []byte("x")})

	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "one", stageErr.Stage)
	assert.Equal(t, 0, first.calls, "Execute must not run when preconditions fail")
	assert.Equal(t, 0, second.calls)

	records := hub.all()
	require.Len(t, records, 2)
	assert.Equal(t, events.MessageTypeExtractionProgress, records[0].msgType)
	assert.Equal(t, events.MessageTypeExtractionComplete, records[1].msgType)
}

func TestManagerRunValidationErrorPassesThrough(t *testing.T) {
	cause := errors.New("workbook truncated")
	stage := &fakeStage{id: "validate", execErr: NewValidationError("validate", cause)}

	manager := NewManager(nil, nil, testLogger(), stage)
	_, err := manager.Run(context.Background(), Upload{FileName: "report.xlsx", Data: []byte("x")})

	require.Error(t, err)
	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
	assert.ErrorIs(t, err, cause)
}

func TestManagerRunCancellation(t *testing.T) {
	hub := &captureHub{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := &fakeStage{id: "one", execFn: func(_ context.Context, _ *State) error {
		cancel()
		return nil
	}}
	second := &fakeStage{id: "two"}

	manager := NewManager(hub, nil, testLogger(), first, second)
	result, err := manager.Run(ctx, Upload{FileName: "report.xlsx", Data: []byte("x")})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, ErrorTypeCancelled, GetErrorType(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, second.calls, "no stage may start after cancellation")

	records := hub.all()
	require.NotEmpty(t, records)
	last := records[len(records)-1]
	assert.Equal(t, events.MessageTypeExtractionComplete, last.msgType)
	assert.False(t, last.data.(events.ExtractionComplete).Success)
}

func TestManagerRunWithoutHub(t *testing.T) {
	stage := &fakeStage{id: "only"}

	manager := NewManager(nil, nil, nil, stage)
	result, err := manager.Run(context.Background(), Upload{FileName: "report.xlsx", Data: []byte("x")})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, stage.calls)
	require.Len(t, result.Stages, 1)
	assert.Equal(t, StageStatusCompleted, result.Stages[0].Status)
}

func TestManagerRunNoStages(t *testing.T) {
	hub := &captureHub{}

	manager := NewManager(hub, nil, testLogger())
	result, err := manager.Run(context.Background(), Upload{FileName: "report.xlsx", Data: []byte("x")})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Report)
	assert.Empty(t, result.Stages)

	records := hub.all()
	require.Len(t, records, 1, "only the completion event fires")
	complete := records[0].data.(events.ExtractionComplete)
	assert.True(t, complete.Success)
	assert.Zero(t, complete.SheetCount)
}
