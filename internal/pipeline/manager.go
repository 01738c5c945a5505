package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staffpulse/internal/infrastructure"
	"staffpulse/pkg/contracts/domain"
	"staffpulse/pkg/contracts/events"
)

// Broadcaster pushes pipeline events to connected clients. The websocket
// hub satisfies it; a nil Broadcaster disables event publishing.
type Broadcaster interface {
	BroadcastEventWithTrace(msgType events.MessageType, data interface{}, traceID string)
}

// Upload is one workbook handed to the pipeline.
type Upload struct {
	FileName string
	Data     []byte
	TraceID  string
}

// Result is the outcome of a successful run.
type Result struct {
	PipelineID  string
	Report      *domain.ParsedReport
	Insights    []domain.SheetInsights
	ArchivePath string
	Duration    time.Duration
	Stages      []StageSnapshot
}

// Manager executes the stage sequence for each upload. Runs happen on the
// caller's goroutine; the manager itself holds no run state, so one
// Manager serves concurrent uploads.
type Manager struct {
	stages []Stage
	hub    Broadcaster
	tracer *Tracer
	logger *slog.Logger
}

// NewManager creates a manager over the given stage sequence.
func NewManager(hub Broadcaster, tracer *Tracer, logger *slog.Logger, stages ...Stage) *Manager {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "pipeline"))

	return &Manager{
		stages: stages,
		hub:    hub,
		tracer: tracer,
		logger: logger,
	}
}

// Run executes every stage in order for one upload. The returned error is
// always a *StageError naming the stage that failed.
func (m *Manager) Run(ctx context.Context, upload Upload) (*Result, error) {
	state := NewState(uuid.New().String(), upload.FileName, upload.Data, upload.TraceID)
	for _, stage := range m.stages {
		state.SetStage(stage.ID(), NewStageState(stage.ID(), stage.Name()))
	}

	ctx, span := m.tracer.StartRun(ctx, state.ID(), upload.FileName, len(upload.Data))
	defer span.End()

	state.Start()
	m.logger.InfoContext(ctx, "Pipeline run started",
		slog.String("pipeline_id", state.ID()),
		slog.String("file_name", upload.FileName),
		slog.Int("bytes", len(upload.Data)),
		slog.Int("stages", len(m.stages)))

	err := m.runStages(ctx, state)

	if err != nil {
		if GetErrorType(err) == ErrorTypeCancelled {
			state.Cancel()
		} else {
			state.Fail(err)
		}
	} else {
		state.Complete()
	}

	duration := state.Duration()
	m.tracer.EndRun(ctx, span, state.ID(), duration, err)
	m.broadcastComplete(state, err)

	if err != nil {
		m.logger.ErrorContext(ctx, "Pipeline run failed",
			slog.String("pipeline_id", state.ID()),
			slog.String("file_name", upload.FileName),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, err
	}

	m.logger.InfoContext(ctx, "Pipeline run completed",
		slog.String("pipeline_id", state.ID()),
		slog.String("report_id", state.ReportID()),
		slog.Duration("duration", duration))

	stages := make([]StageSnapshot, 0, len(m.stages))
	for _, stage := range m.stages {
		stages = append(stages, state.Stage(stage.ID()).Snapshot())
	}

	return &Result{
		PipelineID:  state.ID(),
		Report:      state.Report(),
		Insights:    state.Insights(),
		ArchivePath: state.ArchivePath(),
		Duration:    duration,
		Stages:      stages,
	}, nil
}

// runStages executes the sequence, aborting on the first failure and
// checking for cancellation between stages.
func (m *Manager) runStages(ctx context.Context, state *State) error {
	total := len(m.stages)
	for i, stage := range m.stages {
		select {
		case <-ctx.Done():
			m.logger.WarnContext(ctx, "Pipeline run cancelled",
				slog.String("pipeline_id", state.ID()),
				slog.String("stage", stage.ID()))
			m.skipRemaining(state, i, "run cancelled")
			return NewCancellationError(stage.ID(), ctx.Err())
		default:
		}

		m.broadcastProgress(state, stage, i, total)

		if err := m.executeStage(ctx, state, stage); err != nil {
			m.skipRemaining(state, i+1, "previous stage failed")
			return err
		}
	}
	return nil
}

// executeStage runs one stage with its own span and stage record.
func (m *Manager) executeStage(ctx context.Context, state *State, stage Stage) error {
	stageState := state.Stage(stage.ID())
	stageCtx, span := m.tracer.StartStage(ctx, state.ID(), stage.ID())
	defer span.End()

	if err := stage.Validate(state); err != nil {
		wrapped := NewExecutionError(stage.ID(), err)
		stageState.Fail(wrapped)
		m.tracer.EndStage(stageCtx, span, state.ID(), stage.ID(), 0, wrapped)
		m.logger.ErrorContext(stageCtx, "Stage preconditions not met",
			slog.String("pipeline_id", state.ID()),
			slog.String("stage", stage.ID()),
			slog.String("error", err.Error()))
		return wrapped
	}

	stageState.Start()
	start := time.Now()
	err := stage.Execute(stageCtx, state)
	duration := time.Since(start)
	m.tracer.EndStage(stageCtx, span, state.ID(), stage.ID(), duration, err)
	m.recordStageOutcome(stageCtx, state, stage.ID(), duration, err)

	if err != nil {
		var stageErr *StageError
		if !errors.As(err, &stageErr) {
			err = NewExecutionError(stage.ID(), err)
		}
		stageState.Fail(err)
		m.logger.ErrorContext(stageCtx, "Stage failed",
			slog.String("pipeline_id", state.ID()),
			slog.String("stage", stage.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return err
	}

	stageState.Complete()
	m.logger.DebugContext(stageCtx, "Stage completed",
		slog.String("pipeline_id", state.ID()),
		slog.String("stage", stage.ID()),
		slog.Duration("duration", duration))
	return nil
}

// recordStageOutcome feeds the domain counters behind the generic stage
// metrics: extraction volume after the extract stage, finding volume after
// the analyze stage.
func (m *Manager) recordStageOutcome(ctx context.Context, state *State, stageID string, duration time.Duration, err error) {
	switch stageID {
	case StageIDExtract:
		weekCount := 0
		if report := state.Report(); report != nil {
			weekCount = report.WeekCount()
		}
		m.tracer.RecordExtraction(ctx, duration, weekCount, err == nil)

	case StageIDAnalyze:
		if err != nil {
			return
		}
		insights := state.Insights()
		findings := 0
		for _, sheet := range insights {
			findings += len(sheet.Findings)
		}
		m.tracer.RecordAnalysis(ctx, len(insights), findings)
	}
}

// skipRemaining marks every stage from index on that is still pending.
func (m *Manager) skipRemaining(state *State, from int, reason string) {
	for _, stage := range m.stages[from:] {
		stageState := state.Stage(stage.ID())
		if stageState != nil && stageState.Status() == StageStatusPending {
			stageState.Skip(reason)
		}
	}
}

func (m *Manager) broadcastProgress(state *State, stage Stage, index, total int) {
	if m.hub == nil {
		return
	}

	progress := 0
	if total > 0 {
		progress = index * 100 / total
	}

	m.hub.BroadcastEventWithTrace(events.MessageTypeExtractionProgress, events.ExtractionProgress{
		PipelineID: state.ID(),
		Stage:      stage.ID(),
		FileName:   state.FileName(),
		Progress:   progress,
		Message:    stage.Name(),
	}, state.TraceID())
}

func (m *Manager) broadcastComplete(state *State, err error) {
	if m.hub == nil {
		return
	}

	complete := events.ExtractionComplete{
		PipelineID: state.ID(),
		FileName:   state.FileName(),
		DurationMS: state.Duration().Milliseconds(),
		Success:    err == nil,
	}
	if report := state.Report(); report != nil {
		complete.WeekNumber = report.WeekNumber
		complete.SheetCount = len(report.Sheets)
		complete.RecordCount = report.WeekCount()
	}
	if err != nil {
		complete.Error = err.Error()
	} else {
		complete.ReportID = state.ReportID()
	}
	m.hub.BroadcastEventWithTrace(events.MessageTypeExtractionComplete, complete, state.TraceID())

	if err != nil {
		return
	}
	if report := state.Report(); report != nil {
		m.hub.BroadcastEventWithTrace(events.MessageTypeReportSaved, events.ReportSaved{
			ReportID:   state.ReportID(),
			FileName:   report.FileName,
			WeekNumber: report.WeekNumber,
			SheetCount: len(report.Sheets),
			UploadedAt: report.UploadedAt,
		}, state.TraceID())
	}
}
