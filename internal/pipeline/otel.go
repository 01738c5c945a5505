package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"staffpulse/internal/infrastructure"
)

const (
	// TracerName identifies pipeline spans in trace backends.
	TracerName = "staffpulse.pipeline"

	// runTrigger labels every pipeline metric; uploads are the only
	// trigger today.
	runTrigger = "upload"
)

// Tracer provides OpenTelemetry instrumentation for pipeline runs. All
// methods are safe on a nil receiver so the Manager works untraced.
type Tracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewTracer creates a pipeline tracer backed by the given providers.
func NewTracer(providers *infrastructure.OTelProviders) (*Tracer, error) {
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	return &Tracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}, nil
}

// StartRun opens the root span for one pipeline run.
func (t *Tracer) StartRun(ctx context.Context, pipelineID, fileName string, size int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := t.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.id", pipelineID),
			attribute.String("pipeline.file_name", fileName),
			attribute.Int("pipeline.bytes", size),
		),
	)

	infrastructure.RecordDataProcessed(ctx, t.metrics, runTrigger, int64(size))
	infrastructure.RecordActiveRunChange(ctx, t.metrics, 1, runTrigger)
	return ctx, span
}

// EndRun records the run outcome on the root span and the run metrics.
func (t *Tracer) EndRun(ctx context.Context, span trace.Span, pipelineID string, duration time.Duration, err error) {
	if t == nil {
		return
	}

	infrastructure.RecordActiveRunChange(ctx, t.metrics, -1, runTrigger)
	infrastructure.RecordPipelineMetrics(ctx, t.metrics, pipelineID, runTrigger, duration, err == nil, err)

	if errors.Is(err, context.Canceled) || GetErrorType(err) == ErrorTypeCancelled {
		infrastructure.RecordRunCancellation(ctx, t.metrics, pipelineID, runTrigger, "context cancelled")
	}

	span.SetAttributes(attribute.Float64("pipeline.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "pipeline completed")
	}
}

// RecordExtraction records the extract stage outcome and extracted volume.
func (t *Tracer) RecordExtraction(ctx context.Context, duration time.Duration, weekCount int, success bool) {
	if t == nil {
		return
	}
	infrastructure.RecordExtractionMetrics(ctx, t.metrics, duration, weekCount, success)
}

// RecordAnalysis records the analyze stage output volume.
func (t *Tracer) RecordAnalysis(ctx context.Context, sheetCount, findingCount int) {
	if t == nil {
		return
	}
	infrastructure.RecordInsightMetrics(ctx, t.metrics, runTrigger, sheetCount, findingCount)
}

// StartStage opens a span for one stage execution.
func (t *Tracer) StartStage(ctx context.Context, pipelineID, stageID string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return t.tracer.Start(ctx, fmt.Sprintf("pipeline.stage.%s", stageID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.id", pipelineID),
			attribute.String("stage.id", stageID),
		),
	)
}

// EndStage records the stage outcome and duration.
func (t *Tracer) EndStage(ctx context.Context, span trace.Span, pipelineID, stageID string, duration time.Duration, err error) {
	if t == nil {
		return
	}

	infrastructure.RecordStageMetrics(ctx, t.metrics, pipelineID, stageID, duration, err == nil)

	span.SetAttributes(attribute.Float64("stage.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "stage completed")
	}
}
