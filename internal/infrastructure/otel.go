package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "staffpulse-weekly-reports"
	ServiceVersion = "v1.0.0"
	MeterName      = "staffpulse"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
	PrometheusPort string
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout", // Use stdout for development
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0, // Sample all traces in development
		PrometheusPort: "9090",
	}
}

// InitializeOTel initializes OpenTelemetry with comprehensive observability
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	// Create resource
	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	// Initialize tracing
	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	// Initialize metrics
	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	// Set up global propagators for trace context
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		// No exporter - tracing disabled
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	// Set global tracer provider
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		// Create Prometheus exporter
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		// Create Prometheus HTTP handler
		providers.PrometheusHTTP = promhttp.Handler()

		// Create meter provider with Prometheus reader
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		// Set global meter provider
		otel.SetMeterProvider(mp)

	case "none":
		// No exporter - metrics disabled
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	// HTTP metrics
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	// Pipeline metrics
	pipelineRunsTotal, err := meter.Int64Counter(
		"pipeline_runs_total",
		metric.WithDescription("Total number of report pipeline runs"),
	)
	if err != nil {
		return nil, err
	}

	pipelineRunDuration, err := meter.Float64Histogram(
		"pipeline_run_duration_seconds",
		metric.WithDescription("Report pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	pipelineStagesTotal, err := meter.Int64Counter(
		"pipeline_stages_total",
		metric.WithDescription("Total number of pipeline stages executed"),
	)
	if err != nil {
		return nil, err
	}

	pipelineStageDuration, err := meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Pipeline stage execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	pipelineActiveRuns, err := meter.Int64UpDownCounter(
		"pipeline_active_runs",
		metric.WithDescription("Number of pipeline runs in flight"),
	)
	if err != nil {
		return nil, err
	}

	pipelineErrors, err := meter.Int64Counter(
		"pipeline_errors_total",
		metric.WithDescription("Total number of pipeline errors"),
	)
	if err != nil {
		return nil, err
	}

	pipelineCancellations, err := meter.Int64Counter(
		"pipeline_cancellations_total",
		metric.WithDescription("Total number of pipeline cancellations"),
	)
	if err != nil {
		return nil, err
	}

	pipelineDataProcessed, err := meter.Int64Counter(
		"pipeline_data_processed_bytes",
		metric.WithDescription("Total bytes of workbook data processed by pipelines"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	// Extraction metrics
	reportExtractionsTotal, err := meter.Int64Counter(
		"report_extractions_total",
		metric.WithDescription("Total number of weekly report extractions"),
	)
	if err != nil {
		return nil, err
	}

	reportExtractionDuration, err := meter.Float64Histogram(
		"report_extraction_duration_seconds",
		metric.WithDescription("Weekly report extraction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	reportExtractionFailures, err := meter.Int64Counter(
		"report_extraction_failures_total",
		metric.WithDescription("Total number of failed report extractions"),
	)
	if err != nil {
		return nil, err
	}

	reportWeeksExtracted, err := meter.Int64Counter(
		"report_weeks_extracted_total",
		metric.WithDescription("Total number of week rows extracted from reports"),
	)
	if err != nil {
		return nil, err
	}

	// Assistant metrics
	assistantRequestsTotal, err := meter.Int64Counter(
		"assistant_requests_total",
		metric.WithDescription("Total number of assistant completion requests"),
	)
	if err != nil {
		return nil, err
	}

	assistantRequestDuration, err := meter.Float64Histogram(
		"assistant_request_duration_seconds",
		metric.WithDescription("Assistant completion request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	assistantFailures, err := meter.Int64Counter(
		"assistant_failures_total",
		metric.WithDescription("Total number of failed assistant requests"),
	)
	if err != nil {
		return nil, err
	}

	assistantCacheHits, err := meter.Int64Counter(
		"assistant_cache_hits_total",
		metric.WithDescription("Total number of assistant summary cache hits"),
	)
	if err != nil {
		return nil, err
	}

	assistantCacheMisses, err := meter.Int64Counter(
		"assistant_cache_misses_total",
		metric.WithDescription("Total number of assistant summary cache misses"),
	)
	if err != nil {
		return nil, err
	}

	assistantRateLimited, err := meter.Int64Counter(
		"assistant_rate_limited_total",
		metric.WithDescription("Total number of assistant requests rejected by rate limits"),
	)
	if err != nil {
		return nil, err
	}

	// Insight metrics
	insightComputationsTotal, err := meter.Int64Counter(
		"insight_computations_total",
		metric.WithDescription("Total number of insight computations"),
	)
	if err != nil {
		return nil, err
	}

	insightFindingsTotal, err := meter.Int64Counter(
		"insight_findings_total",
		metric.WithDescription("Total number of findings produced by the insight engine"),
	)
	if err != nil {
		return nil, err
	}

	// System metrics
	systemErrors, err := meter.Int64Counter(
		"system_errors_total",
		metric.WithDescription("Total number of system errors"),
	)
	if err != nil {
		return nil, err
	}

	systemUptime, err := meter.Float64UpDownCounter(
		"system_uptime_seconds",
		metric.WithDescription("System uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		// HTTP metrics
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,

		// Pipeline metrics
		PipelineRunsTotal:     pipelineRunsTotal,
		PipelineRunDuration:   pipelineRunDuration,
		PipelineStagesTotal:   pipelineStagesTotal,
		PipelineStageDuration: pipelineStageDuration,
		PipelineActiveRuns:    pipelineActiveRuns,
		PipelineErrors:        pipelineErrors,
		PipelineCancellations: pipelineCancellations,
		PipelineDataProcessed: pipelineDataProcessed,

		// Extraction metrics
		ReportExtractionsTotal:   reportExtractionsTotal,
		ReportExtractionDuration: reportExtractionDuration,
		ReportExtractionFailures: reportExtractionFailures,
		ReportWeeksExtracted:     reportWeeksExtracted,

		// Assistant metrics
		AssistantRequestsTotal:   assistantRequestsTotal,
		AssistantRequestDuration: assistantRequestDuration,
		AssistantFailures:        assistantFailures,
		AssistantCacheHits:       assistantCacheHits,
		AssistantCacheMisses:     assistantCacheMisses,
		AssistantRateLimited:     assistantRateLimited,

		// Insight metrics
		InsightComputationsTotal: insightComputationsTotal,
		InsightFindingsTotal:     insightFindingsTotal,

		// System metrics
		SystemErrors: systemErrors,
		SystemUptime: systemUptime,
	}, nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Pipeline metrics
	PipelineRunsTotal     metric.Int64Counter
	PipelineRunDuration   metric.Float64Histogram
	PipelineStagesTotal   metric.Int64Counter
	PipelineStageDuration metric.Float64Histogram
	PipelineActiveRuns    metric.Int64UpDownCounter
	PipelineErrors        metric.Int64Counter
	PipelineCancellations metric.Int64Counter
	PipelineDataProcessed metric.Int64Counter

	// Extraction metrics
	ReportExtractionsTotal   metric.Int64Counter
	ReportExtractionDuration metric.Float64Histogram
	ReportExtractionFailures metric.Int64Counter
	ReportWeeksExtracted     metric.Int64Counter

	// Assistant metrics
	AssistantRequestsTotal   metric.Int64Counter
	AssistantRequestDuration metric.Float64Histogram
	AssistantFailures        metric.Int64Counter
	AssistantCacheHits       metric.Int64Counter
	AssistantCacheMisses     metric.Int64Counter
	AssistantRateLimited     metric.Int64Counter

	// Insight metrics
	InsightComputationsTotal metric.Int64Counter
	InsightFindingsTotal     metric.Int64Counter

	// System metrics
	SystemErrors metric.Int64Counter
	SystemUptime metric.Float64UpDownCounter
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// SpanFromContext returns the current span from context
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}

// RecordPipelineMetrics records metrics for a completed pipeline run
func RecordPipelineMetrics(ctx context.Context, metrics *BusinessMetrics, runID string, trigger string, duration time.Duration, success bool, err error) {
	if metrics == nil {
		return
	}

	// Common attributes
	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
		attribute.String("run.trigger", trigger),
	}

	// Record execution
	metrics.PipelineRunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	// Record duration
	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}
	durationAttrs := append(attrs, statusAttr)
	metrics.PipelineRunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(durationAttrs...))

	// Record errors
	if err != nil {
		errorAttrs := append(attrs, attribute.String("error.type", fmt.Sprintf("%T", err)))
		metrics.PipelineErrors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}

	// Add span event
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("pipeline.metrics_recorded",
			trace.WithAttributes(
				attribute.String("run.id", runID),
				attribute.Bool("success", success),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordStageMetrics records metrics for a pipeline stage execution
func RecordStageMetrics(ctx context.Context, metrics *BusinessMetrics, runID, stageID string, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}

	// Common attributes
	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
		attribute.String("stage.id", stageID),
	}

	// Record stage execution
	metrics.PipelineStagesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	// Record duration
	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}
	durationAttrs := append(attrs, statusAttr)
	metrics.PipelineStageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(durationAttrs...))
}

// RecordActiveRunChange records changes in the in-flight pipeline run count
func RecordActiveRunChange(ctx context.Context, metrics *BusinessMetrics, delta int64, trigger string) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.trigger", trigger),
	}

	metrics.PipelineActiveRuns.Add(ctx, delta, metric.WithAttributes(attrs...))
}

// RecordRunCancellation records a pipeline run cancellation
func RecordRunCancellation(ctx context.Context, metrics *BusinessMetrics, runID, trigger, reason string) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
		attribute.String("run.trigger", trigger),
		attribute.String("reason", reason),
	}

	metrics.PipelineCancellations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDataProcessed records workbook bytes entering the pipeline
func RecordDataProcessed(ctx context.Context, metrics *BusinessMetrics, trigger string, bytes int64) {
	if metrics == nil || bytes <= 0 {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.trigger", trigger),
	}

	metrics.PipelineDataProcessed.Add(ctx, bytes, metric.WithAttributes(attrs...))
}

// RecordExtractionMetrics records one workbook extraction outcome
func RecordExtractionMetrics(ctx context.Context, metrics *BusinessMetrics, duration time.Duration, weekCount int, success bool) {
	if metrics == nil {
		return
	}

	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}

	metrics.ReportExtractionsTotal.Add(ctx, 1, metric.WithAttributes(statusAttr))
	metrics.ReportExtractionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(statusAttr))

	if !success {
		metrics.ReportExtractionFailures.Add(ctx, 1)
		return
	}

	if weekCount > 0 {
		metrics.ReportWeeksExtracted.Add(ctx, int64(weekCount))
	}
}

// RecordInsightMetrics records one insight engine pass over a report
func RecordInsightMetrics(ctx context.Context, metrics *BusinessMetrics, trigger string, sheetCount, findingCount int) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("trigger", trigger),
	}

	metrics.InsightComputationsTotal.Add(ctx, int64(sheetCount), metric.WithAttributes(attrs...))
	if findingCount > 0 {
		metrics.InsightFindingsTotal.Add(ctx, int64(findingCount), metric.WithAttributes(attrs...))
	}
}

// RecordAssistantMetrics records one assistant completion request outcome
func RecordAssistantMetrics(ctx context.Context, metrics *BusinessMetrics, duration time.Duration, err error, rateLimited bool) {
	if metrics == nil {
		return
	}

	status := "success"
	switch {
	case rateLimited:
		status = "rate_limited"
	case err != nil:
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("status", status),
	}

	metrics.AssistantRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.AssistantRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if rateLimited {
		metrics.AssistantRateLimited.Add(ctx, 1)
		return
	}
	if err != nil {
		metrics.AssistantFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
	}
}

// RecordSystemError records an internal fault attributed to one component
func RecordSystemError(ctx context.Context, metrics *BusinessMetrics, component, errorType string) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("error.type", errorType),
	}

	metrics.SystemErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}
