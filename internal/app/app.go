package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"staffpulse/internal/assistant"
	"staffpulse/internal/authz"
	"staffpulse/internal/config"
	apierrors "staffpulse/internal/errors"
	"staffpulse/internal/exporter"
	"staffpulse/internal/extraction"
	"staffpulse/internal/files"
	"staffpulse/internal/infrastructure"
	customMiddleware "staffpulse/internal/middleware"
	"staffpulse/internal/pipeline"
	"staffpulse/internal/services"
	"staffpulse/internal/store"
	handlers "staffpulse/internal/transport/http"
	"staffpulse/internal/validation"
	ws "staffpulse/internal/websocket"
	"staffpulse/pkg/contracts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

// AppName identifies the service in startup logs.
const AppName = "StaffPulse Weekly Report Service"

// healthTimeout bounds the health and version endpoints, which must stay
// responsive even when report processing is saturated.
const healthTimeout = 10 * time.Second

// Application is the main application container. It owns every long-lived
// dependency and wires them together at startup.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Store         store.Store
	WebSocketHub  *ws.Hub
	Authorizer    authz.Authorizer
	Pipeline      *pipeline.Manager
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders

	businessMetrics *infrastructure.BusinessMetrics
	otelMiddleware  *customMiddleware.OTelMiddleware
	systemMetrics   *infrastructure.SystemMetricsCollector
	storeCleanup    func()
}

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Report    *services.ReportService
	Insight   *services.InsightService
	Assistant *services.AssistantService
	Health    *services.HealthService
	WebSocket *ws.Hub
}

// NewApplication creates a new application instance with dependency injection.
func NewApplication() (*Application, error) {
	// Load configuration. This also resolves and creates the data
	// directories, so the file logger below has somewhere to write.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	// Initialize OpenTelemetry
	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Initialize WebSocket OpenTelemetry metrics
	if err := ws.InitOTelMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize WebSocket OpenTelemetry metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	// Initialize services in dependency order
	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Setup router
	app.setupRouter()

	// Create HTTP server
	app.createServer()

	return app, nil
}

// initializeServices builds every long-lived dependency, bottom up: store and
// hub first, then the pipeline, then the services that sit on top of them.
func (a *Application) initializeServices() error {
	ctx := context.Background()

	// Report store (Postgres or in-memory, per config)
	st, cleanup, err := store.New(ctx, a.Config.Store, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize report store: %w", err)
	}
	a.Store = st
	a.storeCleanup = cleanup

	// WebSocket hub for progress events. Start is idempotent and launches
	// the hub's own goroutines.
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	// Authorization directory (Google Sheets backed or static, per config)
	authorizer, err := authz.New(ctx, a.Config.Authz, a.Paths, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize authorization directory: %w", err)
	}
	a.Authorizer = authorizer

	// Observability helpers exist only when the providers carry a meter.
	// With the metric exporter set to "none" they stay nil and every
	// consumer tolerates that.
	var tracer *pipeline.Tracer
	if a.OTelProviders.Meter != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create business metrics: %w", err)
		}
		a.businessMetrics = metrics

		tracer, err = pipeline.NewTracer(a.OTelProviders)
		if err != nil {
			return fmt.Errorf("failed to initialize pipeline tracer: %w", err)
		}

		collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
		if err != nil {
			return fmt.Errorf("failed to create system metrics collector: %w", err)
		}
		a.systemMetrics = collector

		if a.OTelProviders.Tracer != nil {
			a.otelMiddleware = customMiddleware.NewOTelMiddleware(a.OTelProviders, metrics)
		}
	}

	// Upload pipeline: validate -> extract -> persist -> analyze
	uploadValidator := validation.NewUploadValidator(a.Config.Server.MaxUploadBytes, a.Logger)
	extractor := extraction.New(a.Logger)
	archive := files.NewArchive(a.Paths, a.Logger)
	stages := pipeline.DefaultStages(uploadValidator, extractor, a.Store, archive, a.Logger)
	a.Pipeline = pipeline.NewManager(hub, tracer, a.Logger, stages...)

	// Assistant falls back to canned answers when disabled or keyless.
	asst := assistant.New(a.Config.Assistant, a.businessMetrics, a.Logger)

	exp := exporter.NewReportExporter(a.Paths)

	a.Services = &ServiceContainer{
		Report:    services.NewReportService(a.Store, a.Pipeline, a.Authorizer, exp, a.Logger),
		Insight:   services.NewInsightService(a.Store, a.Authorizer, a.businessMetrics, a.Logger),
		Assistant: services.NewAssistantService(a.Store, a.Authorizer, asst, a.businessMetrics, a.Logger),
		Health:    services.NewHealthService(a.Store, hub, a.Paths, a.Logger),
		WebSocket: hub,
	}

	return nil
}

// setupRouter configures the HTTP routes and middleware stack.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Request identity first so every later layer, including the WebSocket
	// upgrade, sees the same request ID.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// WebSocket endpoint stays outside the API middleware group: timeouts
	// and response-rewriting middleware break the upgrade handshake.
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Get("/ws", a.handleWebSocket)

	// Prometheus exposition, also outside the API group. The handler serves
	// 404 when the exporter is disabled.
	r.Mount("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP).Routes())

	r.Group(func(r chi.Router) {
		if a.otelMiddleware != nil {
			r.Use(a.otelMiddleware.Handler)
		}
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			limiter := customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger)
			r.Use(limiter.Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures the /api route tree.
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	validationMW := customMiddleware.NewValidationMiddleware(a.Logger)
	resolver := customMiddleware.NewPrincipalResolver(a.Authorizer, a.Logger)

	reportHandler := handlers.NewReportHandler(a.Services.Report, a.Config.Server.MaxUploadBytes, a.Logger, errorHandler)
	insightHandler := handlers.NewInsightHandler(a.Services.Insight, a.Logger, errorHandler)
	assistantHandler := handlers.NewAssistantHandler(a.Services.Assistant, validationMW, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(resolver.Handler)

		// Unknown paths and wrong verbs answer in problem format like
		// every other API failure.
		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		// Health and version endpoints respond quickly and skip the
		// long pipeline timeout.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(healthTimeout, a.Logger))
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)
			r.Get("/stats", healthHandler.SystemStats)
		})

		// Report routes run under the pipeline timeout: uploads hold the
		// connection through extraction and assistant calls wait on the
		// upstream model.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.PipelineTimeout, a.Logger))

			r.Route("/reports", func(r chi.Router) {
				r.With(resolver.RequireRole("uploader"), customMiddleware.AuditLog(a.Logger)).
					Post("/", customMiddleware.PipelineTraceHandler("upload", reportHandler.Upload))
				r.Get("/", reportHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", reportHandler.Get)
					r.With(resolver.RequireRole("admin"), customMiddleware.AuditLog(a.Logger)).
						Delete("/", reportHandler.Delete)
					r.Get("/export", reportHandler.Export)
					r.Get("/sheets/{name}/insights", insightHandler.SheetInsights)
					r.Post("/ask", assistantHandler.Ask)
				})
			})
		})
	})
}

// getCORSConfig returns the CORS configuration for the current environment.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origins := a.Config.Security.AllowedOrigins
	if a.isDevelopmentMode() {
		origins = appendOrigin(origins, "http://localhost:3000")
		origins = appendOrigin(origins, "http://localhost:8080")
	}

	return customMiddleware.CORSConfig{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-File-Name"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func appendOrigin(origins []string, origin string) []string {
	for _, o := range origins {
		if o == origin {
			return origins
		}
	}
	return append(origins, origin)
}

// isDevelopmentMode reports whether the service runs in a development
// environment.
func (a *Application) isDevelopmentMode() bool {
	if env := os.Getenv("GO_ENV"); env != "" {
		return env == "development"
	}
	return a.Config.Logging.Development
}

// createServer creates the HTTP server from configuration.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,

		// Uploads answer only after the extraction pipeline finishes, which
		// can exceed any sensible global write timeout. The per-route
		// Timeout middleware bounds handlers instead.
		WriteTimeout: 0,
	}
}

// Start launches the HTTP server and background workers. It returns once the
// listener goroutine is running; cancel is invoked if the server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting server",
		slog.String("addr", a.Server.Addr),
		slog.String("version", contracts.Version),
		slog.String("store", a.Config.Store.Driver))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		// Degraded but serviceable: readiness keeps reporting the detail.
		a.Logger.WarnContext(ctx, "Startup health check reported problems",
			slog.String("error", err.Error()))
	}

	go a.reportUptime(ctx)

	if a.systemMetrics != nil {
		go a.systemMetrics.Start(ctx)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.Logger.Error("HTTP server panic",
					slog.Any("panic", r))
				cancel()
			}
		}()

		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("HTTP server error",
				slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Server started",
		slog.String("addr", a.Server.Addr),
		slog.Int("websocket_clients", a.WebSocketHub.ClientCount()))

	return nil
}

// reportUptime feeds the uptime metric while the application runs.
func (a *Application) reportUptime(ctx context.Context) {
	if a.businessMetrics == nil {
		return
	}

	const interval = 30 * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.businessMetrics.SystemUptime.Add(ctx, interval.Seconds())
		}
	}
}

// Stop gracefully shuts down the server and all background services.
func (a *Application) Stop() error {
	a.Logger.Info("Shutting down server",
		slog.Duration("timeout", a.Config.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("HTTP server shutdown error",
			slog.String("error", err.Error()))
		firstErr = err
	}

	a.WebSocketHub.Stop()

	if a.systemMetrics != nil {
		a.systemMetrics.Stop()
	}

	if a.storeCleanup != nil {
		a.storeCleanup()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("OpenTelemetry shutdown error",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.Info("Shutdown complete")

	if err := infrastructure.CloseLogFile(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// Run starts the application and blocks until a shutdown signal arrives or a
// fatal server error cancels the run context.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	select {
	case sig := <-sigChan:
		a.Logger.Info("Received shutdown signal",
			slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.Info("Run context cancelled")
	}

	return a.Stop()
}

// handleWebSocket upgrades the connection and hands it to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	corsConfig := a.getCORSConfig()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin header.
				return true
			}
			for _, allowed := range corsConfig.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			a.Logger.Warn("WebSocket origin rejected",
				slog.String("origin", origin),
				slog.String("remote_addr", r.RemoteAddr))
			return false
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Error("WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		if m := ws.GetOTelMetrics(); m != nil {
			m.RecordConnectionError(r.Context(), "upgrade_failed", err)
		}
		return
	}

	traceID := customMiddleware.GetReqID(r.Context())
	client := ws.NewClientWithTrace(a.WebSocketHub, conn, traceID, a.Logger)
	a.WebSocketHub.Register(client)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.Logger.Error("WebSocket write pump panic",
					slog.Any("panic", r))
			}
		}()
		client.WritePump()
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.Logger.Error("WebSocket read pump panic",
					slog.Any("panic", r))
			}
		}()
		client.ReadPump()
	}()
}

// performStartupHealthCheck verifies the data directories are writable and
// the store is reachable before the server accepts traffic.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	dirs := map[string]string{
		"uploads": a.Paths.UploadsDir,
		"reports": a.Paths.ReportsDir,
		"exports": a.Paths.ExportsDir,
		"cache":   a.Paths.CacheDir,
		"logs":    a.Paths.LogsDir,
	}
	for name, dir := range dirs {
		probe := filepath.Join(dir, ".startup_check")
		if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %v", name, err))
			continue
		}
		if err := os.Remove(probe); err != nil {
			a.Logger.DebugContext(ctx, "Failed to remove startup probe file",
				slog.String("path", probe),
				slog.String("error", err.Error()))
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.Store.Ping(pingCtx); err != nil {
		warnings = append(warnings, fmt.Sprintf("report store unreachable: %v", err))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
