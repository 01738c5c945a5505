package config

import "time"

// Application constants - all hardcoded values for the StaffPulse system
const (
	// Application Info
	AppName    = "StaffPulse"
	AppVersion = "1.0.0"
	AppVendor  = "StaffPulse Analytics"

	// Upload Constraints
	MaxUploadSizeBytes   = 20 * 1024 * 1024 // 20MB
	AllowedWorkbookExt   = ".xlsx"
	WorkbookMagicHeader  = "PK\x03\x04" // xlsx files are zip archives
	MaxWorkbookSheets    = 64
	MaxArchivedWorkbooks = 500

	// Rate Limiting
	DefaultRateLimit       = 100 // requests per minute
	DefaultBurstSize       = 50
	AssistantRateLimit     = 10 // assistant questions per minute per principal
	UploadRateLimit        = 20 // uploads per minute per principal

	// Network Timeouts
	DefaultHTTPTimeout = 30 * time.Second
	AssistantTimeout   = 60 * time.Second
	DirectoryTimeout   = 30 * time.Second
	FetcherTimeout     = 10 * time.Minute

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"
	DefaultUploadsDir = "data/uploads"
	DefaultExportsDir = "data/exports"

	// Cache Settings
	AssistantCacheDuration = 60 * time.Second
	DirectoryCacheDuration = 5 * time.Minute
	ReportCacheDuration    = 15 * time.Minute

	// Pipeline Timeouts
	DefaultPipelineTimeout = 10 * time.Minute
	ExtractionTimeout      = 5 * time.Minute
	AnalysisTimeout        = 1 * time.Minute
	FetchTimeout           = 30 * time.Minute

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// Weekly Report Processing
	WeeklyReportPattern = `(?i)week[ _][0-9]+.*\.xlsx$`
	WeekNumberPattern   = `(?i)week[ _]([0-9]+)`

	// Error Messages
	ErrUploadTooLarge     = "Workbook exceeds the maximum upload size. Weekly report workbooks are capped at 20MB."
	ErrWorkbookFormat     = "File is not a readable .xlsx workbook. Export the weekly report from Excel and try again."
	ErrAssistantOffline   = "The report assistant is temporarily unavailable. Extraction and insights are unaffected."
	ErrPrincipalForbidden = "Your account does not have access to the requested branch sheets."

	// Success Messages
	MsgReportExtracted = "Weekly report extracted successfully."
	MsgReportDeleted   = "Report deleted."
	MsgExportReady     = "CSV export generated."
)

// Feature Flags - compile-time configuration
const (
	// Core Features
	FeatureWebSocketEnabled   = true
	FeatureMetricsEnabled     = true
	FeatureHealthCheckEnabled = true
	FeatureAssistantEnabled   = true
	FeatureExportEnabled      = true

	// Security Features
	FeatureRateLimitingEnabled = true
	FeatureAuthzEnabled        = true

	// Development Features
	FeatureDebugLoggingEnabled  = false
	FeatureVerboseModeEnabled   = false
	FeatureMockAssistantEnabled = false
)

// URLs and Endpoints (all embedded)
const (
	// API Endpoints (internal)
	APIBasePath       = "/api"
	ReportsEndpoint   = "/api/reports"
	HealthEndpoint    = "/api/health"
	ReadinessEndpoint = "/api/health/ready"
	LivenessEndpoint  = "/api/health/live"
	MetricsEndpoint   = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"
)

// GetFeatureFlag returns the value of a feature flag
func GetFeatureFlag(flag string) bool {
	switch flag {
	case "websocket":
		return FeatureWebSocketEnabled
	case "metrics":
		return FeatureMetricsEnabled
	case "health_check":
		return FeatureHealthCheckEnabled
	case "assistant":
		return FeatureAssistantEnabled
	case "export":
		return FeatureExportEnabled
	case "rate_limiting":
		return FeatureRateLimitingEnabled
	case "authz":
		return FeatureAuthzEnabled
	case "debug_logging":
		return FeatureDebugLoggingEnabled
	case "verbose_mode":
		return FeatureVerboseModeEnabled
	case "mock_assistant":
		return FeatureMockAssistantEnabled
	default:
		return false
	}
}
