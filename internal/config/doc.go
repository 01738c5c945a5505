// Package config provides centralized configuration management for StaffPulse.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern STAFFPULSE_* for namespacing:
//
//	STAFFPULSE_SERVER_PORT=8080
//	STAFFPULSE_STORE_DRIVER=postgres
//	STAFFPULSE_STORE_DSN=postgres://...
//	STAFFPULSE_ASSISTANT_API_KEY=sk-...
//	STAFFPULSE_LOGGING_LEVEL=info
//
// # Configuration Structure
//
// The main configuration struct groups settings by concern:
//
//	type Config struct {
//	    Server    ServerConfig    `envconfig:"SERVER"`
//	    Security  SecurityConfig  `envconfig:"SECURITY"`
//	    Logging   LoggingConfig   `envconfig:"LOGGING"`
//	    Store     StoreConfig     `envconfig:"STORE"`
//	    Assistant AssistantConfig `envconfig:"ASSISTANT"`
//	    Authz     AuthzConfig     `envconfig:"AUTHZ"`
//	}
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, _ := config.GetPaths()
//	uploadPath := paths.GetUploadPath("Week 05 Weekly Report.xlsx")
//	exportPath := paths.GetExportPath("weekly_summary.csv")
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Server ports and timeouts are within acceptable ranges
//	- The store driver and authz mode name known implementations
//	- Postgres and Sheets modes carry the settings they need
//	- Required directories exist or can be created
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
