package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir string
	WebDir        string
	StaticDir     string
	DataDir       string
	UploadsDir    string
	ReportsDir    string
	ExportsDir    string
	CacheDir      string
	LogsDir       string

	// Config files
	CredentialsFile string
	TokensFile      string

	// Well-known output files (simplified paths in the exports directory)
	WeeklySummaryCSV  string
	WeeklySummaryJSON string
	FindingsCSV       string
}

// GetPaths returns the application paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	// Get the directory containing the executable
	exeDir := filepath.Dir(exe)

	// Log the resolved executable directory for debugging
	if logger := slog.Default(); logger != nil {
		logger.Info("Resolved executable directory",
			slog.String("exe_path", exe),
			slog.String("exe_dir", exeDir))
	}

	// All paths are relative to the executable directory
	// This ensures the application works correctly whether run from dev/ or dist/
	// Directory structure:
	// dist/
	//   ├── credentials.json
	//   ├── authz-tokens.json
	//   ├── data/
	//   │   ├── uploads/       (Weekly report workbooks, uploaded or fetched)
	//   │   ├── reports/       (Extracted report documents from batch runs)
	//   │   ├── exports/       (Generated CSV exports)
	//   │   └── cache/         (Temporary files)
	//   ├── logs/              (Application logs)
	//   └── web/               (Frontend assets)

	dataDir := filepath.Join(exeDir, "data")
	exportsDir := filepath.Join(dataDir, "exports")

	paths := &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		WebDir:        filepath.Join(exeDir, "web"),
		StaticDir:     filepath.Join(exeDir, "web", "static"),
		UploadsDir:    filepath.Join(dataDir, "uploads"),
		ReportsDir:    filepath.Join(dataDir, "reports"),
		ExportsDir:    exportsDir,
		CacheDir:      filepath.Join(dataDir, "cache"),
		LogsDir:       filepath.Join(exeDir, "logs"),

		// Configuration files (root of executable directory)
		CredentialsFile: filepath.Join(exeDir, "credentials.json"),
		TokensFile:      filepath.Join(exeDir, "authz-tokens.json"),

		// Well-known output files
		WeeklySummaryCSV:  filepath.Join(exportsDir, "weekly_summary.csv"),
		WeeklySummaryJSON: filepath.Join(exportsDir, "weekly_summary.json"),
		FindingsCSV:       filepath.Join(exportsDir, "findings.csv"),
	}

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.UploadsDir,
		p.ReportsDir,
		p.ExportsDir,
		p.CacheDir,
		p.LogsDir,
		p.WebDir,
		p.StaticDir,
	}

	// Log directory creation
	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		// Log successful directory creation
		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetWebFilePath returns the path to a web file
func (p *Paths) GetWebFilePath(filename string) string {
	return filepath.Join(p.WebDir, filename)
}

// GetStaticFilePath returns the path to a static file
func (p *Paths) GetStaticFilePath(filename string) string {
	return filepath.Join(p.StaticDir, filename)
}

// GetUploadPath returns the path for an archived workbook file
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filename)
}

// GetReportPath returns the path for an extracted report document
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetExportPath returns the path for an export file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetCachePath returns the path for a cache file
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetCredentialsPath returns the path for the Google service account credentials file
func (p *Paths) GetCredentialsPath() string {
	path := p.CredentialsFile
	logger := slog.Default()
	if logger != nil {
		logger.Debug("Credentials path resolved",
			slog.String("path", path),
			slog.Bool("exists", FileExists(path)))
	}
	return path
}

// GetTokensPath returns the path for the static authorization tokens file
func (p *Paths) GetTokensPath() string {
	path := p.TokensFile
	logger := slog.Default()
	if logger != nil {
		logger.Debug("Tokens path resolved",
			slog.String("path", path),
			slog.Bool("exists", FileExists(path)))
	}
	return path
}

// GetWeeklySummaryCSVPath returns the path for the weekly_summary.csv file
func (p *Paths) GetWeeklySummaryCSVPath() string {
	return p.WeeklySummaryCSV
}

// GetWeeklySummaryJSONPath returns the path for the weekly_summary.json file
func (p *Paths) GetWeeklySummaryJSONPath() string {
	return p.WeeklySummaryJSON
}

// GetFindingsCSVPath returns the path for the findings.csv file
func (p *Paths) GetFindingsCSVPath() string {
	return p.FindingsCSV
}

// GetSheetExportPath returns the path for a per-sheet export CSV (e.g. Chicago Branch_weekly.csv)
func (p *Paths) GetSheetExportPath(sheet string) string {
	filename := fmt.Sprintf("%s_weekly.csv", sheet)
	return filepath.Join(p.ExportsDir, filename)
}

// GetWorkbookPath returns the path for an archived workbook file
func (p *Paths) GetWorkbookPath(filename string) string {
	return filepath.Join(p.UploadsDir, filename)
}

// GetWorkbookPathForWeek returns the expected path for a workbook covering a specific week
func (p *Paths) GetWorkbookPathForWeek(year, week int) string {
	// Expected format: "Week NN YYYY Weekly Report.xlsx"
	filename := fmt.Sprintf("Week %02d %d Weekly Report.xlsx", week, year)
	return filepath.Join(p.UploadsDir, filename)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("uploads", p.UploadsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("exports", p.ExportsDir),
			slog.String("cache", p.CacheDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		),
		slog.Group("config_files",
			slog.String("credentials", p.CredentialsFile),
			slog.String("tokens", p.TokensFile),
		),
		slog.Group("export_files",
			slog.String("weekly_summary_csv", p.WeeklySummaryCSV),
			slog.String("weekly_summary_json", p.WeeklySummaryJSON),
			slog.String("findings_csv", p.FindingsCSV),
		))
}

// ValidateRequiredFiles checks if critical files exist and returns detailed error information
func (p *Paths) ValidateRequiredFiles() error {
	requiredFiles := map[string]string{
		"Credentials": p.CredentialsFile,
	}

	var missingFiles []string
	for name, path := range requiredFiles {
		if !FileExists(path) {
			missingFiles = append(missingFiles, fmt.Sprintf("%s (%s)", name, path))
		}
	}

	if len(missingFiles) > 0 {
		return fmt.Errorf("required files missing: %s", strings.Join(missingFiles, ", "))
	}

	return nil
}
