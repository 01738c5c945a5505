package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffpulse/internal/config"
)

func TestNewFileValidator(t *testing.T) {
	v := NewFileValidator(nil)
	require.NotNil(t, v)
	assert.NotNil(t, v.logger, "nil logger should fall back to the default")
}

func TestFileValidator_ValidateInputDirectory(t *testing.T) {
	v := NewFileValidator(slog.Default())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Week 14.xlsx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	tests := []struct {
		name    string
		dir     string
		pattern string
		wantErr string
	}{
		{
			name:    "directory with matching files",
			dir:     dir,
			pattern: "*.xlsx",
		},
		{
			name:    "no matches is not an error",
			dir:     dir,
			pattern: "*.pdf",
		},
		{
			name:    "empty pattern skips the scan",
			dir:     dir,
			pattern: "",
		},
		{
			name:    "missing directory",
			dir:     filepath.Join(dir, "nope"),
			pattern: "*.xlsx",
			wantErr: "does not exist",
		},
		{
			name:    "path is a file",
			dir:     filepath.Join(dir, "notes.txt"),
			pattern: "*.xlsx",
			wantErr: "is not a directory",
		},
		{
			name:    "malformed pattern",
			dir:     dir,
			pattern: "[",
			wantErr: "bad file pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateInputDirectory(tt.dir, tt.pattern)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(slog.Default())

	t.Run("creates missing nested directories", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data", "exports")

		require.NoError(t, v.ValidateOutputDirectory(dir))

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("existing directory passes", func(t *testing.T) {
		assert.NoError(t, v.ValidateOutputDirectory(t.TempDir()))
	})

	t.Run("probe file is cleaned up", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, v.ValidateOutputDirectory(dir))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("file in the way", func(t *testing.T) {
		blocked := filepath.Join(t.TempDir(), "blocked")
		require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

		err := v.ValidateOutputDirectory(filepath.Join(blocked, "sub"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create output directory")
	})
}

func TestFileValidator_ValidateWorkbookFile(t *testing.T) {
	v := NewFileValidator(slog.Default())
	dir := t.TempDir()

	writeFile := func(name string, data []byte) string {
		t.Helper()
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	valid := writeFile("Week 14 2025 Weekly Report.xlsx",
		append([]byte(config.WorkbookMagicHeader), "rest of archive"...))
	wrongExt := writeFile("Week 14.xls", []byte(config.WorkbookMagicHeader))
	loginPage := writeFile("13WeekReport_Week_9.xlsx", []byte("<html>Sign in</html>"))
	truncated := writeFile("13WeekReport_Week_8.xlsx", []byte("PK"))
	lockFile := writeFile("~$Week 14 2025 Weekly Report.xlsx", []byte(config.WorkbookMagicHeader))

	dirAsWorkbook := filepath.Join(dir, "folder.xlsx")
	require.NoError(t, os.Mkdir(dirAsWorkbook, 0o755))

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{
			name: "valid workbook",
			path: valid,
		},
		{
			name:    "excel lock file",
			path:    lockFile,
			wantErr: "lock file",
		},
		{
			name:    "legacy xls extension",
			path:    wrongExt,
			wantErr: "not a workbook",
		},
		{
			name:    "missing file",
			path:    filepath.Join(dir, "absent.xlsx"),
			wantErr: "does not exist",
		},
		{
			name:    "directory named like a workbook",
			path:    dirAsWorkbook,
			wantErr: "is a directory",
		},
		{
			name:    "html masquerading as xlsx",
			path:    loginPage,
			wantErr: "does not look like an xlsx workbook",
		},
		{
			name:    "file shorter than the signature",
			path:    truncated,
			wantErr: "truncated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateWorkbookFile(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
