package validation

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"staffpulse/internal/config"
	apperrors "staffpulse/internal/errors"
)

// buildWorkbookBytes builds a minimal real xlsx payload for probe tests
func buildWorkbookBytes(t *testing.T, sheets ...string) []byte {
	t.Helper()

	f := excelize.NewFile()
	for _, sheet := range sheets {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestUploadValidator_ValidateUpload(t *testing.T) {
	validator := NewUploadValidator(config.MaxUploadSizeBytes, slog.Default())

	t.Run("accepts a real workbook", func(t *testing.T) {
		data := buildWorkbookBytes(t, "Chicago Branch")

		err := validator.ValidateUpload("Week 05 2024 Weekly Report.xlsx", data)
		assert.NoError(t, err)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		err := validator.ValidateUpload("Week 05 2024 Weekly Report.xlsx", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("rejects wrong extension before reading bytes", func(t *testing.T) {
		data := buildWorkbookBytes(t)

		err := validator.ValidateUpload("report.xls", data)
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
		assert.Equal(t, ".xls", appErr.Context["extension"])
	})

	t.Run("rejects payload without zip signature", func(t *testing.T) {
		err := validator.ValidateUpload("Week 05 2024 Weekly Report.xlsx", []byte("plain text, not a workbook"))
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
		assert.Equal(t, "missing zip signature", appErr.Context["reason"])
	})

	t.Run("rejects zip-prefixed garbage that excelize cannot open", func(t *testing.T) {
		data := append([]byte(config.WorkbookMagicHeader), []byte("garbage that is not a zip archive")...)

		err := validator.ValidateUpload("Week 05 2024 Weekly Report.xlsx", data)
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
		assert.NotNil(t, appErr.Cause)
	})
}

func TestUploadValidator_ValidateSize(t *testing.T) {
	validator := NewUploadValidator(16, slog.Default())

	t.Run("accepts payload at the cap", func(t *testing.T) {
		assert.NoError(t, validator.ValidateSize(16))
	})

	t.Run("rejects payload above the cap", func(t *testing.T) {
		err := validator.ValidateSize(17)
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
		assert.Equal(t, int64(17), appErr.Context["size"])
		assert.Equal(t, int64(16), appErr.Context["max_bytes"])
	})

	t.Run("rejects zero size", func(t *testing.T) {
		err := validator.ValidateSize(0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})
}

func TestUploadValidator_ValidateFilename(t *testing.T) {
	validator := NewUploadValidator(config.MaxUploadSizeBytes, slog.Default())

	tests := []struct {
		name          string
		filename      string
		wantErr       bool
		errorContains string
	}{
		{
			name:     "weekly report workbook",
			filename: "Week 05 2024 Weekly Report.xlsx",
		},
		{
			name:     "uppercase extension",
			filename: "Week_12_report.XLSX",
		},
		{
			name:          "empty filename",
			filename:      "  ",
			wantErr:       true,
			errorContains: "must not be empty",
		},
		{
			name:          "legacy xls",
			filename:      "Week 05 2024 Weekly Report.xls",
			wantErr:       true,
			errorContains: "not a readable .xlsx workbook",
		},
		{
			name:          "csv export",
			filename:      "weekly_summary.csv",
			wantErr:       true,
			errorContains: "not a readable .xlsx workbook",
		},
		{
			name:          "excel lock file",
			filename:      "~$Week 05 2024 Weekly Report.xlsx",
			wantErr:       true,
			errorContains: "temporary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateFilename(tt.filename)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUploadValidator_ValidateWorkbookStructure(t *testing.T) {
	validator := NewUploadValidator(config.MaxUploadSizeBytes, slog.Default())

	t.Run("accepts workbook with several sheets", func(t *testing.T) {
		data := buildWorkbookBytes(t, "Chicago Branch", "Dallas", "All Branches")

		err := validator.ValidateWorkbookStructure("Week 05 2024 Weekly Report.xlsx", data)
		assert.NoError(t, err)
	})

	t.Run("rejects unreadable payload", func(t *testing.T) {
		err := validator.ValidateWorkbookStructure("bad.xlsx", []byte(config.WorkbookMagicHeader))
		require.Error(t, err)
		assert.Contains(t, strings.ToLower(err.Error()), "workbook")
	})
}

func TestNewUploadValidator_Defaults(t *testing.T) {
	t.Run("zero cap falls back to the constant", func(t *testing.T) {
		validator := NewUploadValidator(0, nil)
		assert.Equal(t, int64(config.MaxUploadSizeBytes), validator.MaxBytes())
	})

	t.Run("explicit cap is kept", func(t *testing.T) {
		validator := NewUploadValidator(1024, nil)
		assert.Equal(t, int64(1024), validator.MaxBytes())
	})
}
