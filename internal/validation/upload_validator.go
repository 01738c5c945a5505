package validation

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"staffpulse/internal/config"
	apperrors "staffpulse/internal/errors"
)

// UploadValidator checks uploaded workbook payloads before they enter the
// extraction pipeline. Every rejection is a validation AppError so the HTTP
// layer can render it as a problem response instead of a bare 500.
type UploadValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadValidator creates an upload validator with the given size cap
func NewUploadValidator(maxBytes int64, logger *slog.Logger) *UploadValidator {
	if maxBytes <= 0 {
		maxBytes = config.MaxUploadSizeBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadValidator{
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// MaxBytes returns the configured upload size cap
func (v *UploadValidator) MaxBytes() int64 {
	return v.maxBytes
}

// ValidateUpload runs all upload checks in order and returns the first failure
func (v *UploadValidator) ValidateUpload(filename string, data []byte) error {
	if err := v.ValidateSize(int64(len(data))); err != nil {
		return err
	}
	if err := v.ValidateFilename(filename); err != nil {
		return err
	}
	if err := v.ValidateMagicHeader(data); err != nil {
		return err
	}
	return v.ValidateWorkbookStructure(filename, data)
}

// ValidateSize enforces the configured upload size cap
func (v *UploadValidator) ValidateSize(size int64) error {
	if size == 0 {
		return apperrors.NewAppValidationError("uploaded file is empty")
	}
	if size > v.maxBytes {
		v.logger.Warn("Rejected oversized upload",
			slog.Int64("size", size),
			slog.Int64("max_bytes", v.maxBytes))
		return apperrors.NewAppValidationError(config.ErrUploadTooLarge).
			WithContext("size", size).
			WithContext("max_bytes", v.maxBytes)
	}
	return nil
}

// ValidateFilename enforces the workbook extension allowlist
func (v *UploadValidator) ValidateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return apperrors.NewAppValidationError("upload filename must not be empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != config.AllowedWorkbookExt {
		v.logger.Warn("Rejected upload with unsupported extension",
			slog.String("filename", filename),
			slog.String("extension", ext))
		return apperrors.NewAppValidationError(config.ErrWorkbookFormat).
			WithContext("filename", filename).
			WithContext("extension", ext)
	}

	// Excel lock files start with ~$ and carry no sheet data
	if strings.HasPrefix(filepath.Base(filename), "~$") {
		return apperrors.NewAppValidationError("temporary workbook files cannot be uploaded").
			WithContext("filename", filename)
	}

	return nil
}

// ValidateMagicHeader checks that the payload starts with the xlsx zip signature
func (v *UploadValidator) ValidateMagicHeader(data []byte) error {
	if !bytes.HasPrefix(data, []byte(config.WorkbookMagicHeader)) {
		v.logger.Warn("Rejected upload without zip signature")
		return apperrors.NewAppValidationError(config.ErrWorkbookFormat).
			WithContext("reason", "missing zip signature")
	}
	return nil
}

// ValidateWorkbookStructure opens the payload with excelize to prove it is a
// readable workbook with a sane sheet count
func (v *UploadValidator) ValidateWorkbookStructure(filename string, data []byte) error {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		v.logger.Warn("Rejected upload that cannot be opened as a workbook",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return apperrors.NewAppError(apperrors.ErrTypeValidation, config.ErrWorkbookFormat, err).
			WithContext("filename", filename)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return apperrors.NewAppValidationError("workbook contains no sheets").
			WithContext("filename", filename)
	}
	if len(sheets) > config.MaxWorkbookSheets {
		v.logger.Warn("Rejected workbook with too many sheets",
			slog.String("filename", filename),
			slog.Int("sheets", len(sheets)))
		return apperrors.NewAppValidationError("workbook contains too many sheets").
			WithContext("filename", filename).
			WithContext("sheets", len(sheets)).
			WithContext("max_sheets", config.MaxWorkbookSheets)
	}

	return nil
}
