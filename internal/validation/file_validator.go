package validation

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"staffpulse/internal/config"
)

// FileValidator checks directories and workbook files on disk before the
// CLIs touch them. It is the filesystem counterpart of UploadValidator,
// which inspects upload payloads in memory.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a file validator.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateInputDirectory checks that dir exists and counts the files
// matching pattern. No matches is not an error; the caller decides whether
// an empty batch is worth running.
func (v *FileValidator) ValidateInputDirectory(dir, pattern string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("input directory %s does not exist", dir)
	case err != nil:
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}

	if pattern == "" {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("bad file pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		v.logger.Warn("Input directory has no matching files",
			slog.String("directory", dir),
			slog.String("pattern", pattern))
		return nil
	}

	v.logger.Info("Input directory validated",
		slog.String("directory", dir),
		slog.String("pattern", pattern),
		slog.Int("files_found", len(matches)))
	return nil
}

// ValidateOutputDirectory creates dir when missing and proves it is
// writable with a throwaway file.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write_check")
	file, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(probe)

	return nil
}

// ValidateWorkbookFile checks that path names a readable .xlsx workbook:
// the right extension, not an Excel lock file, and the zip signature at
// byte zero. Content past the signature is the extractor's problem.
func (v *FileValidator) ValidateWorkbookFile(path string) error {
	// Excel leaves ~$ lock files next to open workbooks; they carry no data.
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("%s is an Excel lock file, not a workbook", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != config.AllowedWorkbookExt {
		return fmt.Errorf("%s is not a workbook (extension %s)", path, ext)
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("workbook %s does not exist", path)
	case err != nil:
		return fmt.Errorf("failed to stat %s: %w", path, err)
	case info.IsDir():
		return fmt.Errorf("%s is a directory, not a workbook", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("workbook %s is not readable: %w", path, err)
	}
	defer file.Close()

	// A download that is actually a portal error page fails here: HTML
	// carries no zip signature.
	header := make([]byte, len(config.WorkbookMagicHeader))
	if _, err := io.ReadFull(file, header); err != nil {
		return fmt.Errorf("workbook %s is truncated: %w", path, err)
	}
	if !bytes.Equal(header, []byte(config.WorkbookMagicHeader)) {
		v.logger.Warn("File does not carry the xlsx signature",
			slog.String("file", path),
			slog.Int64("size", info.Size()))
		return fmt.Errorf("%s does not look like an xlsx workbook", path)
	}

	return nil
}
