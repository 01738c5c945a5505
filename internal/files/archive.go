package files

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"staffpulse/internal/config"
)

// Archive keeps the original workbook bytes of every processed upload in
// the uploads directory, so an extraction can be re-run or audited later.
// It implements the pipeline's Archiver contract.
type Archive struct {
	mu     sync.Mutex
	paths  *config.Paths
	logger *slog.Logger
}

// NewArchive creates the upload archive.
func NewArchive(paths *config.Paths, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{
		paths:  paths,
		logger: logger.With(slog.String("component", "upload_archive")),
	}
}

// SaveUpload writes the workbook bytes under the original file name and
// returns the written path. When a file with that name already exists the
// new copy gets a numeric suffix instead of overwriting it.
func (a *Archive) SaveUpload(fileName string, data []byte) (string, error) {
	name, err := sanitizeFileName(fileName)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.paths.UploadsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	fullPath := a.paths.GetUploadPath(name)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			break
		}
		fullPath = a.paths.GetUploadPath(fmt.Sprintf("%s_%d%s", base, i, ext))
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to archive upload: %w", err)
	}

	a.logger.Debug("upload archived",
		slog.String("file_name", name),
		slog.String("path", fullPath),
		slog.Int("bytes", len(data)))

	return fullPath, nil
}

// ListUploads returns the archived workbooks, newest first.
func (a *Archive) ListUploads() ([]FileInfo, error) {
	files, err := NewDiscovery(a.paths.UploadsDir).FindWorkbookFiles(".")
	if err != nil {
		// An archive that has never stored anything is empty, not broken.
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// Prune removes the oldest archived uploads beyond keep and returns how
// many files were deleted. A keep below zero is treated as zero.
func (a *Archive) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	files, err := a.ListUploads()
	if err != nil {
		return 0, err
	}
	if len(files) <= keep {
		return 0, nil
	}

	removed := 0
	for _, file := range files[keep:] {
		if err := os.Remove(file.Path); err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", file.Name, err)
		}
		removed++
	}

	a.logger.Info("upload archive pruned",
		slog.Int("kept", keep),
		slog.Int("removed", removed))

	return removed, nil
}

// PruneOlderThan removes archived uploads whose modification time is older
// than maxAge and returns how many files were deleted. A maxAge of zero or
// below removes nothing.
func (a *Archive) PruneOlderThan(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	files, err := a.ListUploads()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, file := range files {
		if !file.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(file.Path); err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", file.Name, err)
		}
		removed++
	}

	if removed > 0 {
		a.logger.Info("upload archive pruned",
			slog.Duration("max_age", maxAge),
			slog.Int("removed", removed))
	}

	return removed, nil
}

// sanitizeFileName reduces an upload name to a plain base name so archived
// files cannot escape the uploads directory.
func sanitizeFileName(fileName string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid upload file name %q", fileName)
	}
	return name, nil
}
