package files

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"staffpulse/internal/config"
)

// weekReportPattern matches the week token in weekly report workbook names,
// e.g. "13WeekReport_Week_14.xlsx" or "13 Week Report - Week 14.xlsx".
var weekReportPattern = regexp.MustCompile(`(?i)week[ _-]*([0-9]+)`)

// FileInfo describes one discovered workbook file.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery lists workbook files under a base directory.
type Discovery struct {
	basePath string
}

// NewDiscovery creates a discovery rooted at basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindWorkbookFiles lists the .xlsx workbooks in dir, oldest first. Excel
// lock files and foreign extensions are skipped. dir may be absolute or
// relative to the base path.
func (d *Discovery) FindWorkbookFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var found []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isWorkbookName(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// The file vanished between ReadDir and Info.
			continue
		}

		found = append(found, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].ModTime.Before(found[j].ModTime)
	})
	return found, nil
}

// FindWeeklyReports finds weekly report workbooks keyed by their week number.
// When several workbooks carry the same week number the most recently
// modified one wins, so a re-download replaces the original.
func (d *Discovery) FindWeeklyReports(dir string) (map[string]FileInfo, error) {
	files, err := d.FindWorkbookFiles(dir)
	if err != nil {
		return nil, err
	}

	reports := make(map[string]FileInfo)
	for _, file := range files {
		week := WeekNumberFromName(file.Name)
		if week == "" {
			continue
		}
		if existing, ok := reports[week]; !ok || file.ModTime.After(existing.ModTime) {
			reports[week] = file
		}
	}

	return reports, nil
}

// WeekNumberFromName extracts the week number token from a workbook file
// name, or "" when the name carries none.
func WeekNumberFromName(name string) string {
	match := weekReportPattern.FindStringSubmatch(name)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// resolve joins dir onto the base path unless it is already absolute.
func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// isWorkbookName reports whether name looks like workbook data: the .xlsx
// extension and not an Excel ~$ lock file. Legacy .xls exports are excluded
// on purpose; they lose the sheet metadata extraction depends on.
func isWorkbookName(name string) bool {
	if strings.HasPrefix(name, "~$") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), config.AllowedWorkbookExt)
}
