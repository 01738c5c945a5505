package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffpulse/internal/config"
	apperrors "staffpulse/internal/errors"
	"staffpulse/internal/files"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// xlsxBytes fakes a workbook payload: the zip signature followed by junk.
func xlsxBytes(tail string) []byte {
	return append([]byte(config.WorkbookMagicHeader), []byte(tail)...)
}

func TestPlan(t *testing.T) {
	archived := map[string]files.FileInfo{
		"12": {Name: "13WeekReport_Week_12.xlsx"},
	}

	rows := []Row{
		{Href: "/files/13WeekReport_Week_14.xlsx", Label: "13 Week Report - Week 14", Typ: "Weekly"},
		{Href: "/files/13WeekReport_Week_13.xlsx", Label: "13 Week Report - Week 13", Typ: "weekly"},
		{Href: "/files/13WeekReport_Week_12.xlsx", Label: "13 Week Report - Week 12", Typ: "Weekly"},
		{Href: "/files/monthly_summary.xlsx", Label: "Monthly Summary", Typ: "Monthly"},
		{Href: "/files/13WeekReport_Week_11.pdf", Label: "13 Week Report - Week 11", Typ: "Weekly"},
		{Href: "/files/customer_list.xlsx", Label: "Customer List", Typ: "Weekly"},
	}

	downloads, skipped := Plan(rows, archived)

	require.Len(t, downloads, 2)
	assert.Equal(t, 1, skipped)

	assert.Equal(t, "14", downloads[0].Week)
	assert.Equal(t, "/files/13WeekReport_Week_14.xlsx", downloads[0].URL)
	assert.Equal(t, "13WeekReport_Week_14.xlsx", downloads[0].FileName)

	assert.Equal(t, "13", downloads[1].Week)
}

func TestPlan_DuplicateWeeksKeepFirst(t *testing.T) {
	rows := []Row{
		{Href: "/a/13WeekReport_Week_14.xlsx", Label: "Week 14 final", Typ: "Weekly"},
		{Href: "/b/13WeekReport_Week_14.xlsx", Label: "Week 14 draft", Typ: "Weekly"},
	}

	downloads, skipped := Plan(rows, nil)

	require.Len(t, downloads, 1)
	assert.Zero(t, skipped)
	assert.Equal(t, "/a/13WeekReport_Week_14.xlsx", downloads[0].URL)
}

func TestPlan_WeekFromHrefWhenLabelUnparsable(t *testing.T) {
	rows := []Row{
		{Href: "/files/13WeekReport_Week_9.xlsx", Label: "Latest report", Typ: "Weekly"},
	}

	downloads, skipped := Plan(rows, nil)

	require.Len(t, downloads, 1)
	assert.Zero(t, skipped)
	assert.Equal(t, "9", downloads[0].Week)
}

func TestPlan_UntypedRowsAccepted(t *testing.T) {
	// Listings without a type column still plan by file name.
	rows := []Row{
		{Href: "/files/13WeekReport_Week_5.xlsx", Label: "13WeekReport_Week_5.xlsx"},
	}

	downloads, _ := Plan(rows, nil)
	require.Len(t, downloads, 1)
}

func TestCanonicalFileName(t *testing.T) {
	assert.Equal(t, "13WeekReport_Week_14.xlsx", CanonicalFileName("14"))
	assert.Equal(t, "13WeekReport_Week_7.xlsx", CanonicalFileName("7"))
}

func TestFetcher_Download(t *testing.T) {
	content := xlsxBytes("workbook bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	f := New(Config{OutDir: t.TempDir()}, testLogger())
	dest := filepath.Join(f.cfg.OutDir, "13WeekReport_Week_14.xlsx")

	require.NoError(t, f.download(context.Background(), server.URL, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetcher_Download_BadStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	f := New(Config{OutDir: t.TempDir()}, testLogger())
	dest := filepath.Join(f.cfg.OutDir, "13WeekReport_Week_14.xlsx")

	err := f.download(context.Background(), server.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad status")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "client errors should not be retried")

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcher_Download_RetriesTransientFailures(t *testing.T) {
	content := xlsxBytes("workbook bytes")
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write(content)
	}))
	defer server.Close()

	f := New(Config{OutDir: t.TempDir(), Delay: time.Millisecond}, testLogger())
	dest := filepath.Join(f.cfg.OutDir, "13WeekReport_Week_14.xlsx")

	require.NoError(t, f.download(context.Background(), server.URL, dest))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetcher_Download_RejectsNonWorkbookBody(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		// An expired portal session serves the login page with a 200.
		w.Write([]byte("<html><body>Sign in</body></html>"))
	}))
	defer server.Close()

	f := New(Config{OutDir: t.TempDir(), Delay: time.Millisecond}, testLogger())
	dest := filepath.Join(f.cfg.OutDir, "13WeekReport_Week_14.xlsx")

	err := f.download(context.Background(), server.URL, dest)
	require.Error(t, err)
	assert.False(t, apperrors.IsRetryable(err), "a login page will not become a workbook on retry")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "the bogus file should not pose as an archived week")
}

func TestFetcher_Download_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := New(Config{OutDir: t.TempDir(), Delay: time.Millisecond}, testLogger())
	dest := filepath.Join(f.cfg.OutDir, "13WeekReport_Week_14.xlsx")

	err := f.download(context.Background(), server.URL, dest)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err), "the final error keeps its classification")
	assert.EqualValues(t, downloadAttempts, atomic.LoadInt32(&calls))
}

func TestFetcher_ResolveURL(t *testing.T) {
	tests := []struct {
		name      string
		portalURL string
		baseURL   string
		href      string
		want      string
	}{
		{
			name:      "absolute href unchanged",
			portalURL: "https://portal.example.com/reports",
			href:      "https://cdn.example.com/f.xlsx",
			want:      "https://cdn.example.com/f.xlsx",
		},
		{
			name:      "relative href uses portal origin",
			portalURL: "https://portal.example.com/reports/weekly",
			href:      "/files/f.xlsx",
			want:      "https://portal.example.com/files/f.xlsx",
		},
		{
			name:      "explicit base url wins",
			portalURL: "https://portal.example.com/reports",
			baseURL:   "https://downloads.example.com/",
			href:      "files/f.xlsx",
			want:      "https://downloads.example.com/files/f.xlsx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(Config{PortalURL: tt.portalURL, BaseURL: tt.baseURL}, testLogger())
			assert.Equal(t, tt.want, f.resolveURL(tt.href))
		})
	}
}

func TestFetcher_ArchivedWeeks(t *testing.T) {
	outDir := t.TempDir()
	for _, name := range []string{
		"13WeekReport_Week_12.xlsx",
		"13WeekReport_Week_13.xlsx",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(outDir, name), []byte("x"), 0o644))
	}

	f := New(Config{OutDir: outDir}, testLogger())
	archived, err := f.archivedWeeks()
	require.NoError(t, err)

	assert.Len(t, archived, 2)
	assert.Contains(t, archived, "12")
	assert.Contains(t, archived, "13")
}

func TestFetcher_ProcessRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(xlsxBytes("workbook " + filepath.Base(r.URL.Path)))
	}))
	defer server.Close()

	outDir := t.TempDir()
	f := New(Config{OutDir: outDir, Delay: time.Millisecond}, testLogger())

	archived := map[string]files.FileInfo{
		"12": {Name: "13WeekReport_Week_12.xlsx"},
	}
	rows := []Row{
		{Href: server.URL + "/13WeekReport_Week_14.xlsx", Label: "Week 14", Typ: "Weekly"},
		{Href: server.URL + "/13WeekReport_Week_13.xlsx", Label: "Week 13", Typ: "Weekly"},
		{Href: server.URL + "/13WeekReport_Week_12.xlsx", Label: "Week 12", Typ: "Weekly"},
	}

	result := &Result{}
	done, err := f.processRows(context.Background(), rows, archived, result)
	require.NoError(t, err)
	assert.False(t, done)

	require.Len(t, result.Downloaded, 2)
	assert.Equal(t, 1, result.Skipped)
	assert.FileExists(t, filepath.Join(outDir, "13WeekReport_Week_14.xlsx"))
	assert.FileExists(t, filepath.Join(outDir, "13WeekReport_Week_13.xlsx"))

	// Downloaded weeks join the archive map so later pages skip them.
	assert.Contains(t, archived, "14")
	assert.Contains(t, archived, "13")
}

func TestFetcher_ProcessRows_LimitStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(xlsxBytes("workbook"))
	}))
	defer server.Close()

	f := New(Config{OutDir: t.TempDir(), Limit: 1, Delay: time.Millisecond}, testLogger())

	rows := []Row{
		{Href: server.URL + "/13WeekReport_Week_14.xlsx", Label: "Week 14", Typ: "Weekly"},
		{Href: server.URL + "/13WeekReport_Week_13.xlsx", Label: "Week 13", Typ: "Weekly"},
	}

	result := &Result{}
	done, err := f.processRows(context.Background(), rows, map[string]files.FileInfo{}, result)
	require.NoError(t, err)

	assert.True(t, done)
	assert.Len(t, result.Downloaded, 1)
}

func TestFetcher_ProcessRows_AllArchivedStops(t *testing.T) {
	f := New(Config{OutDir: t.TempDir()}, testLogger())

	archived := map[string]files.FileInfo{
		"14": {Name: "13WeekReport_Week_14.xlsx"},
		"13": {Name: "13WeekReport_Week_13.xlsx"},
	}
	rows := []Row{
		{Href: "/13WeekReport_Week_14.xlsx", Label: "Week 14", Typ: "Weekly"},
		{Href: "/13WeekReport_Week_13.xlsx", Label: "Week 13", Typ: "Weekly"},
	}

	result := &Result{}
	done, err := f.processRows(context.Background(), rows, archived, result)
	require.NoError(t, err)

	assert.True(t, done)
	assert.Empty(t, result.Downloaded)
	assert.Equal(t, 2, result.Skipped)
}
