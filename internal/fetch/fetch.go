// Package fetch downloads weekly staffing workbooks from the reporting
// portal. A headless browser drives the portal's listing pages because the
// file table is rendered client side; the files themselves come down over
// plain HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	apperrors "staffpulse/internal/errors"
	"staffpulse/internal/files"
	"staffpulse/internal/validation"
)

// DefaultPortalURL is the portal listing page enumerated for workbooks.
const DefaultPortalURL = "https://portal.staffpulse.example.com/reports/weekly"

// rowTypeWeekly is the listing row type carrying a 13-week report.
const rowTypeWeekly = "weekly"

// Config controls one fetch run.
type Config struct {
	// PortalURL is the listing page to enumerate.
	PortalURL string

	// BaseURL prefixes relative download links. Defaults to the portal's
	// scheme and host when empty.
	BaseURL string

	// OutDir receives the downloaded workbooks.
	OutDir string

	// Headless hides the browser window.
	Headless bool

	// Limit caps downloads per run. Zero means no cap.
	Limit int

	// Delay is the pause between downloads. Zero means the default 500ms.
	Delay time.Duration
}

// Row is one listing entry scraped from the portal table.
type Row struct {
	Href  string `json:"href"`
	Label string `json:"label"`
	Typ   string `json:"typ"`
}

// Download is one planned workbook download.
type Download struct {
	URL      string
	Week     string
	FileName string
}

// Result summarizes a fetch run.
type Result struct {
	Downloaded []string
	Skipped    int
	Pages      int
}

// Fetcher drives the portal and downloads new weekly workbooks.
type Fetcher struct {
	cfg       Config
	client    *http.Client
	logger    *slog.Logger
	validator *validation.FileValidator
}

// New creates a fetcher. A nil logger falls back to slog.Default.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PortalURL == "" {
		cfg.PortalURL = DefaultPortalURL
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}

	return &Fetcher{
		cfg:       cfg,
		client:    &http.Client{Timeout: 2 * time.Minute},
		logger:    logger.With(slog.String("component", "fetch")),
		validator: validation.NewFileValidator(logger),
	}
}

// Run enumerates the portal listing and downloads every weekly workbook not
// already archived in OutDir. It returns early when the context is cancelled
// or the configured download limit is reached.
func (f *Fetcher) Run(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(f.cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	archived, err := f.archivedWeeks()
	if err != nil {
		return nil, fmt.Errorf("scan archived weeks: %w", err)
	}
	f.logger.InfoContext(ctx, "Scanned archive",
		slog.Int("archived_weeks", len(archived)),
		slog.String("out_dir", f.cfg.OutDir))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	result := &Result{}
	if err := chromedp.Run(browserCtx, f.tasks(archived, result)); err != nil {
		return result, fmt.Errorf("portal fetch failed: %w", err)
	}

	f.logger.InfoContext(ctx, "Fetch run complete",
		slog.Int("downloaded", len(result.Downloaded)),
		slog.Int("skipped", result.Skipped),
		slog.Int("pages", result.Pages))
	return result, nil
}

// tasks builds the chromedp task list: open the listing, then walk its pages
// until no next link remains or the run has what it needs.
func (f *Fetcher) tasks(archived map[string]files.FileInfo, result *Result) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Navigate(f.cfg.PortalURL),
		chromedp.WaitVisible(`#reports`, chromedp.ByID),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for {
				result.Pages++
				f.logger.Info("Scanning listing page", slog.Int("page", result.Pages))

				rows, err := f.scrapeRows(ctx)
				if err != nil {
					return err
				}

				done, err := f.processRows(ctx, rows, archived, result)
				if err != nil {
					return err
				}
				if done {
					return nil
				}

				var nextHref string
				var ok bool
				if err := chromedp.AttributeValue(`#reports a[rel='next']`, "href", &nextHref, &ok, chromedp.ByQuery).Do(ctx); err != nil || !ok {
					return nil
				}
				if err := chromedp.Click(`#reports a[rel='next']`, chromedp.ByQuery).Do(ctx); err != nil {
					// No clickable next link means the listing is done.
					return nil
				}
				if err := chromedp.WaitVisible(`#reports`, chromedp.ByID).Do(ctx); err != nil {
					return err
				}
			}
		}),
	}
}

// scrapeRows pulls the file table rows out of the current listing page.
func (f *Fetcher) scrapeRows(ctx context.Context) ([]Row, error) {
	const js = `Array.from(document.querySelectorAll('#reports tbody tr')).map(tr => {
		const link = tr.querySelector('td.file-name a');
		if (!link) return null;
		const label = tr.querySelector('td.file-name');
		const typ = tr.querySelector('td.file-type');
		return {
			href: link.getAttribute('href'),
			label: label ? label.innerText.trim() : '',
			typ: typ ? typ.innerText.trim() : ''
		};
	}).filter(Boolean)`

	var rows []Row
	if err := chromedp.Evaluate(js, &rows).Do(ctx); err != nil {
		return nil, fmt.Errorf("evaluate listing rows: %w", err)
	}
	return rows, nil
}

// processRows downloads the new workbooks on one page. It reports done when
// the download limit is hit or the page held only archived weeks, which on a
// newest-first listing means everything further back is archived too.
func (f *Fetcher) processRows(ctx context.Context, rows []Row, archived map[string]files.FileInfo, result *Result) (bool, error) {
	downloads, skipped := Plan(rows, archived)
	result.Skipped += skipped

	for _, dl := range downloads {
		if f.cfg.Limit > 0 && len(result.Downloaded) >= f.cfg.Limit {
			f.logger.Info("Download limit reached", slog.Int("limit", f.cfg.Limit))
			return true, nil
		}

		f.logger.Info("Downloading workbook",
			slog.String("week", dl.Week),
			slog.String("file", dl.FileName))

		dest := filepath.Join(f.cfg.OutDir, dl.FileName)
		if err := f.download(ctx, f.resolveURL(dl.URL), dest); err != nil {
			f.logger.Error("Download failed",
				slog.String("file", dl.FileName),
				slog.String("error", err.Error()))
			continue
		}

		result.Downloaded = append(result.Downloaded, dest)
		archived[dl.Week] = files.FileInfo{Path: dest, Name: dl.FileName}

		// Pace the portal between downloads.
		timer := time.NewTimer(f.cfg.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return true, ctx.Err()
		}
	}

	if len(downloads) == 0 && skipped > 0 {
		f.logger.Info("Page held only archived weeks, stopping",
			slog.Int("skipped", skipped))
		return true, nil
	}
	return false, nil
}

// Plan filters listing rows down to the weekly workbooks not yet archived.
// Rows are kept in listing order; duplicate weeks keep the first occurrence.
func Plan(rows []Row, archived map[string]files.FileInfo) (downloads []Download, skipped int) {
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		if row.Typ != "" && !strings.EqualFold(row.Typ, rowTypeWeekly) {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(row.Href), ".xlsx") {
			continue
		}

		week := files.WeekNumberFromName(row.Label)
		if week == "" {
			week = files.WeekNumberFromName(filepath.Base(row.Href))
		}
		if week == "" {
			continue
		}
		if seen[week] {
			continue
		}
		seen[week] = true

		if _, ok := archived[week]; ok {
			skipped++
			continue
		}

		downloads = append(downloads, Download{
			URL:      row.Href,
			Week:     week,
			FileName: CanonicalFileName(week),
		})
	}

	return downloads, skipped
}

// CanonicalFileName names a downloaded workbook so the archive and extractor
// can parse the week back out.
func CanonicalFileName(week string) string {
	return fmt.Sprintf("13WeekReport_Week_%s.xlsx", week)
}

// archivedWeeks maps the weeks already present in the output directory. Run
// creates the directory first, so a read failure here is a real error.
func (f *Fetcher) archivedWeeks() (map[string]files.FileInfo, error) {
	return files.NewDiscovery(f.cfg.OutDir).FindWeeklyReports(".")
}

// resolveURL prefixes relative hrefs with the configured base URL, falling
// back to the portal URL's origin.
func (f *Fetcher) resolveURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	base := f.cfg.BaseURL
	if base == "" {
		base = originOf(f.cfg.PortalURL)
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}

// originOf reduces a URL to scheme://host.
func originOf(rawURL string) string {
	rest := rawURL
	scheme := ""
	if idx := strings.Index(rawURL, "://"); idx >= 0 {
		scheme = rawURL[:idx+3]
		rest = rawURL[idx+3:]
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		rest = rest[:idx]
	}
	return scheme + rest
}

// downloadAttempts bounds tries for one workbook. The portal drops
// connections under load, so transient failures get a second and third try.
const downloadAttempts = 3

// download fetches one workbook to dest, retrying transient failures with a
// growing pause between attempts.
func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	var err error
	for attempt := 1; attempt <= downloadAttempts; attempt++ {
		if attempt > 1 {
			f.logger.Warn("Retrying download",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))

			timer := time.NewTimer(time.Duration(attempt-1) * f.cfg.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		err = f.downloadOnce(ctx, url, dest)
		if err == nil || !apperrors.IsRetryable(err) {
			return err
		}
	}
	return err
}

// downloadOnce fetches one workbook to dest. Partial files are removed so a
// failed download never masquerades as an archived week, and a retry starts
// clean.
func (f *Fetcher) downloadOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewNetworkError(fmt.Sprintf("download %s", url), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperrors.NewNetworkError(fmt.Sprintf("download %s", url),
			fmt.Errorf("bad status: %s", resp.Status))
	default:
		return apperrors.NewExternalError(fmt.Sprintf("download %s", url),
			fmt.Errorf("bad status: %s", resp.Status))
	}

	out, err := os.Create(dest)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create file %s", dest), err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		// A failed copy is usually the portal dropping the connection
		// partway through the body.
		return apperrors.NewNetworkError(fmt.Sprintf("save %s", url), err)
	}

	// Portals answer expired sessions with a 200 login page. The signature
	// check catches that before the file poses as an archived week.
	if err := f.validator.ValidateWorkbookFile(dest); err != nil {
		os.Remove(dest)
		return apperrors.NewExternalError(fmt.Sprintf("download %s", url), err)
	}

	f.logger.Debug("Workbook downloaded",
		slog.String("file", filepath.Base(dest)),
		slog.Int64("size_bytes", written))
	return nil
}
