// Command extractor batch-extracts local weekly workbooks into CSV or JSON
// files. It is the offline counterpart of the upload pipeline: point it at a
// directory of 13-week reports and it writes one extract per workbook, plus
// optional cross-week summary and findings files.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"staffpulse/internal/config"
	"staffpulse/internal/exporter"
	"staffpulse/internal/extraction"
	"staffpulse/internal/files"
	"staffpulse/internal/infrastructure"
	"staffpulse/internal/insights"
	"staffpulse/internal/validation"
	"staffpulse/pkg/contracts"
	"staffpulse/pkg/contracts/domain"
)

func main() {
	inDir := flag.String("in", "", "input directory for .xlsx workbooks (defaults to data/uploads relative to executable)")
	outDir := flag.String("out", "", "output directory for extracts (defaults to data/exports relative to executable)")
	format := flag.String("format", "csv", "output format: csv | json")
	workers := flag.Int("workers", 4, "number of workbooks extracted concurrently")
	summary := flag.Bool("summary", true, "write the cross-week summary CSV")
	sheets := flag.Bool("sheets", false, "also write one CSV per sheet next to each extract")
	findings := flag.Bool("findings", false, "also analyze each report and write findings CSVs")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	if *format != "csv" && *format != "json" {
		fmt.Printf("Error: unknown format %q (want csv or json)\n", *format)
		os.Exit(1)
	}
	if *workers < 1 {
		*workers = 1
	}

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if *inDir == "" {
		*inDir = paths.UploadsDir
	}
	if *outDir == "" {
		*outDir = paths.ExportsDir
	}

	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = &config.Config{
			Logging: config.LoggingConfig{
				Level:       "info",
				Format:      "json",
				Output:      "both",
				FilePath:    paths.GetLogPath("extractor.log"),
				Development: false,
			},
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	logger.Info("Starting batch extraction",
		slog.String("input_dir", *inDir),
		slog.String("output_dir", *outDir),
		slog.String("format", *format),
		slog.Int("workers", *workers))

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputDirectory(*inDir, "*"+config.AllowedWorkbookExt); err != nil {
		logger.Error("Input directory check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := validator.ValidateOutputDirectory(*outDir); err != nil {
		logger.Error("Output directory check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The exporter resolves everything through Paths. The well-known output
	// files are absolute paths fixed at startup, so redirecting -out means
	// rewriting them alongside the exports directory.
	paths.ExportsDir = *outDir
	paths.WeeklySummaryCSV = filepath.Join(*outDir, "weekly_summary.csv")
	paths.WeeklySummaryJSON = filepath.Join(*outDir, "weekly_summary.json")
	paths.FindingsCSV = filepath.Join(*outDir, "findings.csv")

	weekly, err := files.NewDiscovery(*inDir).FindWeeklyReports(".")
	if err != nil {
		logger.Error("Failed to scan input directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	weeks := sortedWeeks(weekly)
	logger.Info("Weekly workbooks discovered", slog.Int("count", len(weeks)))
	fmt.Printf("Found %d weekly workbooks\n", len(weeks))

	if len(weeks) == 0 {
		logger.Warn("No weekly workbooks found in input directory",
			slog.String("input_dir", *inDir),
			slog.String("pattern", "*Week*.xlsx"))
		fmt.Println("Extraction complete: 0 files")
		return
	}

	extractor := extraction.New(logger)
	exp := exporter.NewReportExporter(paths)

	var (
		mu        sync.Mutex
		extracted []*domain.ParsedReport
		failed    int
	)

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workers)

	for i, week := range weeks {
		fileInfo := weekly[week]
		seq := i + 1

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			fmt.Printf("Extracting workbook %d of %d: %s\n", seq, len(weeks), fileInfo.Name)
			logger.Info("Extracting workbook",
				slog.Int("current", seq),
				slog.Int("total", len(weeks)),
				slog.String("filename", fileInfo.Name))

			data, err := os.ReadFile(fileInfo.Path)
			if err != nil {
				logger.Error("Error reading workbook",
					slog.String("filename", fileInfo.Name),
					slog.String("error", err.Error()))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			report, err := extractor.Extract(data, fileInfo.Name)
			if err != nil {
				// A bad workbook should not sink the batch.
				logger.Error("Error extracting workbook",
					slog.String("filename", fileInfo.Name),
					slog.String("error", err.Error()))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			if err := writeExtract(exp, *outDir, *format, report); err != nil {
				logger.Error("Error writing extract",
					slog.String("filename", fileInfo.Name),
					slog.String("error", err.Error()))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			if *sheets {
				if err := exp.ExportSheetCSVs(report); err != nil {
					logger.Error("Error writing sheet CSVs",
						slog.String("filename", fileInfo.Name),
						slog.String("error", err.Error()))
					mu.Lock()
					failed++
					mu.Unlock()
					return nil
				}
			}

			logger.Info("Workbook extracted",
				slog.String("filename", fileInfo.Name),
				slog.String("week", report.WeekNumber),
				slog.Int("sheets", len(report.Sheets)))

			mu.Lock()
			extracted = append(extracted, report)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Batch extraction aborted", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Extraction order follows worker scheduling; summaries want week order.
	sort.Slice(extracted, func(i, j int) bool {
		return weekLess(extracted[i].WeekNumber, extracted[j].WeekNumber)
	})

	if *summary && len(extracted) > 0 {
		if err := exp.ExportWeeklySummary(extracted); err != nil {
			logger.Error("Failed to write weekly summary", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Weekly summary written", slog.String("path", paths.GetWeeklySummaryCSVPath()))
	}

	if *findings && len(extracted) > 0 {
		fw, err := exp.NewFindingsWriter()
		if err != nil {
			logger.Error("Failed to open findings CSV", slog.String("error", err.Error()))
			os.Exit(1)
		}
		for _, report := range extracted {
			sheetInsights := make([]domain.SheetInsights, 0, len(report.Sheets))
			for _, sheet := range report.Sheets {
				sheetInsights = append(sheetInsights, insights.Analyze(sheet))
			}
			if err := fw.Append(report, sheetInsights); err != nil {
				logger.Error("Failed to write findings",
					slog.String("filename", report.FileName),
					slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
		if err := fw.Close(); err != nil {
			logger.Error("Failed to finish findings CSV", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Findings written", slog.Int("reports", len(extracted)))
	}

	logger.Info("Batch extraction finished",
		slog.Int("extracted", len(extracted)),
		slog.Int("failed", failed))
	fmt.Printf("Extraction complete: %d files (%d failed)\n", len(extracted), failed)

	if failed > 0 && len(extracted) == 0 {
		os.Exit(1)
	}
}

// writeExtract writes one report in the requested format.
func writeExtract(exp *exporter.ReportExporter, outDir, format string, report *domain.ParsedReport) error {
	if format == "csv" {
		_, err := exp.ExportReport(report)
		return err
	}

	name := strings.TrimSuffix(exp.ExportFileName(report), ".csv") + ".json"
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(filepath.Join(outDir, name), data, 0o644)
}

// sortedWeeks orders the discovered week numbers ascending.
func sortedWeeks(weekly map[string]files.FileInfo) []string {
	weeks := make([]string, 0, len(weekly))
	for week := range weekly {
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weekLess(weeks[i], weeks[j]) })
	return weeks
}

// weekLess compares week labels numerically, falling back to string order
// for labels that do not parse.
func weekLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
