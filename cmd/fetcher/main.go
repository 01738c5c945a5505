// Command fetcher downloads weekly staffing workbooks from the reporting
// portal into the uploads archive. It skips weeks that are already archived,
// so repeated runs only pull new reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"staffpulse/internal/config"
	"staffpulse/internal/fetch"
	"staffpulse/internal/files"
	"staffpulse/internal/infrastructure"
	"staffpulse/pkg/contracts"
)

func main() {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC RECOVERED: %v\n", r)
			fmt.Printf("Stack trace:\n%s\n", debug.Stack())
			if logger != nil {
				logger.Error("Fetcher panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	portalURL := flag.String("portal", fetch.DefaultPortalURL, "portal listing page to enumerate")
	baseURL := flag.String("base-url", "", "base URL for relative download links (defaults to the portal origin)")
	outDir := flag.String("out", "", "directory to save workbooks (defaults to data/uploads relative to executable)")
	headless := flag.Bool("headless", true, "run browser headless")
	limit := flag.Int("limit", 0, "maximum downloads per run (0 = unlimited)")
	keepDays := flag.Int("keep-days", 0, "prune archived workbooks older than this many days after the run (0 = keep everything)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	paths, err := config.GetPaths()
	if err != nil {
		fmt.Printf("Error: Failed to initialize paths: %v\n", err)
		os.Exit(1)
	}

	if *outDir == "" {
		*outDir = paths.UploadsDir
	}

	if err := paths.EnsureDirectories(); err != nil {
		fmt.Printf("Error: Failed to create required directories: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Warning: Failed to load config, using defaults: %v\n", err)
		cfg = &config.Config{
			Logging: config.LoggingConfig{
				Level:       "info",
				Format:      "json",
				Output:      "both",
				FilePath:    paths.GetLogPath("fetcher.log"),
				Development: false,
			},
		}
	}

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: Failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}

	logger.Info("Weekly report fetcher starting",
		slog.String("portal", *portalURL),
		slog.String("output_dir", *outDir),
		slog.Bool("headless", *headless),
		slog.Int("limit", *limit))

	// Background resource monitor for long portal sessions.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			logger.Info("Resource usage",
				slog.Uint64("memory_alloc_mb", m.Alloc/1024/1024),
				slog.Uint64("memory_sys_mb", m.Sys/1024/1024),
				slog.Int("goroutines", runtime.NumGoroutine()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := fetch.New(fetch.Config{
		PortalURL: *portalURL,
		BaseURL:   *baseURL,
		OutDir:    *outDir,
		Headless:  *headless,
		Limit:     *limit,
	}, logger)

	result, err := fetcher.Run(ctx)
	if err != nil {
		logger.Error("Fetch run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Fetcher finished",
		slog.Int("downloaded", len(result.Downloaded)),
		slog.Int("skipped", result.Skipped),
		slog.Int("pages", result.Pages))

	for _, file := range result.Downloaded {
		logger.Info("Downloaded", slog.String("file", file))
	}

	if *keepDays > 0 {
		// The archive prunes the uploads directory, so point it at -out.
		archivePaths := *paths
		archivePaths.UploadsDir = *outDir
		archive := files.NewArchive(&archivePaths, logger)

		removed, err := archive.PruneOlderThan(time.Duration(*keepDays) * 24 * time.Hour)
		if err != nil {
			logger.Warn("Archive prune failed", slog.String("error", err.Error()))
		} else if removed > 0 {
			logger.Info("Old workbooks pruned",
				slog.Int("removed", removed),
				slog.Int("keep_days", *keepDays))
		}
	}
}
