// Command content enriches one project's fused canonical events with a
// description, photos, and a polished multilingual narrative, reusing a
// prior run's record whenever it is still fresh.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/boogieLing/tsugie/internal/adapter/httpadapter"
	"github.com/boogieLing/tsugie/internal/config"
	"github.com/boogieLing/tsugie/internal/content"
	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/fusion"
	"github.com/boogieLing/tsugie/internal/observability"
	"github.com/boogieLing/tsugie/internal/pipeline"
	"github.com/boogieLing/tsugie/internal/resolver"
	"github.com/boogieLing/tsugie/internal/runstate"
)

func main() {
	project := flag.String("project", "all", "project category to enrich: hanabi, omatsuri, or all")
	force := flag.Bool("force", false, "ignore the freshness cache and re-fetch every event")
	downloadImages := flag.Bool("download-images", true, "download and store source images alongside the description")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	categories, err := resolveCategories(*project)
	if err != nil {
		logger.Error("invalid -project", "error", err)
		os.Exit(1)
	}

	polisher, polishBackend := buildPolisher(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.ReadinessCheckerFunc(func(context.Context) error {
		return nil
	}), logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	metrics.PipelineRunning.Set(1)
	var runErr error
	for _, category := range categories {
		if err := runContentForProject(ctx, cfg, logger, metrics, category, polisher, polishBackend, *force, *downloadImages); err != nil {
			logger.Error("content run failed", "project", category, "error", err)
			runErr = err
		}
	}
	metrics.PipelineRunning.Set(0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
}

// buildPolisher resolves PolishBackend's "auto" selection into a
// concrete Polisher, preferring the remote chat backend whenever an API
// key is configured and falling back to the local codex subprocess
// otherwise.
func buildPolisher(cfg *config.Config) (content.Polisher, string) {
	backend := cfg.PolishBackend
	if backend == "auto" {
		if cfg.PolishAPIKey != "" {
			backend = "openai"
		} else {
			backend = "codex"
		}
	}
	switch backend {
	case "openai":
		return content.NewRemoteChatPolisher(cfg.PolishAPIKey, cfg.PolishAPIBase, cfg.PolishModel), backend
	case "codex":
		return content.NewLocalSubprocessPolisher(cfg.CodexBinaryPath), backend
	default:
		return content.NoopPolisher{}, "none"
	}
}

func runContentForProject(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, category string, polisher content.Polisher, polishBackend string, force, downloadImages bool) error {
	paths, ok := cfg.Projects[category]
	if !ok {
		return fmt.Errorf("unknown project category %q", category)
	}
	stageLogger := logger.With("project", category)
	stage := pipeline.Stage{Name: "content", Logger: stageLogger, Duration: metrics.ContentFetchDuration}

	metaPath := filepath.Join(paths.Root, "latest_run.json")
	meta, err := runstate.Load(metaPath)
	if err != nil {
		return fmt.Errorf("load latest_run.json: %w", err)
	}
	if meta.FusedRunID == "" {
		return fmt.Errorf("no fused run recorded for project %q; run cmd/fusion first", category)
	}

	fusedPath := filepath.Join(paths.FusedDir, meta.FusedRunID, "events_fused.jsonl")
	events, err := readFusedEvents(fusedPath)
	if err != nil {
		return fmt.Errorf("load fused events: %w", err)
	}

	previous, err := loadPreviousContentIndex(paths.ContentDir, meta.ContentRunID)
	if err != nil {
		return fmt.Errorf("load previous content run: %w", err)
	}

	runID := uuid.New().String()
	runDir := filepath.Join(paths.ContentDir, runID)
	imageRoot := filepath.Join(runDir, "images")

	fetcher := content.NewFetcher(cfg.ContentTimeout, cfg.ContentQPS, cfg.ContentUserAgent, cfg.ContentMaxRetries)
	downloader := content.NewImageDownloader(&http.Client{Timeout: cfg.ContentTimeout}, cfg.ContentQPS, 10*1024*1024)

	opts := content.Options{
		Category:       category,
		FusedRunID:     meta.FusedRunID,
		MinRefreshDays: int(cfg.ContentStaleAfter.Hours() / 24),
		Force:          force,
		MaxSourceURLs:  cfg.ContentMaxSourceURLs,
		MaxImages:      6,
		MaxDescChars:   1800,
		MaxImageBytes:  10 * 1024 * 1024,
		DownloadImages: downloadImages,
		ImageAssetRoot: imageRoot,
		Now:            domain.Now(),
	}

	var records []domain.ContentRecord
	var stats content.Stats
	err = stage.Run(ctx, func(ctx context.Context) error {
		records, stats = content.Run(ctx, events, previous, fetcher, downloader, polisher, opts)
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	if err := writeContentOutputs(runDir, records, stats, runID, opts, polishBackend); err != nil {
		return fmt.Errorf("write content outputs: %w", err)
	}
	if err := mirrorLatest(paths.ContentDir, runDir); err != nil {
		return fmt.Errorf("mirror latest content run: %w", err)
	}

	meta = meta.WithContentRun(runID, domain.Now().UTC().Format(time.RFC3339))
	if err := runstate.Save(metaPath, meta); err != nil {
		return fmt.Errorf("save latest_run.json: %w", err)
	}

	for _, outcome := range []struct {
		label string
		count int
	}{
		{"ok", stats.OK}, {"partial", stats.Partial}, {"empty", stats.Empty}, {"cached", stats.Cached},
	} {
		metrics.ContentFetchTotal.WithLabelValues(outcome.label).Add(float64(outcome.count))
	}

	stageLogger.Info("content run complete",
		"run_id", runID, "total", stats.Total, "ok", stats.OK, "cached", stats.Cached,
		"with_description", stats.WithDescription, "with_images", stats.WithImages,
	)
	return nil
}

func readFusedEvents(path string) ([]domain.CanonicalEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fusion.ReadCanonicalEventsJSONL(f)
}

// loadPreviousContentIndex builds the tri-key resolver index from the
// project's previous content run, if one is recorded. A project's
// first-ever run has no prior records to reuse, which is not an error.
func loadPreviousContentIndex(contentDir, previousRunID string) (*resolver.Index[*domain.ContentRecord], error) {
	idx := resolver.NewIndex[*domain.ContentRecord]()
	if previousRunID == "" {
		return idx, nil
	}
	path := filepath.Join(contentDir, previousRunID, "events_content.jsonl")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	defer f.Close()
	records, err := content.LoadContentRecords(f)
	if err != nil {
		return nil, err
	}
	for i := range records {
		content.PutRecord(idx, &records[i])
	}
	return idx, nil
}

func writeContentOutputs(runDir string, records []domain.ContentRecord, stats content.Stats, runID string, opts content.Options, polishBackend string) error {
	writers := []struct {
		name string
		fn   func(*os.File) error
	}{
		{"events_content.jsonl", func(f *os.File) error { return content.WriteContentRecordsJSONL(f, records) }},
		{"events_content.csv", func(f *os.File) error { return content.WriteContentRecordsCSV(f, records) }},
		{"content_summary.json", func(f *os.File) error {
			return content.WriteSummary(f, content.NewSummary(runID, opts.Now, stats, opts, polishBackend))
		}},
	}
	for _, w := range writers {
		if err := writeFile(filepath.Join(runDir, w.name), w.fn); err != nil {
			return fmt.Errorf("%s: %w", w.name, err)
		}
	}
	return nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

// mirrorLatest copies this run's three output files into a sibling
// latest/ directory, so a downstream consumer that only wants "the
// newest content run" never has to resolve latest_run.json itself.
func mirrorLatest(contentDir, runDir string) error {
	latestDir := filepath.Join(contentDir, "latest")
	if err := os.MkdirAll(latestDir, 0o755); err != nil {
		return err
	}
	for _, name := range []string{"events_content.jsonl", "events_content.csv", "content_summary.json"} {
		data, err := os.ReadFile(filepath.Join(runDir, name))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(latestDir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func resolveCategories(project string) ([]string, error) {
	if project == "all" {
		return config.Categories, nil
	}
	for _, c := range config.Categories {
		if c == project {
			return []string{project}, nil
		}
	}
	return nil, fmt.Errorf("unknown project %q (expected one of %v or \"all\")", project, config.Categories)
}
