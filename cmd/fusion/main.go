// Command fusion merges one project's raw per-site JSONL records into
// canonical events, resolving coordinates and writing the fused
// JSONL/CSV pair plus the five diagnostic logs under a fresh run
// directory.
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
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/boogieLing/tsugie/internal/adapter/httpadapter"
	"github.com/boogieLing/tsugie/internal/config"
	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/fusion"
	"github.com/boogieLing/tsugie/internal/geocoder"
	"github.com/boogieLing/tsugie/internal/observability"
	"github.com/boogieLing/tsugie/internal/pipeline"
	"github.com/boogieLing/tsugie/internal/runstate"
)

func main() {
	project := flag.String("project", "all", "project category to fuse: hanabi, omatsuri, or all")
	targetYear := flag.String("target-year", "", "drop rows whose extracted event year does not match (requires -strict-year)")
	strictYear := flag.Bool("strict-year", false, "enable year filtering using -target-year")
	runID := flag.String("run-id", "", "override the generated run id")
	noGeocode := flag.Bool("no-geocode", false, "disable network geocoding for this run")
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

	var geo domain.Geocoder
	var cache *geocoder.Cache
	if !*noGeocode && cfg.GeocoderBaseURL != "" {
		cache, err = geocoder.NewCache(cfg.GeocoderCachePath)
		if err != nil {
			logger.Error("failed to load geocoder cache", "error", err)
			os.Exit(1)
		}
		geo = geocoder.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderTimeout, cfg.GeocoderQPS, cache, logger)
		metrics.GeocodeEnabled.Set(1)
	} else {
		metrics.GeocodeEnabled.Set(0)
	}

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
		if err := runFusionForProject(ctx, cfg, logger, metrics, category, geo, fusionRunOptions{
			runID:      *runID,
			targetYear: *targetYear,
			strictYear: *strictYear,
		}); err != nil {
			logger.Error("fusion run failed", "project", category, "error", err)
			runErr = err
		}
	}
	metrics.PipelineRunning.Set(0)

	if cache != nil {
		if err := cache.Save(); err != nil {
			logger.Error("failed to save geocoder cache", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
}

type fusionRunOptions struct {
	runID      string
	targetYear string
	strictYear bool
}

// runFusionForProject runs the whole fuse-then-persist cycle for one
// project category: load raw rows and the alias map, fuse, write the
// fused JSONL/CSV pair and the five diagnostic logs under a fresh run
// directory, and advance latest_run.json.
func runFusionForProject(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, category string, geo domain.Geocoder, runOpts fusionRunOptions) error {
	paths, ok := cfg.Projects[category]
	if !ok {
		return fmt.Errorf("unknown project category %q", category)
	}
	stageLogger := logger.With("project", category)
	stage := pipeline.Stage{Name: "fusion", Logger: stageLogger, Duration: metrics.FusionRunDuration}

	sites, err := discoverSites(paths.RawDir)
	if err != nil {
		return fmt.Errorf("discover raw sites: %w", err)
	}
	rows, err := fusion.LoadRawRecords(paths.RawDir, sites)
	if err != nil {
		return fmt.Errorf("load raw records: %w", err)
	}

	aliases, err := fusion.LoadAliasMap(filepath.Join(paths.Root, "aliases.csv"))
	if err != nil {
		return fmt.Errorf("load alias map: %w", err)
	}

	runID := runOpts.runID
	if runID == "" {
		runID = uuid.New().String()
	}

	var result fusion.Result
	err = stage.Run(ctx, func(ctx context.Context) error {
		r, err := fusion.Fuse(ctx, rows, fusion.Options{
			RunID:      runID,
			Aliases:    aliases,
			Geocoder:   geo,
			TargetYear: runOpts.targetYear,
			StrictYear: runOpts.strictYear,
		})
		result = r
		return err
	})
	if err != nil {
		return err
	}

	runDir := filepath.Join(paths.FusedDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	if err := writeFusionOutputs(runDir, result); err != nil {
		return fmt.Errorf("write fusion outputs: %w", err)
	}

	metaPath := filepath.Join(paths.Root, "latest_run.json")
	meta, err := runstate.Load(metaPath)
	if err != nil {
		return fmt.Errorf("load latest_run.json: %w", err)
	}
	meta = meta.WithFusedRun(runID, domain.Now().UTC().Format(time.RFC3339))
	if err := runstate.Save(metaPath, meta); err != nil {
		return fmt.Errorf("save latest_run.json: %w", err)
	}

	metrics.FusionGroupsTotal.Add(float64(result.Stats.GroupCount))
	metrics.FusionRecordsTotal.WithLabelValues("merged").Add(float64(result.Stats.InputRowsAfterYearFilter - result.Stats.GroupCount))
	metrics.FusionRecordsTotal.WithLabelValues("kept").Add(float64(result.Stats.GroupCount))
	metrics.FusionRecordsTotal.WithLabelValues("dropped").Add(float64(result.Stats.YearDroppedRows))

	stageLogger.Info("fusion run complete",
		"run_id", runID,
		"input_rows", result.Stats.InputRowsRaw,
		"groups", result.Stats.GroupCount,
		"geocode_resolved", result.Stats.GeocodeResolved,
		"incomplete", result.Stats.IncompleteCount,
	)
	return nil
}

func writeFusionOutputs(runDir string, result fusion.Result) error {
	writers := []struct {
		name string
		fn   func(*os.File) error
	}{
		{"events_fused.jsonl", func(f *os.File) error { return fusion.WriteCanonicalEventsJSONL(f, result.Events) }},
		{"events_fused.csv", func(f *os.File) error { return fusion.WriteCanonicalEventsCSV(f, result.Events) }},
		{"dedup_log.csv", func(f *os.File) error { return fusion.WriteDedupLog(f, result.DedupLog) }},
		{"geocode_log.csv", func(f *os.File) error { return fusion.WriteGeocodeLog(f, result.GeocodeLog) }},
		{"geo_overlap_repair_log.csv", func(f *os.File) error { return fusion.WriteOverlapRepairLog(f, result.OverlapRepairLog) }},
		{"incomplete_events.csv", func(f *os.File) error { return fusion.WriteIncompleteLog(f, result.IncompleteLog) }},
		{"name_alias_candidates.csv", func(f *os.File) error { return fusion.WriteAliasCandidatesLog(f, result.AliasCandidates) }},
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

// discoverSites lists every "<site>.jsonl" file under rawDir, deriving
// the site id list fusion.LoadRawRecords expects from whichever site
// crawlers actually produced output this run, rather than hardcoding a
// fixed roster per project.
func discoverSites(rawDir string) ([]string, error) {
	entries, err := os.ReadDir(rawDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sites []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".jsonl") {
			sites = append(sites, strings.TrimSuffix(name, ".jsonl"))
		}
	}
	return sites, nil
}

// resolveCategories expands "-project all" into the fixed category
// list and validates a single explicit category name.
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
