// Command score assigns a heat score and a surprise score to every
// fused canonical event, calling a remote chat-completion model in JSON
// mode and falling back to a deterministic heuristic whenever the model
// is unavailable or the call budget runs out.
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
	"github.com/boogieLing/tsugie/internal/scoring"
)

func main() {
	project := flag.String("project", "all", "project category to score: hanabi, omatsuri, or all")
	failedOnly := flag.Bool("failed-only", false, "only re-score events whose previous score was not ok")
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

	scorer, scoreBackend, err := buildScorer(cfg)
	if err != nil {
		logger.Error("failed to build scorer", "error", err)
		os.Exit(1)
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
		if err := runScoreForProject(ctx, cfg, logger, metrics, category, scorer, scoreBackend, *failedOnly); err != nil {
			logger.Error("score run failed", "project", category, "error", err)
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

// buildScorer resolves ScoreBackend's "auto" selection into a concrete
// AIScorer, preferring the remote backend whenever an API key is
// configured and falling back to the heuristic-only path otherwise.
func buildScorer(cfg *config.Config) (scoring.AIScorer, string, error) {
	backend := cfg.ScoreBackend
	if backend == "auto" {
		if cfg.ScoreAPIKey != "" {
			backend = "openai"
		} else {
			backend = "none"
		}
	}
	switch backend {
	case "openai":
		promptTemplate, err := loadPromptTemplate(cfg.ScorePromptTemplatePath)
		if err != nil {
			return nil, "", fmt.Errorf("load score prompt template: %w", err)
		}
		return scoring.NewRemoteScorer(cfg.ScoreAPIKey, cfg.ScoreAPIBase, cfg.ScoreModel, promptTemplate), backend, nil
	default:
		return nil, "none", nil
	}
}

func loadPromptTemplate(path string) (string, error) {
	if path == "" {
		return defaultScorePromptTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

const defaultScorePromptTemplate = `Rate this event's expected popularity ("initial_heat_score") and how surprising it would be to a local resident ("surprise_score"), both 0-100 integers, with a reason under 80 characters.
Respond with a single JSON object: {"initial_heat_score": <int>, "surprise_score": <int>, "reason": "<string>"}.
Event: {输入JSON}`

func runScoreForProject(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, category string, scorer scoring.AIScorer, scoreBackend string, failedOnly bool) error {
	paths, ok := cfg.Projects[category]
	if !ok {
		return fmt.Errorf("unknown project category %q", category)
	}
	stageLogger := logger.With("project", category)
	stage := pipeline.Stage{Name: "score", Logger: stageLogger, Duration: metrics.ScoreAPIDuration}

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

	contentIndex, err := loadContentIndex(paths.ContentDir, meta.ContentRunID)
	if err != nil {
		return fmt.Errorf("load content run: %w", err)
	}

	previousIndex, err := loadPreviousScoreIndex(paths.ScoreDir, meta.ScoreRunID)
	if err != nil {
		return fmt.Errorf("load previous score run: %w", err)
	}

	runID := uuid.New().String()
	runDir := filepath.Join(paths.ScoreDir, runID)

	opts := scoring.Options{
		Category:            category,
		PrioritizeNearStart:  cfg.ScorePrioritizeNearStart,
		FailedOnly:           failedOnly,
		MaxEvents:            cfg.ScoreMaxEvents,
		QPS:                  cfg.ScoreQPS,
		Now:                  domain.Now(),
	}

	var records []domain.ScoreRecord
	var stats scoring.Stats
	err = stage.Run(ctx, func(ctx context.Context) error {
		records, stats = scoring.Run(ctx, events, contentIndex, previousIndex, scorer, opts)
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	if err := writeScoreOutputs(runDir, records, stats, runID, meta.ContentRunID, opts, scoreBackend); err != nil {
		return fmt.Errorf("write score outputs: %w", err)
	}
	if err := mirrorLatestScore(paths.ScoreDir, runDir); err != nil {
		return fmt.Errorf("mirror latest score run: %w", err)
	}

	meta = meta.WithScoreRun(runID, domain.Now().UTC().Format(time.RFC3339))
	if err := runstate.Save(metaPath, meta); err != nil {
		return fmt.Errorf("save latest_run.json: %w", err)
	}

	metrics.ScoreRequestsTotal.WithLabelValues(domain.ScoreSourceAI).Add(float64(stats.AIOk))
	metrics.ScoreRequestsTotal.WithLabelValues(domain.ScoreSourceFallback).Add(float64(stats.Fallback))

	stageLogger.Info("score run complete",
		"run_id", runID, "total", stats.Total, "ai_ok", stats.AIOk, "ai_failed", stats.AIFailed,
		"reused_ok", stats.ReusedOK, "fallback", stats.Fallback, "skipped_max_events", stats.SkippedMaxEvents,
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

// loadContentIndex builds the tri-key resolver index from the project's
// latest content run, so scoring can join each fused event against its
// description and images.
func loadContentIndex(contentDir, contentRunID string) (*resolver.Index[*domain.ContentRecord], error) {
	idx := resolver.NewIndex[*domain.ContentRecord]()
	if contentRunID == "" {
		return idx, nil
	}
	path := filepath.Join(contentDir, contentRunID, "events_content.jsonl")
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

// loadPreviousScoreIndex builds the tri-key resolver index from the
// project's previous score run, if one is recorded. A project's
// first-ever run has no prior records to reuse, which is not an error.
func loadPreviousScoreIndex(scoreDir, previousRunID string) (*resolver.Index[*domain.ScoreRecord], error) {
	idx := resolver.NewIndex[*domain.ScoreRecord]()
	if previousRunID == "" {
		return idx, nil
	}
	path := filepath.Join(scoreDir, previousRunID, "events_score.jsonl")
	records, err := scoring.LoadScoreRecordsFile(path)
	if err != nil {
		return nil, err
	}
	for i := range records {
		scoring.PutRecord(idx, &records[i])
	}
	return idx, nil
}

func writeScoreOutputs(runDir string, records []domain.ScoreRecord, stats scoring.Stats, runID, contentRunID string, opts scoring.Options, scoreBackend string) error {
	writers := []struct {
		name string
		fn   func(*os.File) error
	}{
		{"events_score.jsonl", func(f *os.File) error { return scoring.WriteScoreRecordsJSONL(f, records) }},
		{"events_score.csv", func(f *os.File) error { return scoring.WriteScoreRecordsCSV(f, records) }},
		{"score_summary.json", func(f *os.File) error {
			return scoring.WriteSummary(f, scoring.NewSummary(runID, contentRunID, opts.Now, stats, opts, scoreBackend))
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

// mirrorLatestScore copies this run's three output files into a sibling
// latest/ directory, matching the content stage's own latest/ mirror.
func mirrorLatestScore(scoreDir, runDir string) error {
	latestDir := filepath.Join(scoreDir, "latest")
	if err := os.MkdirAll(latestDir, 0o755); err != nil {
		return err
	}
	for _, name := range []string{"events_score.jsonl", "events_score.csv", "score_summary.json"} {
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
