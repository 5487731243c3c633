// Command export joins every project's fused events with their latest
// content and score runs, assembles the obfuscated spatial export
// bundle, and announces the new bundle over Kafka when configured.
package main

import (
	"context"
	"encoding/json"
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
	"github.com/boogieLing/tsugie/internal/adapter/kafka"
	"github.com/boogieLing/tsugie/internal/config"
	"github.com/boogieLing/tsugie/internal/content"
	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/export"
	"github.com/boogieLing/tsugie/internal/fusion"
	"github.com/boogieLing/tsugie/internal/observability"
	"github.com/boogieLing/tsugie/internal/pipeline"
	"github.com/boogieLing/tsugie/internal/resolver"
	"github.com/boogieLing/tsugie/internal/runstate"
	"github.com/boogieLing/tsugie/internal/scoring"
)

func main() {
	project := flag.String("project", "all", "project category to include: hanabi, omatsuri, or all")
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
	err = runExport(ctx, cfg, logger, metrics, categories)
	metrics.PipelineRunning.Set(0)
	if err != nil {
		logger.Error("export run failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if err != nil {
		os.Exit(1)
	}
}

func runExport(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, categories []string) error {
	stage := pipeline.Stage{Name: "export", Logger: logger, Duration: metrics.ExportRunDuration}

	metas := make(map[string]runstate.Meta, len(categories))
	projectInputs := make([]export.ProjectInput, 0, len(categories))

	for _, category := range categories {
		paths, ok := cfg.Projects[category]
		if !ok {
			return fmt.Errorf("unknown project category %q", category)
		}
		metaPath := filepath.Join(paths.Root, "latest_run.json")
		meta, err := runstate.Load(metaPath)
		if err != nil {
			return fmt.Errorf("load latest_run.json for %q: %w", category, err)
		}
		if meta.FusedRunID == "" {
			return fmt.Errorf("no fused run recorded for project %q; run cmd/fusion first", category)
		}
		metas[category] = meta

		events, err := readFusedEvents(filepath.Join(paths.FusedDir, meta.FusedRunID, "events_fused.jsonl"))
		if err != nil {
			return fmt.Errorf("load fused events for %q: %w", category, err)
		}

		contentRecords, contentIndex, err := loadContentRun(paths.ContentDir, meta.ContentRunID)
		if err != nil {
			return fmt.Errorf("load content run for %q: %w", category, err)
		}
		scoreIndex, err := loadScoreIndex(paths.ScoreDir, meta.ScoreRunID)
		if err != nil {
			return fmt.Errorf("load score run for %q: %w", category, err)
		}

		projectInputs = append(projectInputs, export.ProjectInput{
			Category:     category,
			FusedRunID:   meta.FusedRunID,
			Events:       events,
			ContentIndex: contentIndex,
			ScoreIndex:   scoreIndex,
			Images:       collectLocalImages(contentRecords),
		})
	}

	opts := export.Options{
		GeohashPrecision: cfg.ExportGeohashPrecision,
		KeySeed:          cfg.ExportKeySeed,
		ImageQuality:     cfg.ExportImageQuality,
		ImageMaxPx:       cfg.ExportImageMaxPx,
	}

	runID := uuid.New().String()
	generatedAt := domain.Now().UTC().Format(time.RFC3339)

	var bundle export.Bundle
	err := stage.Run(ctx, func(ctx context.Context) error {
		b, err := export.Build(projectInputs, opts, generatedAt, "he_places.payload.bin", "he_images.payload.bin")
		bundle = b
		return err
	})
	if err != nil {
		return fmt.Errorf("build export bundle: %w", err)
	}

	exportRoot := sharedExportRoot(cfg, categories)
	runDir := filepath.Join(exportRoot, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	if err := writeBundle(runDir, bundle); err != nil {
		return fmt.Errorf("write export bundle: %w", err)
	}
	if err := mirrorLatestExport(exportRoot, runDir, bundle.ImagePayload != nil); err != nil {
		return fmt.Errorf("mirror latest export run: %w", err)
	}

	metrics.ExportPayloadBytes.WithLabelValues("spatial").Set(float64(len(bundle.Payload)))
	metrics.ExportPayloadBytes.WithLabelValues("image").Set(float64(len(bundle.ImagePayload)))

	for _, category := range categories {
		paths := cfg.Projects[category]
		meta := metas[category].WithExportRun(runID, generatedAt)
		if err := runstate.Save(filepath.Join(paths.Root, "latest_run.json"), meta); err != nil {
			return fmt.Errorf("save latest_run.json for %q: %w", category, err)
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		if err := notifyKafka(ctx, cfg, logger, runID, generatedAt, runDir); err != nil {
			logger.Error("kafka notify failed", "error", err)
		}
	}

	logger.Info("export run complete",
		"run_id", runID, "payload_bytes", len(bundle.Payload), "image_payload_bytes", len(bundle.ImagePayload),
		"record_counts", bundle.Index.RecordCounts,
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

func loadContentRun(contentDir, contentRunID string) ([]domain.ContentRecord, *resolver.Index[*domain.ContentRecord], error) {
	idx := resolver.NewIndex[*domain.ContentRecord]()
	if contentRunID == "" {
		return nil, idx, nil
	}
	path := filepath.Join(contentDir, contentRunID, "events_content.jsonl")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, idx, nil
		}
		return nil, nil, err
	}
	defer f.Close()
	records, err := content.LoadContentRecords(f)
	if err != nil {
		return nil, nil, err
	}
	for i := range records {
		content.PutRecord(idx, &records[i])
	}
	return records, idx, nil
}

func loadScoreIndex(scoreDir, scoreRunID string) (*resolver.Index[*domain.ScoreRecord], error) {
	idx := resolver.NewIndex[*domain.ScoreRecord]()
	if scoreRunID == "" {
		return idx, nil
	}
	records, err := scoring.LoadScoreRecordsFile(filepath.Join(scoreDir, scoreRunID, "events_score.jsonl"))
	if err != nil {
		return nil, err
	}
	for i := range records {
		scoring.PutRecord(idx, &records[i])
	}
	return idx, nil
}

// collectLocalImages gathers every downloaded image file a project's
// content run left on disk, ready to feed export.BuildImagePayload.
// DownloadedImages already holds real filesystem paths under the
// content run's image root, since content.Run writes them there itself.
func collectLocalImages(records []domain.ContentRecord) []export.LocalImage {
	var images []export.LocalImage
	for _, r := range records {
		for _, path := range r.DownloadedImages {
			images = append(images, export.LocalImage{CanonicalID: r.CanonicalID, Path: path})
		}
	}
	return images
}

// sharedExportRoot derives one export directory shared by every project
// in this run, a sibling of each project's own per-category data root
// (e.g. "data/hanabi", "data/omatsuri" -> "data/export"), since a single
// bundle spans every category rather than belonging to just one.
func sharedExportRoot(cfg *config.Config, categories []string) string {
	root := cfg.Projects[categories[0]].Root
	return filepath.Join(filepath.Dir(root), "export")
}

func writeBundle(runDir string, bundle export.Bundle) error {
	indexData, err := json.MarshalIndent(bundle.Index, "", "  ")
	if err != nil {
		return fmt.Errorf("encode he_places.index.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "he_places.index.json"), indexData, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(runDir, "he_places.payload.bin"), bundle.Payload, 0o644); err != nil {
		return err
	}
	if len(bundle.ImagePayload) > 0 {
		if err := os.WriteFile(filepath.Join(runDir, "he_images.payload.bin"), bundle.ImagePayload, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func mirrorLatestExport(exportRoot, runDir string, hasImagePayload bool) error {
	latestDir := filepath.Join(exportRoot, "latest")
	if err := os.MkdirAll(latestDir, 0o755); err != nil {
		return err
	}
	names := []string{"he_places.index.json", "he_places.payload.bin"}
	if hasImagePayload {
		names = append(names, "he_images.payload.bin")
	}
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(runDir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := os.WriteFile(filepath.Join(latestDir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func notifyKafka(ctx context.Context, cfg *config.Config, logger *slog.Logger, runID, generatedAt, runDir string) error {
	notifier := kafka.NewRunNotifier(cfg.KafkaBrokers, cfg.KafkaNotifyTopic, logger)
	defer notifier.Close()
	return notifier.Notify(ctx, kafka.RunNotification{
		Project:          "all",
		RunID:            runID,
		GeneratedAt:      generatedAt,
		IndexPath:        filepath.Join(runDir, "he_places.index.json"),
		PayloadPath:      filepath.Join(runDir, "he_places.payload.bin"),
		ImagePayloadPath: filepath.Join(runDir, "he_images.payload.bin"),
	})
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
