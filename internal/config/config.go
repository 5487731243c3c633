package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
)

// Categories lists the fixed event categories this pipeline runs over.
// "all" (accepted by every cmd/* -project flag) expands to this list.
var Categories = []string{"hanabi", "omatsuri"}

// ProjectPaths is one category's stage directory layout, all rooted
// under a single per-project data directory.
type ProjectPaths struct {
	Category   string
	Root       string
	RawDir     string
	FusedDir   string
	ContentDir string
	ScoreDir   string
	ExportDir  string
}

// Config holds all pipeline settings, populated from environment
// variables over a built-in default struct.
type Config struct {
	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration

	Projects map[string]ProjectPaths

	GeocoderBaseURL   string
	GeocoderTimeout   time.Duration
	GeocoderQPS       float64
	GeocoderCachePath string

	ContentQPS          float64
	ContentTimeout      time.Duration
	ContentMaxRetries   int
	ContentUserAgent    string
	ContentMaxSourceURLs int
	ContentStaleAfter   time.Duration
	ContentImageMaxPx   int
	ContentImageQuality int

	// PolishBackend selects the enrichment narrative backend: "openai"
	// (go-openai against PolishAPIBase), "codex" (local subprocess via
	// CodexBinaryPath), "none" (raw text only), or "auto" (openai when
	// PolishAPIKey is set, otherwise codex).
	PolishBackend    string
	PolishAPIKey     string
	PolishAPIBase    string
	PolishModel      string
	CodexBinaryPath  string

	ScoreQPS                float64
	ScoreBackend            string
	ScoreAPIKey             string
	ScoreAPIBase            string
	ScoreModel              string
	ScorePromptTemplatePath string
	ScoreMaxEvents          int
	ScorePrioritizeNearStart bool

	ExportGeohashPrecision int
	ExportKeySeed          string
	ExportImageQuality     int
	ExportImageMaxPx       int

	// KafkaBrokers is empty unless KAFKA_BROKERS is set, in which case
	// the run-notifier publishes to KafkaNotifyTopic after every
	// export run. The pipeline itself never blocks on Kafka.
	KafkaBrokers     []string
	KafkaNotifyTopic string

	HTTPAddr string
}

// defaults returns the built-in baseline Config, before any
// environment-variable override is merged over it.
func defaults() Config {
	projects := make(map[string]ProjectPaths, len(Categories))
	for _, category := range Categories {
		projects[category] = projectPaths(category, filepath.Join("data", category))
	}

	return Config{
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 10 * time.Second,

		Projects: projects,

		GeocoderBaseURL:   "https://nominatim.openstreetmap.org/search",
		GeocoderTimeout:   5 * time.Second,
		GeocoderQPS:       1,
		GeocoderCachePath: filepath.Join("data", "geocoder_cache.csv"),

		ContentQPS:           1,
		ContentTimeout:       10 * time.Second,
		ContentMaxRetries:    3,
		ContentUserAgent:     "tsugie-content-crawler/1.0",
		ContentMaxSourceURLs: 3,
		ContentStaleAfter:    30 * 24 * time.Hour,
		ContentImageMaxPx:    1600,
		ContentImageQuality:  85,

		PolishBackend: "auto",
		PolishModel:   "gpt-4o-mini",

		ScoreQPS:       1,
		ScoreBackend:   "auto",
		ScoreModel:     "gpt-4o-mini",
		ScoreMaxEvents: 0,

		ExportGeohashPrecision: 5,
		ExportImageQuality:     80,
		ExportImageMaxPx:       1280,

		HTTPAddr: ":8080",
	}
}

// Load reads configuration from environment variables, merging them
// over the built-in defaults with mergo, and validates the result.
func Load() (*Config, error) {
	cfg := defaults()
	override, err := fromEnv(cfg)
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(&cfg, override, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge config override: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fromEnv builds the override Config from whichever environment
// variables are actually set. Fields left zero-valued are not present
// in the process environment and so mergo.WithOverride leaves the
// corresponding default untouched.
func fromEnv(base Config) (Config, error) {
	var override Config

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		override.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		override.LogFormat = v
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		override.ShutdownTimeout = d
	}

	override.Projects = make(map[string]ProjectPaths)
	for _, category := range Categories {
		envKey := "PROJECT_" + strings.ToUpper(category) + "_ROOT"
		if root := os.Getenv(envKey); root != "" {
			override.Projects[category] = projectPaths(category, root)
		}
	}

	if v := os.Getenv("GEOCODER_BASE_URL"); v != "" {
		override.GeocoderBaseURL = v
	}
	if v := os.Getenv("GEOCODER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GEOCODER_TIMEOUT: %w", err)
		}
		override.GeocoderTimeout = d
	}
	if v := os.Getenv("GEOCODER_QPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GEOCODER_QPS: %w", err)
		}
		override.GeocoderQPS = f
	}
	if v := os.Getenv("GEOCODER_CACHE_PATH"); v != "" {
		override.GeocoderCachePath = v
	}

	if v := os.Getenv("CONTENT_QPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONTENT_QPS: %w", err)
		}
		override.ContentQPS = f
	}
	if v := os.Getenv("CONTENT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONTENT_TIMEOUT: %w", err)
		}
		override.ContentTimeout = d
	}
	if v := os.Getenv("CONTENT_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid CONTENT_MAX_RETRIES: %q", v)
		}
		override.ContentMaxRetries = n
	}
	if v := os.Getenv("CONTENT_USER_AGENT"); v != "" {
		override.ContentUserAgent = v
	}
	if v := os.Getenv("CONTENT_MAX_SOURCE_URLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid CONTENT_MAX_SOURCE_URLS: %q", v)
		}
		override.ContentMaxSourceURLs = n
	}
	if v := os.Getenv("CONTENT_STALE_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONTENT_STALE_AFTER: %w", err)
		}
		override.ContentStaleAfter = d
	}
	if v := os.Getenv("CONTENT_IMAGE_MAX_PX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid CONTENT_IMAGE_MAX_PX: %q", v)
		}
		override.ContentImageMaxPx = n
	}
	if v := os.Getenv("CONTENT_IMAGE_QUALITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CONTENT_IMAGE_QUALITY: %q", v)
		}
		override.ContentImageQuality = n
	}

	if v := os.Getenv("POLISH_BACKEND"); v != "" {
		override.PolishBackend = v
	}
	override.PolishAPIKey = os.Getenv("POLISH_API_KEY")
	if v := os.Getenv("POLISH_API_BASE"); v != "" {
		override.PolishAPIBase = v
	}
	if v := os.Getenv("POLISH_MODEL"); v != "" {
		override.PolishModel = v
	}
	if v := os.Getenv("CODEX_BINARY_PATH"); v != "" {
		override.CodexBinaryPath = v
	}

	if v := os.Getenv("SCORE_QPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCORE_QPS: %w", err)
		}
		override.ScoreQPS = f
	}
	if v := os.Getenv("SCORE_BACKEND"); v != "" {
		override.ScoreBackend = v
	}
	override.ScoreAPIKey = os.Getenv("SCORE_API_KEY")
	if v := os.Getenv("SCORE_API_BASE"); v != "" {
		override.ScoreAPIBase = v
	}
	if v := os.Getenv("SCORE_MODEL"); v != "" {
		override.ScoreModel = v
	}
	if v := os.Getenv("SCORE_PROMPT_TEMPLATE_PATH"); v != "" {
		override.ScorePromptTemplatePath = v
	}
	if v := os.Getenv("SCORE_MAX_EVENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid SCORE_MAX_EVENTS: %q", v)
		}
		override.ScoreMaxEvents = n
	}
	if v := os.Getenv("SCORE_PRIORITIZE_NEAR_START"); v != "" {
		override.ScorePrioritizeNearStart = v == "true"
	}

	if v := os.Getenv("EXPORT_GEOHASH_PRECISION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EXPORT_GEOHASH_PRECISION: %q", v)
		}
		override.ExportGeohashPrecision = n
	}
	override.ExportKeySeed = os.Getenv("EXPORT_KEY_SEED")
	if v := os.Getenv("EXPORT_IMAGE_QUALITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EXPORT_IMAGE_QUALITY: %q", v)
		}
		override.ExportImageQuality = n
	}
	if v := os.Getenv("EXPORT_IMAGE_MAX_PX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid EXPORT_IMAGE_MAX_PX: %q", v)
		}
		override.ExportImageMaxPx = n
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		override.KafkaBrokers = parseBrokers(v)
	}
	if v := os.Getenv("KAFKA_NOTIFY_TOPIC"); v != "" {
		override.KafkaNotifyTopic = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		override.HTTPAddr = v
	}

	return override, nil
}

func validate(cfg *Config) error {
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT: must be positive")
	}
	if cfg.GeocoderTimeout <= 0 {
		return errors.New("invalid GEOCODER_TIMEOUT: must be positive")
	}
	if cfg.ContentTimeout <= 0 {
		return errors.New("invalid CONTENT_TIMEOUT: must be positive")
	}
	if cfg.ExportGeohashPrecision < 3 || cfg.ExportGeohashPrecision > 8 {
		return fmt.Errorf("invalid EXPORT_GEOHASH_PRECISION: must be between 3 and 8, got %d", cfg.ExportGeohashPrecision)
	}
	switch cfg.PolishBackend {
	case "openai", "codex", "none", "auto":
	default:
		return fmt.Errorf("invalid POLISH_BACKEND: %q", cfg.PolishBackend)
	}
	switch cfg.ScoreBackend {
	case "openai", "none", "auto":
	default:
		return fmt.Errorf("invalid SCORE_BACKEND: %q", cfg.ScoreBackend)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaNotifyTopic == "" {
		return errors.New("KAFKA_BROKERS is set but KAFKA_NOTIFY_TOPIC is not")
	}
	for _, category := range Categories {
		if _, ok := cfg.Projects[category]; !ok {
			return fmt.Errorf("missing project paths for category %q", category)
		}
	}
	return nil
}

// projectPaths derives the conventional raw/fused/content/score/export
// subdirectory layout beneath a project's root directory.
func projectPaths(category, root string) ProjectPaths {
	return ProjectPaths{
		Category:   category,
		Root:       root,
		RawDir:     filepath.Join(root, "raw"),
		FusedDir:   filepath.Join(root, "fused"),
		ContentDir: filepath.Join(root, "content"),
		ScoreDir:   filepath.Join(root, "score"),
		ExportDir:  filepath.Join(root, "export"),
	}
}

func parseBrokers(value string) []string {
	parts := strings.Split(value, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
