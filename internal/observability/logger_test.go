package observability

import (
	"log/slog"
	"testing"

	"github.com/boogieLing/tsugie/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewLogger_DoesNotPanicForEitherFormat(t *testing.T) {
	NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	NewLogger(&config.Config{LogLevel: "info", LogFormat: "json"})
}
