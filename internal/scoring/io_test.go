package scoring

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boogieLing/tsugie/internal/domain"
)

func TestLoadScoreRecords_ReadsLinesAndSkipsBlanks(t *testing.T) {
	input := `{"canonical_id":"c1"}` + "\n\n" + `{"canonical_id":"c2"}` + "\n"
	records, err := LoadScoreRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].CanonicalID != "c1" || records[1].CanonicalID != "c2" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestLoadScoreRecordsFile_MissingFileReadsAsNoRecords(t *testing.T) {
	records, err := LoadScoreRecordsFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records, got %+v", records)
	}
}

func TestWriteScoreRecordsJSONL_RoundTripsThroughLoad(t *testing.T) {
	records := []domain.ScoreRecord{
		{CanonicalID: "c1", InitialHeatScore: 70, SurpriseScore: 40, SourceURLs: []string{"https://a"}},
		{CanonicalID: "c2", InitialHeatScore: 50, SurpriseScore: 20},
	}
	var buf bytes.Buffer
	if err := WriteScoreRecordsJSONL(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := LoadScoreRecords(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded) != 2 || loaded[0].SourceURLs[0] != "https://a" {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}

func TestWriteScoreRecordsCSV_PipeJoinsSourceURLsAndWritesHeader(t *testing.T) {
	records := []domain.ScoreRecord{
		{
			CanonicalID: "c1", EventName: "隅田川花火大会", SourceURLs: []string{"https://a", "https://b"},
			InitialHeatScore: 80, SurpriseScore: 30, Status: domain.ScoreStatusOK, ScoreSource: domain.ScoreSourceAI,
		},
	}
	var buf bytes.Buffer
	if err := WriteScoreRecordsCSV(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "canonical_id,event_name,event_date_start,source_urls") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "https://a|https://b") {
		t.Errorf("expected pipe-joined source_urls, got %q", lines[1])
	}
}

func TestNewSummary_CopiesStatsAndOptions(t *testing.T) {
	stats := Stats{Total: 5, AIOk: 3, Fallback: 2}
	opts := Options{Category: "hanabi", MaxEvents: 100}
	summary := NewSummary("score-run-1", "content-run-1", time.Unix(0, 0).UTC(), stats, opts, "deepseek")
	if summary.Total != 5 || summary.AIOk != 3 || summary.Fallback != 2 {
		t.Errorf("stats not copied: %+v", summary)
	}
	if summary.Category != "hanabi" || summary.ContentRunID != "content-run-1" {
		t.Errorf("options not copied: %+v", summary)
	}
}

func TestWriteSummary_ProducesParsableJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, Summary{RunID: "r1", Total: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"run_id": "r1"`) {
		t.Errorf("unexpected summary JSON: %s", buf.String())
	}
}
