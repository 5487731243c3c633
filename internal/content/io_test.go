package content

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/boogieLing/tsugie/internal/domain"
)

func TestLoadContentRecords_ReadsLinesAndSkipsBlanks(t *testing.T) {
	input := `{"canonical_id":"c1"}` + "\n\n" + `{"canonical_id":"c2"}` + "\n"
	records, err := LoadContentRecords(strings.NewReader(input))
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

func TestLoadContentRecords_EmptyInputReadsAsNoRecords(t *testing.T) {
	records, err := LoadContentRecords(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records != nil {
		t.Errorf("expected nil records, got %+v", records)
	}
}

func TestWriteContentRecordsJSONL_RoundTripsThroughLoad(t *testing.T) {
	records := []domain.ContentRecord{
		{CanonicalID: "c1", ImageURLs: []string{"https://a"}, FetchedAt: time.Unix(0, 0).UTC()},
		{CanonicalID: "c2", FetchedAt: time.Unix(0, 0).UTC()},
	}
	var buf bytes.Buffer
	if err := WriteContentRecordsJSONL(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := LoadContentRecords(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ImageURLs[0] != "https://a" {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}

func TestWriteContentRecordsCSV_PipeJoinsListFieldsAndWritesHeader(t *testing.T) {
	records := []domain.ContentRecord{
		{
			CanonicalID: "c1", Category: "hanabi",
			ImageURLs: []string{"https://a", "https://b"}, SourceURLs: []string{"https://src"},
			Status: domain.ContentStatusOK, FetchedAt: time.Unix(0, 0).UTC(),
		},
	}
	var buf bytes.Buffer
	if err := WriteContentRecordsCSV(&buf, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "canonical_id,category,event_name") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "https://a|https://b") {
		t.Errorf("expected pipe-joined image_urls, got %q", lines[1])
	}
}

func TestNewSummary_CopiesStatsAndOptions(t *testing.T) {
	stats := Stats{Total: 5, OK: 3, Cached: 2}
	opts := Options{Category: "hanabi", FusedRunID: "run-1", MinRefreshDays: 30, Force: true}
	summary := NewSummary("content-run-1", time.Unix(0, 0).UTC(), stats, opts, "openai")
	if summary.Total != 5 || summary.OK != 3 || summary.Cached != 2 {
		t.Errorf("stats not copied: %+v", summary)
	}
	if summary.Category != "hanabi" || summary.FusedRunID != "run-1" || !summary.Force {
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
