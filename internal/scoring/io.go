package scoring

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/boogieLing/tsugie/internal/domain"
)

// ScoreCSVHeader is events_score.csv's column order, following
// domain.ScoreRecord's own field order.
var ScoreCSVHeader = []string{
	"canonical_id", "event_name", "event_date_start", "source_urls",
	"initial_heat_score", "surprise_score", "reason",
	"status", "score_source", "score_provider", "score_model",
	"input_hash", "error", "generated_at",
}

// LoadScoreRecords reads a prior run's events_score.jsonl, one JSON
// object per line. An empty reader yields no records; a missing file is
// handled by LoadScoreRecordsFile.
func LoadScoreRecords(r io.Reader) ([]domain.ScoreRecord, error) {
	var records []domain.ScoreRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.ScoreRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// LoadScoreRecordsFile opens path and loads its score records, treating
// a missing file as no records rather than an error.
func LoadScoreRecordsFile(path string) ([]domain.ScoreRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadScoreRecords(f)
}

// WriteScoreRecordsJSONL serializes every score record as one JSON
// object per line, matching events_score.jsonl.
func WriteScoreRecordsJSONL(w io.Writer, records []domain.ScoreRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteScoreRecordsCSV serializes every score record to CSV, pipe-joining
// source_urls, matching events_score.csv.
func WriteScoreRecordsCSV(w io.Writer, records []domain.ScoreRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(ScoreCSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.CanonicalID, r.EventName, r.EventDateStart, strings.Join(r.SourceURLs, "|"),
			strconv.Itoa(r.InitialHeatScore), strconv.Itoa(r.SurpriseScore), r.Reason,
			r.Status, r.ScoreSource, r.ScoreProvider, r.ScoreModel,
			r.InputHash, r.Error, r.GeneratedAt,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// Summary is score_summary.json's shape: run counts plus the
// configuration knobs that produced them.
type Summary struct {
	RunID       string    `json:"run_id"`
	Category    string    `json:"category"`
	ContentRunID string   `json:"content_run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Total       int       `json:"total"`
	AIOk        int       `json:"ai_ok"`
	AIFailed    int       `json:"ai_failed"`
	ReusedOK    int       `json:"reused_ok"`
	Fallback    int       `json:"fallback"`
	SkippedMaxEvents int  `json:"skipped_max_events"`
	ScoreBackend string   `json:"score_backend"`
}

// NewSummary builds a run's score_summary.json document from its Stats
// and Options.
func NewSummary(runID, contentRunID string, generatedAt time.Time, stats Stats, opts Options, scoreBackend string) Summary {
	return Summary{
		RunID: runID, Category: opts.Category, ContentRunID: contentRunID, GeneratedAt: generatedAt,
		Total: stats.Total, AIOk: stats.AIOk, AIFailed: stats.AIFailed,
		ReusedOK: stats.ReusedOK, Fallback: stats.Fallback, SkippedMaxEvents: stats.SkippedMaxEvents,
		ScoreBackend: scoreBackend,
	}
}

// WriteSummary writes score_summary.json.
func WriteSummary(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
