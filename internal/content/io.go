package content

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/boogieLing/tsugie/internal/domain"
)

// ContentCSVHeader is events_content.csv's fixed column order.
var ContentCSVHeader = []string{
	"canonical_id", "category", "event_name", "event_date_start", "event_date_end", "fused_run_id",
	"description_source_url", "raw_description",
	"polished_description", "one_liner", "polished_description_zh", "one_liner_zh",
	"polished_description_en", "one_liner_en",
	"image_urls", "downloaded_images", "source_urls", "source_urls_sig",
	"status", "error", "fetched_at", "polish_mode", "polish_model",
}

// LoadContentRecords reads a prior run's events_content.jsonl, one JSON
// object per line, skipping blank lines. An empty reader yields no
// records; opening the file (and treating a missing one as a first-ever
// content run) is left to the caller.
func LoadContentRecords(r io.Reader) ([]domain.ContentRecord, error) {
	var records []domain.ContentRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.ContentRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// WriteContentRecordsJSONL serializes every content record as one JSON
// object per line, matching events_content.jsonl.
func WriteContentRecordsJSONL(w io.Writer, records []domain.ContentRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteContentRecordsCSV serializes every content record to CSV,
// pipe-joining the list fields, matching events_content.csv.
func WriteContentRecordsCSV(w io.Writer, records []domain.ContentRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(ContentCSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.CanonicalID, r.Category, r.EventName, r.EventDateStart, r.EventDateEnd, r.FusedRunID,
			r.DescriptionSourceURL, r.RawDescription,
			r.PolishedDescriptionJA, r.OneLinerJA, r.PolishedDescriptionZH, r.OneLinerZH,
			r.PolishedDescriptionEN, r.OneLinerEN,
			strings.Join(r.ImageURLs, "|"), strings.Join(r.DownloadedImages, "|"),
			strings.Join(r.SourceURLs, "|"), r.SourceURLsSig,
			r.Status, r.Error, r.FetchedAt.UTC().Format(time.RFC3339), r.PolishMode, r.PolishModel,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// Summary is content_summary.json's shape: run counts plus the
// configuration knobs that produced them, so a later run (or a human)
// can tell how a given run's numbers were produced without re-reading
// its full record set.
type Summary struct {
	RunID          string    `json:"run_id"`
	Category       string    `json:"category"`
	FusedRunID     string    `json:"fused_run_id"`
	GeneratedAt    time.Time `json:"generated_at"`
	Total          int       `json:"total"`
	OK             int       `json:"ok"`
	Partial        int       `json:"partial"`
	Empty          int       `json:"empty"`
	Cached         int       `json:"cached"`
	WithDescription int      `json:"with_description"`
	WithImages      int      `json:"with_images"`
	MinRefreshDays int       `json:"min_refresh_days"`
	Force          bool      `json:"force"`
	PolishBackend  string    `json:"polish_backend"`
}

// NewSummary builds a run's content_summary.json document from its
// Stats and Options.
func NewSummary(runID string, generatedAt time.Time, stats Stats, opts Options, polishBackend string) Summary {
	return Summary{
		RunID: runID, Category: opts.Category, FusedRunID: opts.FusedRunID, GeneratedAt: generatedAt,
		Total: stats.Total, OK: stats.OK, Partial: stats.Partial, Empty: stats.Empty, Cached: stats.Cached,
		WithDescription: stats.WithDescription, WithImages: stats.WithImages,
		MinRefreshDays: opts.MinRefreshDays, Force: opts.Force, PolishBackend: polishBackend,
	}
}

// WriteSummary writes content_summary.json.
func WriteSummary(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
