package fusion

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/boogieLing/tsugie/internal/domain"
)

// canonicalEventCSVHeader is events_fused.csv's fixed column order.
var canonicalEventCSVHeader = []string{
	"canonical_id", "event_year", "source_count",
	"event_name", "event_date_start", "event_date_end", "event_time_start", "event_time_end",
	"venue_name", "venue_address", "prefecture", "city", "lat", "lng", "geo_source",
	"launch_count", "launch_scale", "paid_seat", "access_text", "parking_text",
	"traffic_control_text", "rainout_policy", "contact", "weather_summary",
	"is_info_incomplete", "incomplete_field_count", "incomplete_fields", "update_priority",
	"source_sites", "source_urls",
}

// LoadRawRecords reads one newline-delimited-JSON file per site from
// rawDir (named "<site>.jsonl"), matching the crawler's own output
// layout. Sites with no file present are skipped rather than treated as
// an error, since not every source necessarily ran in a given raw pull.
func LoadRawRecords(rawDir string, sites []string) ([]domain.RawRecord, error) {
	var rows []domain.RawRecord
	for _, site := range sites {
		path := filepath.Join(rawDir, site+".jsonl")
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		if err := func() error {
			defer f.Close()
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}
				var row domain.RawRecord
				if err := json.Unmarshal(line, &row); err != nil {
					return fmt.Errorf("parse %s: %w", path, err)
				}
				if row.SourceSite == "" {
					row.SourceSite = site
				}
				rows = append(rows, row)
			}
			return scanner.Err()
		}(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// ReadCanonicalEventsJSONL reads a prior fusion run's events_fused.jsonl,
// one JSON object per line.
func ReadCanonicalEventsJSONL(r io.Reader) ([]domain.CanonicalEvent, error) {
	var events []domain.CanonicalEvent
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event domain.CanonicalEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

// WriteCanonicalEventsJSONL serializes every canonical event as one JSON
// object per line, matching events_fused.jsonl.
func WriteCanonicalEventsJSONL(w io.Writer, events []domain.CanonicalEvent) error {
	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// WriteCanonicalEventsCSV serializes every canonical event to CSV,
// matching events_fused.csv's column order.
func WriteCanonicalEventsCSV(w io.Writer, events []domain.CanonicalEvent) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write(canonicalEventCSVHeader); err != nil {
		return err
	}
	// domain.FusionFields runs event_name..weather_summary; geo_source is
	// interleaved right after lng, so the voted fields are split there.
	const geoSplit = 11 // index of "launch_count" in domain.FusionFields
	for _, e := range events {
		row := []string{e.CanonicalID, e.EventYear, strconv.Itoa(e.SourceCount)}
		for _, field := range domain.FusionFields[:geoSplit] {
			row = append(row, e.Field(field))
		}
		row = append(row, e.GeoSource)
		for _, field := range domain.FusionFields[geoSplit:] {
			row = append(row, e.Field(field))
		}
		row = append(row,
			boolFlag(e.IsInfoIncomplete), strconv.Itoa(e.IncompleteFieldCount), e.IncompleteFields, e.UpdatePriority,
			strings.Join(e.SourceSites, "|"), strings.Join(e.SourceURLs, "|"),
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}
