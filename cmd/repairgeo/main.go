// Command repairgeo runs a standalone geo-quality repair pass over a
// fused events file: it reclassifies each row's geo_source into one of
// the recognized buckets (dropping the historical Tokyo-station
// fallback and invalid coordinates), then optionally re-geocodes
// overlapping low-confidence groups the same way cmd/fusion does
// during a live run. It reads one events_fused.jsonl and writes a
// repaired copy, unlike every other cmd/* entrypoint, which is driven
// by a project's latest_run.json.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/boogieLing/tsugie/internal/config"
	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/fusion"
	"github.com/boogieLing/tsugie/internal/geocoder"
	"github.com/boogieLing/tsugie/internal/observability"
)

var tokyoStationDefault = [2]float64{35.681236, 139.767125}

const repairEpsilon = 1e-6

var prefecturePattern = regexp.MustCompile(`(北海道|東京都|京都府|大阪府|.{2,3}県)`)

var prefectureCenter = map[string][2]float64{
	"北海道": {43.06417, 141.34694}, "青森県": {40.82444, 140.74}, "岩手県": {39.70361, 141.1525},
	"宮城県": {38.26889, 140.87194}, "秋田県": {39.71861, 140.1025}, "山形県": {38.24056, 140.36333},
	"福島県": {37.75, 140.46778}, "茨城県": {36.34139, 140.44667}, "栃木県": {36.56583, 139.88361},
	"群馬県": {36.39111, 139.06083}, "埼玉県": {35.85694, 139.64889}, "千葉県": {35.60472, 140.12333},
	"東京都": {35.68944, 139.69167}, "神奈川県": {35.44778, 139.6425}, "新潟県": {37.90222, 139.02361},
	"富山県": {36.69528, 137.21139}, "石川県": {36.59444, 136.62556}, "福井県": {36.06528, 136.22194},
	"山梨県": {35.66389, 138.56833}, "長野県": {36.65139, 138.18111}, "岐阜県": {35.39111, 136.72222},
	"静岡県": {34.97694, 138.38306}, "愛知県": {35.18028, 136.90667}, "三重県": {34.73028, 136.50861},
	"滋賀県": {35.00444, 135.86833}, "京都府": {35.02139, 135.75556}, "大阪府": {34.68639, 135.52},
	"兵庫県": {34.69139, 135.18306}, "奈良県": {34.68528, 135.83278}, "和歌山県": {34.22611, 135.1675},
	"鳥取県": {35.50361, 134.23833}, "島根県": {35.47222, 133.05056}, "岡山県": {34.66167, 133.935},
	"広島県": {34.39639, 132.45944}, "山口県": {34.18583, 131.47139}, "徳島県": {34.06583, 134.55944},
	"香川県": {34.34028, 134.04333}, "愛媛県": {33.84167, 132.76611}, "高知県": {33.55972, 133.53111},
	"福岡県": {33.60639, 130.41806}, "佐賀県": {33.24944, 130.29889}, "長崎県": {32.74472, 129.87361},
	"熊本県": {32.78972, 130.74167}, "大分県": {33.23806, 131.6125}, "宮崎県": {31.91111, 131.42389},
	"鹿児島県": {31.56028, 130.55806}, "沖縄県": {26.2125, 127.68111},
}

func main() {
	input := flag.String("input", "", "input events_fused.jsonl path")
	output := flag.String("output", "", "output events_fused.jsonl path")
	metricsOutput := flag.String("metrics-output", "", "optional metrics json output path")
	project := flag.String("project", "", "project category to resolve -input/-output from its latest fused run, when -input is not given")
	noGeocode := flag.Bool("no-geocode", false, "skip the overlap re-geocoding pass, reclassifying geo_source only")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	inPath, outPath, err := resolvePaths(cfg, *project, *input, *output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	events, err := readFusedEvents(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", inPath, err)
		os.Exit(1)
	}

	rowCounters := map[string]int{}
	for i := range events {
		repairRow(&events[i], rowCounters)
	}

	overlapStats := fusion.OverlapRepairStats{}
	if !*noGeocode && cfg.GeocoderBaseURL != "" {
		cache, err := geocoder.NewCache(cfg.GeocoderCachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load geocoder cache: %v\n", err)
			os.Exit(1)
		}
		geo := geocoder.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderTimeout, cfg.GeocoderQPS, cache, logger)
		_, _, overlapStats = fusion.RepairOverlapCoordinates(context.Background(), events, geo, "repairgeo")
	}

	if err := writeFusedEvents(outPath, events); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}

	metrics := buildMetrics(inPath, outPath, len(events), rowCounters, overlapStats)
	encoded, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode metrics: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))

	if *metricsOutput != "" {
		if err := os.MkdirAll(filepath.Dir(*metricsOutput), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create metrics-output directory: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*metricsOutput, append(encoded, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", *metricsOutput, err)
			os.Exit(1)
		}
	}
}

// resolvePaths fills in -input/-output from the project's latest fused
// run when -input is not given directly, repairing that run's output
// in place unless -output overrides the destination.
func resolvePaths(cfg *config.Config, project, input, output string) (string, string, error) {
	if input != "" {
		if output == "" {
			return "", "", fmt.Errorf("-output is required when -input is given")
		}
		return input, output, nil
	}
	if project == "" {
		return "", "", fmt.Errorf("either -input or -project must be given")
	}
	paths, ok := cfg.Projects[project]
	if !ok {
		return "", "", fmt.Errorf("unknown project %q", project)
	}
	metaPath := filepath.Join(paths.Root, "latest_run.json")
	meta, err := loadFusedRunID(metaPath)
	if err != nil {
		return "", "", err
	}
	resolvedInput := filepath.Join(paths.FusedDir, meta, "events_fused.jsonl")
	resolvedOutput := output
	if resolvedOutput == "" {
		resolvedOutput = resolvedInput
	}
	return resolvedInput, resolvedOutput, nil
}

func loadFusedRunID(metaPath string) (string, error) {
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", metaPath, err)
	}
	var meta struct {
		FusedRunID string `json:"fused_run_id"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", fmt.Errorf("parse %s: %w", metaPath, err)
	}
	if meta.FusedRunID == "" {
		return "", fmt.Errorf("no fused run recorded in %s; run cmd/fusion first", metaPath)
	}
	return meta.FusedRunID, nil
}

func readFusedEvents(path string) ([]domain.CanonicalEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fusion.ReadCanonicalEventsJSONL(f)
}

func writeFusedEvents(path string, events []domain.CanonicalEvent) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fusion.WriteCanonicalEventsJSONL(f, events)
}

// repairRow reclassifies one row's geo_source in place: invalid or
// historical Tokyo-station-default coordinates get cleared to
// "missing", an existing geo_source is kept as-is, and a coordinate
// sitting on its prefecture's center point with no recorded source is
// relabeled pref_center_fallback rather than left looking hand-picked.
func repairRow(e *domain.CanonicalEvent, counters map[string]int) {
	pref := extractRepairPrefecture(e)
	lat, latOK := parseCoordOK(e.Lat)
	lng, lngOK := parseCoordOK(e.Lng)
	geoSource := strings.TrimSpace(e.GeoSource)

	if !latOK || !lngOK || !isValidCoord(lat, lng) {
		e.Lat, e.Lng = "", ""
		e.GeoSource = domain.GeoSourceMissing
		counters["set_missing_invalid_coord"]++
		return
	}

	if isSameCoord(lat, lng, tokyoStationDefault[0], tokyoStationDefault[1]) && pref == "" {
		e.Lat, e.Lng = "", ""
		e.GeoSource = domain.GeoSourceMissing
		counters["removed_tokyo_default_unresolved"]++
		return
	}

	if geoSource != "" {
		e.GeoSource = geoSource
		counters["keep_existing_geo_source"]++
		return
	}

	if pref != "" {
		center := prefectureCenter[pref]
		if isSameCoord(lat, lng, center[0], center[1]) {
			e.GeoSource = domain.GeoSourcePrefCenterFallback
			counters["derive_pref_center_fallback"]++
			return
		}
	}

	e.GeoSource = domain.GeoSourceExact
	counters["derive_source_exact"]++
}

func extractRepairPrefecture(e *domain.CanonicalEvent) string {
	pref := strings.TrimSpace(e.Prefecture)
	if _, ok := prefectureCenter[pref]; ok {
		return pref
	}
	text := firstNonEmptyRepair(e.VenueAddress, e.VenueName, e.EventName)
	if text == "" {
		return ""
	}
	candidate := prefecturePattern.FindString(text)
	if _, ok := prefectureCenter[candidate]; ok {
		return candidate
	}
	return ""
}

func firstNonEmptyRepair(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseCoordOK(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isValidCoord(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func isSameCoord(lat, lng, otherLat, otherLng float64) bool {
	return math.Abs(lat-otherLat) <= repairEpsilon && math.Abs(lng-otherLng) <= repairEpsilon
}

type repairMetrics struct {
	Input        string         `json:"input"`
	Output       string         `json:"output"`
	RowsIn       int            `json:"rows_in"`
	RowsOut      int            `json:"rows_out"`
	Stats        map[string]int `json:"stats"`
	OverlapGroupsDetected  int `json:"overlap_groups_detected"`
	OverlapRowsConsidered  int `json:"overlap_rows_considered"`
	OverlapRepairAttempted int `json:"overlap_repair_attempted"`
	OverlapRepairResolved  int `json:"overlap_repair_resolved"`
}

// buildMetrics assembles the run summary. encoding/json already sorts
// map keys on encode, matching the original script's sorted counters.
func buildMetrics(input, output string, rowCount int, counters map[string]int, overlap fusion.OverlapRepairStats) repairMetrics {
	return repairMetrics{
		Input:                  input,
		Output:                 output,
		RowsIn:                 rowCount,
		RowsOut:                rowCount,
		Stats:                  counters,
		OverlapGroupsDetected:  overlap.GroupsDetected,
		OverlapRowsConsidered:  overlap.RowsConsidered,
		OverlapRepairAttempted: overlap.RepairAttempted,
		OverlapRepairResolved:  overlap.RepairResolved,
	}
}
