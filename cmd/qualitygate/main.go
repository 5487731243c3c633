// Command qualitygate scans a project's latest fused run for coincident
// coordinate clusters that look like an unresolved geocoding collision
// rather than a genuine shared venue, and fails the build when too many
// high-risk clusters remain.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/boogieLing/tsugie/internal/config"
	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/fusion"
	"github.com/boogieLing/tsugie/internal/runstate"
)

var prefecturePattern = regexp.MustCompile(`(北海道|東京都|京都府|大阪府|.{2,3}県)`)

func main() {
	project := flag.String("project", "all", "project category to check: hanabi, omatsuri, or all")
	maxHighRiskGroups := flag.Int("max-high-risk-groups", 0, "gate threshold: max allowed high-risk overlap groups")
	highRiskMinGroupSize := flag.Int("high-risk-min-group-size", 4, "high-risk rule: minimum overlap group size")
	highRiskMinUniqueVenues := flag.Int("high-risk-min-unique-venues", 3, "high-risk rule: minimum unique venues in one overlap group")
	highRiskMinLowConfidenceRatio := flag.Float64("high-risk-min-low-confidence-ratio", 0.8, "high-risk rule: minimum low-confidence geo_source ratio")
	topN := flag.Int("top-n", 20, "top suspicious groups kept in the report")
	reportOutput := flag.String("report-output", "", "report JSON output path (defaults to geo_overlap_quality_gate.json in the parent directory of the first selected project's root)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	categories, err := resolveCategories(*project)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	thresholds := thresholds{
		minGroupSize:         *highRiskMinGroupSize,
		minUniqueVenues:      *highRiskMinUniqueVenues,
		minLowConfidenceRatio: *highRiskMinLowConfidenceRatio,
		topN:                 *topN,
	}

	var projectReports []projectReport
	for _, category := range categories {
		paths := cfg.Projects[category]
		report, err := analyzeProject(category, paths, thresholds)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: [%s] %v\n", category, err)
			os.Exit(1)
		}
		projectReports = append(projectReports, report)
	}

	totalHighRisk := 0
	for _, r := range projectReports {
		totalHighRisk += r.HighRiskGroupCount
	}
	gatePassed := totalHighRisk <= *maxHighRiskGroups

	gateReport := gateReport{
		GeneratedAt: domain.Now().UTC().Format(time.RFC3339),
		Thresholds: gateThresholds{
			MaxHighRiskGroups:          *maxHighRiskGroups,
			HighRiskMinGroupSize:       thresholds.minGroupSize,
			HighRiskMinUniqueVenues:    thresholds.minUniqueVenues,
			HighRiskMinLowConfidenceRatio: thresholds.minLowConfidenceRatio,
		},
		Summary: gateSummary{
			ProjectsChecked:    categories,
			TotalHighRiskGroups: totalHighRisk,
			GatePassed:         gatePassed,
		},
		Projects: projectReports,
	}

	outputPath := *reportOutput
	if outputPath == "" {
		outputPath = filepath.Join(cfg.Projects[categories[0]].Root, "..", "geo_overlap_quality_gate.json")
	}
	if err := writeReport(outputPath, gateReport); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: write report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("[geo-gate] projects=%s high_risk_groups=%d threshold=%d passed=%t\n",
		strings.Join(categories, ","), totalHighRisk, *maxHighRiskGroups, gatePassed)
	fmt.Printf("[geo-gate] report=%s\n", outputPath)

	if gatePassed {
		os.Exit(0)
	}
	os.Exit(2)
}

type thresholds struct {
	minGroupSize          int
	minUniqueVenues        int
	minLowConfidenceRatio float64
	topN                  int
}

type suspiciousGroup struct {
	Lat                 float64        `json:"lat"`
	Lng                 float64        `json:"lng"`
	GroupSize           int            `json:"group_size"`
	UniqueVenues        int            `json:"unique_venues"`
	UniquePrefectures   int            `json:"unique_prefectures"`
	LowConfidenceRatio  float64        `json:"low_confidence_ratio"`
	GeoSourceBreakdown  map[string]int `json:"geo_source_breakdown"`
	IsHighRisk          bool           `json:"is_high_risk"`
	RiskReasons         []string       `json:"risk_reasons"`
	Samples             []sampleRow    `json:"samples"`
}

type sampleRow struct {
	CanonicalID string `json:"canonical_id"`
	EventName   string `json:"event_name"`
	VenueName   string `json:"venue_name"`
	Prefecture  string `json:"prefecture"`
	GeoSource   string `json:"geo_source"`
}

type projectReport struct {
	Project             string            `json:"project"`
	RunID               string            `json:"run_id"`
	TotalRows           int               `json:"total_rows"`
	ValidCoordinateRows int               `json:"valid_coordinate_rows"`
	OverlapGroupCount   int               `json:"overlap_group_count"`
	OverlapRecordCount  int               `json:"overlap_record_count"`
	HighRiskGroupCount  int               `json:"high_risk_group_count"`
	TopSuspiciousGroups []suspiciousGroup `json:"top_suspicious_groups"`
}

type gateThresholds struct {
	MaxHighRiskGroups             int     `json:"max_high_risk_groups"`
	HighRiskMinGroupSize          int     `json:"high_risk_min_group_size"`
	HighRiskMinUniqueVenues       int     `json:"high_risk_min_unique_venues"`
	HighRiskMinLowConfidenceRatio float64 `json:"high_risk_min_low_confidence_ratio"`
}

type gateSummary struct {
	ProjectsChecked     []string `json:"projects_checked"`
	TotalHighRiskGroups int      `json:"total_high_risk_groups"`
	GatePassed          bool     `json:"gate_passed"`
}

type gateReport struct {
	GeneratedAt string          `json:"generated_at"`
	Thresholds  gateThresholds  `json:"thresholds"`
	Summary     gateSummary     `json:"summary"`
	Projects    []projectReport `json:"projects"`
}

func analyzeProject(category string, paths config.ProjectPaths, th thresholds) (projectReport, error) {
	meta, err := runstate.Load(filepath.Join(paths.Root, "latest_run.json"))
	if err != nil {
		return projectReport{}, fmt.Errorf("load latest_run.json: %w", err)
	}
	if meta.FusedRunID == "" {
		return projectReport{}, fmt.Errorf("fused_run_id is missing")
	}

	fusedPath := filepath.Join(paths.FusedDir, meta.FusedRunID, "events_fused.jsonl")
	f, err := os.Open(fusedPath)
	if err != nil {
		return projectReport{}, fmt.Errorf("fused file not found: %w", err)
	}
	defer f.Close()
	events, err := fusion.ReadCanonicalEventsJSONL(f)
	if err != nil {
		return projectReport{}, fmt.Errorf("parse fused file: %w", err)
	}

	type coordKey struct {
		lat, lng float64
	}
	groups := make(map[coordKey][]domain.CanonicalEvent)
	validCoordRows := 0
	for _, e := range events {
		lat, lng, ok := parseCoordinate(e.Lat, e.Lng)
		if !ok {
			continue
		}
		validCoordRows++
		groups[coordKey{round6(lat), round6(lng)}] = append(groups[coordKey{round6(lat), round6(lng)}], e)
	}

	var suspicious []suspiciousGroup
	highRiskCount := 0
	overlapRecordCount := 0
	overlapGroupCount := 0
	for key, members := range groups {
		if len(members) < 2 {
			continue
		}
		overlapGroupCount++
		overlapRecordCount += len(members)

		geoCounter := map[string]int{}
		lowConfCount := 0
		venueSet := map[string]struct{}{}
		prefectureSet := map[string]struct{}{}
		for _, m := range members {
			source := strings.TrimSpace(m.GeoSource)
			if source == "" {
				source = domain.GeoSourceMissing
			}
			geoCounter[source]++
			if domain.IsLowConfidenceGeoSource(m.GeoSource) {
				lowConfCount++
			}
			if venue := firstNonEmpty(m.VenueName, m.VenueAddress, m.EventName); venue != "" {
				venueSet[venue] = struct{}{}
			}
			if pref := extractPrefecture(m); pref != "" {
				prefectureSet[pref] = struct{}{}
			}
		}
		lowConfRatio := float64(lowConfCount) / float64(len(members))

		var reasons []string
		if len(prefectureSet) >= 2 {
			reasons = append(reasons, "cross_prefecture")
		}
		if len(members) >= th.minGroupSize && len(venueSet) >= th.minUniqueVenues && lowConfRatio >= th.minLowConfidenceRatio {
			reasons = append(reasons, "multi_venue_low_conf")
		}
		isHighRisk := len(reasons) > 0
		if isHighRisk {
			highRiskCount++
		}

		sampleCount := len(members)
		if sampleCount > 5 {
			sampleCount = 5
		}
		samples := make([]sampleRow, 0, sampleCount)
		for _, m := range members[:sampleCount] {
			geoSource := m.GeoSource
			if geoSource == "" {
				geoSource = domain.GeoSourceMissing
			}
			samples = append(samples, sampleRow{
				CanonicalID: m.CanonicalID, EventName: m.EventName, VenueName: m.VenueName,
				Prefecture: extractPrefecture(m), GeoSource: geoSource,
			})
		}

		suspicious = append(suspicious, suspiciousGroup{
			Lat: key.lat, Lng: key.lng, GroupSize: len(members),
			UniqueVenues: len(venueSet), UniquePrefectures: len(prefectureSet),
			LowConfidenceRatio: roundTo(lowConfRatio, 4), GeoSourceBreakdown: geoCounter,
			IsHighRisk: isHighRisk, RiskReasons: reasons, Samples: samples,
		})
	}

	sort.Slice(suspicious, func(i, j int) bool {
		a, b := suspicious[i], suspicious[j]
		if a.IsHighRisk != b.IsHighRisk {
			return a.IsHighRisk
		}
		if a.GroupSize != b.GroupSize {
			return a.GroupSize > b.GroupSize
		}
		if a.UniqueVenues != b.UniqueVenues {
			return a.UniqueVenues > b.UniqueVenues
		}
		return a.LowConfidenceRatio > b.LowConfidenceRatio
	})

	top := th.topN
	if top < 1 {
		top = 1
	}
	if top > len(suspicious) {
		top = len(suspicious)
	}

	return projectReport{
		Project: category, RunID: meta.FusedRunID, TotalRows: len(events),
		ValidCoordinateRows: validCoordRows, OverlapGroupCount: overlapGroupCount,
		OverlapRecordCount: overlapRecordCount, HighRiskGroupCount: highRiskCount,
		TopSuspiciousGroups: suspicious[:top],
	}, nil
}

func parseCoordinate(rawLat, rawLng string) (float64, float64, bool) {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(rawLng), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func round6(v float64) float64 {
	return roundTo(v, 6)
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+sign(v)*0.5)) / scale
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func extractPrefecture(e domain.CanonicalEvent) string {
	if strings.TrimSpace(e.Prefecture) != "" {
		return strings.TrimSpace(e.Prefecture)
	}
	text := firstNonEmpty(e.VenueAddress, e.VenueName, e.EventName)
	return prefecturePattern.FindString(text)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func writeReport(path string, report gateReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
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
