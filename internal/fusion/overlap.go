package fusion

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/boogieLing/tsugie/internal/domain"
)

const coordEpsilon = 1e-6

func roundCoord(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// OverlapRepairStats tallies the outcome of one overlap-repair pass.
type OverlapRepairStats struct {
	GroupsDetected     int
	RowsConsidered     int
	RepairAttempted    int
	RepairResolved     int
	RepairCacheHits    int
	RepairSkippedNoQuery int
}

// RepairOverlapCoordinates re-runs the overlap-repair pass standalone
// against an already-fused set of canonical events, for a later
// diagnostic run against a run directory that never had a geocoder
// configured (or whose cache has since grown richer). It mutates and
// returns the same events it was given alongside the repair log and
// stats, matching Fuse's own in-place repair semantics.
func RepairOverlapCoordinates(ctx context.Context, events []domain.CanonicalEvent, geocoder domain.Geocoder, runID string) ([]domain.CanonicalEvent, []OverlapRepairLogEntry, OverlapRepairStats) {
	ptrs := make([]*domain.CanonicalEvent, len(events))
	for i := range events {
		ptrs[i] = &events[i]
	}
	log, stats := repairOverlapCoordinates(ctx, ptrs, geocoder, runID)
	return events, log, stats
}

// repairOverlapCoordinates finds groups of two or more canonical events
// that landed on the exact same rounded coordinate and whose geo_source
// is all low-confidence, then tries to re-geocode each member off a
// richer query built from its own fields. A repair only takes effect if
// the new coordinate actually differs from the old one by more than
// coordEpsilon in either axis — otherwise the geocoder just handed back
// the same collapsed point and nothing was gained.
func repairOverlapCoordinates(ctx context.Context, events []*domain.CanonicalEvent, geocoder domain.Geocoder, runID string) ([]OverlapRepairLogEntry, OverlapRepairStats) {
	var entries []OverlapRepairLogEntry
	var stats OverlapRepairStats
	if geocoder == nil {
		return entries, stats
	}

	type coordKey struct{ lat, lng float64 }
	grouped := make(map[coordKey][]*domain.CanonicalEvent)
	var groupOrder []coordKey
	for _, e := range events {
		lat, lng, ok := parseCoord(e.Lat, e.Lng)
		if !ok {
			continue
		}
		k := coordKey{roundCoord(lat), roundCoord(lng)}
		if _, seen := grouped[k]; !seen {
			groupOrder = append(groupOrder, k)
		}
		grouped[k] = append(grouped[k], e)
	}

	type suspiciousGroup struct {
		lat, lng float64
		members  []*domain.CanonicalEvent
	}
	var suspicious []suspiciousGroup
	for _, k := range groupOrder {
		members := grouped[k]
		if len(members) < 2 {
			continue
		}
		allLowConfidence := true
		for _, m := range members {
			if !domain.IsLowConfidenceGeoSource(m.GeoSource) {
				allLowConfidence = false
				break
			}
		}
		if !allLowConfidence {
			continue
		}
		suspicious = append(suspicious, suspiciousGroup{k.lat, k.lng, members})
	}
	stats.GroupsDetected = len(suspicious)

	for _, g := range suspicious {
		for _, row := range g.members {
			stats.RowsConsidered++
			queries := buildOverlapRepairQueries(row.Prefecture, row.City, row.VenueName, row.VenueAddress, row.EventName)
			if len(queries) == 0 {
				stats.RepairSkippedNoQuery++
				entries = append(entries, OverlapRepairLogEntry{
					RunID: runID, CanonicalID: row.CanonicalID, Source: "overlap_repair",
					Status: "skipped_no_query", OldLat: formatCoord(g.lat), OldLng: formatCoord(g.lng),
				})
				continue
			}

			for _, q := range queries {
				stats.RepairAttempted++
				resp, err := geocoder.Geocode(ctx, q.Query)
				if err != nil {
					resp = domain.GeocodeResponse{Status: domain.GeocodeStatusError, Query: q.Query, Error: err.Error()}
				}
				if resp.CacheHit {
					stats.RepairCacheHits++
				}
				entries = append(entries, OverlapRepairLogEntry{
					RunID: runID, CanonicalID: row.CanonicalID, Source: "overlap_repair",
					Status: resp.Status, QueryStrategy: q.Strategy, Query: resp.Query,
					CacheHit: resp.CacheHit, OldLat: formatCoord(g.lat), OldLng: formatCoord(g.lng),
					NewLat: formatOptCoord(resp.Lat), NewLng: formatOptCoord(resp.Lng),
					Title: resp.Title, Error: resp.Error,
				})
				if !resp.Resolved() {
					continue
				}
				if math.Abs(*resp.Lat-g.lat) <= coordEpsilon && math.Abs(*resp.Lng-g.lng) <= coordEpsilon {
					continue
				}

				repairedSource := domain.GeoSourceOverlapRepair
				if containsEventName(q.Strategy) {
					repairedSource = domain.GeoSourceOverlapRepairTitle
				}
				if resp.Status == domain.GeocodeStatusCachedOK {
					repairedSource += "_cache"
				}
				row.Lat = strconv.FormatFloat(*resp.Lat, 'f', -1, 64)
				row.Lng = strconv.FormatFloat(*resp.Lng, 'f', -1, 64)
				row.GeoSource = repairedSource
				stats.RepairResolved++
				break
			}
		}
	}

	return entries, stats
}

func containsEventName(strategy string) bool {
	return strings.Contains(strategy, "event_name")
}

func parseCoord(lat, lng string) (float64, float64, bool) {
	la, errA := strconv.ParseFloat(clean(lat), 64)
	ln, errB := strconv.ParseFloat(clean(lng), 64)
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return la, ln, true
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return formatCoord(*v)
}
