package fusion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/boogieLing/tsugie/internal/domain"
)

// Options configures one fusion run.
type Options struct {
	RunID    string
	Aliases  domain.AliasMap
	Geocoder domain.Geocoder // nil disables all network geocoding

	// TargetYear, when non-empty and StrictYear is true, drops every row
	// whose extracted event year does not match before grouping begins.
	TargetYear string
	StrictYear bool
}

// Stats summarizes one fusion run for operator-facing logging.
type Stats struct {
	InputRowsRaw             int
	InputRowsAfterYearFilter int
	YearFilterEnabled        bool
	TargetYear               string
	YearDroppedRows          int
	GroupCount               int

	GeocodeAttempted int
	GeocodeResolved  int
	GeocodeCacheHits int

	IncompleteCount       int
	AliasMapEntries       int
	AliasCandidatesCount  int

	Overlap OverlapRepairStats
}

// Result is everything one fusion run produces: the canonical events plus
// every diagnostic log a human (or the quality-gate stage) might need.
type Result struct {
	Events           []domain.CanonicalEvent
	DedupLog         []DedupLogEntry
	GeocodeLog       []GeocodeLogEntry
	OverlapRepairLog []OverlapRepairLogEntry
	IncompleteLog    []IncompleteLogEntry
	AliasCandidates  []AliasCandidateEntry
	Stats            Stats
}

// Fuse merges raw per-site rows into canonical events: normalizing
// names, optionally filtering by year, grouping by dedup key, voting a
// winning value per field, resolving a coordinate, repairing coordinate
// overlaps, and tagging incompleteness.
func Fuse(ctx context.Context, rows []domain.RawRecord, opts Options) (Result, error) {
	inputRowsRaw := len(rows)

	enriched := make([]enrichedRow, 0, len(rows))
	for _, r := range rows {
		enriched = append(enriched, enrichRow(r, opts.Aliases))
	}

	yearFilterEnabled := opts.StrictYear && opts.TargetYear != ""
	if yearFilterEnabled {
		filtered := enriched[:0:0]
		for _, er := range enriched {
			if er.Year == opts.TargetYear {
				filtered = append(filtered, er)
			}
		}
		enriched = filtered
	}
	inputRowsAfterYearFilter := len(enriched)

	groups := make(map[string][]enrichedRow)
	var groupOrder []string
	for _, er := range enriched {
		key := dedupKey(er.NameCanonical, er.Year, er.DateToken, er.Prefecture, er.Raw.SourceURL)
		if _, seen := groups[key]; !seen {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], er)
	}

	var events []*domain.CanonicalEvent
	var dedupLog []DedupLogEntry
	var geocodeLog []GeocodeLogEntry
	var incompleteLog []IncompleteLogEntry
	stats := Stats{
		InputRowsRaw:             inputRowsRaw,
		InputRowsAfterYearFilter: inputRowsAfterYearFilter,
		YearFilterEnabled:        yearFilterEnabled,
		TargetYear:               opts.TargetYear,
		YearDroppedRows:          inputRowsRaw - inputRowsAfterYearFilter,
		GroupCount:               len(groupOrder),
		AliasMapEntries:          len(opts.Aliases),
	}

	for idx, key := range groupOrder {
		members := groups[key]
		canonicalID := fmt.Sprintf("E%06d", idx+1)

		event := buildCanonicalEvent(canonicalID, key, members)

		resolveCoordinate(ctx, event, opts.Geocoder, opts.RunID, &geocodeLog, &stats)

		tags, priority := computeIncompleteTags(event)
		event.IsInfoIncomplete = len(tags) > 0
		event.IncompleteFieldCount = len(tags)
		event.IncompleteFields = strings.Join(tags, "|")
		event.UpdatePriority = priority
		if len(tags) > 0 {
			stats.IncompleteCount++
			primarySite, primaryURL := pickPrimarySource(rowSites(members), rowURLs(members))
			incompleteLog = append(incompleteLog, IncompleteLogEntry{
				RunID:                opts.RunID,
				CanonicalID:          canonicalID,
				EventYear:            event.EventYear,
				EventName:            clean(event.EventName),
				IncompleteFieldCount: len(tags),
				IncompleteFields:     event.IncompleteFields,
				UpdatePriority:       priority,
				PrimarySourceSite:    primarySite,
				PrimarySourceURL:     primaryURL,
				RefreshMethod:        inferRefreshMethod(primaryURL),
				SourceSites:          strings.Join(event.SourceSites, "|"),
				SourceURLs:           strings.Join(event.SourceURLs, "|"),
			})
		}

		events = append(events, event)

		for i, m := range members {
			action := "merged"
			if i == 0 {
				action = "canonical"
			}
			dedupLog = append(dedupLog, DedupLogEntry{
				RunID:             opts.RunID,
				CanonicalID:       canonicalID,
				DedupKey:          key,
				SourceSite:        m.Raw.SourceSite,
				SourceURL:         m.Raw.SourceURL,
				EventYear:         m.Year,
				NameNormRaw:       m.NameRaw,
				NameNormCanonical: m.NameCanonical,
				AliasApplied:      m.AliasApplied,
				Action:            action,
			})
		}
	}

	overlapLog, overlapStats := repairOverlapCoordinates(ctx, events, opts.Geocoder, opts.RunID)
	stats.Overlap = overlapStats

	aliasCandidates := buildAliasCandidates(enriched, opts.RunID)
	stats.AliasCandidatesCount = len(aliasCandidates)

	out := Result{
		DedupLog:         dedupLog,
		GeocodeLog:       geocodeLog,
		OverlapRepairLog: overlapLog,
		IncompleteLog:    incompleteLog,
		AliasCandidates:  aliasCandidates,
		Stats:            stats,
	}
	out.Events = make([]domain.CanonicalEvent, len(events))
	for i, e := range events {
		out.Events[i] = *e
	}
	return out, nil
}

func rowSites(members []enrichedRow) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Raw.SourceSite
	}
	return out
}

func rowURLs(members []enrichedRow) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Raw.SourceURL
	}
	return out
}

// buildCanonicalEvent votes a winning value for every fusion field across
// a group's members and assembles identity/provenance metadata.
func buildCanonicalEvent(canonicalID, dedupKeyValue string, members []enrichedRow) *domain.CanonicalEvent {
	event := &domain.CanonicalEvent{
		CanonicalID: canonicalID,
		DedupKey:    dedupKeyValue,
		SourceSites: uniqueSorted(rowSites(members)),
		SourceURLs:  uniqueSorted(rowURLs(members)),
		SourceCount: len(members),
		FusedAt:     domain.Now(),
	}
	for _, m := range members {
		if m.Year != "" {
			event.EventYear = m.Year
			break
		}
	}

	for _, field := range domain.FusionFields {
		bestScore := -1
		bestVal := ""
		for _, m := range members {
			val := m.Raw.Field(field)
			score := scoreValue(field, val, m.Raw.SourceSite)
			if score > bestScore {
				bestScore = score
				bestVal = val
			}
		}
		event.SetField(field, bestVal)
	}
	return event
}

func uniqueSorted(values []string) []string {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if clean(v) != "" {
			set[v] = true
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// resolveCoordinate assigns lat/lng/geo_source to a freshly built
// canonical event: an exact coordinate if one parses, else a geocoder
// query ladder, else a prefecture-centroid fallback, else "missing".
func resolveCoordinate(ctx context.Context, event *domain.CanonicalEvent, geocoder domain.Geocoder, runID string, geocodeLog *[]GeocodeLogEntry, stats *Stats) {
	if lat, lng, ok := parseCoord(event.Lat, event.Lng); ok {
		event.Lat = formatCoord(lat)
		event.Lng = formatCoord(lng)
		event.GeoSource = domain.GeoSourceExact
		*geocodeLog = append(*geocodeLog, GeocodeLogEntry{
			RunID: runID, CanonicalID: event.CanonicalID, Source: "existing",
			Status: "existing_coord", Lat: formatCoord(lat), Lng: formatCoord(lng),
		})
		return
	}

	if geocoder == nil {
		assignPrefCenterOrMissing(event, runID, geocodeLog)
		return
	}

	queries := buildGeocodeQueries(event.VenueAddress, event.Prefecture, event.City, event.VenueName, event.EventName)
	if len(queries) == 0 {
		*geocodeLog = append(*geocodeLog, GeocodeLogEntry{
			RunID: runID, CanonicalID: event.CanonicalID, Source: "geocoder", Status: "skipped_no_query",
		})
	}

	resolved := false
	for _, q := range queries {
		stats.GeocodeAttempted++
		resp, err := geocoder.Geocode(ctx, q.Query)
		if err != nil {
			resp = domain.GeocodeResponse{Status: domain.GeocodeStatusError, Query: q.Query, Error: err.Error()}
		}
		if resp.CacheHit {
			stats.GeocodeCacheHits++
		}
		*geocodeLog = append(*geocodeLog, GeocodeLogEntry{
			RunID: runID, CanonicalID: event.CanonicalID, Source: "geocoder",
			Status: resp.Status, QueryStrategy: q.Strategy, Query: resp.Query,
			CacheHit: resp.CacheHit, Lat: formatOptCoord(resp.Lat), Lng: formatOptCoord(resp.Lng),
			Title: resp.Title, Error: resp.Error,
		})
		if !resp.Resolved() {
			continue
		}
		event.Lat = formatCoord(*resp.Lat)
		event.Lng = formatCoord(*resp.Lng)
		source := domain.GeoSourceNetworkGeocode
		if containsEventName(q.Strategy) {
			source = domain.GeoSourceNetworkGeocodeTitle
		}
		if resp.Status == domain.GeocodeStatusCachedOK {
			source += "_cache"
		}
		event.GeoSource = source
		stats.GeocodeResolved++
		resolved = true
		break
	}

	if !resolved {
		assignPrefCenterOrMissing(event, runID, geocodeLog)
	}
}

func assignPrefCenterOrMissing(event *domain.CanonicalEvent, runID string, geocodeLog *[]GeocodeLogEntry) {
	center, ok := resolvePrefectureCenter(event.Prefecture, event.VenueAddress, event.VenueName, event.EventName)
	if !ok {
		event.Lat = ""
		event.Lng = ""
		event.GeoSource = domain.GeoSourceMissing
		return
	}
	event.Lat = formatCoord(center.Lat)
	event.Lng = formatCoord(center.Lng)
	event.GeoSource = domain.GeoSourcePrefCenterFallback
	*geocodeLog = append(*geocodeLog, GeocodeLogEntry{
		RunID: runID, CanonicalID: event.CanonicalID, Source: "pref_center",
		Status: "fallback_pref_center", Lat: formatCoord(center.Lat), Lng: formatCoord(center.Lng),
	})
}
