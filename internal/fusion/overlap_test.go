package fusion

import (
	"context"
	"testing"

	"github.com/boogieLing/tsugie/internal/domain"
)

func TestRepairOverlapCoordinates_NilGeocoderIsNoop(t *testing.T) {
	events := []*domain.CanonicalEvent{
		{CanonicalID: "E000001", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourcePrefCenterFallback},
		{CanonicalID: "E000002", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourcePrefCenterFallback},
	}
	log, stats := repairOverlapCoordinates(context.Background(), events, nil, "run-1")
	if len(log) != 0 {
		t.Errorf("expected no log entries with nil geocoder, got %+v", log)
	}
	if stats.GroupsDetected != 0 {
		t.Errorf("expected no groups detected, got %d", stats.GroupsDetected)
	}
}

func TestRepairOverlapCoordinates_IgnoresHighConfidenceMatches(t *testing.T) {
	events := []*domain.CanonicalEvent{
		{CanonicalID: "E000001", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourceExact},
		{CanonicalID: "E000002", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourceExact},
	}
	geocoder := &stubGeocoder{responses: map[string]domain.GeocodeResponse{}}
	log, stats := repairOverlapCoordinates(context.Background(), events, geocoder, "run-1")
	if stats.GroupsDetected != 0 {
		t.Errorf("expected exact-source overlaps to be left alone, got %d groups", stats.GroupsDetected)
	}
	if len(log) != 0 {
		t.Errorf("expected no log entries, got %+v", log)
	}
}

func TestRepairOverlapCoordinates_ResolvesOneMemberToADistinctPoint(t *testing.T) {
	events := []*domain.CanonicalEvent{
		{CanonicalID: "E000001", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourcePrefCenterFallback, Prefecture: "東京都", VenueName: "隅田公園"},
		{CanonicalID: "E000002", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourcePrefCenterFallback, Prefecture: "東京都", VenueName: "江戸川河川敷"},
	}
	geocoder := &stubGeocoder{responses: map[string]domain.GeocodeResponse{
		"東京都隅田公園": okResponse(35.71, 139.80),
	}}
	log, stats := repairOverlapCoordinates(context.Background(), events, geocoder, "run-1")
	if stats.GroupsDetected != 1 {
		t.Fatalf("expected 1 group detected, got %d", stats.GroupsDetected)
	}
	if stats.RepairResolved != 1 {
		t.Errorf("expected 1 member repaired, got %d", stats.RepairResolved)
	}
	if events[0].GeoSource != domain.GeoSourceOverlapRepair {
		t.Errorf("expected repaired event to carry overlap_repair source, got %s", events[0].GeoSource)
	}
	if events[0].Lat == "35.0" {
		t.Error("expected first event's coordinate to move away from the collapsed point")
	}
	if len(log) == 0 {
		t.Error("expected at least one log entry")
	}
}

func TestRepairOverlapCoordinates_SkipsWhenNoQueryCanBeBuilt(t *testing.T) {
	events := []*domain.CanonicalEvent{
		{CanonicalID: "E000001", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourceMissing},
		{CanonicalID: "E000002", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourceMissing},
	}
	geocoder := &stubGeocoder{responses: map[string]domain.GeocodeResponse{}}
	log, stats := repairOverlapCoordinates(context.Background(), events, geocoder, "run-1")
	if stats.RepairSkippedNoQuery != 2 {
		t.Errorf("expected both members skipped for lack of any field to query on, got %d", stats.RepairSkippedNoQuery)
	}
	for _, entry := range log {
		if entry.Status != "skipped_no_query" {
			t.Errorf("unexpected log entry status: %+v", entry)
		}
	}
}

func TestRepairOverlapCoordinates_NoEffectWhenNewPointMatchesOldWithinEpsilon(t *testing.T) {
	events := []*domain.CanonicalEvent{
		{CanonicalID: "E000001", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourcePrefCenterFallback, Prefecture: "東京都", VenueName: "隅田公園"},
		{CanonicalID: "E000002", Lat: "35.0", Lng: "139.0", GeoSource: domain.GeoSourcePrefCenterFallback, Prefecture: "東京都", VenueName: "江戸川河川敷"},
	}
	geocoder := &stubGeocoder{responses: map[string]domain.GeocodeResponse{
		"東京都隅田公園":     okResponse(35.0, 139.0),
		"東京都江戸川河川敷": okResponse(35.0, 139.0),
	}}
	_, stats := repairOverlapCoordinates(context.Background(), events, geocoder, "run-1")
	if stats.RepairResolved != 0 {
		t.Errorf("expected no repair to count as resolved when the new point equals the old one, got %d", stats.RepairResolved)
	}
	if events[0].Lat != "35.0" || events[1].Lat != "35.0" {
		t.Error("expected coordinates to remain unchanged")
	}
}

func TestParseCoord(t *testing.T) {
	if _, _, ok := parseCoord("", ""); ok {
		t.Error("expected empty coordinate to fail parsing")
	}
	if _, _, ok := parseCoord("not-a-number", "139.0"); ok {
		t.Error("expected invalid latitude to fail parsing")
	}
	lat, lng, ok := parseCoord("35.71", "139.80")
	if !ok || lat != 35.71 || lng != 139.80 {
		t.Errorf("expected valid coordinate to parse, got %v %v %v", lat, lng, ok)
	}
}

func TestFormatCoordAndFormatOptCoord(t *testing.T) {
	if got := formatCoord(139.80); got != "139.8" {
		t.Errorf("expected trimmed trailing zero, got %q", got)
	}
	if got := formatOptCoord(nil); got != "" {
		t.Errorf("expected empty string for nil pointer, got %q", got)
	}
	v := 35.71
	if got := formatOptCoord(&v); got != "35.71" {
		t.Errorf("expected formatted value, got %q", got)
	}
}

func TestContainsEventName(t *testing.T) {
	if !containsEventName("repair_event_name_normalized") {
		t.Error("expected strategy containing event_name to match")
	}
	if containsEventName("venue_address") {
		t.Error("expected strategy without event_name to not match")
	}
}

func TestRoundCoord(t *testing.T) {
	if got := roundCoord(35.7123456789); got != 35.712346 {
		t.Errorf("expected rounding to 6 decimal places, got %v", got)
	}
}
