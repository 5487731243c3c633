package fusion

import (
	"context"
	"testing"

	"github.com/boogieLing/tsugie/internal/domain"
)

type stubGeocoder struct {
	responses map[string]domain.GeocodeResponse
	calls     []string
}

func (g *stubGeocoder) Geocode(_ context.Context, query string) (domain.GeocodeResponse, error) {
	g.calls = append(g.calls, query)
	if resp, ok := g.responses[query]; ok {
		return resp, nil
	}
	return domain.GeocodeResponse{Status: domain.GeocodeStatusNoResult, Query: query}, nil
}

func okResponse(lat, lng float64) domain.GeocodeResponse {
	return domain.GeocodeResponse{Status: domain.GeocodeStatusOK, Lat: &lat, Lng: &lng}
}

func TestFuse_MergesRowsSharingDedupKey(t *testing.T) {
	rows := []domain.RawRecord{
		{SourceSite: "hanabi_cloud", SourceURL: "https://a", EventName: "隅田川花火大会", EventDateStart: "2026-07-25", VenueName: "隅田公園", Lat: "35.71", Lng: "139.80"},
		{SourceSite: "jalan", SourceURL: "https://b", EventName: "隅田川花火大会", EventDateStart: "2026-07-25", LaunchCount: "20000発"},
	}
	result, err := Fuse(context.Background(), rows, Options{RunID: "run-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 merged event, got %d", len(result.Events))
	}
	e := result.Events[0]
	if e.SourceCount != 2 {
		t.Errorf("expected source count 2, got %d", e.SourceCount)
	}
	if e.LaunchCount != "20000発" {
		t.Errorf("expected launch count voted in from second row, got %q", e.LaunchCount)
	}
	if e.Lat != "35.71" || e.Lng != "139.8" {
		t.Errorf("expected exact coordinate retained, got %s/%s", e.Lat, e.Lng)
	}
	if e.GeoSource != domain.GeoSourceExact {
		t.Errorf("expected exact geo source, got %s", e.GeoSource)
	}
}

func TestFuse_DistinctNamesProduceSeparateEvents(t *testing.T) {
	rows := []domain.RawRecord{
		{SourceSite: "hanabi_cloud", SourceURL: "https://a", EventName: "隅田川花火大会", EventDateStart: "2026-07-25"},
		{SourceSite: "jalan", SourceURL: "https://b", EventName: "江戸川花火大会", EventDateStart: "2026-07-25"},
	}
	result, err := Fuse(context.Background(), rows, Options{RunID: "run-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("expected 2 distinct events, got %d", len(result.Events))
	}
}

func TestFuse_YearFilterDropsOtherYears(t *testing.T) {
	rows := []domain.RawRecord{
		{SourceSite: "hanabi_cloud", SourceURL: "https://a", EventName: "隅田川花火大会", EventDateStart: "2025-07-25"},
		{SourceSite: "jalan", SourceURL: "https://b", EventName: "隅田川花火大会", EventDateStart: "2026-07-25"},
	}
	result, err := Fuse(context.Background(), rows, Options{RunID: "run-1", StrictYear: true, TargetYear: "2026"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stats.InputRowsAfterYearFilter != 1 {
		t.Errorf("expected 1 row surviving the year filter, got %d", result.Stats.InputRowsAfterYearFilter)
	}
	if result.Stats.YearDroppedRows != 1 {
		t.Errorf("expected 1 dropped row, got %d", result.Stats.YearDroppedRows)
	}
}

func TestFuse_GeocoderResolvesMissingCoordinate(t *testing.T) {
	rows := []domain.RawRecord{
		{SourceSite: "hanabi_cloud", SourceURL: "https://a", EventName: "隅田川花火大会", EventDateStart: "2026-07-25", VenueAddress: "東京都台東区花川戸1丁目"},
	}
	geocoder := &stubGeocoder{responses: map[string]domain.GeocodeResponse{
		"東京都台東区花川戸1丁目": okResponse(35.71, 139.80),
	}}
	result, err := Fuse(context.Background(), rows, Options{RunID: "run-1", Geocoder: geocoder})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := result.Events[0]
	if e.GeoSource != domain.GeoSourceNetworkGeocode {
		t.Errorf("expected network_geocode source, got %s", e.GeoSource)
	}
	if e.Lat == "" || e.Lng == "" {
		t.Error("expected resolved coordinate")
	}
	if result.Stats.GeocodeResolved != 1 {
		t.Errorf("expected 1 geocode resolved, got %d", result.Stats.GeocodeResolved)
	}
}

func TestFuse_NoGeocoderFallsBackToPrefectureCenter(t *testing.T) {
	rows := []domain.RawRecord{
		{SourceSite: "hanabi_cloud", SourceURL: "https://a", EventName: "隅田川花火大会", EventDateStart: "2026-07-25", Prefecture: "東京都"},
	}
	result, err := Fuse(context.Background(), rows, Options{RunID: "run-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := result.Events[0]
	if e.GeoSource != domain.GeoSourcePrefCenterFallback {
		t.Errorf("expected pref_center_fallback, got %s", e.GeoSource)
	}
}

func TestFuse_UnresolvableCoordinateIsMissing(t *testing.T) {
	rows := []domain.RawRecord{
		{SourceSite: "hanabi_cloud", SourceURL: "https://a", EventName: "謎のイベント", EventDateStart: "2026-07-25"},
	}
	result, err := Fuse(context.Background(), rows, Options{RunID: "run-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := result.Events[0]
	if e.GeoSource != domain.GeoSourceMissing {
		t.Errorf("expected missing geo source, got %s", e.GeoSource)
	}
	if e.Lat != "" || e.Lng != "" {
		t.Errorf("expected empty coordinate, got %s/%s", e.Lat, e.Lng)
	}
}

func TestFuse_IncompleteEventIsLogged(t *testing.T) {
	rows := []domain.RawRecord{
		{SourceSite: "hanabi_cloud", SourceURL: "https://a", EventName: "隅田川花火大会", EventDateStart: "2026-07-25"},
	}
	result, err := Fuse(context.Background(), rows, Options{RunID: "run-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Events[0].IsInfoIncomplete {
		t.Error("expected event to be flagged incomplete (no launch_count, venue, etc.)")
	}
	if len(result.IncompleteLog) != 1 {
		t.Fatalf("expected 1 incomplete log entry, got %d", len(result.IncompleteLog))
	}
	if result.IncompleteLog[0].CanonicalID != result.Events[0].CanonicalID {
		t.Error("expected incomplete log entry to reference the canonical event")
	}
}

func TestFuse_OverlapRepairSeparatesCollapsedCoincidentEvents(t *testing.T) {
	rows := []domain.RawRecord{
		{SourceSite: "hanabi_cloud", SourceURL: "https://a", EventName: "隅田川花火大会", EventDateStart: "2026-07-25", Prefecture: "東京都", VenueName: "隅田公園"},
		{SourceSite: "jalan", SourceURL: "https://b", EventName: "江戸川花火大会", EventDateStart: "2026-07-25", Prefecture: "東京都", VenueName: "江戸川河川敷"},
	}
	geocoder := &stubGeocoder{responses: map[string]domain.GeocodeResponse{
		"東京都隅田公園江戸川河川敷": okResponse(35.8, 139.9),
	}}
	result, err := Fuse(context.Background(), rows, Options{RunID: "run-1", Geocoder: geocoder})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result.Events))
	}
	// Both events share a prefecture center fallback (no address/geocode
	// match during the first pass), so overlap repair should have at least
	// attempted to break the tie.
	if result.Stats.Overlap.GroupsDetected == 0 {
		t.Error("expected overlap repair to detect the coincident pair")
	}
}

func TestFuse_EmptyInputProducesNoEvents(t *testing.T) {
	result, err := Fuse(context.Background(), nil, Options{RunID: "run-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Events) != 0 {
		t.Errorf("expected no events, got %d", len(result.Events))
	}
	if result.Stats.GroupCount != 0 {
		t.Errorf("expected group count 0, got %d", result.Stats.GroupCount)
	}
}
