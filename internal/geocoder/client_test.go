package geocoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boogieLing/tsugie/internal/domain"
)

func TestClient_Geocode_ReturnsOKForFirstResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]searchResult{
			{Lat: "35.71", Lon: "139.80", DisplayName: "Taito"},
		})
	}))
	defer srv.Close()

	cache, _ := NewCache("")
	client := NewClient(srv.URL, 5*time.Second, 0, cache, nil)

	resp, err := client.Geocode(context.Background(), "東京都台東区")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.GeocodeStatusOK {
		t.Errorf("expected ok status, got %q", resp.Status)
	}
	if resp.Lat == nil || *resp.Lat != 35.71 {
		t.Errorf("expected lat 35.71, got %v", resp.Lat)
	}
	if resp.Title != "Taito" {
		t.Errorf("expected title, got %q", resp.Title)
	}
}

func TestClient_Geocode_NoResultsYieldsNoResultStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]searchResult{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, 0, nil, nil)
	resp, err := client.Geocode(context.Background(), "nowhere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.GeocodeStatusNoResult {
		t.Errorf("expected no_result, got %q", resp.Status)
	}
}

func TestClient_Geocode_ServesFromCacheBeforeNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode([]searchResult{{Lat: "1", Lon: "2", DisplayName: "x"}})
	}))
	defer srv.Close()

	cache, _ := NewCache("")
	client := NewClient(srv.URL, 5*time.Second, 0, cache, nil)

	if _, err := client.Geocode(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Geocode(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 network call, got %d", calls)
	}

	resp, ok := cache.Get("q")
	if !ok {
		t.Fatal("expected query cached")
	}
	if !resp.CacheHit {
		t.Error("expected CacheHit on the second response")
	}
}

func TestClient_Geocode_NonOKStatusIsReportedAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, 0, nil, nil)
	resp, err := client.Geocode(context.Background(), "q")
	if err != nil {
		t.Fatalf("expected Geocode to swallow the transport error into the response, got %v", err)
	}
	if resp.Status != domain.GeocodeStatusError {
		t.Errorf("expected error status, got %q", resp.Status)
	}
	if resp.Error == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestClient_Geocode_UnparseableCoordinatesAreReportedAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]searchResult{{Lat: "not-a-number", Lon: "139.80", DisplayName: "x"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, 0, nil, nil)
	resp, err := client.Geocode(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.GeocodeStatusError {
		t.Errorf("expected error status for unparseable coordinate, got %q", resp.Status)
	}
}

func TestClient_Geocode_RespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]searchResult{{Lat: "1", Lon: "2"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, 1, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Geocode(ctx, "q")
	if err == nil {
		t.Error("expected an error from a canceled rate limiter wait")
	}
}
