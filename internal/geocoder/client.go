package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/boogieLing/tsugie/internal/domain"
)

// Client implements domain.Geocoder against a Nominatim-shaped HTTP
// geocoding API: one free-text query parameter, a JSON array of results
// each carrying lat/lon strings and a display name. It checks the cache
// first, then rate-limits network calls so a big fusion run never bursts
// past the backend's quota.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	cache      *Cache
	logger     *slog.Logger
}

// NewClient builds a geocoding client. qps of zero or less disables
// rate limiting (useful in tests against an httptest server).
func NewClient(baseURL string, timeout time.Duration, qps float64, cache *Cache, logger *slog.Logger) *Client {
	var limiter *rate.Limiter
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    limiter,
		cache:      cache,
		logger:     logger,
	}
}

// Geocode resolves a free-text query to a coordinate, consulting the
// cache before ever touching the network.
func (c *Client) Geocode(ctx context.Context, query string) (domain.GeocodeResponse, error) {
	if c.cache != nil {
		if resp, ok := c.cache.Get(query); ok {
			return resp, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.GeocodeResponse{}, fmt.Errorf("geocoder rate limiter: %w", err)
		}
	}

	resp, err := c.doRequest(ctx, query)
	if err != nil {
		resp = domain.GeocodeResponse{Status: domain.GeocodeStatusError, Query: query, Error: err.Error()}
	}
	if c.cache != nil {
		c.cache.Put(query, resp)
	}
	return resp, nil
}

func (c *Client) doRequest(ctx context.Context, query string) (domain.GeocodeResponse, error) {
	params := url.Values{"q": {query}, "format": {"json"}, "limit": {"1"}}
	fullURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodeResponse{}, fmt.Errorf("create geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodeResponse{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.GeocodeResponse{}, fmt.Errorf("geocoder API error: status %d: %s", resp.StatusCode, body)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.GeocodeResponse{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(results) == 0 {
		return domain.GeocodeResponse{Status: domain.GeocodeStatusNoResult, Query: query}, nil
	}

	r := results[0]
	lat, lng, err := r.coords()
	if err != nil {
		return domain.GeocodeResponse{Status: domain.GeocodeStatusError, Query: query, Error: err.Error()}, nil
	}
	return domain.GeocodeResponse{
		Status: domain.GeocodeStatusOK, Query: query, Lat: &lat, Lng: &lng, Title: r.DisplayName,
	}, nil
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (r searchResult) coords() (lat, lng float64, err error) {
	if _, err = fmt.Sscanf(r.Lat, "%f", &lat); err != nil {
		return 0, 0, fmt.Errorf("parse lat %q: %w", r.Lat, err)
	}
	if _, err = fmt.Sscanf(r.Lon, "%f", &lng); err != nil {
		return 0, 0, fmt.Errorf("parse lon %q: %w", r.Lon, err)
	}
	return lat, lng, nil
}
