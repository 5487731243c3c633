// Package geocoder implements the fusion engine's sole network
// collaborator: a rate-limited HTTP geocoding client backed by a durable
// CSV cache, so repeated runs over the same venues never re-spend quota.
package geocoder

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/boogieLing/tsugie/internal/domain"
)

var cacheHeader = []string{"query", "lat", "lng", "status", "title", "error", "updated_at"}

type cacheEntry struct {
	Lat       *float64
	Lng       *float64
	Status    string
	Title     string
	Error     string
	UpdatedAt string
}

// Cache is an exact-match (no query normalization), single-writer CSV
// cache keyed by raw query string. It is loaded once at startup and
// flushed at the end of a run; it is not safe for concurrent geocode
// calls with overlapping queries, matching the collaborator's
// single-instance-per-stage contract.
type Cache struct {
	path string
	mu   sync.Mutex
	data map[string]cacheEntry
	dirty bool
}

// NewCache loads an existing cache file, or starts empty if none exists.
func NewCache(path string) (*Cache, error) {
	c := &Cache{path: path, data: make(map[string]cacheEntry)}
	if path == "" {
		return c, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return c, nil
	}
	for _, row := range records[1:] {
		if len(row) < 7 {
			continue
		}
		entry := cacheEntry{
			Status:    row[3],
			Title:     row[4],
			Error:     row[5],
			UpdatedAt: row[6],
		}
		if lat, err := strconv.ParseFloat(row[1], 64); err == nil {
			entry.Lat = &lat
		}
		if lng, err := strconv.ParseFloat(row[2], 64); err == nil {
			entry.Lng = &lng
		}
		c.data[row[0]] = entry
	}
	return c, nil
}

// Get returns a cached response for an exact query string, if present.
func (c *Cache) Get(query string) (domain.GeocodeResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[query]
	if !ok {
		return domain.GeocodeResponse{}, false
	}
	status := entry.Status
	if status == domain.GeocodeStatusOK {
		status = domain.GeocodeStatusCachedOK
	}
	return domain.GeocodeResponse{
		Status: status, Query: query, Lat: entry.Lat, Lng: entry.Lng,
		Title: entry.Title, Error: entry.Error, CacheHit: true,
	}, true
}

// Put records a fresh response, overwriting any prior entry for the same
// query.
func (c *Cache) Put(query string, resp domain.GeocodeResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[query] = cacheEntry{
		Lat: resp.Lat, Lng: resp.Lng, Status: resp.Status,
		Title: resp.Title, Error: resp.Error, UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	c.dirty = true
}

// Save flushes the cache to disk if anything changed since it was loaded.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" || !c.dirty {
		return nil
	}
	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cacheHeader); err != nil {
		return err
	}
	for query, entry := range c.data {
		row := []string{query, floatOrEmpty(entry.Lat), floatOrEmpty(entry.Lng), entry.Status, entry.Title, entry.Error, entry.UpdatedAt}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	c.dirty = false
	return w.Error()
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
