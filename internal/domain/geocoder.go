package domain

import "context"

// Geocoding response statuses.
const (
	GeocodeStatusOK       = "ok"
	GeocodeStatusCachedOK = "cached_ok"
	GeocodeStatusNoResult = "no_result"
	GeocodeStatusError    = "error"
)

// GeocodeResponse is the result of one geocode query, win or lose. Cache
// replays are reported as GeocodeStatusCachedOK, never GeocodeStatusOK, so
// callers can distinguish a live lookup from a cache hit without a
// separate flag for cost accounting.
type GeocodeResponse struct {
	Status   string
	Query    string
	Lat      *float64
	Lng      *float64
	Title    string
	Error    string
	CacheHit bool
}

// Resolved reports whether the response carries a usable coordinate.
func (r GeocodeResponse) Resolved() bool {
	if r.Status != GeocodeStatusOK && r.Status != GeocodeStatusCachedOK {
		return false
	}
	return r.Lat != nil && r.Lng != nil
}

// Geocoder is the fusion engine's and overlap-repair's sole collaborator
// for turning a free-text query into a coordinate. Implementations own
// their own cache and rate limiting; callers never see either directly.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (GeocodeResponse, error)
}
