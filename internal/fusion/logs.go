package fusion

// DedupLogEntry records which raw row contributed to which canonical
// event, and whether alias resolution changed its name.
type DedupLogEntry struct {
	RunID             string
	CanonicalID       string
	DedupKey          string
	SourceSite        string
	SourceURL         string
	EventYear         string
	NameNormRaw       string
	NameNormCanonical string
	AliasApplied      bool
	Action            string // "canonical" for the first member, "merged" otherwise
}

// GeocodeLogEntry records one geocoding attempt (or the decision to skip
// geocoding because an exact coordinate, or no usable query, was found).
type GeocodeLogEntry struct {
	RunID         string
	CanonicalID   string
	Source        string // "existing", "geocoder", or "pref_center"
	Status        string
	QueryStrategy string
	Query         string
	CacheHit      bool
	Lat           string
	Lng           string
	Title         string
	Error         string
}

// OverlapRepairLogEntry records one overlap-repair geocoding attempt.
type OverlapRepairLogEntry struct {
	RunID         string
	CanonicalID   string
	Source        string
	Status        string
	QueryStrategy string
	Query         string
	CacheHit      bool
	OldLat        string
	OldLng        string
	NewLat        string
	NewLng        string
	Title         string
	Error         string
}

// IncompleteLogEntry records one canonical event flagged as incomplete,
// along with a guess at how to refresh it.
type IncompleteLogEntry struct {
	RunID               string
	CanonicalID         string
	EventYear           string
	EventName           string
	IncompleteFieldCount int
	IncompleteFields    string
	UpdatePriority      string
	PrimarySourceSite   string
	PrimarySourceURL    string
	RefreshMethod       string
	SourceSites         string
	SourceURLs          string
}

// AliasCandidateEntry records a pair of raw normalized names that appear
// in the same date+prefecture bucket and are similar enough to suspect a
// missing alias-map entry.
type AliasCandidateEntry struct {
	RunID           string
	EventDate       string
	Prefecture      string
	NameNormA       string
	NameDisplayA    string
	SourceSiteA     string
	SourceURLA      string
	NameNormB       string
	NameDisplayB    string
	SourceSiteB     string
	SourceURLB      string
	NameSimilarity  float64
}

var (
	DedupLogHeader = []string{
		"run_id", "canonical_id", "dedup_key", "source_site", "source_url",
		"event_year", "name_norm_raw", "name_norm_canonical", "alias_applied", "action",
	}
	GeocodeLogHeader = []string{
		"run_id", "canonical_id", "source", "status", "query_strategy", "query",
		"cache_hit", "lat", "lng", "title", "error",
	}
	OverlapRepairLogHeader = []string{
		"run_id", "canonical_id", "source", "status", "query_strategy", "query",
		"cache_hit", "old_lat", "old_lng", "new_lat", "new_lng", "title", "error",
	}
	IncompleteLogHeader = []string{
		"run_id", "canonical_id", "event_year", "event_name", "incomplete_field_count",
		"incomplete_fields", "update_priority", "primary_source_site", "primary_source_url",
		"refresh_method", "source_sites", "source_urls",
	}
	AliasCandidatesHeader = []string{
		"run_id", "event_date", "prefecture", "name_norm_a", "name_display_a",
		"source_site_a", "source_url_a", "name_norm_b", "name_display_b",
		"source_site_b", "source_url_b", "name_similarity",
	}
)
