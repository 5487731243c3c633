package domain

// ExportEntry is one row of the obfuscated iOS spatial export: a canonical
// event flattened down to exactly what the client needs to place a pin and
// show a teaser.
type ExportEntry struct {
	IOSPlaceID string `json:"ios_place_id"`
	CanonicalID string `json:"canonical_id"`
	Category    string `json:"category"`
	EventName   string `json:"event_name"`

	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Geohash string  `json:"geohash"`

	// DistanceMeters is a placeholder client-facing "distance from you"
	// figure derived from a hash of CanonicalID, not a real measurement.
	// See export.DistanceMeters for the exact formula.
	DistanceMeters int `json:"distance_meters"`

	Hint string `json:"hint"`

	HeatScore     int `json:"heat_score"`
	SurpriseScore int `json:"surprise_score"`

	OneLinerJA string `json:"one_liner_ja,omitempty"`
	OneLinerZH string `json:"one_liner_zh,omitempty"`
	OneLinerEN string `json:"one_liner_en,omitempty"`

	// ContentImageSourceURL is the first non-generic image URL the
	// content stage harvested, kept for client-side attribution even
	// when no local image bytes were downloaded.
	ContentImageSourceURL string `json:"content_image_source_url,omitempty"`

	// ImageRawSHA references this entry's deduplicated chunk in the
	// image payload by raw_sha, matching a key in that payload's index.
	ImageRawSHA string `json:"image_raw_sha,omitempty"`

	SourceCount int `json:"source_count"`
}

// SpatialBucket is one geohash-keyed chunk of the spatial payload.
type SpatialBucket struct {
	Geohash      string `json:"geohash"`
	RecordCount  int    `json:"record_count"`
	PayloadSHA256 string `json:"payload_sha256"`
	PayloadOffset int   `json:"payload_offset"`
	PayloadLength int   `json:"payload_length"`
}
