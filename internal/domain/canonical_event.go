package domain

import (
	"strings"
	"time"
)

// Geo-source tags, in the order a canonical event's coordinate resolution
// can arrive at them.
const (
	GeoSourceExact                      = "source_exact"
	GeoSourceNetworkGeocode              = "network_geocode"
	GeoSourceNetworkGeocodeTitle         = "network_geocode_title"
	GeoSourceNetworkGeocodeCache         = "network_geocode_cache"
	GeoSourceNetworkGeocodeTitleCache    = "network_geocode_title_cache"
	GeoSourceOverlapRepair               = "network_geocode_overlap_repair"
	GeoSourceOverlapRepairTitle          = "network_geocode_overlap_repair_title"
	GeoSourceOverlapRepairCache          = "network_geocode_overlap_repair_cache"
	GeoSourceOverlapRepairTitleCache     = "network_geocode_overlap_repair_title_cache"
	GeoSourcePrefCenterFallback          = "pref_center_fallback"
	GeoSourceMissing                     = "missing"
)

// Update-priority tags for incomplete canonical events.
const (
	PriorityNone   = "none"
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// IsLowConfidenceGeoSource reports whether a geo_source value is one the
// overlap-repair pass should reconsider: missing, the prefecture-center
// fallback, or any network_geocode* variant (including its repaired forms).
func IsLowConfidenceGeoSource(source string) bool {
	s := strings.TrimSpace(source)
	if s == "" {
		return true
	}
	if s == GeoSourceMissing || s == GeoSourcePrefCenterFallback {
		return true
	}
	return strings.HasPrefix(s, "network_geocode")
}

// CanonicalEvent is the fusion engine's output: one event resolved from
// potentially many noisy raw rows sharing a dedup key.
type CanonicalEvent struct {
	CanonicalID string    `json:"canonical_id"`
	DedupKey    string    `json:"dedup_key"`
	EventYear   string    `json:"event_year"`
	SourceSites []string  `json:"source_sites"`
	SourceURLs  []string  `json:"source_urls"`
	SourceCount int       `json:"source_count"`
	FusedAt     time.Time `json:"fused_at"`

	EventName           string `json:"event_name"`
	EventDateStart      string `json:"event_date_start"`
	EventDateEnd        string `json:"event_date_end"`
	EventTimeStart      string `json:"event_time_start"`
	EventTimeEnd        string `json:"event_time_end"`
	VenueName           string `json:"venue_name"`
	VenueAddress        string `json:"venue_address"`
	Prefecture          string `json:"prefecture"`
	City                string `json:"city"`
	LaunchCount         string `json:"launch_count"`
	LaunchScale         string `json:"launch_scale"`
	PaidSeat            string `json:"paid_seat"`
	AccessText          string `json:"access_text"`
	ParkingText         string `json:"parking_text"`
	TrafficControlText  string `json:"traffic_control_text"`
	RainoutPolicy       string `json:"rainout_policy"`
	Contact             string `json:"contact"`
	WeatherSummary      string `json:"weather_summary"`
	ExpectedVisitors    string `json:"expected_visitors,omitempty"`

	Lat       string `json:"lat"`
	Lng       string `json:"lng"`
	GeoSource string `json:"geo_source"`

	IsInfoIncomplete     bool   `json:"is_info_incomplete"`
	IncompleteFieldCount int    `json:"incomplete_field_count"`
	IncompleteFields     string `json:"incomplete_fields"`
	UpdatePriority       string `json:"update_priority"`
}

// SetField assigns one of the fusion-voted fields by name. Unknown names
// are ignored; the fusion engine only calls this with names drawn from
// [FusionFields].
func (c *CanonicalEvent) SetField(name, value string) {
	switch name {
	case "event_name":
		c.EventName = value
	case "event_date_start":
		c.EventDateStart = value
	case "event_date_end":
		c.EventDateEnd = value
	case "event_time_start":
		c.EventTimeStart = value
	case "event_time_end":
		c.EventTimeEnd = value
	case "venue_name":
		c.VenueName = value
	case "venue_address":
		c.VenueAddress = value
	case "prefecture":
		c.Prefecture = value
	case "city":
		c.City = value
	case "lat":
		c.Lat = value
	case "lng":
		c.Lng = value
	case "launch_count":
		c.LaunchCount = value
	case "launch_scale":
		c.LaunchScale = value
	case "paid_seat":
		c.PaidSeat = value
	case "access_text":
		c.AccessText = value
	case "parking_text":
		c.ParkingText = value
	case "traffic_control_text":
		c.TrafficControlText = value
	case "rainout_policy":
		c.RainoutPolicy = value
	case "contact":
		c.Contact = value
	case "weather_summary":
		c.WeatherSummary = value
	}
}

// Field reads back one of the fusion-voted fields by name.
func (c *CanonicalEvent) Field(name string) string {
	switch name {
	case "event_name":
		return c.EventName
	case "event_date_start":
		return c.EventDateStart
	case "event_date_end":
		return c.EventDateEnd
	case "event_time_start":
		return c.EventTimeStart
	case "event_time_end":
		return c.EventTimeEnd
	case "venue_name":
		return c.VenueName
	case "venue_address":
		return c.VenueAddress
	case "prefecture":
		return c.Prefecture
	case "city":
		return c.City
	case "lat":
		return c.Lat
	case "lng":
		return c.Lng
	case "launch_count":
		return c.LaunchCount
	case "launch_scale":
		return c.LaunchScale
	case "paid_seat":
		return c.PaidSeat
	case "access_text":
		return c.AccessText
	case "parking_text":
		return c.ParkingText
	case "traffic_control_text":
		return c.TrafficControlText
	case "rainout_policy":
		return c.RainoutPolicy
	case "contact":
		return c.Contact
	case "weather_summary":
		return c.WeatherSummary
	default:
		return ""
	}
}
