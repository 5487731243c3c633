package domain

import "encoding/json"

// RawRecord is one observation from one site. The source scrapers are
// external collaborators; this pipeline only consumes their newline-
// delimited JSON output. No field is guaranteed present or well-formed.
type RawRecord struct {
	SourceSite string `json:"source_site"`
	SourceURL  string `json:"source_url"`

	EventName      string `json:"event_name"`
	EventDateStart string `json:"event_date_start"`
	EventDateEnd   string `json:"event_date_end"`
	EventTimeStart string `json:"event_time_start"`
	EventTimeEnd   string `json:"event_time_end"`

	VenueName    string `json:"venue_name"`
	VenueAddress string `json:"venue_address"`
	Prefecture   string `json:"prefecture"`
	City         string `json:"city"`

	Lat string `json:"lat"`
	Lng string `json:"lng"`

	LaunchCount         string `json:"launch_count"`
	LaunchScale         string `json:"launch_scale"`
	PaidSeat            string `json:"paid_seat"`
	AccessText          string `json:"access_text"`
	ParkingText         string `json:"parking_text"`
	TrafficControlText  string `json:"traffic_control_text"`
	RainoutPolicy       string `json:"rainout_policy"`
	Contact             string `json:"contact"`
	WeatherSummary      string `json:"weather_summary"`
	ExpectedVisitors    string `json:"expected_visitors"`

	// Extra preserves JSON keys this struct does not model by name, so a
	// faithful re-serialization of a raw row never silently drops input
	// until a fusion field winner has actually been chosen.
	Extra map[string]any `json:"-"`
}

// Field returns the value of one of the fusion-voted fields by name,
// matching the fixed field list in the fusion engine's scoring table.
func (r RawRecord) Field(name string) string {
	switch name {
	case "event_name":
		return r.EventName
	case "event_date_start":
		return r.EventDateStart
	case "event_date_end":
		return r.EventDateEnd
	case "event_time_start":
		return r.EventTimeStart
	case "event_time_end":
		return r.EventTimeEnd
	case "venue_name":
		return r.VenueName
	case "venue_address":
		return r.VenueAddress
	case "prefecture":
		return r.Prefecture
	case "city":
		return r.City
	case "lat":
		return r.Lat
	case "lng":
		return r.Lng
	case "launch_count":
		return r.LaunchCount
	case "launch_scale":
		return r.LaunchScale
	case "paid_seat":
		return r.PaidSeat
	case "access_text":
		return r.AccessText
	case "parking_text":
		return r.ParkingText
	case "traffic_control_text":
		return r.TrafficControlText
	case "rainout_policy":
		return r.RainoutPolicy
	case "contact":
		return r.Contact
	case "weather_summary":
		return r.WeatherSummary
	default:
		if r.Extra == nil {
			return ""
		}
		if v, ok := r.Extra[name]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
}

// rawRecordKnownKeys lists every JSON key RawRecord models by name; any
// other key in a decoded object is preserved in Extra instead of being
// silently dropped.
var rawRecordKnownKeys = map[string]bool{
	"source_site": true, "source_url": true,
	"event_name": true, "event_date_start": true, "event_date_end": true,
	"event_time_start": true, "event_time_end": true,
	"venue_name": true, "venue_address": true, "prefecture": true, "city": true,
	"lat": true, "lng": true,
	"launch_count": true, "launch_scale": true, "paid_seat": true,
	"access_text": true, "parking_text": true, "traffic_control_text": true,
	"rainout_policy": true, "contact": true, "weather_summary": true,
	"expected_visitors": true,
}

// rawRecordAlias has the same fields as RawRecord but none of its
// methods, so UnmarshalJSON/MarshalJSON can decode/encode through it
// without recursing into themselves.
type rawRecordAlias RawRecord

// UnmarshalJSON decodes the modeled fields normally, then stashes every
// unrecognized key into Extra so a round trip never drops scraper
// output the fusion engine hasn't been taught to vote on yet.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var alias rawRecordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	extra := make(map[string]any)
	for key, value := range raw {
		if rawRecordKnownKeys[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			continue
		}
		extra[key] = v
	}
	*r = RawRecord(alias)
	if len(extra) > 0 {
		r.Extra = extra
	}
	return nil
}

// MarshalJSON encodes the modeled fields plus every Extra key, so a
// record round-trips through JSON without losing unmodeled input.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(rawRecordAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return data, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range r.Extra {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[key] = encoded
	}
	return json.Marshal(merged)
}

// FusionFields lists the fields the fusion engine votes on, in output order.
var FusionFields = []string{
	"event_name",
	"event_date_start",
	"event_date_end",
	"event_time_start",
	"event_time_end",
	"venue_name",
	"venue_address",
	"prefecture",
	"city",
	"lat",
	"lng",
	"launch_count",
	"launch_scale",
	"paid_seat",
	"access_text",
	"parking_text",
	"traffic_control_text",
	"rainout_policy",
	"contact",
	"weather_summary",
}
