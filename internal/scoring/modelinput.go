package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/boogieLing/tsugie/internal/domain"
)

const (
	maxDescriptionChars = 2000
	maxOneLinerChars    = 240
	maxSourceURLsInput  = 3
)

// ModelInput is the bounded, privacy-trimmed payload sent to (or hashed
// against, for reuse purposes) a scoring backend: everything about a
// canonical event a judge would need, truncated so one event can never
// blow a prompt budget.
type ModelInput struct {
	Category            string   `json:"category"`
	EventName           string   `json:"event_name"`
	EventDateStart      string   `json:"event_date_start"`
	EventDateEnd        string   `json:"event_date_end"`
	EventTimeStart      string   `json:"event_time_start"`
	EventTimeEnd        string   `json:"event_time_end"`
	Prefecture          string   `json:"prefecture"`
	City                string   `json:"city"`
	VenueName           string   `json:"venue_name"`
	VenueAddress        string   `json:"venue_address"`
	LaunchCount         string   `json:"launch_count"`
	LaunchScale         string   `json:"launch_scale"`
	PaidSeat            string   `json:"paid_seat"`
	ExpectedVisitors    string   `json:"expected_visitors"`
	AccessText          string   `json:"access_text"`
	ParkingText         string   `json:"parking_text"`
	TrafficControlText  string   `json:"traffic_control_text"`
	DescriptionJP       string   `json:"description_jp"`
	OneLinerJP          string   `json:"one_liner_jp"`
	SourceURLs          []string `json:"source_urls"`
}

// BuildModelInput assembles a model input from a canonical event and
// whichever content record (if any) the resolver matched to it.
func BuildModelInput(event domain.CanonicalEvent, content *domain.ContentRecord, category string) ModelInput {
	description := ""
	oneLiner := ""
	if content != nil {
		description = firstNonEmpty(content.PolishedDescriptionJA, content.RawDescription)
		oneLiner = content.OneLinerJA
	}

	urls := event.SourceURLs
	if len(urls) > maxSourceURLsInput {
		urls = urls[:maxSourceURLsInput]
	}

	return ModelInput{
		Category:           category,
		EventName:          event.EventName,
		EventDateStart:     event.EventDateStart,
		EventDateEnd:       event.EventDateEnd,
		EventTimeStart:     event.EventTimeStart,
		EventTimeEnd:       event.EventTimeEnd,
		Prefecture:         event.Prefecture,
		City:                event.City,
		VenueName:          event.VenueName,
		VenueAddress:       event.VenueAddress,
		LaunchCount:        event.LaunchCount,
		LaunchScale:        event.LaunchScale,
		PaidSeat:           event.PaidSeat,
		ExpectedVisitors:   event.ExpectedVisitors,
		AccessText:         event.AccessText,
		ParkingText:        event.ParkingText,
		TrafficControlText: event.TrafficControlText,
		DescriptionJP:      truncate(description, maxDescriptionChars),
		OneLinerJP:         truncate(oneLiner, maxOneLinerChars),
		SourceURLs:         append([]string(nil), urls...),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// InputHash deterministically hashes a model input so later runs can
// tell whether an event's scoring-relevant content has changed since it
// was last scored. Go's json.Marshal sorts map keys, giving the same
// canonical-ordering guarantee the original's sort_keys=True JSON
// encoding relies on.
func InputHash(input ModelInput) string {
	payload := map[string]any{
		"category":              input.Category,
		"event_name":            input.EventName,
		"event_date_start":      input.EventDateStart,
		"event_date_end":        input.EventDateEnd,
		"event_time_start":      input.EventTimeStart,
		"event_time_end":        input.EventTimeEnd,
		"prefecture":            input.Prefecture,
		"city":                  input.City,
		"venue_name":            input.VenueName,
		"venue_address":         input.VenueAddress,
		"launch_count":          input.LaunchCount,
		"launch_scale":          input.LaunchScale,
		"paid_seat":             input.PaidSeat,
		"expected_visitors":     input.ExpectedVisitors,
		"access_text":           input.AccessText,
		"parking_text":          input.ParkingText,
		"traffic_control_text":  input.TrafficControlText,
		"description_jp":        input.DescriptionJP,
		"one_liner_jp":          input.OneLinerJP,
		"source_urls":           input.SourceURLs,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
