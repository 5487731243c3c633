package fusion

// geocodeQuery is one candidate text query plus the strategy name that
// produced it, used for diagnostic logging.
type geocodeQuery struct {
	Query    string
	Strategy string
}

func dedupeQueries(in []geocodeQuery) []geocodeQuery {
	out := make([]geocodeQuery, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, q := range in {
		text := clean(q.Query)
		if text == "" || len([]rune(text)) < 4 {
			continue
		}
		if seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, geocodeQuery{Query: text, Strategy: q.Strategy})
	}
	return out
}

// buildGeocodeQueries builds the ordered list of query candidates for a
// fresh (never-geocoded) canonical row: most specific address-like
// queries first, falling back to the bare event title last.
func buildGeocodeQueries(venueAddress, prefecture, city, venueName, eventName string) []geocodeQuery {
	venueAddress = clean(venueAddress)
	prefecture = clean(prefecture)
	city = clean(city)
	venueName = clean(venueName)
	eventName = clean(eventName)
	eventNameNorm := normalizeEventNameForGeocode(eventName)

	var queries []geocodeQuery
	if venueAddress != "" {
		queries = append(queries, geocodeQuery{venueAddress, "venue_address"})
	}
	if prefecture != "" || city != "" || venueName != "" {
		queries = append(queries, geocodeQuery{prefecture + city + venueName, "pref_city_venue"})
	}
	if prefecture != "" && venueName != "" {
		queries = append(queries, geocodeQuery{prefecture + venueName, "pref_venue"})
	}
	if city != "" && venueName != "" {
		queries = append(queries, geocodeQuery{city + venueName, "city_venue"})
	}
	if venueName != "" {
		queries = append(queries, geocodeQuery{venueName, "venue_name"})
	}
	if prefecture != "" && eventName != "" {
		queries = append(queries, geocodeQuery{prefecture + eventName, "pref_event_name"})
	}
	if eventNameNorm != "" && prefecture != "" {
		queries = append(queries, geocodeQuery{prefecture + eventNameNorm, "pref_event_name_normalized"})
	}
	if eventNameNorm != "" {
		queries = append(queries, geocodeQuery{eventNameNorm, "event_name_normalized"})
	}
	if eventName != "" {
		queries = append(queries, geocodeQuery{eventName, "event_name"})
	}
	return dedupeQueries(queries)
}

// buildOverlapRepairQueries builds the ordered list of query candidates
// used when re-resolving a coordinate suspected of being a collapsed
// overlap with another event. The order favors combinations least likely
// to have already failed in the first geocoding pass.
func buildOverlapRepairQueries(prefecture, city, venueName, venueAddress, eventName string) []geocodeQuery {
	prefecture = clean(prefecture)
	city = clean(city)
	venueName = clean(venueName)
	venueAddress = clean(venueAddress)
	eventName = clean(eventName)
	eventNameNorm := normalizeEventNameForGeocode(eventName)

	var queries []geocodeQuery
	if prefecture != "" || city != "" || venueName != "" || venueAddress != "" {
		queries = append(queries, geocodeQuery{prefecture + city + venueName + venueAddress, "repair_pref_city_venue_address"})
	}
	if prefecture != "" && city != "" && eventNameNorm != "" {
		queries = append(queries, geocodeQuery{prefecture + city + eventNameNorm, "repair_pref_city_event_name_normalized"})
	}
	if prefecture != "" && eventNameNorm != "" && venueName != "" {
		queries = append(queries, geocodeQuery{prefecture + eventNameNorm + venueName, "repair_pref_event_name_venue"})
	}
	if prefecture != "" && eventName != "" {
		queries = append(queries, geocodeQuery{prefecture + eventName, "repair_pref_event_name_raw"})
	}
	if eventNameNorm != "" && venueName != "" {
		queries = append(queries, geocodeQuery{eventNameNorm + venueName, "repair_event_name_venue"})
	}
	if venueAddress != "" && eventNameNorm != "" {
		queries = append(queries, geocodeQuery{venueAddress + eventNameNorm, "repair_venue_address_event_name"})
	}
	if venueAddress != "" {
		queries = append(queries, geocodeQuery{venueAddress, "repair_venue_address_only"})
	}
	if prefecture != "" && venueName != "" {
		queries = append(queries, geocodeQuery{prefecture + venueName, "repair_pref_venue"})
	}
	if eventNameNorm != "" {
		queries = append(queries, geocodeQuery{eventNameNorm, "repair_event_name_normalized"})
	}
	if eventName != "" {
		queries = append(queries, geocodeQuery{eventName, "repair_event_name_raw"})
	}
	return dedupeQueries(queries)
}
