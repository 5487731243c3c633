package fusion

import "github.com/boogieLing/tsugie/internal/domain"

// enrichedRow pairs a raw observation with the derived fields the fusion
// pass needs repeatedly: its year, its normalized names, and its
// prefecture/date tokens for dedup-key and bucketing purposes.
type enrichedRow struct {
	Raw domain.RawRecord

	Year          string
	NameRaw       string
	NameCanonical string
	AliasApplied  bool
	DateToken     string
	Prefecture    string
}

func enrichRow(r domain.RawRecord, aliases domain.AliasMap) enrichedRow {
	year := extractEventYear(r)
	nameRaw, nameCanonical, aliasApplied := normalizeName(r.EventName, aliases)
	// Mirrors the dedup key's own prefecture derivation, which always reads
	// from address/venue/event text rather than a row's own prefecture field.
	pref := extractPrefecture(firstNonEmpty(r.VenueAddress, r.VenueName, r.EventName))
	return enrichedRow{
		Raw:           r,
		Year:          year,
		NameRaw:       nameRaw,
		NameCanonical: nameCanonical,
		AliasApplied:  aliasApplied,
		DateToken:     extractDateToken(r.EventDateStart),
		Prefecture:    pref,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if clean(v) != "" {
			return v
		}
	}
	return ""
}
