package fusion

import (
	"fmt"
	"regexp"

	"github.com/boogieLing/tsugie/internal/domain"
)

var (
	reDateISO   = regexp.MustCompile(`(20\d{2})-(\d{2})-(\d{2})`)
	reDateJA    = regexp.MustCompile(`(20\d{2})年(\d{1,2})月(\d{1,2})日`)
	reYearISO   = regexp.MustCompile(`(20\d{2})-\d{2}-\d{2}`)
	reYearJA    = regexp.MustCompile(`(20\d{2})年`)
	reYearBare  = regexp.MustCompile(`(20\d{2})`)
)

// extractDateToken pulls a YYYY-MM-DD token out of free text, trying an
// ISO date first and then the Japanese year/month/day form.
func extractDateToken(text string) string {
	s := clean(text)
	if s == "" {
		return ""
	}
	if m := reDateISO.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	if m := reDateJA.FindStringSubmatch(s); m != nil {
		var month, day int
		fmt.Sscanf(m[2], "%d", &month)
		fmt.Sscanf(m[3], "%d", &day)
		return fmt.Sprintf("%s-%02d-%02d", m[1], month, day)
	}
	return ""
}

// extractYearToken pulls a bare four-digit year, preferring an ISO date's
// year, then a Japanese "20XX年" token, then any bare "20XX" substring.
func extractYearToken(text string) string {
	s := clean(text)
	if s == "" {
		return ""
	}
	if m := reYearISO.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := reYearJA.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := reYearBare.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// extractEventYear tries event_date_start, then event_name, then
// source_url, in that order, returning the first year found.
func extractEventYear(r domain.RawRecord) string {
	if y := extractYearToken(r.EventDateStart); y != "" {
		return y
	}
	if y := extractYearToken(r.EventName); y != "" {
		return y
	}
	if y := extractYearToken(r.SourceURL); y != "" {
		return y
	}
	return ""
}
