// Package fusion dedups raw per-site event observations into canonical
// events: it normalizes names, extracts years and prefectures, votes
// field-by-field across sources, resolves coordinates (direct, geocoded,
// or prefecture-fallback), repairs coordinate overlaps, and tags
// incomplete events for follow-up.
package fusion

import (
	"html"
	"regexp"
	"strings"
)

var (
	reWhitespace = regexp.MustCompile(`\s+`)

	nameStripPatterns = []*regexp.Regexp{
		regexp.MustCompile(`の日程・開催情報.*$`),
		regexp.MustCompile(`の開催情報.*$`),
		regexp.MustCompile(`\s*-\s*ウェザーニュース.*$`),
		regexp.MustCompile(`\s*-\s*花火大会.*$`),
		regexp.MustCompile(`^【\d{4}年?】`),
		regexp.MustCompile(`^\[\d{4}\]`),
		regexp.MustCompile(`^[【\[]?(20\d{2})[】\]]`),
		regexp.MustCompile(`[（(\[【].{0,24}(市|区|町|村).*[)）\]】]$`),
		regexp.MustCompile(`\(?(北海道|東京都|京都府|大阪府|.{2,3}県).*$`),
	}

	reLeadingSeries = regexp.MustCompile(`^第\d+回\s*`)
	reNameSeparator = regexp.MustCompile(`[・･·\-_−\s]+`)
)

// clean mirrors the Python helper's trim: unescape HTML entities, collapse
// all whitespace runs to a single space, and trim the ends.
func clean(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// normalizeNameRaw strips title decorations, series prefixes, and
// separator noise, then lowercases. This is the key used to look up
// aliases and to build dedup keys.
func normalizeNameRaw(name string) string {
	s := clean(name)
	if s == "" {
		return ""
	}
	for _, p := range nameStripPatterns {
		s = p.ReplaceAllString(s, "")
	}
	s = reLeadingSeries.ReplaceAllString(s, "")
	s = reNameSeparator.ReplaceAllString(s, " ")
	return strings.ToLower(clean(s))
}

// normalizeName resolves an event name through alias resolution, returning
// the raw normalized form, the canonical form, and whether an alias
// actually fired.
func normalizeName(name string, aliases map[string]string) (raw, canonical string, aliasApplied bool) {
	raw = normalizeNameRaw(name)
	if v, ok := aliases[raw]; ok && v != "" {
		return raw, v, v != raw
	}
	return raw, raw, false
}

var (
	reBracketed1    = regexp.MustCompile(`【[^】]*】`)
	reBracketed2    = regexp.MustCompile(`\[[^\]]*\]`)
	reBracketed3    = regexp.MustCompile(`（[^）]*）`)
	reBracketed4    = regexp.MustCompile(`\([^)]*\)`)
	reAfterDash     = regexp.MustCompile(`\s*-\s*.*$`)
	reHeldAt        = regexp.MustCompile(`で開催[^\s]*`)
	reCornerBrackets = regexp.MustCompile(`[「」『』]`)
)

// normalizeEventNameForGeocode strips decorative brackets and trailing
// subtitle clauses so the remaining text reads like a geocodable place
// name rather than a marketing title.
func normalizeEventNameForGeocode(text string) string {
	s := clean(text)
	if s == "" {
		return ""
	}
	s = reBracketed1.ReplaceAllString(s, " ")
	s = reBracketed2.ReplaceAllString(s, " ")
	s = reBracketed3.ReplaceAllString(s, " ")
	s = reBracketed4.ReplaceAllString(s, " ")
	s = reAfterDash.ReplaceAllString(s, " ")
	s = reHeldAt.ReplaceAllString(s, " ")
	s = reCornerBrackets.ReplaceAllString(s, " ")
	return clean(s)
}
