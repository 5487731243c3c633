// Package resolver implements the "best previous row wins" lookup shared
// by content reuse and score reuse: index every row seen across a
// project's prior runs under three keys (canonical id, source url, a
// normalized name+date key), then for a new row pull every index hit,
// keep only the ones that plausibly describe the same event, and return
// the highest-ranked survivor. Both content and scoring register their
// own row type and their own ranking rule against the same generic
// index, so the matching logic itself never has to be duplicated.
package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

var (
	reNameMatchWhitespace = regexp.MustCompile(`\s+`)
	reNameMatchPunct      = regexp.MustCompile(`[【】\[\]（）()「」『』・,，。.!！?？:：/／\\\-~〜～]`)
	reISODateLoose        = regexp.MustCompile(`(20\d{2})[-/年.](\d{1,2})[-/月.](\d{1,2})`)
)

// NormalizeNameForMatch lowercases a name, strips whitespace, and strips
// the punctuation set event names accumulate across sites, so two rows
// naming "the same" event compare equal regardless of site formatting.
func NormalizeNameForMatch(name string) string {
	if name == "" {
		return ""
	}
	out := strings.ToLower(name)
	out = reNameMatchWhitespace.ReplaceAllString(out, "")
	out = reNameMatchPunct.ReplaceAllString(out, "")
	return out
}

// ExtractLooseDate pulls a YYYY-MM-DD date out of free text in any of the
// year-month-day separator styles source rows use (ISO dashes, slashes,
// dots, or the Japanese 年/月/日 characters), validating the month/day
// ranges. Returns "" when nothing parses.
func ExtractLooseDate(raw string) string {
	m := reISODateLoose.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	var y, mo, d int
	for i, p := range []*int{&y, &mo, &d} {
		n := 0
		for _, c := range m[i+1] {
			n = n*10 + int(c-'0')
		}
		*p = n
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return ""
	}
	return formatISODate(y, mo, d)
}

func formatISODate(y, mo, d int) string {
	digits := func(n, width int) string {
		s := itoa(n)
		for len(s) < width {
			s = "0" + s
		}
		return s
	}
	return digits(y, 4) + "-" + digits(mo, 2) + "-" + digits(d, 2)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

// BuildNameDateKey builds the composite key rows are bucketed under when
// no canonical id or source url match is available: the normalized name
// plus whatever date token can be extracted (falling back to the raw
// date string verbatim). Returns "" when the name itself is empty, since
// an empty name can never anchor a match.
func BuildNameDateKey(eventName, eventDateStart string) string {
	nameKey := NormalizeNameForMatch(eventName)
	if nameKey == "" {
		return ""
	}
	dateKey := ExtractLooseDate(eventDateStart)
	if dateKey == "" {
		dateKey = strings.TrimSpace(eventDateStart)
	}
	return nameKey + "|" + dateKey
}

// Identity is the comparable shape both row types expose to the
// resolver: what it takes to decide "is this the same event."
type Identity struct {
	CanonicalID string
	SourceURLs  []string
	NameDateKey string
}

// RowsLookSameEvent reports whether two identities plausibly name the
// same underlying event: either their source URL sets overlap, or their
// name+date keys match exactly. Canonical id agreement alone is NOT
// sufficient — a stale canonical id can be reassigned across runs as
// fusion's dedup grouping shifts, so identity still has to be confirmed
// by URL or name+date before a previous row is reused.
func RowsLookSameEvent(a, b Identity) bool {
	if len(a.SourceURLs) > 0 && len(b.SourceURLs) > 0 && urlSetsIntersect(a.SourceURLs, b.SourceURLs) {
		return true
	}
	return a.NameDateKey != "" && b.NameDateKey != "" && a.NameDateKey == b.NameDateKey
}

func urlSetsIntersect(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, u := range a {
		if u != "" {
			set[u] = true
		}
	}
	for _, u := range b {
		if u != "" && set[u] {
			return true
		}
	}
	return false
}

// InputSignature hashes a stable JSON-ish payload for cache-key purposes
// when a caller wants a quick content-addressed key without pulling in
// the full input-hash machinery each package defines for its own model
// input shape (see content.Signature / scoring.InputHash).
func InputSignature(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SortedCopy returns a sorted copy of a string slice without mutating it.
func SortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
