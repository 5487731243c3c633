package fusion

import (
	"regexp"
	"strings"

	"github.com/boogieLing/tsugie/internal/domain"
)

var missingTokens = map[string]bool{
	"": true, "-": true, "--": true, "---": true, "na": true, "n/a": true,
	"none": true, "null": true, "nan": true,
	"不明": true, "未定": true, "非公表": true, "調査中": true,
}

var uncertainHints = []string{
	"未定", "調査中", "確認中", "未発表", "未公表", "未確定", "予定", "見込み", "予測", "頃",
}

// incompleteCheckFields is the fixed field list the incompleteness pass
// evaluates, in priority order for update_priority assignment.
var incompleteCheckFields = []string{
	"launch_count",
	"event_time_start",
	"event_date_start",
	"venue_name",
	"venue_address",
}

var (
	reHasDigit     = regexp.MustCompile(`\d`)
	reClockTime    = regexp.MustCompile(`\d{1,2}:\d{2}`)
	reJapaneseHour = regexp.MustCompile(`\d{1,2}時`)
)

func isMissingLike(value string) bool {
	text := clean(value)
	if text == "" {
		return true
	}
	return missingTokens[strings.ToLower(text)] || missingTokens[text]
}

// fieldIncompleteReason classifies why one field is considered
// incomplete, or returns "" if it looks fine.
func fieldIncompleteReason(field, value string) string {
	text := clean(value)
	if isMissingLike(text) {
		return "missing"
	}
	for _, hint := range uncertainHints {
		if strings.Contains(text, hint) {
			return "uncertain"
		}
	}
	if field == "launch_count" && !reHasDigit.MatchString(text) {
		return "missing_numeric"
	}
	if field == "event_time_start" {
		if !reClockTime.MatchString(text) && !reJapaneseHour.MatchString(text) {
			return "unparsed_time"
		}
	}
	return ""
}

// computeIncompleteTags evaluates every field in incompleteCheckFields
// against a canonical event, returning the "field:reason" tags and the
// resulting update priority. launch_count/event_time_start gaps are
// treated as the most urgent ("high") since they block the event from
// being useful at all; event_date_start/venue_name gaps are "medium";
// anything else incomplete is "low".
func computeIncompleteTags(c *domain.CanonicalEvent) (tags []string, priority string) {
	var missingFields []string
	for _, field := range incompleteCheckFields {
		reason := fieldIncompleteReason(field, c.Field(field))
		if reason == "" {
			continue
		}
		tags = append(tags, field+":"+reason)
		missingFields = append(missingFields, field)
	}
	if len(missingFields) == 0 {
		return tags, domain.PriorityNone
	}
	for _, f := range missingFields {
		if f == "launch_count" || f == "event_time_start" {
			return tags, domain.PriorityHigh
		}
	}
	for _, f := range missingFields {
		if f == "event_date_start" || f == "venue_name" {
			return tags, domain.PriorityMedium
		}
	}
	return tags, domain.PriorityLow
}
