package fusion

import (
	"testing"

	"github.com/boogieLing/tsugie/internal/domain"
)

func TestFieldIncompleteReason_MissingValue(t *testing.T) {
	if got := fieldIncompleteReason("venue_name", "未定"); got != "missing" {
		t.Errorf("expected missing, got %q", got)
	}
	if got := fieldIncompleteReason("venue_name", ""); got != "missing" {
		t.Errorf("expected missing for empty, got %q", got)
	}
}

func TestFieldIncompleteReason_UncertainHint(t *testing.T) {
	if got := fieldIncompleteReason("venue_name", "会場は調査中です"); got != "uncertain" {
		t.Errorf("expected uncertain, got %q", got)
	}
}

func TestFieldIncompleteReason_LaunchCountWithoutDigit(t *testing.T) {
	if got := fieldIncompleteReason("launch_count", "多数"); got != "missing_numeric" {
		t.Errorf("expected missing_numeric, got %q", got)
	}
	if got := fieldIncompleteReason("launch_count", "約10000発"); got != "" {
		t.Errorf("expected clean for numeric launch count, got %q", got)
	}
}

func TestFieldIncompleteReason_EventTimeUnparsed(t *testing.T) {
	if got := fieldIncompleteReason("event_time_start", "夜から"); got != "unparsed_time" {
		t.Errorf("expected unparsed_time, got %q", got)
	}
	if got := fieldIncompleteReason("event_time_start", "19:30"); got != "" {
		t.Errorf("expected clean for parseable clock time, got %q", got)
	}
	if got := fieldIncompleteReason("event_time_start", "19時30分"); got != "" {
		t.Errorf("expected clean for parseable JA hour, got %q", got)
	}
}

func TestFieldIncompleteReason_CleanValue(t *testing.T) {
	if got := fieldIncompleteReason("venue_name", "隅田公園"); got != "" {
		t.Errorf("expected no reason, got %q", got)
	}
}

func TestComputeIncompleteTags_AllFieldsClean(t *testing.T) {
	e := &domain.CanonicalEvent{
		LaunchCount:    "20000発",
		EventTimeStart: "19:00",
		EventDateStart: "2026-07-25",
		VenueName:      "隅田公園",
		VenueAddress:   "東京都台東区花川戸",
	}
	tags, priority := computeIncompleteTags(e)
	if len(tags) != 0 {
		t.Errorf("expected no tags, got %v", tags)
	}
	if priority != domain.PriorityNone {
		t.Errorf("expected PriorityNone, got %q", priority)
	}
}

func TestComputeIncompleteTags_LaunchCountMissingIsHighPriority(t *testing.T) {
	e := &domain.CanonicalEvent{
		LaunchCount:    "未定",
		EventTimeStart: "19:00",
		EventDateStart: "2026-07-25",
		VenueName:      "隅田公園",
		VenueAddress:   "東京都台東区花川戸",
	}
	tags, priority := computeIncompleteTags(e)
	if priority != domain.PriorityHigh {
		t.Errorf("expected PriorityHigh, got %q", priority)
	}
	if len(tags) != 1 || tags[0] != "launch_count:missing" {
		t.Errorf("unexpected tags: %v", tags)
	}
}

func TestComputeIncompleteTags_VenueNameMissingIsMediumPriority(t *testing.T) {
	e := &domain.CanonicalEvent{
		LaunchCount:    "20000発",
		EventTimeStart: "19:00",
		EventDateStart: "2026-07-25",
		VenueName:      "",
		VenueAddress:   "東京都台東区花川戸",
	}
	_, priority := computeIncompleteTags(e)
	if priority != domain.PriorityMedium {
		t.Errorf("expected PriorityMedium, got %q", priority)
	}
}

func TestComputeIncompleteTags_VenueAddressMissingIsLowPriority(t *testing.T) {
	e := &domain.CanonicalEvent{
		LaunchCount:    "20000発",
		EventTimeStart: "19:00",
		EventDateStart: "2026-07-25",
		VenueName:      "隅田公園",
		VenueAddress:   "",
	}
	_, priority := computeIncompleteTags(e)
	if priority != domain.PriorityLow {
		t.Errorf("expected PriorityLow, got %q", priority)
	}
}
