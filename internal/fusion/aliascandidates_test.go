package fusion

import (
	"testing"

	"github.com/boogieLing/tsugie/internal/domain"
)

func TestBuildAliasCandidates_ProposesSimilarNamesInSameBucket(t *testing.T) {
	rows := []enrichedRow{
		{
			Raw:       domain.RawRecord{EventName: "隅田川花火大会", SourceSite: "hanabi_cloud", SourceURL: "https://a"},
			NameRaw:   "隅田川花火大会",
			DateToken: "2026-07-25",
			Prefecture: "東京都",
		},
		{
			Raw:       domain.RawRecord{EventName: "隅田川花火大会2026", SourceSite: "jalan", SourceURL: "https://b"},
			NameRaw:   "隅田川花火大会2026",
			DateToken: "2026-07-25",
			Prefecture: "東京都",
		},
	}
	candidates := buildAliasCandidates(rows, "run-1")
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate pair, got %d: %+v", len(candidates), candidates)
	}
	c := candidates[0]
	if c.NameSimilarity < 0.45 {
		t.Errorf("expected similarity above threshold, got %v", c.NameSimilarity)
	}
	if c.EventDate != "2026-07-25" || c.Prefecture != "東京都" {
		t.Errorf("unexpected bucket metadata: %+v", c)
	}
}

func TestBuildAliasCandidates_SkipsBucketsWithOneMember(t *testing.T) {
	rows := []enrichedRow{
		{
			Raw:       domain.RawRecord{EventName: "隅田川花火大会"},
			NameRaw:   "隅田川花火大会",
			DateToken: "2026-07-25",
			Prefecture: "東京都",
		},
	}
	candidates := buildAliasCandidates(rows, "run-1")
	if len(candidates) != 0 {
		t.Errorf("expected no candidates for single-member bucket, got %+v", candidates)
	}
}

func TestBuildAliasCandidates_SkipsRowsMissingBucketKeyFields(t *testing.T) {
	rows := []enrichedRow{
		{Raw: domain.RawRecord{EventName: "a"}, NameRaw: "a", DateToken: "", Prefecture: "東京都"},
		{Raw: domain.RawRecord{EventName: "b"}, NameRaw: "b", DateToken: "2026-07-25", Prefecture: ""},
	}
	candidates := buildAliasCandidates(rows, "run-1")
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %+v", candidates)
	}
}
