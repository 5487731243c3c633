package fusion

import "testing"

func TestDedupKey_DegradesGracefully(t *testing.T) {
	full := dedupKey("sumida fireworks", "2026", "2026-07-25", "東京都", "https://example.com/a")
	if full != "sumida fireworks|2026|2026-07-25|東京都" {
		t.Errorf("unexpected full key: %q", full)
	}

	noDate := dedupKey("sumida fireworks", "2026", "", "東京都", "https://example.com/a")
	if noDate != "sumida fireworks|2026|東京都" {
		t.Errorf("unexpected name+year key: %q", noDate)
	}

	nameOnly := dedupKey("sumida fireworks", "", "", "東京都", "https://example.com/a")
	if nameOnly != "sumida fireworks|unknown|東京都" {
		t.Errorf("unexpected name-only key: %q", nameOnly)
	}

	urlOnly := dedupKey("", "2026", "", "東京都", "https://example.com/a")
	if urlOnly != "url|2026|https://example.com/a" {
		t.Errorf("unexpected url-only key: %q", urlOnly)
	}

	urlOnlyNoYear := dedupKey("", "", "", "東京都", "https://example.com/a")
	if urlOnlyNoYear != "url|unknown|https://example.com/a" {
		t.Errorf("unexpected url-only-no-year key: %q", urlOnlyNoYear)
	}
}
