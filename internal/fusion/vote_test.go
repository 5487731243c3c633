package fusion

import "testing"

func TestSiteWeight_KnownAndUnknownSites(t *testing.T) {
	if siteWeight("hanabi_cloud") != 8 {
		t.Errorf("expected weight 8 for hanabi_cloud")
	}
	if siteWeight("some_unknown_site") != 1 {
		t.Errorf("expected default weight 1 for unknown site")
	}
}

func TestScoreValue_EmptyIsZero(t *testing.T) {
	if s := scoreValue("event_name", "", "hanabi_cloud"); s != 0 {
		t.Errorf("expected 0 for empty value, got %d", s)
	}
}

func TestScoreValue_MissingLikeIsLowButNotZero(t *testing.T) {
	s := scoreValue("venue_name", "未定", "hanabi_cloud")
	if s != 1 {
		t.Errorf("expected score 1 for missing-like value, got %d", s)
	}
}

func TestScoreValue_CoordinatesOutrankFreeText(t *testing.T) {
	coordScore := scoreValue("lat", "35.6812", "hanabeam")
	textScore := scoreValue("venue_name", "a very long venue name that goes on and on and on", "hanabi_cloud")
	if coordScore <= textScore {
		t.Errorf("expected coordinate score (%d) to beat free text score (%d)", coordScore, textScore)
	}
}

func TestScoreValue_EventNameBudgetCountsRunesNotBytes(t *testing.T) {
	// The 7-rune Japanese name is 21 bytes (~3 bytes/rune): counted in
	// runes it leaves 73 of the 80-point budget, counted in bytes only 59.
	shortJapanese := scoreValue("event_name", "隅田川花火大会", "hanabi_cloud")
	longASCII := scoreValue("event_name", "a very long event name that goes on and on and on and on", "hanabi_cloud")
	if shortJapanese <= longASCII {
		t.Errorf("expected short Japanese name (%d) to outscore long ASCII name (%d) under the rune-counted budget", shortJapanese, longASCII)
	}
	if want := 8*10 + (80 - 7); shortJapanese != want {
		t.Errorf("expected rune-counted score %d, got %d", want, shortJapanese)
	}
}

func TestScoreValue_HigherWeightSiteWinsOnEqualText(t *testing.T) {
	strong := scoreValue("venue_name", "same text", "hanabi_cloud")
	weak := scoreValue("venue_name", "same text", "hanabeam")
	if strong <= weak {
		t.Errorf("expected higher-weight site to score higher: strong=%d weak=%d", strong, weak)
	}
}

func TestPickPrimarySource_PrefersHighestWeightWithURL(t *testing.T) {
	sites := []string{"hanabeam", "hanabi_cloud", "jalan"}
	urls := []string{"https://a", "https://b", "https://c"}
	site, url := pickPrimarySource(sites, urls)
	if site != "hanabi_cloud" || url != "https://b" {
		t.Errorf("expected hanabi_cloud/https://b, got %s/%s", site, url)
	}
}

func TestInferRefreshMethod(t *testing.T) {
	cases := map[string]string{
		"":                                   "site_list_recrawl",
		"https://example.com/event/123":      "detail_url_refetch",
		"https://example.com/list/page1":     "list_page_recrawl",
		"https://example.com/unrelated/path": "detail_url_refetch",
	}
	for in, want := range cases {
		if got := inferRefreshMethod(in); got != want {
			t.Errorf("inferRefreshMethod(%q) = %q, want %q", in, got, want)
		}
	}
}
