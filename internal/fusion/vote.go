package fusion

import (
	"strings"
	"unicode/utf8"
)

var siteWeights = map[string]int{
	"hanabi_cloud": 8,
	"jorudan":      6,
	"sorahanabi":   4,
	"weathernews":  4,
	"hanabeat":     4,
	"hanabi_navi":  4,
	"jalan":        3,
	"hanabeam":     2,
}

func siteWeight(site string) int {
	if w, ok := siteWeights[site]; ok {
		return w
	}
	return 1
}

var missingLikeValues = map[string]bool{
	"--": true, "---": true, "未定": true, "非公表": true, "調査中": true,
}

// scoreValue ranks one site's contribution to a single fused field. Exact
// coordinates always outrank free text; near-duplicate placeholder tokens
// ("未定", "--", ...) are scored low but not zero so a genuinely blank
// value never outranks them.
func scoreValue(field, value, sourceSite string) int {
	val := clean(value)
	if val == "" {
		return 0
	}
	if missingLikeValues[val] {
		return 1
	}
	base := utf8.RuneCountInString(val)
	if base > 200 {
		base = 200
	}
	w := siteWeight(sourceSite)
	switch field {
	case "event_name":
		rem := 80 - base
		if rem < 0 {
			rem = 0
		}
		return w*10 + rem
	case "lat", "lng":
		return w*100 + 100
	default:
		return w*10 + base
	}
}

// pickPrimarySource chooses the source site/url most likely to be
// authoritative for refresh purposes: highest site weight, with a small
// bonus for actually carrying a URL.
func pickPrimarySource(sites, urls []string) (site, url string) {
	bestScore := -1
	for i := range sites {
		s := clean(sites[i])
		var u string
		if i < len(urls) {
			u = clean(urls[i])
		}
		score := siteWeight(s)
		if u != "" {
			score += 2
		}
		if score > bestScore {
			bestScore = score
			site, url = s, u
		}
	}
	return site, url
}

// inferRefreshMethod guesses how an incomplete event's primary source
// should be revisited, based on shape of its URL.
func inferRefreshMethod(primaryURL string) string {
	u := strings.ToLower(clean(primaryURL))
	if u == "" {
		return "site_list_recrawl"
	}
	for _, needle := range []string{"/event/", "/spot/", "/detail/", "hanabi"} {
		if strings.Contains(u, needle) {
			return "detail_url_refetch"
		}
	}
	for _, needle := range []string{"list", "calender", "calendar", "scheduled", "dayevent"} {
		if strings.Contains(u, needle) {
			return "list_page_recrawl"
		}
	}
	return "detail_url_refetch"
}
