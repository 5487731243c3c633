package content

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// descriptionSelectors is tried in order; each selector's paragraphs are
// collected until the running total reaches the character budget.
var descriptionSelectors = []string{
	"article p",
	"main p",
	".entry-content p",
	".post-content p",
	".article-body p",
	".event-detail p",
	".event-content p",
	".content p",
}

// imageSelectors is tried in order, each contributing candidate image
// URLs until the max-image budget is reached.
var imageSelectors = []string{
	"article img[src]",
	"article img[data-src]",
	"main img[src]",
	"main img[data-src]",
	".entry-content img[src]",
	".post-content img[src]",
	".event-detail img[src]",
	"img[src]",
	"img[data-src]",
}

var skipImagePatterns = []string{"sprite", "icon", "logo", "blank", "spacer", "tracking", "avatar"}

var reWhitespaceRun = regexp.MustCompile(`\s+`)

func cleanInline(s string) string {
	return strings.TrimSpace(reWhitespaceRun.ReplaceAllString(s, " "))
}

func cleanBlock(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if c := cleanInline(line); c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, "\n")
}

// PageExtract is what a single page yielded: a description candidate and
// a list of image URLs, both already normalized to absolute URLs.
type PageExtract struct {
	RawDescription string
	ImageURLs      []string
}

// ExtractFromPage parses one page's HTML for a description and images.
func ExtractFromPage(finalURL, html string, maxDescChars, maxImages int) (PageExtract, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageExtract{}, err
	}
	return PageExtract{
		RawDescription: chooseRawDescription(doc, maxDescChars),
		ImageURLs:      collectImageURLs(doc, finalURL, maxImages),
	}, nil
}

func chooseRawDescription(doc *goquery.Document, maxChars int) string {
	var candidates []string
	candidates = append(candidates, extractMeta(doc, "property", "og:description")...)
	candidates = append(candidates, extractMeta(doc, "name", "description")...)
	candidates = append(candidates, extractMeta(doc, "name", "twitter:description")...)
	candidates = append(candidates, collectJSONLDDescriptions(doc)...)

	if p := collectDescriptionFromSelectors(doc, maxChars); p != "" {
		candidates = append(candidates, p)
	}

	cleaned := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		text := cleanBlock(c)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		cleaned = append(cleaned, text)
	}
	if len(cleaned) == 0 {
		return ""
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return utf8.RuneCountInString(cleaned[i]) > utf8.RuneCountInString(cleaned[j])
	})
	best := cleaned[0]
	return truncateRunes(best, maxChars)
}

func collectDescriptionFromSelectors(doc *goquery.Document, maxChars int) string {
	var chunks []string
	seen := make(map[string]bool)
	total := 0

	for _, selector := range descriptionSelectors {
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			txt := cleanBlock(s.Text())
			if txt == "" || len([]rune(txt)) < 18 || seen[txt] {
				return true
			}
			seen[txt] = true
			chunks = append(chunks, txt)
			total += utf8.RuneCountInString(txt)
			return total < maxChars
		})
		if total >= maxChars {
			break
		}
	}
	if len(chunks) == 0 {
		return ""
	}
	return truncateRunes(strings.Join(chunks, "\n"), maxChars)
}

func extractMeta(doc *goquery.Document, attr, key string) []string {
	var out []string
	doc.Find("meta[" + attr + "='" + key + "']").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			if c := cleanInline(v); c != "" {
				out = append(out, c)
			}
		}
	})
	return out
}

func collectJSONLDDescriptions(doc *goquery.Document) []string {
	var out []string
	walkJSONLD(doc, func(node any) {
		m, ok := node.(map[string]any)
		if !ok {
			return
		}
		if d, ok := m["description"].(string); ok {
			if c := cleanBlock(d); c != "" {
				out = append(out, c)
			}
		}
	})
	return out
}

func collectJSONLDImages(doc *goquery.Document, baseURL string) []string {
	var out []string
	add := func(raw any) {
		if s, ok := raw.(string); ok {
			if u := normalizeImageURL(s, baseURL); u != "" {
				out = append(out, u)
			}
		}
	}
	walkJSONLD(doc, func(node any) {
		m, ok := node.(map[string]any)
		if !ok {
			return
		}
		switch img := m["image"].(type) {
		case string:
			add(img)
		case map[string]any:
			add(img["url"])
		case []any:
			for _, item := range img {
				switch v := item.(type) {
				case string:
					add(v)
				case map[string]any:
					add(v["url"])
				}
			}
		}
	})
	return out
}

// walkJSONLD parses every <script type="application/ld+json"> tag and
// recursively visits every object/array value, calling visit on each
// object it finds — mirroring a schema.org graph's arbitrary nesting.
func walkJSONLD(doc *goquery.Document, visit func(node any)) {
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return
		}
		walkJSONValue(parsed, visit)
	})
}

func walkJSONValue(node any, visit func(node any)) {
	switch v := node.(type) {
	case map[string]any:
		visit(v)
		for _, val := range v {
			walkJSONValue(val, visit)
		}
	case []any:
		for _, item := range v {
			walkJSONValue(item, visit)
		}
	}
}

func normalizeImageURL(raw, baseURL string) string {
	text := cleanInline(raw)
	if text == "" || strings.HasPrefix(text, "data:") {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(text)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func looksLikeImageURL(u string) bool {
	low := strings.ToLower(u)
	if strings.HasPrefix(low, "data:") {
		return false
	}
	for _, p := range skipImagePatterns {
		if strings.Contains(low, p) {
			return false
		}
	}
	return true
}

func collectImageURLs(doc *goquery.Document, baseURL string, maxImages int) []string {
	var urls []string
	urls = append(urls, imageURLsFromMeta(doc, "property", "og:image", baseURL)...)
	urls = append(urls, imageURLsFromMeta(doc, "name", "twitter:image", baseURL)...)
	urls = append(urls, imageURLsFromMeta(doc, "itemprop", "image", baseURL)...)
	urls = append(urls, collectJSONLDImages(doc, baseURL)...)

	for _, selector := range imageSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			src, ok := s.Attr("src")
			if !ok {
				src, ok = s.Attr("data-src")
			}
			if !ok {
				return
			}
			if u := normalizeImageURL(src, baseURL); u != "" {
				urls = append(urls, u)
			}
		})
	}

	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, maxImages)
	for _, u := range urls {
		if u == "" || seen[u] || !looksLikeImageURL(u) {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) >= maxImages {
			break
		}
	}
	return out
}

func imageURLsFromMeta(doc *goquery.Document, attr, key, baseURL string) []string {
	var out []string
	for _, raw := range extractMeta(doc, attr, key) {
		if u := normalizeImageURL(raw, baseURL); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimRight(string(r[:max]), " \t\n")
}

// PickBestPageExtract chooses the richest extract among several pages
// describing the same event: longest description first, most images as
// tiebreaker.
func PickBestPageExtract(candidates []PageExtract) (PageExtract, bool) {
	if len(candidates) == 0 {
		return PageExtract{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if betterExtract(c, best) {
			best = c
		}
	}
	return best, true
}

func betterExtract(a, b PageExtract) bool {
	aLen, bLen := utf8.RuneCountInString(a.RawDescription), utf8.RuneCountInString(b.RawDescription)
	if aLen != bLen {
		return aLen > bLen
	}
	return len(a.ImageURLs) > len(b.ImageURLs)
}
