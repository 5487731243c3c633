package content

import (
	"strings"

	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/resolver"
)

// IdentityOf exposes a content record's resolver identity.
func IdentityOf(r *domain.ContentRecord) resolver.Identity {
	return resolver.Identity{
		CanonicalID: r.CanonicalID,
		SourceURLs:  SourceURLSet(r),
		NameDateKey: resolver.BuildNameDateKey(r.EventName, r.EventDateStart),
	}
}

// SourceURLSet is every source URL a content record can be matched
// under: its source_urls list plus its description's own source url,
// since that URL is sometimes absent from the list it was drawn from.
func SourceURLSet(r *domain.ContentRecord) []string {
	urls := append([]string(nil), r.SourceURLs...)
	if strings.TrimSpace(r.DescriptionSourceURL) != "" {
		urls = append(urls, r.DescriptionSourceURL)
	}
	return urls
}

var statusRank = map[string]int{
	domain.ContentStatusOK:      4,
	domain.ContentStatusCached:  3,
	domain.ContentStatusPartial: 2,
	domain.ContentStatusEmpty:   1,
}

// rankTuple mirrors the original crawler's content-quality ordering:
// a non-trivial status beats a thinner one, having a polished
// description beats not, and a one-liner plus full three-language i18n
// coverage beats a bare one-liner; ties break on fetch recency.
func rankTuple(r *domain.ContentRecord) (int, int, int, string) {
	sr := statusRank[strings.ToLower(strings.TrimSpace(r.Status))]
	hasPolished := boolToInt(strings.TrimSpace(r.PolishedDescriptionJA) != "")
	hasOneLiner := boolToInt(strings.TrimSpace(r.OneLinerJA) != "")
	i18n := boolToInt(r.PolishBundle.Complete())
	return sr, hasPolished, hasOneLiner + i18n, r.FetchedAt.Format("2006-01-02T15:04:05.999999999Z07:00")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Less reports whether content record a ranks below b.
func Less(a, b *domain.ContentRecord) bool {
	a0, a1, a2, a3 := rankTuple(a)
	b0, b1, b2, b3 := rankTuple(b)
	if a0 != b0 {
		return a0 < b0
	}
	if a1 != b1 {
		return a1 < b1
	}
	if a2 != b2 {
		return a2 < b2
	}
	return a3 < b3
}

// PutRecord inserts a content record into an index under its resolver identity.
func PutRecord(idx *resolver.Index[*domain.ContentRecord], r *domain.ContentRecord) {
	idx.Put(r, IdentityOf(r), Less)
}
