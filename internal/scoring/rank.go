package scoring

import (
	"strings"

	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/resolver"
)

// IdentityOf exposes a score record's resolver identity: the keys it
// should be indexed and matched under.
func IdentityOf(r *domain.ScoreRecord) resolver.Identity {
	return resolver.Identity{
		CanonicalID: r.CanonicalID,
		SourceURLs:  r.SourceURLs,
		NameDateKey: resolver.BuildNameDateKey(r.EventName, r.EventDateStart),
	}
}

// rankTuple orders score records: a fresh AI score beats a plain "ok"
// beats a cache replay beats anything else with a status, tiebroken by
// generation time so the newest wins among equals.
func rankTuple(r *domain.ScoreRecord) (int, string) {
	status := strings.ToLower(strings.TrimSpace(r.Status))
	source := strings.ToLower(strings.TrimSpace(r.ScoreSource))
	var rank int
	switch {
	case status == "ok" && source == domain.ScoreSourceAI:
		rank = 4
	case status == "ok":
		rank = 3
	case strings.HasPrefix(status, "cached"):
		rank = 2
	case status != "":
		rank = 1
	default:
		rank = 0
	}
	return rank, r.GeneratedAt
}

// Less reports whether score record a ranks below b.
func Less(a, b *domain.ScoreRecord) bool {
	ar, ag := rankTuple(a)
	br, bg := rankTuple(b)
	if ar != br {
		return ar < br
	}
	return ag < bg
}

// PutRecord inserts a score record into a previous-run index under its
// resolver identity.
func PutRecord(idx *resolver.Index[*domain.ScoreRecord], r *domain.ScoreRecord) {
	idx.Put(r, IdentityOf(r), Less)
}
