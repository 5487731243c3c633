package resolver

// Less reports whether a ranks strictly below b under some ranking rule.
// Content and scoring each supply their own: content.rank ranks by
// (status, has-polished-text, has-one-liner+i18n-completeness,
// fetched-at); scoring.rank ranks by (status/source tier, generated-at).
type Less[T any] func(a, b T) bool

// Index holds every row seen across a project's prior runs, bucketed
// under the three keys resolve_content_row/resolve_previous_score_row
// both bucket by: canonical id, source url, and name+date key. Within a
// bucket, later Put calls win ties against earlier ones (see putIfBetter),
// matching a dict keyed by run directories visited in order.
type Index[T comparable] struct {
	byCanonical map[string]T
	bySourceURL map[string]T
	byNameDate  map[string]T
}

// NewIndex creates an empty index.
func NewIndex[T comparable]() *Index[T] {
	return &Index[T]{
		byCanonical: make(map[string]T),
		bySourceURL: make(map[string]T),
		byNameDate:  make(map[string]T),
	}
}

// Put registers one row under every key it carries, keeping whichever of
// the new row and any existing occupant ranks higher under less. Ties
// favor the row being inserted now, so scanning run directories oldest
// to newest naturally prefers the newest occupant of a tied bucket.
func (idx *Index[T]) Put(row T, id Identity, less Less[T]) {
	if id.CanonicalID != "" {
		putIfBetter(idx.byCanonical, id.CanonicalID, row, less)
	}
	for _, u := range id.SourceURLs {
		if u != "" {
			putIfBetter(idx.bySourceURL, u, row, less)
		}
	}
	if id.NameDateKey != "" {
		putIfBetter(idx.byNameDate, id.NameDateKey, row, less)
	}
}

func putIfBetter[T comparable](m map[string]T, key string, row T, less Less[T]) {
	existing, ok := m[key]
	if !ok || !less(row, existing) {
		m[key] = row
	}
}

// Resolve finds the best previous row matching a new row's identity. It
// gathers the index hits for the row's canonical id, each of its source
// URLs, and its name+date key (deduplicating repeat hits by identity),
// discards any hit identityOf says doesn't actually describe the same
// event, and returns the highest-ranked survivor under less. Ties keep
// whichever candidate was found first (canonical, then source url, then
// name+date), matching a stable sort descending by rank.
func (idx *Index[T]) Resolve(id Identity, identityOf func(T) Identity, less Less[T]) (T, bool) {
	var candidates []T
	seen := make(map[T]bool)

	add := func(c T) {
		if seen[c] {
			return
		}
		if !RowsLookSameEvent(id, identityOf(c)) {
			return
		}
		seen[c] = true
		candidates = append(candidates, c)
	}

	if id.CanonicalID != "" {
		if c, ok := idx.byCanonical[id.CanonicalID]; ok {
			add(c)
		}
	}
	for _, u := range id.SourceURLs {
		if u == "" {
			continue
		}
		if c, ok := idx.bySourceURL[u]; ok {
			add(c)
		}
	}
	if id.NameDateKey != "" {
		if c, ok := idx.byNameDate[id.NameDateKey]; ok {
			add(c)
		}
	}

	var zero T
	if len(candidates) == 0 {
		return zero, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if less(best, c) {
			best = c
		}
	}
	return best, true
}
