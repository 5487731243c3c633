package fusion

import "sort"

// buildAliasCandidates buckets enriched rows by (event date, prefecture)
// and, within each bucket of at least two distinct raw normalized names,
// proposes every pair that is similar enough to suspect the alias map is
// missing an entry. This is a suggestion log for humans, not something
// the fusion pass acts on automatically.
func buildAliasCandidates(rows []enrichedRow, runID string) []AliasCandidateEntry {
	type bucketMember struct {
		display string
		site    string
		url     string
	}
	buckets := make(map[string]map[string]bucketMember)
	bucketDateAndPref := make(map[string][2]string)

	for _, r := range rows {
		date := r.DateToken
		pref := r.Prefecture
		name := r.NameRaw
		if date == "" || pref == "" || name == "" {
			continue
		}
		key := date + "|" + pref
		if buckets[key] == nil {
			buckets[key] = make(map[string]bucketMember)
			bucketDateAndPref[key] = [2]string{date, pref}
		}
		if _, exists := buckets[key][name]; exists {
			continue
		}
		buckets[key][name] = bucketMember{
			display: clean(r.Raw.EventName),
			site:    clean(r.Raw.SourceSite),
			url:     clean(r.Raw.SourceURL),
		}
	}

	var bucketKeys []string
	for k := range buckets {
		bucketKeys = append(bucketKeys, k)
	}
	sort.Strings(bucketKeys)

	var out []AliasCandidateEntry
	for _, key := range bucketKeys {
		members := buckets[key]
		if len(members) < 2 {
			continue
		}
		var names []string
		for n := range members {
			names = append(names, n)
		}
		sort.Strings(names)

		dp := bucketDateAndPref[key]
		date, pref := dp[0], dp[1]
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				a, b := names[i], names[j]
				sim := nameSimilarity(a, b)
				if sim < 0.45 {
					continue
				}
				ma, mb := members[a], members[b]
				out = append(out, AliasCandidateEntry{
					RunID:          runID,
					EventDate:      date,
					Prefecture:     pref,
					NameNormA:      a,
					NameDisplayA:   ma.display,
					SourceSiteA:    ma.site,
					SourceURLA:     ma.url,
					NameNormB:      b,
					NameDisplayB:   mb.display,
					SourceSiteB:    mb.site,
					SourceURLB:     mb.url,
					NameSimilarity: sim,
				})
			}
		}
	}
	return out
}
