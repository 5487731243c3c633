package fusion

// nameSimilarity computes a Ratcliff/Obershelp similarity ratio between
// two strings, the same algorithm behind Python's
// difflib.SequenceMatcher(a, b).ratio(): find the longest matching
// substring, recurse into the unmatched halves on either side, and sum
// the matched lengths into 2*M/T. No pack library implements this; it is
// a deliberate stdlib-only routine (see the grounding ledger).
func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	matched := matchingBlockLength(ra, rb)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	return 2 * float64(matched) / float64(total)
}

func matchingBlockLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	i, j, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlockLength(a[:i], b[:j])
	total += matchingBlockLength(a[i+size:], b[j+size:])
	return total
}

// longestMatch finds the longest common contiguous run between a and b,
// returning its start index in each and its length. Ties break toward the
// earliest match in a, then in b, matching difflib's behavior.
func longestMatch(a, b []rune) (besti, bestj, bestsize int) {
	// b2j maps each rune in b to the sorted list of indices where it occurs.
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	var j2len map[int]int
	for i := range a {
		newj2len := make(map[int]int, len(j2len)+1)
		for _, j := range b2j[a[i]] {
			k := 1
			if j > 0 {
				if v, ok := j2len[j-1]; ok {
					k = v + 1
				}
			}
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
