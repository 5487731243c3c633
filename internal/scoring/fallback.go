package scoring

import "math"

// HeuristicFallback computes a heat and surprise score without calling
// any scoring backend: a base score driven by how many sites corroborate
// an event, nudged up for the "hanabi" category and for large launch
// counts or visitor estimates, then a surprise score derived
// deterministically from the heat score itself so two runs over
// unchanged input always agree without needing a cached value.
//
// This is the one scoring formula that never changes regardless of
// whether an AI backend is configured: it is also what export's scoring
// backfill uses for canonical events scoring never got to.
func HeuristicFallback(sourceCount, launchCount, expectedVisitors int, category string) (heat, surprise int) {
	if sourceCount <= 0 {
		sourceCount = 1
	}
	base := 42 + minInt(sourceCount*7, 22)
	if category == "hanabi" {
		base += 5
	}
	if launchCount > 0 {
		base += minInt(int(math.Sqrt(float64(launchCount))/3), 18)
	}
	if expectedVisitors > 0 {
		base += minInt(int(math.Sqrt(float64(expectedVisitors))/9), 18)
	}
	heat = clamp(base, 20, 95)
	surprise = clamp(45+((heat*29)%41), 12, 96)
	return heat, surprise
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
