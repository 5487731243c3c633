package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reDigitGroup  = regexp.MustCompile(`\d[\d,]*`)
	reScoreNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// ParseNumber pulls a non-negative integer out of free text that mixes
// digits with commas and other noise ("約12,000人" -> 12000), matching the
// thousand-separator-stripping behavior source rows need for launch
// counts and visitor estimates.
func ParseNumber(raw string) (int, bool) {
	chunks := reDigitGroup.FindAllString(raw, -1)
	if len(chunks) == 0 {
		return 0, false
	}
	merged := strings.ReplaceAll(strings.Join(chunks, ""), ",", "")
	n, err := strconv.Atoi(merged)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseScoreValue extracts a 0-100 integer score from a model's output
// field, which may arrive as a bare number, a float, or free text
// containing one ("85/100" -> 85). Returns false when nothing parses.
func ParseScoreValue(raw string) (int, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, false
	}
	m := reScoreNumber.FindString(text)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return clamp(int(roundHalfAwayFromZero(f)), 0, 100), true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundHalfAwayFromZero(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return -float64(int64(-f + 0.5))
}
