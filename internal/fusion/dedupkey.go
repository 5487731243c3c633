package fusion

import "fmt"

// dedupKey builds the grouping key used to merge raw rows into one
// canonical event. It degrades gracefully as fields go missing: the
// richest key needs name, year, and date; losing date falls back to
// name+year; losing year too falls back to name alone; losing name
// entirely falls back to the source URL, which is always present.
func dedupKey(nameCanonical, year, dateToken, pref, sourceURL string) string {
	switch {
	case nameCanonical != "" && dateToken != "" && year != "":
		return fmt.Sprintf("%s|%s|%s|%s", nameCanonical, year, dateToken, pref)
	case nameCanonical != "" && year != "":
		return fmt.Sprintf("%s|%s|%s", nameCanonical, year, pref)
	case nameCanonical != "":
		return fmt.Sprintf("%s|unknown|%s", nameCanonical, pref)
	default:
		y := year
		if y == "" {
			y = "unknown"
		}
		return fmt.Sprintf("url|%s|%s", y, sourceURL)
	}
}
