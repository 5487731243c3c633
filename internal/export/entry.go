package export

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/scoring"
)

var skipImageURLPatterns = []string{"sprite", "icon", "logo", "blank", "spacer", "tracking", "avatar"}

// PlaceID derives the client-facing place identifier: a name-based UUIDv5
// seeded by category and canonical id, stable across runs as long as
// neither changes.
func PlaceID(category, canonicalID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("tsugie:"+category+":"+canonicalID)).String()
}

// DistanceMeters is the deterministic placeholder "distance from you"
// figure the client shows until it has a real location fix: derived from
// the canonical id's hash alone, never from an actual measurement.
func DistanceMeters(canonicalID string) int {
	digest := sha256.Sum256([]byte(canonicalID))
	seed := binary.BigEndian.Uint32(digest[:4])
	return 280 + int(seed%5200)
}

// Hint builds the one-line client teaser: "{location}・{type}候補（{n}ソース統合）".
func Hint(prefecture, city string, sourceCount int, category string) string {
	location := strings.TrimSpace(city)
	if location == "" {
		location = strings.TrimSpace(prefecture)
	}
	if location == "" {
		location = "開催地確認中"
	}
	typeHint := "祭典"
	if category == "hanabi" {
		typeHint = "花火"
	}
	return fmt.Sprintf("%s・%s候補（%dソース統合）", location, typeHint, sourceCount)
}

// usableScore reports whether a score row is trustworthy enough to
// prefer over the heuristic fallback: an AI-sourced row with an "ok" or
// cached status, matching the same bar scoring's own reuse logic uses.
func usableScore(s *domain.ScoreRecord) bool {
	if s == nil {
		return false
	}
	status := strings.ToLower(strings.TrimSpace(s.Status))
	source := strings.ToLower(strings.TrimSpace(s.ScoreSource))
	if source != domain.ScoreSourceAI {
		return false
	}
	return status == "ok" || strings.HasPrefix(status, "cached")
}

// firstNonGenericImageURL picks the first harvested image URL that
// doesn't look like a site-chrome asset (sprite, icon, logo, …).
func firstNonGenericImageURL(urls []string) string {
	for _, u := range urls {
		low := strings.ToLower(u)
		generic := false
		for _, p := range skipImageURLPatterns {
			if strings.Contains(low, p) {
				generic = true
				break
			}
		}
		if !generic {
			return u
		}
	}
	return ""
}

// BuildEntry projects one canonical event, its resolved content record
// (if any), and its resolved score record (if any) into the client-
// facing export row.
func BuildEntry(event domain.CanonicalEvent, content *domain.ContentRecord, score *domain.ScoreRecord, category string, geohashPrecision int) domain.ExportEntry {
	entry := domain.ExportEntry{
		IOSPlaceID:     PlaceID(category, event.CanonicalID),
		CanonicalID:    event.CanonicalID,
		Category:       category,
		EventName:      event.EventName,
		DistanceMeters: DistanceMeters(event.CanonicalID),
		Hint:           Hint(event.Prefecture, event.City, event.SourceCount, category),
		SourceCount:    event.SourceCount,
	}

	if lat, lng, ok := parseCoordinate(event.Lat, event.Lng); ok {
		entry.Lat = lat
		entry.Lng = lng
		entry.Geohash = Geohash(lat, lng, geohashPrecision)
	} else {
		entry.Geohash = UnknownGeohashBucket
	}

	if usableScore(score) {
		entry.HeatScore = score.InitialHeatScore
		entry.SurpriseScore = score.SurpriseScore
	} else {
		launchCount, _ := scoring.ParseNumber(event.LaunchCount)
		visitors, _ := scoring.ParseNumber(event.ExpectedVisitors)
		entry.HeatScore, entry.SurpriseScore = scoring.HeuristicFallback(event.SourceCount, launchCount, visitors, category)
	}

	if content != nil {
		entry.OneLinerJA = content.OneLinerJA
		entry.OneLinerZH = content.OneLinerZH
		entry.OneLinerEN = content.OneLinerEN
		entry.ContentImageSourceURL = firstNonGenericImageURL(content.ImageURLs)
	}

	return entry
}

func parseCoordinate(rawLat, rawLng string) (float64, float64, bool) {
	if strings.TrimSpace(rawLat) == "" || strings.TrimSpace(rawLng) == "" {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return 0, 0, false
	}
	if !ValidCoordinate(lat, lng) {
		return 0, 0, false
	}
	return lat, lng, true
}
