package export

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/boogieLing/tsugie/internal/domain"
)

// BuildSpatialPayload groups entries by geohash, sorts each bucket by
// ios_place_id, serializes each bucket as minified JSON, and compresses
// and obfuscates it, concatenating the chunks in sorted-geohash order.
// It returns the per-bucket metadata and the full concatenated payload.
func BuildSpatialPayload(entries []domain.ExportEntry, keySeed string) (map[string]domain.SpatialBucket, []byte, error) {
	grouped := make(map[string][]domain.ExportEntry)
	for _, e := range entries {
		key := e.Geohash
		if key == "" {
			key = UnknownGeohashBucket
		}
		grouped[key] = append(grouped[key], e)
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload []byte
	buckets := make(map[string]domain.SpatialBucket, len(keys))

	for _, key := range keys {
		rows := grouped[key]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].IOSPlaceID < rows[j].IOSPlaceID })

		raw, err := json.Marshal(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal bucket %q: %w", key, err)
		}
		chunk, checksum, err := CompressAndObfuscate(raw, keySeed)
		if err != nil {
			return nil, nil, fmt.Errorf("bucket %q: %w", key, err)
		}

		offset := len(payload)
		payload = append(payload, chunk...)
		buckets[key] = domain.SpatialBucket{
			Geohash:       key,
			RecordCount:   len(rows),
			PayloadSHA256: checksum,
			PayloadOffset: offset,
			PayloadLength: len(chunk),
		}
	}

	return buckets, payload, nil
}
