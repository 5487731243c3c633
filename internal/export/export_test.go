package export

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boogieLing/tsugie/internal/domain"
)

func TestGeohash_KnownVector(t *testing.T) {
	assert.Equal(t, "xn76u", Geohash(35.681236, 139.767125, 5))
}

func TestGeohash_PrecisionControlsLength(t *testing.T) {
	assert.Len(t, Geohash(35.0, 139.0, 8), 8)
	assert.Len(t, Geohash(35.0, 139.0, 3), 3)
}

func TestValidCoordinate_RejectsOutOfRange(t *testing.T) {
	assert.False(t, ValidCoordinate(91, 0))
	assert.False(t, ValidCoordinate(0, 181))
	assert.True(t, ValidCoordinate(35.6, 139.7))
}

func TestCompressAndObfuscate_RoundTrips(t *testing.T) {
	raw := []byte(`{"hello":"world","n":42}`)
	obfuscated, checksum, err := CompressAndObfuscate(raw, "test-key-seed")
	require.NoError(t, err)
	assert.NotEqual(t, raw, obfuscated)

	compressed := xorStream(obfuscated, "test-key-seed")
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	decoded, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	expectedSum := sha256Hex(raw)
	assert.Equal(t, expectedSum, checksum)
}

func TestCompressAndObfuscate_DifferentKeysProduceDifferentBytes(t *testing.T) {
	raw := []byte(`{"a":1}`)
	a, _, err := CompressAndObfuscate(raw, "key-a")
	require.NoError(t, err)
	b, _, err := CompressAndObfuscate(raw, "key-b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDistanceMeters_IsDeterministicAndInRange(t *testing.T) {
	a := DistanceMeters("E0001")
	b := DistanceMeters("E0001")
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 280)
	assert.Less(t, a, 280+5200)
}

func TestDistanceMeters_DiffersAcrossIDs(t *testing.T) {
	assert.NotEqual(t, DistanceMeters("E0001"), DistanceMeters("E0002"))
}

func TestHint_FallsBackThroughLocationChain(t *testing.T) {
	assert.Equal(t, "渋谷区・花火候補（3ソース統合）", Hint("東京都", "渋谷区", 3, "hanabi"))
	assert.Equal(t, "東京都・花火候補（1ソース統合）", Hint("東京都", "", 1, "hanabi"))
	assert.Equal(t, "開催地確認中・祭典候補（1ソース統合）", Hint("", "", 1, "matsuri"))
}

func TestPlaceID_IsStableAndCategoryScoped(t *testing.T) {
	a := PlaceID("hanabi", "E0001")
	b := PlaceID("hanabi", "E0001")
	c := PlaceID("matsuri", "E0001")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestBuildEntry_UsesAIScoreWhenUsable(t *testing.T) {
	event := domain.CanonicalEvent{CanonicalID: "E0001", EventName: "Sample Fireworks", Lat: "35.681236", Lng: "139.767125", SourceCount: 2}
	score := &domain.ScoreRecord{Status: domain.ScoreStatusOK, ScoreSource: domain.ScoreSourceAI, InitialHeatScore: 88, SurpriseScore: 40}

	entry := BuildEntry(event, nil, score, "hanabi", 5)
	assert.Equal(t, 88, entry.HeatScore)
	assert.Equal(t, 40, entry.SurpriseScore)
	assert.Equal(t, "xn76u", entry.Geohash)
}

func TestBuildEntry_FallsBackToHeuristicWhenScoreUnusable(t *testing.T) {
	event := domain.CanonicalEvent{CanonicalID: "E0002", EventName: "Sample Festival", SourceCount: 3}
	fallback := &domain.ScoreRecord{Status: domain.ScoreStatusFallbackError, ScoreSource: domain.ScoreSourceFallback, InitialHeatScore: 1, SurpriseScore: 1}

	entry := BuildEntry(event, nil, fallback, "hanabi", 5)
	assert.NotEqual(t, 1, entry.HeatScore)
	assert.GreaterOrEqual(t, entry.HeatScore, 20)
}

func TestBuildEntry_MissingCoordinateGoesToUnknownBucket(t *testing.T) {
	event := domain.CanonicalEvent{CanonicalID: "E0003", EventName: "No Coordinate Event"}
	entry := BuildEntry(event, nil, nil, "matsuri", 5)
	assert.Equal(t, UnknownGeohashBucket, entry.Geohash)
}

func TestBuildSpatialPayload_GroupsSortsAndRoundTrips(t *testing.T) {
	entries := []domain.ExportEntry{
		{IOSPlaceID: "b", Geohash: "xn76u"},
		{IOSPlaceID: "a", Geohash: "xn76u"},
		{IOSPlaceID: "c", Geohash: UnknownGeohashBucket},
	}
	buckets, payload, err := BuildSpatialPayload(entries, "seed")
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	bucket := buckets["xn76u"]
	assert.Equal(t, 2, bucket.RecordCount)

	chunk := payload[bucket.PayloadOffset : bucket.PayloadOffset+bucket.PayloadLength]
	compressed := xorStream(chunk, "seed")
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	raw, err := io.ReadAll(r)
	require.NoError(t, err)

	var rows []domain.ExportEntry
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].IOSPlaceID)
	assert.Equal(t, "b", rows[1].IOSPlaceID)
}

func TestBuild_AssemblesIndexAndPayload(t *testing.T) {
	project := ProjectInput{
		Category:   "hanabi",
		FusedRunID: "run-123",
		Events: []domain.CanonicalEvent{
			{CanonicalID: "E0001", EventName: "Festival A", Lat: "35.681236", Lng: "139.767125", SourceCount: 2},
			{CanonicalID: "E0002", EventName: "Festival B", SourceCount: 1},
		},
	}

	bundle, err := Build([]ProjectInput{project}, Options{GeohashPrecision: 5, KeySeed: "seed"}, "2026-07-29T00:00:00Z", "he_places.payload.bin", "")
	require.NoError(t, err)
	assert.Equal(t, 4, bundle.Index.Version)
	assert.Equal(t, 2, bundle.Index.RecordCounts["hanabi"])
	assert.NotEmpty(t, bundle.Payload)
	assert.Nil(t, bundle.Index.ImagePayload)
}

func TestBuild_RejectsOutOfRangePrecision(t *testing.T) {
	_, err := Build(nil, Options{GeohashPrecision: 2, KeySeed: "seed"}, "2026-07-29T00:00:00Z", "p.bin", "")
	assert.Error(t, err)
}

func sha256Hex(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
