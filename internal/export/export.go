package export

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/boogieLing/tsugie/internal/content"
	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/resolver"
	"github.com/boogieLing/tsugie/internal/scoring"
)

// ProjectInput is one category's source material for one export run.
type ProjectInput struct {
	Category         string
	FusedRunID       string
	Events           []domain.CanonicalEvent
	ContentIndex     *resolver.Index[*domain.ContentRecord]
	ScoreIndex       *resolver.Index[*domain.ScoreRecord]
	Images           []LocalImage
}

// Options configures one export bundle build.
type Options struct {
	GeohashPrecision int
	KeySeed          string
	ImageQuality     int
	ImageMaxPx       int
}

// CodecDescriptor documents the bundle's compression/obfuscation scheme
// for the client decoder.
type CodecDescriptor struct {
	Compression string `json:"compression"`
	Obfuscation string `json:"obfuscation"`
	Encoding    string `json:"encoding"`
	Charset     string `json:"charset"`
}

// SpatialIndexDescriptor documents the geohash bucketing scheme.
type SpatialIndexDescriptor struct {
	Scheme      string `json:"scheme"`
	Precision   int    `json:"precision"`
	BucketCount int    `json:"bucket_count"`
}

// ImagePayloadDescriptor summarizes the image payload file.
type ImagePayloadDescriptor struct {
	SHA256     string `json:"payload_sha256"`
	SizeBytes  int    `json:"payload_size_bytes"`
	EntryCount int    `json:"entry_count"`
}

// IndexDocument is the full he_places.index.json document.
type IndexDocument struct {
	Version            int                               `json:"version"`
	GeneratedAt         string                            `json:"generated_at"`
	Codec               CodecDescriptor                   `json:"codec"`
	SourceRuns           map[string]string                `json:"source_runs"`
	RecordCounts         map[string]int                    `json:"record_counts"`
	SpatialIndex         SpatialIndexDescriptor             `json:"spatial_index"`
	PayloadFile          string                            `json:"payload_file"`
	PayloadSHA256        string                            `json:"payload_sha256"`
	PayloadSizeBytes     int                               `json:"payload_size_bytes"`
	PayloadBuckets       map[string]domain.SpatialBucket    `json:"payload_buckets"`
	ImagePayloadFile     string                            `json:"image_payload_file,omitempty"`
	ImagePayload         *ImagePayloadDescriptor            `json:"image_payload,omitempty"`
}

const bundleVersion = 4

// Bundle is the assembled, ready-to-write export output.
type Bundle struct {
	Index         IndexDocument
	Payload       []byte
	ImagePayload  []byte
}

// Build joins every project's fused events with their resolved content
// and score records, derives every export entry, and assembles the
// spatial and image payloads into one bundle. generatedAt is injected by
// the caller since this package never calls time.Now directly.
func Build(projects []ProjectInput, opts Options, generatedAt string, payloadFileName, imagePayloadFileName string) (Bundle, error) {
	precision := opts.GeohashPrecision
	if precision < 3 || precision > 8 {
		return Bundle{}, fmt.Errorf("geohash precision must be between 3 and 8, got %d", precision)
	}

	var allEntries []domain.ExportEntry
	sourceRuns := make(map[string]string, len(projects))
	var allImages []LocalImage
	imageByCanonical := make(map[string][]LocalImage)

	for _, project := range projects {
		sourceRuns[project.Category+"_fused_run_id"] = project.FusedRunID
		for _, img := range project.Images {
			imageByCanonical[img.CanonicalID] = append(imageByCanonical[img.CanonicalID], img)
		}
		allImages = append(allImages, project.Images...)

		for _, event := range project.Events {
			identity := resolver.Identity{
				CanonicalID: event.CanonicalID,
				SourceURLs:  event.SourceURLs,
				NameDateKey: resolver.BuildNameDateKey(event.EventName, event.EventDateStart),
			}

			var contentRow *domain.ContentRecord
			if project.ContentIndex != nil {
				if c, ok := project.ContentIndex.Resolve(identity, content.IdentityOf, content.Less); ok {
					contentRow = c
				}
			}
			var scoreRow *domain.ScoreRecord
			if project.ScoreIndex != nil {
				if s, ok := project.ScoreIndex.Resolve(identity, scoring.IdentityOf, scoring.Less); ok {
					scoreRow = s
				}
			}

			allEntries = append(allEntries, BuildEntry(event, contentRow, scoreRow, project.Category, precision))
		}
	}

	sort.SliceStable(allEntries, func(i, j int) bool { return allEntries[i].IOSPlaceID < allEntries[j].IOSPlaceID })

	var imageResult ImagePayloadResult
	if len(allImages) > 0 {
		var err error
		imageResult, err = BuildImagePayload(allImages, opts.ImageQuality, opts.ImageMaxPx, opts.KeySeed)
		if err != nil {
			return Bundle{}, fmt.Errorf("build image payload: %w", err)
		}
		for i := range allEntries {
			if sha, ok := imageResult.ByCanonical[allEntries[i].CanonicalID]; ok {
				allEntries[i].ImageRawSHA = sha
			}
		}
	}

	buckets, payload, err := BuildSpatialPayload(allEntries, opts.KeySeed)
	if err != nil {
		return Bundle{}, fmt.Errorf("build spatial payload: %w", err)
	}

	payloadSum := sha256.Sum256(payload)
	index := IndexDocument{
		Version:     bundleVersion,
		GeneratedAt: generatedAt,
		Codec: CodecDescriptor{
			Compression: "zlib",
			Obfuscation: "xor_sha256_stream_v1",
			Encoding:    "binary_frame_v1",
			Charset:     "utf-8",
		},
		SourceRuns:   sourceRuns,
		RecordCounts: countByCategory(allEntries),
		SpatialIndex: SpatialIndexDescriptor{
			Scheme:      "geohash_prefix_v1",
			Precision:   precision,
			BucketCount: len(buckets),
		},
		PayloadFile:      payloadFileName,
		PayloadSHA256:    hex.EncodeToString(payloadSum[:]),
		PayloadSizeBytes: len(payload),
		PayloadBuckets:   buckets,
	}

	if len(allImages) > 0 {
		imageSum := sha256.Sum256(imageResult.Payload)
		index.ImagePayloadFile = imagePayloadFileName
		index.ImagePayload = &ImagePayloadDescriptor{
			SHA256:     hex.EncodeToString(imageSum[:]),
			SizeBytes:  len(imageResult.Payload),
			EntryCount: len(imageResult.RawSHAIndex),
		}
	}

	return Bundle{Index: index, Payload: payload, ImagePayload: imageResult.Payload}, nil
}

func countByCategory(entries []domain.ExportEntry) map[string]int {
	counts := map[string]int{"total": len(entries)}
	for _, e := range entries {
		counts[e.Category]++
	}
	return counts
}
