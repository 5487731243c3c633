package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// LocalImage is one image reference a content record downloaded, ready
// to be re-encoded into the export bundle's image payload.
type LocalImage struct {
	CanonicalID string
	Path        string
}

// ImagePayloadResult is the outcome of building the export image
// payload: the concatenated obfuscated bytes, an index from raw_sha to
// its chunk location, and a map from canonical id to the raw_sha of the
// first image that canonical id contributed (for wiring back onto
// export entries).
type ImagePayloadResult struct {
	Payload     []byte
	RawSHAIndex map[string]ImageChunkMeta
	ByCanonical map[string]string
}

// ImageChunkMeta is one deduplicated image chunk's location in the image
// payload buffer.
type ImageChunkMeta struct {
	RawSHA string `json:"raw_sha"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// BuildImagePayload re-encodes every local image to JPEG at the given
// quality with its longest side capped at maxPx, deduplicates identical
// output bytes by their sha256, and appends each distinct chunk
// (compressed and obfuscated) to one concatenated buffer. Images that
// fail to decode are skipped rather than aborting the run — a bad source
// image is a per-record defect, not a fatal error.
func BuildImagePayload(images []LocalImage, quality, maxPx int, keySeed string) (ImagePayloadResult, error) {
	result := ImagePayloadResult{
		RawSHAIndex: make(map[string]ImageChunkMeta),
		ByCanonical: make(map[string]string),
	}

	for _, img := range images {
		jpegBytes, err := reencodeJPEG(img.Path, quality, maxPx)
		if err != nil {
			continue
		}
		sum := sha256.Sum256(jpegBytes)
		rawSHA := hex.EncodeToString(sum[:])

		if _, exists := result.RawSHAIndex[rawSHA]; !exists {
			chunk, _, err := CompressAndObfuscate(jpegBytes, keySeed)
			if err != nil {
				return ImagePayloadResult{}, fmt.Errorf("image %s: %w", img.Path, err)
			}
			result.RawSHAIndex[rawSHA] = ImageChunkMeta{
				RawSHA: rawSHA,
				Offset: len(result.Payload),
				Length: len(chunk),
			}
			result.Payload = append(result.Payload, chunk...)
		}

		if _, seen := result.ByCanonical[img.CanonicalID]; !seen {
			result.ByCanonical[img.CanonicalID] = rawSHA
		}
	}

	return result, nil
}

func reencodeJPEG(path string, quality, maxPx int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxPx > 0 {
		longest := w
		if h > longest {
			longest = h
		}
		if longest > maxPx {
			scale := float64(maxPx) / float64(longest)
			w = max1(int(float64(w) * scale))
			h = max1(int(float64(h) * scale))
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func clampQuality(q int) int {
	if q <= 0 {
		return 85
	}
	if q > 100 {
		return 100
	}
	return q
}
