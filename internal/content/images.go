package content

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/time/rate"
)

var (
	reFilenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	reRepeatUnderscore = regexp.MustCompile(`_+`)
)

func sanitizeFilenameFragment(text string) string {
	out := reFilenameUnsafe.ReplaceAllString(text, "_")
	out = reRepeatUnderscore.ReplaceAllString(out, "_")
	out = strings.Trim(out, "_")
	if out == "" {
		return "image"
	}
	if len(out) > 80 {
		out = out[:80]
	}
	return out
}

func inferExtension(rawURL, contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "image/jpeg"):
		return "jpg"
	case strings.Contains(ct, "image/png"):
		return "png"
	case strings.Contains(ct, "image/webp"):
		return "webp"
	case strings.Contains(ct, "image/gif"):
		return "gif"
	case strings.Contains(ct, "image/avif"):
		return "avif"
	}
	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
		switch ext {
		case "jpeg":
			return "jpg"
		case "jpg", "png", "webp", "gif", "avif":
			return ext
		}
	}
	return "img"
}

// ImageDownloader fetches and persists an event's harvested image URLs
// to a per-canonical-event directory under an asset root.
type ImageDownloader struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	maxBytes   int64
}

// NewImageDownloader builds a downloader with its own rate limiter at
// qps (unlimited when qps <= 0), separate from the content fetcher's.
func NewImageDownloader(httpClient *http.Client, qps float64, maxBytes int64) *ImageDownloader {
	var limiter *rate.Limiter
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}
	return &ImageDownloader{httpClient: httpClient, limiter: limiter, maxBytes: maxBytes}
}

// Download fetches up to maxImages of the given URLs into targetDir,
// skipping anything that isn't actually image content or exceeds
// maxBytes, and returns the paths it wrote.
func (d *ImageDownloader) Download(ctx context.Context, imageURLs []string, targetDir string, maxImages int) ([]string, error) {
	if len(imageURLs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, err
	}

	urls := imageURLs
	if len(urls) > maxImages {
		urls = urls[:maxImages]
	}

	var downloaded []string
	for idx, u := range urls {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return downloaded, err
			}
		}
		p, ok := d.downloadOne(ctx, u, targetDir, idx+1)
		if ok {
			downloaded = append(downloaded, p)
		}
	}
	return downloaded, nil
}

func (d *ImageDownloader) downloadOne(ctx context.Context, u, targetDir string, index int) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "image/") {
		return "", false
	}

	reader := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil || len(raw) == 0 {
		return "", false
	}
	if d.maxBytes > 0 && int64(len(raw)) > d.maxBytes {
		return "", false
	}

	ext := inferExtension(u, contentType)
	if parsed, err := url.Parse(u); err == nil {
		_ = parsed
	}
	stem := sanitizeFilenameFragment(strings.TrimSuffix(path.Base(u), path.Ext(u)))
	digest := sha1.Sum([]byte(u))
	fileName := fmt.Sprintf("%02d_%s_%s.%s", index, stem, hex.EncodeToString(digest[:])[:10], ext)
	out := filepath.Join(targetDir, fileName)
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return "", false
	}
	return out, true
}
