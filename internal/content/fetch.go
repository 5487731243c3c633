package content

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/time/rate"
)

// Fetcher retrieves one page's HTML, decoded to UTF-8 regardless of the
// charset the source site actually served it in.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
}

// NewFetcher builds a fetcher. qps of zero or less disables rate limiting.
func NewFetcher(timeout time.Duration, qps float64, userAgent string, maxRetries int) *Fetcher {
	var limiter *rate.Limiter
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		limiter:    limiter,
		maxRetries: maxRetries,
	}
}

// FetchedPage is one successfully retrieved page.
type FetchedPage struct {
	FinalURL string
	HTML     string
}

// FetchWithRetries retries transient failures with a short linear
// backoff (capped at four seconds), matching the crawler's original
// low-QPS courtesy pacing. It gives up and returns the last error after
// maxRetries attempts.
func (f *Fetcher) FetchWithRetries(ctx context.Context, url string) (FetchedPage, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return FetchedPage{}, err
			}
		}
		page, err := f.fetchOnce(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if attempt < f.maxRetries {
			backoff := time.Duration(float64(attempt)*500) * time.Millisecond
			if backoff > 4*time.Second {
				backoff = 4 * time.Second
			}
			select {
			case <-ctx.Done():
				return FetchedPage{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return FetchedPage{}, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchedPage{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return FetchedPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchedPage{}, fmt.Errorf("http_%d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchedPage{}, err
	}
	body := decodeBody(raw, resp.Header.Get("Content-Type"))

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return FetchedPage{FinalURL: finalURL, HTML: body}, nil
}

var metaCharsetPattern = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-zA-Z0-9_-]+)`)

// decodeBody transcodes a fetched page to UTF-8, trying candidates in
// the order JP event sites require: the header's declared charset, the
// page's own <meta> charset, a transport-inferred guess, an explicit
// utf-8/cp932/shift_jis/euc_jp try-list, and finally a permissive UTF-8
// decode with the replacement rune standing in for anything that still
// doesn't fit. A candidate only counts as successful if it decodes
// cleanly with no replacement runes, so an earlier wrong guess never
// wins over a later, correct one.
func decodeBody(raw []byte, contentType string) string {
	if name := declaredHeaderCharset(contentType); name != "" {
		if enc, err := htmlindex.Get(name); err == nil {
			if text, ok := tryDecode(raw, enc); ok {
				return text
			}
		}
	}
	if name := sniffMetaCharset(raw); name != "" {
		if enc, err := htmlindex.Get(name); err == nil {
			if text, ok := tryDecode(raw, enc); ok {
				return text
			}
		}
	}
	// charset.DetermineEncoding falls back to guessing windows-1252 when
	// it has no real signal to go on; only trust it when it reports
	// certain, so an unconfident guess doesn't shadow the explicit
	// try-list below with silently wrong text.
	if enc, _, certain := charset.DetermineEncoding(raw, contentType); certain && enc != nil {
		if text, ok := tryDecode(raw, enc); ok {
			return text
		}
	}
	if text, ok := tryExplicitCharsets(raw); ok {
		return text
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}

func declaredHeaderCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}

func sniffMetaCharset(raw []byte) string {
	m := metaCharsetPattern.FindSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.ToLower(string(m[1]))
}

// tryExplicitCharsets is the spec's fixed utf-8/cp932/shift_jis/euc_jp
// try-list. x/text's japanese.ShiftJIS decodes both the cp932 and
// shift_jis labels identically, so there is only one Shift-JIS attempt.
func tryExplicitCharsets(raw []byte) (string, bool) {
	if utf8.Valid(raw) {
		return string(raw), true
	}
	if text, ok := tryDecode(raw, japanese.ShiftJIS); ok {
		return text, true
	}
	return tryDecode(raw, japanese.EUCJP)
}

func tryDecode(raw []byte, enc encoding.Encoding) (string, bool) {
	text, err := enc.NewDecoder().String(string(raw))
	if err != nil || strings.ContainsRune(text, utf8.RuneError) {
		return "", false
	}
	return text, true
}
