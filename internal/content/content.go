package content

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/resolver"
)

// Options configures one content-enrichment run.
type Options struct {
	Category          string
	FusedRunID        string
	MinRefreshDays    int
	Force             bool
	MaxSourceURLs     int
	MaxImages         int
	MaxDescChars      int
	MaxImageBytes     int64
	DownloadImages    bool
	ImageAssetRoot    string
	Now               time.Time
}

// Stats summarizes one content run for operator-facing logging.
type Stats struct {
	Total          int
	OK             int
	Partial        int
	Empty          int
	Cached         int
	WithDescription int
	WithImages      int
}

// Run crawls every canonical event's source pages for a description and
// photos, reusing a previous run's record when it is still fresh.
func Run(ctx context.Context, events []domain.CanonicalEvent, previous *resolver.Index[*domain.ContentRecord], fetcher *Fetcher, downloader *ImageDownloader, polisher Polisher, opts Options) ([]domain.ContentRecord, Stats) {
	records := make([]domain.ContentRecord, 0, len(events))
	var stats Stats

	for _, event := range events {
		record := runOne(ctx, event, previous, fetcher, downloader, polisher, opts)
		records = append(records, record)
		stats.Total++
		switch record.Status {
		case domain.ContentStatusOK:
			stats.OK++
		case domain.ContentStatusPartial:
			stats.Partial++
		case domain.ContentStatusEmpty:
			stats.Empty++
		case domain.ContentStatusCached:
			stats.Cached++
		}
		if record.HasDescription() {
			stats.WithDescription++
		}
		if record.HasImages() {
			stats.WithImages++
		}
	}
	return records, stats
}

func runOne(ctx context.Context, event domain.CanonicalEvent, previous *resolver.Index[*domain.ContentRecord], fetcher *Fetcher, downloader *ImageDownloader, polisher Polisher, opts Options) domain.ContentRecord {
	sourceURLs := DedupURLs(event.SourceURLs)
	sig := Signature(sourceURLs)
	identity := resolver.Identity{
		CanonicalID: event.CanonicalID,
		SourceURLs:  sourceURLs,
		NameDateKey: resolver.BuildNameDateKey(event.EventName, event.EventDateStart),
	}

	if previous != nil {
		if prev, ok := previous.Resolve(identity, IdentityOf, Less); ok {
			if IsRecentEnough(toCachedRecord(prev), sig, opts.MinRefreshDays, opts.Force, opts.Now) {
				reused := *prev
				reused.FusedRunID = opts.FusedRunID
				reused.Status = domain.ContentStatusCached
				reused.Error = ""
				return reused
			}
		}
	}

	maxSourceURLs := opts.MaxSourceURLs
	if maxSourceURLs < 1 {
		maxSourceURLs = 1
	}
	selected := sourceURLs
	if len(selected) > maxSourceURLs {
		selected = selected[:maxSourceURLs]
	}

	var extracts []PageExtract
	var descriptionSourceURL string
	var fetchErr string
	for _, u := range selected {
		page, err := fetcher.FetchWithRetries(ctx, u)
		if err != nil {
			fetchErr = err.Error()
			continue
		}
		extract, err := ExtractFromPage(page.FinalURL, page.HTML, maxOrDefault(opts.MaxDescChars, 1800), maxOrDefault(opts.MaxImages, 6))
		if err != nil {
			fetchErr = err.Error()
			continue
		}
		extracts = append(extracts, extract)
		if descriptionSourceURL == "" {
			descriptionSourceURL = page.FinalURL
		}
	}

	best, hasBest := PickBestPageExtract(extracts)
	rawDescription := ""
	var imageURLs []string
	if hasBest {
		rawDescription = best.RawDescription
		imageURLs = best.ImageURLs
	}
	if descriptionSourceURL == "" && len(selected) > 0 {
		descriptionSourceURL = selected[0]
	}

	bundle := domain.PolishBundle{}
	polishMode := domain.PolishModeNone
	if rawDescription != "" && polisher != nil {
		backendMode := domain.PolishModeOpenAI
		switch polisher.(type) {
		case *LocalSubprocessPolisher:
			backendMode = domain.PolishModeCodex
		case NoopPolisher, *NoopPolisher:
			backendMode = domain.PolishModeNone
		}
		b, err := polisher.Polish(ctx, rawDescription)
		if err != nil {
			polishMode = backendMode + "_failed"
			fetchErr = appendError(fetchErr, "polish_error:"+err.Error())
			bundle.PolishedDescriptionJA = rawDescription
			bundle.OneLinerJA = FallbackOneLiner(rawDescription)
		} else {
			bundle = b
			polishMode = backendMode
		}
	} else if rawDescription != "" {
		bundle.PolishedDescriptionJA = rawDescription
		bundle.OneLinerJA = FallbackOneLiner(rawDescription)
	}

	var downloadedImages []string
	if len(imageURLs) > 0 && opts.DownloadImages && downloader != nil {
		targetDir := filepath.Join(opts.ImageAssetRoot, event.CanonicalID)
		paths, err := downloader.Download(ctx, imageURLs, targetDir, maxOrDefault(opts.MaxImages, 6))
		if err != nil {
			fetchErr = appendError(fetchErr, err.Error())
		}
		downloadedImages = paths
	}

	status := domain.ContentStatusOK
	switch {
	case rawDescription == "" && len(imageURLs) == 0:
		status = domain.ContentStatusEmpty
	case fetchErr != "":
		status = domain.ContentStatusPartial
	}

	return domain.ContentRecord{
		CanonicalID:          event.CanonicalID,
		Category:             opts.Category,
		EventName:            event.EventName,
		EventDateStart:       event.EventDateStart,
		EventDateEnd:         event.EventDateEnd,
		FusedRunID:           opts.FusedRunID,
		DescriptionSourceURL: descriptionSourceURL,
		RawDescription:       rawDescription,
		PolishBundle:         bundle,
		ImageURLs:            imageURLs,
		DownloadedImages:     downloadedImages,
		SourceURLs:           sourceURLs,
		SourceURLsSig:        sig,
		Status:               status,
		Error:                fetchErr,
		FetchedAt:            opts.Now,
		PolishMode:           polishMode,
		PolishI18nIncomplete: !bundle.Complete(),
	}
}

func toCachedRecord(r *domain.ContentRecord) *cachedRecord {
	return &cachedRecord{
		SourceURLsSig:  r.SourceURLsSig,
		FetchedAt:      r.FetchedAt,
		RawDescription: r.RawDescription,
		HasImages:      r.HasImages(),
	}
}

func maxOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func appendError(existing, next string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return next
	}
	return existing + "; " + next
}
