package scoring

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/boogieLing/tsugie/internal/content"
	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/resolver"
)

// Options configures one scoring run.
type Options struct {
	Category            string
	PrioritizeNearStart bool
	FailedOnly          bool
	MaxEvents           int
	QPS                 float64
	Now                 time.Time
}

// Stats summarizes one scoring run for operator-facing logging.
type Stats struct {
	Total            int
	AIOk             int
	AIFailed         int
	ReusedOK         int
	Fallback         int
	SkippedMaxEvents int
}

// Run scores every canonical event: reusing a fresh previous score when
// the event's scoring-relevant content hasn't changed, calling the AI
// scorer up to the per-run call budget otherwise, and falling back to
// the heuristic formula whenever the scorer is unavailable, errors, or
// the budget is exhausted.
func Run(
	ctx context.Context,
	events []domain.CanonicalEvent,
	contentIndex *resolver.Index[*domain.ContentRecord],
	previousIndex *resolver.Index[*domain.ScoreRecord],
	scorer AIScorer,
	opts Options,
) ([]domain.ScoreRecord, Stats) {
	type item struct {
		event      domain.CanonicalEvent
		modelInput ModelInput
		sig        string
		prevRow    *domain.ScoreRecord
	}

	items := make([]item, 0, len(events))
	for _, event := range events {
		rowIdentity := resolver.Identity{
			CanonicalID: event.CanonicalID,
			SourceURLs:  event.SourceURLs,
			NameDateKey: resolver.BuildNameDateKey(event.EventName, event.EventDateStart),
		}

		var contentRow *domain.ContentRecord
		if contentIndex != nil {
			if c, ok := contentIndex.Resolve(rowIdentity, content.IdentityOf, content.Less); ok {
				contentRow = c
			}
		}

		var prevRow *domain.ScoreRecord
		if previousIndex != nil {
			if p, ok := previousIndex.Resolve(rowIdentity, IdentityOf, Less); ok {
				prevRow = p
			}
		}

		modelInput := BuildModelInput(event, contentRow, opts.Category)
		items = append(items, item{event: event, modelInput: modelInput, sig: InputHash(modelInput), prevRow: prevRow})
	}

	if opts.PrioritizeNearStart {
		sort.SliceStable(items, func(i, j int) bool {
			iRank, iDays := estimateStartDistanceDays(items[i].event.EventDateStart, opts.Now)
			jRank, jDays := estimateStartDistanceDays(items[j].event.EventDateStart, opts.Now)
			if iRank != jRank {
				return iRank < jRank
			}
			if iDays != jDays {
				return iDays < jDays
			}
			return items[i].event.EventName < items[j].event.EventName
		})
	}

	var limiter *rate.Limiter
	if opts.QPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.QPS), 1)
	}

	var stats Stats
	maxEvents := opts.MaxEvents
	apiCalls := 0
	out := make([]domain.ScoreRecord, 0, len(items))

	for _, it := range items {
		stats.Total++
		canonicalID := it.event.CanonicalID
		eventName := it.event.EventName
		eventDateStart := it.event.EventDateStart
		sourceURLs := it.event.SourceURLs

		if reused := reusePrevious(it.prevRow, it.sig, opts.FailedOnly); reused != nil {
			row := *reused
			row.Status = domain.ScoreStatusCachedOK
			row.GeneratedAt = opts.Now.UTC().Format(time.RFC3339)
			out = append(out, row)
			stats.ReusedOK++
			continue
		}

		if maxEvents > 0 && apiCalls >= maxEvents {
			heat, surprise := HeuristicFallback(it.event.SourceCount, parseNumberField(it.event.LaunchCount), parseNumberField(it.event.ExpectedVisitors), opts.Category)
			out = append(out, domain.ScoreRecord{
				CanonicalID: canonicalID, EventName: eventName, EventDateStart: eventDateStart, SourceURLs: sourceURLs,
				InitialHeatScore: heat, SurpriseScore: surprise, Reason: "heuristic",
				Status: domain.ScoreStatusFallbackMaxEvt, ScoreSource: domain.ScoreSourceFallback, ScoreProvider: domain.ScoreProviderLocal,
				InputHash: it.sig, Error: "max_events_reached", GeneratedAt: opts.Now.UTC().Format(time.RFC3339),
			})
			stats.Fallback++
			stats.SkippedMaxEvents++
			continue
		}

		if scorer == nil {
			heat, surprise := HeuristicFallback(it.event.SourceCount, parseNumberField(it.event.LaunchCount), parseNumberField(it.event.ExpectedVisitors), opts.Category)
			out = append(out, domain.ScoreRecord{
				CanonicalID: canonicalID, EventName: eventName, EventDateStart: eventDateStart, SourceURLs: sourceURLs,
				InitialHeatScore: heat, SurpriseScore: surprise, Reason: "heuristic",
				Status: domain.ScoreStatusFallbackNoKey, ScoreSource: domain.ScoreSourceFallback, ScoreProvider: domain.ScoreProviderLocal,
				InputHash: it.sig, Error: "missing_api_key", GeneratedAt: opts.Now.UTC().Format(time.RFC3339),
			})
			stats.Fallback++
			continue
		}

		if limiter != nil {
			_ = limiter.Wait(ctx)
		}
		apiCalls++

		heat, surprise, reason, err := scorer.Score(ctx, it.modelInput)
		if err != nil {
			fbHeat, fbSurprise := HeuristicFallback(it.event.SourceCount, parseNumberField(it.event.LaunchCount), parseNumberField(it.event.ExpectedVisitors), opts.Category)
			out = append(out, domain.ScoreRecord{
				CanonicalID: canonicalID, EventName: eventName, EventDateStart: eventDateStart, SourceURLs: sourceURLs,
				InitialHeatScore: fbHeat, SurpriseScore: fbSurprise, Reason: "heuristic",
				Status: domain.ScoreStatusFallbackError, ScoreSource: domain.ScoreSourceFallback, ScoreProvider: domain.ScoreProviderLocal,
				InputHash: it.sig, Error: truncate(err.Error(), 300), GeneratedAt: opts.Now.UTC().Format(time.RFC3339),
			})
			stats.AIFailed++
			stats.Fallback++
			continue
		}

		out = append(out, domain.ScoreRecord{
			CanonicalID: canonicalID, EventName: eventName, EventDateStart: eventDateStart, SourceURLs: sourceURLs,
			InitialHeatScore: heat, SurpriseScore: surprise, Reason: reason,
			Status: domain.ScoreStatusOK, ScoreSource: domain.ScoreSourceAI, ScoreProvider: domain.ScoreProviderRemote,
			InputHash: it.sig, Error: "", GeneratedAt: opts.Now.UTC().Format(time.RFC3339),
		})
		stats.AIOk++
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CanonicalID != out[j].CanonicalID {
			return out[i].CanonicalID < out[j].CanonicalID
		}
		return out[i].EventName < out[j].EventName
	})
	return out, stats
}

// reusePrevious decides whether a previous run's score row can stand in
// for a fresh one: an "ok" row is reused unconditionally in failed-only
// mode (since failed-only means "only re-score what previously failed"),
// or when the input hash still matches; a cached row is reused only on a
// hash match, since a cache replay was itself never independently judged.
func reusePrevious(prev *domain.ScoreRecord, sig string, failedOnly bool) *domain.ScoreRecord {
	if prev == nil {
		return nil
	}
	status := strings.ToLower(strings.TrimSpace(prev.Status))
	hashMatches := prev.InputHash != "" && prev.InputHash == sig
	switch {
	case status == "ok":
		if failedOnly || hashMatches {
			return prev
		}
	case strings.HasPrefix(status, "cached"):
		if hashMatches {
			return prev
		}
	}
	return nil
}

// estimateStartDistanceDays ranks events with a parseable start date
// ahead of those without one, nearest-first within the parseable group.
func estimateStartDistanceDays(eventDateStart string, now time.Time) (int, int) {
	date := resolver.ExtractLooseDate(eventDateStart)
	if date == "" {
		return 1, 10_000_000
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 1, 10_000_000
	}
	delta := int(parsed.Sub(now).Hours() / 24)
	if delta < 0 {
		delta = -delta
	}
	return 0, delta
}

func parseNumberField(s string) int {
	n, ok := ParseNumber(s)
	if !ok {
		return 0
	}
	return n
}
