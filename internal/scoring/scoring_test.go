package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boogieLing/tsugie/internal/domain"
	"github.com/boogieLing/tsugie/internal/resolver"
)

type stubScorer struct {
	heat, surprise int
	reason         string
	err            error
	calls          int
}

func (s *stubScorer) Score(_ context.Context, _ ModelInput) (int, int, string, error) {
	s.calls++
	if s.err != nil {
		return 0, 0, "", s.err
	}
	return s.heat, s.surprise, s.reason, nil
}

func mustEvent(canonicalID, name, dateStart string) domain.CanonicalEvent {
	return domain.CanonicalEvent{
		CanonicalID:    canonicalID,
		EventName:      name,
		EventDateStart: dateStart,
		SourceURLs:     []string{"https://example.com/" + canonicalID},
		SourceCount:    1,
	}
}

func TestRun_CallsScorerWhenNoPreviousRow(t *testing.T) {
	events := []domain.CanonicalEvent{mustEvent("c1", "Example Fireworks Festival", "2026-08-01")}
	scorer := &stubScorer{heat: 70, surprise: 40, reason: "well attended"}

	out, stats := Run(context.Background(), events, nil, nil, scorer, Options{Now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)})

	require.Len(t, out, 1)
	assert.Equal(t, domain.ScoreStatusOK, out[0].Status)
	assert.Equal(t, domain.ScoreSourceAI, out[0].ScoreSource)
	assert.Equal(t, 70, out[0].InitialHeatScore)
	assert.Equal(t, 1, scorer.calls)
	assert.Equal(t, 1, stats.AIOk)
}

func TestRun_FallsBackWithoutAScorer(t *testing.T) {
	events := []domain.CanonicalEvent{mustEvent("c1", "Example Festival", "2026-08-01")}

	out, stats := Run(context.Background(), events, nil, nil, nil, Options{Now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)})

	require.Len(t, out, 1)
	assert.Equal(t, domain.ScoreStatusFallbackNoKey, out[0].Status)
	assert.Equal(t, domain.ScoreSourceFallback, out[0].ScoreSource)
	assert.Equal(t, 1, stats.Fallback)
}

func TestRun_FallsBackOnScorerError(t *testing.T) {
	events := []domain.CanonicalEvent{mustEvent("c1", "Example Festival", "2026-08-01")}
	scorer := &stubScorer{err: errors.New("upstream 500")}

	out, stats := Run(context.Background(), events, nil, nil, scorer, Options{Now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)})

	require.Len(t, out, 1)
	assert.Equal(t, domain.ScoreStatusFallbackError, out[0].Status)
	assert.Contains(t, out[0].Error, "upstream 500")
	assert.Equal(t, 1, stats.AIFailed)
}

func TestRun_ReusesOKRowOnHashMatch(t *testing.T) {
	event := mustEvent("c1", "Example Festival", "2026-08-01")
	input := BuildModelInput(event, nil, "")
	sig := InputHash(input)

	prevIndex := resolver.NewIndex[*domain.ScoreRecord]()
	prev := &domain.ScoreRecord{
		CanonicalID: "c1", EventName: "Example Festival", EventDateStart: "2026-08-01",
		SourceURLs: event.SourceURLs, InitialHeatScore: 55, SurpriseScore: 33, Reason: "previously scored",
		Status: domain.ScoreStatusOK, ScoreSource: domain.ScoreSourceAI, ScoreProvider: domain.ScoreProviderRemote,
		InputHash: sig, GeneratedAt: "2026-06-01T00:00:00Z",
	}
	PutRecord(prevIndex, prev)

	scorer := &stubScorer{heat: 99, surprise: 99}
	out, stats := Run(context.Background(), []domain.CanonicalEvent{event}, nil, prevIndex, scorer, Options{Now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)})

	require.Len(t, out, 1)
	assert.Equal(t, domain.ScoreStatusCachedOK, out[0].Status)
	assert.Equal(t, 55, out[0].InitialHeatScore)
	assert.Equal(t, 0, scorer.calls)
	assert.Equal(t, 1, stats.ReusedOK)
}

func TestRun_DoesNotReuseOnHashMismatchUnlessFailedOnly(t *testing.T) {
	event := mustEvent("c1", "Example Festival", "2026-08-01")

	prevIndex := resolver.NewIndex[*domain.ScoreRecord]()
	prev := &domain.ScoreRecord{
		CanonicalID: "c1", EventName: "Example Festival", EventDateStart: "2026-08-01",
		SourceURLs: event.SourceURLs, InitialHeatScore: 55, SurpriseScore: 33,
		Status: domain.ScoreStatusOK, ScoreSource: domain.ScoreSourceAI,
		InputHash: "stale-hash", GeneratedAt: "2026-06-01T00:00:00Z",
	}
	PutRecord(prevIndex, prev)

	scorer := &stubScorer{heat: 80, surprise: 20}
	out, _ := Run(context.Background(), []domain.CanonicalEvent{event}, nil, prevIndex, scorer, Options{Now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), FailedOnly: false})

	require.Len(t, out, 1)
	assert.Equal(t, domain.ScoreStatusOK, out[0].Status)
	assert.Equal(t, 1, scorer.calls)
}

func TestRun_MaxEventsBudgetFallsBackAfterLimit(t *testing.T) {
	events := []domain.CanonicalEvent{
		mustEvent("c1", "Festival One", "2026-08-01"),
		mustEvent("c2", "Festival Two", "2026-08-02"),
	}
	scorer := &stubScorer{heat: 80, surprise: 20}

	out, stats := Run(context.Background(), events, nil, nil, scorer, Options{Now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), MaxEvents: 1})

	require.Len(t, out, 2)
	assert.Equal(t, 1, scorer.calls)
	assert.Equal(t, 1, stats.SkippedMaxEvents)

	var sawFallback bool
	for _, r := range out {
		if r.Status == domain.ScoreStatusFallbackMaxEvt {
			sawFallback = true
		}
	}
	assert.True(t, sawFallback)
}

func TestRun_OutputIsStableSortedByCanonicalThenName(t *testing.T) {
	events := []domain.CanonicalEvent{
		mustEvent("c2", "Second", "2026-08-02"),
		mustEvent("c1", "First", "2026-08-01"),
	}
	out, _ := Run(context.Background(), events, nil, nil, nil, Options{Now: time.Now().UTC()})
	require.Len(t, out, 2)
	assert.Equal(t, "c1", out[0].CanonicalID)
	assert.Equal(t, "c2", out[1].CanonicalID)
}

func TestHeuristicFallback_HanabiBoostsBase(t *testing.T) {
	heatPlain, _ := HeuristicFallback(2, 0, 0, "")
	heatHanabi, _ := HeuristicFallback(2, 0, 0, "hanabi")
	assert.Equal(t, heatPlain+5, heatHanabi)
}

func TestHeuristicFallback_ClampsToRange(t *testing.T) {
	heat, surprise := HeuristicFallback(1000, 1000000, 1000000, "hanabi")
	assert.LessOrEqual(t, heat, 95)
	assert.GreaterOrEqual(t, heat, 20)
	assert.LessOrEqual(t, surprise, 96)
	assert.GreaterOrEqual(t, surprise, 12)
}

func TestReusePrevious_CachedRowRequiresHashMatch(t *testing.T) {
	row := &domain.ScoreRecord{Status: domain.ScoreStatusCachedOK, InputHash: "abc"}
	assert.Nil(t, reusePrevious(row, "xyz", false))
	assert.NotNil(t, reusePrevious(row, "abc", false))
}

func TestReusePrevious_FailedOnlyReusesOKRegardlessOfHash(t *testing.T) {
	row := &domain.ScoreRecord{Status: domain.ScoreStatusOK, InputHash: "abc"}
	assert.NotNil(t, reusePrevious(row, "different", true))
}
