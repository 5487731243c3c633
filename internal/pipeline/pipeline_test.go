package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boogieLing/tsugie/internal/observability"
	"github.com/boogieLing/tsugie/internal/pipeline"
)

func newTestStage(t *testing.T, name string) pipeline.Stage {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	return pipeline.Stage{Name: name, Logger: slog.Default(), Duration: metrics.FusionRunDuration}
}

func TestStage_Run_HappyPath(t *testing.T) {
	s := newTestStage(t, "fusion")
	var called bool

	err := s.Run(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStage_Run_PropagatesError(t *testing.T) {
	s := newTestStage(t, "fusion")
	wantErr := errors.New("boom")

	err := s.Run(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestStage_RunWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	s := newTestStage(t, "content")
	attempts := 0

	err := s.RunWithRetry(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("not ready yet")
		}
		return nil
	}, pipeline.RetryOptions{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestStage_RunWithRetry_ReturnsLastErrorAfterExhaustion(t *testing.T) {
	s := newTestStage(t, "content")
	wantErr := errors.New("still broken")
	attempts := 0

	err := s.RunWithRetry(context.Background(), func(ctx context.Context) error {
		attempts++
		return wantErr
	}, pipeline.RetryOptions{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, attempts)
}

func TestStage_RunWithRetry_StopsOnContextCancellation(t *testing.T) {
	s := newTestStage(t, "content")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunWithRetry(ctx, func(ctx context.Context) error {
		return errors.New("fails")
	}, pipeline.RetryOptions{MaxAttempts: 5, InitialBackoff: 50 * time.Millisecond, MaxBackoff: 200 * time.Millisecond})

	require.Error(t, err)
}
