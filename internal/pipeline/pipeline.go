// Package pipeline wraps one stage's batch run (fusion, content,
// scoring, export) with the teacher's start/log/metric/retry idiom,
// adapted from a perpetual Kafka consume loop to a single bounded
// CLI-invoked run: there is no message-at-a-time extract-transform-load
// here, since each stage package (internal/fusion, internal/content,
// internal/scoring, internal/export) already owns its own batch
// orchestration. What carries over is the logging and retry shape
// around "run this stage once."
package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// RunFunc is one stage's top-level batch run.
type RunFunc func(ctx context.Context) error

// Stage times and logs a single named run, recording its duration on
// an optional Prometheus histogram observer.
type Stage struct {
	Name     string
	Logger   *slog.Logger
	Duration interface{ Observe(float64) }
}

// Run executes fn once, logging start/finish and recording duration.
// A non-nil error from fn is logged and returned unchanged.
func (s Stage) Run(ctx context.Context, fn RunFunc) error {
	s.Logger.Info("stage started", "stage", s.Name)
	start := time.Now()

	err := fn(ctx)
	elapsed := time.Since(start)
	if s.Duration != nil {
		s.Duration.Observe(elapsed.Seconds())
	}

	if err != nil {
		s.Logger.Error("stage failed", "stage", s.Name, "error", err, "duration", elapsed)
		return err
	}
	s.Logger.Info("stage finished", "stage", s.Name, "duration", elapsed)
	return nil
}

// RetryOptions bounds RunWithRetry's backoff.
type RetryOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// RunWithRetry retries a stage a bounded number of times with doubling
// backoff, for a collaborator that may still be warming up (the
// geocoder sidecar's readiness window right after it starts). The
// streaming pipeline's unbounded per-message backoff has no place in a
// one-shot batch run, so this caps attempts instead of retrying
// forever.
func (s Stage) RunWithRetry(ctx context.Context, fn RunFunc, opts RetryOptions) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	maxBackoff := opts.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 5 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = s.Run(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if attempt == opts.MaxAttempts {
			break
		}
		s.Logger.Warn("stage retrying", "stage", s.Name, "attempt", attempt, "backoff", backoff)
		if !sleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return lastErr
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
