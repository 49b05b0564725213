// Package invoker wraps specialist stage calls with the resilience
// policy: a hard timeout per attempt, bounded exponential backoff on
// transient failures, and normalization of empty output. Empty results
// and overload are expected, handled failure modes of the upstream, not
// anomalies to work around.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/roamkit/roamkit/internal/logging"
	"github.com/roamkit/roamkit/internal/metrics"
	"github.com/roamkit/roamkit/pkg/domain"
	"github.com/roamkit/roamkit/pkg/ports"
)

// placeholderText acknowledges a stage that produced nothing usable
// after every attempt. The turn proceeds instead of failing outright.
const placeholderText = "I couldn't finish that part just now, but let's keep going with what we have."

// Invoker executes one specialist stage with retries and timeouts.
type Invoker struct {
	attempts       int
	baseBackoff    time.Duration
	jitterFraction float64
	stageTimeout   time.Duration

	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error // test seam
	rand   func() float64
}

// Option configures the Invoker.
type Option func(*Invoker)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// WithAttempts caps the total calls per invocation (default 3).
func WithAttempts(k int) Option {
	return func(i *Invoker) {
		if k > 0 {
			i.attempts = k
		}
	}
}

// WithBackoff sets the base delay, doubled per attempt, and the jitter
// fraction added on top to avoid retry synchronization across sessions.
func WithBackoff(base time.Duration, jitterFraction float64) Option {
	return func(i *Invoker) {
		if base > 0 {
			i.baseBackoff = base
		}
		if jitterFraction >= 0 {
			i.jitterFraction = jitterFraction
		}
	}
}

// WithStageTimeout sets the hard per-attempt timeout.
func WithStageTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.stageTimeout = d
		}
	}
}

// New creates an Invoker with the default policy.
func New(opts ...Option) *Invoker {
	inv := &Invoker{
		attempts:       3,
		baseBackoff:    500 * time.Millisecond,
		jitterFraction: 0.2,
		stageTimeout:   30 * time.Second,
		logger:         logging.NewNop(),
		sleep:          sleepCtx,
		rand:           rand.Float64,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke runs one specialist stage. Transient upstream failures are
// retried with exponential backoff up to the attempt cap; fatal failures
// return immediately. Empty output is a soft failure: retried like a
// transient error, and after the final attempt mapped to a placeholder
// acknowledgment that carries a warning patch instead of failing the
// turn. Attempt and backoff notices are reported through emit as
// thinking events.
func (i *Invoker) Invoke(ctx context.Context, stage ports.Stage, state *domain.TripState, message string, emit ports.Emitter) (*ports.StageResult, error) {
	var lastErr error

	for attempt := 1; attempt <= i.attempts; attempt++ {
		if attempt > 1 {
			delay := i.backoff(attempt)
			emit.Emit(domain.ThinkingEvent(fmt.Sprintf("Retrying %s (attempt %d of %d)...", stage.Name(), attempt, i.attempts)))
			metrics.StageRetries.WithLabelValues(stage.Name()).Inc()
			if err := i.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		result, err := i.runOnce(ctx, stage, state, message)
		switch {
		case err == nil && !result.Empty():
			return result, nil

		case err == nil:
			// Soft failure: the upstream answered but produced nothing.
			lastErr = domain.Transient(errors.New("empty stage output"))
			i.logger.Warn("stage returned empty output", "stage", stage.Name(), "attempt", attempt)

		case domain.IsTransient(err):
			lastErr = err
			i.logger.Warn("transient stage failure", "stage", stage.Name(), "attempt", attempt, "err", err)

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				// The turn itself was canceled; don't burn retries.
				return nil, ctx.Err()
			}
			// Per-attempt timeout: treat as transient overload.
			lastErr = domain.Transient(err)
			i.logger.Warn("stage attempt timed out", "stage", stage.Name(), "attempt", attempt)

		case domain.IsFatalUpstream(err):
			return nil, err

		default:
			return nil, domain.Fatal(err)
		}
	}

	i.logger.Warn("stage exhausted retries, proceeding with placeholder",
		"stage", stage.Name(), "attempts", i.attempts, "err", lastErr)
	return placeholder(stage.Name()), nil
}

func (i *Invoker) runOnce(ctx context.Context, stage ports.Stage, state *domain.TripState, message string) (*ports.StageResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, i.stageTimeout)
	defer cancel()

	result, err := stage.Run(attemptCtx, state, message)
	if err != nil {
		var ue *domain.UpstreamError
		if errors.As(err, &ue) {
			return nil, ue
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		// Unclassified failures are fatal: a malformed request will not
		// get better by retrying.
		return nil, err
	}
	return result, nil
}

// backoff computes the delay before the given attempt (attempt >= 2):
// base doubled per prior attempt, plus a random jitter fraction. The
// schedule is monotonically non-decreasing across attempts.
func (i *Invoker) backoff(attempt int) time.Duration {
	d := i.baseBackoff << (attempt - 2)
	if i.jitterFraction > 0 {
		d += time.Duration(i.rand() * i.jitterFraction * float64(d))
	}
	return d
}

// placeholder builds the soft-failure acknowledgment with the warning
// the orchestrator will fold into TripState.
func placeholder(stageName string) *ports.StageResult {
	return &ports.StageResult{
		Text: placeholderText,
		Patch: &ports.StatePatch{
			Warnings: []string{fmt.Sprintf("The %s step returned no usable output; continuing without it.", stageName)},
		},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
