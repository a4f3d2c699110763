package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// RequestPolicy bounds one class of external call.
type RequestPolicy struct {
	Name        string
	Timeout     time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
}

// Default policies per call site.
var (
	TranscriptionPolicy = RequestPolicy{Name: "transcription", Timeout: 120 * time.Second, MaxRetries: 2, BaseBackoff: time.Second}
	MindMapPolicy       = RequestPolicy{Name: "mind_map", Timeout: 60 * time.Second, MaxRetries: 1, BaseBackoff: time.Second}
	ChatPolicy          = RequestPolicy{Name: "chat", Timeout: 15 * time.Second, MaxRetries: 1, BaseBackoff: time.Second}
)

// Backoff returns the pause after the given failed attempt (1-based).
func (p RequestPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseBackoff * time.Duration(1<<(attempt-1))
}

func (p RequestPolicy) normalized(fallback RequestPolicy) RequestPolicy {
	if p.Name == "" {
		p.Name = fallback.Name
	}
	if p.Timeout <= 0 {
		p.Timeout = fallback.Timeout
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = fallback.BaseBackoff
	}
	return p
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RequestGuard runs external calls under a deadline with exponential retry.
type RequestGuard struct {
	logger Logger
	sleep  SleepFunc
	clock  Clock
}

// NewRequestGuard constructs a guard. Nil arguments fall back to defaults.
func NewRequestGuard(logger Logger, sleep SleepFunc, clock Clock) *RequestGuard {
	if logger == nil {
		logger = log.Default()
	}
	if sleep == nil {
		sleep = sleepContext
	}
	if clock == nil {
		clock = time.Now
	}
	return &RequestGuard{logger: logger, sleep: sleep, clock: clock}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type attemptResult[T any] struct {
	value T
	err   error
}

// Run calls op until it succeeds or policy.MaxRetries+1 attempts have failed.
// Each attempt races op against policy.Timeout. A lost race counts as a failed attempt,
// but op is not cancelled: it keeps running and its late result is discarded.
// Only cancellation of ctx or an ErrNotConfigured failure stops the guard early.
func Run[T any](ctx context.Context, g *RequestGuard, policy RequestPolicy, op func(context.Context) (T, error)) (T, error) {
	if g == nil {
		g = NewRequestGuard(nil, nil, nil)
	}
	policy = policy.normalized(ChatPolicy)

	var zero T
	for attempt := 1; ; attempt++ {
		value, err := runAttempt(ctx, g, policy, attempt, op)
		if err == nil {
			if attempt > 1 {
				g.logger.Info("ai request recovered", "operation", policy.Name, "attempt", attempt)
			}
			return value, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if errors.Is(err, ErrNotConfigured) {
			return zero, fmt.Errorf("%s: %w", policy.Name, err)
		}
		g.logger.Warn("ai request attempt failed", "operation", policy.Name, "attempt", attempt, "err", err)
		if attempt > policy.MaxRetries {
			return zero, fmt.Errorf("%s: %w after %d attempts: %w", policy.Name, ErrRetriesExhausted, attempt, err)
		}
		if err := g.sleep(ctx, policy.Backoff(attempt)); err != nil {
			return zero, err
		}
	}
}

func runAttempt[T any](ctx context.Context, g *RequestGuard, policy RequestPolicy, attempt int, op func(context.Context) (T, error)) (T, error) {
	var zero T
	done := make(chan attemptResult[T], 1)
	started := g.clock()
	go func() {
		value, err := op(ctx)
		done <- attemptResult[T]{value: value, err: err}
	}()

	timer := time.NewTimer(policy.Timeout)
	defer timer.Stop()
	select {
	case res := <-done:
		if res.err != nil {
			return zero, res.err
		}
		return res.value, nil
	case <-timer.C:
		return zero, &TimeoutError{
			Operation: policy.Name,
			Attempt:   attempt,
			Deadline:  policy.Timeout,
			Elapsed:   g.clock().Sub(started),
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
