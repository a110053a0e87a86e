// Package retry runs an operation under a bounded backoff policy.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"studybuddy/internal/apperr"
)

type Decision int

const (
	Terminal Decision = iota
	Retry
	RetryRateLimited
)

type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	Factor         float64
	RateLimitDelay time.Duration
	// Classify decides whether err is worth another attempt.
	Classify func(err error) Decision
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

var (
	LLM = Policy{
		MaxAttempts:    2,
		BaseDelay:      time.Second,
		Factor:         1.5,
		RateLimitDelay: 2 * time.Second,
		Classify:       ClassifyLLM,
	}
	File = Policy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		Factor:         2.0,
		RateLimitDelay: time.Second,
		Classify:       ClassifyFile,
	}
	Database = Policy{
		MaxAttempts:    3,
		BaseDelay:      300 * time.Millisecond,
		Factor:         1.2,
		RateLimitDelay: 500 * time.Millisecond,
		Classify:       ClassifyDatabase,
	}
)

// Do calls op until it succeeds, the policy gives up, or ctx ends.
// The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	classify := p.Classify
	if classify == nil {
		classify = func(error) Decision { return Retry }
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}
		decision := classify(err)
		if decision == Terminal {
			break
		}
		if sleepErr := sleep(ctx, p.backoff(attempt, decision)); sleepErr != nil {
			break
		}
	}
	return zero, lastErr
}

func (p Policy) backoff(attempt int, d Decision) time.Duration {
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(factor, float64(attempt)))
	if p.BaseDelay > 0 {
		delay += time.Duration(rand.Int63n(int64(p.BaseDelay)/10 + 1))
	}
	if d == RetryRateLimited {
		delay += p.RateLimitDelay * time.Duration(1<<attempt)
	}
	return delay
}

func ClassifyLLM(err error) Decision {
	c := apperr.Classify(err)
	switch {
	case c == apperr.CategoryRateLimit:
		return RetryRateLimited
	case c.Retryable():
		return Retry
	default:
		return Terminal
	}
}

// ClassifyFile stops on errors already turned into user-facing ones and
// otherwise treats the error like an OCR provider failure.
func ClassifyFile(err error) Decision {
	if _, ok := apperr.As(err); ok {
		return Terminal
	}
	return ClassifyLLM(err)
}

func ClassifyDatabase(err error) Decision {
	switch apperr.Classify(err) {
	case apperr.CategoryConnection, apperr.CategoryTimeout, apperr.CategoryServer:
		return Retry
	default:
		return Terminal
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
