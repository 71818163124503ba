package tasks

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultDelay   = 500 * time.Millisecond
	DefaultBackoff = 5 * time.Second
)

// Pacer spaces out remote calls.
type Pacer interface {
	// Pace blocks until the next attempt may start.
	Pace(ctx context.Context) error
	// Backoff blocks before a failed query is attempted again.
	Backoff(ctx context.Context) error
}

// RatePacer starts attempts at most once per delay and sleeps for backoff before a retry.
type RatePacer struct {
	limiter *rate.Limiter
	backoff time.Duration
}

// NewRatePacer creates a [RatePacer]. A non-positive delay disables spacing.
func NewRatePacer(delay, backoff time.Duration) *RatePacer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &RatePacer{
		limiter: rate.NewLimiter(limit, 1),
		backoff: backoff,
	}
}

func (p *RatePacer) Pace(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

func (p *RatePacer) Backoff(ctx context.Context) error {
	return sleep(ctx, p.backoff)
}

// NopPacer never waits.
type NopPacer struct{}

func (NopPacer) Pace(ctx context.Context) error    { return ctx.Err() }
func (NopPacer) Backoff(ctx context.Context) error { return ctx.Err() }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
