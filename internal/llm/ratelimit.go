package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Extractor
	limiter *rate.Limiter
}

// RateLimited wraps next so calls wait for limiter before reaching the provider.
// A nil limiter returns next unchanged.
func RateLimited(next Extractor, limiter *rate.Limiter) Extractor {
	if limiter == nil {
		return next
	}
	return &rateLimited{next: next, limiter: limiter}
}

// NewLimiter builds a limiter allowing perSecond requests with the given burst.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (r *rateLimited) Name() string { return r.next.Name() }

func (r *rateLimited) Extract(ctx context.Context, req Request) (*Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", r.next.Name(), err)
	}
	return r.next.Extract(ctx, req)
}
