package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// TokenLimiter throttles callers by a per-minute token budget (LLM tokens, API units).
type TokenLimiter struct {
	limiter *rate.Limiter
	max     int
}

// NewTokenLimiter allows maxPerMinute tokens per minute with a full initial bucket.
// A non-positive budget disables limiting.
func NewTokenLimiter(maxPerMinute int) *TokenLimiter {
	if maxPerMinute <= 0 {
		return &TokenLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &TokenLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(maxPerMinute)/60.0), maxPerMinute),
		max:     maxPerMinute,
	}
}

// Wait blocks until n tokens are available or ctx is done.
func (t *TokenLimiter) Wait(ctx context.Context, n int) error {
	if t.max == 0 || n <= 0 {
		return nil
	}
	if n > t.max {
		return fmt.Errorf("token request %d exceeds per-minute budget %d", n, t.max)
	}
	return t.limiter.WaitN(ctx, n)
}

// GetRemaining reports the tokens currently available.
func (t *TokenLimiter) GetRemaining() int {
	if t.max == 0 {
		return -1
	}
	return int(t.limiter.Tokens())
}
