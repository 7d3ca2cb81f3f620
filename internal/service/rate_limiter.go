package service

import (
	"context"
	"time"

	"github.com/repurpost/oauth-service/internal/config"
	"github.com/repurpost/oauth-service/internal/domain"
)

// Policy is a fixed-window admission policy
type Policy struct {
	Requests int
	Window   time.Duration
}

// Result describes the outcome of a rate limit check
type Result struct {
	Allowed    bool
	Current    int64
	Limit      int
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter performs fixed-window admission control over a swappable
// store. The window is fixed, not sliding: a burst straddling a window
// boundary can briefly pass close to twice the limit. That is accepted
// behavior and load tests depend on it.
type RateLimiter struct {
	store    LimitStore
	policies map[domain.Tier]Policy
}

// NewRateLimiter creates a rate limiter with tier-indexed policies
func NewRateLimiter(store LimitStore, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		store: store,
		policies: map[domain.Tier]Policy{
			domain.TierFree:    {Requests: cfg.Free.Requests, Window: cfg.Free.Window.Duration},
			domain.TierCreator: {Requests: cfg.Creator.Requests, Window: cfg.Creator.Window.Duration},
			domain.TierPro:     {Requests: cfg.Pro.Requests, Window: cfg.Pro.Window.Duration},
		},
	}
}

// PolicyFor returns the effective policy for a tier, falling back to FREE
func (l *RateLimiter) PolicyFor(tier domain.Tier) Policy {
	if p, ok := l.policies[tier]; ok {
		return p
	}
	return l.policies[domain.TierFree]
}

// Check increments the counter for key and evaluates it against the policy.
// The count includes the current request, so the Nth call under limit N is
// still allowed and the (N+1)th is rejected.
func (l *RateLimiter) Check(ctx context.Context, key string, policy Policy) (*Result, error) {
	count, resetAt, err := l.store.Increment(ctx, key, policy.Window)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Allowed:   count <= int64(policy.Requests),
		Current:   count,
		Limit:     policy.Requests,
		Remaining: int64(policy.Requests) - count,
		ResetAt:   resetAt,
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !result.Allowed {
		result.RetryAfter = time.Until(resetAt)
		if result.RetryAfter < 0 {
			result.RetryAfter = 0
		}
	}

	return result, nil
}

// Reset clears a key's window early
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
