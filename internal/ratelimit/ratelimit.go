package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/nutricare/internal/adapter/metrics"
	"github.com/user/nutricare/internal/domain"
)

const keyPrefix = "rate_limit:"

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// Limiter implements fixed-window rate limiting on the key-value store's
// atomic increment-with-expiry. On backing-store failure it fails open and
// logs the outage as a security-relevant event.
type Limiter struct {
	store   domain.KVStore
	logger  *slog.Logger
	metrics *metrics.DataMetrics
}

// New creates a Limiter. metrics may be nil in tests.
func New(store domain.KVStore, logger *slog.Logger, m *metrics.DataMetrics) *Limiter {
	return &Limiter{
		store:   store,
		logger:  logger.With("component", "rate_limiter"),
		metrics: m,
	}
}

// Check counts a request against the identifier's current window.
func (l *Limiter) Check(ctx context.Context, identifier string, limit int64, window time.Duration) (Decision, error) {
	if identifier == "" {
		return Decision{}, fmt.Errorf("%w: rate limit identifier is required", domain.ErrValidation)
	}
	if limit <= 0 || window <= 0 {
		return Decision{}, fmt.Errorf("%w: limit and window must be positive", domain.ErrValidation)
	}

	count, remaining, err := l.store.IncrWithTTL(ctx, keyPrefix+identifier, window)
	if err != nil {
		l.logger.Error("rate limit backing store unavailable, failing open",
			"identifier", identifier,
			"error", err,
		)
		if l.metrics != nil {
			l.metrics.RateLimitDecisions.WithLabelValues("fail_open").Inc()
		}
		return Decision{Allowed: true, Remaining: limit, ResetAt: time.Now().Add(window)}, nil
	}

	d := Decision{
		Allowed: count <= limit,
		ResetAt: time.Now().Add(remaining),
	}
	if left := limit - count; left > 0 {
		d.Remaining = left
	}

	if l.metrics != nil {
		if d.Allowed {
			l.metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()
		} else {
			l.metrics.RateLimitDecisions.WithLabelValues("denied").Inc()
		}
	}
	if !d.Allowed {
		l.logger.Warn("rate limit exceeded", "identifier", identifier, "count", count, "limit", limit)
	}

	return d, nil
}
