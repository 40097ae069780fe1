// Package ratelimit enforces per-provider, per-tenant request budgets before
// any network call. Fixed-window counters live in the shared CredentialStore;
// minimum spacing between calls is enforced in-process.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"go.uber.org/zap"
)

// Class groups requests sharing a budget
type Class string

const (
	ClassGet  Class = "get"
	ClassPost Class = "post"
	ClassAll  Class = "all"
)

// ClassForMethod maps an HTTP method to its budget class.
// Reads are "get"; every mutating verb counts as "post".
func ClassForMethod(method string) Class {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, "":
		return ClassGet
	default:
		return ClassPost
	}
}

// Budget is a fixed-window request allowance
type Budget struct {
	Class  Class
	Limit  int64
	Period time.Duration
}

// Applies reports whether the budget counts requests of class c
func (b Budget) Applies(c Class) bool {
	return b.Class == ClassAll || b.Class == c
}

// Policy is the full rate policy of a provider
type Policy struct {
	Budgets    []Budget
	MinSpacing time.Duration
}

// DefaultPolicy returns the published limits of each provider
func DefaultPolicy(provider integration.ProviderCode) Policy {
	switch provider {
	case integration.ProviderParasut:
		return Policy{Budgets: []Budget{{ClassAll, 10, 10 * time.Second}}}
	case integration.ProviderEntegra:
		return Policy{Budgets: []Budget{{ClassAll, 7200, time.Hour}}}
	case integration.ProviderBizimHesap:
		return Policy{
			Budgets: []Budget{
				{ClassGet, 2, time.Minute},
				{ClassPost, 12, time.Minute},
			},
			MinSpacing: time.Second,
		}
	case integration.ProviderSentos:
		return Policy{Budgets: []Budget{
			{ClassGet, 60, time.Minute},
			{ClassPost, 30, time.Minute},
		}}
	case integration.ProviderKargo:
		return Policy{
			Budgets:    []Budget{{ClassAll, 120, time.Minute}},
			MinSpacing: time.Second,
		}
	case integration.ProviderEArsiv:
		return Policy{Budgets: []Budget{{ClassPost, 60, time.Minute}}}
	default:
		return Policy{}
	}
}

// bucketLayout formats the window start inside counter keys
const bucketLayout = "20060102T150405"

// WindowKey returns the counter key of the window containing now
func WindowKey(provider integration.ProviderCode, tenant string, class Class, period time.Duration, now time.Time) string {
	start := now.UTC().Truncate(period)
	return fmt.Sprintf("ratelimit:%s:%s:%s:%s", provider, tenant, class, start.Format(bucketLayout))
}

// Limiter gates calls of one provider+tenant
type Limiter struct {
	provider integration.ProviderCode
	tenant   string
	policy   Policy
	store    integration.CredentialStore
	spacers  *SpacerRegistry
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithSpacers sets the registry holding minimum-spacing limiters
func WithSpacers(r *SpacerRegistry) Option {
	return func(l *Limiter) {
		l.spacers = r
	}
}

// WithLogger sets the limiter logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// NewLimiter creates a limiter for provider+tenant
func NewLimiter(provider integration.ProviderCode, tenant string, policy Policy, store integration.CredentialStore, opts ...Option) *Limiter {
	l := &Limiter{
		provider: provider,
		tenant:   tenant,
		policy:   policy,
		store:    store,
		spacers:  DefaultSpacers,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the limiter policy
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Acquire consumes one unit of every budget applying to method. When any
// budget is exhausted the units already taken are given back and
// integration.ErrRateLimitExceeded is returned. On success the call then
// waits for the provider's minimum spacing.
func (l *Limiter) Acquire(ctx context.Context, method string) error {
	return l.acquire(ctx, method, 0)
}

// AcquireSpare is Acquire for optional calls such as secondary lookups. It
// only succeeds while reserve units of every applying budget stay free for
// the calls that follow.
func (l *Limiter) AcquireSpare(ctx context.Context, method string, reserve int64) error {
	if reserve < 0 {
		reserve = 0
	}
	return l.acquire(ctx, method, reserve)
}

func (l *Limiter) acquire(ctx context.Context, method string, reserve int64) error {
	class := ClassForMethod(method)
	now := l.now()

	var taken []string
	for _, b := range l.policy.Budgets {
		if !b.Applies(class) || b.Limit <= 0 || b.Period <= 0 {
			continue
		}
		key := WindowKey(l.provider, l.tenant, b.Class, b.Period, now)
		n, err := l.store.Increment(ctx, key, 1, b.Period)
		if err != nil {
			l.rollback(ctx, taken)
			return fmt.Errorf("ratelimit: counter unavailable: %w", err)
		}
		if n > b.Limit-reserve {
			l.rollback(ctx, append(taken, key))
			l.logger.Info("local rate limit reached",
				zap.String("provider", l.provider.String()),
				zap.String("tenant_id", l.tenant),
				zap.String("class", string(b.Class)),
				zap.Int64("limit", b.Limit),
				zap.Int64("reserve", reserve),
				zap.Duration("period", b.Period),
			)
			return fmt.Errorf("%w: %s allows %d %s requests per %s",
				integration.ErrRateLimitExceeded, l.provider, b.Limit, b.Class, b.Period)
		}
		taken = append(taken, key)
	}

	if l.policy.MinSpacing > 0 && l.spacers != nil {
		if err := l.spacers.Get(l.provider, l.tenant, l.policy.MinSpacing).Wait(ctx); err != nil {
			return fmt.Errorf("%w: waiting for request spacing: %v", integration.ErrPlatformUnavailable, err)
		}
	}
	return nil
}

func (l *Limiter) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		if _, err := l.store.Increment(ctx, key, -1, 0); err != nil {
			l.logger.Warn("failed to roll back rate counter", zap.String("key", key), zap.Error(err))
		}
	}
}
