package erp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/auth"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/ratelimit"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
	"go.uber.org/zap"
)

const (
	// maxLoggedBody bounds raw response bodies written to logs
	maxLoggedBody = 2048
	// categoryTTL bounds how long a resolved category name is reused
	categoryTTL = 12 * time.Hour
)

// classifyFunc turns a provider response into an error, or nil when usable
type classifyFunc func(provider integration.ProviderCode, resp *transport.Response) error

// base is the request pipeline shared by every driver:
// rate limit gate -> authenticated send -> status classification
type base struct {
	provider integration.ProviderCode
	cred     integration.ProviderCredential
	cfg      settings
	doer     transport.Doer
	limiter  *ratelimit.Limiter
	auth     *auth.Manager
	logger   *zap.Logger
	classify classifyFunc
}

func newBase(cred integration.ProviderCredential, cfg settings, doer transport.Doer, strategy auth.Strategy, logger *zap.Logger) *base {
	policy := ratelimit.DefaultPolicy(cred.Provider)
	if cfg.ratePolicy != nil {
		policy = *cfg.ratePolicy
	}
	return &base{
		provider: cred.Provider,
		cred:     cred,
		cfg:      cfg,
		doer:     doer,
		limiter: ratelimit.NewLimiter(cred.Provider, cred.TenantID, policy, cfg.store,
			ratelimit.WithClock(cfg.now),
			ratelimit.WithSpacers(cfg.spacers),
			ratelimit.WithLogger(logger),
		),
		auth: auth.NewManager(cred.Provider, cred.TenantID, strategy, cfg.store,
			auth.WithExpiryBuffer(cfg.expiryBuffer),
			auth.WithClock(cfg.now),
			auth.WithLogger(logger),
		),
		logger:   logger,
		classify: statusError,
	}
}

// driverLogger names the logger after the provider and tags the tenant
func driverLogger(cfg settings, cred integration.ProviderCredential) *zap.Logger {
	return cfg.logger.Named("erp."+string(cred.Provider)).With(zap.String("tenant_id", cred.TenantID))
}

// send runs req through the pipeline. A local rate-limit rejection makes no
// network call at all, not even a login.
func (b *base) send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := b.limiter.Acquire(ctx, req.Method); err != nil {
		return nil, err
	}
	return b.dispatch(ctx, req)
}

// sendSpare sends an optional request that may only use rate budget beyond
// reserve
func (b *base) sendSpare(ctx context.Context, req *transport.Request, reserve int64) (*transport.Response, error) {
	if err := b.limiter.AcquireSpare(ctx, req.Method, reserve); err != nil {
		return nil, err
	}
	return b.dispatch(ctx, req)
}

func (b *base) dispatch(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := b.auth.Do(ctx, req, b.doer.Do)
	if err != nil {
		return nil, err
	}
	if err := b.classify(b.provider, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// sendJSON sends req and decodes a JSON body. An empty body decodes to an
// empty payload; anything else that is not JSON is a schema mismatch.
func (b *base) sendJSON(ctx context.Context, req *transport.Request) (mapping.Payload, error) {
	resp, err := b.send(ctx, req)
	if err != nil {
		return mapping.Payload{}, err
	}
	return b.decode(resp.Body)
}

// sendSpareJSON is sendJSON for optional requests, see sendSpare
func (b *base) sendSpareJSON(ctx context.Context, req *transport.Request, reserve int64) (mapping.Payload, error) {
	resp, err := b.sendSpare(ctx, req, reserve)
	if err != nil {
		return mapping.Payload{}, err
	}
	return b.decode(resp.Body)
}

func (b *base) decode(body []byte) (mapping.Payload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return mapping.Payload{}, nil
	}
	p, err := mapping.Decode(body)
	if err != nil {
		return mapping.Payload{}, b.schemaError("response is not valid JSON", body)
	}
	return p, nil
}

// newJSON builds a JSON request against the driver base URL
func (b *base) newJSON(method, url string, payload any) (*transport.Request, error) {
	req, err := transport.NewJSONRequest(method, url, payload)
	if err != nil {
		return nil, integration.NewValidationError("payload", err.Error())
	}
	return req, nil
}

// schemaError logs the raw body and returns a SchemaError
func (b *base) schemaError(detail string, raw []byte) error {
	b.logger.Warn("unexpected provider response",
		zap.String("detail", detail),
		zap.String("body", truncate(raw, maxLoggedBody)),
	)
	return &integration.SchemaError{Provider: b.provider, Detail: detail, Raw: raw}
}

// fail converts err to a failed result and logs it at a level matching the
// failure kind
func (b *base) fail(op string, err error) integration.OperationResult {
	r := integration.ResultFromError(err)
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("kind", r.Kind.String()),
		zap.Error(err),
	}
	switch r.Kind {
	case integration.ResultValidationError, integration.ResultRateLimitExceeded:
		b.logger.Info("integration operation rejected", fields...)
	case integration.ResultTransientNetworkError:
		b.logger.Warn("integration operation failed", fields...)
	default:
		b.logger.Error("integration operation failed", fields...)
	}
	return r
}

// unsupported reports an operation the provider does not offer
func (b *base) unsupported(op string) integration.OperationResult {
	return b.fail(op, fmt.Errorf("%w: %s does not support %s", integration.ErrOperationNotSupported, b.provider, op))
}

// testConnection runs check and reports success with a fixed message
func (b *base) testConnection(ctx context.Context, check func(ctx context.Context) error) integration.OperationResult {
	start := b.cfg.now()
	if err := check(ctx); err != nil {
		return b.fail("test_connection", err)
	}
	return integration.Succeeded(fmt.Sprintf("%s connection OK", b.provider.DisplayName()), map[string]any{
		"provider":   b.provider,
		"latency_ms": b.cfg.now().Sub(start).Milliseconds(),
	})
}

// cached reads a small per-tenant lookup value, calling load on a miss
func (b *base) cached(ctx context.Context, name string, ttl time.Duration, load func(ctx context.Context) (string, error)) (string, error) {
	key := integration.LookupKey(b.provider, b.cred.TenantID, name)
	if v, found, err := b.cfg.store.Get(ctx, key); err == nil && found && len(v) > 0 {
		return string(v), nil
	}
	v, err := load(ctx)
	if err != nil {
		return "", err
	}
	if err := b.cfg.store.Set(ctx, key, []byte(v), ttl); err != nil {
		b.logger.Warn("failed to cache lookup value", zap.String("name", name), zap.Error(err))
	}
	return v, nil
}

// categoryFetch loads one category name, spending only rate budget beyond reserve
type categoryFetch func(ctx context.Context, id string, reserve int64) (string, error)

// categoryNames returns the lookup cache of one product page. Names resolved
// earlier are read from the tenant's store entries; the rest are fetched,
// keeping reserve units of rate budget free for the next page request. A
// lookup that was throttled or hit a transient failure is not remembered.
func (b *base) categoryNames(reserve int64, fetch categoryFetch) *mapping.LookupCache {
	return mapping.NewLookupCache(func(ctx context.Context, id string) (string, error) {
		return b.cached(ctx, "category:"+id, categoryTTL, func(ctx context.Context) (string, error) {
			name, err := fetch(ctx, id, reserve)
			if err != nil {
				b.logger.Debug("category lookup failed", zap.String("category_id", id), zap.Error(err))
			}
			return name, err
		})
	})
}

// pageReserve is the rate budget kept for the request of the next page
func pageReserve(more bool) int64 {
	if more {
		return 1
	}
	return 0
}

// forget drops a cached lookup value
func (b *base) forget(ctx context.Context, name string) {
	if err := b.cfg.store.Delete(ctx, integration.LookupKey(b.provider, b.cred.TenantID, name)); err != nil {
		b.logger.Warn("failed to drop lookup value", zap.String("name", name), zap.Error(err))
	}
}

// pageResult wraps mapped products in a paginated success
func pageResult(products []integration.CanonicalProduct, page, size int, total int64) integration.OperationResult {
	return integration.SucceededPage(
		fmt.Sprintf("%d products fetched", len(products)),
		products,
		integration.Pagination{
			Page:    page,
			PerPage: size,
			Total:   int(total),
			HasMore: mapping.HasMore(page, size, len(products), total),
		},
	)
}

func orderTime(order integration.CanonicalOrder, now func() time.Time) time.Time {
	if order.CreatedAt.IsZero() {
		return now()
	}
	return order.CreatedAt
}

// formatAddress renders "line district/city" for single-field address APIs
func formatAddress(a integration.Address) string {
	out := a.Line
	place := a.City
	if a.District != "" {
		place = a.District + "/" + a.City
	}
	if place != "" && place != "/" {
		if out != "" {
			out += " "
		}
		out += place
	}
	return out
}

// jsonRequest builds a body-less request accepting JSON
func jsonRequest(method, url string) *transport.Request {
	req := transport.NewRequest(method, url)
	req.Header.Set("Accept", transport.ContentTypeJSON)
	return req
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "...(truncated)"
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
