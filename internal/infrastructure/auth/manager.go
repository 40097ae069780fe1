package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State is the authentication state of one provider+tenant
type State string

const (
	StateUnauthenticated  State = "unauthenticated"
	StateAuthenticating   State = "authenticating"
	StateAuthenticated    State = "authenticated"
	StateExpired          State = "expired"
	StateRefreshingToken  State = "refreshing_token"
	StateReauthenticating State = "reauthenticating"
)

// SendFunc sends an already-authenticated request
type SendFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

// UnauthorizedFunc reports whether a response means the credential was rejected
type UnauthorizedFunc func(resp *transport.Response) bool

// Manager owns the token lifecycle of one provider+tenant. Tokens live in the
// shared CredentialStore so every process serving the tenant reuses them.
type Manager struct {
	provider     integration.ProviderCode
	tenant       string
	strategy     Strategy
	store        integration.CredentialStore
	buffer       time.Duration
	now          func() time.Time
	unauthorized UnauthorizedFunc
	logger       *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	state State
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithExpiryBuffer sets the safety margin subtracted from token lifetimes
func WithExpiryBuffer(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.buffer = d
	}
}

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithUnauthorizedCheck overrides how a rejected credential is detected
func WithUnauthorizedCheck(fn UnauthorizedFunc) ManagerOption {
	return func(m *Manager) {
		m.unauthorized = fn
	}
}

// WithLogger sets the manager logger
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an auth manager for provider+tenant
func NewManager(provider integration.ProviderCode, tenant string, strategy Strategy, store integration.CredentialStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		provider: provider,
		tenant:   tenant,
		strategy: strategy,
		store:    store,
		buffer:   integration.DefaultTokenExpiryBuffer,
		now:      time.Now,
		unauthorized: func(resp *transport.Response) bool {
			return resp.StatusCode == http.StatusUnauthorized
		},
		logger: zap.NewNop(),
		state:  StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current authentication state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Manager) key() string {
	return integration.TokenKey(m.provider, m.tenant)
}

// Token returns a usable token, logging in or refreshing when needed.
// Stateless strategies return an empty record.
func (m *Manager) Token(ctx context.Context) (integration.TokenRecord, error) {
	if m.strategy.Stateless() {
		m.setState(StateAuthenticated)
		return integration.TokenRecord{Provider: m.provider, Tenant: m.tenant}, nil
	}

	rec, found, err := m.load(ctx)
	if err != nil {
		return integration.TokenRecord{}, err
	}
	if found && !rec.Expired(m.now()) {
		m.setState(StateAuthenticated)
		return rec, nil
	}

	v, err, _ := m.group.Do("token", func() (any, error) {
		// another caller may have stored a fresh token meanwhile
		current, found, err := m.load(ctx)
		if err != nil {
			return integration.TokenRecord{}, err
		}
		now := m.now()
		if found && !current.Expired(now) {
			return current, nil
		}
		if found {
			m.setState(StateExpired)
			if current.Refreshable(now) {
				return m.refreshOrLogin(ctx, current)
			}
			return m.login(ctx, StateReauthenticating)
		}
		return m.login(ctx, StateAuthenticating)
	})
	if err != nil {
		return integration.TokenRecord{}, err
	}
	return v.(integration.TokenRecord), nil
}

// Recover replaces a token the provider rejected: refresh when possible,
// otherwise a full re-login. Concurrent recoveries of the same token collapse.
func (m *Manager) Recover(ctx context.Context, stale integration.TokenRecord) (integration.TokenRecord, error) {
	v, err, _ := m.group.Do("recover:"+stale.AccessToken, func() (any, error) {
		current, found, err := m.load(ctx)
		if err != nil {
			return integration.TokenRecord{}, err
		}
		if found && current.AccessToken != stale.AccessToken && !current.Expired(m.now()) {
			return current, nil
		}
		if stale.Refreshable(m.now()) {
			return m.refreshOrLogin(ctx, stale)
		}
		if err := m.store.Delete(ctx, m.key()); err != nil {
			m.logger.Warn("failed to drop rejected token", zap.Error(err))
		}
		return m.login(ctx, StateReauthenticating)
	})
	if err != nil {
		return integration.TokenRecord{}, err
	}
	return v.(integration.TokenRecord), nil
}

// Invalidate drops the cached token
func (m *Manager) Invalidate(ctx context.Context) error {
	m.setState(StateUnauthenticated)
	if m.strategy.Stateless() {
		return nil
	}
	return m.store.Delete(ctx, m.key())
}

// Do authenticates req and sends it. A rejected credential triggers exactly
// one recovery and retry; a second rejection invalidates the token and fails
// with integration.ErrPlatformAuthFailed. For stateless strategies the
// response is returned as-is.
func (m *Manager) Do(ctx context.Context, req *transport.Request, send SendFunc) (*transport.Response, error) {
	tok, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.send(ctx, req, tok, send)
	if err != nil || m.strategy.Stateless() || !m.unauthorized(resp) {
		return resp, err
	}

	m.logger.Info("provider rejected token, recovering",
		zap.String("provider", m.provider.String()),
		zap.String("tenant_id", m.tenant),
	)
	tok, err = m.Recover(ctx, tok)
	if err != nil {
		return nil, err
	}

	resp, err = m.send(ctx, req, tok, send)
	if err != nil {
		return nil, err
	}
	if m.unauthorized(resp) {
		if ierr := m.Invalidate(ctx); ierr != nil {
			m.logger.Warn("failed to invalidate token", zap.Error(ierr))
		}
		return nil, fmt.Errorf("%w: credential rejected after re-authentication (HTTP %d)", integration.ErrPlatformAuthFailed, resp.StatusCode)
	}
	return resp, nil
}

func (m *Manager) send(ctx context.Context, req *transport.Request, tok integration.TokenRecord, send SendFunc) (*transport.Response, error) {
	authed := req.Clone()
	m.strategy.Apply(authed, tok)
	return send(ctx, authed)
}

func (m *Manager) refreshOrLogin(ctx context.Context, current integration.TokenRecord) (integration.TokenRecord, error) {
	m.setState(StateRefreshingToken)
	grant, err := m.strategy.Refresh(ctx, current.RefreshToken)
	if err == nil {
		if grant.RefreshToken == "" {
			grant.RefreshToken = current.RefreshToken
			if !current.RefreshExpiresAt.IsZero() {
				grant.RefreshExpiresIn = current.RefreshExpiresAt.Sub(m.now())
			}
		}
		return m.persist(ctx, grant)
	}
	if isTransient(err) {
		m.setState(StateExpired)
		return integration.TokenRecord{}, err
	}
	m.logger.Info("token refresh failed, re-authenticating",
		zap.String("provider", m.provider.String()),
		zap.String("tenant_id", m.tenant),
		zap.Error(err),
	)
	return m.login(ctx, StateReauthenticating)
}

func (m *Manager) login(ctx context.Context, during State) (integration.TokenRecord, error) {
	m.setState(during)
	grant, err := m.strategy.Login(ctx)
	if err != nil {
		m.setState(StateUnauthenticated)
		if derr := m.store.Delete(ctx, m.key()); derr != nil {
			m.logger.Warn("failed to drop token after login failure", zap.Error(derr))
		}
		if isTransient(err) || errors.Is(err, integration.ErrPlatformAuthFailed) {
			return integration.TokenRecord{}, err
		}
		return integration.TokenRecord{}, fmt.Errorf("%w: %v", integration.ErrPlatformAuthFailed, err)
	}
	if grant.AccessToken == "" {
		m.setState(StateUnauthenticated)
		return integration.TokenRecord{}, fmt.Errorf("%w: login returned no token", integration.ErrPlatformAuthFailed)
	}
	return m.persist(ctx, grant)
}

func (m *Manager) persist(ctx context.Context, grant Grant) (integration.TokenRecord, error) {
	now := m.now()
	rec := integration.NewTokenRecord(m.provider, m.tenant, grant.AccessToken, now, grant.ExpiresIn, m.buffer).
		WithRefresh(grant.RefreshToken, now, grant.RefreshExpiresIn)
	for k, v := range grant.Metadata {
		rec = rec.WithMetadata(k, v)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return integration.TokenRecord{}, fmt.Errorf("auth: failed to encode token: %w", err)
	}
	if err := m.store.Set(ctx, m.key(), data, rec.StoreTTL(now)); err != nil {
		// the token is still usable for this call
		m.logger.Warn("failed to cache provider token",
			zap.String("provider", m.provider.String()),
			zap.String("tenant_id", m.tenant),
			zap.Error(err),
		)
	}
	m.setState(StateAuthenticated)
	return rec, nil
}

func (m *Manager) load(ctx context.Context) (integration.TokenRecord, bool, error) {
	data, found, err := m.store.Get(ctx, m.key())
	if err != nil {
		m.logger.Warn("credential store unavailable, treating token as missing", zap.Error(err))
		return integration.TokenRecord{}, false, nil
	}
	if !found {
		return integration.TokenRecord{}, false, nil
	}
	var rec integration.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		m.logger.Warn("discarding undecodable cached token", zap.Error(err))
		return integration.TokenRecord{}, false, nil
	}
	return rec, true, nil
}

func isTransient(err error) bool {
	return errors.Is(err, integration.ErrPlatformUnavailable) ||
		errors.Is(err, integration.ErrPlatformRateLimited) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
