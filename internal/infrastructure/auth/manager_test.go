package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/cache"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStrategy counts exchanges and hands out numbered tokens
type fakeStrategy struct {
	stateless  bool
	logins     atomic.Int32
	refreshes  atomic.Int32
	lifetime   time.Duration
	refresh    bool
	loginErr   error
	refreshErr error
	loginDelay time.Duration
}

func (f *fakeStrategy) Stateless() bool { return f.stateless }

func (f *fakeStrategy) Login(ctx context.Context) (Grant, error) {
	if f.loginDelay > 0 {
		time.Sleep(f.loginDelay)
	}
	n := f.logins.Add(1)
	if f.loginErr != nil {
		return Grant{}, f.loginErr
	}
	g := Grant{AccessToken: fmt.Sprintf("login-%d", n), ExpiresIn: f.lifetime}
	if f.refresh {
		g.RefreshToken = fmt.Sprintf("refresh-%d", n)
		g.RefreshExpiresIn = 30 * 24 * time.Hour
	}
	return g, nil
}

func (f *fakeStrategy) Refresh(ctx context.Context, rt string) (Grant, error) {
	n := f.refreshes.Add(1)
	if f.refreshErr != nil {
		return Grant{}, f.refreshErr
	}
	return Grant{AccessToken: fmt.Sprintf("refreshed-%d", n), ExpiresIn: f.lifetime}, nil
}

func (f *fakeStrategy) Apply(req *transport.Request, tok integration.TokenRecord) {
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, s Strategy, c *clock) (*Manager, *cache.InMemoryCredentialStore) {
	t.Helper()
	store := cache.NewInMemoryCredentialStore(cache.WithClock(c.Now))
	t.Cleanup(func() { _ = store.Close() })
	return NewManager(integration.ProviderParasut, "tenant-1", s, store, WithClock(c.Now)), store
}

// sendRecorder answers with the scripted statuses and records the auth header
type sendRecorder struct {
	statuses []int
	headers  []string
}

func (r *sendRecorder) send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	r.headers = append(r.headers, req.Header.Get("Authorization"))
	status := http.StatusOK
	if len(r.statuses) > 0 {
		status = r.statuses[0]
		r.statuses = r.statuses[1:]
	}
	return &transport.Response{StatusCode: status}, nil
}

func TestManager_TokenReuse(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := &fakeStrategy{lifetime: 2 * time.Hour}
	m, _ := newTestManager(t, s, c)
	ctx := context.Background()

	assert.Equal(t, StateUnauthenticated, m.State())

	first, err := m.Token(ctx)
	require.NoError(t, err)
	second, err := m.Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, int32(1), s.logins.Load(), "second call must reuse the cached token")
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, c.Now().Add(2*time.Hour-time.Minute), first.ExpiresAt)
}

func TestManager_TokenSharedAcrossManagers(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{lifetime: time.Hour}
	store := cache.NewInMemoryCredentialStore(cache.WithClock(c.Now))
	defer store.Close()

	a := NewManager(integration.ProviderEntegra, "t1", s, store, WithClock(c.Now))
	b := NewManager(integration.ProviderEntegra, "t1", s, store, WithClock(c.Now))
	other := NewManager(integration.ProviderEntegra, "t2", s, store, WithClock(c.Now))

	ta, err := a.Token(context.Background())
	require.NoError(t, err)
	tb, err := b.Token(context.Background())
	require.NoError(t, err)
	tother, err := other.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ta.AccessToken, tb.AccessToken)
	assert.NotEqual(t, ta.AccessToken, tother.AccessToken, "tenants must not share tokens")
	assert.Equal(t, int32(2), s.logins.Load())
}

func TestManager_ExpiredTokenRefreshes(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{lifetime: time.Hour, refresh: true}
	m, _ := newTestManager(t, s, c)
	ctx := context.Background()

	_, err := m.Token(ctx)
	require.NoError(t, err)

	c.Advance(time.Hour)
	tok, err := m.Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "refreshed-1", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken, "refresh token is kept when not rotated")
	assert.Equal(t, int32(1), s.logins.Load())
	assert.Equal(t, int32(1), s.refreshes.Load())
}

func TestManager_RefreshFailureFallsBackToLogin(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{lifetime: time.Hour, refresh: true, refreshErr: fmt.Errorf("%w: invalid_grant", integration.ErrPlatformAuthFailed)}
	m, _ := newTestManager(t, s, c)
	ctx := context.Background()

	_, err := m.Token(ctx)
	require.NoError(t, err)
	c.Advance(2 * time.Hour)

	tok, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "login-2", tok.AccessToken)
	assert.Equal(t, int32(1), s.refreshes.Load())
	assert.Equal(t, int32(2), s.logins.Load())
}

func TestManager_LoginFailure(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{loginErr: errors.New("bad password")}
	m, store := newTestManager(t, s, c)

	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, integration.ErrPlatformAuthFailed))
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Equal(t, 0, store.Size())
}

func TestManager_LoginTransientFailureStaysTransient(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{loginErr: fmt.Errorf("%w: connection refused", integration.ErrPlatformUnavailable)}
	m, _ := newTestManager(t, s, c)

	_, err := m.Token(context.Background())
	assert.True(t, errors.Is(err, integration.ErrPlatformUnavailable))
	assert.False(t, errors.Is(err, integration.ErrPlatformAuthFailed))
}

func TestManager_Do_SingleRetryOn401(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{lifetime: 30 * 24 * time.Hour}
	m, _ := newTestManager(t, s, c)

	rec := &sendRecorder{statuses: []int{http.StatusUnauthorized, http.StatusOK}}
	resp, err := m.Do(context.Background(), transport.NewRequest(http.MethodGet, "http://example.com"), rec.send)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []string{"Bearer login-1", "Bearer login-2"}, rec.headers)
	assert.Equal(t, int32(2), s.logins.Load(), "401 forces exactly one re-login")
}

func TestManager_Do_Second401IsTerminal(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{lifetime: time.Hour}
	m, store := newTestManager(t, s, c)

	rec := &sendRecorder{statuses: []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusOK}}
	_, err := m.Do(context.Background(), transport.NewRequest(http.MethodGet, "http://example.com"), rec.send)
	require.Error(t, err)
	assert.True(t, errors.Is(err, integration.ErrPlatformAuthFailed))
	assert.Len(t, rec.headers, 2, "no third attempt")
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Equal(t, 0, store.Size(), "rejected token is invalidated")
}

func TestManager_Do_RecoverUsesRefreshFirst(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{lifetime: time.Hour, refresh: true}
	m, _ := newTestManager(t, s, c)

	rec := &sendRecorder{statuses: []int{http.StatusUnauthorized, http.StatusOK}}
	_, err := m.Do(context.Background(), transport.NewRequest(http.MethodGet, "http://example.com"), rec.send)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer login-1", "Bearer refreshed-1"}, rec.headers)
	assert.Equal(t, int32(1), s.logins.Load())
}

func TestManager_Do_StatelessDoesNotRetry(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{stateless: true}
	m, _ := newTestManager(t, s, c)

	rec := &sendRecorder{statuses: []int{http.StatusUnauthorized}}
	resp, err := m.Do(context.Background(), transport.NewRequest(http.MethodGet, "http://example.com"), rec.send)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Len(t, rec.headers, 1)
	assert.Equal(t, int32(0), s.logins.Load())
}

func TestManager_Do_DoesNotMutateCallerRequest(t *testing.T) {
	c := &clock{now: time.Now()}
	m, _ := newTestManager(t, &fakeStrategy{lifetime: time.Hour}, c)

	req := transport.NewRequest(http.MethodGet, "http://example.com")
	rec := &sendRecorder{}
	_, err := m.Do(context.Background(), req, rec.send)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestManager_ConcurrentLoginsCollapse(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{lifetime: time.Hour, loginDelay: 50 * time.Millisecond}
	m, _ := newTestManager(t, s, c)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Token(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), s.logins.Load())
}

func TestManager_Invalidate(t *testing.T) {
	c := &clock{now: time.Now()}
	s := &fakeStrategy{lifetime: time.Hour}
	m, _ := newTestManager(t, s, c)
	ctx := context.Background()

	_, err := m.Token(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Invalidate(ctx))
	assert.Equal(t, StateUnauthenticated, m.State())

	tok, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "login-2", tok.AccessToken)
}
