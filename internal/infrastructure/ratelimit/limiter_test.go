package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(t *testing.T, store integration.CredentialStore, key string) int64 {
	t.Helper()
	data, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	if !found {
		return 0
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	require.NoError(t, err)
	return n
}

func TestClassForMethod(t *testing.T) {
	tests := []struct {
		method string
		want   Class
	}{
		{http.MethodGet, ClassGet},
		{"get", ClassGet},
		{http.MethodHead, ClassGet},
		{http.MethodPost, ClassPost},
		{http.MethodPut, ClassPost},
		{http.MethodDelete, ClassPost},
		{http.MethodPatch, ClassPost},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassForMethod(tt.method), tt.method)
	}
}

func TestDefaultPolicy(t *testing.T) {
	bh := DefaultPolicy(integration.ProviderBizimHesap)
	require.Len(t, bh.Budgets, 2)
	assert.Equal(t, Budget{ClassGet, 2, time.Minute}, bh.Budgets[0])
	assert.Equal(t, Budget{ClassPost, 12, time.Minute}, bh.Budgets[1])
	assert.Equal(t, time.Second, bh.MinSpacing)

	assert.Equal(t, int64(7200), DefaultPolicy(integration.ProviderEntegra).Budgets[0].Limit)
	assert.Equal(t, 10*time.Second, DefaultPolicy(integration.ProviderParasut).Budgets[0].Period)
	assert.Empty(t, DefaultPolicy("unknown").Budgets)

	for _, p := range integration.AllProviders() {
		assert.NotEmpty(t, DefaultPolicy(p).Budgets, p)
	}
}

func TestWindowKey(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 17, 42, 0, time.UTC)
	assert.Equal(t, "ratelimit:sentos:t1:get:20240305T101700",
		WindowKey(integration.ProviderSentos, "t1", ClassGet, time.Minute, now))
	assert.Equal(t, "ratelimit:entegra:t1:all:20240305T100000",
		WindowKey(integration.ProviderEntegra, "t1", ClassAll, time.Hour, now))
}

func TestLimiter_RejectsOverBudgetAndRollsBack(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 5, 0, time.UTC)
	clock := func() time.Time { return now }
	store := cache.NewInMemoryCredentialStore(cache.WithClock(clock))
	defer store.Close()

	l := NewLimiter(integration.ProviderBizimHesap, "tenant-1",
		Policy{Budgets: []Budget{{ClassGet, 2, time.Minute}, {ClassPost, 12, time.Minute}}},
		store, WithClock(clock))
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, http.MethodGet))
	require.NoError(t, l.Acquire(ctx, http.MethodGet))

	err := l.Acquire(ctx, http.MethodGet)
	require.Error(t, err)
	assert.True(t, errors.Is(err, integration.ErrRateLimitExceeded))

	key := WindowKey(integration.ProviderBizimHesap, "tenant-1", ClassGet, time.Minute, now)
	assert.Equal(t, int64(2), counter(t, store, key), "rejected increment is rolled back")

	// post budget is independent
	require.NoError(t, l.Acquire(ctx, http.MethodPost))

	// next window starts fresh
	now = now.Add(time.Minute)
	require.NoError(t, l.Acquire(ctx, http.MethodGet))
}

func TestLimiter_AcquireSpareKeepsReserve(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 5, 0, time.UTC)
	clock := func() time.Time { return now }
	store := cache.NewInMemoryCredentialStore(cache.WithClock(clock))
	defer store.Close()

	l := NewLimiter(integration.ProviderBizimHesap, "tenant-1",
		Policy{Budgets: []Budget{{ClassGet, 3, time.Minute}}}, store, WithClock(clock))
	ctx := context.Background()
	key := WindowKey(integration.ProviderBizimHesap, "tenant-1", ClassGet, time.Minute, now)

	require.NoError(t, l.Acquire(ctx, http.MethodGet))
	require.NoError(t, l.AcquireSpare(ctx, http.MethodGet, 1))
	assert.ErrorIs(t, l.AcquireSpare(ctx, http.MethodGet, 1), integration.ErrRateLimitExceeded)
	assert.Equal(t, int64(2), counter(t, store, key), "rejected spare call is rolled back")

	// the reserved unit is still there for a regular call
	require.NoError(t, l.Acquire(ctx, http.MethodGet))
	assert.ErrorIs(t, l.AcquireSpare(ctx, http.MethodGet, 0), integration.ErrRateLimitExceeded)
}

func TestLimiter_AllClassCountsEveryMethod(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := cache.NewInMemoryCredentialStore(cache.WithClock(clock))
	defer store.Close()

	l := NewLimiter(integration.ProviderParasut, "t", Policy{Budgets: []Budget{{ClassAll, 2, 10 * time.Second}}}, store, WithClock(clock))
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, http.MethodGet))
	require.NoError(t, l.Acquire(ctx, http.MethodPost))
	assert.ErrorIs(t, l.Acquire(ctx, http.MethodDelete), integration.ErrRateLimitExceeded)
}

func TestLimiter_TenantsAreIsolated(t *testing.T) {
	store := cache.NewInMemoryCredentialStore()
	defer store.Close()
	policy := Policy{Budgets: []Budget{{ClassAll, 1, time.Hour}}}
	ctx := context.Background()

	a := NewLimiter(integration.ProviderEntegra, "a", policy, store)
	b := NewLimiter(integration.ProviderEntegra, "b", policy, store)

	require.NoError(t, a.Acquire(ctx, http.MethodGet))
	assert.ErrorIs(t, a.Acquire(ctx, http.MethodGet), integration.ErrRateLimitExceeded)
	assert.NoError(t, b.Acquire(ctx, http.MethodGet))
}

func TestLimiter_ClassWithoutBudgetIsUnlimited(t *testing.T) {
	store := cache.NewInMemoryCredentialStore()
	defer store.Close()

	l := NewLimiter(integration.ProviderEArsiv, "t", DefaultPolicy(integration.ProviderEArsiv), store)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Acquire(context.Background(), http.MethodGet))
	}
	assert.Equal(t, 0, store.Size())
}

func TestLimiter_MinSpacing(t *testing.T) {
	store := cache.NewInMemoryCredentialStore()
	defer store.Close()

	l := NewLimiter(integration.ProviderKargo, "t",
		Policy{MinSpacing: 100 * time.Millisecond}, store, WithSpacers(NewSpacerRegistry()))
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Acquire(ctx, http.MethodGet))
	require.NoError(t, l.Acquire(ctx, http.MethodGet))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestLimiter_MinSpacingHonoursContext(t *testing.T) {
	store := cache.NewInMemoryCredentialStore()
	defer store.Close()

	l := NewLimiter(integration.ProviderKargo, "t",
		Policy{MinSpacing: time.Hour}, store, WithSpacers(NewSpacerRegistry()))

	require.NoError(t, l.Acquire(context.Background(), http.MethodGet))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Acquire(ctx, http.MethodGet)
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrPlatformUnavailable)
}

func TestSpacerRegistry_SharedPerTenant(t *testing.T) {
	r := NewSpacerRegistry()
	a := r.Get(integration.ProviderKargo, "t1", time.Second)
	assert.Same(t, a, r.Get(integration.ProviderKargo, "t1", time.Second))
	assert.NotSame(t, a, r.Get(integration.ProviderKargo, "t2", time.Second))
}
