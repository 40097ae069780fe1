package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
)

// entry represents a stored value with optional expiration
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// InMemoryCredentialStore implements CredentialStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryCredentialStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// InMemoryOption configures an InMemoryCredentialStore
type InMemoryOption func(*InMemoryCredentialStore)

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryCredentialStore) {
		s.now = now
	}
}

// NewInMemoryCredentialStore creates a new in-memory credential store.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryCredentialStore(opts ...InMemoryOption) *InMemoryCredentialStore {
	store := &InMemoryCredentialStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(store)
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get returns the value for key if present and not expired
func (s *InMemoryCredentialStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value under key with an optional TTL
func (s *InMemoryCredentialStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: s.expiry(ttl),
	}
	return nil
}

// Delete removes key
func (s *InMemoryCredentialStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Increment atomically adds delta to the counter at key. The TTL is applied
// only when the counter is created by this call.
func (s *InMemoryCredentialStore) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if ok && e.expired(now) {
		ok = false
	}

	var current int64
	if ok {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, err
		}
		current = n
	} else {
		e = entry{expiresAt: s.expiry(ttl)}
	}

	current += delta
	e.value = []byte(strconv.FormatInt(current, 10))
	s.entries[key] = e
	return current, nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *InMemoryCredentialStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryCredentialStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *InMemoryCredentialStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryCredentialStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryCredentialStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

// Ensure InMemoryCredentialStore implements CredentialStore
var _ integration.CredentialStore = (*InMemoryCredentialStore)(nil)
