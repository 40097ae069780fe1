package mapping

import (
	"context"
	"sync"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
)

// LookupFunc resolves a secondary entity id (category, brand) to its name
type LookupFunc func(ctx context.Context, id string) (string, error)

// LookupCache memoizes id->name lookups for the duration of one sync run.
// A lookup the provider rejected is cached as an empty name so a missing
// entity is fetched at most once. Throttled and transient failures are not
// cached; the next Resolve of that id tries again.
type LookupCache struct {
	fetch LookupFunc

	mu     sync.Mutex
	names  map[string]string
	misses int
}

// NewLookupCache creates a cache backed by fetch
func NewLookupCache(fetch LookupFunc) *LookupCache {
	return &LookupCache{
		fetch: fetch,
		names: make(map[string]string),
	}
}

// Seed records a known name, e.g. from an included document
func (c *LookupCache) Seed(id, name string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[id] = name
}

// Resolve returns the cached name or fetches it once
func (c *LookupCache) Resolve(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}

	c.mu.Lock()
	if name, ok := c.names[id]; ok {
		c.mu.Unlock()
		return name
	}
	c.mu.Unlock()

	var name string
	if c.fetch != nil {
		n, err := c.fetch(ctx, id)
		if err != nil && integration.ResultFromError(err).IsRetryable() {
			c.mu.Lock()
			c.misses++
			c.mu.Unlock()
			return ""
		}
		if err == nil {
			name = n
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	c.names[id] = name
	return name
}

// Fetches returns how many ids were resolved through the fetch function
func (c *LookupCache) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}
