package ratelimit

import (
	"sync"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"golang.org/x/time/rate"
)

// SpacerRegistry hands out one minimum-spacing limiter per provider+tenant
// so drivers created for the same tenant share the pacing
type SpacerRegistry struct {
	mu      sync.Mutex
	spacers map[string]*rate.Limiter
}

// DefaultSpacers is the process-wide registry
var DefaultSpacers = NewSpacerRegistry()

// NewSpacerRegistry creates an empty registry
func NewSpacerRegistry() *SpacerRegistry {
	return &SpacerRegistry{spacers: make(map[string]*rate.Limiter)}
}

// Get returns the limiter enforcing at least min between calls
func (r *SpacerRegistry) Get(provider integration.ProviderCode, tenant string, min time.Duration) *rate.Limiter {
	key := string(provider) + ":" + tenant

	r.mu.Lock()
	defer r.mu.Unlock()

	lim, ok := r.spacers[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(min), 1)
		r.spacers[key] = lim
		return lim
	}
	if lim.Limit() != rate.Every(min) {
		lim.SetLimit(rate.Every(min))
	}
	return lim
}
