package erp

import (
	"fmt"
	"sort"
	"sync"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
)

// Constructor builds a driver for one tenant credential
type Constructor func(cred integration.ProviderCredential, opts ...Option) (integration.Driver, error)

// Registry maps provider codes to driver constructors
type Registry struct {
	mu           sync.RWMutex
	constructors map[integration.ProviderCode]Constructor
}

// NewRegistry returns a registry holding every built-in driver
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[integration.ProviderCode]Constructor)}
	r.Register(integration.ProviderParasut, func(c integration.ProviderCredential, o ...Option) (integration.Driver, error) {
		return NewParasutDriver(c, o...)
	})
	r.Register(integration.ProviderEntegra, func(c integration.ProviderCredential, o ...Option) (integration.Driver, error) {
		return NewEntegraDriver(c, o...)
	})
	r.Register(integration.ProviderBizimHesap, func(c integration.ProviderCredential, o ...Option) (integration.Driver, error) {
		return NewBizimHesapDriver(c, o...)
	})
	r.Register(integration.ProviderSentos, func(c integration.ProviderCredential, o ...Option) (integration.Driver, error) {
		return NewSentosDriver(c, o...)
	})
	r.Register(integration.ProviderKargo, func(c integration.ProviderCredential, o ...Option) (integration.Driver, error) {
		return NewKargoDriver(c, o...)
	})
	r.Register(integration.ProviderEArsiv, func(c integration.ProviderCredential, o ...Option) (integration.Driver, error) {
		return NewEArsivDriver(c, o...)
	})
	return r
}

// Register adds or replaces the constructor for provider
func (r *Registry) Register(provider integration.ProviderCode, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[provider] = ctor
}

// Providers lists the registered provider codes in sorted order
func (r *Registry) Providers() []integration.ProviderCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]integration.ProviderCode, 0, len(r.constructors))
	for p := range r.constructors {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New validates cred and builds the driver of its provider
func (r *Registry) New(cred integration.ProviderCredential, opts ...Option) (integration.Driver, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ctor, ok := r.constructors[cred.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no driver registered for %q", integration.ErrProviderNotConfigured, cred.Provider)
	}
	return ctor(cred, opts...)
}
