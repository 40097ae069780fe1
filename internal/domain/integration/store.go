package integration

import (
	"context"
	"time"
)

// CredentialStore is the shared key-value store for tokens, rate-limit
// counters and small cached lookups (e.g. resolved store ids).
//
// Implementations must make Increment atomic across processes sharing the
// same backend. Keys always include the tenant.
type CredentialStore interface {
	// Get returns the value for key. found is false when the key is missing
	// or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key. A ttl <= 0 keeps the key until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Increment adds delta to the counter at key and returns the new value.
	// When the key is created by this call its expiry is set to ttl.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// Close releases resources held by the store
	Close() error
}

// TokenKey is the store key holding the token record of provider+tenant
func TokenKey(provider ProviderCode, tenant string) string {
	return "token:" + string(provider) + ":" + tenant
}

// LookupKey is the store key for a cached per-tenant lookup value
func LookupKey(provider ProviderCode, tenant, name string) string {
	return "lookup:" + string(provider) + ":" + tenant + ":" + name
}
