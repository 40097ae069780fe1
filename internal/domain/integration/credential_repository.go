package integration

import (
	"context"
	"errors"
)

// ErrCredentialNotFound is returned when a tenant has no active credential
// for a provider
var ErrCredentialNotFound = errors.New("integration: credential not found")

// CredentialRepository persists the credentials tenants configured for each
// provider. At most one credential per tenant and provider is active.
type CredentialRepository interface {
	// FindActive returns the active credential of tenant for provider
	FindActive(ctx context.Context, tenantID string, provider ProviderCode) (*ProviderCredential, error)

	// Save stores cred as the active credential, deactivating the previous one
	Save(ctx context.Context, cred ProviderCredential) error

	// Deactivate disables the active credential of tenant for provider
	Deactivate(ctx context.Context, tenantID string, provider ProviderCode) error
}
