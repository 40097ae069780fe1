package integration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ---------------------------------------------------------------------------
// ProviderCode identifies an external system
// ---------------------------------------------------------------------------

// ProviderCode identifies an external ERP, accounting, invoicing or cargo backend
type ProviderCode string

const (
	// ProviderParasut is the OAuth2 accounting API (JSON:API bodies)
	ProviderParasut ProviderCode = "parasut"
	// ProviderEntegra is the JWT-authenticated ERP API
	ProviderEntegra ProviderCode = "entegra"
	// ProviderBizimHesap is the session-token ERP API
	ProviderBizimHesap ProviderCode = "bizimhesap"
	// ProviderSentos is the Basic-auth catalog API
	ProviderSentos ProviderCode = "sentos"
	// ProviderKargo is the login-token store and cargo API
	ProviderKargo ProviderCode = "kargo"
	// ProviderEArsiv is the SOAP e-Archive invoice service
	ProviderEArsiv ProviderCode = "earsiv"
)

// AllProviders lists every provider code known to the integration layer
func AllProviders() []ProviderCode {
	return []ProviderCode{
		ProviderParasut,
		ProviderEntegra,
		ProviderBizimHesap,
		ProviderSentos,
		ProviderKargo,
		ProviderEArsiv,
	}
}

// IsValid returns true if the provider code is known
func (c ProviderCode) IsValid() bool {
	for _, p := range AllProviders() {
		if p == c {
			return true
		}
	}
	return false
}

// String returns the string representation of ProviderCode
func (c ProviderCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for operator messages
func (c ProviderCode) DisplayName() string {
	switch c {
	case ProviderParasut:
		return "Paraşüt"
	case ProviderEntegra:
		return "Entegra"
	case ProviderBizimHesap:
		return "BizimHesap"
	case ProviderSentos:
		return "Sentos"
	case ProviderKargo:
		return "Kargo"
	case ProviderEArsiv:
		return "e-Arşiv"
	default:
		return string(c)
	}
}

// ParseProviderCode parses a case-insensitive provider code
func ParseProviderCode(s string) (ProviderCode, error) {
	code := ProviderCode(strings.ToLower(strings.TrimSpace(s)))
	if !code.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return code, nil
}

// ---------------------------------------------------------------------------
// ProviderCredential
// ---------------------------------------------------------------------------

// ProviderCredential carries the raw secrets a tenant configured for a provider.
// It is an immutable value supplied by the caller at driver construction.
type ProviderCredential struct {
	TenantID     string       `json:"tenant_id" validate:"required"`
	Provider     ProviderCode `json:"provider" validate:"required"`
	Username     string       `json:"username,omitempty"`
	Password     string       `json:"-"`
	ClientID     string       `json:"client_id,omitempty"`
	ClientSecret string       `json:"-"`
	APIKey       string       `json:"api_key,omitempty"`
	APISecret    string       `json:"-"`
	// FirmID is the provider-side company/firm identifier, if any
	FirmID string `json:"firm_id,omitempty"`
	// BaseURL overrides the provider's default endpoint (sandbox, tests)
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`
	// Extra holds provider-specific settings (e.g. supplier tax id)
	Extra map[string]string `json:"extra,omitempty"`
}

var credentialValidator = validator.New()

// Validate checks the provider-independent fields of the credential
func (c ProviderCredential) Validate() error {
	if err := credentialValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return NewValidationError(strings.ToLower(verrs[0].Field()), fmt.Sprintf("credential field %s failed %q", verrs[0].Field(), verrs[0].Tag()))
		}
		return NewValidationError("credential", err.Error())
	}
	if !c.Provider.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	return nil
}

// ExtraValue returns an Extra setting or the fallback when absent
func (c ProviderCredential) ExtraValue(key, fallback string) string {
	if v, ok := c.Extra[key]; ok && v != "" {
		return v
	}
	return fallback
}

// CacheKey returns the provider+tenant discriminator used by shared stores
func (c ProviderCredential) CacheKey() string {
	return string(c.Provider) + ":" + c.TenantID
}
