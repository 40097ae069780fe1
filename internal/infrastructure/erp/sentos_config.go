package erp

import (
	"errors"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
)

// Errors for Sentos configuration
var (
	ErrSentosMissingAPIKey    = errors.New("sentos: api key is required")
	ErrSentosMissingAPISecret = errors.New("sentos: api secret is required")
	ErrSentosMissingBaseURL   = errors.New("sentos: base url is required")
)

// SentosConfig holds configuration for a Sentos panel. Every account has its
// own panel host, so there is no shared production URL.
type SentosConfig struct {
	APIKey     string
	APISecret  string
	APIBaseURL string
}

// NewSentosConfig maps a tenant credential to a Sentos configuration
func NewSentosConfig(cred integration.ProviderCredential) *SentosConfig {
	return &SentosConfig{
		APIKey:     cred.APIKey,
		APISecret:  cred.APISecret,
		APIBaseURL: cred.BaseURL,
	}
}

// Validate validates the Sentos configuration
func (c *SentosConfig) Validate() error {
	if c.APIKey == "" {
		return ErrSentosMissingAPIKey
	}
	if c.APISecret == "" {
		return ErrSentosMissingAPISecret
	}
	if c.APIBaseURL == "" {
		return ErrSentosMissingBaseURL
	}
	return nil
}

// URL returns an absolute API URL
func (c *SentosConfig) URL(path string) string {
	return joinURL(c.APIBaseURL, path)
}
