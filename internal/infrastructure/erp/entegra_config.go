package erp

import (
	"errors"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
)

const (
	// EntegraProductionURL is the production API endpoint
	EntegraProductionURL = "https://apiv2.entegrabilisim.com"

	entegraAccessLifetime  = 7 * 24 * time.Hour
	entegraRefreshLifetime = 30 * 24 * time.Hour
)

// Errors for Entegra configuration
var (
	ErrEntegraMissingEmail    = errors.New("entegra: email is required")
	ErrEntegraMissingPassword = errors.New("entegra: password is required")
)

// EntegraConfig holds configuration for the Entegra ERP API
type EntegraConfig struct {
	Email      string
	Password   string
	APIBaseURL string
}

// NewEntegraConfig maps a tenant credential to an Entegra configuration
func NewEntegraConfig(cred integration.ProviderCredential) *EntegraConfig {
	return &EntegraConfig{
		Email:      cred.Username,
		Password:   cred.Password,
		APIBaseURL: cred.BaseURL,
	}
}

// Validate validates the Entegra configuration
func (c *EntegraConfig) Validate() error {
	if c.Email == "" {
		return ErrEntegraMissingEmail
	}
	if c.Password == "" {
		return ErrEntegraMissingPassword
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = EntegraProductionURL
	}
	return nil
}

// URL returns an absolute API URL
func (c *EntegraConfig) URL(path string) string {
	return joinURL(c.APIBaseURL, path)
}
