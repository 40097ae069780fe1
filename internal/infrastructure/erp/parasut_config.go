package erp

import (
	"errors"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
)

const (
	// ParasutProductionURL is the production API endpoint
	ParasutProductionURL = "https://api.parasut.com"
	// parasutTokenLifetime applies when the token response has no expires_in
	parasutTokenLifetime = 2 * time.Hour
)

// Errors for Parasut configuration
var (
	ErrParasutMissingCompanyID    = errors.New("parasut: company id is required")
	ErrParasutMissingClientID     = errors.New("parasut: client id is required")
	ErrParasutMissingClientSecret = errors.New("parasut: client secret is required")
	ErrParasutMissingUsername     = errors.New("parasut: username is required")
	ErrParasutMissingPassword     = errors.New("parasut: password is required")
)

// ParasutConfig holds configuration for the Parasut accounting API
type ParasutConfig struct {
	// CompanyID is the numeric company id in every resource path
	CompanyID    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	// APIBaseURL is the API root (production or sandbox)
	APIBaseURL string
}

// NewParasutConfig maps a tenant credential to a Parasut configuration
func NewParasutConfig(cred integration.ProviderCredential) *ParasutConfig {
	return &ParasutConfig{
		CompanyID:    cred.FirmID,
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Username:     cred.Username,
		Password:     cred.Password,
		APIBaseURL:   cred.BaseURL,
	}
}

// Validate validates the Parasut configuration
func (c *ParasutConfig) Validate() error {
	if c.CompanyID == "" {
		return ErrParasutMissingCompanyID
	}
	if c.ClientID == "" {
		return ErrParasutMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrParasutMissingClientSecret
	}
	if c.Username == "" {
		return ErrParasutMissingUsername
	}
	if c.Password == "" {
		return ErrParasutMissingPassword
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = ParasutProductionURL
	}
	return nil
}

// TokenURL returns the OAuth2 token endpoint
func (c *ParasutConfig) TokenURL() string {
	return joinURL(c.APIBaseURL, "/oauth/token")
}

// CompanyURL returns a company-scoped v4 resource URL
func (c *ParasutConfig) CompanyURL(path string) string {
	return joinURL(c.APIBaseURL, "/v4/"+c.CompanyID+"/"+path)
}
