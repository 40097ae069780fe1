package erp

import (
	"errors"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
)

const (
	// kargoSessionLifetime applies when the login reply carries no expiry
	kargoSessionLifetime = time.Hour
	// kargoStoreTTL bounds how long a resolved store id is reused
	kargoStoreTTL = 24 * time.Hour
)

// Errors for Kargo configuration
var (
	ErrKargoMissingCredentials = errors.New("kargo: username/password or api key/secret is required")
	ErrKargoMissingBaseURL     = errors.New("kargo: base url is required")
)

// KargoConfig holds configuration for the store and cargo API. Either the
// panel user or an API key pair may log in.
type KargoConfig struct {
	Username   string
	Password   string
	APIKey     string
	APISecret  string
	StoreID    string
	APIBaseURL string
}

// NewKargoConfig maps a tenant credential to a Kargo configuration. A
// configured firm id pins the store and skips store discovery.
func NewKargoConfig(cred integration.ProviderCredential) *KargoConfig {
	return &KargoConfig{
		Username:   cred.Username,
		Password:   cred.Password,
		APIKey:     cred.APIKey,
		APISecret:  cred.APISecret,
		StoreID:    cred.FirmID,
		APIBaseURL: cred.BaseURL,
	}
}

// Validate validates the Kargo configuration
func (c *KargoConfig) Validate() error {
	if !c.usesPassword() && !c.usesAPIKey() {
		return ErrKargoMissingCredentials
	}
	if c.APIBaseURL == "" {
		return ErrKargoMissingBaseURL
	}
	return nil
}

func (c *KargoConfig) usesPassword() bool {
	return c.Username != "" && c.Password != ""
}

func (c *KargoConfig) usesAPIKey() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// loginBody prefers the API key pair when both are configured
func (c *KargoConfig) loginBody() map[string]string {
	if c.usesAPIKey() {
		return map[string]string{"api_key": c.APIKey, "api_secret": c.APISecret}
	}
	return map[string]string{"username": c.Username, "password": c.Password}
}

// URL returns an absolute API URL
func (c *KargoConfig) URL(path string) string {
	return joinURL(c.APIBaseURL, path)
}
