package erp

import (
	"errors"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
)

const (
	// BizimHesapProductionURL is the production API endpoint
	BizimHesapProductionURL = "https://bizimhesap.com"
	// bizimHesapSessionLifetime is how long a login token stays valid
	bizimHesapSessionLifetime = 30 * 24 * time.Hour
	// bizimHesapSalesInvoice is the invoice type code of a sales invoice
	bizimHesapSalesInvoice = 3
)

// Errors for BizimHesap configuration
var (
	ErrBizimHesapMissingFirmID   = errors.New("bizimhesap: firm id is required")
	ErrBizimHesapMissingUsername = errors.New("bizimhesap: username is required")
	ErrBizimHesapMissingPassword = errors.New("bizimhesap: password is required")
)

// BizimHesapConfig holds configuration for the BizimHesap ERP API
type BizimHesapConfig struct {
	// FirmID is the firm guid every invoice is booked under
	FirmID     string
	Username   string
	Password   string
	APIBaseURL string
}

// NewBizimHesapConfig maps a tenant credential to a BizimHesap configuration
func NewBizimHesapConfig(cred integration.ProviderCredential) *BizimHesapConfig {
	return &BizimHesapConfig{
		FirmID:     cred.FirmID,
		Username:   cred.Username,
		Password:   cred.Password,
		APIBaseURL: cred.BaseURL,
	}
}

// Validate validates the BizimHesap configuration
func (c *BizimHesapConfig) Validate() error {
	if c.FirmID == "" {
		return ErrBizimHesapMissingFirmID
	}
	if c.Username == "" {
		return ErrBizimHesapMissingUsername
	}
	if c.Password == "" {
		return ErrBizimHesapMissingPassword
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = BizimHesapProductionURL
	}
	return nil
}

// URL returns an absolute B2B API URL
func (c *BizimHesapConfig) URL(path string) string {
	return joinURL(c.APIBaseURL, "/api/b2b/"+path)
}
