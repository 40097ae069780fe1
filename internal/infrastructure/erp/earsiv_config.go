package erp

import (
	"errors"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
)

const (
	// EArsivNamespace is the default service namespace of the SOAP operations
	EArsivNamespace = "http://service.earsiv.uut.cs.com.tr/"
	// EArsivSuccessCode is the resultCode of an accepted request
	EArsivSuccessCode = "AE00000"

	earsivDefaultPrefix = "EAR"
	earsivDefaultBranch = "DFLT"
)

// Errors for e-Arşiv configuration
var (
	ErrEArsivMissingUsername = errors.New("earsiv: username is required")
	ErrEArsivMissingPassword = errors.New("earsiv: password is required")
	ErrEArsivMissingBaseURL  = errors.New("earsiv: service url is required")
	ErrEArsivInvalidPrefix   = errors.New("earsiv: invoice prefix must be 3 characters")
	ErrEArsivNoSequence      = errors.New("earsiv: invoice number sequence is not configured")
)

// EArsivConfig holds configuration for the SOAP e-Archive service. Supplier
// details come from the credential's extra settings.
type EArsivConfig struct {
	Username      string
	Password      string
	ServiceURL    string
	Namespace     string
	Branch        string
	InvoicePrefix string
	Website       string
	Supplier      integration.Party
}

// NewEArsivConfig maps a tenant credential to an e-Arşiv configuration
func NewEArsivConfig(cred integration.ProviderCredential) *EArsivConfig {
	return &EArsivConfig{
		Username:      cred.Username,
		Password:      cred.Password,
		ServiceURL:    cred.BaseURL,
		Namespace:     cred.ExtraValue("soap_namespace", EArsivNamespace),
		Branch:        cred.ExtraValue("branch", earsivDefaultBranch),
		InvoicePrefix: cred.ExtraValue("invoice_prefix", earsivDefaultPrefix),
		Website:       cred.ExtraValue("website", ""),
		Supplier:      supplierParty(cred),
	}
}

// supplierParty reads the issuing company from extra settings. The firm id
// stands in for a missing supplier tax id.
func supplierParty(cred integration.ProviderCredential) integration.Party {
	return integration.Party{
		Name:      cred.ExtraValue("supplier_name", ""),
		TaxID:     cred.ExtraValue("supplier_tax_id", cred.FirmID),
		TaxOffice: cred.ExtraValue("supplier_tax_office", ""),
		Email:     cred.ExtraValue("supplier_email", ""),
		Phone:     cred.ExtraValue("supplier_phone", ""),
		Website:   cred.ExtraValue("website", ""),
		Address: integration.Address{
			Line:     cred.ExtraValue("supplier_address", ""),
			District: cred.ExtraValue("supplier_district", ""),
			City:     cred.ExtraValue("supplier_city", ""),
			Country:  cred.ExtraValue("supplier_country", ""),
		},
	}
}

// Validate validates the e-Arşiv configuration
func (c *EArsivConfig) Validate() error {
	if c.Username == "" {
		return ErrEArsivMissingUsername
	}
	if c.Password == "" {
		return ErrEArsivMissingPassword
	}
	if c.ServiceURL == "" {
		return ErrEArsivMissingBaseURL
	}
	if len([]rune(c.InvoicePrefix)) != 3 {
		return ErrEArsivInvalidPrefix
	}
	return nil
}
