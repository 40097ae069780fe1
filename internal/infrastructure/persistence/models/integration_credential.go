package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/google/uuid"
)

// SecretSealer encrypts and decrypts credential secrets bound to a row key
type SecretSealer interface {
	Seal(plaintext, associated string) ([]byte, error)
	Open(sealed []byte, associated string) (string, error)
}

// IntegrationCredentialModel is the persistence model for a tenant's
// provider credential. Password, client secret and API secret are stored
// encrypted; the other fields are plain.
type IntegrationCredentialModel struct {
	TenantModel
	Provider        integration.ProviderCode `gorm:"type:varchar(20);not null"`
	Username        string                   `gorm:"type:varchar(255)"`
	PasswordEnc     []byte                   `gorm:"type:bytea;column:password_enc"`
	ClientID        string                   `gorm:"type:varchar(255)"`
	ClientSecretEnc []byte                   `gorm:"type:bytea;column:client_secret_enc"`
	APIKey          string                   `gorm:"type:varchar(255);column:api_key"`
	APISecretEnc    []byte                   `gorm:"type:bytea;column:api_secret_enc"`
	FirmID          string                   `gorm:"type:varchar(100)"`
	BaseURL         string                   `gorm:"type:varchar(500);column:base_url"`
	ExtraJSON       string                   `gorm:"type:jsonb;column:extra"`
	IsActive        bool                     `gorm:"not null"`
	DeactivatedAt   *time.Time
}

// TableName returns the table name for GORM
func (IntegrationCredentialModel) TableName() string {
	return "integration_credentials"
}

// rowKey is the associated data binding sealed secrets to tenant+provider
func rowKey(tenantID uuid.UUID, provider integration.ProviderCode) string {
	return string(provider) + ":" + tenantID.String()
}

// ToDomain decrypts the secrets and returns the domain credential
func (m *IntegrationCredentialModel) ToDomain(sealer SecretSealer) (*integration.ProviderCredential, error) {
	key := rowKey(m.TenantID, m.Provider)
	cred := &integration.ProviderCredential{
		TenantID: m.TenantID.String(),
		Provider: m.Provider,
		Username: m.Username,
		ClientID: m.ClientID,
		APIKey:   m.APIKey,
		FirmID:   m.FirmID,
		BaseURL:  m.BaseURL,
	}

	var err error
	if cred.Password, err = sealer.Open(m.PasswordEnc, key); err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}
	if cred.ClientSecret, err = sealer.Open(m.ClientSecretEnc, key); err != nil {
		return nil, fmt.Errorf("client secret: %w", err)
	}
	if cred.APISecret, err = sealer.Open(m.APISecretEnc, key); err != nil {
		return nil, fmt.Errorf("api secret: %w", err)
	}

	if m.ExtraJSON != "" && m.ExtraJSON != "null" {
		if err := json.Unmarshal([]byte(m.ExtraJSON), &cred.Extra); err != nil {
			return nil, fmt.Errorf("extra settings: %w", err)
		}
	}
	return cred, nil
}

// FromDomain populates the model from a credential, sealing its secrets
func (m *IntegrationCredentialModel) FromDomain(tenantID uuid.UUID, cred integration.ProviderCredential, sealer SecretSealer) error {
	key := rowKey(tenantID, cred.Provider)
	m.TenantID = tenantID
	m.Provider = cred.Provider
	m.Username = cred.Username
	m.ClientID = cred.ClientID
	m.APIKey = cred.APIKey
	m.FirmID = cred.FirmID
	m.BaseURL = cred.BaseURL
	m.IsActive = true

	var err error
	if m.PasswordEnc, err = sealer.Seal(cred.Password, key); err != nil {
		return err
	}
	if m.ClientSecretEnc, err = sealer.Seal(cred.ClientSecret, key); err != nil {
		return err
	}
	if m.APISecretEnc, err = sealer.Seal(cred.APISecret, key); err != nil {
		return err
	}

	m.ExtraJSON = "{}"
	if len(cred.Extra) > 0 {
		raw, err := json.Marshal(cred.Extra)
		if err != nil {
			return err
		}
		m.ExtraJSON = string(raw)
	}
	return nil
}
