package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCredentialRepository implements integration.CredentialRepository using GORM
type GormCredentialRepository struct {
	db     *gorm.DB
	sealer models.SecretSealer
	now    func() time.Time
}

// NewGormCredentialRepository creates a repository that encrypts secrets with sealer
func NewGormCredentialRepository(db *gorm.DB, sealer models.SecretSealer) *GormCredentialRepository {
	return &GormCredentialRepository{db: db, sealer: sealer, now: time.Now}
}

// activeCredential restricts a query to the active row of tenant+provider
func activeCredential(tenantID uuid.UUID, provider integration.ProviderCode) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID).
			Where("provider = ?", provider).
			Where("is_active = ?", true)
	}
}

func parseTenantID(tenantID string) (uuid.UUID, error) {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return uuid.Nil, integration.NewValidationError("tenant_id", "tenant id must be a UUID")
	}
	return id, nil
}

// FindActive returns the active credential of tenant for provider
func (r *GormCredentialRepository) FindActive(ctx context.Context, tenantID string, provider integration.ProviderCode) (*integration.ProviderCredential, error) {
	tid, err := parseTenantID(tenantID)
	if err != nil {
		return nil, err
	}

	var model models.IntegrationCredentialModel
	if err := r.db.WithContext(ctx).Scopes(activeCredential(tid, provider)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s for tenant %s", integration.ErrCredentialNotFound, provider, tenantID)
		}
		return nil, err
	}

	cred, err := model.ToDomain(r.sealer)
	if err != nil {
		return nil, fmt.Errorf("credential %s: %w", model.ID, err)
	}
	return cred, nil
}

// Save validates cred and stores it as the active credential. The previous
// active row is kept, deactivated, in the same transaction.
func (r *GormCredentialRepository) Save(ctx context.Context, cred integration.ProviderCredential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	tid, err := parseTenantID(cred.TenantID)
	if err != nil {
		return err
	}

	now := r.now()
	model := models.IntegrationCredentialModel{}
	if err := model.FromDomain(tid, cred, r.sealer); err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}
	model.ID = uuid.New()
	model.CreatedAt = now
	model.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.deactivate(tx, tid, cred.Provider, now).Error; err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
}

// Deactivate disables the active credential of tenant for provider
func (r *GormCredentialRepository) Deactivate(ctx context.Context, tenantID string, provider integration.ProviderCode) error {
	tid, err := parseTenantID(tenantID)
	if err != nil {
		return err
	}

	result := r.deactivate(r.db.WithContext(ctx), tid, provider, r.now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s for tenant %s", integration.ErrCredentialNotFound, provider, tenantID)
	}
	return nil
}

func (r *GormCredentialRepository) deactivate(db *gorm.DB, tid uuid.UUID, provider integration.ProviderCode, now time.Time) *gorm.DB {
	return db.Model(&models.IntegrationCredentialModel{}).
		Scopes(activeCredential(tid, provider)).
		Updates(map[string]any{
			"is_active":      false,
			"deactivated_at": now,
			"updated_at":     now,
		})
}

var _ integration.CredentialRepository = (*GormCredentialRepository)(nil)
