package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"gorm.io/gorm"
)

// nextInvoiceNumberSQL creates the year's row at 1 or bumps it. The row lock
// taken by the upsert serialises concurrent callers.
const nextInvoiceNumberSQL = `INSERT INTO invoice_sequences (tenant_id, provider, series, year, last_value, updated_at)
VALUES (?, ?, ?, ?, 1, ?)
ON CONFLICT (tenant_id, provider, series, year)
DO UPDATE SET last_value = invoice_sequences.last_value + 1, updated_at = EXCLUDED.updated_at
RETURNING last_value`

// GormInvoiceSequenceRepository implements integration.InvoiceSequence on
// the invoice_sequences table
type GormInvoiceSequenceRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormInvoiceSequenceRepository creates a sequence repository
func NewGormInvoiceSequenceRepository(db *gorm.DB) *GormInvoiceSequenceRepository {
	return &GormInvoiceSequenceRepository{db: db, now: time.Now}
}

// Next reserves the next number of series for tenant in year
func (r *GormInvoiceSequenceRepository) Next(ctx context.Context, tenantID string, provider integration.ProviderCode, series string, year int) (int64, error) {
	tid, err := parseTenantID(tenantID)
	if err != nil {
		return 0, err
	}
	series = strings.ToUpper(strings.TrimSpace(series))
	if series == "" {
		return 0, integration.NewValidationError("series", "invoice series is required")
	}

	var next int64
	if err := r.db.WithContext(ctx).Raw(nextInvoiceNumberSQL, tid, provider, series, year, r.now()).Scan(&next).Error; err != nil {
		return 0, fmt.Errorf("next invoice number %s/%d: %w", series, year, err)
	}
	if next < 1 {
		return 0, fmt.Errorf("next invoice number %s/%d: no value returned", series, year)
	}
	return next, nil
}

var _ integration.InvoiceSequence = (*GormInvoiceSequenceRepository)(nil)
