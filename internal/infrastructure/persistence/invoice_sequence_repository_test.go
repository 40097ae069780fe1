package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockSequenceRepository(t *testing.T) (*GormInvoiceSequenceRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	repo := NewGormInvoiceSequenceRepository(gormDB)
	repo.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return repo, mock
}

func TestGormInvoiceSequenceRepository_Next(t *testing.T) {
	t.Run("returns the upserted value", func(t *testing.T) {
		repo, mock := newMockSequenceRepository(t)
		tenantID := uuid.New()

		mock.ExpectQuery(`(?s)INSERT INTO invoice_sequences .*ON CONFLICT \(tenant_id, provider, series, year\)\s+DO UPDATE SET last_value = invoice_sequences.last_value \+ 1.*RETURNING last_value`).
			WithArgs(tenantID, "earsiv", "EAR", 2026, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(42))

		n, err := repo.Next(context.Background(), tenantID.String(), integration.ProviderEArsiv, " ear ", 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database failure is returned", func(t *testing.T) {
		repo, mock := newMockSequenceRepository(t)

		mock.ExpectQuery(`INSERT INTO invoice_sequences`).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.Next(context.Background(), uuid.NewString(), integration.ProviderEArsiv, "EAR", 2026)
		assert.ErrorContains(t, err, "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is an error", func(t *testing.T) {
		repo, mock := newMockSequenceRepository(t)

		mock.ExpectQuery(`INSERT INTO invoice_sequences`).
			WillReturnRows(sqlmock.NewRows([]string{"last_value"}))

		_, err := repo.Next(context.Background(), uuid.NewString(), integration.ProviderEArsiv, "EAR", 2026)
		assert.Error(t, err)
	})

	t.Run("validates input before querying", func(t *testing.T) {
		repo, mock := newMockSequenceRepository(t)

		_, err := repo.Next(context.Background(), "tenant-1", integration.ProviderEArsiv, "EAR", 2026)
		var verr *integration.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "tenant_id", verr.Field)

		_, err = repo.Next(context.Background(), uuid.NewString(), integration.ProviderEArsiv, "  ", 2026)
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "series", verr.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
