package persistence

import (
	"context"
	"database/sql"
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

var credentialColumns = []string{
	"id", "tenant_id", "provider", "username", "password_enc", "client_id", "client_secret_enc",
	"api_key", "api_secret_enc", "firm_id", "base_url", "extra", "is_active", "deactivated_at",
	"created_at", "updated_at",
}

// newMockCredentialRepository creates a GormCredentialRepository with a mocked SQL connection
func newMockCredentialRepository(t *testing.T) (*GormCredentialRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	repo := NewGormCredentialRepository(gormDB, newTestCipher(t))
	repo.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return repo, mock, mockDB
}

func TestGormCredentialRepository_FindActive(t *testing.T) {
	t.Run("decrypts the active row", func(t *testing.T) {
		repo, mock, mockDB := newMockCredentialRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		key := string(integration.ProviderParasut) + ":" + tenantID.String()
		password, err := repo.sealer.Seal("pw", key)
		require.NoError(t, err)
		secret, err := repo.sealer.Seal("client-secret", key)
		require.NoError(t, err)

		now := time.Now()
		rows := sqlmock.NewRows(credentialColumns).AddRow(
			uuid.New(), tenantID, "parasut", "muhasebe@eczane.com", password, "cid", secret,
			"", nil, "115", "", `{"category_id":"9"}`, true, nil, now, now,
		)
		mock.ExpectQuery(`SELECT \* FROM "integration_credentials" WHERE tenant_id = \$1 AND provider = \$2 AND is_active = \$3 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, "parasut", true, 1).
			WillReturnRows(rows)

		cred, err := repo.FindActive(context.Background(), tenantID.String(), integration.ProviderParasut)
		require.NoError(t, err)

		assert.Equal(t, tenantID.String(), cred.TenantID)
		assert.Equal(t, integration.ProviderParasut, cred.Provider)
		assert.Equal(t, "muhasebe@eczane.com", cred.Username)
		assert.Equal(t, "pw", cred.Password)
		assert.Equal(t, "client-secret", cred.ClientSecret)
		assert.Empty(t, cred.APISecret)
		assert.Equal(t, "115", cred.FirmID)
		assert.Equal(t, "9", cred.ExtraValue("category_id", ""))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		repo, mock, mockDB := newMockCredentialRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "integration_credentials" WHERE tenant_id = \$1`).
			WillReturnRows(sqlmock.NewRows(credentialColumns))

		_, err := repo.FindActive(context.Background(), uuid.NewString(), integration.ProviderKargo)
		assert.ErrorIs(t, err, integration.ErrCredentialNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("secret sealed for another tenant fails", func(t *testing.T) {
		repo, mock, mockDB := newMockCredentialRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		foreign, err := repo.sealer.Seal("pw", "entegra:"+uuid.NewString())
		require.NoError(t, err)

		now := time.Now()
		mock.ExpectQuery(`SELECT \* FROM "integration_credentials"`).
			WillReturnRows(sqlmock.NewRows(credentialColumns).AddRow(
				uuid.New(), tenantID, "entegra", "depo@example.com", foreign, "", nil,
				"", nil, "", "", "{}", true, nil, now, now,
			))

		_, err = repo.FindActive(context.Background(), tenantID.String(), integration.ProviderEntegra)
		assert.ErrorIs(t, err, ErrSecretCorrupted)
	})

	t.Run("tenant id must be a uuid", func(t *testing.T) {
		repo, mock, mockDB := newMockCredentialRepository(t)
		defer mockDB.Close()

		_, err := repo.FindActive(context.Background(), "tenant-1", integration.ProviderKargo)
		var verr *integration.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "tenant_id", verr.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCredentialRepository_Save(t *testing.T) {
	t.Run("replaces the active row in one transaction", func(t *testing.T) {
		repo, mock, mockDB := newMockCredentialRepository(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "integration_credentials" SET .* WHERE tenant_id = \$\d+ AND provider = \$\d+ AND is_active = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "integration_credentials"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Save(context.Background(), integration.ProviderCredential{
			TenantID:  uuid.NewString(),
			Provider:  integration.ProviderSentos,
			APIKey:    "key",
			APISecret: "secret",
			BaseURL:   "https://demo.sentos.com.tr/api",
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		repo, mock, mockDB := newMockCredentialRepository(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "integration_credentials" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "integration_credentials"`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := repo.Save(context.Background(), integration.ProviderCredential{
			TenantID: uuid.NewString(),
			Provider: integration.ProviderEArsiv,
			Username: "u",
			Password: "p",
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid credential never reaches the database", func(t *testing.T) {
		repo, mock, mockDB := newMockCredentialRepository(t)
		defer mockDB.Close()

		err := repo.Save(context.Background(), integration.ProviderCredential{Provider: integration.ProviderKargo})
		assert.ErrorIs(t, err, integration.ErrValidation)

		err = repo.Save(context.Background(), integration.ProviderCredential{TenantID: "t1", Provider: integration.ProviderKargo})
		assert.ErrorIs(t, err, integration.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCredentialRepository_Deactivate(t *testing.T) {
	t.Run("deactivates the active row", func(t *testing.T) {
		repo, mock, mockDB := newMockCredentialRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "integration_credentials" SET .* WHERE tenant_id = \$\d+ AND provider = \$\d+ AND is_active = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Deactivate(context.Background(), uuid.NewString(), integration.ProviderBizimHesap)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing active is not found", func(t *testing.T) {
		repo, mock, mockDB := newMockCredentialRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "integration_credentials" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Deactivate(context.Background(), uuid.NewString(), integration.ProviderBizimHesap)
		assert.ErrorIs(t, err, integration.ErrCredentialNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
