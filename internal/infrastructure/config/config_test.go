package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trackedEnv = []string{
	"B2B_APP_NAME",
	"B2B_APP_ENV",
	"B2B_DATABASE_HOST",
	"B2B_DATABASE_PORT",
	"B2B_DATABASE_PASSWORD",
	"B2B_DATABASE_SSLMODE",
	"B2B_DATABASE_MAX_OPEN_CONNS",
	"B2B_DATABASE_MAX_IDLE_CONNS",
	"B2B_REDIS_HOST",
	"B2B_INTEGRATION_HTTP_TIMEOUT",
	"B2B_INTEGRATION_SOAP_TIMEOUT",
	"B2B_INTEGRATION_CREDENTIAL_STORE",
	"B2B_INTEGRATION_SECRET_KEY",
	"B2B_INTEGRATION_FALLBACK_VAT_RATE",
	"B2B_INTEGRATION_FALLBACK_PHONE",
	"B2B_TELEMETRY_SAMPLING_RATIO",
}

// isolateEnv clears the tracked variables and restores them when the test ends
func isolateEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string, len(trackedEnv))
	for _, k := range trackedEnv {
		original[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "b2b-integration", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 6379, cfg.Redis.Port)

		assert.Equal(t, 30*time.Second, cfg.Integration.HTTPTimeout)
		assert.Equal(t, 60*time.Second, cfg.Integration.SOAPTimeout)
		assert.Equal(t, 60*time.Second, cfg.Integration.TokenExpiryBuffer)
		assert.Equal(t, CredentialStoreRedis, cfg.Integration.CredentialStore)
		assert.Equal(t, 20.0, cfg.Integration.Fallback.VATRate)
		assert.Equal(t, "05000000000", cfg.Integration.Fallback.Phone)
		assert.Equal(t, "11111111111", cfg.Integration.Fallback.ConsumerTaxID)
		assert.Equal(t, "SKU", cfg.Integration.Fallback.SKUPrefix)
		assert.Equal(t, "Türkiye", cfg.Integration.Fallback.Country)
		assert.NotNil(t, cfg.Integration.BaseURLs)
	})

	t.Run("loads values from environment variables with B2B prefix", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("B2B_APP_NAME", "integration-worker")
		os.Setenv("B2B_DATABASE_HOST", "db.internal")
		os.Setenv("B2B_DATABASE_PORT", "5433")
		os.Setenv("B2B_REDIS_HOST", "redis.internal")
		os.Setenv("B2B_INTEGRATION_HTTP_TIMEOUT", "10s")
		os.Setenv("B2B_INTEGRATION_SOAP_TIMEOUT", "90s")
		os.Setenv("B2B_INTEGRATION_CREDENTIAL_STORE", "MEMORY")
		os.Setenv("B2B_INTEGRATION_FALLBACK_VAT_RATE", "10")
		os.Setenv("B2B_INTEGRATION_FALLBACK_PHONE", "02120000000")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "integration-worker", cfg.App.Name)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "redis.internal", cfg.Redis.Host)
		assert.Equal(t, 10*time.Second, cfg.Integration.HTTPTimeout)
		assert.Equal(t, 90*time.Second, cfg.Integration.SOAPTimeout)
		assert.Equal(t, CredentialStoreMemory, cfg.Integration.CredentialStore)
		assert.Equal(t, 10.0, cfg.Integration.Fallback.VATRate)
		assert.Equal(t, "02120000000", cfg.Integration.Fallback.Phone)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("B2B_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("B2B_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown credential store", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("B2B_INTEGRATION_CREDENTIAL_STORE", "memcached")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "integration.credential_store")
	})

	t.Run("rejects out of range fallback vat", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("B2B_INTEGRATION_FALLBACK_VAT_RATE", "120")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vat_rate")
	})

	t.Run("rejects invalid sampling ratio", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("B2B_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("B2B_APP_ENV", "production")
		os.Setenv("B2B_DATABASE_PASSWORD", "secure-password")
		os.Setenv("B2B_DATABASE_SSLMODE", "require")
		os.Setenv("B2B_INTEGRATION_SECRET_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Unsetenv("B2B_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("B2B_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires secret key in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Unsetenv("B2B_INTEGRATION_SECRET_KEY")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "integration.secret_key is required in production")
	})

	t.Run("forbids in-memory credential store in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()
		os.Setenv("B2B_INTEGRATION_CREDENTIAL_STORE", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be 'memory' in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
