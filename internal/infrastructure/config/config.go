package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Telemetry   TelemetryConfig
	Integration IntegrationConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// Credential store backends
const (
	CredentialStoreRedis  = "redis"
	CredentialStoreMemory = "memory"
)

// IntegrationConfig holds provider driver settings
type IntegrationConfig struct {
	HTTPTimeout       time.Duration
	SOAPTimeout       time.Duration
	TokenExpiryBuffer time.Duration
	CredentialStore   string // redis or memory
	SecretKey         string // hex-encoded 32-byte key for stored provider secrets
	UserAgent         string
	BaseURLs          map[string]string // provider code -> endpoint override
	Fallback          FallbackConfig
}

// FallbackConfig holds placeholder values used when order data is incomplete
type FallbackConfig struct {
	VATRate       float64
	Phone         string
	ConsumerTaxID string
	SKUPrefix     string
	Country       string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with B2B_ prefix (e.g., B2B_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("B2B")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
		Integration: IntegrationConfig{
			HTTPTimeout:       v.GetDuration("integration.http_timeout"),
			SOAPTimeout:       v.GetDuration("integration.soap_timeout"),
			TokenExpiryBuffer: v.GetDuration("integration.token_expiry_buffer"),
			CredentialStore:   strings.ToLower(v.GetString("integration.credential_store")),
			SecretKey:         v.GetString("integration.secret_key"),
			UserAgent:         v.GetString("integration.user_agent"),
			BaseURLs:          v.GetStringMapString("integration.base_urls"),
			Fallback: FallbackConfig{
				VATRate:       v.GetFloat64("integration.fallback.vat_rate"),
				Phone:         v.GetString("integration.fallback.phone"),
				ConsumerTaxID: v.GetString("integration.fallback.consumer_tax_id"),
				SKUPrefix:     v.GetString("integration.fallback.sku_prefix"),
				Country:       v.GetString("integration.fallback.country"),
			},
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "b2b-integration"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "b2b_pharmacy"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "b2b-integration"
	}

	// Integration defaults
	if cfg.Integration.HTTPTimeout == 0 {
		cfg.Integration.HTTPTimeout = 30 * time.Second
	}
	if cfg.Integration.SOAPTimeout == 0 {
		cfg.Integration.SOAPTimeout = 60 * time.Second
	}
	if cfg.Integration.TokenExpiryBuffer == 0 {
		cfg.Integration.TokenExpiryBuffer = 60 * time.Second
	}
	if cfg.Integration.CredentialStore == "" {
		cfg.Integration.CredentialStore = CredentialStoreRedis
	}
	if cfg.Integration.UserAgent == "" {
		cfg.Integration.UserAgent = "b2b-pharmacy-integration/1.0"
	}
	if cfg.Integration.BaseURLs == nil {
		cfg.Integration.BaseURLs = map[string]string{}
	}
	if cfg.Integration.Fallback.VATRate == 0 {
		cfg.Integration.Fallback.VATRate = 20
	}
	if cfg.Integration.Fallback.Phone == "" {
		cfg.Integration.Fallback.Phone = "05000000000"
	}
	if cfg.Integration.Fallback.ConsumerTaxID == "" {
		cfg.Integration.Fallback.ConsumerTaxID = "11111111111"
	}
	if cfg.Integration.Fallback.SKUPrefix == "" {
		cfg.Integration.Fallback.SKUPrefix = "SKU"
	}
	if cfg.Integration.Fallback.Country == "" {
		cfg.Integration.Fallback.Country = "Türkiye"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Integration.CredentialStore {
	case CredentialStoreRedis, CredentialStoreMemory:
	default:
		return fmt.Errorf("integration.credential_store must be %q or %q, got %q",
			CredentialStoreRedis, CredentialStoreMemory, c.Integration.CredentialStore)
	}
	if c.Integration.HTTPTimeout < 0 || c.Integration.SOAPTimeout < 0 {
		return fmt.Errorf("integration timeouts cannot be negative")
	}
	if c.Integration.Fallback.VATRate < 0 || c.Integration.Fallback.VATRate > 100 {
		return fmt.Errorf("integration.fallback.vat_rate must be between 0 and 100, got %v", c.Integration.Fallback.VATRate)
	}
	for provider, raw := range c.Integration.BaseURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("integration.base_urls.%s is not a valid URL: %q", provider, raw)
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Integration.SecretKey == "" {
			return fmt.Errorf("integration.secret_key is required in production")
		}
		if c.Integration.CredentialStore == CredentialStoreMemory {
			return fmt.Errorf("integration.credential_store cannot be 'memory' in production (tokens and rate limits must be shared)")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
