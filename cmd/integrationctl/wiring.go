package main

import (
	"context"
	"fmt"

	appintegration "github.com/1212falcon1212/b2b-pharmacy-sub000/internal/application/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/cache"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/config"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/erp"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/logger"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/persistence"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

// app holds the wired service and everything that must be closed on exit
type app struct {
	service *appintegration.Service
	log     *zap.Logger
	closers []func(context.Context) error
}

// Close releases resources in reverse construction order
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("Shutdown step failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// newApp wires configuration, telemetry, persistence and the driver registry
func newApp(ctx context.Context, cfg *config.Config, logLevel string) (*app, error) {
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: cfg.Log.Format,
		Output: "stderr",
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	a := &app{log: log}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	a.onClose(tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.onClose(mp.Shutdown)

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.onClose(lp.Shutdown)
	a.log = lp.Bridge(log, logger.ParseLevel(logLevel))

	cipher, err := persistence.NewSecretCipherFromHex(cfg.Integration.SecretKey)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("integration.secret_key: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Database, a.log, logLevel)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.onClose(func(context.Context) error { return db.Close() })

	store, err := cache.NewCredentialStoreFactory(cfg.Redis,
		cache.WithBackend(cfg.Integration.CredentialStore),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
		cache.WithLogger(a.log),
	).CreateStore()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.onClose(func(context.Context) error { return store.Close() })

	metrics, err := telemetry.NewDriverMetrics(mp.Meter(telemetry.TracerName))
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	registry := erp.NewRegistry()
	factory := driverFactory(registry, cfg.Integration,
		erp.WithStore(store),
		erp.WithInvoiceSequence(persistence.NewGormInvoiceSequenceRepository(db.DB)),
		erp.WithLogger(a.log),
		erp.WithFallbackPolicy(fallbackPolicy(cfg.Integration.Fallback)),
		erp.WithTimeouts(cfg.Integration.HTTPTimeout, cfg.Integration.SOAPTimeout),
		erp.WithExpiryBuffer(cfg.Integration.TokenExpiryBuffer),
		erp.WithUserAgent(cfg.Integration.UserAgent),
	)

	a.service = appintegration.NewService(persistence.NewGormCredentialRepository(db.DB, cipher), factory)
	a.service.SetLogger(a.log)
	a.service.SetDriverMetrics(metrics)
	return a, nil
}

// driverFactory builds drivers through registry. A credential without its
// own base URL gets the configured override for its provider, if any.
func driverFactory(registry *erp.Registry, cfg config.IntegrationConfig, opts ...erp.Option) appintegration.DriverFactory {
	return func(cred integration.ProviderCredential) (integration.Driver, error) {
		if cred.BaseURL == "" {
			cred.BaseURL = cfg.BaseURLs[string(cred.Provider)]
		}
		return registry.New(cred, opts...)
	}
}

func fallbackPolicy(f config.FallbackConfig) integration.FallbackPolicy {
	return integration.FallbackPolicy{
		VATRate:       decimal.NewFromFloat(f.VATRate),
		Phone:         f.Phone,
		ConsumerTaxID: f.ConsumerTaxID,
		SKUPrefix:     f.SKUPrefix,
		Country:       f.Country,
	}.WithDefaults()
}
