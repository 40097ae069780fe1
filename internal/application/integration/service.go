// Package integration orchestrates provider drivers for marketplace tenants:
// it resolves the active credential, caches one driver per tenant and
// provider, and instruments every operation.
package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/logger"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names used for spans, metrics and log fields
const (
	OpTestConnection = "test_connection"
	OpSyncProducts   = "sync_products"
	OpSyncOrder      = "sync_order"
	OpCreateInvoice  = "create_invoice"
	OpTrackShipment  = "track_shipment"
	OpCancelShipment = "cancel_shipment"
	OpGetLabel       = "get_label"
	OpInvoiceStatus  = "invoice_status"
	OpCancelInvoice  = "cancel_invoice"
)

// maxWalkPages bounds WalkProducts against providers that always report more
const maxWalkPages = 10000

// DriverFactory builds a driver for a tenant credential
type DriverFactory func(cred integration.ProviderCredential) (integration.Driver, error)

type driverKey struct {
	tenantID string
	provider integration.ProviderCode
}

// Service runs provider operations on behalf of tenants
type Service struct {
	credentials integration.CredentialRepository
	newDriver   DriverFactory
	logger      *zap.Logger
	metrics     *telemetry.DriverMetrics
	now         func() time.Time

	mu      sync.Mutex
	drivers map[driverKey]integration.Driver
}

// NewService creates a Service
func NewService(credentials integration.CredentialRepository, newDriver DriverFactory) *Service {
	return &Service{
		credentials: credentials,
		newDriver:   newDriver,
		logger:      zap.NewNop(),
		now:         time.Now,
		drivers:     make(map[driverKey]integration.Driver),
	}
}

// SetLogger sets the service logger
func (s *Service) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetDriverMetrics sets the operation metrics collector
func (s *Service) SetDriverMetrics(m *telemetry.DriverMetrics) {
	s.metrics = m
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// SaveCredential stores cred as the tenant's active credential and drops the
// cached driver built from the previous one
func (s *Service) SaveCredential(ctx context.Context, cred integration.ProviderCredential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	if err := s.credentials.Save(ctx, cred); err != nil {
		return err
	}
	s.Invalidate(cred.TenantID, cred.Provider)
	return nil
}

// DeactivateCredential disables the tenant's credential for provider
func (s *Service) DeactivateCredential(ctx context.Context, tenantID string, provider integration.ProviderCode) error {
	if err := s.credentials.Deactivate(ctx, tenantID, provider); err != nil {
		return err
	}
	s.Invalidate(tenantID, provider)
	return nil
}

// Invalidate forgets the cached driver of tenant for provider
func (s *Service) Invalidate(tenantID string, provider integration.ProviderCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drivers, driverKey{tenantID: tenantID, provider: provider})
}

// driver returns the cached driver or builds one from the active credential
func (s *Service) driver(ctx context.Context, tenantID string, provider integration.ProviderCode) (integration.Driver, error) {
	if !provider.IsValid() {
		return nil, fmt.Errorf("%w: %q", integration.ErrUnknownProvider, provider)
	}
	if tenantID == "" {
		return nil, integration.NewValidationError("tenant_id", "tenant id is required")
	}

	key := driverKey{tenantID: tenantID, provider: provider}
	s.mu.Lock()
	d, ok := s.drivers[key]
	s.mu.Unlock()
	if ok {
		return d, nil
	}

	cred, err := s.credentials.FindActive(ctx, tenantID, provider)
	if errors.Is(err, integration.ErrCredentialNotFound) {
		return nil, fmt.Errorf("%w: %s has no active credential for tenant", integration.ErrProviderNotConfigured, provider.DisplayName())
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	d, err = s.newDriver(*cred)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.drivers[key]; ok {
		return existing, nil
	}
	s.drivers[key] = d
	return d, nil
}

// run resolves the driver and executes call inside a span, then records the
// outcome. Driver resolution failures become failed results.
func (s *Service) run(
	ctx context.Context,
	tenantID string,
	provider integration.ProviderCode,
	operation string,
	call func(ctx context.Context, d integration.Driver) integration.OperationResult,
) integration.OperationResult {
	ctx, span := telemetry.StartSpan(ctx, "integration."+operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttributes(
			telemetry.AttrProvider.String(string(provider)),
			telemetry.AttrOperation.String(operation),
			telemetry.AttrTenantID.String(tenantID),
		),
	)
	defer span.End()

	ctx, log := logger.WithTenantID(ctx, s.logger, tenantID)
	ctx, log = logger.WithProvider(ctx, log, string(provider))
	log = logger.WithTraceContext(ctx, log)

	start := s.now()
	var result integration.OperationResult
	d, err := s.driver(ctx, tenantID, provider)
	if err != nil {
		result = integration.ResultFromError(err)
	} else {
		result = call(ctx, d)
	}
	elapsed := s.now().Sub(start)

	s.metrics.Record(ctx, string(provider), operation, result.Kind.String(), elapsed)
	span.SetAttributes(telemetry.AttrResultKind.String(result.Kind.String()))

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("kind", result.Kind.String()),
		zap.Duration("elapsed", elapsed),
	}
	if result.Success {
		telemetry.SetOK(span)
		log.Debug("Provider operation succeeded", fields...)
		return result
	}

	telemetry.Fail(span, result.Message)
	fields = append(fields, zap.String("message", result.Message), zap.String("error_code", result.ErrorCode))
	if result.IsRetryable() {
		log.Warn("Provider operation failed, retryable", fields...)
	} else {
		log.Info("Provider operation failed", fields...)
	}
	return result
}

// ---------------------------------------------------------------------------
// Driver contract
// ---------------------------------------------------------------------------

// TestConnection verifies the tenant's credentials against provider
func (s *Service) TestConnection(ctx context.Context, tenantID string, provider integration.ProviderCode) integration.OperationResult {
	return s.run(ctx, tenantID, provider, OpTestConnection, func(ctx context.Context, d integration.Driver) integration.OperationResult {
		return d.TestConnection(ctx)
	})
}

// SyncProducts pulls one catalog page
func (s *Service) SyncProducts(ctx context.Context, tenantID string, provider integration.ProviderCode, page, pageSize int) integration.OperationResult {
	return s.run(ctx, tenantID, provider, OpSyncProducts, func(ctx context.Context, d integration.Driver) integration.OperationResult {
		return d.SyncProducts(ctx, page, pageSize)
	})
}

// SyncOrder pushes a marketplace order
func (s *Service) SyncOrder(ctx context.Context, tenantID string, provider integration.ProviderCode, order integration.CanonicalOrder) integration.OperationResult {
	return s.run(ctx, tenantID, provider, OpSyncOrder, func(ctx context.Context, d integration.Driver) integration.OperationResult {
		return d.SyncOrder(ctx, order)
	})
}

// CreateInvoice issues a fiscal document
func (s *Service) CreateInvoice(ctx context.Context, tenantID string, provider integration.ProviderCode, payload integration.InvoicePayload) integration.OperationResult {
	return s.run(ctx, tenantID, provider, OpCreateInvoice, func(ctx context.Context, d integration.Driver) integration.OperationResult {
		return d.CreateInvoice(ctx, payload)
	})
}

// ProductVisitor receives each catalog page. Returning false stops the walk.
type ProductVisitor func(page int, products []integration.CanonicalProduct) bool

// WalkProducts pulls catalog pages starting at page 1 until the provider
// reports no more pages or visit returns false. On success Data holds the
// number of products visited; the first failed page result is returned as is.
func (s *Service) WalkProducts(ctx context.Context, tenantID string, provider integration.ProviderCode, pageSize int, visit ProductVisitor) integration.OperationResult {
	total := 0
	for page := 1; page <= maxWalkPages; page++ {
		if err := ctx.Err(); err != nil {
			return integration.ResultFromError(err)
		}

		result := s.SyncProducts(ctx, tenantID, provider, page, pageSize)
		if !result.Success {
			return result
		}

		products, ok := result.Data.([]integration.CanonicalProduct)
		if !ok && result.Data != nil {
			return integration.ResultFromError(&integration.SchemaError{
				Provider: provider,
				Detail:   fmt.Sprintf("page %d data is %T", page, result.Data),
			})
		}
		total += len(products)

		if !visit(page, products) {
			break
		}
		if result.Pagination == nil || !result.Pagination.HasMore || len(products) == 0 {
			break
		}
	}
	return integration.Succeeded(fmt.Sprintf("%d products visited", total), total)
}

// ---------------------------------------------------------------------------
// Optional capabilities
// ---------------------------------------------------------------------------

// TrackShipment returns the tracking state of a shipment
func (s *Service) TrackShipment(ctx context.Context, tenantID string, provider integration.ProviderCode, trackingNumber string) integration.OperationResult {
	return s.run(ctx, tenantID, provider, OpTrackShipment, withTracker(func(ctx context.Context, t integration.ShipmentTracker) integration.OperationResult {
		return t.TrackShipment(ctx, trackingNumber)
	}))
}

// CancelShipment cancels a shipment
func (s *Service) CancelShipment(ctx context.Context, tenantID string, provider integration.ProviderCode, trackingNumber string) integration.OperationResult {
	return s.run(ctx, tenantID, provider, OpCancelShipment, withTracker(func(ctx context.Context, t integration.ShipmentTracker) integration.OperationResult {
		return t.CancelShipment(ctx, trackingNumber)
	}))
}

// GetLabel returns the shipping label of a shipment
func (s *Service) GetLabel(ctx context.Context, tenantID string, provider integration.ProviderCode, trackingNumber string) integration.OperationResult {
	return s.run(ctx, tenantID, provider, OpGetLabel, withTracker(func(ctx context.Context, t integration.ShipmentTracker) integration.OperationResult {
		return t.GetLabel(ctx, trackingNumber)
	}))
}

// InvoiceStatus queries the state of an issued invoice
func (s *Service) InvoiceStatus(ctx context.Context, tenantID string, provider integration.ProviderCode, invoiceUUID string) integration.OperationResult {
	return s.run(ctx, tenantID, provider, OpInvoiceStatus, withStatusChecker(func(ctx context.Context, c integration.InvoiceStatusChecker) integration.OperationResult {
		return c.InvoiceStatus(ctx, invoiceUUID)
	}))
}

// CancelInvoice cancels an issued invoice
func (s *Service) CancelInvoice(ctx context.Context, tenantID string, provider integration.ProviderCode, invoiceUUID string) integration.OperationResult {
	return s.run(ctx, tenantID, provider, OpCancelInvoice, withStatusChecker(func(ctx context.Context, c integration.InvoiceStatusChecker) integration.OperationResult {
		return c.CancelInvoice(ctx, invoiceUUID)
	}))
}

func withTracker(call func(context.Context, integration.ShipmentTracker) integration.OperationResult) func(context.Context, integration.Driver) integration.OperationResult {
	return func(ctx context.Context, d integration.Driver) integration.OperationResult {
		t, ok := d.(integration.ShipmentTracker)
		if !ok {
			return integration.ResultFromError(integration.ErrOperationNotSupported)
		}
		return call(ctx, t)
	}
}

func withStatusChecker(call func(context.Context, integration.InvoiceStatusChecker) integration.OperationResult) func(context.Context, integration.Driver) integration.OperationResult {
	return func(ctx context.Context, d integration.Driver) integration.OperationResult {
		c, ok := d.(integration.InvoiceStatusChecker)
		if !ok {
			return integration.ResultFromError(integration.ErrOperationNotSupported)
		}
		return call(ctx, c)
	}
}
