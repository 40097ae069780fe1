package integration

import "context"

// Paging defaults for catalog syncs
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// NormalizePage applies the paging defaults: page < 1 becomes 1,
// size < 1 becomes DefaultPageSize and size > MaxPageSize is capped.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Driver is the uniform contract implemented once per external system.
// Operations never return errors: every failure is reported through the
// returned OperationResult.
type Driver interface {
	// Provider returns the provider code this driver talks to
	Provider() ProviderCode

	// TestConnection verifies credentials and reachability
	TestConnection(ctx context.Context) OperationResult

	// SyncProducts pulls one page of the provider catalog.
	// Data is []CanonicalProduct and Pagination is set on success.
	SyncProducts(ctx context.Context, page, pageSize int) OperationResult

	// SyncOrder pushes a marketplace order to the provider
	SyncOrder(ctx context.Context, order CanonicalOrder) OperationResult

	// CreateInvoice issues a fiscal document from the payload
	CreateInvoice(ctx context.Context, payload InvoicePayload) OperationResult
}

// ShipmentTracker is implemented by cargo-capable drivers
type ShipmentTracker interface {
	CancelShipment(ctx context.Context, trackingNumber string) OperationResult
	TrackShipment(ctx context.Context, trackingNumber string) OperationResult
	GetLabel(ctx context.Context, trackingNumber string) OperationResult
}

// InvoiceStatusChecker is implemented by e-invoice drivers
type InvoiceStatusChecker interface {
	InvoiceStatus(ctx context.Context, uuid string) OperationResult
	CancelInvoice(ctx context.Context, uuid string) OperationResult
}
