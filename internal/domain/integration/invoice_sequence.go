package integration

import "context"

// InvoiceSequence hands out invoice serial numbers. The numbers are legal
// document identifiers, so an implementation must be durable and never
// return the same number twice for one series and year.
type InvoiceSequence interface {
	// Next reserves the next number of series for tenant in year. The first
	// number of a year is 1.
	Next(ctx context.Context, tenantID string, provider ProviderCode, series string, year int) (int64, error)
}
