package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/cache"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/ratelimit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOptions gives a driver its own store and no local rate limits
func testOptions(t *testing.T, extra ...Option) []Option {
	t.Helper()
	store := cache.NewInMemoryCredentialStore()
	t.Cleanup(func() { store.Close() })

	opts := []Option{
		WithStore(store),
		WithSpacers(ratelimit.NewSpacerRegistry()),
		WithRatePolicy(ratelimit.Policy{}),
		WithTimeouts(5*time.Second, 5*time.Second),
	}
	return append(opts, extra...)
}

// memorySequence is an integration.InvoiceSequence that outlives the
// drivers and stores built around it, like the database table it stands in for
type memorySequence struct {
	mu     sync.Mutex
	values map[string]int64
}

func newMemorySequence() *memorySequence {
	return &memorySequence{values: make(map[string]int64)}
}

func (m *memorySequence) Next(_ context.Context, tenantID string, provider integration.ProviderCode, series string, year int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s:%s:%s:%d", tenantID, provider, series, year)
	m.values[key]++
	return m.values[key], nil
}

func onePerHour() ratelimit.Policy {
	return ratelimit.Policy{Budgets: []ratelimit.Budget{{Class: ratelimit.ClassAll, Limit: 1, Period: time.Hour}}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// readJSON decodes a request body inside a handler goroutine
func readJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	var m map[string]any
	assert.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func testOrder() integration.CanonicalOrder {
	return integration.CanonicalOrder{
		ID:     "ord-1",
		Number: "B2B-1001",
		Customer: integration.Customer{
			Name:  "Ayşe Eczanesi",
			Email: "ayse@example.com",
			Phone: "+90 532 111 22 33",
			TaxID: "1234567890",
		},
		ShippingAddress: integration.Address{Line: "Atatürk Cad. 1", District: "Kadıköy", City: "İstanbul"},
		Lines: []integration.OrderLine{
			{ProductID: "p1", SKU: "PARACETAMOL-500", Name: "Parol 500mg", Barcode: "8690000000011", Quantity: 2, UnitPrice: decimal.NewFromInt(50), VATRate: decimal.NewNullDecimal(decimal.NewFromInt(20))},
			{ProductID: "p2", Name: "Maske", Quantity: 1, UnitPrice: decimal.NewFromInt(30), VATRate: decimal.NewNullDecimal(decimal.NewFromInt(20))},
		},
		Totals: integration.OrderTotals{
			Subtotal: decimal.NewFromInt(130),
			Tax:      decimal.NewFromInt(26),
			Grand:    decimal.NewFromInt(156),
		},
		PaymentStatus: integration.PaymentStatusPaid,
		PaymentMethod: "credit_card",
		CreatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func testInvoice(t *testing.T) integration.InvoicePayload {
	t.Helper()
	p, err := integration.NewInvoicePayload(testOrder(), integration.InvoiceOptions{
		Number:    "EAR2026000000001",
		UUID:      "5b1f1c4e-9d1e-4b7a-8c53-0d2f6f2b9a10",
		IssueDate: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Supplier: integration.Party{
			Name:      "Depo Ecza A.Ş.",
			TaxID:     "9876543210",
			TaxOffice: "Kadıköy",
			Address:   integration.Address{Line: "Depo Sok. 5", City: "İstanbul", Country: "Türkiye"},
		},
		Website: "https://b2b.example.com",
	})
	require.NoError(t, err)
	return p
}
