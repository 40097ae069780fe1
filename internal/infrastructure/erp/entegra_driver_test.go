package erp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntegraConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  EntegraConfig
		wantErr error
	}{
		{name: "valid", config: EntegraConfig{Email: "a@b.com", Password: "pw"}},
		{name: "missing email", config: EntegraConfig{Password: "pw"}, wantErr: ErrEntegraMissingEmail},
		{name: "missing password", config: EntegraConfig{Email: "a@b.com"}, wantErr: ErrEntegraMissingPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, EntegraProductionURL, tt.config.APIBaseURL)
		})
	}
}

func newEntegraServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/user/token/obtain/" {
			body := readJSON(t, r)
			assert.Equal(t, "depo@example.com", body["email"])
			writeJSON(w, http.StatusOK, map[string]any{"access": "jwt-access", "refresh": "jwt-refresh"})
			return
		}
		if r.Header.Get("Authorization") != "JWT jwt-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestEntegra(t *testing.T, url string) *EntegraDriver {
	d, err := NewEntegraDriver(integration.ProviderCredential{
		TenantID: "t1",
		Provider: integration.ProviderEntegra,
		Username: "depo@example.com",
		Password: "pw",
		BaseURL:  url,
	}, testOptions(t)...)
	require.NoError(t, err)
	return d
}

func TestEntegraDriver_SyncProducts(t *testing.T) {
	server := newEntegraServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/product/page=2/", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"count": 150,
			"productList": []any{
				map[string]any{
					"id":          101,
					"productCode": "VIT-C",
					"name":        "C Vitamini 1000mg",
					"price1":      "120,50",
					"quantity":    "7",
					"kdv":         "10",
					"barcode":     "8690000000028",
					"category":    "Vitamin",
					"brand":       "Ecza",
					"pictures":    `[{"picture":"https://cdn.example.com/a.jpg"},{"picture":"https://cdn.example.com/b.jpg"}]`,
				},
			},
		})
	})
	d := newTestEntegra(t, server.URL)

	r := d.SyncProducts(context.Background(), 2, 100)
	require.True(t, r.Success, r.Message)

	products := r.Data.([]integration.CanonicalProduct)
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "101", p.ID)
	assert.Equal(t, "VIT-C", p.SKU)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("120.50")))
	assert.Equal(t, int64(7), p.Stock)
	assert.Equal(t, "Vitamin", p.Category.Name)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}, p.Images)

	assert.Equal(t, 150, r.Pagination.Total)
	assert.False(t, r.Pagination.HasMore)
}

func TestEntegraDriver_SyncOrder(t *testing.T) {
	var sent map[string]any
	server := newEntegraServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/order/", r.URL.Path)
		sent = readJSON(t, r)
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "order_id": "E-77"})
	})
	d := newTestEntegra(t, server.URL)

	r := d.SyncOrder(context.Background(), testOrder())
	require.True(t, r.Success, r.Message)
	assert.Equal(t, "E-77", r.Data.(map[string]any)["order_id"])

	order := sent["list"].([]any)[0].(map[string]any)
	assert.Equal(t, "B2B-1001", order["order_number"])
	assert.Equal(t, "Ayşe", order["firstname"])
	assert.Equal(t, "Eczanesi", order["lastname"])
	assert.Equal(t, "156.00", order["order_total"])
	assert.Equal(t, "2026-03-14 09:30:00", order["order_date"])

	items := order["order_product"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "PARACETAMOL-500", items[0].(map[string]any)["productCode"])
	assert.Equal(t, "SKU-maske", items[1].(map[string]any)["productCode"], "generated sku for a line without sku or barcode")
}

func TestEntegraDriver_SyncOrderRefusedInBody(t *testing.T) {
	server := newEntegraServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": false, "message": "Order already exists"})
	})
	d := newTestEntegra(t, server.URL)

	r := d.SyncOrder(context.Background(), testOrder())
	assert.False(t, r.Success)
	assert.Equal(t, integration.ResultProviderRejected, r.Kind)
	assert.Equal(t, "Order already exists", r.Message)
}

func TestEntegraDriver_CreateInvoiceUnsupported(t *testing.T) {
	d := newTestEntegra(t, "http://127.0.0.1:1")

	r := d.CreateInvoice(context.Background(), testInvoice(t))
	assert.Equal(t, integration.ResultValidationError, r.Kind)
	assert.Equal(t, "operation", r.Field)
}

func TestEntegraDriver_ServerErrorIsTransient(t *testing.T) {
	server := newEntegraServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	d := newTestEntegra(t, server.URL)

	r := d.TestConnection(context.Background())
	assert.Equal(t, integration.ResultTransientNetworkError, r.Kind)
	assert.True(t, r.IsRetryable())
}
