package erp

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKargoConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    KargoConfig
		wantErr   error
		wantLogin map[string]string
	}{
		{
			name:      "username and password",
			config:    KargoConfig{Username: "u", Password: "p", APIBaseURL: "https://x"},
			wantLogin: map[string]string{"username": "u", "password": "p"},
		},
		{
			name:      "api key pair wins",
			config:    KargoConfig{Username: "u", Password: "p", APIKey: "k", APISecret: "s", APIBaseURL: "https://x"},
			wantLogin: map[string]string{"api_key": "k", "api_secret": "s"},
		},
		{name: "half a key pair", config: KargoConfig{APIKey: "k", APIBaseURL: "https://x"}, wantErr: ErrKargoMissingCredentials},
		{name: "no credentials", config: KargoConfig{APIBaseURL: "https://x"}, wantErr: ErrKargoMissingCredentials},
		{name: "missing base url", config: KargoConfig{Username: "u", Password: "p"}, wantErr: ErrKargoMissingBaseURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLogin, tt.config.loginBody())
		})
	}
}

type kargoFake struct {
	logins      atomic.Int32
	storeCalls  atomic.Int32
	productGone atomic.Bool
	shipment    map[string]any
	hits        atomic.Int32
}

func newKargoFake(t *testing.T) (*kargoFake, *httptest.Server) {
	f := &kargoFake{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if r.URL.Path == "/auth/login" {
			f.logins.Add(1)
			body := readJSON(t, r)
			if body["api_key"] != "key" || body["api_secret"] != "secret" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid api key"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"session_code": "sess-k", "expires_in": 3600}})
			return
		}
		if r.Header.Get("Authorization") != "Bearer sess-k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method + " " + r.URL.Path {
		case "GET /stores":
			f.storeCalls.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{map[string]any{"id": 42, "name": "Depo"}}})
		case "GET /stores/42/products":
			if f.productGone.Swap(false) {
				writeJSON(w, http.StatusNotFound, map[string]any{"message": "store not found"})
				return
			}
			assert.Equal(t, "25", r.URL.Query().Get("per_page"))
			writeJSON(w, http.StatusOK, map[string]any{
				"data": []any{
					map[string]any{"id": 1, "sku": "KOLONYA", "name": "Kolonya 400ml", "price": "55.90", "stock": 12,
						"category": map[string]any{"id": 3, "name": "Kişisel Bakım"}, "brand": map[string]any{"name": "Eyüp Sabri"}},
				},
				"meta": map[string]any{"total": 60},
			})
		case "POST /stores/42/shipments":
			f.shipment = readJSON(t, r)
			writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": 9001, "tracking_number": "TRK1", "barcode": "BC-1"}})
		case "DELETE /shipments/TRK1":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"status": "cancelled"}})
		case "DELETE /shipments/TRK9":
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "code": "picked_up", "message": "Gönderi kuryeye teslim edildi"})
		case "GET /shipments/TRK1/tracking":
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"status": "in_transit",
				"events": []any{
					map[string]any{"date": "2026-03-14 12:00", "status": "accepted", "location": "İstanbul"},
					map[string]any{"date": "2026-03-15 08:10", "status": "in_transit", "location": "Ankara", "description": "Transfer merkezinde"},
				},
			}})
		case "GET /shipments/TRK1/label":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4 label"))
		case "GET /shipments/TRK3/label":
			w.Header().Set("Content-Type", "application/pdf")
			w.WriteHeader(http.StatusOK)
		case "GET /shipments/TRK2/label":
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"label": "XlhB", "format": "zpl"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return f, server
}

func newTestKargo(t *testing.T, url string, mutate ...func(*integration.ProviderCredential)) *KargoDriver {
	cred := integration.ProviderCredential{
		TenantID:  "t1",
		Provider:  integration.ProviderKargo,
		APIKey:    "key",
		APISecret: "secret",
		BaseURL:   url,
	}
	for _, m := range mutate {
		m(&cred)
	}
	d, err := NewKargoDriver(cred, testOptions(t)...)
	require.NoError(t, err)
	return d
}

func TestKargoDriver_StoreResolvedOnce(t *testing.T) {
	f, server := newKargoFake(t)
	d := newTestKargo(t, server.URL)

	require.True(t, d.TestConnection(context.Background()).Success)
	r := d.SyncProducts(context.Background(), 1, 25)
	require.True(t, r.Success, r.Message)

	assert.Equal(t, int32(1), f.storeCalls.Load())
	assert.Equal(t, int32(1), f.logins.Load())

	products := r.Data.([]integration.CanonicalProduct)
	require.Len(t, products, 1)
	assert.Equal(t, "KOLONYA", products[0].SKU)
	assert.Equal(t, "Kişisel Bakım", products[0].Category.Name)
	assert.Equal(t, "Eyüp Sabri", products[0].Brand)
	assert.Equal(t, 60, r.Pagination.Total)
	assert.True(t, r.Pagination.HasMore)
}

func TestKargoDriver_UnknownStoreIsForgotten(t *testing.T) {
	f, server := newKargoFake(t)
	d := newTestKargo(t, server.URL)

	f.productGone.Store(true)
	r := d.SyncProducts(context.Background(), 1, 25)
	assert.Equal(t, integration.ResultProviderRejected, r.Kind)

	r = d.SyncProducts(context.Background(), 1, 25)
	require.True(t, r.Success, r.Message)
	assert.Equal(t, int32(2), f.storeCalls.Load())
}

func TestKargoDriver_FirmIDPinsStore(t *testing.T) {
	f, server := newKargoFake(t)
	d := newTestKargo(t, server.URL, func(c *integration.ProviderCredential) { c.FirmID = "42" })

	r := d.SyncProducts(context.Background(), 1, 25)
	require.True(t, r.Success, r.Message)
	assert.Zero(t, f.storeCalls.Load())
}

func TestKargoDriver_SyncOrder(t *testing.T) {
	tests := []struct {
		name    string
		payment string
		wantCOD any
	}{
		{name: "paid order", payment: integration.PaymentStatusPaid, wantCOD: nil},
		{name: "unpaid order is cash on delivery", payment: integration.PaymentStatusPending, wantCOD: "156.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, server := newKargoFake(t)
			d := newTestKargo(t, server.URL)

			order := testOrder()
			order.PaymentStatus = tt.payment
			r := d.SyncOrder(context.Background(), order)
			require.True(t, r.Success, r.Message)

			data := r.Data.(map[string]any)
			assert.Equal(t, "TRK1", data["tracking_number"])
			assert.Equal(t, "9001", data["shipment_id"])

			assert.Equal(t, "B2B-1001", f.shipment["reference_no"])
			assert.Equal(t, "156.00", f.shipment["declared_value"])
			assert.Equal(t, tt.wantCOD, f.shipment["cod_amount"])
			receiver := f.shipment["receiver"].(map[string]any)
			assert.Equal(t, "Kadıköy", receiver["district"])
			assert.Equal(t, "Türkiye", receiver["country"])
			assert.Len(t, f.shipment["items"], 2)
		})
	}
}

func TestKargoDriver_ShipmentExtensions(t *testing.T) {
	_, server := newKargoFake(t)
	d := newTestKargo(t, server.URL)
	ctx := context.Background()

	t.Run("track", func(t *testing.T) {
		r := d.TrackShipment(ctx, "TRK1")
		require.True(t, r.Success, r.Message)
		data := r.Data.(map[string]any)
		assert.Equal(t, "in_transit", data["status"])
		events := data["events"].([]map[string]any)
		require.Len(t, events, 2)
		assert.Equal(t, "Ankara", events[1]["location"])
		assert.Equal(t, "Transfer merkezinde", events[1]["description"])
	})

	t.Run("cancel", func(t *testing.T) {
		r := d.CancelShipment(ctx, "TRK1")
		require.True(t, r.Success, r.Message)
		assert.Equal(t, "cancelled", r.Data.(map[string]any)["status"])
	})

	t.Run("cancel refused", func(t *testing.T) {
		r := d.CancelShipment(ctx, "TRK9")
		assert.Equal(t, integration.ResultProviderRejected, r.Kind)
		assert.Equal(t, "picked_up", r.ErrorCode)
	})

	t.Run("pdf label", func(t *testing.T) {
		r := d.GetLabel(ctx, "TRK1")
		require.True(t, r.Success, r.Message)
		data := r.Data.(map[string]any)
		assert.Equal(t, "pdf", data["format"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 label")), data["label"])
	})

	t.Run("json label", func(t *testing.T) {
		r := d.GetLabel(ctx, "TRK2")
		require.True(t, r.Success, r.Message)
		data := r.Data.(map[string]any)
		assert.Equal(t, "zpl", data["format"])
		assert.Equal(t, "XlhB", data["label"])
	})

	t.Run("empty label document", func(t *testing.T) {
		r := d.GetLabel(ctx, "TRK3")
		assert.False(t, r.Success)
		assert.Equal(t, integration.ResultSchemaMismatch, r.Kind)
		assert.Nil(t, r.Data)
	})
}

func TestKargoDriver_BlankTrackingNumber(t *testing.T) {
	f, server := newKargoFake(t)
	d := newTestKargo(t, server.URL)

	for _, r := range []integration.OperationResult{
		d.TrackShipment(context.Background(), " "),
		d.CancelShipment(context.Background(), ""),
		d.GetLabel(context.Background(), ""),
	} {
		assert.Equal(t, integration.ResultValidationError, r.Kind)
		assert.Equal(t, "tracking_number", r.Field)
	}
	assert.Zero(t, f.hits.Load())
}

func TestKargoDriver_LoginRefused(t *testing.T) {
	f, server := newKargoFake(t)
	d := newTestKargo(t, server.URL, func(c *integration.ProviderCredential) { c.APISecret = "wrong" })

	r := d.TestConnection(context.Background())
	assert.Equal(t, integration.ResultAuthError, r.Kind)
	assert.Equal(t, int32(1), f.logins.Load())
	assert.Zero(t, f.storeCalls.Load())
}
