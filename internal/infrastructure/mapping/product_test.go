package mapping

import (
	"context"
	"fmt"
	"testing"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = ProductDefaults{VATRate: decimal.NewFromInt(20)}

func TestMapProduct_FullRecord(t *testing.T) {
	raw := mustDecode(t, `{
		"id": 7,
		"code": "PRL-500",
		"title": "Parol 500mg 20 Tablet",
		"price": "45,90",
		"buying_price": 30,
		"quantity": 120,
		"vat": 10,
		"barcode": "8699546090012",
		"category": {"id": 3, "name": "Ağrı Kesici"},
		"brand": "Atabay",
		"pictures": "[{\"url\":\"https://cdn.example/1.jpg\"},{\"url\":\"https://cdn.example/2.jpg\"}]"
	}`)

	p := MapProduct(raw, DefaultProductFields, testDefaults)

	assert.Equal(t, "7", p.ID)
	assert.Equal(t, "PRL-500", p.SKU)
	assert.Equal(t, "Parol 500mg 20 Tablet", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("45.90")))
	assert.True(t, p.Cost.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, int64(120), p.Stock)
	assert.True(t, p.VATRate.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "3", p.Category.ID)
	assert.Equal(t, "Ağrı Kesici", p.Category.Name)
	assert.Equal(t, "Atabay", p.Brand)
	assert.Equal(t, []string{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg"}, p.Images)
	assert.NotEmpty(t, p.Raw)
}

func TestMapProduct_MissingFieldsDegrade(t *testing.T) {
	raw := mustDecode(t, `{"id": "x1", "name": "Vitamin C", "price": "n/a", "stock": -4}`)

	p := MapProduct(raw, DefaultProductFields, testDefaults)

	assert.Equal(t, "x1", p.SKU, "sku falls back to id")
	assert.True(t, p.Price.IsZero())
	assert.Equal(t, int64(0), p.Stock, "negative stock is clamped")
	assert.True(t, p.VATRate.Equal(decimal.NewFromInt(20)), "default vat applies")
	assert.NotNil(t, p.Images)
	assert.Empty(t, p.Images)
}

func TestMapProduct_Deterministic(t *testing.T) {
	raw := mustDecode(t, `{"sku": "A", "name": "B", "price": 1.5}`)
	assert.Equal(t, MapProduct(raw, DefaultProductFields, testDefaults), MapProduct(raw, DefaultProductFields, testDefaults))
}

func TestImages_Shapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"string list", `{"images": ["a.jpg", " ", "b.jpg"]}`, []string{"a.jpg", "b.jpg"}},
		{"object list", `{"images": [{"src": "a.jpg"}, {"path": "b.jpg"}, {}]}`, []string{"a.jpg", "b.jpg"}},
		{"encoded", `{"images": "[\"a.jpg\"]"}`, []string{"a.jpg"}},
		{"single url", `{"images": "https://x/a.jpg"}`, []string{"https://x/a.jpg"}},
		{"garbage", `{"images": "not an image"}`, []string{}},
		{"missing", `{}`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Images(mustDecode(t, tt.raw), "images"))
		})
	}
}

func TestExtractList(t *testing.T) {
	assert.Len(t, ExtractList(mustDecode(t, `[{"id":1}]`)), 1)
	assert.Len(t, ExtractList(mustDecode(t, `{"data":[{"id":1},{"id":2}]}`)), 2)
	assert.Len(t, ExtractList(mustDecode(t, `{"data":{"products":[{"id":1}]}}`)), 1)
	assert.Len(t, ExtractList(mustDecode(t, `{"result":{"items":[{"id":1}]}}`), "result.items"), 1)

	empty := ExtractList(mustDecode(t, `{"message":"ok"}`))
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestHasMore(t *testing.T) {
	assert.True(t, HasMore(1, 50, 50, 120))
	assert.False(t, HasMore(3, 50, 20, 120))
	assert.True(t, HasMore(1, 50, 50, 0))
	assert.False(t, HasMore(1, 50, 49, 0))
}

func TestLookupCache(t *testing.T) {
	calls := map[string]int{}
	cache := NewLookupCache(func(ctx context.Context, id string) (string, error) {
		calls[id]++
		switch id {
		case "404":
			return "", &integration.ProviderError{Provider: integration.ProviderParasut, StatusCode: 404, Message: "not found"}
		case "throttled":
			return "", fmt.Errorf("%w: budget spent", integration.ErrRateLimitExceeded)
		}
		return "Category " + id, nil
	})
	ctx := context.Background()
	cache.Seed("1", "Seeded")

	assert.Equal(t, "Seeded", cache.Resolve(ctx, "1"))
	assert.Equal(t, "Category 2", cache.Resolve(ctx, "2"))
	assert.Equal(t, "Category 2", cache.Resolve(ctx, "2"))
	assert.Equal(t, "", cache.Resolve(ctx, "404"))
	assert.Equal(t, "", cache.Resolve(ctx, "404"))
	assert.Equal(t, "", cache.Resolve(ctx, ""))
	assert.Equal(t, "", cache.Resolve(ctx, "throttled"))
	assert.Equal(t, "", cache.Resolve(ctx, "throttled"))

	assert.Equal(t, 0, calls["1"])
	assert.Equal(t, 1, calls["2"])
	assert.Equal(t, 1, calls["404"], "rejected lookups are cached")
	assert.Equal(t, 2, calls["throttled"], "throttled lookups are retried")
	assert.Equal(t, 4, cache.Fetches())
}

func TestDefaultsFromPolicy(t *testing.T) {
	d := DefaultsFromPolicy(integration.FallbackPolicy{})
	require.False(t, d.VATRate.IsZero())
	assert.True(t, d.VATRate.Equal(decimal.NewFromInt(20)))
}
