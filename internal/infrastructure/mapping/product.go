package mapping

import (
	"strings"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ProductFields lists, per canonical field, the provider keys tried in order
type ProductFields struct {
	ID           []string
	SKU          []string
	Name         []string
	Description  []string
	Price        []string
	Cost         []string
	Stock        []string
	VATRate      []string
	Barcode      []string
	CategoryID   []string
	CategoryName []string
	Brand        []string
	Images       []string
}

// DefaultProductFields covers the common flat product shapes
var DefaultProductFields = ProductFields{
	ID:           []string{"id", "product_id", "productId"},
	SKU:          []string{"sku", "code", "product_code", "stock_code", "productCode"},
	Name:         []string{"name", "title", "product_name", "productName"},
	Description:  []string{"description", "desc", "content"},
	Price:        []string{"price", "sale_price", "salePrice", "list_price"},
	Cost:         []string{"cost", "buying_price", "purchase_price", "buyingPrice"},
	Stock:        []string{"stock", "quantity", "qty", "stock_count"},
	VATRate:      []string{"vat_rate", "vat", "tax_rate", "kdv"},
	Barcode:      []string{"barcode", "gtin", "ean"},
	CategoryID:   []string{"category_id", "categoryId", "category.id"},
	CategoryName: []string{"category_name", "category.name", "category"},
	Brand:        []string{"brand", "brand_name", "brand.name"},
	Images:       []string{"images", "pictures", "image_urls"},
}

// ProductDefaults are applied when a field is absent
type ProductDefaults struct {
	VATRate decimal.Decimal
}

// DefaultsFromPolicy derives product defaults from the fallback policy
func DefaultsFromPolicy(p integration.FallbackPolicy) ProductDefaults {
	return ProductDefaults{VATRate: p.WithDefaults().VATRate}
}

// MapProduct converts one provider product to the canonical shape. It is pure:
// the same input always yields the same product.
func MapProduct(raw Payload, fields ProductFields, defaults ProductDefaults) integration.CanonicalProduct {
	p := integration.CanonicalProduct{
		ID:          raw.String(fields.ID...),
		SKU:         raw.String(fields.SKU...),
		Name:        raw.String(fields.Name...),
		Description: raw.String(fields.Description...),
		Price:       raw.Decimal(decimal.Zero, fields.Price...),
		Cost:        raw.Decimal(decimal.Zero, fields.Cost...),
		Stock:       raw.Int(0, fields.Stock...),
		VATRate:     raw.Decimal(defaults.VATRate, fields.VATRate...),
		Barcode:     raw.String(fields.Barcode...),
		Category: integration.Category{
			ID:   raw.String(fields.CategoryID...),
			Name: raw.String(fields.CategoryName...),
		},
		Brand:  raw.String(fields.Brand...),
		Images: Images(raw, fields.Images...),
		Raw:    raw.JSON(),
	}
	if p.SKU == "" {
		p.SKU = firstNonEmpty(p.Barcode, p.ID)
	}
	p.Normalize()
	return p
}

// Images collects image URLs from the first matching key. Accepted shapes:
// ["u1","u2"], [{"url":"u1"}], a JSON-encoded array string, or a single URL.
func Images(raw Payload, keys ...string) []string {
	out := []string{}
	v, ok := raw.Lookup(keys...)
	if !ok {
		return out
	}
	items, isList := asArray(v)
	if !isList {
		if s, ok := v.(string); ok && looksLikeURL(s) {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	}
	for _, item := range items {
		switch img := item.(type) {
		case string:
			if s := strings.TrimSpace(img); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if s := NewPayload(img).String("url", "src", "path", "image", "picture", "original", "attributes.url"); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// ExtractList returns the product items of a list response. The root array,
// "data" and "data.products" are tried before the extra paths.
func ExtractList(body Payload, paths ...string) []Payload {
	if items := body.Items(); items != nil {
		return items
	}
	candidates := append([]string{"data", "data.products", "products"}, paths...)
	for _, path := range candidates {
		if items := body.List(path); items != nil {
			return items
		}
	}
	return []Payload{}
}

// HasMore decides whether another page follows
func HasMore(page, pageSize, received int, total int64) bool {
	if total > 0 {
		return int64(page*pageSize) < total
	}
	return received >= pageSize
}

func looksLikeURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "//")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
