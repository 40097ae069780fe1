package erp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/auth"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"
	"github.com/shopspring/decimal"
)

// SentosDriver talks to a Sentos catalog panel
type SentosDriver struct {
	*base
	config *SentosConfig
}

// NewSentosDriver creates a Sentos driver for one tenant
func NewSentosDriver(cred integration.ProviderCredential, opts ...Option) (*SentosDriver, error) {
	config := NewSentosConfig(cred)
	if err := config.Validate(); err != nil {
		return nil, invalidConfig(err)
	}

	cfg := newSettings(opts)
	logger := driverLogger(cfg, cred)
	doer := cfg.transportFor(cfg.timeout, logger)

	strategy, err := auth.NewBasicStatic(config.APIKey, config.APISecret)
	if err != nil {
		return nil, invalidConfig(err)
	}

	return &SentosDriver{
		base:   newBase(cred, cfg, doer, strategy, logger),
		config: config,
	}, nil
}

// Provider returns the provider code this driver handles
func (d *SentosDriver) Provider() integration.ProviderCode {
	return integration.ProviderSentos
}

// TestConnection requests a single product
func (d *SentosDriver) TestConnection(ctx context.Context) integration.OperationResult {
	return d.testConnection(ctx, func(ctx context.Context) error {
		_, err := d.sendJSON(ctx, jsonRequest(http.MethodGet, d.config.URL("/products")).
			SetQuery("page", "1").
			SetQuery("size", "1"))
		return err
	})
}

// SyncProducts pulls one product page. Each variant becomes its own canonical
// product with the stock of all warehouses summed.
func (d *SentosDriver) SyncProducts(ctx context.Context, page, pageSize int) integration.OperationResult {
	page, pageSize = integration.NormalizePage(page, pageSize)

	req := jsonRequest(http.MethodGet, d.config.URL("/products")).
		SetQuery("page", fmt.Sprint(page)).
		SetQuery("size", fmt.Sprint(pageSize))
	body, err := d.sendJSON(ctx, req)
	if err != nil {
		return d.fail("sync_products", err)
	}
	if body.Items() == nil && !body.Has("data") {
		return d.fail("sync_products", d.schemaError("missing data array", body.JSON()))
	}

	defaults := mapping.DefaultsFromPolicy(d.cfg.policy)
	items := mapping.ExtractList(body)
	products := make([]integration.CanonicalProduct, 0, len(items))
	for _, item := range items {
		products = append(products, sentosProducts(item, defaults)...)
	}

	// the panel pages by parent product, so paging follows parents
	result := pageResult(products, page, pageSize, body.Int(0, "total_elements", "total"))
	if result.Pagination.Total == 0 {
		result.Pagination.HasMore = mapping.HasMore(page, pageSize, len(items), 0)
	}
	return result
}

// sentosProducts expands a product into one canonical product per variant
func sentosProducts(item mapping.Payload, defaults mapping.ProductDefaults) []integration.CanonicalProduct {
	parent := mapping.MapProduct(item, sentosProductFields, defaults)
	variants := item.List("variants")
	if len(variants) == 0 {
		if item.Has("stocks") {
			parent.Stock = warehouseStock(item)
			parent.Normalize()
		}
		return []integration.CanonicalProduct{parent}
	}

	out := make([]integration.CanonicalProduct, 0, len(variants))
	for i, v := range variants {
		p := parent
		p.ID = v.StringOr(fmt.Sprintf("%s-%d", parent.ID, i+1), "id")
		p.Barcode = v.StringOr(parent.Barcode, "barcode")
		p.SKU = v.StringOr(firstNonBlank(p.Barcode, p.ID), "sku")
		p.Price = v.Decimal(parent.Price, "sale_price", "price")
		p.Cost = v.Decimal(parent.Cost, "purchase_price")
		p.Stock = warehouseStock(v)
		if label := variantLabel(v); label != "" {
			p.Name = parent.Name + " " + label
		}
		if images := mapping.Images(v, "images"); len(images) > 0 {
			p.Images = images
		} else {
			p.Images = append([]string{}, parent.Images...)
		}
		p.Raw = v.JSON()
		p.Normalize()
		out = append(out, p)
	}
	return out
}

// warehouseStock sums per-warehouse quantities, falling back to a flat stock
func warehouseStock(v mapping.Payload) int64 {
	stocks := v.List("stocks")
	if len(stocks) == 0 {
		return v.Int(0, "stock", "quantity")
	}
	var total int64
	for _, s := range stocks {
		total += s.Int(0, "stock", "quantity")
	}
	return total
}

func variantLabel(v mapping.Payload) string {
	var parts []string
	for _, key := range []string{"color", "size", "model.value"} {
		if s := v.String(key); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// SyncOrder creates the order in the panel
func (d *SentosDriver) SyncOrder(ctx context.Context, order integration.CanonicalOrder) integration.OperationResult {
	if err := mapping.ValidateOrder(order); err != nil {
		return d.fail("sync_order", err)
	}

	req, err := d.newJSON(http.MethodPost, d.config.URL("/orders"), d.buildOrder(order))
	if err != nil {
		return d.fail("sync_order", err)
	}
	body, err := d.sendJSON(ctx, req)
	if err != nil {
		return d.fail("sync_order", err)
	}
	if body.Has("success") && !body.Bool(true, "success") {
		return d.fail("sync_order", rejected(d.provider, body.String("code"), body.String("message", "error")))
	}

	return integration.Succeeded("order created in Sentos", map[string]any{
		"order_number": order.Number,
		"order_id":     body.String("id", "data.id", "order_id"),
	})
}

func (d *SentosDriver) buildOrder(order integration.CanonicalOrder) sentosOrder {
	policy := d.cfg.policy
	lines := integration.OrderInvoiceLines(order, policy)
	_, totals := integration.SummarizeLines(lines)

	out := make([]sentosOrderLine, 0, len(order.Lines))
	for i, l := range order.Lines {
		out = append(out, sentosOrderLine{
			SKU:      mapping.LineSKU(order, i, policy),
			Barcode:  l.Barcode,
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    integration.FormatAmount(l.UnitPrice),
			VATRate:  lines[i].VATRate.String(),
		})
	}

	status := "new"
	if order.IsPaid() {
		status = "approved"
	}
	shipping := order.Totals.Shipping
	if shipping.IsNegative() {
		shipping = decimal.Zero
	}

	return sentosOrder{
		OrderCode: order.Number,
		OrderDate: orderTime(order, d.cfg.now).Format(time.DateTime),
		Source:    "b2b",
		Status:    status,
		Currency:  order.CurrencyOrDefault(),
		Customer: sentosCustomer{
			Name:      order.Customer.Name,
			Email:     order.Customer.Email,
			Phone:     mapping.FallbackPhone(order.Customer.Phone, policy),
			TaxNumber: mapping.CustomerTaxID(order, policy),
			TaxOffice: order.Customer.TaxOffice,
		},
		InvoiceAddress:  sentosAddressOf(order.InvoiceAddress(), policy),
		ShippingAddress: sentosAddressOf(order.ShippingAddress, policy),
		CargoCompany:    order.Cargo.Provider,
		CargoTracking:   order.Cargo.TrackingNumber,
		ShippingTotal:   integration.FormatAmount(shipping),
		Total:           integration.FormatAmount(totals.Payable),
		Lines:           out,
	}
}

func sentosAddressOf(a integration.Address, policy integration.FallbackPolicy) sentosAddress {
	country := a.Country
	if country == "" {
		country = policy.Country
	}
	return sentosAddress{Address: a.Line, District: a.District, City: a.City, Country: country}
}

// CreateInvoice is not offered by Sentos
func (d *SentosDriver) CreateInvoice(ctx context.Context, payload integration.InvoicePayload) integration.OperationResult {
	return d.unsupported("create_invoice")
}

var _ integration.Driver = (*SentosDriver)(nil)
