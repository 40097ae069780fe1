package erp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/auth"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
)

// EntegraDriver talks to the Entegra ERP API
type EntegraDriver struct {
	*base
	config *EntegraConfig
}

// NewEntegraDriver creates an Entegra driver for one tenant
func NewEntegraDriver(cred integration.ProviderCredential, opts ...Option) (*EntegraDriver, error) {
	config := NewEntegraConfig(cred)
	if err := config.Validate(); err != nil {
		return nil, invalidConfig(err)
	}

	cfg := newSettings(opts)
	logger := driverLogger(cfg, cred)
	doer := cfg.transportFor(cfg.timeout, logger)

	strategy, err := auth.NewJWTObtainRefresh(doer, auth.JWTObtainRefresh{
		ObtainURL:       config.URL("/api/user/token/obtain/"),
		RefreshURL:      config.URL("/api/user/token/refresh/"),
		Username:        config.Email,
		Password:        config.Password,
		UsernameField:   "email",
		Scheme:          "JWT",
		AccessLifetime:  entegraAccessLifetime,
		RefreshLifetime: entegraRefreshLifetime,
	})
	if err != nil {
		return nil, invalidConfig(err)
	}

	return &EntegraDriver{
		base:   newBase(cred, cfg, doer, strategy, logger),
		config: config,
	}, nil
}

// Provider returns the provider code this driver handles
func (d *EntegraDriver) Provider() integration.ProviderCode {
	return integration.ProviderEntegra
}

// TestConnection fetches the first product page
func (d *EntegraDriver) TestConnection(ctx context.Context) integration.OperationResult {
	return d.testConnection(ctx, func(ctx context.Context) error {
		_, err := d.sendJSON(ctx, d.productPage(1))
		return err
	})
}

// SyncProducts pulls one product page. Entegra pages by path segment and
// reports the catalog size in "count".
func (d *EntegraDriver) SyncProducts(ctx context.Context, page, pageSize int) integration.OperationResult {
	page, pageSize = integration.NormalizePage(page, pageSize)

	body, err := d.sendJSON(ctx, d.productPage(page))
	if err != nil {
		return d.fail("sync_products", err)
	}
	if !body.Has("productList") && body.Items() == nil {
		return d.fail("sync_products", d.schemaError("missing productList", body.JSON()))
	}

	defaults := mapping.DefaultsFromPolicy(d.cfg.policy)
	items := mapping.ExtractList(body, "productList")
	products := make([]integration.CanonicalProduct, 0, len(items))
	for _, item := range items {
		products = append(products, mapping.MapProduct(item, entegraProductFields, defaults))
	}

	return pageResult(products, page, pageSize, body.Int(0, "count", "total"))
}

func (d *EntegraDriver) productPage(page int) *transport.Request {
	return jsonRequest(http.MethodGet, d.config.URL(fmt.Sprintf("/product/page=%d/", page)))
}

// SyncOrder pushes the order in Entegra's import format. A 200 response can
// still refuse the order with status=false.
func (d *EntegraDriver) SyncOrder(ctx context.Context, order integration.CanonicalOrder) integration.OperationResult {
	if err := mapping.ValidateOrder(order); err != nil {
		return d.fail("sync_order", err)
	}

	req, err := d.newJSON(http.MethodPost, d.config.URL("/order/"), entegraOrderRequest{
		List: []entegraOrder{d.buildOrder(order)},
	})
	if err != nil {
		return d.fail("sync_order", err)
	}
	body, err := d.sendJSON(ctx, req)
	if err != nil {
		return d.fail("sync_order", err)
	}
	if body.Has("status") && !body.Bool(false, "status") {
		return d.fail("sync_order", rejected(d.provider, body.String("code", "error_code"), body.String("message", "error", "detail")))
	}

	return integration.Succeeded("order pushed to Entegra", map[string]any{
		"order_number": order.Number,
		"order_id":     body.String("order_id", "id", "data.id"),
	})
}

func (d *EntegraDriver) buildOrder(order integration.CanonicalOrder) entegraOrder {
	policy := d.cfg.policy
	first, last := integration.SplitName(order.Customer.Name)
	if last == "" {
		last = first
	}
	invoice := order.InvoiceAddress()
	lines := integration.OrderInvoiceLines(order, policy)
	_, totals := integration.SummarizeLines(lines)

	items := make([]entegraOrderItem, 0, len(order.Lines))
	for i, l := range order.Lines {
		items = append(items, entegraOrderItem{
			ProductCode: mapping.LineSKU(order, i, policy),
			Barcode:     l.Barcode,
			Name:        l.Name,
			Quantity:    l.Quantity,
			Price:       integration.FormatAmount(l.UnitPrice),
			Tax:         lines[i].VATRate.String(),
		})
	}

	return entegraOrder{
		OrderNumber:     order.Number,
		OrderDate:       orderTime(order, d.cfg.now).Format(time.DateTime),
		FirstName:       first,
		LastName:        last,
		Email:           order.Customer.Email,
		Phone:           mapping.FallbackPhone(order.Customer.Phone, policy),
		TaxNumber:       mapping.CustomerTaxID(order, policy),
		TaxOffice:       order.Customer.TaxOffice,
		InvoiceAddress:  invoice.Line,
		InvoiceCity:     invoice.City,
		InvoiceDistrict: invoice.District,
		ShipAddress:     order.ShippingAddress.Line,
		ShipCity:        order.ShippingAddress.City,
		ShipDistrict:    order.ShippingAddress.District,
		Currency:        order.CurrencyOrDefault(),
		PaymentType:     order.PaymentMethod,
		CargoCompany:    order.Cargo.Provider,
		CargoCode:       order.Cargo.TrackingNumber,
		Shipping:        integration.FormatAmount(order.Totals.Shipping),
		Total:           integration.FormatAmount(totals.Payable),
		Items:           items,
	}
}

// CreateInvoice is not offered by Entegra
func (d *EntegraDriver) CreateInvoice(ctx context.Context, payload integration.InvoicePayload) integration.OperationResult {
	return d.unsupported("create_invoice")
}

var _ integration.Driver = (*EntegraDriver)(nil)
