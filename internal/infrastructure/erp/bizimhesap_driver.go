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
	"github.com/shopspring/decimal"
)

// BizimHesapDriver talks to the BizimHesap B2B API. Orders and invoices are
// both booked as sales invoices.
type BizimHesapDriver struct {
	*base
	config *BizimHesapConfig
}

// NewBizimHesapDriver creates a BizimHesap driver for one tenant
func NewBizimHesapDriver(cred integration.ProviderCredential, opts ...Option) (*BizimHesapDriver, error) {
	config := NewBizimHesapConfig(cred)
	if err := config.Validate(); err != nil {
		return nil, invalidConfig(err)
	}

	cfg := newSettings(opts)
	logger := driverLogger(cfg, cred)
	doer := cfg.transportFor(cfg.timeout, logger)

	strategy, err := auth.NewSessionToken(bizimHesapLogin(doer, config), "token", "", bizimHesapSessionLifetime)
	if err != nil {
		return nil, invalidConfig(err)
	}

	return &BizimHesapDriver{
		base:   newBase(cred, cfg, doer, strategy, logger),
		config: config,
	}, nil
}

// bizimHesapLogin posts the credentials as multipart form fields and reads
// the session token from the response
func bizimHesapLogin(doer transport.Doer, config *BizimHesapConfig) auth.LoginFunc {
	return func(ctx context.Context) (auth.Grant, error) {
		req, err := transport.NewMultipartRequest(http.MethodPost, config.URL("login"), map[string]string{
			"username": config.Username,
			"password": config.Password,
		})
		if err != nil {
			return auth.Grant{}, err
		}
		resp, err := doer.Do(ctx, req)
		if err != nil {
			return auth.Grant{}, err
		}
		if err := loginError(integration.ProviderBizimHesap, resp); err != nil {
			return auth.Grant{}, err
		}
		body, err := mapping.Decode(resp.Body)
		if err != nil {
			return auth.Grant{}, fmt.Errorf("%w: bizimhesap login: invalid response", integration.ErrPlatformAuthFailed)
		}
		token := body.String("token", "data.token")
		if token == "" {
			return auth.Grant{}, fmt.Errorf("%w: bizimhesap login: %s", integration.ErrPlatformAuthFailed, body.StringOr("no token in response", "error", "message"))
		}
		return auth.Grant{AccessToken: token}, nil
	}
}

// Provider returns the provider code this driver handles
func (d *BizimHesapDriver) Provider() integration.ProviderCode {
	return integration.ProviderBizimHesap
}

// TestConnection logs in and lists products
func (d *BizimHesapDriver) TestConnection(ctx context.Context) integration.OperationResult {
	return d.testConnection(ctx, func(ctx context.Context) error {
		_, err := d.sendJSON(ctx, jsonRequest(http.MethodGet, d.config.URL("products")))
		return err
	})
}

// SyncProducts pulls one product page and resolves category names one id at
// a time. Resolved names are kept per tenant, so each id is fetched once.
func (d *BizimHesapDriver) SyncProducts(ctx context.Context, page, pageSize int) integration.OperationResult {
	page, pageSize = integration.NormalizePage(page, pageSize)

	req := jsonRequest(http.MethodGet, d.config.URL("products")).
		SetQuery("page", fmt.Sprint(page)).
		SetQuery("pageSize", fmt.Sprint(pageSize))
	body, err := d.sendJSON(ctx, req)
	if err != nil {
		return d.fail("sync_products", err)
	}
	if msg := body.String("error"); msg != "" {
		return d.fail("sync_products", rejected(d.provider, "error", msg))
	}
	if body.Items() == nil && !body.Has("data", "products") {
		return d.fail("sync_products", d.schemaError("missing product list", body.JSON()))
	}

	total := body.Int(0, "total", "data.total", "totalCount")
	items := mapping.ExtractList(body)
	more := mapping.HasMore(page, pageSize, len(items), total)
	categories := d.categoryNames(pageReserve(more), d.fetchCategory)
	defaults := mapping.DefaultsFromPolicy(d.cfg.policy)
	products := make([]integration.CanonicalProduct, 0, len(items))
	for _, item := range items {
		p := mapping.MapProduct(item, bizimHesapProductFields, defaults)
		p.Category.Name = categories.Resolve(ctx, p.Category.ID)
		products = append(products, p)
	}

	return pageResult(products, page, pageSize, total)
}

func (d *BizimHesapDriver) fetchCategory(ctx context.Context, id string, reserve int64) (string, error) {
	body, err := d.sendSpareJSON(ctx, jsonRequest(http.MethodGet, d.config.URL("categories/"+id)), reserve)
	if err != nil {
		return "", err
	}
	return body.String("data.name", "data.title", "name", "title"), nil
}

// SyncOrder books the order as a sales invoice
func (d *BizimHesapDriver) SyncOrder(ctx context.Context, order integration.CanonicalOrder) integration.OperationResult {
	if err := mapping.ValidateOrder(order); err != nil {
		return d.fail("sync_order", err)
	}

	policy := d.cfg.policy
	lines := integration.OrderInvoiceLines(order, policy)
	for i := range order.Lines {
		lines[i].SKU = mapping.LineSKU(order, i, policy)
	}
	customer := integration.Party{
		Name:      order.Customer.Name,
		TaxID:     mapping.CustomerTaxID(order, policy),
		TaxOffice: order.Customer.TaxOffice,
		Email:     order.Customer.Email,
		Phone:     mapping.FallbackPhone(order.Customer.Phone, policy),
		Address:   order.InvoiceAddress(),
	}

	invoice := d.buildInvoice(order.Number, orderTime(order, d.cfg.now), customer, order.CurrencyOrDefault(), "B2B order "+order.Number, lines)
	data, err := d.addInvoice(ctx, invoice)
	if err != nil {
		return d.fail("sync_order", err)
	}
	data["order_number"] = order.Number
	return integration.Succeeded("order booked as sales invoice", data)
}

// CreateInvoice books the invoice payload
func (d *BizimHesapDriver) CreateInvoice(ctx context.Context, payload integration.InvoicePayload) integration.OperationResult {
	if err := payload.Validate(); err != nil {
		return d.fail("create_invoice", err)
	}

	var note string
	if len(payload.Notes) > 0 {
		note = payload.Notes[0]
	}
	invoice := d.buildInvoice(payload.Number, payload.IssueDate, payload.Customer, payload.Currency, note, payload.Lines)
	data, err := d.addInvoice(ctx, invoice)
	if err != nil {
		return d.fail("create_invoice", err)
	}
	data["uuid"] = payload.UUID
	return integration.Succeeded("invoice booked", data)
}

func (d *BizimHesapDriver) addInvoice(ctx context.Context, invoice bizimHesapInvoice) (map[string]any, error) {
	req, err := d.newJSON(http.MethodPost, d.config.URL("addinvoice"), invoice)
	if err != nil {
		return nil, err
	}
	body, err := d.sendJSON(ctx, req)
	if err != nil {
		return nil, err
	}
	if msg := body.String("error", "errorMessage"); msg != "" {
		return nil, rejected(d.provider, "addinvoice", msg)
	}
	return map[string]any{
		"invoice_guid": body.String("guid", "data.guid"),
		"invoice_url":  body.String("url", "data.url"),
	}, nil
}

func (d *BizimHesapDriver) buildInvoice(number string, date time.Time, customer integration.Party, currency, note string, lines []integration.InvoiceLine) bizimHesapInvoice {
	_, totals := integration.SummarizeLines(lines)
	zero := integration.FormatAmount(decimal.Zero)

	details := make([]bizimHesapInvoiceDetail, 0, len(lines))
	for _, l := range lines {
		details = append(details, bizimHesapInvoiceDetail{
			ProductID:   l.SKU,
			ProductName: l.Name,
			Barcode:     l.Barcode,
			TaxRate:     l.VATRate.String(),
			Quantity:    l.Quantity,
			UnitPrice:   integration.FormatAmount(l.UnitPrice),
			GrossPrice:  integration.FormatAmount(l.LineExtension),
			Discount:    zero,
			Net:         integration.FormatAmount(l.LineExtension),
			Tax:         integration.FormatAmount(l.TaxAmount),
			Total:       integration.FormatAmount(l.LineExtension.Add(l.TaxAmount)),
		})
	}

	day := date.Format(time.DateOnly)
	return bizimHesapInvoice{
		FirmID:      d.config.FirmID,
		InvoiceNo:   number,
		InvoiceType: bizimHesapSalesInvoice,
		Note:        note,
		Dates:       bizimHesapDates{InvoiceDate: day, DueDate: day},
		Customer: bizimHesapCustomer{
			CustomerID: customer.TaxID,
			Title:      customer.Name,
			TaxOffice:  customer.TaxOffice,
			TaxNo:      customer.TaxID,
			Email:      customer.Email,
			Phone:      customer.Phone,
			Address:    formatAddress(customer.Address),
		},
		Amounts: bizimHesapAmounts{
			Currency: currency,
			Gross:    integration.FormatAmount(totals.LineExtension),
			Discount: zero,
			Net:      integration.FormatAmount(totals.TaxExclusive),
			Tax:      integration.FormatAmount(totals.Tax),
			Total:    integration.FormatAmount(totals.Payable),
		},
		Details: details,
	}
}

var _ integration.Driver = (*BizimHesapDriver)(nil)
