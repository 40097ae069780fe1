package erp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/auth"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
)

// ParasutDriver talks to the Parasut accounting API. Orders become a contact
// plus a sales invoice; invoices are additionally issued as e-archive.
type ParasutDriver struct {
	*base
	config *ParasutConfig
}

// NewParasutDriver creates a Parasut driver for one tenant
func NewParasutDriver(cred integration.ProviderCredential, opts ...Option) (*ParasutDriver, error) {
	config := NewParasutConfig(cred)
	if err := config.Validate(); err != nil {
		return nil, invalidConfig(err)
	}

	cfg := newSettings(opts)
	logger := driverLogger(cfg, cred)
	doer := cfg.transportFor(cfg.timeout, logger)

	strategy, err := auth.NewOAuth2PasswordRefresh(doer, auth.OAuth2PasswordRefresh{
		TokenURL:        config.TokenURL(),
		ClientID:        config.ClientID,
		ClientSecret:    config.ClientSecret,
		Username:        config.Username,
		Password:        config.Password,
		DefaultLifetime: parasutTokenLifetime,
	})
	if err != nil {
		return nil, invalidConfig(err)
	}

	return &ParasutDriver{
		base:   newBase(cred, cfg, doer, strategy, logger),
		config: config,
	}, nil
}

// Provider returns the provider code this driver handles
func (d *ParasutDriver) Provider() integration.ProviderCode {
	return integration.ProviderParasut
}

// TestConnection fetches the authenticated user
func (d *ParasutDriver) TestConnection(ctx context.Context) integration.OperationResult {
	return d.testConnection(ctx, func(ctx context.Context) error {
		_, err := d.sendJSON(ctx, jsonRequest(http.MethodGet, joinURL(d.config.APIBaseURL, "/v4/me")))
		return err
	})
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// SyncProducts pulls one page of products with their categories. Categories
// missing from the included documents are fetched once and kept per tenant.
func (d *ParasutDriver) SyncProducts(ctx context.Context, page, pageSize int) integration.OperationResult {
	page, pageSize = integration.NormalizePage(page, pageSize)

	req := jsonRequest(http.MethodGet, d.config.CompanyURL("products")).
		SetQuery("page[number]", strconv.Itoa(page)).
		SetQuery("page[size]", strconv.Itoa(pageSize)).
		SetQuery("include", "category")

	body, err := d.sendJSON(ctx, req)
	if err != nil {
		return d.fail("sync_products", err)
	}
	if !body.Has("data") {
		return d.fail("sync_products", d.schemaError("missing data array", body.JSON()))
	}

	total := body.Int(0, "meta.total_count")
	items := body.List("data")
	categories := d.categoryNames(pageReserve(mapping.HasMore(page, pageSize, len(items), total)), d.fetchCategory)
	for _, inc := range body.List("included") {
		if inc.String("type") == "item_categories" {
			categories.Seed(inc.String("id"), inc.String("attributes.name"))
		}
	}

	defaults := mapping.DefaultsFromPolicy(d.cfg.policy)
	products := make([]integration.CanonicalProduct, 0, len(items))
	for _, item := range items {
		p := mapping.MapProduct(item, parasutProductFields, defaults)
		p.Category.Name = categories.Resolve(ctx, p.Category.ID)
		products = append(products, p)
	}

	return pageResult(products, page, pageSize, total)
}

func (d *ParasutDriver) fetchCategory(ctx context.Context, id string, reserve int64) (string, error) {
	body, err := d.sendSpareJSON(ctx, jsonRequest(http.MethodGet, d.config.CompanyURL("item_categories/"+id)), reserve)
	if err != nil {
		return "", err
	}
	return body.String("data.attributes.name"), nil
}

// ---------------------------------------------------------------------------
// Order and Invoice Operations
// ---------------------------------------------------------------------------

// SyncOrder records the order as a sales invoice of the buyer's contact
func (d *ParasutDriver) SyncOrder(ctx context.Context, order integration.CanonicalOrder) integration.OperationResult {
	if err := mapping.ValidateOrder(order); err != nil {
		return d.fail("sync_order", err)
	}

	customer := integration.Party{
		Name:      order.Customer.Name,
		TaxID:     mapping.CustomerTaxID(order, d.cfg.policy),
		TaxOffice: order.Customer.TaxOffice,
		Email:     order.Customer.Email,
		Phone:     mapping.FallbackPhone(order.Customer.Phone, d.cfg.policy),
		Address:   order.InvoiceAddress(),
	}
	contactID, err := d.ensureContact(ctx, customer)
	if err != nil {
		return d.fail("sync_order", err)
	}

	invoiceID, err := d.createSalesInvoice(ctx, contactID, customer, parasutInvoiceAttributes{
		ItemType:    "invoice",
		Description: "B2B order " + order.Number,
		IssueDate:   d.cfg.now().Format(time.DateOnly),
		Currency:    parasutCurrency(order.CurrencyOrDefault()),
		OrderNo:     order.Number,
		OrderDate:   orderTime(order, d.cfg.now).Format(time.DateOnly),
	}, integration.OrderInvoiceLines(order, d.cfg.policy))
	if err != nil {
		return d.fail("sync_order", err)
	}

	return integration.Succeeded("order recorded as sales invoice", map[string]any{
		"contact_id":       contactID,
		"sales_invoice_id": invoiceID,
	})
}

// CreateInvoice records the payload as a sales invoice and requests its
// e-archive issuance. The returned job id tracks the asynchronous issuance.
func (d *ParasutDriver) CreateInvoice(ctx context.Context, payload integration.InvoicePayload) integration.OperationResult {
	if err := payload.Validate(); err != nil {
		return d.fail("create_invoice", err)
	}

	contactID, err := d.ensureContact(ctx, payload.Customer)
	if err != nil {
		return d.fail("create_invoice", err)
	}

	attrs := parasutInvoiceAttributes{
		ItemType:    "invoice",
		Description: "Invoice " + payload.Number,
		IssueDate:   payload.IssueDate.Format(time.DateOnly),
		Currency:    parasutCurrency(payload.Currency),
	}
	if payload.InternetSale != nil {
		attrs.OrderNo = payload.InternetSale.OrderNumber
		attrs.OrderDate = payload.InternetSale.PaymentDate.Format(time.DateOnly)
	}
	invoiceID, err := d.createSalesInvoice(ctx, contactID, payload.Customer, attrs, payload.Lines)
	if err != nil {
		return d.fail("create_invoice", err)
	}

	archive := parasutEArchiveAttributes{}
	if len(payload.Notes) > 0 {
		archive.Note = payload.Notes[0]
	}
	if s := payload.InternetSale; s != nil {
		archive.InternetSale = &parasutInternetSale{
			URL:             s.Website,
			PaymentType:     parasutPaymentType(s.PaymentMethod),
			PaymentPlatform: s.Website,
			PaymentDate:     s.PaymentDate.Format(time.DateOnly),
		}
	}
	req, err := d.newJSON(http.MethodPost, d.config.CompanyURL("e_archives"), parasutDocument{Data: parasutResource{
		Type:       "e_archives",
		Attributes: archive,
		Relationships: map[string]parasutRelationship{
			"sales_invoice": {Data: parasutRef{ID: invoiceID, Type: "sales_invoices"}},
		},
	}})
	if err != nil {
		return d.fail("create_invoice", err)
	}
	body, err := d.sendJSON(ctx, withJSONAPI(req))
	if err != nil {
		return d.fail("create_invoice", err)
	}

	return integration.Succeeded("e-archive issuance requested", map[string]any{
		"sales_invoice_id": invoiceID,
		"job_id":           body.String("data.id"),
		"job_status":       body.String("data.attributes.status"),
		"uuid":             payload.UUID,
	})
}

// ensureContact finds the customer by tax number or email, creating it when
// absent
func (d *ParasutDriver) ensureContact(ctx context.Context, party integration.Party) (string, error) {
	filterKey, filterValue := "filter[tax_number]", party.TaxID
	if party.TaxID == "" || party.TaxID == d.cfg.policy.ConsumerTaxID {
		filterKey, filterValue = "filter[email]", party.Email
	}
	if filterValue != "" {
		body, err := d.sendJSON(ctx, jsonRequest(http.MethodGet, d.config.CompanyURL("contacts")).SetQuery(filterKey, filterValue))
		if err != nil {
			return "", err
		}
		if id := body.String("data.0.id"); id != "" {
			return id, nil
		}
	}

	contactType := "company"
	if party.IsPerson() {
		contactType = "person"
	}
	req, err := d.newJSON(http.MethodPost, d.config.CompanyURL("contacts"), parasutDocument{Data: parasutResource{
		Type: "contacts",
		Attributes: parasutContactAttributes{
			Name:        party.Name,
			Email:       party.Email,
			Phone:       party.Phone,
			TaxNumber:   party.TaxID,
			TaxOffice:   party.TaxOffice,
			City:        party.Address.City,
			District:    party.Address.District,
			Address:     party.Address.Line,
			AccountType: "customer",
			ContactType: contactType,
		},
	}})
	if err != nil {
		return "", err
	}
	body, err := d.sendJSON(ctx, withJSONAPI(req))
	if err != nil {
		return "", err
	}
	id := body.String("data.id")
	if id == "" {
		return "", d.schemaError("contact response has no id", body.JSON())
	}
	return id, nil
}

func (d *ParasutDriver) createSalesInvoice(ctx context.Context, contactID string, customer integration.Party, attrs parasutInvoiceAttributes, lines []integration.InvoiceLine) (string, error) {
	attrs.BillingAddr = customer.Address.Line
	attrs.City = customer.Address.City
	attrs.District = customer.Address.District
	attrs.TaxNumber = customer.TaxID
	attrs.TaxOffice = customer.TaxOffice

	details := make([]parasutResource, 0, len(lines))
	for _, l := range lines {
		details = append(details, parasutResource{
			Type: "sales_invoice_details",
			Attributes: parasutDetailAttributes{
				Quantity:    strconv.FormatInt(l.Quantity, 10),
				UnitPrice:   integration.FormatAmount(l.UnitPrice),
				VATRate:     l.VATRate.String(),
				Description: l.Name,
			},
		})
	}

	req, err := d.newJSON(http.MethodPost, d.config.CompanyURL("sales_invoices"), parasutDocument{Data: parasutResource{
		Type:       "sales_invoices",
		Attributes: attrs,
		Relationships: map[string]parasutRelationship{
			"contact": {Data: parasutRef{ID: contactID, Type: "contacts"}},
			"details": {Data: details},
		},
	}})
	if err != nil {
		return "", err
	}
	body, err := d.sendJSON(ctx, withJSONAPI(req))
	if err != nil {
		return "", err
	}
	id := body.String("data.id")
	if id == "" {
		return "", d.schemaError("sales invoice response has no id", body.JSON())
	}
	return id, nil
}

// withJSONAPI marks a JSON body as a JSON:API document
func withJSONAPI(req *transport.Request) *transport.Request {
	req.ContentType = transport.ContentTypeJSONAPI
	return req
}

// parasutCurrency maps ISO codes to Parasut's currency names
func parasutCurrency(code string) string {
	switch code {
	case "", "TRY":
		return "TRL"
	default:
		return code
	}
}

func parasutPaymentType(method string) string {
	switch method {
	case "EFT/HAVALE":
		return "EFT"
	case "KAPIDAODEME":
		return "KAPIDAODEME"
	default:
		return "KREDIKARTI/BANKAKARTI"
	}
}

// invalidConfig marks a configuration error as a validation failure while
// keeping the provider sentinel matchable
func invalidConfig(err error) error {
	return fmt.Errorf("%w: %w", integration.ErrValidation, err)
}

var _ integration.Driver = (*ParasutDriver)(nil)
