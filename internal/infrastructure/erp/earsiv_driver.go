package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/auth"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/ubl"
	"go.uber.org/zap"
)

// EArsivDriver submits e-Archive invoices to a SOAP service. Credentials
// travel as HTTP headers; invoices travel as UBL inside a CDATA section.
type EArsivDriver struct {
	*base
	config *EArsivConfig
}

// NewEArsivDriver creates an e-Arşiv driver for one tenant
func NewEArsivDriver(cred integration.ProviderCredential, opts ...Option) (*EArsivDriver, error) {
	config := NewEArsivConfig(cred)
	if err := config.Validate(); err != nil {
		return nil, invalidConfig(err)
	}

	cfg := newSettings(opts)
	logger := driverLogger(cfg, cred)
	doer := cfg.transportFor(cfg.soapTimeout, logger)

	strategy, err := auth.NewSOAPHeader(config.Username, config.Password)
	if err != nil {
		return nil, invalidConfig(err)
	}

	d := &EArsivDriver{
		base:   newBase(cred, cfg, doer, strategy, logger),
		config: config,
	}
	d.classify = soapError
	return d, nil
}

// faults whose text means the header credentials were refused
var authFaultMarkers = []string{
	"yetki",
	"kullanıcı adı",
	"şifre",
	"unauthorized",
	"authentication",
	"invalid credentials",
	"password",
}

// soapError classifies SOAP faults before the HTTP status. Services answer
// faults with HTTP 500, which would otherwise read as transient.
func soapError(provider integration.ProviderCode, resp *transport.Response) error {
	msg, isFault := transport.SOAPFault(resp.Body)
	if !isFault {
		return statusError(provider, resp)
	}
	lower := strings.ToLower(msg)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s fault: %s", integration.ErrPlatformAuthFailed, provider, limit(msg))
	}
	for _, marker := range authFaultMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s fault: %s", integration.ErrPlatformAuthFailed, provider, limit(msg))
		}
	}
	code, _ := transport.ExtractTag(resp.Body, "faultcode")
	if code == "" || strings.Contains(code, " ") {
		code = "soap_fault"
	}
	return &integration.ProviderError{Provider: provider, StatusCode: resp.StatusCode, Code: code, Message: limit(msg)}
}

// Provider returns the provider code this driver handles
func (d *EArsivDriver) Provider() integration.ProviderCode {
	return integration.ProviderEArsiv
}

// call wraps body in an envelope, posts it and returns the raw response body
func (d *EArsivDriver) call(ctx context.Context, operation, body string) ([]byte, error) {
	envelope := transport.SOAPEnvelope("", "<ser:"+operation+">"+body+"</ser:"+operation+">", map[string]string{
		"ser": d.config.Namespace,
	})
	resp, err := d.send(ctx, transport.NewSOAPRequest(d.config.ServiceURL, operation, envelope))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// reply checks resultCode of an operation response
func (d *EArsivDriver) reply(operation string, body []byte) (earsivReply, error) {
	r, found := parseEArsivReply(body)
	if !found {
		return earsivReply{}, d.schemaError(operation+": missing resultCode", body)
	}
	if !r.ok() {
		return r, rejected(d.provider, r.Code, r.Text)
	}
	return r, nil
}

// input renders the JSON request header every operation carries
func (d *EArsivDriver) input(in earsivInput) (string, error) {
	in.TaxID = d.config.Supplier.TaxID
	in.Branch = d.config.Branch
	in.Register = d.config.Branch
	raw, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("earsiv: encode input: %w", err)
	}
	return transport.Element("input", string(raw)), nil
}

// TestConnection calls the echo operation
func (d *EArsivDriver) TestConnection(ctx context.Context) integration.OperationResult {
	return d.testConnection(ctx, func(ctx context.Context) error {
		body, err := d.call(ctx, earsivOpEcho, transport.Element("mesaj", "ping"))
		if err != nil {
			return err
		}
		if _, found := transport.ExtractTag(body, "return"); !found {
			return d.schemaError("echo: missing return", body)
		}
		return nil
	})
}

// SyncProducts is not offered; the service only receives invoices
func (d *EArsivDriver) SyncProducts(ctx context.Context, page, pageSize int) integration.OperationResult {
	return d.unsupported("sync_products")
}

// SyncOrder invoices the order. The invoice number is drawn from the
// durable yearly sequence of the tenant's invoice prefix.
func (d *EArsivDriver) SyncOrder(ctx context.Context, order integration.CanonicalOrder) integration.OperationResult {
	if err := mapping.ValidateOrder(order); err != nil {
		return d.fail("sync_order", err)
	}
	supplier := d.supplier()
	if strings.TrimSpace(supplier.TaxID) == "" {
		return d.fail("sync_order", integration.NewValidationError("supplier.tax_id", "supplier tax id is required"))
	}

	issued := d.cfg.now()
	number, err := d.nextNumber(ctx, issued)
	if err != nil {
		return d.fail("sync_order", err)
	}
	payload, err := integration.NewInvoicePayload(order, integration.InvoiceOptions{
		Number:    number,
		IssueDate: issued,
		Supplier:  supplier,
		Website:   d.config.Website,
		Notes:     []string{"Sipariş No: " + order.Number},
		Policy:    d.cfg.policy,
	})
	if err != nil {
		return d.fail("sync_order", err)
	}

	data, err := d.submit(ctx, payload)
	if err != nil {
		return d.fail("sync_order", err)
	}
	data["order_number"] = order.Number
	return integration.Succeeded("e-Archive invoice created", data)
}

func (d *EArsivDriver) supplier() integration.Party {
	s := d.config.Supplier
	if s.Address.Country == "" {
		s.Address.Country = d.cfg.policy.Country
	}
	return s
}

// nextNumber returns PPPYYYYNNNNNNNNN, the 16 character e-Archive number
func (d *EArsivDriver) nextNumber(ctx context.Context, issued time.Time) (string, error) {
	if d.cfg.sequence == nil {
		return "", fmt.Errorf("%w: %w", integration.ErrProviderNotConfigured, ErrEArsivNoSequence)
	}
	prefix := strings.ToUpper(d.config.InvoicePrefix)
	n, err := d.cfg.sequence.Next(ctx, d.cred.TenantID, d.provider, prefix, issued.Year())
	if err != nil {
		return "", fmt.Errorf("earsiv: failed to draw invoice number: %w", err)
	}
	return fmt.Sprintf("%s%d%09d", prefix, issued.Year(), n), nil
}

// CreateInvoice submits a prepared invoice payload
func (d *EArsivDriver) CreateInvoice(ctx context.Context, payload integration.InvoicePayload) integration.OperationResult {
	if err := payload.Validate(); err != nil {
		return d.fail("create_invoice", err)
	}
	data, err := d.submit(ctx, payload)
	if err != nil {
		return d.fail("create_invoice", err)
	}
	return integration.Succeeded("e-Archive invoice created", data)
}

// submit renders the UBL document and sends it with faturaOlustur
func (d *EArsivDriver) submit(ctx context.Context, payload integration.InvoicePayload) (map[string]any, error) {
	doc, err := ubl.Build(payload)
	if err != nil {
		return nil, err
	}

	input, err := d.input(earsivInput{OperationID: payload.UUID, InvoiceNumber: payload.Number})
	if err != nil {
		return nil, err
	}
	body := input +
		"<fatura>" +
		transport.Element("belgeFormati", earsivDocumentFormat) +
		"<belgeIcerigi>" + transport.CDATA(string(doc)) + "</belgeIcerigi>" +
		"</fatura>"
	raw, err := d.call(ctx, earsivOpCreate, body)
	if err != nil {
		return nil, err
	}
	r, err := d.reply(earsivOpCreate, raw)
	if err != nil {
		return nil, err
	}

	d.logger.Info("e-archive invoice created",
		zap.String("invoice_number", payload.Number),
		zap.String("uuid", payload.UUID),
	)
	return map[string]any{
		"uuid":                  payload.UUID,
		"invoice_number":        payload.Number,
		"result_code":           r.Code,
		"result_text":           r.Text,
		"line_extension_amount": integration.FormatAmount(payload.Totals.LineExtension),
		"tax_amount":            integration.FormatAmount(payload.Totals.Tax),
		"payable_amount":        integration.FormatAmount(payload.Totals.Payable),
		"line_count":            len(payload.Lines),
	}, nil
}

func requireUUID(uuid string) error {
	if strings.TrimSpace(uuid) == "" {
		return integration.NewValidationError("uuid", "invoice uuid is required")
	}
	return nil
}

// InvoiceStatus queries an invoice with faturaSorgula
func (d *EArsivDriver) InvoiceStatus(ctx context.Context, uuid string) integration.OperationResult {
	if err := requireUUID(uuid); err != nil {
		return d.fail("invoice_status", err)
	}
	input, err := d.input(earsivInput{InvoiceUUID: uuid})
	if err != nil {
		return d.fail("invoice_status", err)
	}
	raw, err := d.call(ctx, earsivOpQuery, input)
	if err != nil {
		return d.fail("invoice_status", err)
	}
	r, err := d.reply(earsivOpQuery, raw)
	if err != nil {
		return d.fail("invoice_status", err)
	}
	status, _ := transport.ExtractTag(raw, "faturaDurumu")
	number, _ := transport.ExtractTag(raw, "faturaNo")
	return integration.Succeeded("invoice status fetched", map[string]any{
		"uuid":           uuid,
		"invoice_number": number,
		"status":         status,
		"result_code":    r.Code,
		"result_text":    r.Text,
	})
}

// CancelInvoice cancels an issued invoice with faturaIptal
func (d *EArsivDriver) CancelInvoice(ctx context.Context, uuid string) integration.OperationResult {
	if err := requireUUID(uuid); err != nil {
		return d.fail("cancel_invoice", err)
	}
	input, err := d.input(earsivInput{InvoiceUUID: uuid, CancelDate: d.cfg.now().Format(time.DateOnly)})
	if err != nil {
		return d.fail("cancel_invoice", err)
	}
	raw, err := d.call(ctx, earsivOpCancel, input)
	if err != nil {
		return d.fail("cancel_invoice", err)
	}
	r, err := d.reply(earsivOpCancel, raw)
	if err != nil {
		return d.fail("cancel_invoice", err)
	}
	return integration.Succeeded("invoice cancelled", map[string]any{
		"uuid":        uuid,
		"result_code": r.Code,
		"result_text": r.Text,
	})
}

var (
	_ integration.Driver               = (*EArsivDriver)(nil)
	_ integration.InvoiceStatusChecker = (*EArsivDriver)(nil)
)
