package erp

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/auth"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
	"go.uber.org/zap"
)

// KargoDriver talks to the store and cargo API. Orders become shipments of
// the tenant's store; shipments can be tracked, cancelled and labelled.
type KargoDriver struct {
	*base
	config *KargoConfig
}

// NewKargoDriver creates a Kargo driver for one tenant
func NewKargoDriver(cred integration.ProviderCredential, opts ...Option) (*KargoDriver, error) {
	config := NewKargoConfig(cred)
	if err := config.Validate(); err != nil {
		return nil, invalidConfig(err)
	}

	cfg := newSettings(opts)
	logger := driverLogger(cfg, cred)
	doer := cfg.transportFor(cfg.timeout, logger)

	strategy, err := auth.NewSessionToken(kargoLogin(doer, config), "Authorization", "Bearer", kargoSessionLifetime)
	if err != nil {
		return nil, invalidConfig(err)
	}

	return &KargoDriver{
		base:   newBase(cred, cfg, doer, strategy, logger),
		config: config,
	}, nil
}

// kargoLogin exchanges the credentials for a session code
func kargoLogin(doer transport.Doer, config *KargoConfig) auth.LoginFunc {
	return func(ctx context.Context) (auth.Grant, error) {
		req, err := transport.NewJSONRequest(http.MethodPost, config.URL("/auth/login"), config.loginBody())
		if err != nil {
			return auth.Grant{}, err
		}
		resp, err := doer.Do(ctx, req)
		if err != nil {
			return auth.Grant{}, err
		}
		if err := loginError(integration.ProviderKargo, resp); err != nil {
			return auth.Grant{}, err
		}
		body, err := mapping.Decode(resp.Body)
		if err != nil {
			return auth.Grant{}, fmt.Errorf("%w: kargo login: invalid response", integration.ErrPlatformAuthFailed)
		}
		code := body.String("data.session_code", "session_code", "data.token", "token")
		if code == "" {
			return auth.Grant{}, fmt.Errorf("%w: kargo login: %s", integration.ErrPlatformAuthFailed, body.StringOr("no session code in response", "message", "error"))
		}
		grant := auth.Grant{AccessToken: code}
		if secs := body.Int(0, "data.expires_in", "expires_in"); secs > 0 {
			grant.ExpiresIn = time.Duration(secs) * time.Second
		}
		return grant, nil
	}
}

// Provider returns the provider code this driver handles
func (d *KargoDriver) Provider() integration.ProviderCode {
	return integration.ProviderKargo
}

// TestConnection logs in and resolves the store
func (d *KargoDriver) TestConnection(ctx context.Context) integration.OperationResult {
	return d.testConnection(ctx, func(ctx context.Context) error {
		_, err := d.storeID(ctx)
		return err
	})
}

// storeID returns the configured store or the first store of the account,
// cached per tenant
func (d *KargoDriver) storeID(ctx context.Context) (string, error) {
	if d.config.StoreID != "" {
		return d.config.StoreID, nil
	}
	return d.cached(ctx, "store_id", kargoStoreTTL, func(ctx context.Context) (string, error) {
		body, err := d.sendJSON(ctx, jsonRequest(http.MethodGet, d.config.URL("/stores")))
		if err != nil {
			return "", err
		}
		stores := mapping.ExtractList(body, "stores")
		if len(stores) == 0 {
			return "", integration.NewValidationError("store_id", "no store found for this Kargo account")
		}
		id := stores[0].String("id", "store_id")
		if id == "" {
			return "", d.schemaError("store without id", body.JSON())
		}
		d.logger.Debug("resolved kargo store", zap.String("store_id", id))
		return id, nil
	})
}

// storeURL returns a URL under the tenant's store
func (d *KargoDriver) storeURL(ctx context.Context, path string) (string, error) {
	id, err := d.storeID(ctx)
	if err != nil {
		return "", err
	}
	return d.config.URL("/stores/" + url.PathEscape(id) + "/" + strings.TrimLeft(path, "/")), nil
}

// storeGone drops a cached store id the API no longer knows
func (d *KargoDriver) storeGone(ctx context.Context, err error) {
	var perr *integration.ProviderError
	if d.config.StoreID == "" && errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound {
		d.forget(ctx, "store_id")
	}
}

// SyncProducts pulls one product page of the store
func (d *KargoDriver) SyncProducts(ctx context.Context, page, pageSize int) integration.OperationResult {
	page, pageSize = integration.NormalizePage(page, pageSize)

	target, err := d.storeURL(ctx, "products")
	if err != nil {
		return d.fail("sync_products", err)
	}
	req := jsonRequest(http.MethodGet, target).
		SetQuery("page", fmt.Sprint(page)).
		SetQuery("per_page", fmt.Sprint(pageSize))
	body, err := d.sendJSON(ctx, req)
	if err != nil {
		d.storeGone(ctx, err)
		return d.fail("sync_products", err)
	}
	if body.Items() == nil && !body.Has("data") {
		return d.fail("sync_products", d.schemaError("missing data array", body.JSON()))
	}

	defaults := mapping.DefaultsFromPolicy(d.cfg.policy)
	items := mapping.ExtractList(body)
	products := make([]integration.CanonicalProduct, 0, len(items))
	for _, item := range items {
		products = append(products, mapping.MapProduct(item, kargoProductFields, defaults))
	}
	return pageResult(products, page, pageSize, body.Int(0, "meta.total", "total"))
}

// SyncOrder creates a shipment for the order. Unpaid orders are sent as cash
// on delivery.
func (d *KargoDriver) SyncOrder(ctx context.Context, order integration.CanonicalOrder) integration.OperationResult {
	if err := mapping.ValidateOrder(order); err != nil {
		return d.fail("sync_order", err)
	}

	target, err := d.storeURL(ctx, "shipments")
	if err != nil {
		return d.fail("sync_order", err)
	}
	req, err := d.newJSON(http.MethodPost, target, d.buildShipment(order))
	if err != nil {
		return d.fail("sync_order", err)
	}
	body, err := d.sendJSON(ctx, req)
	if err != nil {
		d.storeGone(ctx, err)
		return d.fail("sync_order", err)
	}
	if body.Has("success") && !body.Bool(true, "success") {
		return d.fail("sync_order", rejected(d.provider, body.String("code"), body.String("message", "error")))
	}

	tracking := body.String("data.tracking_number", "tracking_number")
	if tracking == "" {
		return d.fail("sync_order", d.schemaError("shipment without tracking number", body.JSON()))
	}
	return integration.Succeeded("shipment created", map[string]any{
		"order_number":    order.Number,
		"shipment_id":     body.String("data.id", "id"),
		"tracking_number": tracking,
		"barcode":         body.String("data.barcode", "barcode"),
	})
}

func (d *KargoDriver) buildShipment(order integration.CanonicalOrder) kargoShipment {
	policy := d.cfg.policy
	lines := integration.OrderInvoiceLines(order, policy)
	_, totals := integration.SummarizeLines(lines)

	items := make([]kargoPackageItem, 0, len(order.Lines))
	for i, l := range order.Lines {
		items = append(items, kargoPackageItem{
			SKU:      mapping.LineSKU(order, i, policy),
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    integration.FormatAmount(l.UnitPrice),
		})
	}

	addr := order.ShippingAddress
	if addr.IsZero() {
		addr = order.InvoiceAddress()
	}
	country := addr.Country
	if country == "" {
		country = policy.Country
	}

	s := kargoShipment{
		ReferenceNo:  order.Number,
		CargoCompany: order.Cargo.Provider,
		Receiver: kargoReceiver{
			Name:     order.Customer.Name,
			Phone:    mapping.FallbackPhone(order.Customer.Phone, policy),
			Email:    order.Customer.Email,
			Address:  addr.Line,
			District: addr.District,
			City:     addr.City,
			Country:  country,
			PostCode: addr.PostalCode,
		},
		Packages:      items,
		DeclaredValue: integration.FormatAmount(totals.Payable),
		Currency:      order.CurrencyOrDefault(),
	}
	if !order.IsPaid() {
		s.CashOnDelivery = s.DeclaredValue
	}
	return s
}

// CreateInvoice is not offered by Kargo
func (d *KargoDriver) CreateInvoice(ctx context.Context, payload integration.InvoicePayload) integration.OperationResult {
	return d.unsupported("create_invoice")
}

func (d *KargoDriver) shipmentURL(trackingNumber, suffix string) string {
	return d.config.URL("/shipments/" + url.PathEscape(trackingNumber) + suffix)
}

func requireTracking(trackingNumber string) error {
	if strings.TrimSpace(trackingNumber) == "" {
		return integration.NewValidationError("tracking_number", "tracking number is required")
	}
	return nil
}

// CancelShipment cancels a shipment that has not been picked up yet
func (d *KargoDriver) CancelShipment(ctx context.Context, trackingNumber string) integration.OperationResult {
	if err := requireTracking(trackingNumber); err != nil {
		return d.fail("cancel_shipment", err)
	}
	body, err := d.sendJSON(ctx, jsonRequest(http.MethodDelete, d.shipmentURL(trackingNumber, "")))
	if err != nil {
		return d.fail("cancel_shipment", err)
	}
	if body.Has("success") && !body.Bool(true, "success") {
		return d.fail("cancel_shipment", rejected(d.provider, body.String("code"), body.String("message", "error")))
	}
	return integration.Succeeded("shipment cancelled", map[string]any{
		"tracking_number": trackingNumber,
		"status":          body.StringOr("cancelled", "data.status", "status"),
	})
}

// TrackShipment returns the current status and the movement history
func (d *KargoDriver) TrackShipment(ctx context.Context, trackingNumber string) integration.OperationResult {
	if err := requireTracking(trackingNumber); err != nil {
		return d.fail("track_shipment", err)
	}
	body, err := d.sendJSON(ctx, jsonRequest(http.MethodGet, d.shipmentURL(trackingNumber, "/tracking")))
	if err != nil {
		return d.fail("track_shipment", err)
	}
	if !body.Has("data") && !body.Has("status") {
		return d.fail("track_shipment", d.schemaError("missing tracking status", body.JSON()))
	}

	raw := body.List("data.events", "events")
	events := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		events = append(events, map[string]any{
			"time":        e.String("date", "time", "created_at"),
			"status":      e.String("status"),
			"location":    e.String("location", "branch"),
			"description": e.String("description", "message"),
		})
	}
	return integration.Succeeded("shipment tracked", map[string]any{
		"tracking_number": trackingNumber,
		"status":          body.String("data.status", "status"),
		"delivered":       body.Bool(false, "data.delivered", "delivered"),
		"events":          events,
	})
}

// GetLabel returns the shipment label as base64. The API answers either
// with the document itself or with a JSON envelope around it.
func (d *KargoDriver) GetLabel(ctx context.Context, trackingNumber string) integration.OperationResult {
	if err := requireTracking(trackingNumber); err != nil {
		return d.fail("get_label", err)
	}
	req := transport.NewRequest(http.MethodGet, d.shipmentURL(trackingNumber, "/label")).
		SetHeader("Accept", "application/pdf, application/json")
	resp, err := d.send(ctx, req)
	if err != nil {
		return d.fail("get_label", err)
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return d.fail("get_label", d.schemaError("empty label document", resp.Body))
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "json") {
		format := "pdf"
		if strings.HasPrefix(contentType, "image/") {
			format = strings.TrimPrefix(strings.SplitN(contentType, ";", 2)[0], "image/")
		}
		return labelResult(trackingNumber, format, base64.StdEncoding.EncodeToString(resp.Body))
	}

	body, err := d.decode(resp.Body)
	if err != nil {
		return d.fail("get_label", err)
	}
	label := body.String("data.label", "label")
	if label == "" {
		return d.fail("get_label", d.schemaError("missing label", resp.Body))
	}
	return labelResult(trackingNumber, body.StringOr("pdf", "data.format", "format"), label)
}

func labelResult(trackingNumber, format, label string) integration.OperationResult {
	return integration.Succeeded("label fetched", map[string]any{
		"tracking_number": trackingNumber,
		"format":          format,
		"label":           label,
	})
}

var (
	_ integration.Driver          = (*KargoDriver)(nil)
	_ integration.ShipmentTracker = (*KargoDriver)(nil)
)
