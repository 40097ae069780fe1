package integration

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// CanonicalProduct
// ---------------------------------------------------------------------------

// Category is a provider category reference resolved to a display name
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// CanonicalProduct is the provider-agnostic product shape produced by every
// driver's catalog sync. SKU is the join key against the marketplace catalog.
type CanonicalProduct struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       int64           `json:"stock"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	Barcode     string          `json:"barcode,omitempty"`
	Category    Category        `json:"category"`
	Brand       string          `json:"brand,omitempty"`
	Images      []string        `json:"images"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Normalize clamps numeric fields to non-negative values and guarantees a
// non-nil image slice
func (p *CanonicalProduct) Normalize() {
	if p.Price.IsNegative() {
		p.Price = decimal.Zero
	}
	if p.Cost.IsNegative() {
		p.Cost = decimal.Zero
	}
	if p.VATRate.IsNegative() {
		p.VATRate = decimal.Zero
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

// ---------------------------------------------------------------------------
// CanonicalOrder
// ---------------------------------------------------------------------------

// Customer is the buyer of a marketplace order
type Customer struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty"`
	TaxID     string `json:"tax_id,omitempty"`
	TaxOffice string `json:"tax_office,omitempty"`
}

// Address is a postal address
type Address struct {
	Line       string `json:"line"`
	District   string `json:"district,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether no address field is set
func (a Address) IsZero() bool {
	return a == Address{}
}

// OrderLine is a single line of a marketplace order. VATRate is invalid
// (JSON null or absent) when the order did not state a rate; a valid zero is
// a real exempt rate.
type OrderLine struct {
	ProductID string              `json:"product_id"`
	SKU       string              `json:"sku"`
	Name      string              `json:"name" validate:"required"`
	Barcode   string              `json:"barcode,omitempty"`
	Quantity  int64               `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal     `json:"unit_price"`
	VATRate   decimal.NullDecimal `json:"vat_rate"`
}

// OrderTotals are the monetary totals of an order
type OrderTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Grand    decimal.Decimal `json:"grand"`
}

// CargoInfo describes the shipment attached to an order
type CargoInfo struct {
	Provider       string `json:"provider,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	TaxID          string `json:"tax_id,omitempty"`
}

// Payment status values
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// CanonicalOrder is the read-only order model handed to drivers. Drivers never
// mutate it.
type CanonicalOrder struct {
	ID              string      `json:"id" validate:"required"`
	Number          string      `json:"number" validate:"required"`
	Customer        Customer    `json:"customer"`
	ShippingAddress Address     `json:"shipping_address"`
	BillingAddress  Address     `json:"billing_address"`
	Lines           []OrderLine `json:"lines" validate:"required,min=1,dive"`
	Totals          OrderTotals `json:"totals"`
	PaymentStatus   string      `json:"payment_status,omitempty"`
	PaymentMethod   string      `json:"payment_method,omitempty"`
	Cargo           CargoInfo   `json:"cargo"`
	Currency        string      `json:"currency,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// InvoiceAddress returns the billing address, falling back to shipping
func (o CanonicalOrder) InvoiceAddress() Address {
	if !o.BillingAddress.IsZero() {
		return o.BillingAddress
	}
	return o.ShippingAddress
}

// CurrencyOrDefault returns the order currency or TRY
func (o CanonicalOrder) CurrencyOrDefault() string {
	if o.Currency == "" {
		return "TRY"
	}
	return o.Currency
}

// IsPaid reports whether the order payment has been captured
func (o CanonicalOrder) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}
