package integration

import "github.com/shopspring/decimal"

// FallbackPolicy holds the placeholder values substituted when order or
// product data lacks a field a provider requires
type FallbackPolicy struct {
	VATRate       decimal.Decimal `json:"vat_rate"`
	Phone         string          `json:"phone"`
	ConsumerTaxID string          `json:"consumer_tax_id"`
	SKUPrefix     string          `json:"sku_prefix"`
	Country       string          `json:"country"`
}

// DefaultFallbackPolicy returns the marketplace defaults
func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		VATRate:       decimal.NewFromInt(20),
		Phone:         "05000000000",
		ConsumerTaxID: "11111111111",
		SKUPrefix:     "SKU",
		Country:       "Türkiye",
	}
}

// WithDefaults fills zero fields from DefaultFallbackPolicy
func (p FallbackPolicy) WithDefaults() FallbackPolicy {
	d := DefaultFallbackPolicy()
	if p.VATRate.IsZero() {
		p.VATRate = d.VATRate
	}
	if p.Phone == "" {
		p.Phone = d.Phone
	}
	if p.ConsumerTaxID == "" {
		p.ConsumerTaxID = d.ConsumerTaxID
	}
	if p.SKUPrefix == "" {
		p.SKUPrefix = d.SKUPrefix
	}
	if p.Country == "" {
		p.Country = d.Country
	}
	return p
}
