package erp

import "github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"

// sentosOrder is the order body accepted by POST /orders
type sentosOrder struct {
	OrderCode       string            `json:"order_code"`
	OrderDate       string            `json:"order_date"`
	Source          string            `json:"source"`
	Status          string            `json:"status"`
	Currency        string            `json:"currency"`
	Customer        sentosCustomer    `json:"customer"`
	InvoiceAddress  sentosAddress     `json:"invoice_address"`
	ShippingAddress sentosAddress     `json:"shipping_address"`
	CargoCompany    string            `json:"cargo_company,omitempty"`
	CargoTracking   string            `json:"cargo_tracking_number,omitempty"`
	ShippingTotal   string            `json:"shipping_total"`
	Total           string            `json:"total"`
	Lines           []sentosOrderLine `json:"lines"`
}

type sentosCustomer struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone"`
	TaxNumber string `json:"tax_number"`
	TaxOffice string `json:"tax_office,omitempty"`
}

type sentosAddress struct {
	Address  string `json:"address"`
	District string `json:"district,omitempty"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

type sentosOrderLine struct {
	SKU      string `json:"sku"`
	Barcode  string `json:"barcode,omitempty"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price"`
	VATRate  string `json:"vat_rate"`
}

// sentosProductFields maps the product record; variant keys override them
var sentosProductFields = mapping.ProductFields{
	ID:           []string{"id"},
	SKU:          []string{"sku", "stock_code"},
	Name:         []string{"name"},
	Description:  []string{"description"},
	Price:        []string{"sale_price", "price"},
	Cost:         []string{"purchase_price"},
	Stock:        []string{"stock"},
	VATRate:      []string{"vat_rate"},
	Barcode:      []string{"barcode"},
	CategoryID:   []string{"category_id"},
	CategoryName: []string{"category_name", "category"},
	Brand:        []string{"brand"},
	Images:       []string{"images"},
}
