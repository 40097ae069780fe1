package erp

import "github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"

// kargoShipment is the body of POST /stores/{id}/shipments
type kargoShipment struct {
	ReferenceNo   string             `json:"reference_no"`
	CargoCompany  string             `json:"cargo_company,omitempty"`
	Receiver      kargoReceiver      `json:"receiver"`
	Packages      []kargoPackageItem `json:"items"`
	DeclaredValue string             `json:"declared_value"`
	Currency      string             `json:"currency"`
	// CashOnDelivery is the amount collected at the door for unpaid orders
	CashOnDelivery string `json:"cod_amount,omitempty"`
	Note           string `json:"note,omitempty"`
}

type kargoReceiver struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address"`
	District string `json:"district,omitempty"`
	City     string `json:"city"`
	Country  string `json:"country"`
	PostCode string `json:"post_code,omitempty"`
}

type kargoPackageItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price"`
}

var kargoProductFields = mapping.ProductFields{
	ID:           []string{"id"},
	SKU:          []string{"sku", "stock_code"},
	Name:         []string{"name", "title"},
	Description:  []string{"description"},
	Price:        []string{"price", "sale_price"},
	Cost:         []string{"cost"},
	Stock:        []string{"stock", "quantity"},
	VATRate:      []string{"vat_rate", "tax_rate"},
	Barcode:      []string{"barcode"},
	CategoryID:   []string{"category.id", "category_id"},
	CategoryName: []string{"category.name", "category_name"},
	Brand:        []string{"brand.name", "brand"},
	Images:       []string{"images"},
}
