package erp

import "github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"

// entegraOrderRequest wraps orders pushed to /order/
type entegraOrderRequest struct {
	List []entegraOrder `json:"list"`
}

// entegraOrder is one marketplace order in Entegra's import format
type entegraOrder struct {
	OrderNumber     string             `json:"order_number"`
	OrderDate       string             `json:"order_date"`
	FirstName       string             `json:"firstname"`
	LastName        string             `json:"lastname"`
	Email           string             `json:"email"`
	Phone           string             `json:"phone"`
	TaxNumber       string             `json:"tax_number"`
	TaxOffice       string             `json:"tax_office,omitempty"`
	InvoiceAddress  string             `json:"invoice_address"`
	InvoiceCity     string             `json:"invoice_city"`
	InvoiceDistrict string             `json:"invoice_district,omitempty"`
	ShipAddress     string             `json:"ship_address"`
	ShipCity        string             `json:"ship_city"`
	ShipDistrict    string             `json:"ship_district,omitempty"`
	Currency        string             `json:"currency"`
	PaymentType     string             `json:"payment_type,omitempty"`
	CargoCompany    string             `json:"cargo_company,omitempty"`
	CargoCode       string             `json:"cargo_code,omitempty"`
	Shipping        string             `json:"shipping_price"`
	Total           string             `json:"order_total"`
	Items           []entegraOrderItem `json:"order_product"`
}

// entegraOrderItem is one order line
type entegraOrderItem struct {
	ProductCode string `json:"productCode"`
	Barcode     string `json:"barcode,omitempty"`
	Name        string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	Price       string `json:"price"`
	Tax         string `json:"tax"`
}

// entegraProductFields maps productList items
var entegraProductFields = mapping.ProductFields{
	ID:           []string{"id", "product_id"},
	SKU:          []string{"productCode", "product_code", "stock_code"},
	Name:         []string{"name", "product_name"},
	Description:  []string{"description"},
	Price:        []string{"price1", "price", "sale_price"},
	Cost:         []string{"buying_price", "price2"},
	Stock:        []string{"quantity", "stock"},
	VATRate:      []string{"kdv", "kdv_id", "tax"},
	Barcode:      []string{"barcode"},
	CategoryID:   []string{"category_id"},
	CategoryName: []string{"category", "category_name"},
	Brand:        []string{"brand", "brand_name"},
	Images:       []string{"pictures", "images"},
}
