package erp

import "github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"

// bizimHesapInvoice is the addinvoice request body
type bizimHesapInvoice struct {
	FirmID      string                    `json:"firmId"`
	InvoiceNo   string                    `json:"invoiceNo"`
	InvoiceType int                       `json:"invoiceType"`
	Note        string                    `json:"note,omitempty"`
	Dates       bizimHesapDates           `json:"dates"`
	Customer    bizimHesapCustomer        `json:"customer"`
	Amounts     bizimHesapAmounts         `json:"amounts"`
	Details     []bizimHesapInvoiceDetail `json:"details"`
}

type bizimHesapDates struct {
	InvoiceDate string `json:"invoiceDate"`
	DueDate     string `json:"dueDate"`
}

type bizimHesapCustomer struct {
	CustomerID string `json:"customerId"`
	Title      string `json:"title"`
	TaxOffice  string `json:"taxOffice,omitempty"`
	TaxNo      string `json:"taxNo"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

type bizimHesapAmounts struct {
	Currency string `json:"currency"`
	Gross    string `json:"gross"`
	Discount string `json:"discount"`
	Net      string `json:"net"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

type bizimHesapInvoiceDetail struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Barcode     string `json:"barcode,omitempty"`
	TaxRate     string `json:"taxRate"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	GrossPrice  string `json:"grossPrice"`
	Discount    string `json:"discount"`
	Net         string `json:"net"`
	Tax         string `json:"tax"`
	Total       string `json:"total"`
}

// bizimHesapProductFields maps B2B product records
var bizimHesapProductFields = mapping.ProductFields{
	ID:          []string{"id", "productId", "guid"},
	SKU:         []string{"code", "productCode", "sku"},
	Name:        []string{"title", "name", "productName"},
	Description: []string{"description", "note"},
	Price:       []string{"price", "salePrice"},
	Cost:        []string{"buyingPrice", "purchasePrice"},
	Stock:       []string{"quantity", "stock"},
	VATRate:     []string{"tax", "taxRate", "vat"},
	Barcode:     []string{"barcode"},
	CategoryID:  []string{"categoryId", "category_id"},
	Brand:       []string{"brand"},
	Images:      []string{"photo", "images", "imageUrl"},
}
