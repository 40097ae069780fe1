package erp

import "github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/mapping"

// ---------------------------------------------------------------------------
// JSON:API request documents
// ---------------------------------------------------------------------------

// parasutDocument is the JSON:API top-level request body
type parasutDocument struct {
	Data parasutResource `json:"data"`
}

// parasutResource is a JSON:API resource object
type parasutResource struct {
	ID            string                         `json:"id,omitempty"`
	Type          string                         `json:"type"`
	Attributes    any                            `json:"attributes,omitempty"`
	Relationships map[string]parasutRelationship `json:"relationships,omitempty"`
}

// parasutRelationship holds a to-one or to-many linkage
type parasutRelationship struct {
	Data any `json:"data"`
}

// parasutRef is a resource identifier
type parasutRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// parasutContactAttributes describes a customer contact
type parasutContactAttributes struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	TaxNumber   string `json:"tax_number,omitempty"`
	TaxOffice   string `json:"tax_office,omitempty"`
	City        string `json:"city,omitempty"`
	District    string `json:"district,omitempty"`
	Address     string `json:"address,omitempty"`
	AccountType string `json:"account_type"`
	ContactType string `json:"contact_type"`
}

// parasutInvoiceAttributes describes a sales invoice
type parasutInvoiceAttributes struct {
	ItemType    string `json:"item_type"`
	Description string `json:"description,omitempty"`
	IssueDate   string `json:"issue_date"`
	DueDate     string `json:"due_date,omitempty"`
	Currency    string `json:"currency"`
	OrderNo     string `json:"order_no,omitempty"`
	OrderDate   string `json:"order_date,omitempty"`
	BillingAddr string `json:"billing_address,omitempty"`
	City        string `json:"city,omitempty"`
	District    string `json:"district,omitempty"`
	TaxNumber   string `json:"tax_number,omitempty"`
	TaxOffice   string `json:"tax_office,omitempty"`
}

// parasutDetailAttributes describes one invoice line
type parasutDetailAttributes struct {
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	VATRate     string `json:"vat_rate"`
	Description string `json:"description"`
}

// parasutInternetSale is the e-archive internet sale block
type parasutInternetSale struct {
	URL             string `json:"url"`
	PaymentType     string `json:"payment_type"`
	PaymentPlatform string `json:"payment_platform"`
	PaymentDate     string `json:"payment_date"`
}

// parasutEArchiveAttributes requests e-archive issuance of a sales invoice
type parasutEArchiveAttributes struct {
	Note         string               `json:"note,omitempty"`
	InternetSale *parasutInternetSale `json:"internet_sale,omitempty"`
}

// parasutProductFields maps JSON:API product resources
var parasutProductFields = mapping.ProductFields{
	ID:         []string{"id"},
	SKU:        []string{"attributes.code"},
	Name:       []string{"attributes.name"},
	Price:      []string{"attributes.list_price", "attributes.list_price_in_trl"},
	Cost:       []string{"attributes.buying_price", "attributes.buying_price_in_trl"},
	Stock:      []string{"attributes.stock_count", "attributes.initial_stock_count"},
	VATRate:    []string{"attributes.vat_rate"},
	Barcode:    []string{"attributes.barcode", "attributes.gtin"},
	CategoryID: []string{"relationships.category.data.id"},
	Images:     []string{"attributes.photo", "attributes.images"},
}
