package integration

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice profile and type codes used by the e-Archive scheme
const (
	ProfileEArchive    = "EARSIVFATURA"
	InvoiceTypeSales   = "SATIS"
	DefaultUnitCode    = "C62"
	shippingLineName   = "Kargo Bedeli"
	internetSaleMethod = "KREDIKARTI/BANKAKARTI"
)

// Party is a supplier or customer on an invoice
type Party struct {
	Name       string  `json:"name"`
	FirstName  string  `json:"first_name,omitempty"`
	FamilyName string  `json:"family_name,omitempty"`
	TaxID      string  `json:"tax_id"`
	TaxOffice  string  `json:"tax_office,omitempty"`
	Email      string  `json:"email,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Website    string  `json:"website,omitempty"`
	Address    Address `json:"address"`
}

// IsPerson reports whether the tax id is an 11-digit personal identity number
func (p Party) IsPerson() bool {
	return len(p.TaxID) == 11
}

// InvoiceLine is a single line of an invoice with its computed amounts
type InvoiceLine struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku,omitempty"`
	Barcode       string          `json:"barcode,omitempty"`
	Quantity      int64           `json:"quantity"`
	UnitCode      string          `json:"unit_code"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	LineExtension decimal.Decimal `json:"line_extension"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
}

// TaxSubtotal aggregates taxable amount and tax per VAT rate
type TaxSubtotal struct {
	Rate    decimal.Decimal `json:"rate"`
	Taxable decimal.Decimal `json:"taxable"`
	Amount  decimal.Decimal `json:"amount"`
}

// InvoiceTotals are the monetary totals of an invoice
type InvoiceTotals struct {
	LineExtension decimal.Decimal `json:"line_extension"`
	TaxExclusive  decimal.Decimal `json:"tax_exclusive"`
	TaxInclusive  decimal.Decimal `json:"tax_inclusive"`
	Tax           decimal.Decimal `json:"tax"`
	Payable       decimal.Decimal `json:"payable"`
}

// InternetSale carries the extra references required for online sales
type InternetSale struct {
	OrderNumber   string    `json:"order_number"`
	PaymentMethod string    `json:"payment_method"`
	PaymentDate   time.Time `json:"payment_date"`
	Website       string    `json:"website"`
}

// Carrier describes the shipment delivering the invoiced goods
type Carrier struct {
	Name           string    `json:"name"`
	TaxID          string    `json:"tax_id,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	DespatchDate   time.Time `json:"despatch_date"`
}

// InvoicePayload is the provider-independent description of a fiscal
// document. It is built fresh per request and never persisted.
type InvoicePayload struct {
	Number       string         `json:"number"`
	UUID         string         `json:"uuid"`
	IssueDate    time.Time      `json:"issue_date"`
	ProfileID    string         `json:"profile_id"`
	TypeCode     string         `json:"type_code"`
	Currency     string         `json:"currency"`
	OrderID      string         `json:"order_id,omitempty"`
	Supplier     Party          `json:"supplier"`
	Customer     Party          `json:"customer"`
	Lines        []InvoiceLine  `json:"lines"`
	TaxSubtotals []TaxSubtotal  `json:"tax_subtotals"`
	Totals       InvoiceTotals  `json:"totals"`
	InternetSale *InternetSale  `json:"internet_sale,omitempty"`
	Carrier      *Carrier       `json:"carrier,omitempty"`
	Notes        []string       `json:"notes,omitempty"`
}

// Validate checks the fields every invoice backend requires
func (p InvoicePayload) Validate() error {
	switch {
	case strings.TrimSpace(p.Number) == "":
		return NewValidationError("number", "invoice number is required")
	case strings.TrimSpace(p.UUID) == "":
		return NewValidationError("uuid", "invoice uuid is required")
	case strings.TrimSpace(p.Supplier.TaxID) == "":
		return NewValidationError("supplier.tax_id", "supplier tax id is required")
	case len(p.Lines) == 0:
		return NewValidationError("lines", "invoice must have at least one line")
	}
	return nil
}

// InvoiceOptions are the caller-supplied inputs of NewInvoicePayload
type InvoiceOptions struct {
	Number    string
	UUID      string
	IssueDate time.Time
	ProfileID string
	Supplier  Party
	// Website enables the internet-sale reference when set
	Website string
	Notes   []string
	Policy  FallbackPolicy
}

// NewInvoicePayload derives an invoice from an order. Line amounts are
// quantity * unit price and tax is computed per line, both rounded to two
// decimals; totals are sums of the rounded line values.
func NewInvoicePayload(order CanonicalOrder, opts InvoiceOptions) (InvoicePayload, error) {
	policy := opts.Policy.WithDefaults()

	p := InvoicePayload{
		Number:    strings.TrimSpace(opts.Number),
		UUID:      opts.UUID,
		IssueDate: opts.IssueDate,
		ProfileID: opts.ProfileID,
		TypeCode:  InvoiceTypeSales,
		Currency:  order.CurrencyOrDefault(),
		OrderID:   order.ID,
		Supplier:  opts.Supplier,
		Customer:  customerParty(order, policy),
		Notes:     opts.Notes,
	}
	if p.UUID == "" {
		p.UUID = uuid.New().String()
	}
	if p.IssueDate.IsZero() {
		p.IssueDate = time.Now()
	}
	if p.ProfileID == "" {
		p.ProfileID = ProfileEArchive
	}

	p.Lines = OrderInvoiceLines(order, policy)
	p.TaxSubtotals, p.Totals = summarize(p.Lines)

	if opts.Website != "" {
		p.InternetSale = &InternetSale{
			OrderNumber:   order.Number,
			PaymentMethod: paymentMethodCode(order.PaymentMethod),
			PaymentDate:   order.CreatedAt,
			Website:       opts.Website,
		}
	}
	if order.Cargo.Provider != "" {
		p.Carrier = &Carrier{
			Name:           order.Cargo.Provider,
			TaxID:          order.Cargo.TaxID,
			TrackingNumber: order.Cargo.TrackingNumber,
			DespatchDate:   p.IssueDate,
		}
	}

	if err := p.Validate(); err != nil {
		return InvoicePayload{}, err
	}
	return p, nil
}

// OrderInvoiceLines prices the order lines, plus a shipping line when the
// order carries a shipping fee. Unit prices are tax exclusive. A line without
// a VAT rate, or with a negative one, gets the policy rate; an explicit 0 is kept.
func OrderInvoiceLines(order CanonicalOrder, policy FallbackPolicy) []InvoiceLine {
	policy = policy.WithDefaults()
	lines := make([]InvoiceLine, 0, len(order.Lines)+1)
	for i, ol := range order.Lines {
		vat := policy.VATRate
		if ol.VATRate.Valid && !ol.VATRate.Decimal.IsNegative() {
			vat = ol.VATRate.Decimal
		}
		lines = append(lines, newInvoiceLine(i+1, ol.Name, ol.SKU, ol.Barcode, ol.Quantity, ol.UnitPrice, vat))
	}
	if order.Totals.Shipping.IsPositive() {
		lines = append(lines, newInvoiceLine(len(lines)+1, shippingLineName, "", "", 1, order.Totals.Shipping, policy.VATRate))
	}
	return lines
}

// SummarizeLines groups line amounts per VAT rate and computes the totals
func SummarizeLines(lines []InvoiceLine) ([]TaxSubtotal, InvoiceTotals) {
	return summarize(lines)
}

func newInvoiceLine(id int, name, sku, barcode string, qty int64, price, vat decimal.Decimal) InvoiceLine {
	ext := RoundAmount(price.Mul(decimal.NewFromInt(qty)))
	return InvoiceLine{
		ID:            id,
		Name:          name,
		SKU:           sku,
		Barcode:       barcode,
		Quantity:      qty,
		UnitCode:      DefaultUnitCode,
		UnitPrice:     price,
		VATRate:       vat,
		LineExtension: ext,
		TaxAmount:     TaxOf(ext, vat),
	}
}

func summarize(lines []InvoiceLine) ([]TaxSubtotal, InvoiceTotals) {
	byRate := make(map[string]*TaxSubtotal)
	var totals InvoiceTotals
	for _, l := range lines {
		totals.LineExtension = totals.LineExtension.Add(l.LineExtension)
		totals.Tax = totals.Tax.Add(l.TaxAmount)

		key := l.VATRate.String()
		st, ok := byRate[key]
		if !ok {
			st = &TaxSubtotal{Rate: l.VATRate}
			byRate[key] = st
		}
		st.Taxable = st.Taxable.Add(l.LineExtension)
		st.Amount = st.Amount.Add(l.TaxAmount)
	}
	totals.TaxExclusive = totals.LineExtension
	totals.TaxInclusive = totals.LineExtension.Add(totals.Tax)
	totals.Payable = totals.TaxInclusive

	subtotals := make([]TaxSubtotal, 0, len(byRate))
	for _, st := range byRate {
		subtotals = append(subtotals, *st)
	}
	sort.Slice(subtotals, func(i, j int) bool {
		return subtotals[i].Rate.LessThan(subtotals[j].Rate)
	})
	return subtotals, totals
}

func customerParty(order CanonicalOrder, policy FallbackPolicy) Party {
	c := order.Customer
	addr := order.InvoiceAddress()
	if addr.Country == "" {
		addr.Country = policy.Country
	}
	taxID := strings.TrimSpace(c.TaxID)
	if taxID == "" {
		taxID = policy.ConsumerTaxID
	}
	phone := c.Phone
	if phone == "" {
		phone = policy.Phone
	}
	party := Party{
		Name:      c.Name,
		TaxID:     taxID,
		TaxOffice: c.TaxOffice,
		Email:     c.Email,
		Phone:     phone,
		Address:   addr,
	}
	if party.IsPerson() {
		party.FirstName, party.FamilyName = SplitName(c.Name)
	}
	return party
}

func paymentMethodCode(method string) string {
	switch strings.ToLower(method) {
	case "eft", "havale", "bank_transfer":
		return "EFT/HAVALE"
	case "cash_on_delivery", "kapida_odeme":
		return "KAPIDAODEME"
	default:
		return internetSaleMethod
	}
}

// SplitName splits a full name into first and family parts. The family name
// is the last word; a single word yields an empty family name.
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
