// Package ubl renders an InvoicePayload as a UBL-TR 2.1 e-Archive invoice.
// The schema is sequence-ordered, so elements are emitted token by token in
// a fixed order rather than through struct marshalling.
package ubl

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Namespaces of the UBL 2.1 invoice document
const (
	NamespaceInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NamespaceCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NamespaceCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NamespaceEXT     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NamespaceDS      = "http://www.w3.org/2000/09/xmldsig#"
)

const (
	ublVersion      = "2.1"
	customizationID = "TR1.2"
	taxSchemeName   = "KDV"
	taxTypeCode     = "0015"
	internetSaleDoc = "INTERNET_SATIS"
)

// Builder emits UBL invoices
type Builder struct {
	indent bool
}

// Option configures a Builder
type Option func(*Builder)

// WithIndent pretty-prints the document
func WithIndent() Option {
	return func(b *Builder) {
		b.indent = true
	}
}

// NewBuilder creates a Builder
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates p and renders it. Validation failures are
// *integration.ValidationError values naming the offending field.
func (b *Builder) Build(p integration.InvoicePayload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	w := &writer{enc: xml.NewEncoder(&buf), currency: p.Currency}
	if b.indent {
		w.enc.Indent("", "  ")
	}
	if w.currency == "" {
		w.currency = "TRY"
	}

	w.start("Invoice",
		attr("xmlns", NamespaceInvoice),
		attr("xmlns:cac", NamespaceCAC),
		attr("xmlns:cbc", NamespaceCBC),
		attr("xmlns:ext", NamespaceEXT),
		attr("xmlns:ds", NamespaceDS),
	)

	w.extensions()
	w.header(p)
	if p.InternetSale != nil {
		w.internetSale(*p.InternetSale)
	}
	w.signature(p)
	w.party("cac:AccountingSupplierParty", p.Supplier)
	w.party("cac:AccountingCustomerParty", p.Customer)
	if p.Carrier != nil {
		w.delivery(*p.Carrier)
	}
	w.taxTotal(p.Totals.Tax, p.TaxSubtotals)
	w.monetaryTotal(p.Totals)
	for _, line := range p.Lines {
		w.invoiceLine(line)
	}

	w.end("Invoice")
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, fmt.Errorf("ubl: failed to encode invoice %s: %w", p.Number, w.err)
	}
	return buf.Bytes(), nil
}

// Build renders p with a default Builder
func Build(p integration.InvoicePayload) ([]byte, error) {
	return NewBuilder().Build(p)
}

// ---------------------------------------------------------------------------
// document sections
// ---------------------------------------------------------------------------

func (w *writer) extensions() {
	w.start("ext:UBLExtensions")
	w.start("ext:UBLExtension")
	w.start("ext:ExtensionContent")
	w.end("ext:ExtensionContent")
	w.end("ext:UBLExtension")
	w.end("ext:UBLExtensions")
}

func (w *writer) header(p integration.InvoicePayload) {
	w.text("cbc:UBLVersionID", ublVersion)
	w.text("cbc:CustomizationID", customizationID)
	w.text("cbc:ProfileID", p.ProfileID)
	w.text("cbc:ID", p.Number)
	w.text("cbc:CopyIndicator", "false")
	w.text("cbc:UUID", p.UUID)
	w.text("cbc:IssueDate", p.IssueDate.Format(time.DateOnly))
	w.text("cbc:IssueTime", p.IssueDate.Format(time.TimeOnly))
	w.text("cbc:InvoiceTypeCode", p.TypeCode)
	for _, note := range p.Notes {
		w.text("cbc:Note", note)
	}
	w.text("cbc:DocumentCurrencyCode", w.currency)
	w.text("cbc:LineCountNumeric", strconv.Itoa(len(p.Lines)))
}

func (w *writer) internetSale(s integration.InternetSale) {
	w.start("cac:AdditionalDocumentReference")
	w.text("cbc:ID", s.OrderNumber)
	w.text("cbc:IssueDate", s.PaymentDate.Format(time.DateOnly))
	w.text("cbc:DocumentTypeCode", internetSaleDoc)
	w.text("cbc:DocumentType", s.PaymentMethod)
	w.text("cbc:DocumentDescription", s.Website)
	w.end("cac:AdditionalDocumentReference")
}

func (w *writer) signature(p integration.InvoicePayload) {
	scheme := schemeFor(p.Supplier)
	w.start("cac:Signature")
	w.text("cbc:ID", p.Supplier.TaxID, attr("schemeID", "VKN_TCKN"))
	w.start("cac:SignatoryParty")
	w.partyIdentification(scheme, p.Supplier.TaxID)
	w.end("cac:SignatoryParty")
	w.start("cac:DigitalSignatureAttachment")
	w.start("cac:ExternalReference")
	w.text("cbc:URI", "#Signature_"+p.Number)
	w.end("cac:ExternalReference")
	w.end("cac:DigitalSignatureAttachment")
	w.end("cac:Signature")
}

func (w *writer) party(wrapper string, party integration.Party) {
	w.start(wrapper)
	w.start("cac:Party")
	w.optional("cbc:WebsiteURI", party.Website)
	w.partyIdentification(schemeFor(party), party.TaxID)
	if party.Name != "" {
		w.start("cac:PartyName")
		w.text("cbc:Name", party.Name)
		w.end("cac:PartyName")
	}
	w.postalAddress(party.Address)
	if party.TaxOffice != "" {
		w.start("cac:PartyTaxScheme")
		w.start("cac:TaxScheme")
		w.text("cbc:Name", party.TaxOffice)
		w.end("cac:TaxScheme")
		w.end("cac:PartyTaxScheme")
	}
	if party.Phone != "" || party.Email != "" {
		w.start("cac:Contact")
		w.optional("cbc:Telephone", party.Phone)
		w.optional("cbc:ElectronicMail", party.Email)
		w.end("cac:Contact")
	}
	if party.IsPerson() && party.FirstName != "" {
		w.start("cac:Person")
		w.text("cbc:FirstName", party.FirstName)
		w.text("cbc:FamilyName", party.FamilyName)
		w.end("cac:Person")
	}
	w.end("cac:Party")
	w.end(wrapper)
}

func (w *writer) partyIdentification(scheme, id string) {
	w.start("cac:PartyIdentification")
	w.text("cbc:ID", id, attr("schemeID", scheme))
	w.end("cac:PartyIdentification")
}

func (w *writer) postalAddress(a integration.Address) {
	w.start("cac:PostalAddress")
	w.optional("cbc:StreetName", a.Line)
	w.optional("cbc:CitySubdivisionName", a.District)
	w.text("cbc:CityName", CityName(a.City))
	w.optional("cbc:PostalZone", a.PostalCode)
	w.start("cac:Country")
	w.text("cbc:Name", a.Country)
	w.end("cac:Country")
	w.end("cac:PostalAddress")
}

// CityName upper-cases a city the Turkish way ("izmir" -> "İZMİR")
func CityName(city string) string {
	return cases.Upper(language.Turkish).String(city)
}

func (w *writer) delivery(c integration.Carrier) {
	w.start("cac:Delivery")
	w.optional("cbc:TrackingID", c.TrackingNumber)
	w.start("cac:CarrierParty")
	if c.TaxID != "" {
		w.partyIdentification(schemeFor(integration.Party{TaxID: c.TaxID}), c.TaxID)
	}
	w.start("cac:PartyName")
	w.text("cbc:Name", c.Name)
	w.end("cac:PartyName")
	w.end("cac:CarrierParty")
	w.start("cac:Despatch")
	w.text("cbc:ActualDespatchDate", c.DespatchDate.Format(time.DateOnly))
	w.end("cac:Despatch")
	w.end("cac:Delivery")
}

func (w *writer) taxTotal(total decimal.Decimal, subtotals []integration.TaxSubtotal) {
	w.start("cac:TaxTotal")
	w.amount("cbc:TaxAmount", total)
	for _, st := range subtotals {
		w.taxSubtotal(st.Taxable, st.Amount, st.Rate)
	}
	w.end("cac:TaxTotal")
}

func (w *writer) taxSubtotal(taxable, amount, rate decimal.Decimal) {
	w.start("cac:TaxSubtotal")
	w.amount("cbc:TaxableAmount", taxable)
	w.amount("cbc:TaxAmount", amount)
	w.text("cbc:Percent", rate.String())
	w.start("cac:TaxCategory")
	w.start("cac:TaxScheme")
	w.text("cbc:Name", taxSchemeName)
	w.text("cbc:TaxTypeCode", taxTypeCode)
	w.end("cac:TaxScheme")
	w.end("cac:TaxCategory")
	w.end("cac:TaxSubtotal")
}

func (w *writer) monetaryTotal(t integration.InvoiceTotals) {
	w.start("cac:LegalMonetaryTotal")
	w.amount("cbc:LineExtensionAmount", t.LineExtension)
	w.amount("cbc:TaxExclusiveAmount", t.TaxExclusive)
	w.amount("cbc:TaxInclusiveAmount", t.TaxInclusive)
	w.amount("cbc:PayableAmount", t.Payable)
	w.end("cac:LegalMonetaryTotal")
}

func (w *writer) invoiceLine(l integration.InvoiceLine) {
	unit := l.UnitCode
	if unit == "" {
		unit = integration.DefaultUnitCode
	}
	w.start("cac:InvoiceLine")
	w.text("cbc:ID", strconv.Itoa(l.ID))
	w.text("cbc:InvoicedQuantity", strconv.FormatInt(l.Quantity, 10), attr("unitCode", unit))
	w.amount("cbc:LineExtensionAmount", l.LineExtension)

	w.start("cac:TaxTotal")
	w.amount("cbc:TaxAmount", l.TaxAmount)
	w.taxSubtotal(l.LineExtension, l.TaxAmount, l.VATRate)
	w.end("cac:TaxTotal")

	w.start("cac:Item")
	w.text("cbc:Name", l.Name)
	if l.SKU != "" {
		w.start("cac:SellersItemIdentification")
		w.text("cbc:ID", l.SKU)
		w.end("cac:SellersItemIdentification")
	}
	w.end("cac:Item")

	w.start("cac:Price")
	w.amount("cbc:PriceAmount", l.UnitPrice)
	w.end("cac:Price")
	w.end("cac:InvoiceLine")
}

func schemeFor(p integration.Party) string {
	if p.IsPerson() {
		return "TCKN"
	}
	return "VKN"
}
