package ubl

import (
	"encoding/xml"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// writer wraps xml.Encoder with a sticky error so sections can be emitted
// without checking every token
type writer struct {
	enc      *xml.Encoder
	currency string
	err      error
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func (w *writer) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

func (w *writer) start(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *writer) end(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *writer) text(name, value string, attrs ...xml.Attr) {
	w.start(name, attrs...)
	w.token(xml.CharData(value))
	w.end(name)
}

// optional emits the element only when value is set
func (w *writer) optional(name, value string) {
	if value != "" {
		w.text(name, value)
	}
}

// amount emits a two-decimal monetary value tagged with the currency
func (w *writer) amount(name string, d decimal.Decimal) {
	w.text(name, integration.FormatAmount(d), attr("currencyID", w.currency))
}
