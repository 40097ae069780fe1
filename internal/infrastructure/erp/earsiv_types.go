package erp

import (
	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/infrastructure/transport"
)

// SOAP operations of the e-Archive service
const (
	earsivOpEcho   = "echo"
	earsivOpCreate = "faturaOlustur"
	earsivOpQuery  = "faturaSorgula"
	earsivOpCancel = "faturaIptal"
)

// earsivDocumentFormat marks belgeIcerigi as a UBL document
const earsivDocumentFormat = "UBL"

// earsivReply is the common part of every operation response
type earsivReply struct {
	Code string
	Text string
}

// parseEArsivReply reads resultCode and resultText with the narrow tag
// extractor. CDATA-wrapped values are returned unwrapped.
func parseEArsivReply(body []byte) (earsivReply, bool) {
	code, ok := transport.ExtractTag(body, "resultCode")
	if !ok {
		return earsivReply{}, false
	}
	text, _ := transport.ExtractTag(body, "resultText")
	return earsivReply{Code: code, Text: text}, true
}

func (r earsivReply) ok() bool {
	return r.Code == EArsivSuccessCode
}

// earsivInput is the JSON document carried in the <input> element
type earsivInput struct {
	TaxID         string `json:"vkn"`
	Branch        string `json:"sube"`
	Register      string `json:"kasa"`
	OperationID   string `json:"islemId,omitempty"`
	InvoiceUUID   string `json:"faturaUuid,omitempty"`
	InvoiceNumber string `json:"faturaNo,omitempty"`
	CancelDate    string `json:"iptalTarihi,omitempty"`
	// AssignNumber asks the service to number the invoice itself
	AssignNumber int `json:"numaraVerilsinMi"`
}
