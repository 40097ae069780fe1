package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Content types
const (
	ContentTypeJSON    = "application/json"
	ContentTypeJSONAPI = "application/vnd.api+json"
	ContentTypeForm    = "application/x-www-form-urlencoded"
	ContentTypeSOAP    = "text/xml; charset=utf-8"
)

// Request is a buffered, rebuildable HTTP request. The body is kept as bytes
// so the same request can be re-sent after re-authentication.
type Request struct {
	Method      string
	URL         string
	Header      http.Header
	Query       url.Values
	Body        []byte
	ContentType string
}

// NewRequest creates a body-less request
func NewRequest(method, rawURL string) *Request {
	return &Request{
		Method: method,
		URL:    rawURL,
		Header: make(http.Header),
		Query:  make(url.Values),
	}
}

// NewJSONRequest creates a request with a JSON-encoded body. A nil payload
// produces a body-less request with JSON accept headers.
func NewJSONRequest(method, rawURL string, payload any) (*Request, error) {
	r := NewRequest(method, rawURL)
	r.Header.Set("Accept", ContentTypeJSON)
	if payload == nil {
		return r, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to encode json body: %w", err)
	}
	r.Body = body
	r.ContentType = ContentTypeJSON
	return r, nil
}

// NewFormRequest creates a url-encoded form request
func NewFormRequest(method, rawURL string, form url.Values) *Request {
	r := NewRequest(method, rawURL)
	r.Header.Set("Accept", ContentTypeJSON)
	r.Body = []byte(form.Encode())
	r.ContentType = ContentTypeForm
	return r
}

// NewMultipartRequest creates a multipart/form-data request from plain fields.
// Fields are written in key order so the body is deterministic.
func NewMultipartRequest(method, rawURL string, fields map[string]string) (*Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("transport: failed to write multipart field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("transport: failed to close multipart body: %w", err)
	}

	r := NewRequest(method, rawURL)
	r.Header.Set("Accept", ContentTypeJSON)
	r.Body = buf.Bytes()
	r.ContentType = w.FormDataContentType()
	return r, nil
}

// NewSOAPRequest creates a SOAP 1.1 POST carrying the given envelope
func NewSOAPRequest(rawURL, action string, envelope []byte) *Request {
	r := NewRequest(http.MethodPost, rawURL)
	r.Body = envelope
	r.ContentType = ContentTypeSOAP
	if action != "" {
		r.Header.Set("SOAPAction", `"`+action+`"`)
	}
	return r
}

// SetHeader sets a header and returns the request for chaining
func (r *Request) SetHeader(key, value string) *Request {
	r.Header.Set(key, value)
	return r
}

// SetQuery sets a query parameter and returns the request for chaining
func (r *Request) SetQuery(key, value string) *Request {
	r.Query.Set(key, value)
	return r
}

// Clone returns a deep copy; auth strategies decorate clones so a retried
// request never carries a stale credential header
func (r *Request) Clone() *Request {
	c := *r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	c.Query = make(url.Values, len(r.Query))
	for k, v := range r.Query {
		c.Query[k] = append([]string(nil), v...)
	}
	c.Body = append([]byte(nil), r.Body...)
	return &c
}

func (r *Request) build(ctx context.Context) (*http.Request, error) {
	target := r.URL
	if len(r.Query) > 0 {
		u, err := url.Parse(r.URL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body *bytes.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, strings.ToUpper(method), target, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, strings.ToUpper(method), target, nil)
	}
	if err != nil {
		return nil, err
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	return req, nil
}
