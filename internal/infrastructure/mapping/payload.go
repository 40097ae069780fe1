// Package mapping translates between provider wire shapes and the canonical
// product and order models. Every accessor applies an explicit default so a
// missing or malformed field never aborts a sync.
package mapping

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Payload is a read-only view over decoded JSON. Keys are dotted paths
// ("data.attributes.name"); numeric segments index into arrays.
type Payload struct {
	data any
}

// Decode parses raw JSON keeping numbers as json.Number
func Decode(raw []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Payload{}, err
	}
	return Payload{data: v}, nil
}

// NewPayload wraps an already decoded value
func NewPayload(v any) Payload {
	return Payload{data: v}
}

// Value returns the underlying decoded value
func (p Payload) Value() any {
	return p.data
}

// IsZero reports whether the payload holds nothing
func (p Payload) IsZero() bool {
	switch v := p.data.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// JSON re-encodes the payload
func (p Payload) JSON() json.RawMessage {
	if p.data == nil {
		return nil
	}
	b, err := json.Marshal(p.data)
	if err != nil {
		return nil
	}
	return b
}

// Lookup returns the first present, non-empty value among keys
func (p Payload) Lookup(keys ...string) (any, bool) {
	for _, key := range keys {
		v, ok := walk(p.data, key)
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// Has reports whether any of keys resolves to a value
func (p Payload) Has(keys ...string) bool {
	_, ok := p.Lookup(keys...)
	return ok
}

// String returns the first non-empty string among keys, or ""
func (p Payload) String(keys ...string) string {
	return p.StringOr("", keys...)
}

// StringOr returns the first non-empty string among keys, or def
func (p Payload) StringOr(def string, keys ...string) string {
	for _, key := range keys {
		v, ok := p.Lookup(key)
		if !ok {
			continue
		}
		if s, ok := toString(v); ok && s != "" {
			return s
		}
	}
	return def
}

// Decimal returns the first value among keys parseable as a number, or def.
// Strings may use a comma as the decimal separator ("12,50", "1.234,50").
func (p Payload) Decimal(def decimal.Decimal, keys ...string) decimal.Decimal {
	for _, key := range keys {
		v, ok := p.Lookup(key)
		if !ok {
			continue
		}
		if d, ok := toDecimal(v); ok {
			return d
		}
	}
	return def
}

// Int returns the first numeric value among keys truncated to an integer, or def
func (p Payload) Int(def int64, keys ...string) int64 {
	d := p.Decimal(decimal.NewFromInt(def), keys...)
	return d.IntPart()
}

// Bool returns the first value among keys interpretable as a boolean, or def
func (p Payload) Bool(def bool, keys ...string) bool {
	for _, key := range keys {
		v, ok := p.Lookup(key)
		if !ok {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b
		case json.Number:
			return b.String() != "0"
		case float64:
			return b != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "1", "true", "yes", "evet", "active", "aktif":
				return true
			case "0", "false", "no", "hayir", "hayır", "passive", "pasif":
				return false
			}
		}
	}
	return def
}

// Object returns the first object among keys, or an empty payload
func (p Payload) Object(keys ...string) Payload {
	for _, key := range keys {
		v, ok := p.Lookup(key)
		if !ok {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			return Payload{data: m}
		}
	}
	return Payload{}
}

// List returns the first array among keys as payloads, or nil.
// A JSON-encoded array held in a string is decoded.
func (p Payload) List(keys ...string) []Payload {
	for _, key := range keys {
		v, ok := p.Lookup(key)
		if !ok {
			continue
		}
		if items, ok := asArray(v); ok {
			out := make([]Payload, 0, len(items))
			for _, item := range items {
				out = append(out, Payload{data: item})
			}
			return out
		}
	}
	return nil
}

// Strings returns the first array among keys as strings, skipping
// non-scalar elements
func (p Payload) Strings(keys ...string) []string {
	var out []string
	for _, item := range p.List(keys...) {
		if s, ok := toString(item.data); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Items returns the payload itself as a list when it is an array
func (p Payload) Items() []Payload {
	items, ok := p.data.([]any)
	if !ok {
		return nil
	}
	out := make([]Payload, 0, len(items))
	for _, item := range items {
		out = append(out, Payload{data: item})
	}
	return out
}

// Keys returns the member names of an object payload
func (p Payload) Keys() []string {
	m, ok := p.data.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func walk(v any, path string) (any, bool) {
	if path == "" {
		return v, v != nil
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		return ParseDecimal(n)
	default:
		return decimal.Zero, false
	}
}

// ParseDecimal parses a human-entered amount. Both "1,234.50" and
// "1.234,50" yield 1234.50; a lone comma is a decimal separator.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func asArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case []any:
		return a, true
	case string:
		s := strings.TrimSpace(a)
		if !strings.HasPrefix(s, "[") {
			return nil, false
		}
		p, err := Decode([]byte(s))
		if err != nil {
			return nil, false
		}
		items, ok := p.data.([]any)
		return items, ok
	default:
		return nil, false
	}
}
