package transport

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

// SOAPEnvelope wraps a body fragment in a SOAP 1.1 envelope. Header fragments
// are optional and written verbatim.
func SOAPEnvelope(header, body string, namespaces map[string]string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="` + soapEnvelopeNS + `"`)
	for _, prefix := range sortedKeys(namespaces) {
		fmt.Fprintf(&b, ` xmlns:%s="%s"`, prefix, html.EscapeString(namespaces[prefix]))
	}
	b.WriteString(`>`)
	if header != "" {
		b.WriteString(`<soapenv:Header>` + header + `</soapenv:Header>`)
	} else {
		b.WriteString(`<soapenv:Header/>`)
	}
	b.WriteString(`<soapenv:Body>` + body + `</soapenv:Body>`)
	b.WriteString(`</soapenv:Envelope>`)
	return []byte(b.String())
}

// CDATA wraps content in a CDATA section, splitting any embedded terminator
func CDATA(content string) string {
	return "<![CDATA[" + strings.ReplaceAll(content, "]]>", "]]]]><![CDATA[>") + "]]>"
}

// Element renders <name>escaped value</name>
func Element(name, value string) string {
	return "<" + name + ">" + html.EscapeString(value) + "</" + name + ">"
}

var (
	tagPatternMu sync.Mutex
	tagPatterns  = make(map[string]*regexp.Regexp)
	cdataPattern = regexp.MustCompile(`(?s)^\s*<!\[CDATA\[(.*)\]\]>\s*$`)
)

func tagPattern(tag string) *regexp.Regexp {
	tagPatternMu.Lock()
	defer tagPatternMu.Unlock()
	if re, ok := tagPatterns[tag]; ok {
		return re
	}
	q := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(`(?s)<(?:[\w.-]+:)?` + q + `(?:\s[^>]*)?>(.*?)</(?:[\w.-]+:)?` + q + `>`)
	tagPatterns[tag] = re
	return re
}

// ExtractTag returns the text of the first element with the given local name,
// ignoring namespace prefixes. CDATA wrappers are removed and entities
// unescaped. found is false when no such element exists.
func ExtractTag(body []byte, tag string) (string, bool) {
	m := tagPattern(tag).FindSubmatch(body)
	if m == nil {
		return "", false
	}
	return cleanText(string(m[1])), true
}

// ExtractAll returns the text of every element with the given local name
func ExtractAll(body []byte, tag string) []string {
	matches := tagPattern(tag).FindAllSubmatch(body, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, cleanText(string(m[1])))
	}
	return out
}

// SOAPFault returns the fault string when the body carries a SOAP fault
func SOAPFault(body []byte) (string, bool) {
	if _, ok := ExtractTag(body, "Fault"); !ok {
		return "", false
	}
	if msg, ok := ExtractTag(body, "faultstring"); ok && msg != "" {
		return msg, true
	}
	if msg, ok := ExtractTag(body, "Text"); ok && msg != "" {
		return msg, true
	}
	return "SOAP fault", true
}

func cleanText(s string) string {
	if m := cdataPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimSpace(html.UnescapeString(s))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
