// Package dname parses and serializes distinguished names and
// subject-alternative-name entries. Attribute order is significant and
// round-trips through both the text and DER encodings.
package dname

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax indicates malformed DN or SAN text.
var ErrSyntax = errors.New("invalid name syntax")

// AVA is a single attribute-value assertion, e.g. CN=example.
type AVA struct {
	Key   string // canonical short key, e.g. "CN", "O"
	Value string
}

// DN is an ordered distinguished name.
type DN []AVA

// attribute maps a canonical key to its attribute-type OID.
type attribute struct {
	Key string
	OID asn1.ObjectIdentifier
}

// attributeTable lists the recognized attribute types. Order matters only
// for documentation; lookup is by key or OID.
var attributeTable = []attribute{
	{"CN", asn1.ObjectIdentifier{2, 5, 4, 3}},
	{"SN", asn1.ObjectIdentifier{2, 5, 4, 4}},
	{"SERIALNUMBER", asn1.ObjectIdentifier{2, 5, 4, 5}},
	{"C", asn1.ObjectIdentifier{2, 5, 4, 6}},
	{"L", asn1.ObjectIdentifier{2, 5, 4, 7}},
	{"ST", asn1.ObjectIdentifier{2, 5, 4, 8}},
	{"STREET", asn1.ObjectIdentifier{2, 5, 4, 9}},
	{"O", asn1.ObjectIdentifier{2, 5, 4, 10}},
	{"OU", asn1.ObjectIdentifier{2, 5, 4, 11}},
	{"T", asn1.ObjectIdentifier{2, 5, 4, 12}},
	{"GN", asn1.ObjectIdentifier{2, 5, 4, 42}},
	{"UID", asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}},
	{"DC", asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}},
	{"E", asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}},
}

// attributeAliases maps alternate spellings to canonical keys.
var attributeAliases = map[string]string{
	"COMMONNAME":          "CN",
	"COUNTRY":             "C",
	"ORGANIZATION":        "O",
	"ORGANIZATIONALUNIT":  "OU",
	"LOCALITY":            "L",
	"STATE":               "ST",
	"STATEORPROVINCENAME": "ST",
	"SURNAME":             "SN",
	"GIVENNAME":           "GN",
	"TITLE":               "T",
	"EMAIL":               "E",
	"EMAILADDRESS":        "E",
	"DOMAINCOMPONENT":     "DC",
}

// canonicalKey resolves a user-supplied attribute key.
func canonicalKey(key string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(key))
	for _, attr := range attributeTable {
		if attr.Key == upper {
			return attr.Key, true
		}
	}
	if canon, ok := attributeAliases[upper]; ok {
		return canon, true
	}
	return "", false
}

// oidForKey returns the OID for a canonical key.
func oidForKey(key string) (asn1.ObjectIdentifier, bool) {
	for _, attr := range attributeTable {
		if attr.Key == key {
			return attr.OID, true
		}
	}
	return nil, false
}

// keyForOID returns the canonical key for an OID, or its dotted string
// form when the attribute type is not in the table.
func keyForOID(oid asn1.ObjectIdentifier) string {
	for _, attr := range attributeTable {
		if attr.OID.Equal(oid) {
			return attr.Key
		}
	}
	return oid.String()
}

// ParseDN parses a distinguished-name string in either the
// "key=value, key=value" or the "/key=value/key=value" syntax.
// Unknown attribute keys are rejected. Attribute order is preserved.
func ParseDN(text string) (DN, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty distinguished name", ErrSyntax)
	}

	var parts []string
	if strings.HasPrefix(text, "/") {
		parts = splitEscaped(text[1:], '/')
	} else {
		parts = splitEscaped(text, ',')
	}

	dn := make(DN, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.Index(part, "=")
		if eq < 0 {
			return nil, fmt.Errorf("%w: %q has no '='", ErrSyntax, part)
		}
		key, ok := canonicalKey(part[:eq])
		if !ok {
			return nil, fmt.Errorf("%w: unknown attribute key %q", ErrSyntax, strings.TrimSpace(part[:eq]))
		}
		value := unescape(strings.TrimSpace(part[eq+1:]))
		if value == "" {
			return nil, fmt.Errorf("%w: empty value for %s", ErrSyntax, key)
		}
		dn = append(dn, AVA{Key: key, Value: value})
	}
	if len(dn) == 0 {
		return nil, fmt.Errorf("%w: no attributes", ErrSyntax)
	}
	return dn, nil
}

// String formats the DN in the canonical "key=value, key=value" form.
func (dn DN) String() string {
	parts := make([]string, len(dn))
	for i, ava := range dn {
		parts[i] = ava.Key + "=" + escape(ava.Value)
	}
	return strings.Join(parts, ", ")
}

// CommonName returns the first CN value, or "".
func (dn DN) CommonName() string {
	for _, ava := range dn {
		if ava.Key == "CN" {
			return ava.Value
		}
	}
	return ""
}

// Equal reports whether two DNs have the same attributes in the same order.
func (dn DN) Equal(other DN) bool {
	if len(dn) != len(other) {
		return false
	}
	for i := range dn {
		if dn[i] != other[i] {
			return false
		}
	}
	return true
}

// MarshalDER encodes the DN as a DER RDNSequence, one RDN per attribute,
// preserving order.
func (dn DN) MarshalDER() ([]byte, error) {
	rdns := make(pkix.RDNSequence, 0, len(dn))
	for _, ava := range dn {
		oid, ok := oidForKey(ava.Key)
		if !ok {
			return nil, fmt.Errorf("%w: unknown attribute key %q", ErrSyntax, ava.Key)
		}
		rdns = append(rdns, []pkix.AttributeTypeAndValue{{Type: oid, Value: ava.Value}})
	}
	return asn1.Marshal(rdns)
}

// ParseDER decodes a DER RDNSequence, preserving attribute order.
// Attribute types outside the table are rendered as dotted OIDs rather
// than rejected, so foreign certificates remain viewable.
func ParseDER(der []byte) (DN, error) {
	var rdns pkix.RDNSequence
	if rest, err := asn1.Unmarshal(der, &rdns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	} else if len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing data after RDNSequence", ErrSyntax)
	}

	var dn DN
	for _, rdn := range rdns {
		for _, atv := range rdn {
			value, ok := atv.Value.(string)
			if !ok {
				value = fmt.Sprintf("%v", atv.Value)
			}
			dn = append(dn, AVA{Key: keyForOID(atv.Type), Value: value})
		}
	}
	return dn, nil
}

// splitEscaped splits s on sep, honoring backslash escapes.
func splitEscaped(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte('\\')
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == sep:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if escaped {
		cur.WriteByte('\\')
	}
	parts = append(parts, cur.String())
	return parts
}

// unescape removes backslash escapes from a value.
func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var out strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			out.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}

// escape protects separator characters in a value.
func escape(s string) string {
	if !strings.ContainsAny(s, ",/\\") {
		return s
	}
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ',' || c == '/' || c == '\\' {
			out.WriteByte('\\')
		}
		out.WriteByte(c)
	}
	return out.String()
}
