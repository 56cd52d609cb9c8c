package dname

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// SanType identifies a subject-alternative-name variant by its
// GeneralName choice.
type SanType int

const (
	SanEmail SanType = 1 // rfc822Name
	SanDNS   SanType = 2 // dNSName
	SanDir   SanType = 4 // directoryName
	SanURI   SanType = 6 // uniformResourceIdentifier
	SanIP    SanType = 7 // iPAddress
)

// String returns the text prefix used for the SAN type.
func (t SanType) String() string {
	switch t {
	case SanDNS:
		return "DNS"
	case SanIP:
		return "IP"
	case SanURI:
		return "URI"
	case SanEmail:
		return "email"
	case SanDir:
		return "dirName"
	}
	return "unknown"
}

// SanEntry is one subject-alternative-name entry. Exactly one value field
// is populated, matching Type.
type SanEntry struct {
	Type SanType

	DNS   string
	IP    net.IP
	URI   string
	Email string
	Dir   DN
}

// String formats the entry in the "TYPE:value" syntax.
func (e SanEntry) String() string {
	switch e.Type {
	case SanDNS:
		return "DNS:" + e.DNS
	case SanIP:
		return "IP:" + e.IP.String()
	case SanURI:
		return "URI:" + e.URI
	case SanEmail:
		return "email:" + e.Email
	case SanDir:
		return "dirName:" + e.Dir.String()
	}
	return ""
}

// ParseSAN parses subject-alternative-name text, one "TYPE:value" entry
// per line. Recognized types: DNS, IP, URI, email. Blank lines are
// skipped. Round-trip property: FormatSAN(ParseSAN(s)) normalizes s.
func ParseSAN(text string) ([]SanEntry, error) {
	var entries []SanEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		colon := strings.Index(line, ":")
		if colon < 0 {
			return nil, fmt.Errorf("%w: SAN entry %q has no type prefix", ErrSyntax, line)
		}
		typ := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if value == "" {
			return nil, fmt.Errorf("%w: empty SAN value in %q", ErrSyntax, line)
		}

		switch strings.ToLower(typ) {
		case "dns":
			if err := CheckHostname(value); err != nil {
				return nil, err
			}
			entries = append(entries, SanEntry{Type: SanDNS, DNS: value})
		case "ip":
			ip := net.ParseIP(value)
			if ip == nil {
				return nil, fmt.Errorf("%w: invalid IP address %q", ErrSyntax, value)
			}
			entries = append(entries, SanEntry{Type: SanIP, IP: ip})
		case "uri":
			u, err := url.Parse(value)
			if err != nil || u.Scheme == "" {
				return nil, fmt.Errorf("%w: invalid URI %q", ErrSyntax, value)
			}
			entries = append(entries, SanEntry{Type: SanURI, URI: value})
		case "email":
			if !strings.Contains(value, "@") {
				return nil, fmt.Errorf("%w: invalid email address %q", ErrSyntax, value)
			}
			entries = append(entries, SanEntry{Type: SanEmail, Email: value})
		default:
			return nil, fmt.Errorf("%w: unknown SAN type %q", ErrSyntax, typ)
		}
	}
	return entries, nil
}

// FormatSAN renders entries back to the one-per-line text form.
func FormatSAN(entries []SanEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// CheckHostname validates the shape of a DNS SAN value. Wildcards are
// allowed only on the leftmost label and must not cover a public suffix
// (*.co.uk would match every UK commercial domain).
func CheckHostname(name string) error {
	host := name
	if strings.HasPrefix(host, "*.") {
		base := host[2:]
		if suffix, icann := publicsuffix.PublicSuffix(base); icann && suffix == base {
			return fmt.Errorf("%w: wildcard on public suffix %q", ErrSyntax, base)
		}
		host = base
	}
	if host == "" || strings.Contains(host, "*") {
		return fmt.Errorf("%w: invalid hostname %q", ErrSyntax, name)
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("%w: invalid hostname %q", ErrSyntax, name)
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return fmt.Errorf("%w: invalid character %q in hostname %q", ErrSyntax, c, name)
			}
		}
	}
	return nil
}
