// Package inspect parses arbitrary certificate material into a viewer
// friendly form: PEM bundles, raw DER, PKCS#12 archives, requests and
// bare keys all land in one Bundle.
package inspect

import (
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/p12"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// Hint narrows the container format. HintAuto sniffs.
type Hint string

const (
	HintAuto   Hint = ""
	HintPEM    Hint = "pem"
	HintDER    Hint = "der"
	HintPKCS12 Hint = "pkcs12"
)

// ParseHint parses a container format name.
func ParseHint(s string) (Hint, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return HintAuto, nil
	case "pem":
		return HintPEM, nil
	case "der":
		return HintDER, nil
	case "pkcs12", "p12", "pfx":
		return HintPKCS12, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Bundle is everything found in one input.
type Bundle struct {
	Certificates []*x509util.Certificate
	Request      *x509util.CertificateRequest
	Key          *keys.KeyMaterial
}

// Empty reports whether nothing was recognized.
func (b *Bundle) Empty() bool {
	return len(b.Certificates) == 0 && b.Request == nil && b.Key == nil
}

// Certificate returns the certificate at index, clamping out-of-range
// indexes to the first entry.
func (b *Bundle) Certificate(index int) *x509util.Certificate {
	if len(b.Certificates) == 0 {
		return nil
	}
	if index < 0 || index >= len(b.Certificates) {
		index = 0
	}
	return b.Certificates[index]
}

// Parse decodes input under the given hint. The password applies to
// PKCS#12 input only.
func Parse(data []byte, hint Hint, password string) (*Bundle, error) {
	switch hint {
	case HintPEM:
		return parsePEM(data)
	case HintDER:
		return parseDER(data)
	case HintPKCS12:
		return parsePKCS12(data, password)
	}

	// Sniff: PEM armor wins, then the PKCS#12 / generic DER split,
	// then plain base64 of either.
	trimmed := strings.TrimSpace(string(data))
	if strings.Contains(trimmed, "-----BEGIN") {
		return parsePEM(data)
	}
	if len(data) > 0 && data[0] == 0x30 {
		if bundle, err := parsePKCS12(data, password); err == nil {
			return bundle, nil
		} else if errors.Is(err, p12.ErrPassword) {
			return nil, err
		}
		return parseDER(data)
	}
	if raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(trimmed), "")); err == nil && len(raw) > 0 {
		return Parse(raw, HintAuto, password)
	}
	return nil, fmt.Errorf("%w: unrecognized input", keys.ErrParse)
}

func parsePEM(data []byte) (*Bundle, error) {
	bundle := &Bundle{}
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE", "X509 CERTIFICATE":
			cert, err := x509util.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, err
			}
			bundle.Certificates = append(bundle.Certificates, cert)
		case "CERTIFICATE REQUEST", "NEW CERTIFICATE REQUEST":
			req, err := x509util.ParseCSR(block.Bytes)
			if err != nil {
				return nil, err
			}
			bundle.Request = req
		default:
			km, err := keys.ParseDER(block.Bytes)
			if err == nil {
				bundle.Key = km
			}
		}
	}
	if bundle.Empty() {
		return nil, fmt.Errorf("%w: no usable PEM blocks", keys.ErrParse)
	}
	return bundle, nil
}

// parseDER probes certificate first, then request, then key. A DER
// certificate and a DER request are both SEQUENCEs, so order matters
// and is fixed.
func parseDER(data []byte) (*Bundle, error) {
	if cert, err := x509util.ParseCertificate(data); err == nil {
		return &Bundle{Certificates: []*x509util.Certificate{cert}}, nil
	}
	if req, err := x509util.ParseCSR(data); err == nil {
		return &Bundle{Request: req}, nil
	}
	if km, err := keys.ParseDER(data); err == nil {
		return &Bundle{Key: km}, nil
	}
	return nil, fmt.Errorf("%w: not a certificate, request or key", keys.ErrParse)
}

func parsePKCS12(data []byte, password string) (*Bundle, error) {
	archive, err := p12.Unpack(data, password)
	if err != nil {
		return nil, err
	}
	bundle := &Bundle{Key: archive.Key}
	for _, der := range archive.Certificates {
		cert, err := x509util.ParseCertificate(der)
		if err != nil {
			return nil, err
		}
		bundle.Certificates = append(bundle.Certificates, cert)
	}
	return bundle, nil
}
