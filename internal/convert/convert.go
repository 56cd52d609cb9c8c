// Package convert moves certificate material between PEM, DER and
// PKCS#12 containers on top of the inspect and p12 codecs.
package convert

import (
	"fmt"
	"strings"

	"github.com/AutelysZ/certkit/internal/inspect"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/p12"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// Target is the output container.
type Target string

const (
	TargetPEM    Target = "pem"
	TargetDER    Target = "der"
	TargetPKCS12 Target = "pkcs12"
)

// ParseTarget parses an output container name.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "pem":
		return TargetPEM, nil
	case "der":
		return TargetDER, nil
	case "pkcs12", "p12", "pfx":
		return TargetPKCS12, nil
	}
	return "", fmt.Errorf("unknown target format %q", s)
}

// Options configures a conversion.
type Options struct {
	// From narrows the input container; empty sniffs.
	From inspect.Hint

	// Password unlocks PKCS#12 input.
	Password string

	// OutPassword protects PKCS#12 output.
	OutPassword string
}

// Convert re-encodes the input into the target container.
//
// PEM output carries everything found: certificates, then the request,
// then the private key. DER output carries the primary object only,
// certificate before request before key, since DER has no framing for
// more than one. PKCS#12 output needs at least one certificate and an
// RSA private key; extra certificates ride along as the chain.
func Convert(data []byte, to Target, opts Options) ([]byte, error) {
	bundle, err := inspect.Parse(data, opts.From, opts.Password)
	if err != nil {
		return nil, err
	}

	switch to {
	case TargetPEM:
		return toPEM(bundle)
	case TargetDER:
		return toDER(bundle)
	case TargetPKCS12:
		return toPKCS12(bundle, opts.OutPassword)
	}
	return nil, fmt.Errorf("unknown target format %q", to)
}

func toPEM(bundle *inspect.Bundle) ([]byte, error) {
	var out []byte
	for _, cert := range bundle.Certificates {
		out = append(out, x509util.EncodeCertPEM(cert.Raw)...)
	}
	if bundle.Request != nil {
		out = append(out, x509util.EncodeCSRPEM(bundle.Request.Raw)...)
	}
	if bundle.Key != nil {
		pemBytes, err := keys.Export(bundle.Key, keys.FormatPEM)
		if err != nil {
			return nil, err
		}
		out = append(out, pemBytes...)
	}
	return out, nil
}

func toDER(bundle *inspect.Bundle) ([]byte, error) {
	switch {
	case len(bundle.Certificates) > 0:
		return bundle.Certificates[0].Raw, nil
	case bundle.Request != nil:
		return bundle.Request.Raw, nil
	case bundle.Key != nil:
		return keys.Export(bundle.Key, keys.FormatDER)
	}
	return nil, fmt.Errorf("%w: nothing to convert", keys.ErrParse)
}

func toPKCS12(bundle *inspect.Bundle, password string) ([]byte, error) {
	if len(bundle.Certificates) == 0 {
		return nil, fmt.Errorf("PKCS#12 output requires a certificate")
	}
	if bundle.Key == nil {
		return nil, fmt.Errorf("PKCS#12 output requires a private key")
	}
	var chain [][]byte
	for _, cert := range bundle.Certificates[1:] {
		chain = append(chain, cert.Raw)
	}
	return p12.Pack(bundle.Certificates[0].Raw, bundle.Key, chain, password)
}
