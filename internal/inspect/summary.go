package inspect

import (
	"encoding/hex"
	"time"

	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// ExtensionSummary is one extension line in the viewer.
type ExtensionSummary struct {
	Name     string `json:"name"`
	OID      string `json:"oid"`
	Critical bool   `json:"critical,omitempty"`
	Detail   string `json:"detail"`
}

// Summary is the viewer projection of a certificate.
type Summary struct {
	Subject            string             `json:"subject"`
	Issuer             string             `json:"issuer"`
	Serial             string             `json:"serial"`
	NotBefore          time.Time          `json:"not_before"`
	NotAfter           time.Time          `json:"not_after"`
	SelfSigned         bool               `json:"self_signed"`
	IsCA               bool               `json:"is_ca"`
	Fingerprint        string             `json:"fingerprint_sha256"`
	SignatureAlgorithm string             `json:"signature_algorithm"`
	PublicKeyAlgorithm string             `json:"public_key_algorithm"`
	Extensions         []ExtensionSummary `json:"extensions,omitempty"`
}

// Summarize projects a certificate for display.
func Summarize(cert *x509util.Certificate) Summary {
	s := Summary{
		Subject:            cert.Subject.String(),
		Issuer:             cert.Issuer.String(),
		Serial:             certkit.FormatSerial(cert.SerialNumber),
		NotBefore:          cert.NotBefore,
		NotAfter:           cert.NotAfter,
		SelfSigned:         cert.Subject.Equal(cert.Issuer),
		IsCA:               cert.IsCA(),
		Fingerprint:        hex.EncodeToString(cert.Fingerprint()),
		SignatureAlgorithm: cert.SignatureAlgorithmName(),
		PublicKeyAlgorithm: publicKeyName(cert),
	}
	for _, ext := range cert.Extensions {
		s.Extensions = append(s.Extensions, ExtensionSummary{
			Name:     ext.Name(),
			OID:      ext.OID.String(),
			Critical: ext.Critical,
			Detail:   ext.Describe(),
		})
	}
	return s
}

func publicKeyName(cert *x509util.Certificate) string {
	if cert.PublicKey != nil {
		return cert.PublicKey.Describe()
	}
	return "unrecognized"
}

// RequestSummary is the viewer projection of a certification request.
type RequestSummary struct {
	Subject            string             `json:"subject"`
	SignatureAlgorithm string             `json:"signature_algorithm"`
	PublicKeyAlgorithm string             `json:"public_key_algorithm"`
	Extensions         []ExtensionSummary `json:"extensions,omitempty"`
}

// SummarizeRequest projects a request for display.
func SummarizeRequest(req *x509util.CertificateRequest) RequestSummary {
	s := RequestSummary{
		Subject:            req.Subject.String(),
		SignatureAlgorithm: req.SignatureAlgorithmName(),
	}
	if req.PublicKey != nil {
		s.PublicKeyAlgorithm = req.PublicKey.Describe()
	} else {
		s.PublicKeyAlgorithm = "unrecognized"
	}
	for _, ext := range req.Extensions {
		s.Extensions = append(s.Extensions, ExtensionSummary{
			Name:     ext.Name(),
			OID:      ext.OID.String(),
			Critical: ext.Critical,
			Detail:   ext.Describe(),
		})
	}
	return s
}
