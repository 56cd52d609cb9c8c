package x509util

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"

	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/keys"
)

// rawAttribute is a PKCS#10 attribute in standard format. This avoids
// the extra nesting that Go's pkix.AttributeTypeAndValueSET produces:
// the result is SEQUENCE { OID, SET { value } }.
type rawAttribute struct {
	Type   asn1.ObjectIdentifier
	Values []asn1.RawValue `asn1:"set"`
}

// certificationRequestInfo is the TBS portion of a PKCS#10 request.
// Attributes holds the complete [0] IMPLICIT bytes.
type certificationRequestInfo struct {
	Raw        asn1.RawContent
	Version    int
	Subject    asn1.RawValue
	PublicKey  asn1.RawValue
	Attributes asn1.RawValue `asn1:"optional,tag:0"`
}

type certificationRequest struct {
	Raw                asn1.RawContent
	Info               certificationRequestInfo
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Signature          asn1.BitString
}

// CSRParams holds everything that goes into a to-be-signed request.
type CSRParams struct {
	Subject    dname.DN
	SPKI       []byte
	Extensions []Extension
}

// MarshalCSRInfo assembles the DER CertificationRequestInfo. Requested
// extensions travel in the extensionRequest attribute; the [0]
// attributes wrapper is always present, empty when there are none,
// which is what OpenSSL emits.
func MarshalCSRInfo(p CSRParams) ([]byte, error) {
	subjectDER, err := p.Subject.MarshalDER()
	if err != nil {
		return nil, fmt.Errorf("encode subject: %w", err)
	}

	var attrsContent []byte
	if len(p.Extensions) > 0 {
		extsDER, err := asn1.Marshal(toRawExtensions(p.Extensions))
		if err != nil {
			return nil, fmt.Errorf("encode extensions: %w", err)
		}
		attrDER, err := asn1.Marshal(rawAttribute{
			Type:   OIDExtensionRequest,
			Values: []asn1.RawValue{{FullBytes: extsDER}},
		})
		if err != nil {
			return nil, fmt.Errorf("encode extensionRequest: %w", err)
		}
		attrsContent = attrDER
	}

	// [0] IMPLICIT wrapper around the attribute content.
	attrsWrapped, err := asn1.Marshal(asn1.RawValue{
		Class:      asn1.ClassContextSpecific,
		Tag:        0,
		IsCompound: true,
		Bytes:      attrsContent,
	})
	if err != nil {
		return nil, err
	}

	info := struct {
		Version    int
		Subject    asn1.RawValue
		PublicKey  asn1.RawValue
		Attributes asn1.RawValue
	}{
		Version:    0,
		Subject:    asn1.RawValue{FullBytes: subjectDER},
		PublicKey:  asn1.RawValue{FullBytes: p.SPKI},
		Attributes: asn1.RawValue{FullBytes: attrsWrapped},
	}
	return asn1.Marshal(info)
}

// MarshalCSR wraps a signed CertificationRequestInfo and its signature
// into the outer CertificationRequest structure.
func MarshalCSR(infoDER []byte, alg SignatureAlgorithm, signature []byte) ([]byte, error) {
	outer := struct {
		Info         asn1.RawValue
		SigAlgorithm pkix.AlgorithmIdentifier
		Signature    asn1.BitString
	}{
		Info:         asn1.RawValue{FullBytes: infoDER},
		SigAlgorithm: alg.identifier(),
		Signature:    asn1.BitString{Bytes: signature, BitLength: len(signature) * 8},
	}
	return asn1.Marshal(outer)
}

// CertificateRequest is a parsed PKCS#10 request.
type CertificateRequest struct {
	Raw     []byte
	RawInfo []byte
	RawSPKI []byte
	Subject dname.DN

	PublicKey    *keys.KeyMaterial
	PublicKeyErr error

	SignatureOID asn1.ObjectIdentifier
	Signature    []byte

	// Extensions are the ones requested via the extensionRequest
	// attribute. Other attributes are ignored.
	Extensions []Extension
}

// ParseCSR parses a DER certification request.
func ParseCSR(der []byte) (*CertificateRequest, error) {
	var raw certificationRequest
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return nil, fmt.Errorf("malformed certification request: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("malformed certification request: %d trailing bytes", len(rest))
	}

	subject, err := dname.ParseDER(raw.Info.Subject.FullBytes)
	if err != nil {
		return nil, fmt.Errorf("malformed subject: %w", err)
	}

	req := &CertificateRequest{
		Raw:          raw.Raw,
		RawInfo:      raw.Info.Raw,
		RawSPKI:      raw.Info.PublicKey.FullBytes,
		Subject:      subject,
		SignatureOID: raw.SignatureAlgorithm.Algorithm,
		Signature:    raw.Signature.RightAlign(),
	}
	req.PublicKey, req.PublicKeyErr = keys.ParseSPKI(raw.Info.PublicKey.FullBytes)
	req.Extensions = parseRequestedExtensions(raw.Info.Attributes.Bytes)
	return req, nil
}

// parseRequestedExtensions pulls extensions out of the extensionRequest
// attribute. Malformed attributes are skipped rather than failing the
// whole parse.
func parseRequestedExtensions(attrBytes []byte) []Extension {
	rest := attrBytes
	for len(rest) > 0 {
		var attr rawAttribute
		var err error
		rest, err = asn1.Unmarshal(rest, &attr)
		if err != nil {
			return nil
		}
		if !attr.Type.Equal(OIDExtensionRequest) || len(attr.Values) == 0 {
			continue
		}
		var exts []rawExtension
		if _, err := asn1.Unmarshal(attr.Values[0].FullBytes, &exts); err != nil {
			continue
		}
		return fromRawExtensions(exts)
	}
	return nil
}

// SignatureAlgorithmName resolves the signature OID to a display name,
// falling back to the dotted form.
func (r *CertificateRequest) SignatureAlgorithmName() string {
	if alg, ok := SignatureAlgorithmByOID(r.SignatureOID); ok {
		return alg.Name
	}
	return r.SignatureOID.String()
}

// EncodeCSRPEM wraps request DER in a PEM block.
func EncodeCSRPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})
}
