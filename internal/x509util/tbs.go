package x509util

import (
	"crypto/sha256"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/keys"
)

// ASN.1 shapes for Certificate, RFC 5280 section 4.1. Issuer, subject
// and SPKI are kept as raw values so round-trips preserve the exact
// encoding the peer produced.

type validity struct {
	NotBefore, NotAfter time.Time
}

type tbsCertificate struct {
	Raw                asn1.RawContent
	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       *big.Int
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Issuer             asn1.RawValue
	Validity           validity
	Subject            asn1.RawValue
	PublicKey          asn1.RawValue
	UniqueID           asn1.BitString `asn1:"optional,tag:1"`
	SubjectUniqueID    asn1.BitString `asn1:"optional,tag:2"`
	Extensions         []rawExtension `asn1:"omitempty,optional,explicit,tag:3"`
}

type certificate struct {
	Raw                asn1.RawContent
	TBSCertificate     tbsCertificate
	SignatureAlgorithm pkix.AlgorithmIdentifier
	SignatureValue     asn1.BitString
}

// rawExtension mirrors pkix.Extension but keeps the value opaque.
type rawExtension struct {
	OID      asn1.ObjectIdentifier
	Critical bool `asn1:"optional"`
	Value    []byte
}

func toRawExtensions(exts []Extension) []rawExtension {
	out := make([]rawExtension, len(exts))
	for i, e := range exts {
		out[i] = rawExtension{OID: e.OID, Critical: e.Critical, Value: e.Value}
	}
	return out
}

func fromRawExtensions(raw []rawExtension) []Extension {
	out := make([]Extension, len(raw))
	for i, e := range raw {
		out[i] = Extension{OID: e.OID, Critical: e.Critical, Value: e.Value}
	}
	return out
}

// TBSParams holds everything that goes into a to-be-signed certificate.
// The signature algorithm inside the TBS must match the one on the
// outer certificate, so the caller picks it before assembly.
type TBSParams struct {
	Serial     *big.Int
	SigAlg     SignatureAlgorithm
	Issuer     dname.DN
	Subject    dname.DN
	NotBefore  time.Time
	NotAfter   time.Time
	SPKI       []byte
	Extensions []Extension
}

// MarshalTBS assembles the DER encoding of the TBSCertificate. The
// version is always v3. Validity bounds are not checked here: an
// inverted range encodes fine and is the caller's problem to flag.
func MarshalTBS(p TBSParams) ([]byte, error) {
	if p.Serial == nil {
		return nil, fmt.Errorf("missing serial number")
	}
	issuerDER, err := p.Issuer.MarshalDER()
	if err != nil {
		return nil, fmt.Errorf("encode issuer: %w", err)
	}
	subjectDER, err := p.Subject.MarshalDER()
	if err != nil {
		return nil, fmt.Errorf("encode subject: %w", err)
	}

	tbs := tbsCertificate{
		Version:            2, // v3
		SerialNumber:       p.Serial,
		SignatureAlgorithm: p.SigAlg.identifier(),
		Issuer:             asn1.RawValue{FullBytes: issuerDER},
		Validity:           validity{NotBefore: p.NotBefore.UTC(), NotAfter: p.NotAfter.UTC()},
		Subject:            asn1.RawValue{FullBytes: subjectDER},
		PublicKey:          asn1.RawValue{FullBytes: p.SPKI},
		Extensions:         toRawExtensions(p.Extensions),
	}
	return asn1.Marshal(tbs)
}

// MarshalCertificate wraps a signed TBS and its signature into the
// outer Certificate structure.
func MarshalCertificate(tbsDER []byte, alg SignatureAlgorithm, signature []byte) ([]byte, error) {
	outer := struct {
		TBS          asn1.RawValue
		SigAlgorithm pkix.AlgorithmIdentifier
		Signature    asn1.BitString
	}{
		TBS:          asn1.RawValue{FullBytes: tbsDER},
		SigAlgorithm: alg.identifier(),
		Signature:    asn1.BitString{Bytes: signature, BitLength: len(signature) * 8},
	}
	return asn1.Marshal(outer)
}

// Certificate is a parsed X.509 certificate. Unlike crypto/x509 it
// tolerates public keys and signature algorithms the standard library
// refuses, which is the whole point.
type Certificate struct {
	Raw          []byte
	RawTBS       []byte
	RawSPKI      []byte
	Version      int
	SerialNumber *big.Int
	Issuer       dname.DN
	Subject      dname.DN
	NotBefore    time.Time
	NotAfter     time.Time

	// PublicKey is nil when the SPKI algorithm is not recognized;
	// PublicKeyErr then says why.
	PublicKey    *keys.KeyMaterial
	PublicKeyErr error

	SignatureOID asn1.ObjectIdentifier
	Signature    []byte
	Extensions   []Extension
}

// ParseCertificate parses a DER certificate.
func ParseCertificate(der []byte) (*Certificate, error) {
	var raw certificate
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return nil, fmt.Errorf("malformed certificate: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("malformed certificate: %d trailing bytes", len(rest))
	}

	tbs := raw.TBSCertificate
	issuer, err := dname.ParseDER(tbs.Issuer.FullBytes)
	if err != nil {
		return nil, fmt.Errorf("malformed issuer: %w", err)
	}
	subject, err := dname.ParseDER(tbs.Subject.FullBytes)
	if err != nil {
		return nil, fmt.Errorf("malformed subject: %w", err)
	}

	cert := &Certificate{
		Raw:          raw.Raw,
		RawTBS:       tbs.Raw,
		RawSPKI:      tbs.PublicKey.FullBytes,
		Version:      tbs.Version + 1,
		SerialNumber: tbs.SerialNumber,
		Issuer:       issuer,
		Subject:      subject,
		NotBefore:    tbs.Validity.NotBefore,
		NotAfter:     tbs.Validity.NotAfter,
		SignatureOID: raw.SignatureAlgorithm.Algorithm,
		Signature:    raw.SignatureValue.RightAlign(),
		Extensions:   fromRawExtensions(tbs.Extensions),
	}

	cert.PublicKey, cert.PublicKeyErr = keys.ParseSPKI(tbs.PublicKey.FullBytes)
	return cert, nil
}

// FindExtension returns the first extension with the given OID.
func (c *Certificate) FindExtension(oid asn1.ObjectIdentifier) (Extension, bool) {
	for _, e := range c.Extensions {
		if e.OID.Equal(oid) {
			return e, true
		}
	}
	return Extension{}, false
}

// IsCA reports the basicConstraints CA flag; false when the extension
// is absent or malformed.
func (c *Certificate) IsCA() bool {
	ext, ok := c.FindExtension(OIDExtBasicConstraints)
	if !ok {
		return false
	}
	isCA, _, err := DecodeBasicConstraints(ext.Value)
	return err == nil && isCA
}

// SubjectKeyID returns the subjectKeyIdentifier value, or nil.
func (c *Certificate) SubjectKeyID() []byte {
	ext, ok := c.FindExtension(OIDExtSubjectKeyId)
	if !ok {
		return nil
	}
	keyID, err := DecodeSubjectKeyId(ext.Value)
	if err != nil {
		return nil
	}
	return keyID
}

// Fingerprint is the SHA-256 digest of the full DER encoding.
func (c *Certificate) Fingerprint() []byte {
	sum := sha256.Sum256(c.Raw)
	return sum[:]
}

// SignatureAlgorithmName resolves the signature OID to a display name,
// falling back to the dotted form.
func (c *Certificate) SignatureAlgorithmName() string {
	if alg, ok := SignatureAlgorithmByOID(c.SignatureOID); ok {
		return alg.Name
	}
	return c.SignatureOID.String()
}

// EncodeCertPEM wraps certificate DER in a PEM block.
func EncodeCertPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
