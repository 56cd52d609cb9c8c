package x509util

import (
	"crypto"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/keys"
)

// Extension is one X.509 extension with its raw DER value. Within one
// certificate each OID should appear at most once, but that is not
// enforced: duplicate OIDs round-trip untouched.
type Extension struct {
	OID      asn1.ObjectIdentifier
	Critical bool
	Value    []byte
}

// Name returns the symbolic name of the extension.
func (e Extension) Name() string { return extensionName(e.OID) }

// KeyUsage is the keyUsage bit set, numbered as in RFC 5280.
type KeyUsage uint16

const (
	KeyUsageDigitalSignature KeyUsage = 1 << iota
	KeyUsageContentCommitment
	KeyUsageKeyEncipherment
	KeyUsageDataEncipherment
	KeyUsageKeyAgreement
	KeyUsageCertSign
	KeyUsageCRLSign
	KeyUsageEncipherOnly
	KeyUsageDecipherOnly
)

// keyUsageNames maps symbolic names to bits, in bit order.
var keyUsageNames = []struct {
	Name string
	Bit  KeyUsage
}{
	{"digitalSignature", KeyUsageDigitalSignature},
	{"contentCommitment", KeyUsageContentCommitment},
	{"keyEncipherment", KeyUsageKeyEncipherment},
	{"dataEncipherment", KeyUsageDataEncipherment},
	{"keyAgreement", KeyUsageKeyAgreement},
	{"keyCertSign", KeyUsageCertSign},
	{"cRLSign", KeyUsageCRLSign},
	{"encipherOnly", KeyUsageEncipherOnly},
	{"decipherOnly", KeyUsageDecipherOnly},
}

// KeyUsageByName resolves a symbolic key usage name.
func KeyUsageByName(name string) (KeyUsage, bool) {
	for _, ku := range keyUsageNames {
		if strings.EqualFold(ku.Name, name) {
			return ku.Bit, true
		}
	}
	return 0, false
}

// String lists the set bits by name.
func (ku KeyUsage) String() string {
	var names []string
	for _, entry := range keyUsageNames {
		if ku&entry.Bit != 0 {
			names = append(names, entry.Name)
		}
	}
	return strings.Join(names, ", ")
}

type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// EncodeBasicConstraints builds the basicConstraints extension.
// pathLen < 0 omits the pathLenConstraint.
func EncodeBasicConstraints(isCA bool, pathLen int) (Extension, error) {
	bc := basicConstraints{IsCA: isCA, MaxPathLen: -1}
	if isCA && pathLen >= 0 {
		bc.MaxPathLen = pathLen
	}
	value, err := asn1.Marshal(bc)
	if err != nil {
		return Extension{}, err
	}
	return Extension{OID: OIDExtBasicConstraints, Critical: true, Value: value}, nil
}

// DecodeBasicConstraints parses a basicConstraints value.
// Returns (isCA, pathLen); pathLen is -1 when absent.
func DecodeBasicConstraints(value []byte) (bool, int, error) {
	bc := basicConstraints{MaxPathLen: -1}
	if _, err := asn1.Unmarshal(value, &bc); err != nil {
		return false, -1, fmt.Errorf("malformed basicConstraints: %w", err)
	}
	return bc.IsCA, bc.MaxPathLen, nil
}

// reverseBits mirrors the bits in a byte; keyUsage BIT STRINGs store
// bit 0 in the most significant position.
func reverseBits(b byte) byte {
	var out byte
	for i := 0; i < 8; i++ {
		out <<= 1
		out |= b & 1
		b >>= 1
	}
	return out
}

// EncodeKeyUsage builds the keyUsage extension as a minimal-width
// BIT STRING.
func EncodeKeyUsage(ku KeyUsage) (Extension, error) {
	raw := [2]byte{reverseBits(byte(ku)), reverseBits(byte(ku >> 8))}

	bitLen := 0
	for i := 0; i < 16; i++ {
		if ku&(1<<uint(i)) != 0 {
			bitLen = i + 1
		}
	}

	byteLen := (bitLen + 7) / 8
	value, err := asn1.Marshal(asn1.BitString{Bytes: raw[:byteLen], BitLength: bitLen})
	if err != nil {
		return Extension{}, err
	}
	return Extension{OID: OIDExtKeyUsage, Critical: true, Value: value}, nil
}

// DecodeKeyUsage parses a keyUsage BIT STRING value.
func DecodeKeyUsage(value []byte) (KeyUsage, error) {
	var bits asn1.BitString
	if _, err := asn1.Unmarshal(value, &bits); err != nil {
		return 0, fmt.Errorf("malformed keyUsage: %w", err)
	}
	var ku KeyUsage
	for i := 0; i < 16 && i < bits.BitLength; i++ {
		if bits.At(i) != 0 {
			ku |= 1 << uint(i)
		}
	}
	return ku, nil
}

// EncodeExtKeyUsage builds the extKeyUsage extension from an OID list.
func EncodeExtKeyUsage(oids []asn1.ObjectIdentifier) (Extension, error) {
	value, err := asn1.Marshal(oids)
	if err != nil {
		return Extension{}, err
	}
	return Extension{OID: OIDExtExtKeyUsage, Value: value}, nil
}

// DecodeExtKeyUsage parses an extKeyUsage OID list.
func DecodeExtKeyUsage(value []byte) ([]asn1.ObjectIdentifier, error) {
	var oids []asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(value, &oids); err != nil {
		return nil, fmt.Errorf("malformed extKeyUsage: %w", err)
	}
	return oids, nil
}

// GeneralName context-specific tag numbers.
const (
	tagRFC822Name = 1
	tagDNSName    = 2
	tagDirName    = 4
	tagURI        = 6
	tagIPAddress  = 7
)

// EncodeSubjectAltName builds the subjectAltName extension from SAN
// entries, preserving entry order.
func EncodeSubjectAltName(entries []dname.SanEntry) (Extension, error) {
	var names []asn1.RawValue
	for _, e := range entries {
		switch e.Type {
		case dname.SanDNS:
			names = append(names, asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: tagDNSName, Bytes: []byte(e.DNS)})
		case dname.SanEmail:
			names = append(names, asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: tagRFC822Name, Bytes: []byte(e.Email)})
		case dname.SanURI:
			names = append(names, asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: tagURI, Bytes: []byte(e.URI)})
		case dname.SanIP:
			ip := e.IP
			if v4 := ip.To4(); v4 != nil {
				ip = v4
			}
			names = append(names, asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: tagIPAddress, Bytes: ip})
		case dname.SanDir:
			der, err := e.Dir.MarshalDER()
			if err != nil {
				return Extension{}, err
			}
			names = append(names, asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: tagDirName, IsCompound: true, Bytes: der})
		default:
			return Extension{}, fmt.Errorf("unsupported SAN type %v", e.Type)
		}
	}

	value, err := asn1.Marshal(names)
	if err != nil {
		return Extension{}, err
	}
	return Extension{OID: OIDExtSubjectAltName, Value: value}, nil
}

// DecodeSubjectAltName parses a subjectAltName value back into SAN
// entries. Unrecognized GeneralName choices are skipped.
func DecodeSubjectAltName(value []byte) ([]dname.SanEntry, error) {
	var seq asn1.RawValue
	if _, err := asn1.Unmarshal(value, &seq); err != nil {
		return nil, fmt.Errorf("malformed subjectAltName: %w", err)
	}
	if seq.Tag != asn1.TagSequence || !seq.IsCompound {
		return nil, fmt.Errorf("malformed subjectAltName: not a sequence")
	}

	var entries []dname.SanEntry
	rest := seq.Bytes
	for len(rest) > 0 {
		var name asn1.RawValue
		var err error
		rest, err = asn1.Unmarshal(rest, &name)
		if err != nil {
			return nil, fmt.Errorf("malformed GeneralName: %w", err)
		}
		if name.Class != asn1.ClassContextSpecific {
			continue
		}
		switch name.Tag {
		case tagDNSName:
			entries = append(entries, dname.SanEntry{Type: dname.SanDNS, DNS: string(name.Bytes)})
		case tagRFC822Name:
			entries = append(entries, dname.SanEntry{Type: dname.SanEmail, Email: string(name.Bytes)})
		case tagURI:
			entries = append(entries, dname.SanEntry{Type: dname.SanURI, URI: string(name.Bytes)})
		case tagIPAddress:
			if len(name.Bytes) == net.IPv4len || len(name.Bytes) == net.IPv6len {
				entries = append(entries, dname.SanEntry{Type: dname.SanIP, IP: net.IP(name.Bytes)})
			}
		case tagDirName:
			dn, err := dname.ParseDER(name.Bytes)
			if err == nil {
				entries = append(entries, dname.SanEntry{Type: dname.SanDir, Dir: dn})
			}
		}
	}
	return entries, nil
}

// KeyIdentifier computes the subject key identifier for key material:
// a digest over the SubjectPublicKeyInfo bit string contents, not the
// whole SPKI. SHA-1 is the conventional default.
func KeyIdentifier(km *keys.KeyMaterial, hash crypto.Hash) ([]byte, error) {
	spkiDER, err := keys.MarshalSPKI(km)
	if err != nil {
		return nil, err
	}
	var spki struct {
		Algorithm asn1.RawValue
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(spkiDER, &spki); err != nil {
		return nil, fmt.Errorf("malformed SubjectPublicKeyInfo: %w", err)
	}
	if hash == 0 {
		hash = crypto.SHA1
	}
	h := hash.New()
	h.Write(spki.PublicKey.RightAlign())
	return h.Sum(nil), nil
}

// EncodeSubjectKeyId builds the subjectKeyIdentifier extension.
func EncodeSubjectKeyId(keyID []byte) (Extension, error) {
	value, err := asn1.Marshal(keyID)
	if err != nil {
		return Extension{}, err
	}
	return Extension{OID: OIDExtSubjectKeyId, Value: value}, nil
}

// DecodeSubjectKeyId parses a subjectKeyIdentifier value.
func DecodeSubjectKeyId(value []byte) ([]byte, error) {
	var keyID []byte
	if _, err := asn1.Unmarshal(value, &keyID); err != nil {
		return nil, fmt.Errorf("malformed subjectKeyIdentifier: %w", err)
	}
	return keyID, nil
}

// authorityKeyId carries only the keyIdentifier choice; the issuer and
// serial choices are never emitted.
type authorityKeyId struct {
	KeyIdentifier []byte `asn1:"optional,tag:0"`
}

// EncodeAuthorityKeyId builds the authorityKeyIdentifier extension.
func EncodeAuthorityKeyId(keyID []byte) (Extension, error) {
	value, err := asn1.Marshal(authorityKeyId{KeyIdentifier: keyID})
	if err != nil {
		return Extension{}, err
	}
	return Extension{OID: OIDExtAuthorityKeyId, Value: value}, nil
}

// DecodeAuthorityKeyId parses an authorityKeyIdentifier value; returns
// nil when the keyIdentifier choice is absent.
func DecodeAuthorityKeyId(value []byte) ([]byte, error) {
	var aki authorityKeyId
	if _, err := asn1.Unmarshal(value, &aki); err != nil {
		return nil, fmt.Errorf("malformed authorityKeyIdentifier: %w", err)
	}
	return aki.KeyIdentifier, nil
}

// Describe renders a one-line human-readable summary of the extension
// value for the viewer.
func (e Extension) Describe() string {
	switch {
	case e.OID.Equal(OIDExtBasicConstraints):
		isCA, pathLen, err := DecodeBasicConstraints(e.Value)
		if err != nil {
			return "malformed"
		}
		if isCA && pathLen >= 0 {
			return fmt.Sprintf("CA:TRUE, pathlen:%d", pathLen)
		}
		if isCA {
			return "CA:TRUE"
		}
		return "CA:FALSE"

	case e.OID.Equal(OIDExtKeyUsage):
		ku, err := DecodeKeyUsage(e.Value)
		if err != nil {
			return "malformed"
		}
		return ku.String()

	case e.OID.Equal(OIDExtExtKeyUsage):
		oids, err := DecodeExtKeyUsage(e.Value)
		if err != nil {
			return "malformed"
		}
		names := make([]string, len(oids))
		for i, oid := range oids {
			names[i] = ekuName(oid)
		}
		return strings.Join(names, ", ")

	case e.OID.Equal(OIDExtSubjectAltName):
		entries, err := DecodeSubjectAltName(e.Value)
		if err != nil {
			return "malformed"
		}
		parts := make([]string, len(entries))
		for i, entry := range entries {
			parts[i] = entry.String()
		}
		return strings.Join(parts, ", ")

	case e.OID.Equal(OIDExtSubjectKeyId):
		keyID, err := DecodeSubjectKeyId(e.Value)
		if err != nil {
			return "malformed"
		}
		return hex.EncodeToString(keyID)

	case e.OID.Equal(OIDExtAuthorityKeyId):
		keyID, err := DecodeAuthorityKeyId(e.Value)
		if err != nil {
			return "malformed"
		}
		return hex.EncodeToString(keyID)
	}
	return hex.EncodeToString(e.Value)
}
