// Package keys provides the uniform key material abstraction used by the
// certificate toolkit. It models six key families (RSA, EC, Ed25519, Ed448,
// DSA, DH) as an explicit tagged union with a single dispatch table per
// operation, instead of exception-driven probing across family parsers.
package keys

import (
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/asn1"
	"fmt"
	"math/big"
	"strings"
)

// Family identifies a key algorithm family.
type Family string

const (
	FamilyRSA     Family = "rsa"
	FamilyEC      Family = "ec"
	FamilyEd25519 Family = "ed25519"
	FamilyEd448   Family = "ed448"
	FamilyDSA     Family = "dsa"
	FamilyDH      Family = "dh"
)

// String returns the family identifier as a string.
func (f Family) String() string { return string(f) }

// capabilitySet records what a key family may be used for.
type capabilitySet struct {
	Sign     bool // can act as a certificate signer
	CSR      bool // can self-attest a certificate request
	Generate bool // fresh key pairs can be produced
	PKCS12   bool // private key may be shrouded into a PKCS#12 bundle
}

// capabilities is the per-family capability table.
//
// DSA and DH keys may only be supplied, never generated: this layer does
// not implement safe-parameter sampling. DH keys cannot sign at all.
// Ed25519/Ed448 sign certificates but not CSRs, since the request path
// assumes a hash-based signature. PKCS#12 output is restricted to RSA.
var capabilities = map[Family]capabilitySet{
	FamilyRSA:     {Sign: true, CSR: true, Generate: true, PKCS12: true},
	FamilyEC:      {Sign: true, CSR: true, Generate: true},
	FamilyEd25519: {Sign: true, Generate: true},
	FamilyEd448:   {Sign: true, Generate: true},
	FamilyDSA:     {Sign: true, CSR: true},
	FamilyDH:      {},
}

// CanSign returns true if the family can act as a certificate signer.
func (f Family) CanSign() bool { return capabilities[f].Sign }

// CanRequest returns true if the family can sign a certificate request.
func (f Family) CanRequest() bool { return capabilities[f].CSR }

// CanGenerate returns true if fresh key pairs can be generated.
func (f Family) CanGenerate() bool { return capabilities[f].Generate }

// CanPKCS12 returns true if the private key may be packed into PKCS#12.
func (f Family) CanPKCS12() bool { return capabilities[f].PKCS12 }

// CurveID identifies an elliptic curve by its OpenSSL-style short name.
type CurveID string

const (
	CurveP256            CurveID = "prime256v1"
	CurveP384            CurveID = "secp384r1"
	CurveP521            CurveID = "secp521r1"
	CurveSecp256k1       CurveID = "secp256k1"
	CurveBrainpoolP256r1 CurveID = "brainpoolP256r1"
	CurveBrainpoolP384r1 CurveID = "brainpoolP384r1"
	CurveBrainpoolP512r1 CurveID = "brainpoolP512r1"
)

// curveInfo holds per-curve metadata.
type curveInfo struct {
	OID     asn1.ObjectIdentifier
	ByteLen int            // field size in bytes; scalars are zero-padded to this
	Std     elliptic.Curve // nil when the standard library has no arithmetic
	JWK     string         // RFC 7518 curve name, "" when none is defined
}

// curves maps CurveID to its metadata. The map order is irrelevant;
// probeCurveOrder below fixes the sequential probing order.
var curves = map[CurveID]curveInfo{
	CurveP256:            {OID: asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}, ByteLen: 32, Std: elliptic.P256(), JWK: "P-256"},
	CurveP384:            {OID: asn1.ObjectIdentifier{1, 3, 132, 0, 34}, ByteLen: 48, Std: elliptic.P384(), JWK: "P-384"},
	CurveP521:            {OID: asn1.ObjectIdentifier{1, 3, 132, 0, 35}, ByteLen: 66, Std: elliptic.P521(), JWK: "P-521"},
	CurveSecp256k1:       {OID: asn1.ObjectIdentifier{1, 3, 132, 0, 10}, ByteLen: 32},
	CurveBrainpoolP256r1: {OID: asn1.ObjectIdentifier{1, 3, 36, 3, 3, 2, 8, 1, 1, 7}, ByteLen: 32},
	CurveBrainpoolP384r1: {OID: asn1.ObjectIdentifier{1, 3, 36, 3, 3, 2, 8, 1, 1, 11}, ByteLen: 48},
	CurveBrainpoolP512r1: {OID: asn1.ObjectIdentifier{1, 3, 36, 3, 3, 2, 8, 1, 1, 13}, ByteLen: 64},
}

// probeCurveOrder is the documented order in which curves are tried when
// parsing ambiguous EC input.
var probeCurveOrder = []CurveID{
	CurveP256, CurveP384, CurveP521,
	CurveSecp256k1,
	CurveBrainpoolP256r1, CurveBrainpoolP384r1, CurveBrainpoolP512r1,
}

// IsValid returns true if the curve is recognized.
func (c CurveID) IsValid() bool {
	_, ok := curves[c]
	return ok
}

// OID returns the curve's object identifier.
func (c CurveID) OID() asn1.ObjectIdentifier { return curves[c].OID }

// ByteLen returns the curve's field size in bytes.
func (c CurveID) ByteLen() int { return curves[c].ByteLen }

// HasArithmetic returns true if point arithmetic is available for the
// curve. Keys on other curves can be encoded and decoded but not used
// for signing or public-key derivation.
func (c CurveID) HasArithmetic() bool { return curves[c].Std != nil }

// stdCurve returns the standard-library curve, or nil.
func (c CurveID) stdCurve() elliptic.Curve { return curves[c].Std }

// CurveByOID resolves a curve OID to its CurveID.
func CurveByOID(oid asn1.ObjectIdentifier) (CurveID, bool) {
	for id, info := range curves {
		if info.OID.Equal(oid) {
			return id, true
		}
	}
	return "", false
}

// curveAliases maps NIST and SECG spellings onto the OpenSSL short
// names used as CurveIDs.
var curveAliases = map[string]CurveID{
	"p-256":     CurveP256,
	"p256":      CurveP256,
	"secp256r1": CurveP256,
	"p-384":     CurveP384,
	"p384":      CurveP384,
	"p-521":     CurveP521,
	"p521":      CurveP521,
}

// ParseCurve parses a curve name. The OpenSSL short names are
// canonical; the NIST P-xxx spellings are accepted as aliases.
func ParseCurve(name string) (CurveID, error) {
	c := CurveID(name)
	if c.IsValid() {
		return c, nil
	}
	if alias, ok := curveAliases[strings.ToLower(name)]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: unknown curve %q", ErrKeyFormat, name)
}

// RSAKey holds RSA key components. Private is nil for public-only material.
type RSAKey struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// ECKey holds an elliptic-curve key. The public point is always kept in
// uncompressed encoding (leading 0x04); the scalar is fixed-width,
// zero-padded to the curve's byte length. Scalar is nil for public-only
// material.
type ECKey struct {
	Curve  CurveID
	Point  []byte
	Scalar []byte
}

// EdKey holds an Edwards-curve key (Ed25519 or Ed448, disambiguated by
// the enclosing KeyMaterial's family). Private holds the full private
// key (seed plus public suffix); nil for public-only material.
type EdKey struct {
	Public  []byte
	Private []byte
}

// DSAKey holds DSA domain parameters and key values. X is nil for
// public-only material.
type DSAKey struct {
	P, Q, G *big.Int
	Y       *big.Int
	X       *big.Int
}

// DHKey holds Diffie-Hellman domain parameters and key values. X is nil
// for public-only material.
type DHKey struct {
	P, G *big.Int
	Y    *big.Int
	X    *big.Int
}

// KeyMaterial is the tagged union over the six key families. Exactly one
// of the component fields is non-nil, matching Family.
type KeyMaterial struct {
	Family Family

	RSA *RSAKey
	EC  *ECKey
	Ed  *EdKey
	DSA *DSAKey
	DH  *DHKey
}

// HasPrivate reports whether private components are present.
func (km *KeyMaterial) HasPrivate() bool {
	switch km.Family {
	case FamilyRSA:
		return km.RSA != nil && km.RSA.Private != nil
	case FamilyEC:
		return km.EC != nil && len(km.EC.Scalar) > 0
	case FamilyEd25519, FamilyEd448:
		return km.Ed != nil && len(km.Ed.Private) > 0
	case FamilyDSA:
		return km.DSA != nil && km.DSA.X != nil
	case FamilyDH:
		return km.DH != nil && km.DH.X != nil
	}
	return false
}

// Describe returns a human-readable algorithm description, e.g.
// "RSA 2048-bit" or "EC prime256v1".
func (km *KeyMaterial) Describe() string {
	switch km.Family {
	case FamilyRSA:
		if km.RSA != nil && km.RSA.Public != nil {
			return fmt.Sprintf("RSA %d-bit", km.RSA.Public.N.BitLen())
		}
		return "RSA"
	case FamilyEC:
		if km.EC != nil {
			return fmt.Sprintf("EC %s", km.EC.Curve)
		}
		return "EC"
	case FamilyEd25519:
		return "Ed25519"
	case FamilyEd448:
		return "Ed448"
	case FamilyDSA:
		if km.DSA != nil && km.DSA.P != nil {
			return fmt.Sprintf("DSA %d-bit", km.DSA.P.BitLen())
		}
		return "DSA"
	case FamilyDH:
		if km.DH != nil && km.DH.P != nil {
			return fmt.Sprintf("DH %d-bit", km.DH.P.BitLen())
		}
		return "DH"
	}
	return "unknown"
}

// padScalar left-pads b with zeros to length n.
// Returns an error if b is longer than n.
func padScalar(b []byte, n int) ([]byte, error) {
	if len(b) > n {
		return nil, fmt.Errorf("%w: scalar is %d bytes, curve field is %d bytes", ErrKeyLength, len(b), n)
	}
	if len(b) == n {
		return b, nil
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out, nil
}
