package keys

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
)

// Key algorithm OIDs.
var (
	oidRSA      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidECPublic = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidEd25519  = asn1.ObjectIdentifier{1, 3, 101, 112}
	oidEd448    = asn1.ObjectIdentifier{1, 3, 101, 113}
	oidDSA      = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}
	oidDHPKCS3  = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 3, 1}
	oidDHX942   = asn1.ObjectIdentifier{1, 2, 840, 10046, 2, 1}
)

// subjectPublicKeyInfo is the ASN.1 SubjectPublicKeyInfo structure.
type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// rsaPublicKey is the PKCS#1 RSAPublicKey structure.
type rsaPublicKey struct {
	N *big.Int
	E int
}

// dssParameters is the Dss-Parms structure shared by DSA SPKI and PKCS#8.
type dssParameters struct {
	P, Q, G *big.Int
}

// dhParameters accepts both PKCS#3 DHParameter {p, g, privateValueLength?}
// and X9.42 DomainParameters {p, g, q, j?}. Only p and g are retained.
type dhParameters struct {
	P    *big.Int
	G    *big.Int
	Rest []*big.Int `asn1:"optional,omitempty"`
}

// MarshalSPKI encodes the public half of km as a DER SubjectPublicKeyInfo.
//
// Encodings per family: RSA wraps a PKCS#1 RSAPublicKey; EC carries the
// curve OID in the algorithm parameters and the uncompressed point in the
// bit string; Ed25519/Ed448 carry the raw 32/57-byte key; DSA and DH carry
// domain parameters in the algorithm parameters and the public value as a
// DER INTEGER in the bit string.
func MarshalSPKI(km *KeyMaterial) ([]byte, error) {
	var spki subjectPublicKeyInfo

	switch km.Family {
	case FamilyRSA:
		if km.RSA == nil || km.RSA.Public == nil {
			return nil, opErr("export", FamilyRSA, fmt.Errorf("%w: missing public key", ErrKeyFormat))
		}
		keyBytes, err := asn1.Marshal(rsaPublicKey{N: km.RSA.Public.N, E: km.RSA.Public.E})
		if err != nil {
			return nil, opErr("export", FamilyRSA, err)
		}
		spki.Algorithm = pkix.AlgorithmIdentifier{Algorithm: oidRSA, Parameters: asn1.NullRawValue}
		spki.PublicKey = asn1.BitString{Bytes: keyBytes, BitLength: len(keyBytes) * 8}

	case FamilyEC:
		if km.EC == nil || len(km.EC.Point) == 0 {
			return nil, opErr("export", FamilyEC, fmt.Errorf("%w: missing public point", ErrKeyFormat))
		}
		if err := checkPoint(km.EC.Curve, km.EC.Point); err != nil {
			return nil, opErr("export", FamilyEC, err)
		}
		params, err := asn1.Marshal(km.EC.Curve.OID())
		if err != nil {
			return nil, opErr("export", FamilyEC, err)
		}
		spki.Algorithm = pkix.AlgorithmIdentifier{
			Algorithm:  oidECPublic,
			Parameters: asn1.RawValue{FullBytes: params},
		}
		spki.PublicKey = asn1.BitString{Bytes: km.EC.Point, BitLength: len(km.EC.Point) * 8}

	case FamilyEd25519, FamilyEd448:
		if km.Ed == nil || len(km.Ed.Public) == 0 {
			return nil, opErr("export", km.Family, fmt.Errorf("%w: missing public key", ErrKeyFormat))
		}
		oid := oidEd25519
		want := 32
		if km.Family == FamilyEd448 {
			oid = oidEd448
			want = 57
		}
		if len(km.Ed.Public) != want {
			return nil, opErr("export", km.Family, fmt.Errorf("%w: public key is %d bytes, want %d", ErrKeyLength, len(km.Ed.Public), want))
		}
		spki.Algorithm = pkix.AlgorithmIdentifier{Algorithm: oid}
		spki.PublicKey = asn1.BitString{Bytes: km.Ed.Public, BitLength: len(km.Ed.Public) * 8}

	case FamilyDSA:
		if km.DSA == nil || km.DSA.Y == nil {
			return nil, opErr("export", FamilyDSA, fmt.Errorf("%w: missing public value", ErrKeyFormat))
		}
		params, err := asn1.Marshal(dssParameters{P: km.DSA.P, Q: km.DSA.Q, G: km.DSA.G})
		if err != nil {
			return nil, opErr("export", FamilyDSA, err)
		}
		keyBytes, err := asn1.Marshal(km.DSA.Y)
		if err != nil {
			return nil, opErr("export", FamilyDSA, err)
		}
		spki.Algorithm = pkix.AlgorithmIdentifier{
			Algorithm:  oidDSA,
			Parameters: asn1.RawValue{FullBytes: params},
		}
		spki.PublicKey = asn1.BitString{Bytes: keyBytes, BitLength: len(keyBytes) * 8}

	case FamilyDH:
		if km.DH == nil || km.DH.Y == nil {
			return nil, opErr("export", FamilyDH, fmt.Errorf("%w: missing public value", ErrKeyFormat))
		}
		params, err := asn1.Marshal(dhParameters{P: km.DH.P, G: km.DH.G})
		if err != nil {
			return nil, opErr("export", FamilyDH, err)
		}
		keyBytes, err := asn1.Marshal(km.DH.Y)
		if err != nil {
			return nil, opErr("export", FamilyDH, err)
		}
		spki.Algorithm = pkix.AlgorithmIdentifier{
			Algorithm:  oidDHPKCS3,
			Parameters: asn1.RawValue{FullBytes: params},
		}
		spki.PublicKey = asn1.BitString{Bytes: keyBytes, BitLength: len(keyBytes) * 8}

	default:
		return nil, opErr("export", km.Family, fmt.Errorf("%w: unknown family", ErrKeyFormat))
	}

	return asn1.Marshal(spki)
}

// ParseSPKI decodes a DER SubjectPublicKeyInfo into public-only KeyMaterial.
func ParseSPKI(der []byte) (*KeyMaterial, error) {
	var spki subjectPublicKeyInfo
	rest, err := asn1.Unmarshal(der, &spki)
	if err != nil {
		return nil, opErr("parse", "", fmt.Errorf("%w: %v", ErrParse, err))
	}
	if len(rest) > 0 {
		return nil, opErr("parse", "", fmt.Errorf("%w: trailing data after SubjectPublicKeyInfo", ErrParse))
	}

	keyBytes := spki.PublicKey.RightAlign()
	oid := spki.Algorithm.Algorithm

	switch {
	case oid.Equal(oidRSA):
		var pub rsaPublicKey
		if _, err := asn1.Unmarshal(keyBytes, &pub); err != nil {
			return nil, opErr("parse", FamilyRSA, fmt.Errorf("%w: %v", ErrParse, err))
		}
		return rsaPublicMaterial(pub.N, pub.E), nil

	case oid.Equal(oidECPublic):
		var curveOID asn1.ObjectIdentifier
		if _, err := asn1.Unmarshal(spki.Algorithm.Parameters.FullBytes, &curveOID); err != nil {
			return nil, opErr("parse", FamilyEC, fmt.Errorf("%w: missing curve parameters", ErrParse))
		}
		curve, ok := CurveByOID(curveOID)
		if !ok {
			return nil, opErr("parse", FamilyEC, fmt.Errorf("%w: unsupported curve OID %v", ErrKeyFormat, curveOID))
		}
		if err := checkPoint(curve, keyBytes); err != nil {
			return nil, opErr("parse", FamilyEC, err)
		}
		return &KeyMaterial{Family: FamilyEC, EC: &ECKey{Curve: curve, Point: keyBytes}}, nil

	case oid.Equal(oidEd25519):
		if len(keyBytes) != 32 {
			return nil, opErr("parse", FamilyEd25519, fmt.Errorf("%w: public key is %d bytes, want 32", ErrKeyLength, len(keyBytes)))
		}
		return &KeyMaterial{Family: FamilyEd25519, Ed: &EdKey{Public: keyBytes}}, nil

	case oid.Equal(oidEd448):
		if len(keyBytes) != 57 {
			return nil, opErr("parse", FamilyEd448, fmt.Errorf("%w: public key is %d bytes, want 57", ErrKeyLength, len(keyBytes)))
		}
		return &KeyMaterial{Family: FamilyEd448, Ed: &EdKey{Public: keyBytes}}, nil

	case oid.Equal(oidDSA):
		var params dssParameters
		if _, err := asn1.Unmarshal(spki.Algorithm.Parameters.FullBytes, &params); err != nil {
			return nil, opErr("parse", FamilyDSA, fmt.Errorf("%w: missing DSA parameters", ErrParse))
		}
		var y *big.Int
		if _, err := asn1.Unmarshal(keyBytes, &y); err != nil {
			return nil, opErr("parse", FamilyDSA, fmt.Errorf("%w: %v", ErrParse, err))
		}
		return &KeyMaterial{Family: FamilyDSA, DSA: &DSAKey{P: params.P, Q: params.Q, G: params.G, Y: y}}, nil

	case oid.Equal(oidDHPKCS3), oid.Equal(oidDHX942):
		var params dhParameters
		if _, err := asn1.Unmarshal(spki.Algorithm.Parameters.FullBytes, &params); err != nil {
			return nil, opErr("parse", FamilyDH, fmt.Errorf("%w: missing DH parameters", ErrParse))
		}
		var y *big.Int
		if _, err := asn1.Unmarshal(keyBytes, &y); err != nil {
			return nil, opErr("parse", FamilyDH, fmt.Errorf("%w: %v", ErrParse, err))
		}
		return &KeyMaterial{Family: FamilyDH, DH: &DHKey{P: params.P, G: params.G, Y: y}}, nil
	}

	return nil, opErr("parse", "", fmt.Errorf("%w: unsupported key algorithm OID %v", ErrKeyFormat, oid))
}

// checkPoint validates that point is a well-formed uncompressed point for
// the curve: a leading 0x04 byte followed by two field-width coordinates.
func checkPoint(curve CurveID, point []byte) error {
	if !curve.IsValid() {
		return fmt.Errorf("%w: unknown curve %q", ErrKeyFormat, curve)
	}
	if len(point) == 0 || point[0] != 0x04 {
		return fmt.Errorf("%w: public point is not uncompressed-encoded", ErrKeyFormat)
	}
	want := 1 + 2*curve.ByteLen()
	if len(point) != want {
		return fmt.Errorf("%w: point is %d bytes, curve %s requires %d", ErrKeyLength, len(point), curve, want)
	}
	return nil
}

// rsaPublicMaterial builds public-only RSA key material.
func rsaPublicMaterial(n *big.Int, e int) *KeyMaterial {
	return &KeyMaterial{
		Family: FamilyRSA,
		RSA:    &RSAKey{Public: &rsa.PublicKey{N: n, E: e}},
	}
}

// SPKIEqual reports whether two key materials have identical
// SubjectPublicKeyInfo encodings.
func SPKIEqual(a, b *KeyMaterial) bool {
	da, err := MarshalSPKI(a)
	if err != nil {
		return false
	}
	db, err := MarshalSPKI(b)
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}
