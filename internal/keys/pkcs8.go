package keys

import (
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"

	circled448 "github.com/cloudflare/circl/sign/ed448"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// pkcs8 is the ASN.1 PrivateKeyInfo structure (RFC 5958). Attributes are
// tolerated on parse and never emitted.
type pkcs8 struct {
	Version    int
	Algo       pkix.AlgorithmIdentifier
	PrivateKey []byte
	Attributes asn1.RawValue `asn1:"optional,tag:0"`
}

// ecPrivateKey is the SEC 1 / RFC 5915 ECPrivateKey structure.
type ecPrivateKey struct {
	Version       int
	PrivateKey    []byte
	NamedCurveOID asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey     asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

// openSSLDSAPrivateKey is the legacy "DSA PRIVATE KEY" PEM body.
type openSSLDSAPrivateKey struct {
	Version int
	P, Q, G *big.Int
	Y, X    *big.Int
}

// MarshalPKCS8 encodes the private half of km as DER PKCS#8 PrivateKeyInfo.
//
// The standard library covers RSA; the remaining families are assembled
// here because crypto/x509 either rejects them (DSA, DH, Ed448) or cannot
// represent their curves (EC beyond the NIST set).
func MarshalPKCS8(km *KeyMaterial) ([]byte, error) {
	if !km.HasPrivate() {
		return nil, opErr("export", km.Family, fmt.Errorf("%w: no private components", ErrKeyFormat))
	}

	var p8 pkcs8

	switch km.Family {
	case FamilyRSA:
		return x509.MarshalPKCS8PrivateKey(km.RSA.Private)

	case FamilyEC:
		inner, err := marshalSEC1(km.EC, false)
		if err != nil {
			return nil, opErr("export", FamilyEC, err)
		}
		params, err := asn1.Marshal(km.EC.Curve.OID())
		if err != nil {
			return nil, opErr("export", FamilyEC, err)
		}
		p8.Algo = pkix.AlgorithmIdentifier{
			Algorithm:  oidECPublic,
			Parameters: asn1.RawValue{FullBytes: params},
		}
		p8.PrivateKey = inner

	case FamilyEd25519, FamilyEd448:
		oid := oidEd25519
		seed := km.Ed.Private
		if km.Family == FamilyEd25519 {
			if len(seed) != ed25519.PrivateKeySize {
				return nil, opErr("export", km.Family, fmt.Errorf("%w: private key is %d bytes, want %d", ErrKeyLength, len(seed), ed25519.PrivateKeySize))
			}
			seed = seed[:ed25519.SeedSize]
		} else {
			oid = oidEd448
			if len(seed) != circled448.PrivateKeySize {
				return nil, opErr("export", km.Family, fmt.Errorf("%w: private key is %d bytes, want %d", ErrKeyLength, len(seed), circled448.PrivateKeySize))
			}
			seed = seed[:circled448.SeedSize]
		}
		curvePriv, err := asn1.Marshal(seed)
		if err != nil {
			return nil, opErr("export", km.Family, err)
		}
		p8.Algo = pkix.AlgorithmIdentifier{Algorithm: oid}
		p8.PrivateKey = curvePriv

	case FamilyDSA:
		params, err := asn1.Marshal(dssParameters{P: km.DSA.P, Q: km.DSA.Q, G: km.DSA.G})
		if err != nil {
			return nil, opErr("export", FamilyDSA, err)
		}
		inner, err := asn1.Marshal(km.DSA.X)
		if err != nil {
			return nil, opErr("export", FamilyDSA, err)
		}
		p8.Algo = pkix.AlgorithmIdentifier{
			Algorithm:  oidDSA,
			Parameters: asn1.RawValue{FullBytes: params},
		}
		p8.PrivateKey = inner

	case FamilyDH:
		params, err := asn1.Marshal(dhParameters{P: km.DH.P, G: km.DH.G})
		if err != nil {
			return nil, opErr("export", FamilyDH, err)
		}
		inner, err := asn1.Marshal(km.DH.X)
		if err != nil {
			return nil, opErr("export", FamilyDH, err)
		}
		p8.Algo = pkix.AlgorithmIdentifier{
			Algorithm:  oidDHPKCS3,
			Parameters: asn1.RawValue{FullBytes: params},
		}
		p8.PrivateKey = inner

	default:
		return nil, opErr("export", km.Family, fmt.Errorf("%w: unknown family", ErrKeyFormat))
	}

	return asn1.Marshal(p8)
}

// ParsePKCS8 decodes a DER PKCS#8 PrivateKeyInfo into KeyMaterial with
// private components present. Missing public parts are derived where the
// family permits it.
func ParsePKCS8(der []byte) (*KeyMaterial, error) {
	var p8 pkcs8
	if rest, err := asn1.Unmarshal(der, &p8); err != nil {
		return nil, opErr("parse", "", fmt.Errorf("%w: %v", ErrParse, err))
	} else if len(rest) > 0 {
		return nil, opErr("parse", "", fmt.Errorf("%w: trailing data after PrivateKeyInfo", ErrParse))
	}

	oid := p8.Algo.Algorithm

	switch {
	case oid.Equal(oidRSA):
		priv, err := x509.ParsePKCS1PrivateKey(p8.PrivateKey)
		if err != nil {
			return nil, opErr("parse", FamilyRSA, fmt.Errorf("%w: %v", ErrParse, err))
		}
		return fromRSAPrivate(priv), nil

	case oid.Equal(oidECPublic):
		var curveOID asn1.ObjectIdentifier
		if _, err := asn1.Unmarshal(p8.Algo.Parameters.FullBytes, &curveOID); err != nil {
			return nil, opErr("parse", FamilyEC, fmt.Errorf("%w: missing curve parameters", ErrParse))
		}
		curve, ok := CurveByOID(curveOID)
		if !ok {
			return nil, opErr("parse", FamilyEC, fmt.Errorf("%w: unsupported curve OID %v", ErrKeyFormat, curveOID))
		}
		return parseSEC1(p8.PrivateKey, curve)

	case oid.Equal(oidEd25519):
		seed, err := parseCurvePrivateKey(p8.PrivateKey, ed25519.SeedSize)
		if err != nil {
			return nil, opErr("parse", FamilyEd25519, err)
		}
		priv := ed25519.NewKeyFromSeed(seed)
		return &KeyMaterial{
			Family: FamilyEd25519,
			Ed:     &EdKey{Public: priv.Public().(ed25519.PublicKey), Private: priv},
		}, nil

	case oid.Equal(oidEd448):
		seed, err := parseCurvePrivateKey(p8.PrivateKey, circled448.SeedSize)
		if err != nil {
			return nil, opErr("parse", FamilyEd448, err)
		}
		priv := circled448.NewKeyFromSeed(seed)
		return &KeyMaterial{
			Family: FamilyEd448,
			Ed:     &EdKey{Public: priv.Public().(circled448.PublicKey), Private: priv},
		}, nil

	case oid.Equal(oidDSA):
		var params dssParameters
		if _, err := asn1.Unmarshal(p8.Algo.Parameters.FullBytes, &params); err != nil {
			return nil, opErr("parse", FamilyDSA, fmt.Errorf("%w: missing DSA parameters", ErrParse))
		}
		var x *big.Int
		if _, err := asn1.Unmarshal(p8.PrivateKey, &x); err != nil {
			return nil, opErr("parse", FamilyDSA, fmt.Errorf("%w: %v", ErrParse, err))
		}
		k := &DSAKey{P: params.P, Q: params.Q, G: params.G, X: x}
		k.Y = new(big.Int).Exp(k.G, k.X, k.P)
		return &KeyMaterial{Family: FamilyDSA, DSA: k}, nil

	case oid.Equal(oidDHPKCS3), oid.Equal(oidDHX942):
		var params dhParameters
		if _, err := asn1.Unmarshal(p8.Algo.Parameters.FullBytes, &params); err != nil {
			return nil, opErr("parse", FamilyDH, fmt.Errorf("%w: missing DH parameters", ErrParse))
		}
		var x *big.Int
		if _, err := asn1.Unmarshal(p8.PrivateKey, &x); err != nil {
			return nil, opErr("parse", FamilyDH, fmt.Errorf("%w: %v", ErrParse, err))
		}
		k := &DHKey{P: params.P, G: params.G, X: x}
		k.Y = new(big.Int).Exp(k.G, k.X, k.P)
		return &KeyMaterial{Family: FamilyDH, DH: k}, nil
	}

	return nil, opErr("parse", "", fmt.Errorf("%w: unsupported private key algorithm OID %v", ErrKeyFormat, oid))
}

// parseCurvePrivateKey unwraps the RFC 8410 CurvePrivateKey octet string.
func parseCurvePrivateKey(der []byte, want int) ([]byte, error) {
	var seed []byte
	if _, err := asn1.Unmarshal(der, &seed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(seed) != want {
		return nil, fmt.Errorf("%w: seed is %d bytes, want %d", ErrKeyLength, len(seed), want)
	}
	return seed, nil
}

// marshalSEC1 encodes an EC private key as SEC 1 ECPrivateKey. The curve
// OID is included only for the standalone "EC PRIVATE KEY" form; inside
// PKCS#8 the OID lives in the outer AlgorithmIdentifier.
func marshalSEC1(ec *ECKey, includeCurve bool) ([]byte, error) {
	if len(ec.Scalar) == 0 {
		return nil, fmt.Errorf("%w: no private scalar", ErrKeyFormat)
	}
	scalar, err := padScalar(ec.Scalar, ec.Curve.ByteLen())
	if err != nil {
		return nil, err
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(1)
		b.AddASN1OctetString(scalar)
		if includeCurve {
			b.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(ec.Curve.OID())
			})
		}
		if len(ec.Point) > 0 {
			b.AddASN1(cbasn1.Tag(1).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddASN1BitString(ec.Point)
			})
		}
	})
	return b.Bytes()
}

// parseSEC1 decodes a SEC 1 ECPrivateKey. If curve is empty the embedded
// curve OID is used; if neither is available the scalar length is matched
// against the curve probe order.
func parseSEC1(der []byte, curve CurveID) (*KeyMaterial, error) {
	var sec1 ecPrivateKey
	if _, err := asn1.Unmarshal(der, &sec1); err != nil {
		return nil, opErr("parse", FamilyEC, fmt.Errorf("%w: %v", ErrParse, err))
	}
	if sec1.Version != 1 {
		return nil, opErr("parse", FamilyEC, fmt.Errorf("%w: unsupported ECPrivateKey version %d", ErrParse, sec1.Version))
	}

	if curve == "" && len(sec1.NamedCurveOID) > 0 {
		c, ok := CurveByOID(sec1.NamedCurveOID)
		if !ok {
			return nil, opErr("parse", FamilyEC, fmt.Errorf("%w: unsupported curve OID %v", ErrKeyFormat, sec1.NamedCurveOID))
		}
		curve = c
	}
	if curve == "" {
		for _, c := range probeCurveOrder {
			if len(sec1.PrivateKey) == c.ByteLen() {
				curve = c
				break
			}
		}
	}
	if curve == "" {
		return nil, opErr("parse", FamilyEC, fmt.Errorf("%w: cannot determine curve", ErrKeyFormat))
	}

	scalar, err := padScalar(sec1.PrivateKey, curve.ByteLen())
	if err != nil {
		return nil, opErr("parse", FamilyEC, err)
	}

	km := &KeyMaterial{Family: FamilyEC, EC: &ECKey{Curve: curve, Scalar: scalar}}
	if len(sec1.PublicKey.Bytes) > 0 {
		point := sec1.PublicKey.RightAlign()
		if err := checkPoint(curve, point); err != nil {
			return nil, opErr("parse", FamilyEC, err)
		}
		km.EC.Point = point
	} else if curve.HasArithmetic() {
		km.EC.Point = pointFromScalar(curve, scalar)
	}
	return km, nil
}

// pointFromScalar computes the uncompressed public point for a scalar.
// Only valid for curves with arithmetic support.
func pointFromScalar(curve CurveID, scalar []byte) []byte {
	std := curve.stdCurve()
	x, y := std.ScalarBaseMult(scalar)
	return ellipticMarshal(std, x, y)
}

// fromRSAPrivate builds KeyMaterial from a standard-library RSA key.
func fromRSAPrivate(priv *rsa.PrivateKey) *KeyMaterial {
	return &KeyMaterial{
		Family: FamilyRSA,
		RSA:    &RSAKey{Public: &priv.PublicKey, Private: priv},
	}
}
