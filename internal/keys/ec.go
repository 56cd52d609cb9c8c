package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"math/big"
)

// ellipticMarshal encodes (x, y) as an uncompressed point with the fixed
// field width of the curve.
func ellipticMarshal(curve elliptic.Curve, x, y *big.Int) []byte {
	byteLen := (curve.Params().BitSize + 7) / 8
	out := make([]byte, 1+2*byteLen)
	out[0] = 0x04
	x.FillBytes(out[1 : 1+byteLen])
	y.FillBytes(out[1+byteLen:])
	return out
}

// toECDSAPublic converts an ECKey to a standard-library public key.
// Fails for curves without arithmetic support.
func (ec *ECKey) toECDSAPublic() (*ecdsa.PublicKey, error) {
	std := ec.Curve.stdCurve()
	if std == nil {
		return nil, fmt.Errorf("%w: no arithmetic support for curve %s", ErrCapability, ec.Curve)
	}
	if err := checkPoint(ec.Curve, ec.Point); err != nil {
		return nil, err
	}
	byteLen := ec.Curve.ByteLen()
	x := new(big.Int).SetBytes(ec.Point[1 : 1+byteLen])
	y := new(big.Int).SetBytes(ec.Point[1+byteLen:])
	if !std.IsOnCurve(x, y) {
		return nil, fmt.Errorf("%w: point is not on curve %s", ErrKeyFormat, ec.Curve)
	}
	return &ecdsa.PublicKey{Curve: std, X: x, Y: y}, nil
}

// toECDSAPrivate converts an ECKey with a scalar to a standard-library
// private key. Fails for curves without arithmetic support.
func (ec *ECKey) toECDSAPrivate() (*ecdsa.PrivateKey, error) {
	if len(ec.Scalar) == 0 {
		return nil, fmt.Errorf("%w: no private scalar", ErrKeyFormat)
	}
	pub, err := ec.toECDSAPublic()
	if err != nil {
		return nil, err
	}
	return &ecdsa.PrivateKey{
		PublicKey: *pub,
		D:         new(big.Int).SetBytes(ec.Scalar),
	}, nil
}

// fromECDSAPrivate builds KeyMaterial from a standard-library ECDSA key.
func fromECDSAPrivate(priv *ecdsa.PrivateKey, curve CurveID) (*KeyMaterial, error) {
	scalar, err := padScalar(priv.D.Bytes(), curve.ByteLen())
	if err != nil {
		return nil, err
	}
	return &KeyMaterial{
		Family: FamilyEC,
		EC: &ECKey{
			Curve:  curve,
			Point:  ellipticMarshal(priv.Curve, priv.X, priv.Y),
			Scalar: scalar,
		},
	}, nil
}

// fromECDSAPublic builds public-only KeyMaterial from a standard-library
// ECDSA public key.
func fromECDSAPublic(pub *ecdsa.PublicKey) (*KeyMaterial, error) {
	curve, err := curveFromStd(pub.Curve)
	if err != nil {
		return nil, err
	}
	return &KeyMaterial{
		Family: FamilyEC,
		EC: &ECKey{
			Curve: curve,
			Point: ellipticMarshal(pub.Curve, pub.X, pub.Y),
		},
	}, nil
}

// curveFromStd maps a standard-library curve back to its CurveID.
func curveFromStd(std elliptic.Curve) (CurveID, error) {
	for id, info := range curves {
		if info.Std == std {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: unrecognized curve %s", ErrKeyFormat, std.Params().Name)
}
