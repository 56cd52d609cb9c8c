package keys

import (
	"crypto/ed25519"
	"fmt"
	"math/big"

	circled448 "github.com/cloudflare/circl/sign/ed448"
)

// DerivePublic returns a public-only copy of km, computing missing public
// components from the private ones where the family permits it.
func DerivePublic(km *KeyMaterial) (*KeyMaterial, error) {
	switch km.Family {
	case FamilyRSA:
		if km.RSA == nil {
			return nil, opErr("derive", FamilyRSA, fmt.Errorf("%w: empty key", ErrKeyFormat))
		}
		pub := km.RSA.Public
		if pub == nil && km.RSA.Private != nil {
			pub = &km.RSA.Private.PublicKey
		}
		if pub == nil {
			return nil, opErr("derive", FamilyRSA, fmt.Errorf("%w: no public components", ErrKeyFormat))
		}
		return &KeyMaterial{Family: FamilyRSA, RSA: &RSAKey{Public: pub}}, nil

	case FamilyEC:
		if km.EC == nil {
			return nil, opErr("derive", FamilyEC, fmt.Errorf("%w: empty key", ErrKeyFormat))
		}
		point := km.EC.Point
		if len(point) == 0 {
			if len(km.EC.Scalar) == 0 {
				return nil, opErr("derive", FamilyEC, fmt.Errorf("%w: no key components", ErrKeyFormat))
			}
			if !km.EC.Curve.HasArithmetic() {
				return nil, opErr("derive", FamilyEC, fmt.Errorf("%w: cannot derive public point on curve %s", ErrCapability, km.EC.Curve))
			}
			point = pointFromScalar(km.EC.Curve, km.EC.Scalar)
		}
		return &KeyMaterial{Family: FamilyEC, EC: &ECKey{Curve: km.EC.Curve, Point: point}}, nil

	case FamilyEd25519:
		if km.Ed == nil {
			return nil, opErr("derive", FamilyEd25519, fmt.Errorf("%w: empty key", ErrKeyFormat))
		}
		pub := km.Ed.Public
		if len(pub) == 0 && len(km.Ed.Private) == ed25519.PrivateKeySize {
			pub = ed25519.PrivateKey(km.Ed.Private).Public().(ed25519.PublicKey)
		}
		if len(pub) == 0 {
			return nil, opErr("derive", FamilyEd25519, fmt.Errorf("%w: no public key", ErrKeyFormat))
		}
		return &KeyMaterial{Family: FamilyEd25519, Ed: &EdKey{Public: pub}}, nil

	case FamilyEd448:
		if km.Ed == nil {
			return nil, opErr("derive", FamilyEd448, fmt.Errorf("%w: empty key", ErrKeyFormat))
		}
		pub := km.Ed.Public
		if len(pub) == 0 && len(km.Ed.Private) == circled448.PrivateKeySize {
			pub = circled448.PrivateKey(km.Ed.Private).Public().(circled448.PublicKey)
		}
		if len(pub) == 0 {
			return nil, opErr("derive", FamilyEd448, fmt.Errorf("%w: no public key", ErrKeyFormat))
		}
		return &KeyMaterial{Family: FamilyEd448, Ed: &EdKey{Public: pub}}, nil

	case FamilyDSA:
		if km.DSA == nil || km.DSA.P == nil {
			return nil, opErr("derive", FamilyDSA, fmt.Errorf("%w: missing parameters", ErrKeyFormat))
		}
		y := km.DSA.Y
		if y == nil {
			if km.DSA.X == nil {
				return nil, opErr("derive", FamilyDSA, fmt.Errorf("%w: no key components", ErrKeyFormat))
			}
			y = new(big.Int).Exp(km.DSA.G, km.DSA.X, km.DSA.P)
		}
		return &KeyMaterial{Family: FamilyDSA, DSA: &DSAKey{P: km.DSA.P, Q: km.DSA.Q, G: km.DSA.G, Y: y}}, nil

	case FamilyDH:
		if km.DH == nil || km.DH.P == nil {
			return nil, opErr("derive", FamilyDH, fmt.Errorf("%w: missing parameters", ErrKeyFormat))
		}
		y := km.DH.Y
		if y == nil {
			if km.DH.X == nil {
				return nil, opErr("derive", FamilyDH, fmt.Errorf("%w: no key components", ErrKeyFormat))
			}
			y = new(big.Int).Exp(km.DH.G, km.DH.X, km.DH.P)
		}
		return &KeyMaterial{Family: FamilyDH, DH: &DHKey{P: km.DH.P, G: km.DH.G, Y: y}}, nil
	}

	return nil, opErr("derive", km.Family, fmt.Errorf("%w: unknown family", ErrKeyFormat))
}
