package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"io"

	circled448 "github.com/cloudflare/circl/sign/ed448"
)

// GenerateSpec describes the key pair to generate.
type GenerateSpec struct {
	Family Family
	Bits   int     // RSA modulus size; 2048 when zero
	Curve  CurveID // EC curve; prime256v1 when empty
}

// Generate produces a fresh key pair for the requested family using the
// provided random source.
//
// DSA and DH return ErrCapability: those families are import-only because
// this layer does not implement safe-parameter sampling. EC generation is
// limited to curves with arithmetic support.
func Generate(random io.Reader, spec GenerateSpec) (*KeyMaterial, error) {
	if !spec.Family.CanGenerate() {
		return nil, opErr("generate", spec.Family, fmt.Errorf("%w: %s keys may only be supplied, not generated", ErrCapability, spec.Family))
	}

	switch spec.Family {
	case FamilyRSA:
		bits := spec.Bits
		if bits == 0 {
			bits = 2048
		}
		if bits < 1024 || bits > 8192 {
			return nil, opErr("generate", FamilyRSA, fmt.Errorf("%w: RSA size %d out of range", ErrKeyFormat, bits))
		}
		priv, err := rsa.GenerateKey(random, bits)
		if err != nil {
			return nil, opErr("generate", FamilyRSA, err)
		}
		return fromRSAPrivate(priv), nil

	case FamilyEC:
		curve := spec.Curve
		if curve == "" {
			curve = CurveP256
		}
		if !curve.IsValid() {
			return nil, opErr("generate", FamilyEC, fmt.Errorf("%w: unknown curve %q", ErrKeyFormat, curve))
		}
		if !curve.HasArithmetic() {
			return nil, opErr("generate", FamilyEC, fmt.Errorf("%w: no arithmetic support for curve %s", ErrCapability, curve))
		}
		priv, err := ecdsa.GenerateKey(curve.stdCurve(), random)
		if err != nil {
			return nil, opErr("generate", FamilyEC, err)
		}
		return fromECDSAPrivate(priv, curve)

	case FamilyEd25519:
		pub, priv, err := ed25519.GenerateKey(random)
		if err != nil {
			return nil, opErr("generate", FamilyEd25519, err)
		}
		return &KeyMaterial{Family: FamilyEd25519, Ed: &EdKey{Public: pub, Private: priv}}, nil

	case FamilyEd448:
		pub, priv, err := circled448.GenerateKey(random)
		if err != nil {
			return nil, opErr("generate", FamilyEd448, err)
		}
		return &KeyMaterial{Family: FamilyEd448, Ed: &EdKey{Public: pub, Private: priv}}, nil
	}

	return nil, opErr("generate", spec.Family, fmt.Errorf("%w: unknown family", ErrKeyFormat))
}
