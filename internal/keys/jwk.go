package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// parseJWK decodes a JWK-like JSON document. JWK defines key types only
// for RSA, the NIST curves and Ed25519 (OKP); the remaining families have
// no JWK mapping and fail with ErrKeyFormat.
func parseJWK(data []byte) (*KeyMaterial, error) {
	key, err := jwk.ParseKey(data)
	if err != nil {
		return nil, opErr("parse", "", fmt.Errorf("%w: %v", ErrParse, err))
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, opErr("parse", "", fmt.Errorf("%w: %v", ErrKeyFormat, err))
	}

	switch k := raw.(type) {
	case *rsa.PrivateKey:
		return fromRSAPrivate(k), nil
	case *rsa.PublicKey:
		return &KeyMaterial{Family: FamilyRSA, RSA: &RSAKey{Public: k}}, nil
	case *ecdsa.PrivateKey:
		curve, err := curveFromStd(k.Curve)
		if err != nil {
			return nil, opErr("parse", FamilyEC, err)
		}
		return fromECDSAPrivate(k, curve)
	case *ecdsa.PublicKey:
		return fromECDSAPublic(k)
	case ed25519.PrivateKey:
		return &KeyMaterial{
			Family: FamilyEd25519,
			Ed:     &EdKey{Public: k.Public().(ed25519.PublicKey), Private: k},
		}, nil
	case ed25519.PublicKey:
		return &KeyMaterial{Family: FamilyEd25519, Ed: &EdKey{Public: k}}, nil
	}

	return nil, opErr("parse", "", fmt.Errorf("%w: JWK key type %T has no supported mapping", ErrKeyFormat, raw))
}

// marshalJWK encodes km as a JWK JSON document. Private components are
// included when present. Ed448, DSA, DH and non-NIST curves have no JWK
// representation.
func marshalJWK(km *KeyMaterial) ([]byte, error) {
	raw, err := toStdKey(km)
	if err != nil {
		return nil, err
	}

	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, opErr("export", km.Family, fmt.Errorf("%w: %v", ErrKeyFormat, err))
	}
	return json.MarshalIndent(key, "", "  ")
}

// toStdKey converts km to the standard-library key value JWK encoding
// requires. Prefers the private form when present.
func toStdKey(km *KeyMaterial) (interface{}, error) {
	switch km.Family {
	case FamilyRSA:
		if km.RSA.Private != nil {
			return km.RSA.Private, nil
		}
		return km.RSA.Public, nil

	case FamilyEC:
		if len(km.EC.Scalar) > 0 {
			priv, err := km.EC.toECDSAPrivate()
			if err != nil {
				return nil, opErr("export", FamilyEC, err)
			}
			return priv, nil
		}
		pub, err := km.EC.toECDSAPublic()
		if err != nil {
			return nil, opErr("export", FamilyEC, err)
		}
		return pub, nil

	case FamilyEd25519:
		if len(km.Ed.Private) > 0 {
			return ed25519.PrivateKey(km.Ed.Private), nil
		}
		return ed25519.PublicKey(km.Ed.Public), nil
	}

	return nil, opErr("export", km.Family, fmt.Errorf("%w: family %s has no JWK mapping", ErrKeyFormat, km.Family))
}
