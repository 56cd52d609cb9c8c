package keys

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // DSA certificates must remain verifiable
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/asn1"
	"fmt"
	"io"
	"math/big"

	circled448 "github.com/cloudflare/circl/sign/ed448"
)

// dsaSignature is the DER SEQUENCE {r, s} used by both DSA and ECDSA.
type dsaSignature struct {
	R, S *big.Int
}

// Sign signs message with km's private key. For hash-based families the
// message is digested with hash first; Ed25519 and Ed448 sign the full
// message and ignore the hash selector entirely, which also defends
// against a caller smuggling a hash choice in for those families.
//
// DH keys cannot sign and fail immediately with ErrCapability.
func Sign(random io.Reader, km *KeyMaterial, hash crypto.Hash, message []byte) ([]byte, error) {
	if !km.Family.CanSign() {
		return nil, opErr("sign", km.Family, fmt.Errorf("%w: %s keys cannot sign", ErrCapability, km.Family))
	}
	if !km.HasPrivate() {
		return nil, opErr("sign", km.Family, fmt.Errorf("%w: no private components", ErrKeyFormat))
	}

	switch km.Family {
	case FamilyRSA:
		digest := digestFor(hash, message)
		sig, err := rsa.SignPKCS1v15(random, km.RSA.Private, hash, digest)
		if err != nil {
			return nil, opErr("sign", FamilyRSA, err)
		}
		return sig, nil

	case FamilyEC:
		priv, err := km.EC.toECDSAPrivate()
		if err != nil {
			return nil, opErr("sign", FamilyEC, err)
		}
		digest := digestFor(hash, message)
		sig, err := ecdsa.SignASN1(random, priv, digest)
		if err != nil {
			return nil, opErr("sign", FamilyEC, err)
		}
		return sig, nil

	case FamilyDSA:
		priv := &dsa.PrivateKey{
			PublicKey: dsa.PublicKey{
				Parameters: dsa.Parameters{P: km.DSA.P, Q: km.DSA.Q, G: km.DSA.G},
				Y:          km.DSA.Y,
			},
			X: km.DSA.X,
		}
		digest := truncateToQ(digestFor(hash, message), km.DSA.Q)
		r, s, err := dsa.Sign(random, priv, digest)
		if err != nil {
			return nil, opErr("sign", FamilyDSA, err)
		}
		return asn1.Marshal(dsaSignature{R: r, S: s})

	case FamilyEd25519:
		return ed25519.Sign(km.Ed.Private, message), nil

	case FamilyEd448:
		return circled448.Sign(km.Ed.Private, message, ""), nil
	}

	return nil, opErr("sign", km.Family, fmt.Errorf("%w: unknown family", ErrKeyFormat))
}

// Verify checks a signature over message against km's public key.
//
// The boolean is the cryptographic outcome. A non-nil error means the
// verification could not be attempted at all (no arithmetic for the
// curve, a family that cannot sign) — callers surface that as the
// tri-state "unknown" rather than "false".
func Verify(km *KeyMaterial, hash crypto.Hash, message, signature []byte) (bool, error) {
	if !km.Family.CanSign() {
		return false, opErr("verify", km.Family, fmt.Errorf("%w: %s keys cannot carry signatures", ErrCapability, km.Family))
	}

	switch km.Family {
	case FamilyRSA:
		digest := digestFor(hash, message)
		return rsa.VerifyPKCS1v15(km.RSA.Public, hash, digest, signature) == nil, nil

	case FamilyEC:
		pub, err := km.EC.toECDSAPublic()
		if err != nil {
			return false, opErr("verify", FamilyEC, err)
		}
		digest := digestFor(hash, message)
		return ecdsa.VerifyASN1(pub, digest, signature), nil

	case FamilyDSA:
		var sig dsaSignature
		if rest, err := asn1.Unmarshal(signature, &sig); err != nil || len(rest) > 0 {
			return false, nil
		}
		pub := &dsa.PublicKey{
			Parameters: dsa.Parameters{P: km.DSA.P, Q: km.DSA.Q, G: km.DSA.G},
			Y:          km.DSA.Y,
		}
		digest := truncateToQ(digestFor(hash, message), km.DSA.Q)
		return dsa.Verify(pub, digest, sig.R, sig.S), nil

	case FamilyEd25519:
		if len(km.Ed.Public) != ed25519.PublicKeySize {
			return false, opErr("verify", FamilyEd25519, fmt.Errorf("%w: malformed public key", ErrKeyLength))
		}
		return ed25519.Verify(km.Ed.Public, message, signature), nil

	case FamilyEd448:
		if len(km.Ed.Public) != circled448.PublicKeySize {
			return false, opErr("verify", FamilyEd448, fmt.Errorf("%w: malformed public key", ErrKeyLength))
		}
		return circled448.Verify(km.Ed.Public, message, signature, ""), nil
	}

	return false, opErr("verify", km.Family, fmt.Errorf("%w: unknown family", ErrKeyFormat))
}

// truncateToQ truncates a digest to the byte length of the DSA subgroup
// order, as FIPS 186-3 requires before signing or verifying.
func truncateToQ(digest []byte, q *big.Int) []byte {
	qLen := (q.BitLen() + 7) / 8
	if len(digest) > qLen {
		return digest[:qLen]
	}
	return digest
}

// digestFor hashes the message, or returns it unchanged when hash is 0
// (EdDSA-style full-message signing).
func digestFor(hash crypto.Hash, message []byte) []byte {
	if hash == 0 {
		return message
	}
	h := hash.New()
	h.Write(message)
	return h.Sum(nil)
}
