package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"

	circled448 "github.com/cloudflare/circl/sign/ed448"
)

// Parse decodes key material from text input. Formats are tried in a
// fixed priority order, stopping at the first structural match:
//
//  1. PEM (any "-----BEGIN" framing)
//  2. DER supplied as base64 text
//  3. JWK-like JSON (leading "{")
//
// Raw binary DER is accepted as a final fallback for uploaded files.
// Structural detection (PEM header, JWK kty, DER outer shape) picks the
// family decoder; sequential family probing is used only for ambiguous
// raw DER, in the documented order RSA, DSA, Ed25519, Ed448, EC (curve
// list), DH.
func Parse(input []byte) (*KeyMaterial, error) {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 {
		return nil, opErr("parse", "", fmt.Errorf("%w: empty input", ErrParse))
	}

	if bytes.Contains(trimmed, []byte("-----BEGIN")) {
		return parsePEM(trimmed)
	}

	if der, ok := decodeBase64(trimmed); ok {
		return ParseDER(der)
	}

	if trimmed[0] == '{' {
		return parseJWK(trimmed)
	}

	if trimmed[0] == 0x30 {
		return ParseDER(trimmed)
	}

	return nil, opErr("parse", "", fmt.Errorf("%w: input is not PEM, base64 DER, or JWK", ErrParse))
}

// parsePEM decodes the first key-bearing PEM block.
func parsePEM(data []byte) (*KeyMaterial, error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, opErr("parse", "", fmt.Errorf("%w: no key material in PEM input", ErrParse))
		}

		switch block.Type {
		case "PRIVATE KEY":
			return ParsePKCS8(block.Bytes)
		case "PUBLIC KEY":
			return ParseSPKI(block.Bytes)
		case "RSA PRIVATE KEY":
			priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, opErr("parse", FamilyRSA, fmt.Errorf("%w: %v", ErrParse, err))
			}
			return fromRSAPrivate(priv), nil
		case "RSA PUBLIC KEY":
			var pub rsaPublicKey
			if _, err := asn1.Unmarshal(block.Bytes, &pub); err != nil {
				return nil, opErr("parse", FamilyRSA, fmt.Errorf("%w: %v", ErrParse, err))
			}
			return rsaPublicMaterial(pub.N, pub.E), nil
		case "EC PRIVATE KEY":
			return parseSEC1(block.Bytes, "")
		case "DSA PRIVATE KEY":
			return parseOpenSSLDSA(block.Bytes)
		case "CERTIFICATE", "CERTIFICATE REQUEST", "NEW CERTIFICATE REQUEST":
			// Not key material; keep scanning for a key block.
			continue
		default:
			return nil, opErr("parse", "", fmt.Errorf("%w: unsupported PEM block type %q", ErrKeyFormat, block.Type))
		}
	}
}

// ParseDER decodes a bare DER key. The outer shape is inspected first
// (PKCS#8, then SubjectPublicKeyInfo); only when both structural matches
// fail does it fall back to sequential family probing.
func ParseDER(der []byte) (*KeyMaterial, error) {
	if km, err := ParsePKCS8(der); err == nil {
		return km, nil
	}
	if km, err := ParseSPKI(der); err == nil {
		return km, nil
	}
	return probeDER(der)
}

// probeDER tries family-specific bare encodings in the documented order.
// The order is observed behavior: an input parseable by an earlier family
// wins even if a later family would also accept it.
func probeDER(der []byte) (*KeyMaterial, error) {
	// RSA: PKCS#1 private, then PKCS#1 public.
	if priv, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return fromRSAPrivate(priv), nil
	}
	var rsaPub rsaPublicKey
	if rest, err := asn1.Unmarshal(der, &rsaPub); err == nil && len(rest) == 0 && rsaPub.N != nil && rsaPub.N.Sign() > 0 && rsaPub.E > 0 {
		return rsaPublicMaterial(rsaPub.N, rsaPub.E), nil
	}

	// DSA: OpenSSL six-integer sequence.
	if km, err := parseOpenSSLDSA(der); err == nil {
		return km, nil
	}

	// Ed25519 / Ed448: raw key bytes (not DER, but historically probed here).
	if len(der) == ed25519.SeedSize {
		priv := ed25519.NewKeyFromSeed(der)
		return &KeyMaterial{Family: FamilyEd25519, Ed: &EdKey{Public: priv.Public().(ed25519.PublicKey), Private: priv}}, nil
	}
	if len(der) == circled448.SeedSize {
		priv := circled448.NewKeyFromSeed(der)
		return &KeyMaterial{Family: FamilyEd448, Ed: &EdKey{Public: priv.Public().(circled448.PublicKey), Private: priv}}, nil
	}

	// EC: SEC 1 with embedded or length-probed curve.
	if km, err := parseSEC1(der, ""); err == nil {
		return km, nil
	}

	// DH: bare {p, g, y} sequence.
	var dh struct {
		P, G, Y *big.Int
	}
	if rest, err := asn1.Unmarshal(der, &dh); err == nil && len(rest) == 0 && dh.P != nil && dh.P.Sign() > 0 {
		return &KeyMaterial{Family: FamilyDH, DH: &DHKey{P: dh.P, G: dh.G, Y: dh.Y}}, nil
	}

	return nil, opErr("parse", "", fmt.Errorf("%w: DER input does not match any supported key encoding", ErrKeyFormat))
}

// parseOpenSSLDSA decodes the legacy OpenSSL DSA private key sequence.
func parseOpenSSLDSA(der []byte) (*KeyMaterial, error) {
	var k openSSLDSAPrivateKey
	rest, err := asn1.Unmarshal(der, &k)
	if err != nil || len(rest) > 0 {
		return nil, opErr("parse", FamilyDSA, fmt.Errorf("%w: not a DSA private key", ErrParse))
	}
	if k.Version != 0 || k.P == nil || k.Q == nil || k.G == nil || k.X == nil {
		return nil, opErr("parse", FamilyDSA, fmt.Errorf("%w: malformed DSA private key", ErrParse))
	}
	return &KeyMaterial{
		Family: FamilyDSA,
		DSA:    &DSAKey{P: k.P, Q: k.Q, G: k.G, Y: k.Y, X: k.X},
	}, nil
}

// decodeBase64 attempts a lenient base64 decode over the whole input.
func decodeBase64(data []byte) ([]byte, bool) {
	compact := make([]byte, 0, len(data))
	for _, c := range data {
		if c == '\n' || c == '\r' || c == ' ' || c == '\t' {
			continue
		}
		compact = append(compact, c)
	}
	if len(compact) == 0 {
		return nil, false
	}
	if der, err := base64.StdEncoding.DecodeString(string(compact)); err == nil {
		return der, true
	}
	if der, err := base64.RawStdEncoding.DecodeString(string(compact)); err == nil {
		return der, true
	}
	return nil, false
}
