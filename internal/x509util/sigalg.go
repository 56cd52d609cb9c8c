package x509util

import (
	"crypto"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	"github.com/AutelysZ/certkit/internal/keys"
)

// Signature algorithm OIDs.
var (
	oidSHA1WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	oidSHA256WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	oidSHA384WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	oidSHA512WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}

	oidECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	oidECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	oidECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}

	oidDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 3}
	oidDSAWithSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 2}
	oidDSAWithSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 3}
	oidDSAWithSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 4}

	oidEd25519 = asn1.ObjectIdentifier{1, 3, 101, 112}
	oidEd448   = asn1.ObjectIdentifier{1, 3, 101, 113}
)

// SignatureAlgorithm pairs a signature OID with the key family and hash
// it implies.
type SignatureAlgorithm struct {
	Name   string
	OID    asn1.ObjectIdentifier
	Family keys.Family
	Hash   crypto.Hash // 0 for EdDSA (no pre-hash)
}

// signatureAlgorithms lists every algorithm the toolkit can emit or
// recognize.
var signatureAlgorithms = []SignatureAlgorithm{
	{"sha1WithRSAEncryption", oidSHA1WithRSA, keys.FamilyRSA, crypto.SHA1},
	{"sha256WithRSAEncryption", oidSHA256WithRSA, keys.FamilyRSA, crypto.SHA256},
	{"sha384WithRSAEncryption", oidSHA384WithRSA, keys.FamilyRSA, crypto.SHA384},
	{"sha512WithRSAEncryption", oidSHA512WithRSA, keys.FamilyRSA, crypto.SHA512},

	{"ecdsa-with-SHA1", oidECDSAWithSHA1, keys.FamilyEC, crypto.SHA1},
	{"ecdsa-with-SHA256", oidECDSAWithSHA256, keys.FamilyEC, crypto.SHA256},
	{"ecdsa-with-SHA384", oidECDSAWithSHA384, keys.FamilyEC, crypto.SHA384},
	{"ecdsa-with-SHA512", oidECDSAWithSHA512, keys.FamilyEC, crypto.SHA512},

	{"dsa-with-SHA1", oidDSAWithSHA1, keys.FamilyDSA, crypto.SHA1},
	{"dsa-with-SHA256", oidDSAWithSHA256, keys.FamilyDSA, crypto.SHA256},
	{"dsa-with-SHA384", oidDSAWithSHA384, keys.FamilyDSA, crypto.SHA384},
	{"dsa-with-SHA512", oidDSAWithSHA512, keys.FamilyDSA, crypto.SHA512},

	{"Ed25519", oidEd25519, keys.FamilyEd25519, 0},
	{"Ed448", oidEd448, keys.FamilyEd448, 0},
}

// SelectSignatureAlgorithm returns the signature algorithm for a signer
// key family and hash selection. It is a total function over signing
// families: every (family, hash) pair either maps to an algorithm or
// returns a capability error.
//
// Ed25519 and Ed448 map to their fixed OID no matter which hash was
// selected; the hash selector is deliberately ignored for those families
// so a stray UI value cannot produce an invalid algorithm.
func SelectSignatureAlgorithm(family keys.Family, hash crypto.Hash) (SignatureAlgorithm, error) {
	if !family.CanSign() {
		return SignatureAlgorithm{}, fmt.Errorf("%w: %s keys cannot sign certificates", keys.ErrCapability, family)
	}

	if family == keys.FamilyEd25519 || family == keys.FamilyEd448 {
		hash = 0
	} else if hash == 0 {
		hash = crypto.SHA256
	}

	for _, alg := range signatureAlgorithms {
		if alg.Family == family && alg.Hash == hash {
			return alg, nil
		}
	}
	return SignatureAlgorithm{}, fmt.Errorf("%w: no %s signature algorithm for hash %v", keys.ErrCapability, family, hash)
}

// SignatureAlgorithmByOID resolves a signature OID.
func SignatureAlgorithmByOID(oid asn1.ObjectIdentifier) (SignatureAlgorithm, bool) {
	for _, alg := range signatureAlgorithms {
		if alg.OID.Equal(oid) {
			return alg, true
		}
	}
	return SignatureAlgorithm{}, false
}

// identifier builds the AlgorithmIdentifier for the algorithm. RSA
// algorithms carry an explicit NULL parameter; the others omit it.
func (a SignatureAlgorithm) identifier() pkix.AlgorithmIdentifier {
	ai := pkix.AlgorithmIdentifier{Algorithm: a.OID}
	if a.Family == keys.FamilyRSA {
		ai.Parameters = asn1.NullRawValue
	}
	return ai
}

// String returns the algorithm name.
func (a SignatureAlgorithm) String() string { return a.Name }

// ParseHash parses a hash selector name.
func ParseHash(name string) (crypto.Hash, error) {
	switch name {
	case "", "sha256":
		return crypto.SHA256, nil
	case "sha1":
		return crypto.SHA1, nil
	case "sha384":
		return crypto.SHA384, nil
	case "sha512":
		return crypto.SHA512, nil
	}
	return 0, fmt.Errorf("unknown hash %q", name)
}
