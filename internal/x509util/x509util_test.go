package x509util

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/keys"
)

func testKey(t *testing.T, spec keys.GenerateSpec) *keys.KeyMaterial {
	t.Helper()
	km, err := keys.Generate(rand.Reader, spec)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return km
}

func testDN(t *testing.T, text string) dname.DN {
	t.Helper()
	dn, err := dname.ParseDN(text)
	if err != nil {
		t.Fatalf("ParseDN failed: %v", err)
	}
	return dn
}

// selfSign builds a minimal self-signed certificate for the key with
// the given extensions.
func selfSign(t *testing.T, km *keys.KeyMaterial, exts []Extension) []byte {
	t.Helper()

	spki, err := keys.MarshalSPKI(km)
	if err != nil {
		t.Fatalf("MarshalSPKI failed: %v", err)
	}
	subject := testDN(t, "CN=probe.example")

	alg, err := SelectSignatureAlgorithm(km.Family, 0)
	if err != nil {
		t.Fatalf("SelectSignatureAlgorithm failed: %v", err)
	}
	tbs, err := MarshalTBS(TBSParams{
		Serial:     big.NewInt(1),
		SigAlg:     alg,
		Issuer:     subject,
		Subject:    subject,
		NotBefore:  time.Now().Add(-time.Hour),
		NotAfter:   time.Now().Add(time.Hour),
		SPKI:       spki,
		Extensions: exts,
	})
	if err != nil {
		t.Fatalf("MarshalTBS failed: %v", err)
	}
	sig, err := keys.Sign(rand.Reader, km, alg.Hash, tbs)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	der, err := MarshalCertificate(tbs, alg, sig)
	if err != nil {
		t.Fatalf("MarshalCertificate failed: %v", err)
	}
	return der
}

// =============================================================================
// Key Usage Tests
// =============================================================================

func TestKeyUsage_EncodeDecode(t *testing.T) {
	ku := KeyUsageDigitalSignature | KeyUsageKeyEncipherment

	ext, err := EncodeKeyUsage(ku)
	if err != nil {
		t.Fatalf("EncodeKeyUsage failed: %v", err)
	}
	if !ext.Critical {
		t.Error("keyUsage should be critical")
	}

	decoded, err := DecodeKeyUsage(ext.Value)
	if err != nil {
		t.Fatalf("DecodeKeyUsage failed: %v", err)
	}
	if decoded != ku {
		t.Errorf("round trip gave %016b, want %016b", decoded, ku)
	}
}

func TestKeyUsage_StdlibAgreement(t *testing.T) {
	// The hand-rolled BIT STRING must match what crypto/x509 reads for
	// the same usage set: bit 0 is the most significant bit.
	ext, err := EncodeKeyUsage(KeyUsageCertSign | KeyUsageCRLSign)
	if err != nil {
		t.Fatalf("EncodeKeyUsage failed: %v", err)
	}

	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	der := selfSign(t, km, []Extension{ext})

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("crypto/x509 rejected the certificate: %v", err)
	}
	if cert.KeyUsage != x509.KeyUsageCertSign|x509.KeyUsageCRLSign {
		t.Errorf("stdlib decoded usage %b", cert.KeyUsage)
	}
}

func TestKeyUsageByName(t *testing.T) {
	if _, ok := KeyUsageByName("digitalSignature"); !ok {
		t.Error("digitalSignature should resolve")
	}
	if _, ok := KeyUsageByName("flyToTheMoon"); ok {
		t.Error("unknown usage resolved")
	}
}

// =============================================================================
// Basic Constraints Tests
// =============================================================================

func TestBasicConstraints_RoundTrip(t *testing.T) {
	tests := []struct {
		isCA    bool
		pathLen int
	}{
		{false, -1},
		{true, -1},
		{true, 0},
		{true, 3},
	}

	for _, tt := range tests {
		ext, err := EncodeBasicConstraints(tt.isCA, tt.pathLen)
		if err != nil {
			t.Fatalf("EncodeBasicConstraints(%v, %d) failed: %v", tt.isCA, tt.pathLen, err)
		}
		if !ext.Critical {
			t.Error("basicConstraints should be critical")
		}

		isCA, pathLen, err := DecodeBasicConstraints(ext.Value)
		if err != nil {
			t.Fatalf("DecodeBasicConstraints failed: %v", err)
		}
		if isCA != tt.isCA || pathLen != tt.pathLen {
			t.Errorf("round trip (%v, %d) gave (%v, %d)", tt.isCA, tt.pathLen, isCA, pathLen)
		}
	}
}

// =============================================================================
// SAN Tests
// =============================================================================

func TestSubjectAltName_RoundTrip(t *testing.T) {
	entries := []dname.SanEntry{
		{Type: dname.SanDNS, DNS: "example.com"},
		{Type: dname.SanDNS, DNS: "*.example.com"},
		{Type: dname.SanIP, IP: net.ParseIP("192.0.2.7")},
		{Type: dname.SanIP, IP: net.ParseIP("2001:db8::1")},
		{Type: dname.SanURI, URI: "https://example.com/x"},
		{Type: dname.SanEmail, Email: "ops@example.com"},
	}

	ext, err := EncodeSubjectAltName(entries)
	if err != nil {
		t.Fatalf("EncodeSubjectAltName failed: %v", err)
	}

	decoded, err := DecodeSubjectAltName(ext.Value)
	if err != nil {
		t.Fatalf("DecodeSubjectAltName failed: %v", err)
	}
	if len(decoded) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(decoded), len(entries))
	}
	for i := range entries {
		if decoded[i].String() != entries[i].String() {
			t.Errorf("entry %d: %s != %s", i, decoded[i], entries[i])
		}
	}
}

func TestSubjectAltName_IPv4Is4Bytes(t *testing.T) {
	ext, err := EncodeSubjectAltName([]dname.SanEntry{
		{Type: dname.SanIP, IP: net.ParseIP("10.0.0.1")},
	})
	if err != nil {
		t.Fatalf("EncodeSubjectAltName failed: %v", err)
	}
	// [7] IMPLICIT OCTET STRING, length 4 for IPv4.
	if !bytes.Contains(ext.Value, []byte{0x87, 0x04, 10, 0, 0, 1}) {
		t.Errorf("IPv4 not encoded as 4 bytes: % x", ext.Value)
	}
}

// =============================================================================
// Key Identifier Tests
// =============================================================================

func TestKeyIdentifier_HashesRawKeyBits(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEd25519})

	id, err := KeyIdentifier(km, 0)
	if err != nil {
		t.Fatalf("KeyIdentifier failed: %v", err)
	}
	// RFC 5280 method 1: SHA-1 of the subjectPublicKey BIT STRING
	// contents, not the whole SPKI.
	want := sha1.Sum(km.Ed.Public)
	if !bytes.Equal(id, want[:]) {
		t.Errorf("key id = %x, want %x", id, want)
	}
}

func TestAuthorityKeyId_RoundTrip(t *testing.T) {
	keyID := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	ext, err := EncodeAuthorityKeyId(keyID)
	if err != nil {
		t.Fatalf("EncodeAuthorityKeyId failed: %v", err)
	}
	if ext.Critical {
		t.Error("authorityKeyIdentifier must not be critical")
	}

	decoded, err := DecodeAuthorityKeyId(ext.Value)
	if err != nil {
		t.Fatalf("DecodeAuthorityKeyId failed: %v", err)
	}
	if !bytes.Equal(decoded, keyID) {
		t.Errorf("round trip gave %x", decoded)
	}
}

// =============================================================================
// Certificate Round Trip
// =============================================================================

func TestCertificate_RoundTrip(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	spki, err := keys.MarshalSPKI(km)
	if err != nil {
		t.Fatalf("MarshalSPKI failed: %v", err)
	}

	subject := testDN(t, "CN=roundtrip.example, O=ACME")

	alg, err := SelectSignatureAlgorithm(keys.FamilyEC, crypto.SHA256)
	if err != nil {
		t.Fatalf("SelectSignatureAlgorithm failed: %v", err)
	}

	bc, err := EncodeBasicConstraints(true, 1)
	if err != nil {
		t.Fatalf("EncodeBasicConstraints failed: %v", err)
	}

	notBefore := time.Now().Add(-time.Hour).Truncate(time.Second)
	notAfter := notBefore.Add(24 * time.Hour)

	tbs, err := MarshalTBS(TBSParams{
		Serial:     big.NewInt(0x1234),
		SigAlg:     alg,
		Issuer:     subject,
		Subject:    subject,
		NotBefore:  notBefore,
		NotAfter:   notAfter,
		SPKI:       spki,
		Extensions: []Extension{bc},
	})
	if err != nil {
		t.Fatalf("MarshalTBS failed: %v", err)
	}

	sig, err := keys.Sign(rand.Reader, km, alg.Hash, tbs)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	der, err := MarshalCertificate(tbs, alg, sig)
	if err != nil {
		t.Fatalf("MarshalCertificate failed: %v", err)
	}

	cert, err := ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate failed: %v", err)
	}

	if cert.Version != 3 {
		t.Errorf("version = %d, want 3", cert.Version)
	}
	if cert.SerialNumber.Int64() != 0x1234 {
		t.Errorf("serial = %s", cert.SerialNumber)
	}
	if !cert.Subject.Equal(subject) {
		t.Errorf("subject = %s", cert.Subject)
	}
	if !cert.NotBefore.Equal(notBefore) || !cert.NotAfter.Equal(notAfter) {
		t.Errorf("validity = %s .. %s", cert.NotBefore, cert.NotAfter)
	}
	if !cert.IsCA() {
		t.Error("IsCA should be true")
	}
	if cert.PublicKey == nil || cert.PublicKey.Family != keys.FamilyEC {
		t.Errorf("public key = %+v", cert.PublicKey)
	}
	if cert.SignatureAlgorithmName() != "ecdsa-with-SHA256" {
		t.Errorf("signature algorithm = %s", cert.SignatureAlgorithmName())
	}

	// Independent check with the standard library.
	if _, err := x509.ParseCertificate(der); err != nil {
		t.Errorf("crypto/x509 rejected the certificate: %v", err)
	}
}

func TestParseCertificate_TrailingBytes(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEd25519})
	der := selfSign(t, km, nil)

	if _, err := ParseCertificate(append(der, 0x00)); err == nil {
		t.Error("expected error for trailing bytes")
	}
}

// =============================================================================
// CSR Round Trip
// =============================================================================

func TestCSR_RoundTrip(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyRSA, Bits: 2048})
	spki, err := keys.MarshalSPKI(km)
	if err != nil {
		t.Fatalf("MarshalSPKI failed: %v", err)
	}

	san, err := EncodeSubjectAltName([]dname.SanEntry{{Type: dname.SanDNS, DNS: "csr.example"}})
	if err != nil {
		t.Fatalf("EncodeSubjectAltName failed: %v", err)
	}

	alg, err := SelectSignatureAlgorithm(keys.FamilyRSA, crypto.SHA256)
	if err != nil {
		t.Fatalf("SelectSignatureAlgorithm failed: %v", err)
	}

	info, err := MarshalCSRInfo(CSRParams{
		Subject:    testDN(t, "CN=csr.example"),
		SPKI:       spki,
		Extensions: []Extension{san},
	})
	if err != nil {
		t.Fatalf("MarshalCSRInfo failed: %v", err)
	}
	sig, err := keys.Sign(rand.Reader, km, alg.Hash, info)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	der, err := MarshalCSR(info, alg, sig)
	if err != nil {
		t.Fatalf("MarshalCSR failed: %v", err)
	}

	req, err := ParseCSR(der)
	if err != nil {
		t.Fatalf("ParseCSR failed: %v", err)
	}
	if req.Subject.CommonName() != "csr.example" {
		t.Errorf("subject = %s", req.Subject)
	}
	if len(req.Extensions) != 1 || !req.Extensions[0].OID.Equal(OIDExtSubjectAltName) {
		t.Errorf("requested extensions = %+v", req.Extensions)
	}

	// OpenSSL-compatible shape: the standard library must accept it,
	// including the signature over the request info.
	stdReq, err := x509.ParseCertificateRequest(der)
	if err != nil {
		t.Fatalf("crypto/x509 rejected the CSR: %v", err)
	}
	if err := stdReq.CheckSignature(); err != nil {
		t.Errorf("stdlib signature check failed: %v", err)
	}
}

func TestCSR_NoExtensions(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	spki, err := keys.MarshalSPKI(km)
	if err != nil {
		t.Fatalf("MarshalSPKI failed: %v", err)
	}

	// The [0] attributes wrapper is always present, even when empty.
	info, err := MarshalCSRInfo(CSRParams{Subject: testDN(t, "CN=plain"), SPKI: spki})
	if err != nil {
		t.Fatalf("MarshalCSRInfo failed: %v", err)
	}
	alg, err := SelectSignatureAlgorithm(keys.FamilyEC, crypto.SHA256)
	if err != nil {
		t.Fatalf("SelectSignatureAlgorithm failed: %v", err)
	}
	sig, err := keys.Sign(rand.Reader, km, alg.Hash, info)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	der, err := MarshalCSR(info, alg, sig)
	if err != nil {
		t.Fatalf("MarshalCSR failed: %v", err)
	}

	if _, err := x509.ParseCertificateRequest(der); err != nil {
		t.Errorf("crypto/x509 rejected CSR without extensions: %v", err)
	}
}

// =============================================================================
// Signature Algorithm Selection
// =============================================================================

func TestSelectSignatureAlgorithm(t *testing.T) {
	tests := []struct {
		family keys.Family
		hash   crypto.Hash
		want   string
		err    bool
	}{
		{keys.FamilyRSA, crypto.SHA256, "sha256WithRSAEncryption", false},
		{keys.FamilyRSA, 0, "sha256WithRSAEncryption", false},
		{keys.FamilyEC, crypto.SHA384, "ecdsa-with-SHA384", false},
		{keys.FamilyDSA, crypto.SHA1, "dsa-with-SHA1", false},
		{keys.FamilyEd25519, crypto.SHA512, "Ed25519", false}, // hash selector ignored
		{keys.FamilyEd448, 0, "Ed448", false},
		{keys.FamilyDH, crypto.SHA256, "", true},
	}

	for _, tt := range tests {
		alg, err := SelectSignatureAlgorithm(tt.family, tt.hash)
		if tt.err {
			if err == nil {
				t.Errorf("%s: expected error", tt.family)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.family, err)
			continue
		}
		if alg.Name != tt.want {
			t.Errorf("%s/%v: got %s, want %s", tt.family, tt.hash, alg.Name, tt.want)
		}
	}
}
