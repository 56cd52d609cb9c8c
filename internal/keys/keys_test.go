package keys

import (
	"crypto"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// Capability Table Tests
// =============================================================================

func TestCapabilities(t *testing.T) {
	tests := []struct {
		family   Family
		sign     bool
		csr      bool
		generate bool
		pkcs12   bool
	}{
		{FamilyRSA, true, true, true, true},
		{FamilyEC, true, true, true, false},
		{FamilyEd25519, true, false, true, false},
		{FamilyEd448, true, false, true, false},
		{FamilyDSA, true, true, false, false},
		{FamilyDH, false, false, false, false},
	}

	for _, tt := range tests {
		if got := tt.family.CanSign(); got != tt.sign {
			t.Errorf("%s: CanSign = %v, want %v", tt.family, got, tt.sign)
		}
		if got := tt.family.CanRequest(); got != tt.csr {
			t.Errorf("%s: CanRequest = %v, want %v", tt.family, got, tt.csr)
		}
		if got := tt.family.CanGenerate(); got != tt.generate {
			t.Errorf("%s: CanGenerate = %v, want %v", tt.family, got, tt.generate)
		}
		if got := tt.family.CanPKCS12(); got != tt.pkcs12 {
			t.Errorf("%s: CanPKCS12 = %v, want %v", tt.family, got, tt.pkcs12)
		}
	}
}

// =============================================================================
// Generation Tests
// =============================================================================

func TestGenerate_RSA(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyRSA, Bits: 2048})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if km.Family != FamilyRSA {
		t.Errorf("family = %s, want rsa", km.Family)
	}
	if !km.HasPrivate() {
		t.Error("generated key should have a private half")
	}
	if km.RSA.Public.N.BitLen() != 2048 {
		t.Errorf("modulus = %d bits, want 2048", km.RSA.Public.N.BitLen())
	}
}

func TestGenerate_RSADefaultBits(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyRSA})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if km.RSA.Public.N.BitLen() != 2048 {
		t.Errorf("default modulus = %d bits, want 2048", km.RSA.Public.N.BitLen())
	}
}

func TestGenerate_RSABitsOutOfRange(t *testing.T) {
	_, err := Generate(rand.Reader, GenerateSpec{Family: FamilyRSA, Bits: 512})
	if !errors.Is(err, ErrKeyFormat) {
		t.Errorf("expected ErrKeyFormat for 512-bit RSA, got %v", err)
	}
}

func TestGenerate_ECDefaultCurve(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyEC})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if km.EC.Curve != CurveP256 {
		t.Errorf("curve = %s, want prime256v1", km.EC.Curve)
	}
}

func TestGenerate_ECNoArithmeticCurve(t *testing.T) {
	_, err := Generate(rand.Reader, GenerateSpec{Family: FamilyEC, Curve: CurveSecp256k1})
	if !errors.Is(err, ErrCapability) {
		t.Errorf("expected ErrCapability for secp256k1 generation, got %v", err)
	}
}

func TestGenerate_Ed25519(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyEd25519})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(km.Ed.Public) != 32 {
		t.Errorf("public key = %d bytes, want 32", len(km.Ed.Public))
	}
}

func TestGenerate_Ed448(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyEd448})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(km.Ed.Public) != 57 {
		t.Errorf("public key = %d bytes, want 57", len(km.Ed.Public))
	}
}

func TestGenerate_ImportOnlyFamilies(t *testing.T) {
	for _, family := range []Family{FamilyDSA, FamilyDH} {
		_, err := Generate(rand.Reader, GenerateSpec{Family: family})
		if !errors.Is(err, ErrCapability) {
			t.Errorf("%s: expected ErrCapability, got %v", family, err)
		}
	}
}

// =============================================================================
// Export / Parse Round Trips
// =============================================================================

func TestExportParse_PEMRoundTrip(t *testing.T) {
	specs := []GenerateSpec{
		{Family: FamilyRSA, Bits: 2048},
		{Family: FamilyEC, Curve: CurveP384},
		{Family: FamilyEd25519},
		{Family: FamilyEd448},
	}

	for _, spec := range specs {
		km, err := Generate(rand.Reader, spec)
		if err != nil {
			t.Fatalf("%s: Generate failed: %v", spec.Family, err)
		}

		pemBytes, err := Export(km, FormatPEM)
		if err != nil {
			t.Fatalf("%s: Export failed: %v", spec.Family, err)
		}
		if !strings.Contains(string(pemBytes), "PRIVATE KEY") {
			t.Errorf("%s: PEM missing PRIVATE KEY armor", spec.Family)
		}

		parsed, err := Parse(pemBytes)
		if err != nil {
			t.Fatalf("%s: Parse failed: %v", spec.Family, err)
		}
		if parsed.Family != km.Family {
			t.Errorf("%s: family = %s after round trip", spec.Family, parsed.Family)
		}
		if !parsed.HasPrivate() {
			t.Errorf("%s: private half lost in round trip", spec.Family)
		}
	}
}

func TestExportParse_DERRoundTrip(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyEC})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	der, err := Export(km, FormatDER)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	parsed, err := ParseDER(der)
	if err != nil {
		t.Fatalf("ParseDER failed: %v", err)
	}
	if parsed.Family != FamilyEC || parsed.EC.Curve != CurveP256 {
		t.Errorf("round trip gave %s %s", parsed.Family, parsed.EC.Curve)
	}
}

func TestExportParse_JWKRoundTrip(t *testing.T) {
	for _, spec := range []GenerateSpec{
		{Family: FamilyRSA, Bits: 2048},
		{Family: FamilyEC},
		{Family: FamilyEd25519},
	} {
		km, err := Generate(rand.Reader, spec)
		if err != nil {
			t.Fatalf("%s: Generate failed: %v", spec.Family, err)
		}

		jwkBytes, err := Export(km, FormatJWK)
		if err != nil {
			t.Fatalf("%s: JWK export failed: %v", spec.Family, err)
		}

		parsed, err := Parse(jwkBytes)
		if err != nil {
			t.Fatalf("%s: JWK parse failed: %v", spec.Family, err)
		}
		if parsed.Family != km.Family {
			t.Errorf("%s: family = %s after JWK round trip", spec.Family, parsed.Family)
		}
	}
}

func TestExport_JWKUnsupportedFamily(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyEd448})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := Export(km, FormatJWK); err == nil {
		t.Error("expected error exporting Ed448 as JWK")
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := Parse([]byte("not a key at all")); !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestParse_Base64DER(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyEd25519})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	der, err := Export(km, FormatDER)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	b64 := []byte(base64.StdEncoding.EncodeToString(der))
	parsed, err := Parse(b64)
	if err != nil {
		t.Fatalf("Parse of bare base64 failed: %v", err)
	}
	if parsed.Family != FamilyEd25519 {
		t.Errorf("family = %s, want ed25519", parsed.Family)
	}
}

// =============================================================================
// SPKI Tests
// =============================================================================

func TestSPKI_RoundTrip(t *testing.T) {
	for _, spec := range []GenerateSpec{
		{Family: FamilyRSA, Bits: 2048},
		{Family: FamilyEC, Curve: CurveP521},
		{Family: FamilyEd25519},
		{Family: FamilyEd448},
	} {
		km, err := Generate(rand.Reader, spec)
		if err != nil {
			t.Fatalf("%s: Generate failed: %v", spec.Family, err)
		}

		spki, err := MarshalSPKI(km)
		if err != nil {
			t.Fatalf("%s: MarshalSPKI failed: %v", spec.Family, err)
		}
		parsed, err := ParseSPKI(spki)
		if err != nil {
			t.Fatalf("%s: ParseSPKI failed: %v", spec.Family, err)
		}
		if parsed.Family != km.Family {
			t.Errorf("%s: family = %s after SPKI round trip", spec.Family, parsed.Family)
		}
		if parsed.HasPrivate() {
			t.Errorf("%s: SPKI round trip should not carry private material", spec.Family)
		}
		if !SPKIEqual(km, parsed) {
			t.Errorf("%s: SPKIEqual false after round trip", spec.Family)
		}
	}
}

// =============================================================================
// Sign / Verify Tests
// =============================================================================

func TestSignVerify(t *testing.T) {
	message := []byte("tbs bytes to authenticate")

	for _, tt := range []struct {
		spec GenerateSpec
		hash crypto.Hash
	}{
		{GenerateSpec{Family: FamilyRSA, Bits: 2048}, crypto.SHA256},
		{GenerateSpec{Family: FamilyEC, Curve: CurveP384}, crypto.SHA384},
		{GenerateSpec{Family: FamilyEd25519}, 0},
		{GenerateSpec{Family: FamilyEd448}, 0},
	} {
		km, err := Generate(rand.Reader, tt.spec)
		if err != nil {
			t.Fatalf("%s: Generate failed: %v", tt.spec.Family, err)
		}

		sig, err := Sign(rand.Reader, km, tt.hash, message)
		if err != nil {
			t.Fatalf("%s: Sign failed: %v", tt.spec.Family, err)
		}

		ok, err := Verify(km, tt.hash, message, sig)
		if err != nil {
			t.Fatalf("%s: Verify errored: %v", tt.spec.Family, err)
		}
		if !ok {
			t.Errorf("%s: valid signature did not verify", tt.spec.Family)
		}

		ok, err = Verify(km, tt.hash, append(message, 'x'), sig)
		if err != nil {
			t.Fatalf("%s: Verify of tampered message errored: %v", tt.spec.Family, err)
		}
		if ok {
			t.Errorf("%s: tampered message verified", tt.spec.Family)
		}
	}
}

func TestSign_PublicOnly(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyEC})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	public, err := DerivePublic(km)
	if err != nil {
		t.Fatalf("DerivePublic failed: %v", err)
	}
	if _, err := Sign(rand.Reader, public, crypto.SHA256, []byte("m")); err == nil {
		t.Error("expected error signing with a public-only key")
	}
}

// =============================================================================
// DerivePublic Tests
// =============================================================================

func TestDerivePublic(t *testing.T) {
	km, err := Generate(rand.Reader, GenerateSpec{Family: FamilyRSA, Bits: 2048})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	public, err := DerivePublic(km)
	if err != nil {
		t.Fatalf("DerivePublic failed: %v", err)
	}
	if public.HasPrivate() {
		t.Error("derived key still has private material")
	}
	if !SPKIEqual(km, public) {
		t.Error("derived public key does not match original")
	}
}

// =============================================================================
// Curve Tests
// =============================================================================

func TestParseCurve(t *testing.T) {
	if _, err := ParseCurve("prime256v1"); err != nil {
		t.Errorf("prime256v1 should parse: %v", err)
	}
	// NIST spellings are aliases for the OpenSSL short names.
	for _, alias := range []string{"P-256", "p384", "secp256r1"} {
		if _, err := ParseCurve(alias); err != nil {
			t.Errorf("%s should parse: %v", alias, err)
		}
	}
	if _, err := ParseCurve("no-such-curve"); err == nil {
		t.Error("expected error for unknown curve")
	}
}

func TestCurveArithmetic(t *testing.T) {
	if !CurveP256.HasArithmetic() {
		t.Error("P-256 should have arithmetic support")
	}
	if CurveSecp256k1.HasArithmetic() {
		t.Error("secp256k1 is parse-only")
	}
}
