package inspect

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/p12"
)

var testEngine = engine.New()

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

func buildCert(t *testing.T, km *keys.KeyMaterial, subject string) *certkit.Builder {
	t.Helper()
	b := certkit.NewBuilder(testEngine).
		Subject(testDN(t, subject)).
		Key(km).
		Serial(big.NewInt(1)).
		Validity(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err := b.Assemble(); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if err := b.Sign(); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return b
}

func certPEM(t *testing.T, km *keys.KeyMaterial, subject string) []byte {
	t.Helper()
	pemBytes, err := buildCert(t, km, subject).PEM()
	if err != nil {
		t.Fatalf("PEM failed: %v", err)
	}
	return pemBytes
}

func certDER(t *testing.T, km *keys.KeyMaterial, subject string) []byte {
	t.Helper()
	der, err := buildCert(t, km, subject).DER()
	if err != nil {
		t.Fatalf("DER failed: %v", err)
	}
	return der
}

// =============================================================================
// Format Sniffing Tests
// =============================================================================

func TestParse_PEMCertificate(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	bundle, err := Parse(certPEM(t, km, "CN=sniff.example"), HintAuto, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(bundle.Certificates) != 1 {
		t.Fatalf("got %d certificates", len(bundle.Certificates))
	}
	if bundle.Certificates[0].Subject.CommonName() != "sniff.example" {
		t.Errorf("subject = %s", bundle.Certificates[0].Subject)
	}
}

func TestParse_DERCertificate(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	bundle, err := Parse(certDER(t, km, "CN=der.example"), HintAuto, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(bundle.Certificates) != 1 {
		t.Fatalf("got %d certificates", len(bundle.Certificates))
	}
}

func TestParse_Base64DER(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	der := certDER(t, km, "CN=b64.example")
	// Wrapped base64 with whitespace, the way it arrives from copy
	// and paste.
	encoded := base64.StdEncoding.EncodeToString(der)
	wrapped := encoded[:40] + "\n " + encoded[40:]

	bundle, err := Parse([]byte(wrapped), HintAuto, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(bundle.Certificates) != 1 {
		t.Fatalf("got %d certificates", len(bundle.Certificates))
	}
}

func TestParse_PEMBundleWithKey(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	keyPEM, err := keys.Export(km, keys.FormatPEM)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	combined := append(certPEM(t, km, "CN=combo.example"), keyPEM...)

	bundle, err := Parse(combined, HintAuto, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(bundle.Certificates) != 1 || bundle.Key == nil {
		t.Fatalf("bundle = %d certs, key %v", len(bundle.Certificates), bundle.Key)
	}
	if !keys.SPKIEqual(bundle.Key, km) {
		t.Error("key does not match")
	}
}

func TestParse_DERKey(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEd25519})
	der, err := keys.Export(km, keys.FormatDER)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	bundle, err := Parse(der, HintAuto, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if bundle.Key == nil || bundle.Key.Family != keys.FamilyEd25519 {
		t.Fatalf("key = %+v", bundle.Key)
	}
}

func TestParse_PKCS12(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyRSA, Bits: 2048})
	der := certDER(t, km, "CN=pfx.example")

	archive, err := p12.Pack(der, km, nil, "secret")
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	// Sniffed: a PKCS#12 archive is also a SEQUENCE, so the PFX probe
	// must run before the generic DER probe.
	bundle, err := Parse(archive, HintAuto, "secret")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(bundle.Certificates) != 1 || bundle.Key == nil {
		t.Fatalf("bundle = %d certs, key %v", len(bundle.Certificates), bundle.Key)
	}

	// Wrong password on a sniffed archive must surface, not fall
	// through to the DER probe.
	if _, err := Parse(archive, HintAuto, "wrong"); !errors.Is(err, p12.ErrPassword) {
		t.Errorf("wrong password: %v", err)
	}
}

func TestParse_HintMismatch(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	if _, err := Parse(certPEM(t, km, "CN=x"), HintDER, ""); err == nil {
		t.Error("PEM under a DER hint should fail")
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := Parse([]byte("certainly not a certificate"), HintAuto, ""); !errors.Is(err, keys.ErrParse) {
		t.Errorf("got %v, want ErrParse", err)
	}
	if _, err := Parse(nil, HintAuto, ""); err == nil {
		t.Error("empty input should fail")
	}
}

func TestParseHint(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Hint
	}{
		{"", HintAuto}, {"auto", HintAuto}, {"PEM", HintPEM},
		{"der", HintDER}, {"p12", HintPKCS12}, {"pfx", HintPKCS12}, {"pkcs12", HintPKCS12},
	} {
		h, err := ParseHint(tt.in)
		if err != nil || h != tt.want {
			t.Errorf("ParseHint(%q) = %q, %v", tt.in, h, err)
		}
	}
	if _, err := ParseHint("jks"); err == nil {
		t.Error("unknown format accepted")
	}
}

// =============================================================================
// Bundle Tests
// =============================================================================

func TestBundle_CertificateIndexClamp(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	chain := append(certPEM(t, km, "CN=first"), certPEM(t, km, "CN=second")...)

	bundle, err := Parse(chain, HintAuto, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := bundle.Certificate(1).Subject.CommonName(); got != "second" {
		t.Errorf("index 1 = %s", got)
	}
	// Out-of-range indexes clamp to the first entry.
	if got := bundle.Certificate(7).Subject.CommonName(); got != "first" {
		t.Errorf("index 7 = %s", got)
	}
	if got := bundle.Certificate(-1).Subject.CommonName(); got != "first" {
		t.Errorf("index -1 = %s", got)
	}
}

func TestBundle_CertificateEmpty(t *testing.T) {
	b := &Bundle{}
	if b.Certificate(0) != nil {
		t.Error("empty bundle should return nil")
	}
	if !b.Empty() {
		t.Error("Empty should be true")
	}
}

// =============================================================================
// Summary Tests
// =============================================================================

func TestSummarize(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyEC})
	bundle, err := Parse(certPEM(t, km, "CN=sum.example, O=ACME"), HintAuto, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	s := Summarize(bundle.Certificate(0))
	if s.Subject != "CN=sum.example, O=ACME" {
		t.Errorf("subject = %q", s.Subject)
	}
	if !s.SelfSigned {
		t.Error("self_signed should be true")
	}
	if s.SignatureAlgorithm != "ecdsa-with-SHA256" {
		t.Errorf("signature algorithm = %s", s.SignatureAlgorithm)
	}
	if len(s.Fingerprint) != 64 {
		t.Errorf("fingerprint = %q", s.Fingerprint)
	}
	// Builder adds SKI and AKI automatically.
	if len(s.Extensions) < 2 {
		t.Errorf("extensions = %d", len(s.Extensions))
	}
}

func TestSummarizeRequest(t *testing.T) {
	km := testKey(t, keys.GenerateSpec{Family: keys.FamilyRSA, Bits: 2048})
	b := certkit.NewRequestBuilder(testEngine).Subject(testDN(t, "CN=reqsum")).Key(km)
	if err := b.Assemble(); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if err := b.Sign(); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	pemBytes, err := b.PEM()
	if err != nil {
		t.Fatalf("PEM failed: %v", err)
	}

	bundle, err := Parse(pemBytes, HintAuto, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if bundle.Request == nil {
		t.Fatal("request not recognized")
	}

	s := SummarizeRequest(bundle.Request)
	if s.Subject != "CN=reqsum" {
		t.Errorf("subject = %q", s.Subject)
	}
	if s.SignatureAlgorithm != "sha256WithRSAEncryption" {
		t.Errorf("signature algorithm = %s", s.SignatureAlgorithm)
	}
}
