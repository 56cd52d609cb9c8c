package main

import (
	"crypto/rand"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
)

func buildTestCert(t *testing.T, subject string, key *keys.KeyMaterial, issuer *x509util.Certificate, issuerKey *keys.KeyMaterial, ca bool) *x509util.Certificate {
	t.Helper()
	dn, err := dname.ParseDN(subject)
	if err != nil {
		t.Fatalf("ParseDN failed: %v", err)
	}
	b := certkit.NewBuilder(eng).
		Subject(dn).
		Key(key).
		Serial(big.NewInt(1)).
		Validity(time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))
	if ca {
		bc, err := x509util.EncodeBasicConstraints(true, -1)
		if err != nil {
			t.Fatalf("EncodeBasicConstraints failed: %v", err)
		}
		b.AddExtension(bc)
	}
	if issuer != nil {
		b.Issuer(issuer, issuerKey)
	}
	if err := b.Assemble(); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if err := b.Sign(); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	cert, err := b.Certificate()
	if err != nil {
		t.Fatalf("Certificate failed: %v", err)
	}
	return cert
}

// ===== Verify Command Tests =====

func TestRunVerify_FullchainFile(t *testing.T) {
	caKey, err := keys.Generate(rand.Reader, keys.GenerateSpec{Family: keys.FamilyEC})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	ca := buildTestCert(t, "CN=File CA", caKey, nil, nil, true)

	leafKey, err := keys.Generate(rand.Reader, keys.GenerateSpec{Family: keys.FamilyEC})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	leaf := buildTestCert(t, "CN=file.example", leafKey, ca, caKey, false)

	// Leaf-first concatenated PEM, as a fullchain.pem would hold it.
	path := filepath.Join(t.TempDir(), "fullchain.pem")
	data := append(x509util.EncodeCertPEM(leaf.Raw), x509util.EncodeCertPEM(ca.Raw)...)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	verifyBundle, verifyAt, verifyFormat, verifyPassword = "", "", "", ""
	if err := runVerify(verifyCmd, []string{path}); err != nil {
		t.Errorf("fullchain input should verify without a separate bundle: %v", err)
	}
}
