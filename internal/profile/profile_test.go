package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
	"github.com/AutelysZ/certkit/profiles"
)

const serverYAML = `
name: tls-server
description: TLS server certificate
key:
  algorithm: ec
  curve: prime256v1
subject: "CN=server.example"
validity: 1y
keyUsage: [digitalSignature, keyEncipherment]
extKeyUsage: [serverAuth]
san:
  - "DNS:server.example"
  - "DNS:*.server.example"
`

func TestLoad(t *testing.T) {
	p, err := Load([]byte(serverYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Name != "tls-server" {
		t.Errorf("name = %q", p.Name)
	}

	spec, err := p.GenerateSpec()
	if err != nil {
		t.Fatalf("GenerateSpec failed: %v", err)
	}
	if spec.Family != keys.FamilyEC || spec.Curve != keys.CurveP256 {
		t.Errorf("spec = %+v", spec)
	}

	d, err := p.Duration()
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if d != 365*24*time.Hour {
		t.Errorf("duration = %s", d)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "key: {algorithm: ec}\nvalidity: 1y", "name is required"},
		{"no algorithm", "name: x\nvalidity: 1y", "algorithm is required"},
		{"bad algorithm", "name: x\nkey: {algorithm: des}\nvalidity: 1y", "unknown key algorithm"},
		{"no validity", "name: x\nkey: {algorithm: ec}", "validity is required"},
		{"bad subject", "name: x\nkey: {algorithm: ec}\nvalidity: 1y\nsubject: nonsense", "subject"},
		{"bad key usage", "name: x\nkey: {algorithm: ec}\nvalidity: 1y\nkeyUsage: [flying]", "unknown key usage"},
		{"bad eku", "name: x\nkey: {algorithm: ec}\nvalidity: 1y\nextKeyUsage: [flying]", "unknown extended key usage"},
		{"bad san", "name: x\nkey: {algorithm: ec}\nvalidity: 1y\nsan: [\"CARRIER:pigeon\"]", "san"},
		{"not yaml", "{{{", "parse profile"},
	}
	for _, tt := range tests {
		_, err := Load([]byte(tt.yaml))
		if err == nil {
			t.Errorf("%s: no error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error = %v, want %q", tt.name, err, tt.want)
		}
	}
}

func TestProfile_Extensions(t *testing.T) {
	p, err := Load([]byte(serverYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	exts, err := p.Extensions()
	if err != nil {
		t.Fatalf("Extensions failed: %v", err)
	}
	// basicConstraints, keyUsage, extKeyUsage, subjectAltName.
	if len(exts) != 4 {
		t.Fatalf("got %d extensions", len(exts))
	}
	if !exts[0].OID.Equal(x509util.OIDExtBasicConstraints) {
		t.Errorf("first extension = %s", exts[0].OID)
	}

	isCA, _, err := x509util.DecodeBasicConstraints(exts[0].Value)
	if err != nil {
		t.Fatalf("DecodeBasicConstraints failed: %v", err)
	}
	if isCA {
		t.Error("server profile must not be a CA")
	}

	entries, err := x509util.DecodeSubjectAltName(exts[3].Value)
	if err != nil {
		t.Fatalf("DecodeSubjectAltName failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d SAN entries", len(entries))
	}
}

func TestProfile_CAPathLen(t *testing.T) {
	p, err := Load([]byte("name: ca\nkey: {algorithm: ec}\nvalidity: 10y\nca: true\npathLen: 1\nkeyUsage: [keyCertSign, cRLSign]"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	exts, err := p.Extensions()
	if err != nil {
		t.Fatalf("Extensions failed: %v", err)
	}
	isCA, pathLen, err := x509util.DecodeBasicConstraints(exts[0].Value)
	if err != nil {
		t.Fatalf("DecodeBasicConstraints failed: %v", err)
	}
	if !isCA || pathLen != 1 {
		t.Errorf("basicConstraints = (%v, %d)", isCA, pathLen)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"8760h", 8760 * time.Hour, false},
		{"365d", 365 * 24 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"1y30d", (365 + 30) * 24 * time.Hour, false},
		{"1y30d12h", (365+30)*24*time.Hour + 12*time.Hour, false},
		{"", 0, true},
		{"-1y", 0, true},
		{"0h", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		d, err := parseDuration(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("parseDuration(%q): no error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDuration(%q) failed: %v", tt.in, err)
			continue
		}
		if d != tt.want {
			t.Errorf("parseDuration(%q) = %s, want %s", tt.in, d, tt.want)
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: bravo\nkey: {algorithm: ec}\nvalidity: 1y"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.yml"), []byte("name: alpha\nkey: {algorithm: rsa, bits: 2048}\nvalidity: 90d"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d profiles", len(loaded))
	}
	// Sorted by file path.
	if loaded[0].Name != "alpha" || loaded[1].Name != "bravo" {
		t.Errorf("order = %s, %s", loaded[0].Name, loaded[1].Name)
	}
}

func TestLoadDir_BadProfile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\nvalidity: 1y"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Error("expected error for an invalid profile")
	}
}

// Every shipped profile must load.
func TestEmbeddedProfiles(t *testing.T) {
	entries, err := profiles.FS.ReadDir(".")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded profiles")
	}
	for _, entry := range entries {
		data, err := profiles.FS.ReadFile(entry.Name())
		if err != nil {
			t.Fatalf("%s: %v", entry.Name(), err)
		}
		p, err := Load(data)
		if err != nil {
			t.Errorf("%s: %v", entry.Name(), err)
			continue
		}
		if p.Name == "" {
			t.Errorf("%s: empty name", entry.Name())
		}
	}
}
