package p12

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/keys"
)

var testEngine = engine.New()

func testCert(t *testing.T, km *keys.KeyMaterial, subject string) []byte {
	t.Helper()
	dn, err := dname.ParseDN(subject)
	if err != nil {
		t.Fatalf("ParseDN failed: %v", err)
	}
	b := certkit.NewBuilder(testEngine).
		Subject(dn).
		Key(km).
		Serial(big.NewInt(1)).
		Validity(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err := b.Assemble(); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if err := b.Sign(); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	der, err := b.DER()
	if err != nil {
		t.Fatalf("DER failed: %v", err)
	}
	return der
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	km, err := keys.Generate(rand.Reader, keys.GenerateSpec{Family: keys.FamilyRSA, Bits: 2048})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	leafDER := testCert(t, km, "CN=p12.example")

	caKey, err := keys.Generate(rand.Reader, keys.GenerateSpec{Family: keys.FamilyRSA, Bits: 2048})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	caDER := testCert(t, caKey, "CN=p12 CA")

	archive, err := Pack(leafDER, km, [][]byte{caDER}, "hunter2")
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	out, err := Unpack(archive, "hunter2")
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if len(out.Certificates) != 2 {
		t.Fatalf("got %d certificates, want 2", len(out.Certificates))
	}
	if string(out.Certificates[0]) != string(leafDER) {
		t.Error("leaf certificate not first")
	}
	if out.Key == nil || out.Key.Family != keys.FamilyRSA {
		t.Fatalf("key = %+v", out.Key)
	}
	if !keys.SPKIEqual(out.Key, km) {
		t.Error("unpacked key does not match the packed one")
	}
}

func TestUnpack_WrongPassword(t *testing.T) {
	km, err := keys.Generate(rand.Reader, keys.GenerateSpec{Family: keys.FamilyRSA, Bits: 2048})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	leafDER := testCert(t, km, "CN=pw.example")

	archive, err := Pack(leafDER, km, nil, "correct")
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	if _, err := Unpack(archive, "wrong"); !errors.Is(err, ErrPassword) {
		t.Errorf("got %v, want ErrPassword", err)
	}
}

func TestUnpack_EmptyPassword(t *testing.T) {
	km, err := keys.Generate(rand.Reader, keys.GenerateSpec{Family: keys.FamilyRSA, Bits: 2048})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	leafDER := testCert(t, km, "CN=nopw.example")

	archive, err := Pack(leafDER, km, nil, "")
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	out, err := Unpack(archive, "")
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if out.Key == nil {
		t.Error("key missing")
	}
}

func TestPack_NonRSA(t *testing.T) {
	for _, family := range []keys.Family{keys.FamilyEC, keys.FamilyEd25519} {
		km, err := keys.Generate(rand.Reader, keys.GenerateSpec{Family: family})
		if err != nil {
			t.Fatalf("Generate(%s) failed: %v", family, err)
		}
		der := testCert(t, km, "CN=nonrsa.example")

		if _, err := Pack(der, km, nil, "pw"); !errors.Is(err, keys.ErrCapability) {
			t.Errorf("%s: got %v, want ErrCapability", family, err)
		}
	}
}

func TestPack_PublicOnlyKey(t *testing.T) {
	km, err := keys.Generate(rand.Reader, keys.GenerateSpec{Family: keys.FamilyRSA, Bits: 2048})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	der := testCert(t, km, "CN=pub.example")

	pub, err := keys.DerivePublic(km)
	if err != nil {
		t.Fatalf("DerivePublic failed: %v", err)
	}
	if _, err := Pack(der, pub, nil, "pw"); !errors.Is(err, keys.ErrKeyFormat) {
		t.Errorf("got %v, want ErrKeyFormat", err)
	}
}

func TestUnpack_Garbage(t *testing.T) {
	if _, err := Unpack([]byte("not a pfx"), "pw"); err == nil {
		t.Error("expected error for garbage input")
	}
}
