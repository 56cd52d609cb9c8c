// Package profile provides YAML certificate profiles: a named preset
// of key algorithm, validity, usages and names consumed by the cert
// command.
package profile

import (
	"crypto"
	"encoding/asn1"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// KeyConfig selects the key generated for the profile.
type KeyConfig struct {
	// Algorithm is the key family: rsa, ec, ed25519, ed448.
	Algorithm string `yaml:"algorithm"`

	// Bits is the RSA modulus size; ignored for other families.
	Bits int `yaml:"bits,omitempty"`

	// Curve names the EC curve; ignored for other families.
	Curve string `yaml:"curve,omitempty"`
}

// Profile defines one certificate type. One profile yields one
// certificate.
type Profile struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Key         KeyConfig `yaml:"key"`

	// Subject is DN text, e.g. "CN=example, O=ACME".
	Subject string `yaml:"subject,omitempty"`

	// Validity is a duration string like "8760h", "365d" or "1y".
	Validity string `yaml:"validity"`

	// Hash names the signature digest; empty means the family default.
	Hash string `yaml:"hash,omitempty"`

	IsCA    bool `yaml:"ca,omitempty"`
	PathLen *int `yaml:"pathLen,omitempty"`

	KeyUsage    []string `yaml:"keyUsage,omitempty"`
	ExtKeyUsage []string `yaml:"extKeyUsage,omitempty"`

	// SAN entries, one "TYPE:value" per item.
	SAN []string `yaml:"san,omitempty"`
}

// Validate checks the profile configuration.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if _, err := p.GenerateSpec(); err != nil {
		return err
	}
	if _, err := p.Duration(); err != nil {
		return err
	}
	if p.Subject != "" {
		if _, err := dname.ParseDN(p.Subject); err != nil {
			return fmt.Errorf("subject: %w", err)
		}
	}
	for _, name := range p.KeyUsage {
		if _, ok := x509util.KeyUsageByName(name); !ok {
			return fmt.Errorf("unknown key usage %q", name)
		}
	}
	for _, name := range p.ExtKeyUsage {
		if _, ok := x509util.EKUByName(name); !ok {
			return fmt.Errorf("unknown extended key usage %q", name)
		}
	}
	if len(p.SAN) > 0 {
		if _, err := dname.ParseSAN(strings.Join(p.SAN, "\n")); err != nil {
			return fmt.Errorf("san: %w", err)
		}
	}
	return nil
}

// GenerateSpec maps the key config to a generation spec.
func (p *Profile) GenerateSpec() (keys.GenerateSpec, error) {
	spec := keys.GenerateSpec{Bits: p.Key.Bits}
	switch strings.ToLower(p.Key.Algorithm) {
	case "rsa":
		spec.Family = keys.FamilyRSA
	case "ec", "ecdsa":
		spec.Family = keys.FamilyEC
		if p.Key.Curve != "" {
			curve, err := keys.ParseCurve(p.Key.Curve)
			if err != nil {
				return spec, err
			}
			spec.Curve = curve
		}
	case "ed25519":
		spec.Family = keys.FamilyEd25519
	case "ed448":
		spec.Family = keys.FamilyEd448
	case "":
		return spec, fmt.Errorf("key algorithm is required")
	default:
		return spec, fmt.Errorf("unknown key algorithm %q", p.Key.Algorithm)
	}
	return spec, nil
}

// HashFunc resolves the configured digest.
func (p *Profile) HashFunc() (crypto.Hash, error) {
	return x509util.ParseHash(p.Hash)
}

// Duration parses the validity string. Besides time.ParseDuration
// syntax, "d" (24h) and "y" (365d) suffixes are accepted, alone or
// combined like "1y30d".
func (p *Profile) Duration() (time.Duration, error) {
	return parseDuration(p.Validity)
}

// Extensions builds the profile's extension list.
func (p *Profile) Extensions() ([]x509util.Extension, error) {
	var exts []x509util.Extension

	pathLen := -1
	if p.PathLen != nil {
		pathLen = *p.PathLen
	}
	bc, err := x509util.EncodeBasicConstraints(p.IsCA, pathLen)
	if err != nil {
		return nil, err
	}
	exts = append(exts, bc)

	if len(p.KeyUsage) > 0 {
		var ku x509util.KeyUsage
		for _, name := range p.KeyUsage {
			bit, ok := x509util.KeyUsageByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown key usage %q", name)
			}
			ku |= bit
		}
		ext, err := x509util.EncodeKeyUsage(ku)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	if len(p.ExtKeyUsage) > 0 {
		var oids []asn1.ObjectIdentifier
		for _, name := range p.ExtKeyUsage {
			oid, ok := x509util.EKUByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown extended key usage %q", name)
			}
			oids = append(oids, oid)
		}
		ext, err := x509util.EncodeExtKeyUsage(oids)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	if len(p.SAN) > 0 {
		entries, err := dname.ParseSAN(strings.Join(p.SAN, "\n"))
		if err != nil {
			return nil, err
		}
		ext, err := x509util.EncodeSubjectAltName(entries)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// LoadFile loads and validates one profile.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Load(data)
}

// Load parses and validates profile YAML.
func Load(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return &p, nil
}

// LoadDir loads every *.yaml profile in a directory, sorted by name.
func LoadDir(dir string) ([]*Profile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	ymls, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	matches = append(matches, ymls...)
	sort.Strings(matches)

	var profiles []*Profile
	for _, path := range matches {
		p, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// parseDuration parses a duration that can include day and year
// components: "8760h", "365d", "1y", "1y30d12h".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("validity is required")
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("validity must be positive")
		}
		return d, nil
	}

	var total time.Duration
	rest := s
	for _, unit := range []struct {
		suffix string
		d      time.Duration
	}{
		{"y", 365 * 24 * time.Hour},
		{"d", 24 * time.Hour},
	} {
		idx := strings.Index(rest, unit.suffix)
		if idx <= 0 {
			continue
		}
		n, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid validity %q", s)
		}
		total += time.Duration(n) * unit.d
		rest = rest[idx+1:]
	}
	if rest != "" {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid validity %q", s)
		}
		total += d
	}
	if total <= 0 {
		return 0, fmt.Errorf("validity must be positive")
	}
	return total, nil
}
