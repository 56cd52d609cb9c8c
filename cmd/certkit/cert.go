package main

import (
	"crypto"
	"encoding/asn1"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/audit"
	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/inspect"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/profile"
	"github.com/AutelysZ/certkit/internal/x509util"
	"github.com/AutelysZ/certkit/profiles"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Certificate commands",
	Long:  `Commands for building certificates.`,
}

// Cert build flags
var (
	certProfile   string
	certKey       string
	certKeyOut    string
	certSubject   string
	certSerial    string
	certDays      int
	certNotBefore string
	certNotAfter  string
	certHash      string
	certCA        bool
	certPathLen   int
	certKeyUsage  []string
	certEKU       []string
	certSAN       []string
	certIssuer    string
	certIssuerKey string
	certOut       string
)

var certBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a certificate",
	Long: `Build and sign a certificate.

Without --issuer-cert the certificate is self-signed; with it, the
issuer key signs. A profile supplies key algorithm, validity, usages
and names; individual flags override profile values.

Profiles are looked up as files first, then among the embedded presets
(tls-server, tls-client, ca).

Examples:
  # Self-signed from an existing key
  certkit cert build --key server.key --subject "CN=server.example.com" \
    --san DNS:server.example.com --out server.crt

  # Profile mode, generating the key
  certkit cert build --profile tls-server --keyout server.key \
    --subject "CN=server.example.com" --out server.crt

  # CA-signed
  certkit cert build --key server.key --subject "CN=server.example.com" \
    --issuer-cert ca.crt --issuer-key ca.key --out server.crt`,
	RunE: runCertBuild,
}

func init() {
	certBuildCmd.Flags().StringVar(&certProfile, "profile", "", "Profile name or file")
	certBuildCmd.Flags().StringVar(&certKey, "key", "", "Subject private key file")
	certBuildCmd.Flags().StringVar(&certKeyOut, "keyout", "", "Generate the key per profile and save it here")
	certBuildCmd.Flags().StringVar(&certSubject, "subject", "", "Subject DN, e.g. \"CN=example, O=ACME\"")
	certBuildCmd.Flags().StringVar(&certSerial, "serial", "", "Serial number (decimal or 0x hex; default random)")
	certBuildCmd.Flags().IntVar(&certDays, "days", 0, "Validity in days (default 365 or profile validity)")
	certBuildCmd.Flags().StringVar(&certNotBefore, "not-before", "", "Validity start (RFC3339; default now)")
	certBuildCmd.Flags().StringVar(&certNotAfter, "not-after", "", "Validity end (RFC3339)")
	certBuildCmd.Flags().StringVar(&certHash, "hash", "", "Signature digest: sha256, sha384, sha512, sha1")
	certBuildCmd.Flags().BoolVar(&certCA, "ca", false, "Mark the certificate as a CA")
	certBuildCmd.Flags().IntVar(&certPathLen, "path-len", -1, "CA path length constraint (-1 omits)")
	certBuildCmd.Flags().StringSliceVar(&certKeyUsage, "key-usage", nil, "Key usage names, e.g. digitalSignature")
	certBuildCmd.Flags().StringSliceVar(&certEKU, "eku", nil, "Extended key usage names, e.g. serverAuth")
	certBuildCmd.Flags().StringSliceVar(&certSAN, "san", nil, "SAN entries, e.g. DNS:example.com")
	certBuildCmd.Flags().StringVar(&certIssuer, "issuer-cert", "", "Issuer certificate file")
	certBuildCmd.Flags().StringVar(&certIssuerKey, "issuer-key", "", "Issuer private key file")
	certBuildCmd.Flags().StringVar(&certOut, "out", "", "Output file (default stdout)")

	certCmd.AddCommand(certBuildCmd)
	rootCmd.AddCommand(certCmd)
}

func runCertBuild(cmd *cobra.Command, args []string) error {
	var prof *profile.Profile
	if certProfile != "" {
		p, err := loadProfile(certProfile)
		if err != nil {
			return err
		}
		prof = p
	}

	km, generated, err := subjectKey(prof)
	if err != nil {
		return err
	}

	subjectText := certSubject
	if subjectText == "" && prof != nil {
		subjectText = prof.Subject
	}
	if subjectText == "" {
		return fmt.Errorf("--subject is required")
	}
	subject, err := dname.ParseDN(subjectText)
	if err != nil {
		return err
	}

	serial, err := resolveSerial(certSerial)
	if err != nil {
		return err
	}

	notBefore, notAfter, err := resolveValidity(prof)
	if err != nil {
		return err
	}

	b := certkit.NewBuilder(eng).
		Subject(subject).
		Key(km).
		Serial(serial).
		Validity(notBefore, notAfter)

	if err := applyHash(b.Hash, prof); err != nil {
		return err
	}

	exts, err := buildExtensions(prof)
	if err != nil {
		return err
	}
	for _, ext := range exts {
		b.AddExtension(ext)
	}

	if (certIssuer == "") != (certIssuerKey == "") {
		return fmt.Errorf("--issuer-cert and --issuer-key go together")
	}
	if certIssuer != "" {
		issuerCert, issuerKey, err := loadIssuer(certIssuer, certIssuerKey)
		if err != nil {
			return err
		}
		b.Issuer(issuerCert, issuerKey)
	}

	if err := b.Assemble(); err != nil {
		recordCertFailure(subjectText, err)
		return err
	}
	if err := b.Sign(); err != nil {
		recordCertFailure(subjectText, err)
		return err
	}
	pemBytes, err := b.PEM()
	if err != nil {
		return err
	}

	if generated && certKeyOut != "" {
		keyPEM, err := keys.Export(km, keys.FormatPEM)
		if err != nil {
			return err
		}
		if err := writeOutput(certKeyOut, keyPEM, 0600); err != nil {
			return err
		}
	}
	if err := writeOutput(certOut, pemBytes, 0644); err != nil {
		return err
	}

	record(audit.NewEvent(audit.EventCertBuilt, audit.ResultSuccess).
		WithObject(audit.Object{
			Type:    "certificate",
			Serial:  certkit.FormatSerial(serial),
			Subject: subject.String(),
		}).
		WithContext(audit.Context{Algorithm: km.Describe(), Profile: certProfile}))

	if certOut != "" && certOut != "-" {
		cert, err := b.Certificate()
		if err == nil {
			fmt.Printf("Certificate built successfully!\n")
			fmt.Printf("  Subject:    %s\n", cert.Subject.String())
			fmt.Printf("  Serial:     %s\n", certkit.FormatSerial(cert.SerialNumber))
			fmt.Printf("  Not Before: %s\n", cert.NotBefore.Format("2006-01-02 15:04:05"))
			fmt.Printf("  Not After:  %s\n", cert.NotAfter.Format("2006-01-02 15:04:05"))
			fmt.Printf("  Output:     %s\n", certOut)
		}
	}
	return nil
}

func recordCertFailure(subject string, err error) {
	record(audit.NewEvent(audit.EventCertBuilt, audit.ResultFailure).
		WithObject(audit.Object{Type: "certificate", Subject: subject}).
		WithContext(audit.Context{Reason: err.Error()}))
}

// subjectKey loads or generates the subject key pair.
func subjectKey(prof *profile.Profile) (*keys.KeyMaterial, bool, error) {
	if certKey != "" {
		data, err := readInput(certKey)
		if err != nil {
			return nil, false, err
		}
		km, err := keys.Parse(data)
		if err != nil {
			return nil, false, err
		}
		return km, false, nil
	}
	if prof == nil {
		return nil, false, fmt.Errorf("--key is required without a profile")
	}
	if certKeyOut == "" {
		return nil, false, fmt.Errorf("--keyout is required when the profile generates the key")
	}
	spec, err := prof.GenerateSpec()
	if err != nil {
		return nil, false, err
	}
	km, err := keys.Generate(eng.Rand(), spec)
	if err != nil {
		return nil, false, err
	}
	return km, true, nil
}

func resolveSerial(text string) (*big.Int, error) {
	if text == "" {
		return certkit.RandomSerial(eng.Rand())
	}
	return certkit.ParseSerial(text)
}

func resolveValidity(prof *profile.Profile) (time.Time, time.Time, error) {
	notBefore := eng.Now()
	if certNotBefore != "" {
		t, err := time.Parse(time.RFC3339, certNotBefore)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		notBefore = t
	}

	var lifetime time.Duration
	switch {
	case certNotAfter != "":
		t, err := time.Parse(time.RFC3339, certNotAfter)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return notBefore, t, nil
	case certDays > 0:
		lifetime = time.Duration(certDays) * 24 * time.Hour
	case prof != nil:
		d, err := prof.Duration()
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		lifetime = d
	default:
		lifetime = 365 * 24 * time.Hour
	}
	return notBefore, notBefore.Add(lifetime), nil
}

// applyHash sets the signature digest from the flag or the profile.
func applyHash(set func(h crypto.Hash) *certkit.Builder, prof *profile.Profile) error {
	switch {
	case certHash != "":
		h, err := x509util.ParseHash(certHash)
		if err != nil {
			return err
		}
		set(h)
	case prof != nil && prof.Hash != "":
		h, err := prof.HashFunc()
		if err != nil {
			return err
		}
		set(h)
	}
	return nil
}

// buildExtensions merges flag extensions over profile extensions. Flags
// replace, never append: a --key-usage flag discards the profile's key
// usage entirely.
func buildExtensions(prof *profile.Profile) ([]x509util.Extension, error) {
	flagged := certCA || len(certKeyUsage) > 0 || len(certEKU) > 0 || len(certSAN) > 0

	if prof != nil && !flagged {
		return prof.Extensions()
	}

	var exts []x509util.Extension
	bc, err := x509util.EncodeBasicConstraints(certCA, certPathLen)
	if err != nil {
		return nil, err
	}
	exts = append(exts, bc)

	more, err := symbolicExtensions(certKeyUsage, certEKU, certSAN)
	if err != nil {
		return nil, err
	}
	return append(exts, more...), nil
}

// symbolicExtensions builds keyUsage, extKeyUsage and SAN extensions
// from their symbolic names.
func symbolicExtensions(keyUsage, extKeyUsage, san []string) ([]x509util.Extension, error) {
	var exts []x509util.Extension

	if len(keyUsage) > 0 {
		var ku x509util.KeyUsage
		for _, name := range keyUsage {
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

	if len(extKeyUsage) > 0 {
		var oids []asn1.ObjectIdentifier
		for _, name := range extKeyUsage {
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

	if len(san) > 0 {
		entries, err := dname.ParseSAN(strings.Join(san, "\n"))
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

// loadProfile resolves a profile from a file path or the embedded
// presets.
func loadProfile(name string) (*profile.Profile, error) {
	if strings.ContainsRune(name, filepath.Separator) || strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return profile.LoadFile(name)
	}
	data, err := profiles.FS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return profile.Load(data)
}

// loadIssuer reads the issuer certificate and key files.
func loadIssuer(certPath, keyPath string) (*x509util.Certificate, *keys.KeyMaterial, error) {
	certData, err := readInput(certPath)
	if err != nil {
		return nil, nil, err
	}
	bundle, err := inspect.Parse(certData, inspect.HintAuto, "")
	if err != nil {
		return nil, nil, err
	}
	cert := bundle.Certificate(0)
	if cert == nil {
		return nil, nil, fmt.Errorf("%s contains no certificate", certPath)
	}

	keyData, err := readInput(keyPath)
	if err != nil {
		return nil, nil, err
	}
	km, err := keys.Parse(keyData)
	if err != nil {
		return nil, nil, err
	}
	return cert, km, nil
}
