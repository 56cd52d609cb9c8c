package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/audit"
	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/inspect"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// Sign flags
var (
	signCSR       string
	signIssuer    string
	signIssuerKey string
	signSerial    string
	signDays      int
	signNotBefore string
	signNotAfter  string
	signHash      string
	signCarry     bool
	signOut       string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a certification request into a certificate",
	Long: `Sign a PKCS#10 certification request with an issuer key.

The request's self-signature is checked before issuance. With --carry
the recognized requested extensions (basicConstraints, keyUsage,
extKeyUsage, subjectAltName) are copied into the certificate.

Examples:
  certkit sign --csr server.csr --issuer-cert ca.crt --issuer-key ca.key \
    --carry --out server.crt`,
	RunE: runSign,
}

func init() {
	signCmd.Flags().StringVar(&signCSR, "csr", "", "Certification request file (required)")
	signCmd.Flags().StringVar(&signIssuer, "issuer-cert", "", "Issuer certificate file (required)")
	signCmd.Flags().StringVar(&signIssuerKey, "issuer-key", "", "Issuer private key file (required)")
	signCmd.Flags().StringVar(&signSerial, "serial", "", "Serial number (decimal or 0x hex; default random)")
	signCmd.Flags().IntVar(&signDays, "days", 365, "Validity in days")
	signCmd.Flags().StringVar(&signNotBefore, "not-before", "", "Validity start (RFC3339; default now)")
	signCmd.Flags().StringVar(&signNotAfter, "not-after", "", "Validity end (RFC3339; overrides --days)")
	signCmd.Flags().StringVar(&signHash, "hash", "", "Signature digest: sha256, sha384, sha512, sha1")
	signCmd.Flags().BoolVar(&signCarry, "carry", false, "Copy recognized requested extensions")
	signCmd.Flags().StringVar(&signOut, "out", "", "Output file (default stdout)")
	signCmd.MarkFlagRequired("csr")
	signCmd.MarkFlagRequired("issuer-cert")
	signCmd.MarkFlagRequired("issuer-key")

	rootCmd.AddCommand(signCmd)
}

func runSign(cmd *cobra.Command, args []string) error {
	csrData, err := readInput(signCSR)
	if err != nil {
		return err
	}
	bundle, err := inspect.Parse(csrData, inspect.HintAuto, "")
	if err != nil {
		return err
	}
	if bundle.Request == nil {
		return fmt.Errorf("%s contains no certification request", signCSR)
	}

	issuerCert, issuerKey, err := loadIssuer(signIssuer, signIssuerKey)
	if err != nil {
		return err
	}

	serial, err := resolveSerial(signSerial)
	if err != nil {
		return err
	}

	notBefore := eng.Now()
	if signNotBefore != "" {
		notBefore, err = time.Parse(time.RFC3339, signNotBefore)
		if err != nil {
			return err
		}
	}
	notAfter := notBefore.Add(time.Duration(signDays) * 24 * time.Hour)
	if signNotAfter != "" {
		notAfter, err = time.Parse(time.RFC3339, signNotAfter)
		if err != nil {
			return err
		}
	}

	p := certkit.IssueParams{
		Serial:          serial,
		NotBefore:       notBefore,
		NotAfter:        notAfter,
		CarryExtensions: signCarry,
	}
	if signHash != "" {
		p.Hash, err = x509util.ParseHash(signHash)
		if err != nil {
			return err
		}
	}

	der, err := certkit.Issue(eng, bundle.Request, issuerCert, issuerKey, p)
	if err != nil {
		record(audit.NewEvent(audit.EventCertIssued, audit.ResultFailure).
			WithObject(audit.Object{Type: "certificate", Subject: bundle.Request.Subject.String()}).
			WithContext(audit.Context{Reason: err.Error()}))
		return err
	}

	if err := writeOutput(signOut, x509util.EncodeCertPEM(der), 0644); err != nil {
		return err
	}

	record(audit.NewEvent(audit.EventCertIssued, audit.ResultSuccess).
		WithObject(audit.Object{
			Type:    "certificate",
			Serial:  certkit.FormatSerial(serial),
			Subject: bundle.Request.Subject.String(),
		}))

	if signOut != "" && signOut != "-" {
		fmt.Printf("Certificate issued successfully!\n")
		fmt.Printf("  Subject: %s\n", bundle.Request.Subject.String())
		fmt.Printf("  Serial:  %s\n", certkit.FormatSerial(serial))
		fmt.Printf("  Issuer:  %s\n", issuerCert.Subject.String())
		fmt.Printf("  Output:  %s\n", signOut)
	}
	return nil
}
