package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/audit"
	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// CSR flags
var (
	csrKey      string
	csrSubject  string
	csrHash     string
	csrKeyUsage []string
	csrEKU      []string
	csrSAN      []string
	csrOut      string
)

var csrCmd = &cobra.Command{
	Use:   "csr",
	Short: "Create a certification request",
	Long: `Create a PKCS#10 certification request.

Requested extensions ride in the extensionRequest attribute. Ed25519
and Ed448 keys cannot self-attest a request; DSA keys can.

Examples:
  certkit csr --key server.key --subject "CN=server.example.com" \
    --san DNS:server.example.com --out server.csr`,
	RunE: runCSR,
}

func init() {
	csrCmd.Flags().StringVar(&csrKey, "key", "", "Subject private key file (required)")
	csrCmd.Flags().StringVar(&csrSubject, "subject", "", "Subject DN (required)")
	csrCmd.Flags().StringVar(&csrHash, "hash", "", "Signature digest: sha256, sha384, sha512, sha1")
	csrCmd.Flags().StringSliceVar(&csrKeyUsage, "key-usage", nil, "Requested key usage names")
	csrCmd.Flags().StringSliceVar(&csrEKU, "eku", nil, "Requested extended key usage names")
	csrCmd.Flags().StringSliceVar(&csrSAN, "san", nil, "Requested SAN entries, e.g. DNS:example.com")
	csrCmd.Flags().StringVar(&csrOut, "out", "", "Output file (default stdout)")
	csrCmd.MarkFlagRequired("key")
	csrCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(csrCmd)
}

func runCSR(cmd *cobra.Command, args []string) error {
	subject, err := dname.ParseDN(csrSubject)
	if err != nil {
		return err
	}

	keyData, err := readInput(csrKey)
	if err != nil {
		return err
	}
	km, err := keys.Parse(keyData)
	if err != nil {
		return err
	}

	b := certkit.NewRequestBuilder(eng).
		Subject(subject).
		Key(km)

	if csrHash != "" {
		h, err := x509util.ParseHash(csrHash)
		if err != nil {
			return err
		}
		b.Hash(h)
	}

	exts, err := symbolicExtensions(csrKeyUsage, csrEKU, csrSAN)
	if err != nil {
		return err
	}
	for _, ext := range exts {
		b.AddExtension(ext)
	}

	if err := b.Assemble(); err != nil {
		record(audit.NewEvent(audit.EventCSRCreated, audit.ResultFailure).
			WithObject(audit.Object{Type: "request", Subject: csrSubject}).
			WithContext(audit.Context{Reason: err.Error()}))
		return err
	}
	if err := b.Sign(); err != nil {
		record(audit.NewEvent(audit.EventCSRCreated, audit.ResultFailure).
			WithObject(audit.Object{Type: "request", Subject: csrSubject}).
			WithContext(audit.Context{Reason: err.Error()}))
		return err
	}
	pemBytes, err := b.PEM()
	if err != nil {
		return err
	}
	if err := writeOutput(csrOut, pemBytes, 0644); err != nil {
		return err
	}

	record(audit.NewEvent(audit.EventCSRCreated, audit.ResultSuccess).
		WithObject(audit.Object{Type: "request", Subject: subject.String()}).
		WithContext(audit.Context{Algorithm: km.Describe()}))

	if csrOut != "" && csrOut != "-" {
		fmt.Printf("Certification request created: %s\n", csrOut)
	}
	return nil
}
