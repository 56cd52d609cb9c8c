package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/audit"
	"github.com/AutelysZ/certkit/internal/inspect"
	"github.com/AutelysZ/certkit/internal/keys"
)

// Inspect flags
var (
	inspectFormat   string
	inspectPassword string
	inspectIndex    int
	inspectJSON     bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Inspect certificates, requests and keys",
	Long: `Inspect certificate material of any supported kind.

The container is sniffed unless --format narrows it: PEM (possibly
with several blocks), raw DER, PKCS#12 and bare base64 of either all
parse. Use "-" to read stdin.

Examples:
  certkit inspect server.crt
  certkit inspect bundle.p12 --password secret
  certkit inspect chain.pem --index 1
  certkit inspect server.crt --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "", "Container format: pem, der, pkcs12 (default sniff)")
	inspectCmd.Flags().StringVar(&inspectPassword, "password", "", "PKCS#12 password")
	inspectCmd.Flags().IntVar(&inspectIndex, "index", 0, "Certificate index within a bundle")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Emit JSON instead of text")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	hint, err := inspect.ParseHint(inspectFormat)
	if err != nil {
		return err
	}

	bundle, err := inspect.Parse(data, hint, inspectPassword)
	if err != nil {
		record(audit.NewEvent(audit.EventInspected, audit.ResultFailure).
			WithContext(audit.Context{Format: inspectFormat, Reason: err.Error()}))
		return err
	}

	record(audit.NewEvent(audit.EventInspected, audit.ResultSuccess).
		WithObject(audit.Object{Type: bundleType(bundle)}))

	if inspectJSON {
		return printInspectJSON(bundle)
	}
	printInspectText(bundle)
	return nil
}

func bundleType(bundle *inspect.Bundle) string {
	switch {
	case len(bundle.Certificates) > 0:
		return "certificate"
	case bundle.Request != nil:
		return "request"
	default:
		return "key"
	}
}

func printInspectJSON(bundle *inspect.Bundle) error {
	out := map[string]any{}
	if len(bundle.Certificates) > 0 {
		out["type"] = "certificate"
		out["count"] = len(bundle.Certificates)
		out["certificate"] = inspect.Summarize(bundle.Certificate(inspectIndex))
	} else if bundle.Request != nil {
		out["type"] = "csr"
		out["request"] = inspect.SummarizeRequest(bundle.Request)
	}
	if bundle.Key != nil {
		kind := "public_key"
		if bundle.Key.HasPrivate() {
			kind = "private_key"
		}
		if out["type"] == nil {
			out["type"] = kind
		}
		out["key"] = map[string]any{"algorithm": bundle.Key.Describe(), "kind": kind}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printInspectText(bundle *inspect.Bundle) {
	switch {
	case len(bundle.Certificates) > 0:
		if len(bundle.Certificates) > 1 {
			fmt.Printf("Bundle with %d certificates, showing #%d\n\n", len(bundle.Certificates), inspectIndex)
		}
		s := inspect.Summarize(bundle.Certificate(inspectIndex))
		fmt.Println("Certificate:")
		fmt.Printf("  Subject:     %s\n", s.Subject)
		fmt.Printf("  Issuer:      %s\n", s.Issuer)
		fmt.Printf("  Serial:      %s\n", s.Serial)
		fmt.Printf("  Not Before:  %s\n", s.NotBefore.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("  Not After:   %s\n", s.NotAfter.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("  Public Key:  %s\n", s.PublicKeyAlgorithm)
		fmt.Printf("  Signature:   %s\n", s.SignatureAlgorithm)
		fmt.Printf("  SHA-256:     %s\n", s.Fingerprint)
		if s.SelfSigned {
			fmt.Println("  Self-signed: yes")
		}
		if len(s.Extensions) > 0 {
			fmt.Println("  Extensions:")
			for _, ext := range s.Extensions {
				critical := ""
				if ext.Critical {
					critical = " (critical)"
				}
				fmt.Printf("    %s%s: %s\n", ext.Name, critical, ext.Detail)
			}
		}

	case bundle.Request != nil:
		s := inspect.SummarizeRequest(bundle.Request)
		fmt.Println("Certification Request:")
		fmt.Printf("  Subject:     %s\n", s.Subject)
		fmt.Printf("  Public Key:  %s\n", s.PublicKeyAlgorithm)
		fmt.Printf("  Signature:   %s\n", s.SignatureAlgorithm)
		if len(s.Extensions) > 0 {
			fmt.Println("  Requested Extensions:")
			for _, ext := range s.Extensions {
				fmt.Printf("    %s: %s\n", ext.Name, ext.Detail)
			}
		}
	}

	if bundle.Key != nil {
		kind := "Public Key"
		if bundle.Key.HasPrivate() {
			kind = "Private Key"
		}
		fmt.Printf("%s:\n", kind)
		fmt.Printf("  Algorithm:   %s\n", bundle.Key.Describe())
		if _, err := keys.Export(bundle.Key, keys.FormatJWK); err != nil {
			fmt.Printf("  JWK:         unavailable (%v)\n", err)
		} else {
			fmt.Println("  JWK:         available")
		}
	}
}
