package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/audit"
	"github.com/AutelysZ/certkit/internal/inspect"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/p12"
	"github.com/AutelysZ/certkit/internal/x509util"
)

var p12Cmd = &cobra.Command{
	Use:   "p12",
	Short: "PKCS#12 archive commands",
	Long:  `Commands for packing and unpacking PKCS#12 archives.`,
}

// Pack flags
var (
	p12PackCert     string
	p12PackKey      string
	p12PackChain    []string
	p12PackPassword string
	p12PackOut      string
)

var p12PackCmd = &cobra.Command{
	Use:   "pack",
	Short: "Pack a certificate and key into a PKCS#12 archive",
	Long: `Pack a certificate and its RSA private key into a PKCS#12 archive.

Only RSA keys can be shrouded into PKCS#12. Extra certificates ride
along as the chain.

Examples:
  certkit p12 pack --cert server.crt --key server.key --password secret \
    --chain ca.crt --out server.p12`,
	RunE: runP12Pack,
}

// Unpack flags
var (
	p12UnpackPassword string
	p12UnpackOut      string
)

var p12UnpackCmd = &cobra.Command{
	Use:   "unpack FILE",
	Short: "Unpack a PKCS#12 archive into PEM",
	Long: `Unpack a PKCS#12 archive into PEM blocks: certificates first, then
the private key.

Examples:
  certkit p12 unpack server.p12 --password secret --out server.pem`,
	Args: cobra.ExactArgs(1),
	RunE: runP12Unpack,
}

func init() {
	p12PackCmd.Flags().StringVar(&p12PackCert, "cert", "", "Certificate file (required)")
	p12PackCmd.Flags().StringVar(&p12PackKey, "key", "", "RSA private key file (required)")
	p12PackCmd.Flags().StringSliceVar(&p12PackChain, "chain", nil, "Chain certificate files")
	p12PackCmd.Flags().StringVar(&p12PackPassword, "password", "", "Archive password")
	p12PackCmd.Flags().StringVar(&p12PackOut, "out", "", "Output file (default stdout)")
	p12PackCmd.MarkFlagRequired("cert")
	p12PackCmd.MarkFlagRequired("key")

	p12UnpackCmd.Flags().StringVar(&p12UnpackPassword, "password", "", "Archive password")
	p12UnpackCmd.Flags().StringVar(&p12UnpackOut, "out", "", "Output file (default stdout)")

	p12Cmd.AddCommand(p12PackCmd)
	p12Cmd.AddCommand(p12UnpackCmd)
	rootCmd.AddCommand(p12Cmd)
}

func runP12Pack(cmd *cobra.Command, args []string) error {
	certData, err := readInput(p12PackCert)
	if err != nil {
		return err
	}
	bundle, err := inspect.Parse(certData, inspect.HintAuto, "")
	if err != nil {
		return err
	}
	cert := bundle.Certificate(0)
	if cert == nil {
		return fmt.Errorf("%s contains no certificate", p12PackCert)
	}

	keyData, err := readInput(p12PackKey)
	if err != nil {
		return err
	}
	km, err := keys.Parse(keyData)
	if err != nil {
		return err
	}

	var chain [][]byte
	for _, path := range p12PackChain {
		data, err := readInput(path)
		if err != nil {
			return err
		}
		cb, err := inspect.Parse(data, inspect.HintAuto, "")
		if err != nil {
			return err
		}
		for _, c := range cb.Certificates {
			chain = append(chain, c.Raw)
		}
	}

	archive, err := p12.Pack(cert.Raw, km, chain, p12PackPassword)
	if err != nil {
		record(audit.NewEvent(audit.EventP12Packed, audit.ResultFailure).
			WithObject(audit.Object{Type: "archive", Subject: cert.Subject.String()}).
			WithContext(audit.Context{Reason: err.Error()}))
		return err
	}

	if err := writeOutput(p12PackOut, archive, 0600); err != nil {
		return err
	}

	record(audit.NewEvent(audit.EventP12Packed, audit.ResultSuccess).
		WithObject(audit.Object{Type: "archive", Subject: cert.Subject.String()}))

	if p12PackOut != "" && p12PackOut != "-" {
		fmt.Printf("PKCS#12 archive written: %s\n", p12PackOut)
	}
	return nil
}

func runP12Unpack(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}

	archive, err := p12.Unpack(data, p12UnpackPassword)
	if err != nil {
		record(audit.NewEvent(audit.EventP12Unpacked, audit.ResultFailure).
			WithObject(audit.Object{Type: "archive"}).
			WithContext(audit.Context{Reason: err.Error()}))
		return err
	}

	var out []byte
	for _, der := range archive.Certificates {
		out = append(out, x509util.EncodeCertPEM(der)...)
	}
	if archive.Key != nil {
		keyPEM, err := keys.Export(archive.Key, keys.FormatPEM)
		if err != nil {
			return err
		}
		out = append(out, keyPEM...)
	}

	if err := writeOutput(p12UnpackOut, out, 0600); err != nil {
		return err
	}

	record(audit.NewEvent(audit.EventP12Unpacked, audit.ResultSuccess).
		WithObject(audit.Object{Type: "archive"}))

	if p12UnpackOut != "" && p12UnpackOut != "-" {
		fmt.Printf("Unpacked %d certificate(s) to %s\n", len(archive.Certificates), p12UnpackOut)
	}
	return nil
}
