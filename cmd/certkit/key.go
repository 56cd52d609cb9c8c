package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/audit"
	"github.com/AutelysZ/certkit/internal/keys"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Key management commands",
	Long:  `Commands for generating and converting cryptographic keys.`,
}

// Key gen flags
var (
	keyGenAlgorithm string
	keyGenBits      int
	keyGenCurve     string
	keyGenFormat    string
	keyGenOut       string
	keyGenPubOut    string
)

var keyGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a cryptographic key pair",
	Long: `Generate a new cryptographic key pair.

Supported algorithms:
  rsa      - RSA (default 2048 bits, range 1024-8192)
  ec       - ECDSA (default prime256v1; also secp384r1, secp521r1)
  ed25519  - Ed25519 (EdDSA)
  ed448    - Ed448 (EdDSA)

DSA and DH keys cannot be generated, only imported.

Examples:
  certkit key gen --algorithm ec --curve secp384r1 --out key.pem
  certkit key gen --algorithm rsa --bits 4096 --out key.pem
  certkit key gen --algorithm ed25519 --format jwk --out key.jwk`,
	RunE: runKeyGen,
}

// Key export flags
var (
	keyExportFormat string
	keyExportOut    string
	keyExportPublic bool
)

var keyExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Re-encode a key into another format",
	Long: `Re-encode an existing key into PEM, DER or JWK.

The input may be PKCS#8, SEC1, PKCS#1, OpenSSL DSA/DH, SPKI or JWK in
PEM, DER or base64 form; the container is sniffed.

Examples:
  certkit key export key.pem --format jwk
  certkit key export key.der --format pem --out key.pem
  certkit key export key.pem --public --out pub.pem`,
	Args: cobra.ExactArgs(1),
	RunE: runKeyExport,
}

func init() {
	keyGenCmd.Flags().StringVar(&keyGenAlgorithm, "algorithm", "ec", "Key algorithm: rsa, ec, ed25519, ed448")
	keyGenCmd.Flags().IntVar(&keyGenBits, "bits", 0, "RSA modulus size (default 2048)")
	keyGenCmd.Flags().StringVar(&keyGenCurve, "curve", "", "EC curve name (default prime256v1)")
	keyGenCmd.Flags().StringVar(&keyGenFormat, "format", "pem", "Private key format: pem, der, jwk")
	keyGenCmd.Flags().StringVar(&keyGenOut, "out", "", "Output file for the private key (default stdout)")
	keyGenCmd.Flags().StringVar(&keyGenPubOut, "pub-out", "", "Output file for the public key (PEM)")

	keyExportCmd.Flags().StringVar(&keyExportFormat, "format", "pem", "Output format: pem, der, jwk")
	keyExportCmd.Flags().StringVar(&keyExportOut, "out", "", "Output file (default stdout)")
	keyExportCmd.Flags().BoolVar(&keyExportPublic, "public", false, "Export the public half as SPKI PEM")

	keyCmd.AddCommand(keyGenCmd)
	keyCmd.AddCommand(keyExportCmd)
	rootCmd.AddCommand(keyCmd)
}

func runKeyGen(cmd *cobra.Command, args []string) error {
	alg := strings.ToLower(keyGenAlgorithm)
	if alg == "ecdsa" {
		alg = "ec"
	}
	spec := keys.GenerateSpec{
		Family: keys.Family(alg),
		Bits:   keyGenBits,
	}
	if keyGenCurve != "" {
		curve, err := keys.ParseCurve(keyGenCurve)
		if err != nil {
			return err
		}
		spec.Curve = curve
	}

	km, err := keys.Generate(eng.Rand(), spec)
	if err != nil {
		record(audit.NewEvent(audit.EventKeyGenerated, audit.ResultFailure).
			WithContext(audit.Context{Algorithm: alg, Reason: err.Error()}))
		return err
	}

	format, err := keys.ParseFormat(keyGenFormat)
	if err != nil {
		return err
	}
	private, err := keys.Export(km, format)
	if err != nil {
		return err
	}
	if err := writeOutput(keyGenOut, private, 0600); err != nil {
		return err
	}
	if keyGenPubOut != "" {
		public, err := keys.ExportPublicPEM(km)
		if err != nil {
			return err
		}
		if err := writeOutput(keyGenPubOut, public, 0644); err != nil {
			return err
		}
	}

	record(audit.NewEvent(audit.EventKeyGenerated, audit.ResultSuccess).
		WithObject(audit.Object{Type: "key"}).
		WithContext(audit.Context{Algorithm: km.Describe()}))

	if keyGenOut != "" && keyGenOut != "-" {
		fmt.Printf("Key pair generated: %s\n", km.Describe())
		fmt.Printf("  Private key: %s\n", keyGenOut)
		if keyGenPubOut != "" {
			fmt.Printf("  Public key:  %s\n", keyGenPubOut)
		}
	}
	return nil
}

func runKeyExport(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	km, err := keys.Parse(data)
	if err != nil {
		return err
	}

	var out []byte
	if keyExportPublic {
		out, err = keys.ExportPublicPEM(km)
	} else {
		var format keys.Format
		format, err = keys.ParseFormat(keyExportFormat)
		if err != nil {
			return err
		}
		out, err = keys.Export(km, format)
	}
	if err != nil {
		return err
	}
	return writeOutput(keyExportOut, out, 0600)
}
