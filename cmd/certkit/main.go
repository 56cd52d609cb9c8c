// Command certkit is the CLI for the certificate toolkit.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/audit"
	"github.com/AutelysZ/certkit/internal/engine"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var auditLogPath string

// eng is the shared engine for all commands.
var eng = engine.New()

// auditLog receives one event per state-changing operation. It stays a
// no-op unless --audit-log or CERTKIT_AUDIT_LOG selects a file.
var auditLog audit.Writer = audit.NopWriter{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		auditLog.Close()
		os.Exit(1)
	}
	auditLog.Close()
}

var rootCmd = &cobra.Command{
	Use:   "certkit",
	Short: "certkit - X.509 certificate toolkit",
	Long: `certkit is a command-line toolkit for building, signing, inspecting,
verifying and converting X.509 certificates, certification requests
and PKCS#12 archives.

Supported key families:
  rsa        - RSA (1024 to 8192 bits)
  ec         - ECDSA (NIST curves; secp256k1 and brainpool parse-only)
  ed25519    - Ed25519 (EdDSA)
  ed448      - Ed448 (EdDSA)
  dsa        - DSA (import only)
  dh         - Diffie-Hellman (import only, cannot sign)

Examples:
  # Generate a key pair
  certkit key gen --algorithm ec --curve prime256v1 --out server.key

  # Build a self-signed certificate
  certkit cert build --key server.key --subject "CN=server.example.com" --out server.crt

  # Build from an embedded profile
  certkit cert build --profile tls-server --keyout server.key --out server.crt

  # Create and sign a request
  certkit csr --key server.key --subject "CN=server.example.com" --out server.csr
  certkit sign --csr server.csr --issuer-cert ca.crt --issuer-key ca.key --out server.crt

  # Inspect anything
  certkit inspect server.crt`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if auditLogPath == "" {
			auditLogPath = os.Getenv("CERTKIT_AUDIT_LOG")
		}
		if auditLogPath != "" {
			w, err := audit.NewFileWriter(auditLogPath)
			if err != nil {
				return fmt.Errorf("failed to open audit log: %w", err)
			}
			auditLog = w
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "", "Append audit events to this file (or set CERTKIT_AUDIT_LOG)")
}

// record writes one audit event, reporting but never failing on audit
// errors.
func record(ev *audit.Event) {
	if err := auditLog.Write(ev); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit write failed: %v\n", err)
	}
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes data to a file, with "" or "-" meaning stdout.
func writeOutput(path string, data []byte, mode os.FileMode) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, mode)
}
