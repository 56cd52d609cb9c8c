package main

import (
	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/api/server"
)

// Serve flags
var (
	serveConfig  string
	servePort    int
	serveHost    string
	serveTLSCert string
	serveTLSKey  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the REST API server.

The API exposes the toolkit over HTTP:
  POST /api/v1/inspect        Parse certificate material
  POST /api/v1/verify         Verify a certificate or request
  POST /api/v1/convert        Convert between containers
  POST /api/v1/certs/build    Build a certificate
  POST /api/v1/certs/sign     Sign a request
  POST /api/v1/csr/build      Build a request
  POST /api/v1/keys/generate  Generate a key pair

Flags override values from the YAML config file.

Examples:
  certkit serve --port 8080
  certkit serve --config server.yaml
  certkit serve --port 8443 --tls-cert server.crt --tls-key server.key`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "YAML server config file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default all interfaces)")
	serveCmd.Flags().StringVar(&serveTLSCert, "tls-cert", "", "TLS certificate file")
	serveCmd.Flags().StringVar(&serveTLSKey, "tls-key", "", "TLS private key file")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := server.DefaultConfig()
	if serveConfig != "" {
		loaded, err := server.LoadConfig(serveConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if serveTLSCert != "" {
		cfg.TLSCert = serveTLSCert
	}
	if serveTLSKey != "" {
		cfg.TLSKey = serveTLSKey
	}

	return server.New(cfg, version).Start()
}
