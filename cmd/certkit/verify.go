package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/audit"
	"github.com/AutelysZ/certkit/internal/inspect"
	"github.com/AutelysZ/certkit/internal/verify"
)

// Verify flags
var (
	verifyBundle   string
	verifyAt       string
	verifyFormat   string
	verifyPassword string
)

var verifyCmd = &cobra.Command{
	Use:   "verify FILE",
	Short: "Verify a certificate or request",
	Long: `Verify a certificate's validity period, signature and chain, or a
request's self-signature.

Each check reports pass, FAIL or unknown; checks that cannot be
decided (missing issuer, unrecognized algorithm, key without usable
arithmetic) report unknown rather than failing. All checks always run.

Examples:
  certkit verify server.crt --bundle chain.pem
  certkit verify server.crt --at 2030-01-01T00:00:00Z
  certkit verify server.csr`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyBundle, "bundle", "", "PEM trust material for issuer and chain checks")
	verifyCmd.Flags().StringVar(&verifyAt, "at", "", "Evaluation instant (RFC3339; default now)")
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "", "Container format: pem, der, pkcs12 (default sniff)")
	verifyCmd.Flags().StringVar(&verifyPassword, "password", "", "PKCS#12 password")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	hint, err := inspect.ParseHint(verifyFormat)
	if err != nil {
		return err
	}

	var opts verify.Options
	if verifyAt != "" {
		opts.At, err = time.Parse(time.RFC3339, verifyAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}
	if verifyBundle != "" {
		raw, err := readInput(verifyBundle)
		if err != nil {
			return err
		}
		trust, err := inspect.Parse(raw, inspect.HintAuto, "")
		if err != nil {
			return fmt.Errorf("parse bundle: %w", err)
		}
		opts.Bundle = trust.Certificates
	}

	bundle, err := inspect.Parse(data, hint, verifyPassword)
	if err != nil {
		return err
	}

	var result *verify.Result
	var subject string
	switch {
	case len(bundle.Certificates) > 0:
		cert := bundle.Certificate(0)
		subject = cert.Subject.String()
		// A leaf-first chain in the input file is trust material for
		// the leaf, ahead of any explicit --bundle.
		opts.Bundle = append(bundle.Certificates[1:len(bundle.Certificates):len(bundle.Certificates)], opts.Bundle...)
		result = verify.Certificate(eng, cert, opts)
	case bundle.Request != nil:
		subject = bundle.Request.Subject.String()
		result = verify.Request(bundle.Request)
	default:
		return fmt.Errorf("%s contains no certificate or request", args[0])
	}

	for _, check := range result.Checks {
		icon := "✓"
		switch check.Verdict {
		case verify.VerdictFalse:
			icon = "✗"
		case verify.VerdictUnknown:
			icon = "?"
		}
		line := fmt.Sprintf("%s %s", icon, check.Name)
		if check.Detail != "" {
			line += ": " + check.Detail
		}
		fmt.Println(line)
	}

	verdict := "passed"
	if !result.OK() {
		verdict = "failed"
	}
	record(audit.NewEvent(audit.EventVerified, audit.ResultSuccess).
		WithObject(audit.Object{Type: bundleType(bundle), Subject: subject}).
		WithContext(audit.Context{Verdict: verdict}))

	if !result.OK() {
		return fmt.Errorf("verification failed")
	}
	fmt.Println("Verification passed")
	return nil
}
