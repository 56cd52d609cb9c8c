package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AutelysZ/certkit/internal/audit"
	"github.com/AutelysZ/certkit/internal/convert"
	"github.com/AutelysZ/certkit/internal/inspect"
)

// Convert flags
var (
	convertTo          string
	convertFrom        string
	convertPassword    string
	convertOutPassword string
	convertOut         string
)

var convertCmd = &cobra.Command{
	Use:   "convert FILE",
	Short: "Convert between container formats",
	Long: `Convert certificate material between PEM, DER and PKCS#12.

PEM output carries everything found in the input. DER output carries
the primary object only. PKCS#12 output needs a certificate and an
RSA private key in the input.

Examples:
  certkit convert server.crt --to der --out server.der
  certkit convert bundle.p12 --password secret --to pem --out bundle.pem
  certkit convert bundle.pem --to pkcs12 --out-password secret --out bundle.p12`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertTo, "to", "", "Target format: pem, der, pkcs12 (required)")
	convertCmd.Flags().StringVar(&convertFrom, "from", "", "Input format: pem, der, pkcs12 (default sniff)")
	convertCmd.Flags().StringVar(&convertPassword, "password", "", "PKCS#12 input password")
	convertCmd.Flags().StringVar(&convertOutPassword, "out-password", "", "PKCS#12 output password")
	convertCmd.Flags().StringVar(&convertOut, "out", "", "Output file (default stdout)")
	convertCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	target, err := convert.ParseTarget(convertTo)
	if err != nil {
		return err
	}
	hint, err := inspect.ParseHint(convertFrom)
	if err != nil {
		return err
	}

	out, err := convert.Convert(data, target, convert.Options{
		From:        hint,
		Password:    convertPassword,
		OutPassword: convertOutPassword,
	})
	if err != nil {
		record(audit.NewEvent(audit.EventConverted, audit.ResultFailure).
			WithContext(audit.Context{Format: convertTo, Reason: err.Error()}))
		return err
	}

	if err := writeOutput(convertOut, out, 0600); err != nil {
		return err
	}

	record(audit.NewEvent(audit.EventConverted, audit.ResultSuccess).
		WithContext(audit.Context{Format: convertTo}))

	if convertOut != "" && convertOut != "-" {
		fmt.Printf("Converted to %s: %s\n", convertTo, convertOut)
	}
	return nil
}
