// Package certkit builds and signs X.509 certificates and PKCS#10
// requests over the key material and ASN.1 codecs.
package certkit

import (
	"errors"
	"fmt"
)

// BuildError carries the operation context for a failed build step.
// It supports errors.Is() and errors.As() through Unwrap.
type BuildError struct {
	Op      string // "assemble", "sign", "csr", "issue"
	Subject string // subject DN text, if known
	Err     error
}

func (e *BuildError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("certkit %s [%s]: %v", e.Op, e.Subject, e.Err)
	}
	return fmt.Sprintf("certkit %s: %v", e.Op, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

func buildErr(op, subject string, err error) *BuildError {
	return &BuildError{Op: op, Subject: subject, Err: err}
}

// Sentinel errors for build operations.
// Use errors.Is() to check for these through the error chain.
var (
	// ErrMissingInput indicates a required build input was never set.
	// The wrapping message names the input.
	ErrMissingInput = errors.New("missing input")

	// ErrWrongState indicates a build step was called out of order,
	// e.g. Sign before Assemble.
	ErrWrongState = errors.New("wrong build state")

	// ErrInvalidSerial indicates the serial number text could not be
	// normalized.
	ErrInvalidSerial = errors.New("invalid serial number")

	// ErrBadRequest indicates the certification request failed the
	// pre-issue checks.
	ErrBadRequest = errors.New("invalid certification request")
)
