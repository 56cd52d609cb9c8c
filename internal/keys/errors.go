package keys

import (
	"errors"
	"fmt"
)

// Sentinel errors for key handling. Use errors.Is() to classify failures
// through the error chain.
var (
	// ErrParse indicates a malformed or unsupported PEM, DER or JWK structure.
	ErrParse = errors.New("unable to parse key material")

	// ErrKeyFormat indicates an unrecognized or mismatched key encoding.
	ErrKeyFormat = errors.New("unrecognized key format")

	// ErrKeyLength indicates a scalar or point length mismatch for a curve.
	ErrKeyLength = errors.New("key length mismatch")

	// ErrCapability indicates an operation unsupported for a key family.
	ErrCapability = errors.New("operation not supported for key family")
)

// OpError is a key operation error with structured context.
type OpError struct {
	Op     string // "parse", "generate", "export", "derive", "sign", "verify"
	Family Family // key family, if known
	Err    error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Family != "" {
		return fmt.Sprintf("keys %s [%s]: %v", e.Op, e.Family, e.Err)
	}
	return fmt.Sprintf("keys %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OpError) Unwrap() error { return e.Err }

func opErr(op string, family Family, err error) *OpError {
	return &OpError{Op: op, Family: family, Err: err}
}
