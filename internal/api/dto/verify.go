package dto

// VerifyRequest asks for certificate verification.
type VerifyRequest struct {
	// Data is the certificate (or request) to verify.
	Data BinaryData `json:"data"`

	// Format narrows the container; empty sniffs.
	Format string `json:"format,omitempty"`

	// Password unlocks PKCS#12 input.
	Password string `json:"password,omitempty"`

	// At is the RFC3339 evaluation instant; empty means now.
	At string `json:"at,omitempty"`

	// Bundle is optional PEM trust material for issuer and chain
	// checks.
	Bundle *BinaryData `json:"bundle,omitempty"`
}

// VerifyResponse carries the check results.
type VerifyResponse struct {
	// OK is true when every check passed.
	OK bool `json:"ok"`

	// RunID identifies the verification run.
	RunID uint64 `json:"run_id"`

	// Result is the per-check breakdown (verify.Result shape).
	Result any `json:"result"`
}
