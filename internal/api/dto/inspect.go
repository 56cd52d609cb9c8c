package dto

// InspectRequest asks for a parse of arbitrary certificate material.
type InspectRequest struct {
	// Data is the material to inspect.
	Data BinaryData `json:"data"`

	// Format narrows the container: "pem", "der", "pkcs12"; empty
	// sniffs.
	Format string `json:"format,omitempty"`

	// Password unlocks PKCS#12 input.
	Password string `json:"password,omitempty"`

	// Index selects a certificate from a bundle; out-of-range values
	// fall back to the first entry.
	Index int `json:"index,omitempty"`
}

// InspectType constants for detected types.
const (
	InspectTypeCertificate = "certificate"
	InspectTypeCSR         = "csr"
	InspectTypePrivateKey  = "private_key"
	InspectTypePublicKey   = "public_key"
)

// InspectResponse represents inspection results.
type InspectResponse struct {
	// Type is the primary detected type.
	Type string `json:"type"`

	// Count is the number of certificates found.
	Count int `json:"count,omitempty"`

	// RunID identifies the parse run; stale runs are never published
	// to the latest-result endpoint.
	RunID uint64 `json:"run_id"`

	// Details is the type-specific summary.
	Details any `json:"details,omitempty"`

	// Key carries re-encodings of key material when a key was found.
	Key *KeyEncodings `json:"key,omitempty"`
}

// KeyEncodings carries the viewer re-encodings of one key.
type KeyEncodings struct {
	Algorithm string `json:"algorithm"`
	PEM       string `json:"pem,omitempty"`
	DERBase64 string `json:"der_base64,omitempty"`
	JWK       string `json:"jwk,omitempty"`

	// JWKError explains an absent JWK encoding (no mapping for the
	// key type).
	JWKError string `json:"jwk_error,omitempty"`
}
