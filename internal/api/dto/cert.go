package dto

// IssuerRef carries the external issuer material for a build.
type IssuerRef struct {
	// Certificate is the issuer certificate (PEM or DER).
	Certificate BinaryData `json:"certificate"`

	// Key is the issuer private key (any supported key encoding).
	Key BinaryData `json:"key"`
}

// CertBuildRequest asks for a certificate build. Without an issuer the
// result is self-signed.
type CertBuildRequest struct {
	// Subject is DN text, e.g. "CN=example, O=ACME".
	Subject string `json:"subject"`

	// Key is the subject key; for self-signed builds it must include
	// the private half.
	Key BinaryData `json:"key"`

	// Serial is decimal or 0x-prefixed hex; empty draws a random one.
	Serial string `json:"serial,omitempty"`

	// NotBefore/NotAfter are RFC3339; empty means now and now+365d.
	NotBefore string `json:"not_before,omitempty"`
	NotAfter  string `json:"not_after,omitempty"`

	// Hash names the signature digest; empty means the family default.
	Hash string `json:"hash,omitempty"`

	CA      bool `json:"ca,omitempty"`
	PathLen *int `json:"path_len,omitempty"`

	KeyUsage    []string `json:"key_usage,omitempty"`
	ExtKeyUsage []string `json:"ext_key_usage,omitempty"`

	// SAN entries, one "TYPE:value" per item.
	SAN []string `json:"san,omitempty"`

	Issuer *IssuerRef `json:"issuer,omitempty"`
}

// CertResponse carries a built certificate.
type CertResponse struct {
	Certificate BinaryData `json:"certificate"`
	Serial      string     `json:"serial"`
}

// CSRBuildRequest asks for a certification request build.
type CSRBuildRequest struct {
	Subject string     `json:"subject"`
	Key     BinaryData `json:"key"`
	Hash    string     `json:"hash,omitempty"`

	KeyUsage    []string `json:"key_usage,omitempty"`
	ExtKeyUsage []string `json:"ext_key_usage,omitempty"`
	SAN         []string `json:"san,omitempty"`
}

// CSRResponse carries a built request.
type CSRResponse struct {
	Request BinaryData `json:"request"`
}

// SignRequest asks for certificate issuance from a CSR.
type SignRequest struct {
	// Request is the PKCS#10 input (PEM or DER).
	Request BinaryData `json:"request"`

	Issuer IssuerRef `json:"issuer"`

	Serial    string `json:"serial,omitempty"`
	NotBefore string `json:"not_before,omitempty"`
	NotAfter  string `json:"not_after,omitempty"`
	Hash      string `json:"hash,omitempty"`

	// CarryExtensions copies the recognized requested extensions into
	// the certificate.
	CarryExtensions bool `json:"carry_extensions,omitempty"`
}
