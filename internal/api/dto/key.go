package dto

// KeyGenerateRequest asks for a fresh key pair.
type KeyGenerateRequest struct {
	// Algorithm is the key family: rsa, ec, ed25519, ed448.
	Algorithm string `json:"algorithm"`

	// Bits is the RSA modulus size; ignored for other families.
	Bits int `json:"bits,omitempty"`

	// Curve names the EC curve; ignored for other families.
	Curve string `json:"curve,omitempty"`

	// Format selects the private key encoding: pem, der, jwk.
	Format string `json:"format,omitempty"`
}

// KeyGenerateResponse carries a generated key pair.
type KeyGenerateResponse struct {
	Algorithm string     `json:"algorithm"`
	Private   BinaryData `json:"private"`
	Public    BinaryData `json:"public"`
}
