package dto

// ConvertRequest asks for a container conversion.
type ConvertRequest struct {
	// Data is the input material.
	Data BinaryData `json:"data"`

	// From narrows the input container; empty sniffs.
	From string `json:"from,omitempty"`

	// To is the output container: "pem", "der" or "pkcs12".
	To string `json:"to"`

	// Password unlocks PKCS#12 input.
	Password string `json:"password,omitempty"`

	// OutPassword protects PKCS#12 output.
	OutPassword string `json:"out_password,omitempty"`
}

// ConvertResponse carries the converted material.
type ConvertResponse struct {
	Data BinaryData `json:"data"`
}
