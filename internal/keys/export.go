package keys

import (
	"encoding/pem"
	"fmt"
)

// Format identifies a key export encoding.
type Format string

const (
	FormatPEM Format = "pem"
	FormatDER Format = "der"
	FormatJWK Format = "jwk"
)

// ParseFormat parses an export format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPEM, FormatDER, FormatJWK:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", ErrKeyFormat, s)
}

// Export encodes km in the requested format. When private components are
// present the private encoding is produced (PKCS#8 for PEM/DER, a private
// JWK for JWK); otherwise the public encoding (SubjectPublicKeyInfo or a
// public JWK).
func Export(km *KeyMaterial, format Format) ([]byte, error) {
	switch format {
	case FormatDER:
		if km.HasPrivate() {
			return MarshalPKCS8(km)
		}
		return MarshalSPKI(km)

	case FormatPEM:
		if km.HasPrivate() {
			der, err := MarshalPKCS8(km)
			if err != nil {
				return nil, err
			}
			return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
		}
		der, err := MarshalSPKI(km)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil

	case FormatJWK:
		return marshalJWK(km)
	}

	return nil, opErr("export", km.Family, fmt.Errorf("%w: unknown export format %q", ErrKeyFormat, format))
}

// ExportPublicPEM encodes the public half of km as SPKI PEM regardless of
// whether private components are present.
func ExportPublicPEM(km *KeyMaterial) ([]byte, error) {
	pub, err := DerivePublic(km)
	if err != nil {
		return nil, err
	}
	der, err := MarshalSPKI(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
