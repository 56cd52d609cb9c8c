// Package p12 packs and unpacks PKCS#12 archives. Encoding always uses
// one fixed modern parameter set (AES-CBC key shrouding, SHA-256 MAC,
// 2048 iterations); decoding tolerates both modern and legacy archives.
package p12

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/AutelysZ/certkit/internal/keys"
)

// ErrPassword indicates the archive MAC or shrouded-key decryption
// rejected the supplied password.
var ErrPassword = errors.New("incorrect password")

// Archive is the decoded content of a PKCS#12 file.
type Archive struct {
	// Certificates, leaf first when the archive orders them.
	Certificates [][]byte

	// Key is the private key material, nil when the archive holds
	// only certificates.
	Key *keys.KeyMaterial
}

// Pack builds a PKCS#12 archive from a certificate, its RSA private
// key and an optional chain. Only RSA keys are packable; refusing the
// rest keeps the archive consumable by the widest tooling.
func Pack(certDER []byte, km *keys.KeyMaterial, chainDER [][]byte, password string) ([]byte, error) {
	if !km.Family.CanPKCS12() {
		return nil, fmt.Errorf("%w: %s keys cannot be packed into PKCS#12", keys.ErrCapability, km.Family)
	}
	if km.RSA == nil || km.RSA.Private == nil {
		return nil, fmt.Errorf("%w: private key required", keys.ErrKeyFormat)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	var chain []*x509.Certificate
	for i, der := range chainDER {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("parse chain certificate %d: %w", i, err)
		}
		chain = append(chain, c)
	}

	return pkcs12.Modern.Encode(km.RSA.Private, cert, chain, password)
}

// Unpack decodes a PKCS#12 archive. The modern decode path runs first;
// archives with legacy shrouded-key parameters fall back to the PEM
// conversion path. When both fail the first error is reported, mapped
// to ErrPassword if the password was the problem.
func Unpack(data []byte, password string) (*Archive, error) {
	key, cert, chain, err := pkcs12.DecodeChain(data, password)
	if err == nil {
		out := &Archive{}
		out.Certificates = append(out.Certificates, cert.Raw)
		for _, c := range chain {
			out.Certificates = append(out.Certificates, c.Raw)
		}
		out.Key, err = keyMaterial(key)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	firstErr := err

	blocks, err := pkcs12.ToPEM(data, password)
	if err == nil {
		return fromBlocks(blocks)
	}

	if errors.Is(firstErr, pkcs12.ErrIncorrectPassword) || errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return nil, ErrPassword
	}
	return nil, fmt.Errorf("decode PKCS#12: %w", firstErr)
}

func fromBlocks(blocks []*pem.Block) (*Archive, error) {
	out := &Archive{}
	for _, block := range blocks {
		switch block.Type {
		case "CERTIFICATE":
			out.Certificates = append(out.Certificates, block.Bytes)
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			km, err := keys.ParseDER(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("archive private key: %w", err)
			}
			out.Key = km
		}
	}
	return out, nil
}

// keyMaterial maps the decoder's crypto.PrivateKey to key material via
// the PKCS#8 round trip, which handles every type the decoder emits.
func keyMaterial(key any) (*keys.KeyMaterial, error) {
	if key == nil {
		return nil, nil
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("archive private key: %w", err)
	}
	km, err := keys.ParseDER(der)
	if err != nil {
		return nil, fmt.Errorf("archive private key: %w", err)
	}
	return km, nil
}
