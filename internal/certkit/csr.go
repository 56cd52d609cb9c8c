package certkit

import (
	"crypto"
	"fmt"

	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// RequestBuilder assembles and signs a PKCS#10 certification request.
// Same two-step lifecycle as the certificate builder. Only RSA, EC and
// DSA keys can request: the EdDSA path is certificate-only.
type RequestBuilder struct {
	eng        *engine.Engine
	subject    dname.DN
	key        *keys.KeyMaterial
	hash       crypto.Hash
	extensions []x509util.Extension

	state State
	alg   x509util.SignatureAlgorithm
	info  []byte
	der   []byte
}

// NewRequestBuilder returns a draft request builder bound to an engine.
func NewRequestBuilder(eng *engine.Engine) *RequestBuilder {
	return &RequestBuilder{eng: eng}
}

// Subject sets the subject DN.
func (b *RequestBuilder) Subject(dn dname.DN) *RequestBuilder { b.subject = dn; return b }

// Key sets the requesting key pair; the private half is required.
func (b *RequestBuilder) Key(km *keys.KeyMaterial) *RequestBuilder { b.key = km; return b }

// Hash sets the digest for the request signature; zero means the
// family default.
func (b *RequestBuilder) Hash(h crypto.Hash) *RequestBuilder { b.hash = h; return b }

// AddExtension appends a requested extension, carried in the
// extensionRequest attribute.
func (b *RequestBuilder) AddExtension(ext x509util.Extension) *RequestBuilder {
	b.extensions = append(b.extensions, ext)
	return b
}

// State reports the build lifecycle position.
func (b *RequestBuilder) State() State { return b.state }

// Assemble validates the inputs and produces the to-be-signed
// CertificationRequestInfo bytes.
func (b *RequestBuilder) Assemble() error {
	if b.state != StateDraft {
		return buildErr("csr", b.subject.String(), ErrWrongState)
	}
	if b.key == nil {
		return buildErr("csr", b.subject.String(), fmt.Errorf("%w: subject key", ErrMissingInput))
	}
	if !b.key.Family.CanRequest() {
		return buildErr("csr", b.subject.String(),
			fmt.Errorf("%w: %s keys cannot sign requests", keys.ErrCapability, b.key.Family))
	}
	if !b.key.HasPrivate() {
		return buildErr("csr", b.subject.String(),
			fmt.Errorf("%w: subject key private half", ErrMissingInput))
	}

	alg, err := x509util.SelectSignatureAlgorithm(b.key.Family, b.hash)
	if err != nil {
		return buildErr("csr", b.subject.String(), err)
	}
	spki, err := keys.MarshalSPKI(b.key)
	if err != nil {
		return buildErr("csr", b.subject.String(), err)
	}
	info, err := x509util.MarshalCSRInfo(x509util.CSRParams{
		Subject:    b.subject,
		SPKI:       spki,
		Extensions: b.extensions,
	})
	if err != nil {
		return buildErr("csr", b.subject.String(), err)
	}

	b.alg = alg
	b.info = info
	b.state = StateAssembled
	return nil
}

// Info returns the assembled to-be-signed bytes.
func (b *RequestBuilder) Info() []byte { return b.info }

// Sign signs the assembled request info with the subject key.
func (b *RequestBuilder) Sign() error {
	return b.SignWith(func(message []byte) ([]byte, error) {
		return keys.Sign(b.eng.Rand(), b.key, b.alg.Hash, message)
	})
}

// SignWith signs the assembled request info with a caller-supplied
// signer.
func (b *RequestBuilder) SignWith(fn SignFunc) error {
	if b.state != StateAssembled {
		return buildErr("csr", b.subject.String(), ErrWrongState)
	}
	sig, err := fn(b.info)
	if err != nil {
		return buildErr("csr", b.subject.String(), err)
	}
	der, err := x509util.MarshalCSR(b.info, b.alg, sig)
	if err != nil {
		return buildErr("csr", b.subject.String(), err)
	}
	b.der = der
	b.state = StateSigned
	return nil
}

// DER returns the signed request encoding.
func (b *RequestBuilder) DER() ([]byte, error) {
	if b.state != StateSigned {
		return nil, buildErr("csr", b.subject.String(), ErrWrongState)
	}
	return b.der, nil
}

// PEM returns the signed request as a PEM block.
func (b *RequestBuilder) PEM() ([]byte, error) {
	der, err := b.DER()
	if err != nil {
		return nil, err
	}
	return x509util.EncodeCSRPEM(der), nil
}
