package certkit

import (
	"crypto"
	"fmt"
	"math/big"
	"time"

	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// IssueParams configures certificate issuance from a request.
type IssueParams struct {
	Serial    *big.Int
	NotBefore time.Time
	NotAfter  time.Time

	// Hash selects the signature digest; zero means the issuer
	// family default.
	Hash crypto.Hash

	// CarryExtensions copies the recognized requested extensions
	// (basicConstraints, keyUsage, extKeyUsage, subjectAltName)
	// into the certificate verbatim.
	CarryExtensions bool

	// Extra extensions appended after any carried ones.
	Extra []x509util.Extension
}

// Issue signs a certificate for a parsed request. The issuer is always
// external here: self-signing a request makes no sense.
func Issue(eng *engine.Engine, req *x509util.CertificateRequest, issuerCert *x509util.Certificate, issuerKey *keys.KeyMaterial, p IssueParams) ([]byte, error) {
	if req == nil {
		return nil, buildErr("issue", "", fmt.Errorf("%w: request", ErrMissingInput))
	}
	if issuerCert == nil || issuerKey == nil {
		return nil, buildErr("issue", req.Subject.String(), fmt.Errorf("%w: issuer", ErrMissingInput))
	}
	if req.PublicKey == nil {
		return nil, buildErr("issue", req.Subject.String(),
			fmt.Errorf("%w: unusable public key: %v", ErrBadRequest, req.PublicKeyErr))
	}
	if len(req.Subject) == 0 && !hasSANRequest(req) {
		return nil, buildErr("issue", "", fmt.Errorf("%w: empty subject and no subjectAltName", ErrBadRequest))
	}

	b := NewBuilder(eng).
		Subject(req.Subject).
		Key(req.PublicKey).
		Serial(p.Serial).
		Validity(p.NotBefore, p.NotAfter).
		Issuer(issuerCert, issuerKey)
	if p.Hash != 0 {
		b.Hash(p.Hash)
	}

	if p.CarryExtensions {
		for _, ext := range req.Extensions {
			if carryable(ext) {
				b.AddExtension(ext)
			}
		}
	}
	for _, ext := range p.Extra {
		b.AddExtension(ext)
	}

	if err := b.Assemble(); err != nil {
		return nil, err
	}
	if err := b.Sign(); err != nil {
		return nil, err
	}
	return b.DER()
}

// carryable reports whether a requested extension type is copied
// through issuance.
func carryable(ext x509util.Extension) bool {
	switch {
	case ext.OID.Equal(x509util.OIDExtBasicConstraints),
		ext.OID.Equal(x509util.OIDExtKeyUsage),
		ext.OID.Equal(x509util.OIDExtExtKeyUsage),
		ext.OID.Equal(x509util.OIDExtSubjectAltName):
		return true
	}
	return false
}

func hasSANRequest(req *x509util.CertificateRequest) bool {
	for _, ext := range req.Extensions {
		if ext.OID.Equal(x509util.OIDExtSubjectAltName) {
			return true
		}
	}
	return false
}
