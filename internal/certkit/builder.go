package certkit

import (
	"crypto"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"

	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// State tracks the build lifecycle. Assembly and signing are separate
// steps so the exact to-be-signed bytes can be inspected, and so tests
// can inject a signer.
type State int

const (
	StateDraft State = iota
	StateAssembled
	StateSigned
)

// SignFunc produces a signature over the to-be-signed bytes.
type SignFunc func(message []byte) ([]byte, error)

// Builder assembles and signs one certificate. Zero issuer means
// self-signed. Setters may be called in any order before Assemble.
type Builder struct {
	eng        *engine.Engine
	subject    dname.DN
	key        *keys.KeyMaterial
	serial     *big.Int
	notBefore  time.Time
	notAfter   time.Time
	hash       crypto.Hash
	extensions []x509util.Extension
	issuerCert *x509util.Certificate
	issuerKey  *keys.KeyMaterial

	state State
	alg   x509util.SignatureAlgorithm
	tbs   []byte
	der   []byte
}

// NewBuilder returns a draft builder bound to an engine.
func NewBuilder(eng *engine.Engine) *Builder {
	return &Builder{eng: eng}
}

// Subject sets the subject DN. An empty DN is legal when a
// subjectAltName extension carries the identity.
func (b *Builder) Subject(dn dname.DN) *Builder { b.subject = dn; return b }

// Key sets the subject key material. Only the public half is encoded;
// for self-signed builds the private half must be present too.
func (b *Builder) Key(km *keys.KeyMaterial) *Builder { b.key = km; return b }

// Serial sets the serial number.
func (b *Builder) Serial(n *big.Int) *Builder { b.serial = n; return b }

// Validity sets the validity window. The bounds are encoded as given:
// an inverted window is the caller's to flag, not the builder's.
func (b *Builder) Validity(notBefore, notAfter time.Time) *Builder {
	b.notBefore, b.notAfter = notBefore, notAfter
	return b
}

// Hash sets the digest for the signature algorithm; zero means the
// family default. Ignored for EdDSA signers.
func (b *Builder) Hash(h crypto.Hash) *Builder { b.hash = h; return b }

// AddExtension appends an extension. Duplicate OIDs are not coalesced;
// they encode in order.
func (b *Builder) AddExtension(ext x509util.Extension) *Builder {
	b.extensions = append(b.extensions, ext)
	return b
}

// Issuer sets an external issuer. Without it the build is self-signed.
func (b *Builder) Issuer(cert *x509util.Certificate, key *keys.KeyMaterial) *Builder {
	b.issuerCert, b.issuerKey = cert, key
	return b
}

// State reports the build lifecycle position.
func (b *Builder) State() State { return b.state }

// signer returns the key that will produce the signature.
func (b *Builder) signer() *keys.KeyMaterial {
	if b.issuerKey != nil {
		return b.issuerKey
	}
	return b.key
}

func (b *Builder) hasExtension(oid asn1.ObjectIdentifier) bool {
	for _, e := range b.extensions {
		if e.OID.Equal(oid) {
			return true
		}
	}
	return false
}

// Assemble validates the inputs, picks the signature algorithm and
// produces the to-be-signed bytes. Subject key identifier and
// authority key identifier extensions are added when the caller did
// not set them explicitly.
func (b *Builder) Assemble() error {
	if b.state != StateDraft {
		return buildErr("assemble", b.subject.String(), ErrWrongState)
	}
	if b.key == nil {
		return buildErr("assemble", b.subject.String(), fmt.Errorf("%w: subject key", ErrMissingInput))
	}
	if b.serial == nil {
		return buildErr("assemble", b.subject.String(), fmt.Errorf("%w: serial number", ErrMissingInput))
	}
	if b.notBefore.IsZero() && b.notAfter.IsZero() {
		return buildErr("assemble", b.subject.String(), fmt.Errorf("%w: validity window", ErrMissingInput))
	}
	if b.issuerCert != nil && b.issuerKey == nil {
		return buildErr("assemble", b.subject.String(), fmt.Errorf("%w: issuer key", ErrMissingInput))
	}
	if b.issuerKey != nil && b.issuerCert == nil {
		return buildErr("assemble", b.subject.String(), fmt.Errorf("%w: issuer certificate", ErrMissingInput))
	}

	signer := b.signer()
	if !signer.Family.CanSign() {
		return buildErr("assemble", b.subject.String(),
			fmt.Errorf("%w: %s keys cannot sign", keys.ErrCapability, signer.Family))
	}
	if !signer.HasPrivate() {
		return buildErr("assemble", b.subject.String(),
			fmt.Errorf("%w: signing key private half", ErrMissingInput))
	}

	alg, err := x509util.SelectSignatureAlgorithm(signer.Family, b.hash)
	if err != nil {
		return buildErr("assemble", b.subject.String(), err)
	}

	spki, err := keys.MarshalSPKI(b.key)
	if err != nil {
		return buildErr("assemble", b.subject.String(), err)
	}

	exts := append([]x509util.Extension(nil), b.extensions...)
	skiExt, akiExt, err := b.keyIDExtensions()
	if err != nil {
		return buildErr("assemble", b.subject.String(), err)
	}
	if skiExt != nil {
		exts = append(exts, *skiExt)
	}
	if akiExt != nil {
		exts = append(exts, *akiExt)
	}

	issuer := b.subject
	if b.issuerCert != nil {
		issuer = b.issuerCert.Subject
	}

	tbs, err := x509util.MarshalTBS(x509util.TBSParams{
		Serial:     b.serial,
		SigAlg:     alg,
		Issuer:     issuer,
		Subject:    b.subject,
		NotBefore:  b.notBefore,
		NotAfter:   b.notAfter,
		SPKI:       spki,
		Extensions: exts,
	})
	if err != nil {
		return buildErr("assemble", b.subject.String(), err)
	}

	b.alg = alg
	b.tbs = tbs
	b.state = StateAssembled
	return nil
}

// keyIDExtensions builds the automatic SKI/AKI pair, skipping whichever
// the caller already added.
func (b *Builder) keyIDExtensions() (ski, aki *x509util.Extension, err error) {
	if !b.hasExtension(x509util.OIDExtSubjectKeyId) {
		keyID, err := x509util.KeyIdentifier(b.key, 0)
		if err != nil {
			return nil, nil, err
		}
		ext, err := x509util.EncodeSubjectKeyId(keyID)
		if err != nil {
			return nil, nil, err
		}
		ski = &ext
	}
	if !b.hasExtension(x509util.OIDExtAuthorityKeyId) {
		var keyID []byte
		if b.issuerCert != nil {
			keyID = b.issuerCert.SubjectKeyID()
			if keyID == nil {
				keyID, err = x509util.KeyIdentifier(b.issuerCert.PublicKey, 0)
				if err != nil {
					return nil, nil, err
				}
			}
		} else {
			keyID, err = x509util.KeyIdentifier(b.key, 0)
			if err != nil {
				return nil, nil, err
			}
		}
		ext, err := x509util.EncodeAuthorityKeyId(keyID)
		if err != nil {
			return nil, nil, err
		}
		aki = &ext
	}
	return ski, aki, nil
}

// TBS returns the assembled to-be-signed bytes.
func (b *Builder) TBS() []byte { return b.tbs }

// Sign signs the assembled TBS with the issuer key (self key when
// self-signed) using the engine's entropy source.
func (b *Builder) Sign() error {
	return b.SignWith(func(message []byte) ([]byte, error) {
		return keys.Sign(b.eng.Rand(), b.signer(), b.alg.Hash, message)
	})
}

// SignWith signs the assembled TBS with a caller-supplied signer.
func (b *Builder) SignWith(fn SignFunc) error {
	if b.state != StateAssembled {
		return buildErr("sign", b.subject.String(), ErrWrongState)
	}
	sig, err := fn(b.tbs)
	if err != nil {
		return buildErr("sign", b.subject.String(), err)
	}
	der, err := x509util.MarshalCertificate(b.tbs, b.alg, sig)
	if err != nil {
		return buildErr("sign", b.subject.String(), err)
	}
	b.der = der
	b.state = StateSigned
	return nil
}

// DER returns the signed certificate encoding.
func (b *Builder) DER() ([]byte, error) {
	if b.state != StateSigned {
		return nil, buildErr("der", b.subject.String(), ErrWrongState)
	}
	return b.der, nil
}

// PEM returns the signed certificate as a PEM block.
func (b *Builder) PEM() ([]byte, error) {
	der, err := b.DER()
	if err != nil {
		return nil, err
	}
	return x509util.EncodeCertPEM(der), nil
}

// Certificate parses the signed result back into a Certificate.
func (b *Builder) Certificate() (*x509util.Certificate, error) {
	der, err := b.DER()
	if err != nil {
		return nil, err
	}
	return x509util.ParseCertificate(der)
}
