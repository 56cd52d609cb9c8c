package handler

import (
	"encoding/asn1"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/AutelysZ/certkit/internal/api/dto"
	apierrors "github.com/AutelysZ/certkit/internal/api/errors"
	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/inspect"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// CertHandler handles certificate building and CSR signing.
type CertHandler struct {
	eng *engine.Engine
}

// NewCertHandler creates a new CertHandler.
func NewCertHandler(eng *engine.Engine) *CertHandler {
	return &CertHandler{eng: eng}
}

// Build handles POST /certs/build.
func (h *CertHandler) Build(w http.ResponseWriter, r *http.Request) {
	var req dto.CertBuildRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	subject, err := dname.ParseDN(req.Subject)
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("invalid subject: "+err.Error()))
		return
	}

	keyData, err := req.Key.Decode()
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}
	km, err := keys.Parse(keyData)
	if err != nil {
		respondMapped(w, err)
		return
	}

	serial, err := h.serial(req.Serial)
	if err != nil {
		respondMapped(w, err)
		return
	}
	notBefore, notAfter, err := h.validity(req.NotBefore, req.NotAfter)
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	b := certkit.NewBuilder(h.eng).
		Subject(subject).
		Key(km).
		Serial(serial).
		Validity(notBefore, notAfter)

	if req.Hash != "" {
		hash, err := x509util.ParseHash(req.Hash)
		if err != nil {
			respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
			return
		}
		b.Hash(hash)
	}

	pathLen := -1
	if req.PathLen != nil {
		pathLen = *req.PathLen
	}
	bc, err := x509util.EncodeBasicConstraints(req.CA, pathLen)
	if err != nil {
		respondMapped(w, err)
		return
	}
	b.AddExtension(bc)

	exts, err := usageExtensions(req.KeyUsage, req.ExtKeyUsage, req.SAN)
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}
	for _, ext := range exts {
		b.AddExtension(ext)
	}

	if req.Issuer != nil {
		issuerCert, issuerKey, err := parseIssuer(req.Issuer)
		if err != nil {
			respondMapped(w, err)
			return
		}
		b.Issuer(issuerCert, issuerKey)
	}

	if err := b.Assemble(); err != nil {
		respondMapped(w, err)
		return
	}
	if err := b.Sign(); err != nil {
		respondMapped(w, err)
		return
	}
	pemBytes, err := b.PEM()
	if err != nil {
		respondMapped(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.CertResponse{
		Certificate: dto.PEM(pemBytes),
		Serial:      certkit.FormatSerial(serial),
	})
}

// Sign handles POST /certs/sign.
func (h *CertHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req dto.SignRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	reqData, err := req.Request.Decode()
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}
	bundle, err := inspect.Parse(reqData, inspect.HintAuto, "")
	if err != nil {
		respondMapped(w, err)
		return
	}
	if bundle.Request == nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("input contains no certification request"))
		return
	}

	issuerCert, issuerKey, err := parseIssuer(&req.Issuer)
	if err != nil {
		respondMapped(w, err)
		return
	}

	serial, err := h.serial(req.Serial)
	if err != nil {
		respondMapped(w, err)
		return
	}
	notBefore, notAfter, err := h.validity(req.NotBefore, req.NotAfter)
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	p := certkit.IssueParams{
		Serial:          serial,
		NotBefore:       notBefore,
		NotAfter:        notAfter,
		CarryExtensions: req.CarryExtensions,
	}
	if req.Hash != "" {
		hash, err := x509util.ParseHash(req.Hash)
		if err != nil {
			respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
			return
		}
		p.Hash = hash
	}

	der, err := certkit.Issue(h.eng, bundle.Request, issuerCert, issuerKey, p)
	if err != nil {
		respondMapped(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.CertResponse{
		Certificate: dto.PEM(x509util.EncodeCertPEM(der)),
		Serial:      certkit.FormatSerial(serial),
	})
}

func (h *CertHandler) serial(text string) (*big.Int, error) {
	if text == "" {
		return certkit.RandomSerial(h.eng.Rand())
	}
	return certkit.ParseSerial(text)
}

func (h *CertHandler) validity(notBefore, notAfter string) (time.Time, time.Time, error) {
	nb := h.eng.Now()
	if notBefore != "" {
		t, err := time.Parse(time.RFC3339, notBefore)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		nb = t
	}
	na := nb.Add(365 * 24 * time.Hour)
	if notAfter != "" {
		t, err := time.Parse(time.RFC3339, notAfter)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		na = t
	}
	return nb, na, nil
}

// usageExtensions builds the key usage, extended key usage and SAN
// extensions from their symbolic request fields.
func usageExtensions(keyUsage, extKeyUsage, san []string) ([]x509util.Extension, error) {
	var exts []x509util.Extension

	if len(keyUsage) > 0 {
		var ku x509util.KeyUsage
		for _, name := range keyUsage {
			bit, ok := x509util.KeyUsageByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown key usage %q", name)
			}
			ku |= bit
		}
		ext, err := x509util.EncodeKeyUsage(ku)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	if len(extKeyUsage) > 0 {
		var oids []asn1.ObjectIdentifier
		for _, name := range extKeyUsage {
			oid, ok := x509util.EKUByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown extended key usage %q", name)
			}
			oids = append(oids, oid)
		}
		ext, err := x509util.EncodeExtKeyUsage(oids)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	if len(san) > 0 {
		entries, err := dname.ParseSAN(strings.Join(san, "\n"))
		if err != nil {
			return nil, err
		}
		ext, err := x509util.EncodeSubjectAltName(entries)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	return exts, nil
}

// parseIssuer decodes the issuer certificate and private key from a
// request reference.
func parseIssuer(ref *dto.IssuerRef) (*x509util.Certificate, *keys.KeyMaterial, error) {
	certData, err := ref.Certificate.Decode()
	if err != nil {
		return nil, nil, err
	}
	bundle, err := inspect.Parse(certData, inspect.HintAuto, "")
	if err != nil {
		return nil, nil, err
	}
	cert := bundle.Certificate(0)
	if cert == nil {
		return nil, nil, fmt.Errorf("%w: issuer certificate", certkit.ErrMissingInput)
	}

	keyData, err := ref.Key.Decode()
	if err != nil {
		return nil, nil, err
	}
	km, err := keys.Parse(keyData)
	if err != nil {
		return nil, nil, err
	}
	return cert, km, nil
}
