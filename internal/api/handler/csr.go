package handler

import (
	"net/http"

	"github.com/AutelysZ/certkit/internal/api/dto"
	apierrors "github.com/AutelysZ/certkit/internal/api/errors"
	"github.com/AutelysZ/certkit/internal/certkit"
	"github.com/AutelysZ/certkit/internal/dname"
	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/keys"
	"github.com/AutelysZ/certkit/internal/x509util"
)

// CSRHandler handles certification request building.
type CSRHandler struct {
	eng *engine.Engine
}

// NewCSRHandler creates a new CSRHandler.
func NewCSRHandler(eng *engine.Engine) *CSRHandler {
	return &CSRHandler{eng: eng}
}

// Build handles POST /csr/build.
func (h *CSRHandler) Build(w http.ResponseWriter, r *http.Request) {
	var req dto.CSRBuildRequest
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

	b := certkit.NewRequestBuilder(h.eng).
		Subject(subject).
		Key(km)

	if req.Hash != "" {
		hash, err := x509util.ParseHash(req.Hash)
		if err != nil {
			respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
			return
		}
		b.Hash(hash)
	}

	exts, err := usageExtensions(req.KeyUsage, req.ExtKeyUsage, req.SAN)
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}
	for _, ext := range exts {
		b.AddExtension(ext)
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

	respondJSON(w, http.StatusOK, dto.CSRResponse{
		Request: dto.PEM(pemBytes),
	})
}
