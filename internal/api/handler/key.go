package handler

import (
	"net/http"
	"strings"

	"github.com/AutelysZ/certkit/internal/api/dto"
	apierrors "github.com/AutelysZ/certkit/internal/api/errors"
	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/keys"
)

// KeyHandler handles key pair generation.
type KeyHandler struct {
	eng *engine.Engine
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(eng *engine.Engine) *KeyHandler {
	return &KeyHandler{eng: eng}
}

// Generate handles POST /keys/generate.
func (h *KeyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req dto.KeyGenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	alg := strings.ToLower(req.Algorithm)
	if alg == "ecdsa" {
		alg = "ec"
	}
	spec := keys.GenerateSpec{
		Family: keys.Family(alg),
		Bits:   req.Bits,
	}
	if req.Curve != "" {
		curve, err := keys.ParseCurve(req.Curve)
		if err != nil {
			respondMapped(w, err)
			return
		}
		spec.Curve = curve
	}

	km, err := keys.Generate(h.eng.Rand(), spec)
	if err != nil {
		respondMapped(w, err)
		return
	}

	format := keys.FormatPEM
	if req.Format != "" {
		format, err = keys.ParseFormat(req.Format)
		if err != nil {
			respondMapped(w, err)
			return
		}
	}

	private, err := keys.Export(km, format)
	if err != nil {
		respondMapped(w, err)
		return
	}
	public, err := keys.ExportPublicPEM(km)
	if err != nil {
		respondMapped(w, err)
		return
	}

	resp := dto.KeyGenerateResponse{
		Algorithm: km.Describe(),
		Public:    dto.PEM(public),
	}
	if format == keys.FormatDER {
		resp.Private = dto.Base64(private)
	} else {
		resp.Private = dto.PEM(private)
	}
	respondJSON(w, http.StatusOK, resp)
}
