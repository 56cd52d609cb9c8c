package handler

import (
	"net/http"

	"github.com/AutelysZ/certkit/internal/api/dto"
	apierrors "github.com/AutelysZ/certkit/internal/api/errors"
	"github.com/AutelysZ/certkit/internal/convert"
	"github.com/AutelysZ/certkit/internal/inspect"
)

// ConvertHandler handles container conversion.
type ConvertHandler struct{}

// NewConvertHandler creates a new ConvertHandler.
func NewConvertHandler() *ConvertHandler {
	return &ConvertHandler{}
}

// Convert handles POST /convert.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req dto.ConvertRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	target, err := convert.ParseTarget(req.To)
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}
	hint, err := inspect.ParseHint(req.From)
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}
	data, err := req.Data.Decode()
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	out, err := convert.Convert(data, target, convert.Options{
		From:        hint,
		Password:    req.Password,
		OutPassword: req.OutPassword,
	})
	if err != nil {
		respondMapped(w, err)
		return
	}

	resp := dto.ConvertResponse{}
	if target == convert.TargetPEM {
		resp.Data = dto.PEM(out)
	} else {
		resp.Data = dto.Base64(out)
	}
	respondJSON(w, http.StatusOK, resp)
}
