package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/AutelysZ/certkit/internal/api/dto"
	apierrors "github.com/AutelysZ/certkit/internal/api/errors"
	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/inspect"
	"github.com/AutelysZ/certkit/internal/verify"
)

// VerifyHandler handles certificate and request verification. Like
// inspection, each request is one run under the staleness guard.
type VerifyHandler struct {
	eng    *engine.Engine
	runner engine.Runner

	mu     sync.RWMutex
	latest *dto.VerifyResponse
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(eng *engine.Engine) *VerifyHandler {
	return &VerifyHandler{eng: eng}
}

// Verify handles POST /verify.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	run := h.runner.Begin()

	hint, err := inspect.ParseHint(req.Format)
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}
	data, err := req.Data.Decode()
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	var opts verify.Options
	if req.At != "" {
		at, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("invalid at timestamp: "+err.Error()))
			return
		}
		opts.At = at
	}
	if req.Bundle != nil {
		raw, err := req.Bundle.Decode()
		if err != nil {
			respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
			return
		}
		trust, err := inspect.Parse(raw, inspect.HintAuto, "")
		if err != nil {
			respondMapped(w, err)
			return
		}
		opts.Bundle = trust.Certificates
	}

	bundle, err := inspect.Parse(data, hint, req.Password)
	if err != nil {
		respondMapped(w, err)
		return
	}

	var result *verify.Result
	switch {
	case len(bundle.Certificates) > 0:
		// Chain entries after the leaf count as trust material, ahead
		// of any explicit bundle.
		opts.Bundle = append(bundle.Certificates[1:len(bundle.Certificates):len(bundle.Certificates)], opts.Bundle...)
		result = verify.Certificate(h.eng, bundle.Certificate(0), opts)
	case bundle.Request != nil:
		result = verify.Request(bundle.Request)
	default:
		respondError(w, http.StatusUnprocessableEntity, &dto.APIError{
			Code:    "NOTHING_TO_VERIFY",
			Message: "input contains no certificate or request",
		})
		return
	}

	resp := dto.VerifyResponse{
		OK:     result.OK(),
		RunID:  run.ID(),
		Result: result,
	}

	run.Commit(func() {
		h.mu.Lock()
		h.latest = &resp
		h.mu.Unlock()
	})

	respondJSON(w, http.StatusOK, resp)
}

// Latest handles GET /verify/latest.
func (h *VerifyHandler) Latest(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()

	if latest == nil {
		respondError(w, http.StatusNotFound, &dto.APIError{
			Code:    "NO_RESULT",
			Message: "no verification has completed yet",
		})
		return
	}
	respondJSON(w, http.StatusOK, *latest)
}
