package handler

import (
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/AutelysZ/certkit/internal/api/dto"
	apierrors "github.com/AutelysZ/certkit/internal/api/errors"
	"github.com/AutelysZ/certkit/internal/engine"
	"github.com/AutelysZ/certkit/internal/inspect"
	"github.com/AutelysZ/certkit/internal/keys"
)

// InspectHandler handles material inspection. Each request is one run
// under the staleness guard: a caller re-posting on every input change
// gets its answer synchronously, but only the latest-started run is
// published to the latest-result endpoint.
type InspectHandler struct {
	runner engine.Runner

	mu     sync.RWMutex
	latest *dto.InspectResponse
}

// NewInspectHandler creates a new InspectHandler.
func NewInspectHandler() *InspectHandler {
	return &InspectHandler{}
}

// Inspect handles POST /inspect.
func (h *InspectHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	var req dto.InspectRequest
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

	bundle, err := inspect.Parse(data, hint, req.Password)
	if err != nil {
		respondMapped(w, err)
		return
	}

	resp := buildInspectResponse(bundle, req.Index)
	resp.RunID = run.ID()

	run.Commit(func() {
		h.mu.Lock()
		h.latest = &resp
		h.mu.Unlock()
	})

	respondJSON(w, http.StatusOK, resp)
}

// Latest handles GET /inspect/latest. It returns the most recent
// committed result, which can lag the responses of superseded posts.
func (h *InspectHandler) Latest(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()

	if latest == nil {
		respondError(w, http.StatusNotFound, &dto.APIError{
			Code:    "NO_RESULT",
			Message: "no inspection has completed yet",
		})
		return
	}
	respondJSON(w, http.StatusOK, *latest)
}

func buildInspectResponse(bundle *inspect.Bundle, index int) dto.InspectResponse {
	switch {
	case len(bundle.Certificates) > 0:
		resp := dto.InspectResponse{
			Type:    dto.InspectTypeCertificate,
			Count:   len(bundle.Certificates),
			Details: inspect.Summarize(bundle.Certificate(index)),
		}
		if bundle.Key != nil {
			resp.Key = keyEncodings(bundle.Key)
		}
		return resp
	case bundle.Request != nil:
		return dto.InspectResponse{
			Type:    dto.InspectTypeCSR,
			Details: inspect.SummarizeRequest(bundle.Request),
		}
	case bundle.Key != nil:
		typ := dto.InspectTypePublicKey
		if bundle.Key.HasPrivate() {
			typ = dto.InspectTypePrivateKey
		}
		return dto.InspectResponse{
			Type: typ,
			Key:  keyEncodings(bundle.Key),
		}
	}
	return dto.InspectResponse{}
}

// keyEncodings re-encodes parsed key material for the viewer. A key
// family without a JWK mapping reports the reason instead of failing
// the whole inspection.
func keyEncodings(km *keys.KeyMaterial) *dto.KeyEncodings {
	enc := &dto.KeyEncodings{Algorithm: km.Describe()}

	if pemBytes, err := keys.Export(km, keys.FormatPEM); err == nil {
		enc.PEM = string(pemBytes)
	}
	if der, err := keys.Export(km, keys.FormatDER); err == nil {
		enc.DERBase64 = base64.StdEncoding.EncodeToString(der)
	}
	if jwk, err := keys.Export(km, keys.FormatJWK); err == nil {
		enc.JWK = string(jwk)
	} else {
		enc.JWKError = err.Error()
	}
	return enc
}
