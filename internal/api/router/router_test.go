package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AutelysZ/certkit/internal/engine"
)

func TestRoutes(t *testing.T) {
	r := New(engine.New(), &Config{Version: "test"})

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/api/v1/inspect/latest", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/verify/latest", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/keys/generate", `{"algorithm":"ec"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/inspect", `{"data":{"data":"junk"}}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/certs/build", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("%s %s: status = %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.status, rec.Body.String())
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	r := New(engine.New(), &Config{Version: "test"})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/inspect", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("CORS headers missing")
	}
}

func TestRequestIDAssigned(t *testing.T) {
	r := New(engine.New(), &Config{Version: "test"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing")
	}
}
