// Package router provides HTTP routing configuration using Chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AutelysZ/certkit/internal/api/handler"
	"github.com/AutelysZ/certkit/internal/api/middleware"
	"github.com/AutelysZ/certkit/internal/engine"
)

// Config holds router configuration.
type Config struct {
	Version string
}

// New creates a new Chi router with all routes configured.
func New(eng *engine.Engine, cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS)

	// Health endpoints
	healthHandler := handler.NewHealthHandler(cfg.Version)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Handlers
	inspectHandler := handler.NewInspectHandler()
	verifyHandler := handler.NewVerifyHandler(eng)
	convertHandler := handler.NewConvertHandler()
	certHandler := handler.NewCertHandler(eng)
	csrHandler := handler.NewCSRHandler(eng)
	keyHandler := handler.NewKeyHandler(eng)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/inspect", func(r chi.Router) {
			r.Post("/", inspectHandler.Inspect)
			r.Get("/latest", inspectHandler.Latest)
		})

		r.Route("/verify", func(r chi.Router) {
			r.Post("/", verifyHandler.Verify)
			r.Get("/latest", verifyHandler.Latest)
		})

		r.Post("/convert", convertHandler.Convert)

		r.Route("/certs", func(r chi.Router) {
			r.Post("/build", certHandler.Build)
			r.Post("/sign", certHandler.Sign)
		})

		r.Post("/csr/build", csrHandler.Build)

		r.Post("/keys/generate", keyHandler.Generate)
	})

	return r
}
