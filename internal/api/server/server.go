package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AutelysZ/certkit/internal/api/router"
	"github.com/AutelysZ/certkit/internal/engine"
)

// Server represents the HTTP server.
type Server struct {
	cfg     *Config
	version string
	eng     *engine.Engine
	srv     *http.Server
}

// New creates a new Server.
func New(cfg *Config, version string) *Server {
	return &Server{
		cfg:     cfg,
		version: version,
		eng:     engine.New(),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	handler := router.New(s.eng, &router.Config{Version: s.version})

	s.srv = &http.Server{
		Addr:         s.cfg.Address(),
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.printStartupInfo()

	errChan := make(chan error, 1)
	go func() {
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			errChan <- s.srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			errChan <- s.srv.ListenAndServe()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		return s.shutdown()
	}

	return nil
}

// shutdown gracefully stops the server.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}

// printStartupInfo prints server startup information.
func (s *Server) printStartupInfo() {
	fmt.Println()
	fmt.Println("certkit API Server")
	fmt.Println("==================")
	fmt.Printf("  Version:  %s\n", s.version)
	scheme := "http"
	if s.cfg.TLSCert != "" {
		scheme = "https"
	}
	fmt.Printf("  Address:  %s://%s\n", scheme, s.cfg.Address())
	fmt.Println()
}
