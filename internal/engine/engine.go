// Package engine provides the explicit engine handle passed into every
// operation that needs randomness or a clock. There is no package-level
// readiness flag; an Engine value is ready by construction.
package engine

import (
	"crypto/rand"
	"io"
	"time"
)

// Engine carries the shared resources of the certificate toolkit:
// the random source used for key generation and signing, and the clock
// used for validity checks. Callers construct one at startup and pass
// it by reference into builders, signers and validators.
type Engine struct {
	rand io.Reader
	now  func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand overrides the random source. Useful for deterministic tests.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// WithClock overrides the clock. Useful for validity-window tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine backed by crypto/rand and the system clock.
func New(opts ...Option) *Engine {
	e := &Engine{
		rand: rand.Reader,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rand returns the engine's random source.
func (e *Engine) Rand() io.Reader { return e.rand }

// Now returns the current time according to the engine's clock.
func (e *Engine) Now() time.Time { return e.now() }
