package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
)

// GenesisHash anchors the hash chain before any event is written.
const GenesisHash = "sha256:genesis"

// Writer defines the interface for audit log writers.
//
// Implementations MUST:
//   - Return an error if the write fails
//   - Sync to storage before returning from Write
//   - Calculate and set the hash chain (HashPrev, Hash)
//   - Never write sensitive data (keys, passwords)
type Writer interface {
	// Write validates the event, links it into the hash chain and
	// persists it.
	Write(event *Event) error

	// Close flushes any pending writes and closes the writer.
	Close() error

	// LastHash returns the hash of the last written event, or
	// GenesisHash when no events have been written.
	LastHash() string
}

// NopWriter is a no-op writer that discards all events.
// Used when audit logging is disabled.
type NopWriter struct{}

var _ Writer = (*NopWriter)(nil)

func (NopWriter) Write(*Event) error { return nil }
func (NopWriter) Close() error       { return nil }
func (NopWriter) LastHash() string   { return GenesisHash }

// FileWriter appends JSON-lines events to a file, fsyncing per event.
type FileWriter struct {
	mu       sync.Mutex
	file     *os.File
	lastHash string
}

var _ Writer = (*FileWriter)(nil)

// NewFileWriter opens (or creates) an append-only audit log.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileWriter{file: f, lastHash: GenesisHash}, nil
}

func (w *FileWriter) Write(event *Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid audit event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	event.HashPrev = w.lastHash
	canonical, err := event.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("canonicalize audit event: %w", err)
	}
	sum := sha256.Sum256(canonical)
	event.Hash = "sha256:" + hex.EncodeToString(sum[:])

	line, err := event.JSON()
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}

	w.lastHash = event.Hash
	return nil
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func (w *FileWriter) LastHash() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastHash
}

// MultiWriter writes to multiple audit writers.
// If any writer fails, the write fails.
type MultiWriter struct {
	writers []Writer
}

var _ Writer = (*MultiWriter)(nil)

// NewMultiWriter creates a writer that writes to all provided writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(event *Event) error {
	for _, w := range m.writers {
		if err := w.Write(event); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiWriter) Close() error {
	var lastErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (m *MultiWriter) LastHash() string {
	if len(m.writers) > 0 {
		return m.writers[0].LastHash()
	}
	return GenesisHash
}
