// Package audit provides audit logging for certificate operations.
//
// Audit logs are separate from technical logs and designed for:
//   - Compliance review
//   - SIEM integration
//   - Tamper evidence via cryptographic hash chaining
//
// Key principles:
//   - Never log secrets (private keys, passwords)
//   - All timestamps in UTC
//   - Hash chain for integrity verification
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EventType represents the category of audit event.
type EventType string

const (
	// Key lifecycle events
	EventKeyGenerated EventType = "KEY_GENERATED"
	EventKeyImported  EventType = "KEY_IMPORTED"

	// Certificate events
	EventCertBuilt  EventType = "CERT_BUILT"
	EventCertIssued EventType = "CERT_ISSUED"
	EventCSRCreated EventType = "CSR_CREATED"

	// Container events
	EventP12Packed   EventType = "P12_PACKED"
	EventP12Unpacked EventType = "P12_UNPACKED"
	EventConverted   EventType = "CONVERTED"

	// Read-only events
	EventInspected EventType = "INSPECTED"
	EventVerified  EventType = "VERIFIED"
)

// Result represents the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor represents who performed the action.
type Actor struct {
	Type string `json:"type"`           // "user", "system", "service"
	ID   string `json:"id"`             // username or service identifier
	Host string `json:"host,omitempty"` // hostname where action occurred
}

// Object represents what was acted upon.
type Object struct {
	Type    string `json:"type"`              // "certificate", "request", "key", "archive"
	Serial  string `json:"serial,omitempty"`  // certificate serial number
	Subject string `json:"subject,omitempty"` // certificate subject DN
}

// Context provides additional details about the operation.
type Context struct {
	Algorithm string `json:"algorithm,omitempty"` // key or signature algorithm
	Profile   string `json:"profile,omitempty"`   // certificate profile used
	Format    string `json:"format,omitempty"`    // container format involved
	Reason    string `json:"reason,omitempty"`    // failure reason
	Verdict   string `json:"verdict,omitempty"`   // verification outcome
}

// Event represents a single audit log entry.
type Event struct {
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context,omitempty"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"` // SHA-256 hash of previous event
	Hash      string    `json:"hash"`      // SHA-256 hash of this event
}

// NewEvent creates a new audit event with current timestamp and actor info.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows
	}
	if username == "" {
		username = "unknown"
	}

	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor: Actor{
			Type: "user",
			ID:   username,
			Host: hostname,
		},
		Result: result,
	}
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// WithActor overrides the default actor.
func (e *Event) WithActor(actor Actor) *Event {
	e.Actor = actor
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if e.Actor.Type == "" || e.Actor.ID == "" {
		return fmt.Errorf("actor type and id are required")
	}
	if e.Result == "" {
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON returns the event as canonical JSON for hashing.
// Excludes the Hash field to allow hash calculation.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type eventForHash struct {
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context,omitempty"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}

	canonical := eventForHash{
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	}

	return json.Marshal(canonical)
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
