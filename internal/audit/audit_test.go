package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// Event Tests
// =============================================================================

func TestNewEvent(t *testing.T) {
	ev := NewEvent(EventCertBuilt, ResultSuccess)
	if ev.EventType != EventCertBuilt || ev.Result != ResultSuccess {
		t.Errorf("event = %+v", ev)
	}
	if ev.Timestamp == "" {
		t.Error("timestamp missing")
	}
	if ev.Actor.ID == "" {
		t.Error("actor id missing")
	}
	if err := ev.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestEvent_Builders(t *testing.T) {
	ev := NewEvent(EventCertIssued, ResultSuccess).
		WithObject(Object{Type: "certificate", Serial: "01:ab", Subject: "CN=x"}).
		WithContext(Context{Algorithm: "ecdsa-with-SHA256", Profile: "tls-server"})
	if ev.Object.Serial != "01:ab" {
		t.Errorf("object = %+v", ev.Object)
	}
	if ev.Context.Profile != "tls-server" {
		t.Errorf("context = %+v", ev.Context)
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"no type", func(e *Event) { e.EventType = "" }},
		{"no timestamp", func(e *Event) { e.Timestamp = "" }},
		{"no actor", func(e *Event) { e.Actor.ID = "" }},
		{"no result", func(e *Event) { e.Result = "" }},
	}
	for _, tt := range tests {
		ev := NewEvent(EventInspected, ResultSuccess)
		tt.mutate(ev)
		if err := ev.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestEvent_CanonicalJSONExcludesHash(t *testing.T) {
	ev := NewEvent(EventVerified, ResultSuccess)
	ev.HashPrev = GenesisHash
	ev.Hash = "sha256:bogus"

	canonical, err := ev.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	if strings.Contains(string(canonical), "bogus") {
		t.Error("canonical form must not include the event's own hash")
	}
	if !strings.Contains(string(canonical), GenesisHash) {
		t.Error("canonical form must include hash_prev")
	}
}

// =============================================================================
// File Writer Tests
// =============================================================================

func TestFileWriter_HashChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter failed: %v", err)
	}
	defer w.Close()

	if w.LastHash() != GenesisHash {
		t.Errorf("initial LastHash = %q", w.LastHash())
	}

	for i := 0; i < 3; i++ {
		ev := NewEvent(EventKeyGenerated, ResultSuccess).
			WithContext(Context{Algorithm: "ec"})
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	prev := GenesisHash
	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line %d: %v", count, err)
		}
		if ev.HashPrev != prev {
			t.Errorf("line %d: hash_prev = %q, want %q", count, ev.HashPrev, prev)
		}

		// Recompute the hash the way the writer does.
		canonical, err := ev.CanonicalJSON()
		if err != nil {
			t.Fatalf("CanonicalJSON failed: %v", err)
		}
		sum := sha256.Sum256(canonical)
		want := "sha256:" + hex.EncodeToString(sum[:])
		if ev.Hash != want {
			t.Errorf("line %d: hash = %q, want %q", count, ev.Hash, want)
		}

		prev = ev.Hash
		count++
	}
	if count != 3 {
		t.Errorf("got %d lines, want 3", count)
	}
	if w.LastHash() != prev {
		t.Errorf("LastHash = %q, want %q", w.LastHash(), prev)
	}
}

func TestFileWriter_TamperDetectable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter failed: %v", err)
	}
	w.Write(NewEvent(EventInspected, ResultSuccess))
	w.Write(NewEvent(EventVerified, ResultFailure))
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	// Alter the first event's result and recheck its hash.
	first.Result = ResultSuccess + "-forged"
	canonical, err := first.CanonicalJSON()
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(canonical)
	if "sha256:"+hex.EncodeToString(sum[:]) == first.Hash {
		t.Error("altered event still hashes to its recorded value")
	}
}

func TestFileWriter_RejectsInvalidEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter failed: %v", err)
	}
	defer w.Close()

	ev := NewEvent(EventInspected, ResultSuccess)
	ev.EventType = ""
	if err := w.Write(ev); err == nil {
		t.Error("invalid event accepted")
	}
	if w.LastHash() != GenesisHash {
		t.Error("rejected event advanced the chain")
	}
}

func TestFileWriter_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	w.Write(NewEvent(EventP12Packed, ResultSuccess))
	w.Close()

	w, err = NewFileWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	w.Write(NewEvent(EventP12Unpacked, ResultSuccess))
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(strings.Split(strings.TrimSpace(string(data)), "\n")); got != 2 {
		t.Errorf("got %d lines, want 2", got)
	}
}

// =============================================================================
// Nop and Multi Writer Tests
// =============================================================================

func TestNopWriter(t *testing.T) {
	var w Writer = NopWriter{}
	if err := w.Write(NewEvent(EventConverted, ResultSuccess)); err != nil {
		t.Errorf("Write failed: %v", err)
	}
	if w.LastHash() != GenesisHash {
		t.Errorf("LastHash = %q", w.LastHash())
	}
}

func TestMultiWriter(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileWriter(filepath.Join(dir, "a.log"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewFileWriter(filepath.Join(dir, "b.log"))
	if err != nil {
		t.Fatal(err)
	}
	m := NewMultiWriter(a, b)
	if err := m.Write(NewEvent(EventCSRCreated, ResultSuccess)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, name := range []string{"a.log", "b.log"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}
