package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/duskview/aidj/internal/shared"
)

func testRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "test.db")

	out := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{Config: config, Output: out})
	t.Cleanup(func() {
		if r.db != nil {
			r.db.Close()
		}
	})
	return r, out
}

func TestWriteJSON(t *testing.T) {
	r, out := testRunner(t)

	if err := r.writeJSON(map[string]int{"tracks": 8}, false); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if got := out.String(); got != "{\"tracks\":8}\n" {
		t.Errorf("output = %q", got)
	}

	out.Reset()
	if err := r.writeJSON(map[string]int{"tracks": 8}, true); err != nil {
		t.Fatalf("writeJSON pretty: %v", err)
	}
	if !strings.Contains(out.String(), "\n  ") {
		t.Errorf("pretty output not indented: %q", out.String())
	}
}

func TestWritePlain(t *testing.T) {
	r, out := testRunner(t)

	r.writePlain("deck A %.2f\n", 0.5)
	r.writePlainln("done")

	got := out.String()
	if !strings.Contains(got, "deck A 0.50") || !strings.Contains(got, "\ndone\n") {
		t.Errorf("output = %q", got)
	}
}

func TestRegister(t *testing.T) {
	r, _ := testRunner(t)

	names := map[string]bool{}
	for _, cmd := range r.register() {
		names[cmd.Name] = true
	}
	for _, want := range []string{"setup", "auth", "mix", "bookmark", "fade"} {
		if !names[want] {
			t.Errorf("command %q not registered", want)
		}
	}
}

func TestResolveSessionID(t *testing.T) {
	r, _ := testRunner(t)

	// Explicit ids pass through untouched.
	if got, err := r.resolveSessionID("sess-42"); err != nil || got != "sess-42" {
		t.Errorf("resolveSessionID(explicit) = %q, %v", got, err)
	}

	// Nothing stored yet.
	if _, err := r.resolveSessionID(""); !errors.Is(err, shared.ErrNoSession) {
		t.Errorf("error = %v, want ErrNoSession", err)
	}

	r.saveLastSession("sess-9")
	if got, err := r.resolveSessionID(""); err != nil || got != "sess-9" {
		t.Errorf("resolveSessionID(last) = %q, %v", got, err)
	}
}

func TestEnsureCredential(t *testing.T) {
	r, _ := testRunner(t)

	if err := r.ensureCredential(); !errors.Is(err, shared.ErrMissingCredentials) {
		t.Fatalf("error = %v, want ErrMissingCredentials", err)
	}

	if err := r.storeCredential("token-abc", filepath.Join(t.TempDir(), "config.toml")); err != nil {
		t.Fatalf("storeCredential: %v", err)
	}
	if err := r.ensureCredential(); err != nil {
		t.Errorf("ensureCredential after store: %v", err)
	}
	if !r.api.Authenticated() {
		t.Error("API client not armed with stored credential")
	}
}
