package searchres

import (
	"testing"

	imap "github.com/meszmate/imap-flow"
)

func TestNew(t *testing.T) {
	ext := New()
	if ext.ExtName != "SEARCHRES" {
		t.Errorf("ExtName = %q, want %q", ext.ExtName, "SEARCHRES")
	}
	if len(ext.ExtCapabilities) != 1 || ext.ExtCapabilities[0] != imap.CapSearchRes {
		t.Errorf("unexpected capabilities: %v", ext.ExtCapabilities)
	}
}

func TestSessionInterface(t *testing.T) {
	ext := New()
	iface, ok := ext.SessionInterface().(*SessionSearchRes)
	if !ok {
		t.Fatalf("SessionInterface() = %T, want *SessionSearchRes", ext.SessionInterface())
	}
	if iface != nil {
		t.Error("expected a typed nil pointer")
	}
}
