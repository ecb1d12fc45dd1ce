package uidonly

import (
	"testing"

	imap "github.com/meszmate/imap-flow"
)

func TestNew(t *testing.T) {
	ext := New()
	if ext.ExtName != "UIDONLY" {
		t.Errorf("ExtName = %q, want %q", ext.ExtName, "UIDONLY")
	}
	if len(ext.ExtCapabilities) != 1 || ext.ExtCapabilities[0] != imap.CapUIDOnly {
		t.Errorf("unexpected capabilities: %v", ext.ExtCapabilities)
	}
	if len(ext.ExtDependencies) != 1 || ext.ExtDependencies[0] != "CONDSTORE" {
		t.Errorf("unexpected dependencies: %v", ext.ExtDependencies)
	}
}

func TestSessionInterface(t *testing.T) {
	ext := New()
	iface, ok := ext.SessionInterface().(*SessionUIDOnly)
	if !ok {
		t.Fatalf("SessionInterface() = %T, want *SessionUIDOnly", ext.SessionInterface())
	}
	if iface != nil {
		t.Error("expected a typed nil pointer")
	}
}
