package utf8accept

import (
	"testing"

	imap "github.com/meszmate/imap-flow"
)

func TestNew(t *testing.T) {
	ext := New()
	if ext.ExtName != "UTF8=ACCEPT" {
		t.Errorf("ExtName = %q, want %q", ext.ExtName, "UTF8=ACCEPT")
	}
	if len(ext.ExtCapabilities) != 1 || ext.ExtCapabilities[0] != imap.CapUTF8Accept {
		t.Errorf("unexpected capabilities: %v", ext.ExtCapabilities)
	}
}

func TestSessionInterface(t *testing.T) {
	ext := New()
	iface, ok := ext.SessionInterface().(*SessionUTF8Accept)
	if !ok {
		t.Fatalf("SessionInterface() = %T, want *SessionUTF8Accept", ext.SessionInterface())
	}
	if iface != nil {
		t.Error("expected a typed nil pointer")
	}
}
